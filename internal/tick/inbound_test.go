package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/bus/local"
)

type recordingDispatcher struct {
	lines []string
}

func (d *recordingDispatcher) Dispatch(now time.Time, ev bus.InboundEvent) {
	d.lines = append(d.lines, ev.Line)
}

func TestInboundDrain_DispatchesAllUnderBudget(t *testing.T) {
	in := local.NewInboundBus(8)
	require.True(t, in.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "look"}))
	require.True(t, in.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "kill rat"}))

	d := &recordingDispatcher{}
	e := NewEngine(Budgets{})
	RegisterInboundDrain(e, InboundDrainDeps{Bus: in, MaxPerTick: 10, Dispatcher: d})

	e.Tick(time.Unix(0, 0))
	assert.Equal(t, []string{"look", "kill rat"}, d.lines)
}

func TestInboundDrain_RequeuesOnBudgetExceeded(t *testing.T) {
	in := local.NewInboundBus(8)
	require.True(t, in.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "a"}))
	require.True(t, in.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Line: "b"}))

	fakeNow := time.Unix(0, 0)
	calls := 0
	clock := func() time.Time {
		calls++
		if calls > 2 {
			fakeNow = fakeNow.Add(time.Second)
		}
		return fakeNow
	}

	d := &recordingDispatcher{}
	e := NewEngine(Budgets{})
	RegisterInboundDrain(e, InboundDrainDeps{Bus: in, MaxPerTick: 10, Budget: 10 * time.Millisecond, Dispatcher: d, WallClock: clock})

	e.Tick(time.Unix(0, 0))
	assert.Equal(t, []string{"a"}, d.lines, "only the first event should dispatch before the budget trips")

	remaining := in.Drain(10)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].Line)
}
