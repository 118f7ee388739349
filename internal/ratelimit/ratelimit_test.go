package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/ids"
)

type recordingDispatcher struct {
	dispatched []bus.InboundEvent
}

func (r *recordingDispatcher) Dispatch(now time.Time, ev bus.InboundEvent) {
	r.dispatched = append(r.dispatched, ev)
}

func TestGate_DropsOverBudgetLines(t *testing.T) {
	next := &recordingDispatcher{}
	var dropped []ids.SessionId
	g := New(next, 2, 2, func(sid ids.SessionId) { dropped = append(dropped, sid) })

	for i := 0; i < 5; i++ {
		g.Dispatch(time.Unix(0, 0), bus.InboundEvent{Kind: bus.InboundLineReceived, Session: 1, Line: "look"})
	}

	require.Less(t, len(next.dispatched), 5)
	assert.NotEmpty(t, dropped)
}

func TestGate_DisabledIsPassthrough(t *testing.T) {
	next := &recordingDispatcher{}
	g := New(next, 0, 0, nil)

	for i := 0; i < 10; i++ {
		g.Dispatch(time.Unix(0, 0), bus.InboundEvent{Kind: bus.InboundLineReceived, Session: 1, Line: "look"})
	}
	assert.Len(t, next.dispatched, 10)
}

func TestGate_NonLineEventsAlwaysPass(t *testing.T) {
	next := &recordingDispatcher{}
	g := New(next, 1, 1, nil)

	for i := 0; i < 10; i++ {
		g.Dispatch(time.Unix(0, 0), bus.InboundEvent{Kind: bus.InboundConnected, Session: 1})
	}
	assert.Len(t, next.dispatched, 10)
}
