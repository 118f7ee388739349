package tick

import (
	"time"

	"github.com/ambonmud/server/internal/bus"
)

// InboundDispatcher turns one drained InboundEvent into game state
// changes (command parsing and execution lives outside this package;
// the Tick Engine only owns phase sequencing and budget enforcement).
type InboundDispatcher interface {
	Dispatch(now time.Time, ev bus.InboundEvent)
}

// InboundDrainDeps configures the Inbound Drain phase.
type InboundDrainDeps struct {
	Bus        bus.InboundBus
	MaxPerTick int
	Budget     time.Duration
	Dispatcher InboundDispatcher
	// WallClock measures elapsed time against Budget; defaults to
	// time.Now. Tests override it for determinism.
	WallClock func() time.Time
}

// RegisterInboundDrain registers the Inbound Drain phase: drain up to
// MaxPerTick queued events, then dispatch them one at a time, checking
// Budget between events rather than only once per batch, since a single
// slow command handler could otherwise blow the whole phase's budget
// without the engine ever noticing until the tick already overran.
// Events left undispatched when the budget runs out are republished so
// client input is delayed, never silently dropped.
func RegisterInboundDrain(e *Engine, deps InboundDrainDeps) {
	wallClock := deps.WallClock
	if wallClock == nil {
		wallClock = time.Now
	}
	e.RegisterFunc(PhaseInboundDrain, "inbound-drain", func(simNow time.Time) {
		if deps.Bus == nil || deps.Dispatcher == nil {
			return
		}
		events := deps.Bus.Drain(deps.MaxPerTick)
		start := wallClock()
		for i, ev := range events {
			if deps.Budget > 0 && wallClock().Sub(start) > deps.Budget {
				for _, leftover := range events[i:] {
					deps.Bus.Publish(leftover)
				}
				return
			}
			deps.Dispatcher.Dispatch(simNow, ev)
		}
	})
}
