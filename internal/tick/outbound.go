package tick

import (
	"time"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/ids"
)

// OutboundTransmitter hands one session's batch of queued outbound
// events to whichever transport adapter currently owns that session's
// connection (line protocol, WebSocket, or a gateway-bound inter-engine
// hop); the Tick Engine never talks to a socket directly.
type OutboundTransmitter interface {
	Transmit(sid ids.SessionId, events []bus.OutboundEvent)
}

// OutboundFlushDeps configures the Outbound Flush phase.
type OutboundFlushDeps struct {
	Bus         bus.OutboundBus
	MaxPerTick  int
	Transmitter OutboundTransmitter
}

// RegisterOutboundFlush registers the Outbound Flush phase: drain the
// bounded, prompt-coalescing OutboundBus and hand each session's batch to
// the Transmitter in the order those sessions first produced output this
// tick, preserving per-session emission order.
func RegisterOutboundFlush(e *Engine, deps OutboundFlushDeps) {
	e.RegisterFunc(PhaseOutboundFlush, "outbound-flush", func(time.Time) {
		if deps.Bus == nil || deps.Transmitter == nil {
			return
		}
		events := deps.Bus.Drain(deps.MaxPerTick)
		if len(events) == 0 {
			return
		}

		bySession := make(map[ids.SessionId][]bus.OutboundEvent, len(events))
		order := make([]ids.SessionId, 0, len(events))
		for _, ev := range events {
			if _, seen := bySession[ev.Session]; !seen {
				order = append(order, ev.Session)
			}
			bySession[ev.Session] = append(bySession[ev.Session], ev)
		}

		for _, sid := range order {
			deps.Transmitter.Transmit(sid, bySession[sid])
		}
	})
}
