// Package local implements the in-memory EventBus variant: bounded queues,
// producer enqueue returns success/failure, no serialization. This is the
// variant used in STANDALONE mode and as the transport-facing front end of
// the pub/sub and streaming-RPC variants (they still hand events to the
// tick engine through a local queue; only the wire hop differs).
package local

import "github.com/ambonmud/server/internal/bus"

// InboundBus is a bounded channel of InboundEvents. Publish never blocks:
// a full queue means the caller (a transport reader) observes backpressure
// and is expected to react per the transport's own policy.
type InboundBus struct {
	ch     chan bus.InboundEvent
	closed chan struct{}
}

func NewInboundBus(capacity int) *InboundBus {
	return &InboundBus{
		ch:     make(chan bus.InboundEvent, capacity),
		closed: make(chan struct{}),
	}
}

func (b *InboundBus) Publish(ev bus.InboundEvent) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		return false
	}
}

// Drain pulls up to max queued events without blocking. Called once per
// tick by the inbound-drain phase under its time budget.
func (b *InboundBus) Drain(max int) []bus.InboundEvent {
	out := make([]bus.InboundEvent, 0, max)
	for len(out) < max {
		select {
		case ev := <-b.ch:
			out = append(out, ev)
		default:
			return out
		}
	}
	return out
}

func (b *InboundBus) Close() error {
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}
	return nil
}
