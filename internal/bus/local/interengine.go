package local

import "github.com/ambonmud/server/internal/bus"

// InterEngineBus is the single-process stand-in for the pub/sub and RPC
// variants: used in STANDALONE mode where there is exactly one engine and
// routing/handoff events are never actually sent anywhere, and in tests
// that exercise multi-engine logic without a network.
type InterEngineBus struct {
	ch chan bus.InterEngineEvent
}

func NewInterEngineBus(capacity int) *InterEngineBus {
	return &InterEngineBus{ch: make(chan bus.InterEngineEvent, capacity)}
}

func (b *InterEngineBus) Publish(ev bus.InterEngineEvent) bool {
	select {
	case b.ch <- ev:
		return true
	default:
		return false
	}
}

func (b *InterEngineBus) Drain(max int) []bus.InterEngineEvent {
	out := make([]bus.InterEngineEvent, 0, max)
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

func (b *InterEngineBus) Close() error { return nil }
