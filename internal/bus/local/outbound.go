package local

import (
	"sync"

	"github.com/ambonmud/server/internal/bus"
)

// OutboundBus is a bounded per-session queue with prompt coalescing:
// consecutive SendPrompt events for the same session collapse into the
// single queued-but-undelivered prompt, satisfying the "at most one
// prompt between two non-prompt outputs" testable property.
type OutboundBus struct {
	mu              sync.Mutex
	capacityPerSess int
	queue           []bus.OutboundEvent
	counts          map[bus.SessionId]int
	pendingPrompt   map[bus.SessionId]bool // true while the session's last queued event is an undelivered prompt
}

func NewOutboundBus(capacityPerSession int) *OutboundBus {
	return &OutboundBus{
		capacityPerSess: capacityPerSession,
		counts:          make(map[bus.SessionId]int),
		pendingPrompt:   make(map[bus.SessionId]bool),
	}
}

func (b *OutboundBus) Publish(ev bus.OutboundEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.Kind == bus.OutboundSendPrompt && b.pendingPrompt[ev.Session] {
		// An uncollapsed prompt is already queued for this session; the
		// new one coalesces into it.
		return true
	}

	if b.counts[ev.Session] >= b.capacityPerSess {
		return false
	}

	b.queue = append(b.queue, ev)
	b.counts[ev.Session]++
	if ev.Kind == bus.OutboundSendPrompt {
		b.pendingPrompt[ev.Session] = true
	} else {
		delete(b.pendingPrompt, ev.Session)
	}
	return true
}

// Drain pops up to max events in emission order, clearing prompt-coalescing
// bookkeeping for any session whose queue it empties.
func (b *OutboundBus) Drain(max int) []bus.OutboundEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := max
	if n > len(b.queue) {
		n = len(b.queue)
	}
	out := make([]bus.OutboundEvent, n)
	copy(out, b.queue[:n])
	b.queue = b.queue[n:]

	for _, ev := range out {
		b.counts[ev.Session]--
		if b.counts[ev.Session] <= 0 {
			delete(b.counts, ev.Session)
			delete(b.pendingPrompt, ev.Session)
		}
	}
	return out
}

func (b *OutboundBus) Close() error { return nil }
