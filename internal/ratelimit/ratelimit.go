// Package ratelimit gates per-session inbound command throughput ahead
// of the command dispatcher with github.com/ulule/limiter (a per-second
// request counter) rather than a hand-rolled counter; of the teacher's
// config.RateLimitConfig only packets-per-second is applied.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/ids"
)

// Dispatcher is the narrow surface ratelimit.Gate wraps.
type Dispatcher interface {
	Dispatch(now time.Time, ev bus.InboundEvent)
}

// Gate drops (rather than queues or delays) any InboundLineReceived event
// past a session's per-second budget, forwarding everything else
// (connects/disconnects, and events while under budget) to the wrapped
// Dispatcher unchanged.
type Gate struct {
	next    Dispatcher
	limiter *limiter.Limiter
	onDrop  func(sid ids.SessionId)
}

// New builds a Gate allowing perSecond lines per one-second window; burst
// is accepted but not used. perSecond <= 0 disables limiting entirely (Dispatch
// becomes a passthrough), matching RateLimitConfig.Enabled=false.
func New(next Dispatcher, perSecond, burst int, onDrop func(sid ids.SessionId)) *Gate {
	if perSecond <= 0 {
		return &Gate{next: next}
	}
	rate := limiter.Rate{Period: time.Second, Limit: int64(perSecond)}
	store := memory.NewStore()
	return &Gate{
		next:    next,
		limiter: limiter.New(store, rate, limiter.WithTrustForwardHeader(false)),
		onDrop:  onDrop,
	}
}

func (g *Gate) Dispatch(now time.Time, ev bus.InboundEvent) {
	if g.limiter == nil || ev.Kind != bus.InboundLineReceived {
		g.next.Dispatch(now, ev)
		return
	}

	key := fmt.Sprintf("session:%d", uint64(ev.Session))
	res, err := g.limiter.Get(context.Background(), key)
	if err == nil && res.Reached {
		if g.onDrop != nil {
			g.onDrop(ev.Session)
		}
		return
	}
	g.next.Dispatch(now, ev)
}
