package bus

import "github.com/ambonmud/server/internal/ids"

// InboundBus carries client-originated events from transport adapters to
// the tick engine's inbound-drain phase. Implementations: local (bounded
// in-memory queue), pub/sub (versioned signed envelope over a topic),
// streaming RPC (bidirectional gateway<->engine stream).
type InboundBus interface {
	// Publish enqueues an event. ok is false if the bus is at capacity;
	// the caller (a transport adapter) decides whether that is fatal for
	// the originating session.
	Publish(ev InboundEvent) (ok bool)
	// Drain removes and returns up to max queued events without blocking.
	Drain(max int) []InboundEvent
	Close() error
}

// OutboundBus carries engine-originated events out to transport adapters,
// per-session, with bounded per-session queues and prompt coalescing.
type OutboundBus interface {
	Publish(ev OutboundEvent) (ok bool)
	Drain(max int) []OutboundEvent
	Close() error
}

// InterEngineBus carries routing, handoff, and scaling traffic between
// engines and gateways in sharded deployments.
type InterEngineBus interface {
	Publish(ev InterEngineEvent) (ok bool)
	Drain(max int) []InterEngineEvent
	Close() error
}

// SessionId is re-exported for convenience of bus consumers that only need
// the type, not the allocator.
type SessionId = ids.SessionId
