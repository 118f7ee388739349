package pubsub

import (
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	busv "github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/bus/envelope"
	"github.com/ambonmud/server/internal/bus/local"
)

func inboundTypeTag(k busv.InboundKind) string {
	switch k {
	case busv.InboundConnected:
		return "Connected"
	case busv.InboundDisconnected:
		return "Disconnected"
	case busv.InboundLineReceived:
		return "LineReceived"
	case busv.InboundGmcpReceived:
		return "GmcpReceived"
	default:
		return "Unknown"
	}
}

// InboundBus publishes to and subscribes from a NATS subject, presenting
// the same bounded local-queue interface as the local variant so the tick
// engine's drain code never needs to know which variant is wired in.
type InboundBus struct {
	conn        *Conn
	subject     string
	local       *local.InboundBus
	sub         *nats.Subscription
	droppedMACs atomic.Int64
}

func NewInboundBus(conn *Conn, subject string, capacity int) (*InboundBus, error) {
	b := &InboundBus{conn: conn, subject: subject, local: local.NewInboundBus(capacity)}
	sub, err := conn.nc.Subscribe(subject, b.onMessage)
	if err != nil {
		return nil, err
	}
	b.sub = sub
	return b, nil
}

func (b *InboundBus) onMessage(msg *nats.Msg) {
	var env envelope.Envelope
	if err := msgpack.Unmarshal(msg.Data, &env); err != nil {
		b.droppedMACs.Add(1)
		return
	}
	if env.SourceId == b.conn.nodeId {
		return // never redeliver our own publications
	}
	if err := b.conn.signer.Verify(env, time.Now(), b.conn.maxSkew); err != nil {
		b.droppedMACs.Add(1)
		b.conn.log.Warn("pubsub: dropped inbound envelope", zap.Error(err), zap.String("type", env.TypeTag))
		return
	}
	var ev busv.InboundEvent
	if err := msgpack.Unmarshal(env.Payload, &ev); err != nil {
		b.droppedMACs.Add(1)
		return
	}
	b.local.Publish(ev)
}

func (b *InboundBus) Publish(ev busv.InboundEvent) bool {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return false
	}
	env := b.conn.signer.Seal(inboundTypeTag(ev.Kind), b.conn.nodeId, payload, time.Now())
	data, err := msgpack.Marshal(env)
	if err != nil {
		return false
	}
	return b.conn.nc.Publish(b.subject, data) == nil
}

func (b *InboundBus) Drain(max int) []busv.InboundEvent { return b.local.Drain(max) }

// DroppedEnvelopes reports the count of envelopes dropped for an
// undecodable frame or payload, bad MAC, unknown version, or stale
// timestamp since startup.
func (b *InboundBus) DroppedEnvelopes() int64 { return b.droppedMACs.Load() }

func (b *InboundBus) Close() error {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	return b.local.Close()
}
