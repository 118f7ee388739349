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

func interEngineTypeTag(k busv.InterEngineKind) string {
	switch k {
	case busv.InterEngineRoutedInbound:
		return "RoutedInbound"
	case busv.InterEngineRoutedOutbound:
		return "RoutedOutbound"
	case busv.InterEngineHandoffPrepare:
		return "HandoffPrepare"
	case busv.InterEngineHandoffCommit:
		return "HandoffCommit"
	case busv.InterEngineHandoffAck:
		return "HandoffAck"
	case busv.InterEngineHandoffReject:
		return "HandoffReject"
	case busv.InterEngineCrossEngineTell:
		return "CrossEngineTell"
	case busv.InterEngineScaleDecision:
		return "ScaleDecision"
	default:
		return "Unknown"
	}
}

// InterEngineBus carries routing, handoff, and scaling traffic over NATS.
type InterEngineBus struct {
	conn        *Conn
	subject     string
	local       *local.InterEngineBus
	sub         *nats.Subscription
	droppedMACs atomic.Int64
}

func NewInterEngineBus(conn *Conn, subject string, capacity int) (*InterEngineBus, error) {
	b := &InterEngineBus{conn: conn, subject: subject, local: local.NewInterEngineBus(capacity)}
	sub, err := conn.nc.Subscribe(subject, b.onMessage)
	if err != nil {
		return nil, err
	}
	b.sub = sub
	return b, nil
}

func (b *InterEngineBus) onMessage(msg *nats.Msg) {
	var env envelope.Envelope
	if err := msgpack.Unmarshal(msg.Data, &env); err != nil {
		b.droppedMACs.Add(1)
		return
	}
	if env.SourceId == b.conn.nodeId {
		return
	}
	if err := b.conn.signer.Verify(env, time.Now(), b.conn.maxSkew); err != nil {
		b.droppedMACs.Add(1)
		b.conn.log.Warn("pubsub: dropped inter-engine envelope", zap.Error(err), zap.String("type", env.TypeTag))
		return
	}
	var ev busv.InterEngineEvent
	if err := msgpack.Unmarshal(env.Payload, &ev); err != nil {
		b.droppedMACs.Add(1)
		return
	}
	b.local.Publish(ev)
}

func (b *InterEngineBus) Publish(ev busv.InterEngineEvent) bool {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return false
	}
	env := b.conn.signer.Seal(interEngineTypeTag(ev.Kind), b.conn.nodeId, payload, time.Now())
	data, err := msgpack.Marshal(env)
	if err != nil {
		return false
	}
	return b.conn.nc.Publish(b.subject, data) == nil
}

func (b *InterEngineBus) Drain(max int) []busv.InterEngineEvent { return b.local.Drain(max) }

func (b *InterEngineBus) DroppedEnvelopes() int64 { return b.droppedMACs.Load() }

func (b *InterEngineBus) Close() error {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	return b.local.Close()
}
