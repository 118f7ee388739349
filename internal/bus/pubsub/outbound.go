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

func outboundTypeTag(k busv.OutboundKind) string {
	switch k {
	case busv.OutboundSendText:
		return "SendText"
	case busv.OutboundSendInfo:
		return "SendInfo"
	case busv.OutboundSendError:
		return "SendError"
	case busv.OutboundSendPrompt:
		return "SendPrompt"
	case busv.OutboundShowLoginScreen:
		return "ShowLoginScreen"
	case busv.OutboundSetAnsi:
		return "SetAnsi"
	case busv.OutboundClearScreen:
		return "ClearScreen"
	case busv.OutboundShowAnsiDemo:
		return "ShowAnsiDemo"
	case busv.OutboundClose:
		return "Close"
	case busv.OutboundSessionRedirect:
		return "SessionRedirect"
	case busv.OutboundGmcpData:
		return "GmcpData"
	default:
		return "Unknown"
	}
}

// OutboundBus mirrors InboundBus but drains through a prompt-coalescing
// local.OutboundBus so consumers observe identical coalescing semantics
// regardless of which EventBus variant is wired in.
type OutboundBus struct {
	conn        *Conn
	subject     string
	local       *local.OutboundBus
	sub         *nats.Subscription
	droppedMACs atomic.Int64
}

func NewOutboundBus(conn *Conn, subject string, capacityPerSession int) (*OutboundBus, error) {
	b := &OutboundBus{conn: conn, subject: subject, local: local.NewOutboundBus(capacityPerSession)}
	sub, err := conn.nc.Subscribe(subject, b.onMessage)
	if err != nil {
		return nil, err
	}
	b.sub = sub
	return b, nil
}

func (b *OutboundBus) onMessage(msg *nats.Msg) {
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
		b.conn.log.Warn("pubsub: dropped outbound envelope", zap.Error(err), zap.String("type", env.TypeTag))
		return
	}
	var ev busv.OutboundEvent
	if err := msgpack.Unmarshal(env.Payload, &ev); err != nil {
		b.droppedMACs.Add(1)
		return
	}
	b.local.Publish(ev)
}

func (b *OutboundBus) Publish(ev busv.OutboundEvent) bool {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return false
	}
	env := b.conn.signer.Seal(outboundTypeTag(ev.Kind), b.conn.nodeId, payload, time.Now())
	data, err := msgpack.Marshal(env)
	if err != nil {
		return false
	}
	return b.conn.nc.Publish(b.subject, data) == nil
}

func (b *OutboundBus) Drain(max int) []busv.OutboundEvent { return b.local.Drain(max) }

func (b *OutboundBus) DroppedEnvelopes() int64 { return b.droppedMACs.Load() }

func (b *OutboundBus) Close() error {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	return b.local.Close()
}
