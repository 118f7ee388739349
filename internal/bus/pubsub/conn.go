// Package pubsub implements the pub/sub EventBus variant over NATS: each
// event is serialized to a versioned signed envelope and published to a
// topic; receivers drop invalid envelopes and never redeliver a node's own
// messages to itself.
package pubsub

import (
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/ambonmud/server/internal/bus/envelope"
)

// Config configures a pub/sub bus connection shared by all three bus kinds.
type Config struct {
	URL          string
	NodeId       string // our own source id, used to drop self-originated redelivery
	SharedSecret []byte
	MaxSkew      time.Duration
	QueueCapacity int
}

// Conn wraps a NATS connection plus the envelope signer all three bus
// variants share.
type Conn struct {
	nc     *nats.Conn
	signer *envelope.Signer
	nodeId string
	maxSkew time.Duration
	log    *zap.Logger
}

func Connect(cfg Config, log *zap.Logger) (*Conn, error) {
	nc, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, err
	}
	signer, err := envelope.NewSigner(cfg.SharedSecret, envelope.CurrentVersion)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &Conn{nc: nc, signer: signer, nodeId: cfg.NodeId, maxSkew: cfg.MaxSkew, log: log}, nil
}

func (c *Conn) Close() error {
	c.nc.Close()
	return nil
}
