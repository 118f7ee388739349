package rpc

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/ambonmud/server/internal/bus/local"
)

const (
	backoffBase = 250 * time.Millisecond
	backoffCap  = 30 * time.Second
	jitterFrac  = 0.20
)

func nextBackoff(attempt int) time.Duration {
	d := backoffBase << attempt
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	jitter := (rand.Float64()*2 - 1) * jitterFrac
	return time.Duration(float64(d) * (1 + jitter))
}

// Client is the gateway-side endpoint: it dials the engine, opens the three
// streams, and bridges them to local bounded queues. On disconnect it
// reconnects with exponential backoff (base 250ms, cap 30s, jitter +-20%).
// The local buses and any events still queued in them survive a reconnect,
// and the sequence counter keeps counting from where it was; frames that
// were in flight are not replayed, and no session-loss or Disconnected
// event is raised.
type Client struct {
	target string
	nodeId string
	log    *zap.Logger

	Inbound     *local.InboundBus
	Outbound    *local.OutboundBus
	InterEngine *local.InterEngineBus

	mu        sync.Mutex
	conn      *grpc.ClientConn
	connected atomic.Bool
	lastSeq   atomic.Uint64
	stopCh    chan struct{}

	breaker *gobreaker.CircuitBreaker
}

func NewClient(target, nodeId string, inboundCap, outboundCapPerSession, interEngineCap int, log *zap.Logger) *Client {
	c := &Client{
		target:      target,
		nodeId:      nodeId,
		log:         log,
		Inbound:     local.NewInboundBus(inboundCap),
		Outbound:    local.NewOutboundBus(outboundCapPerSession),
		InterEngine: local.NewInterEngineBus(interEngineCap),
		stopCh:      make(chan struct{}),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rpc-client-send",
		MaxRequests: 1,
		Timeout:     backoffBase,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 3 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Warn("rpc client: send circuit opened, shedding sends until transport recovers",
					zap.String("target", target))
			}
		},
	})
	return c
}

// Run dials and maintains the streams until Close is called, reconnecting
// with backoff on any failure.
func (c *Client) Run(ctx context.Context) {
	attempt := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := c.runOnce(ctx); err != nil {
			c.connected.Store(false)
			c.log.Warn("rpc client: stream error, reconnecting", zap.Error(err), zap.Int("attempt", attempt))
		}

		d := nextBackoff(attempt)
		attempt++
		select {
		case <-time.After(d):
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	conn, err := grpc.NewClient(c.target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer conn.Close()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	inStream, err := conn.NewStream(streamCtx, &serviceDesc.Streams[0], fullMethod("InboundStream"), grpc.CallContentSubtype(codecName))
	if err != nil {
		return err
	}
	outStream, err := conn.NewStream(streamCtx, &serviceDesc.Streams[1], fullMethod("OutboundStream"), grpc.CallContentSubtype(codecName))
	if err != nil {
		return err
	}
	ieStream, err := conn.NewStream(streamCtx, &serviceDesc.Streams[2], fullMethod("InterEngineStream"), grpc.CallContentSubtype(codecName))
	if err != nil {
		return err
	}

	c.connected.Store(true)

	errCh := make(chan error, 3)
	go c.pumpSend(inStream, errCh)
	go c.pumpRecvOutbound(outStream, errCh)
	go c.pumpInterEngine(ieStream, errCh)

	select {
	case err := <-errCh:
		return err
	case <-c.stopCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pumpSend drains the gateway's own inbound queue is inverted: the gateway
// publishes into Inbound locally (from its transport readers) and this
// goroutine forwards those onto the stream toward the engine.
func (c *Client) pumpSend(stream grpc.ClientStream, errCh chan<- error) {
	for {
		events := c.Inbound.Drain(32)
		if len(events) == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		for i := range events {
			seq := c.lastSeq.Add(1)
			ev := events[i]
			_, err := c.breaker.Execute(func() (interface{}, error) {
				if err := stream.SendMsg(&WireMessage{Seq: seq, Inbound: &ev}); err != nil {
					return nil, err
				}
				var ack Ack
				return nil, stream.RecvMsg(&ack)
			})
			if err != nil {
				errCh <- err
				return
			}
		}
	}
}

func (c *Client) pumpRecvOutbound(stream grpc.ClientStream, errCh chan<- error) {
	for {
		var msg WireMessage
		if err := stream.RecvMsg(&msg); err != nil {
			if err == io.EOF {
				return
			}
			errCh <- err
			return
		}
		if msg.Outbound != nil {
			c.Outbound.Publish(*msg.Outbound)
		}
	}
}

func (c *Client) pumpInterEngine(stream grpc.ClientStream, errCh chan<- error) {
	for {
		events := c.InterEngine.Drain(32)
		if len(events) == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		for i := range events {
			seq := c.lastSeq.Add(1)
			ev := events[i]
			_, err := c.breaker.Execute(func() (interface{}, error) {
				if err := stream.SendMsg(&WireMessage{Seq: seq, InterEngine: &ev}); err != nil {
					return nil, err
				}
				var ack Ack
				return nil, stream.RecvMsg(&ack)
			})
			if err != nil {
				errCh <- err
				return
			}
		}
	}
}

// Connected reports whether the client currently has a live stream pair.
func (c *Client) Connected() bool { return c.connected.Load() }

func (c *Client) Close() error {
	close(c.stopCh)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
