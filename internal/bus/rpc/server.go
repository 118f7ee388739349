package rpc

import (
	"io"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	busv "github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/bus/local"
)

// Server is the engine-side endpoint of the streaming-RPC bus: it accepts
// gateway connections and bridges each stream to a local, bounded queue so
// the tick engine drains it exactly like the local EventBus variant.
type Server struct {
	Inbound     *local.InboundBus
	Outbound    *local.OutboundBus
	InterEngine *local.InterEngineBus

	grpcServer *grpc.Server
	log        *zap.Logger
}

func NewServer(inboundCap, outboundCapPerSession, interEngineCap int, log *zap.Logger) *Server {
	s := &Server{
		Inbound:     local.NewInboundBus(inboundCap),
		Outbound:    local.NewOutboundBus(outboundCapPerSession),
		InterEngine: local.NewInterEngineBus(interEngineCap),
		log:         log,
	}
	s.grpcServer = grpc.NewServer()
	s.grpcServer.RegisterService(&serviceDesc, s)
	return s
}

// GRPCServer returns the underlying *grpc.Server so the caller can Serve()
// it on a net.Listener from the composition root.
func (s *Server) GRPCServer() *grpc.Server { return s.grpcServer }

// HandleInboundStream receives gateway->engine InboundEvents and acks the
// highest sequence number enqueued so far.
func (s *Server) HandleInboundStream(stream grpc.ServerStream) error {
	for {
		var msg WireMessage
		if err := stream.RecvMsg(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if msg.Inbound != nil {
			if !s.Inbound.Publish(*msg.Inbound) {
				s.log.Warn("rpc: inbound queue full, dropping", zap.Uint64("seq", msg.Seq))
			}
		}
		if err := stream.SendMsg(&Ack{Watermark: msg.Seq}); err != nil {
			return err
		}
	}
}

// HandleOutboundStream drains the local outbound bus and streams events to
// the connected gateway, assigning increasing sequence numbers.
func (s *Server) HandleOutboundStream(stream grpc.ServerStream) error {
	var seq uint64
	ackCh := make(chan Ack, 16)
	errCh := make(chan error, 1)
	go func() {
		for {
			var ack Ack
			if err := stream.RecvMsg(&ack); err != nil {
				errCh <- err
				return
			}
			ackCh <- ack
		}
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return err
		case <-ackCh:
			// Acks are read and discarded; nothing is replayed after a
			// reconnect (see client.go).
		case <-ticker.C:
			events := s.Outbound.Drain(64)
			for i := range events {
				seq++
				ev := events[i]
				if err := stream.SendMsg(&WireMessage{Seq: seq, Outbound: &ev}); err != nil {
					return err
				}
			}
		}
	}
}

// HandleInterEngineStream bridges inter-engine routing/handoff traffic.
func (s *Server) HandleInterEngineStream(stream grpc.ServerStream) error {
	for {
		var msg WireMessage
		if err := stream.RecvMsg(&msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if msg.InterEngine != nil {
			if !s.InterEngine.Publish(*msg.InterEngine) {
				s.log.Warn("rpc: inter-engine queue full, dropping", zap.Uint64("seq", msg.Seq))
			}
		}
		if err := stream.SendMsg(&Ack{Watermark: msg.Seq}); err != nil {
			return err
		}
	}
}
