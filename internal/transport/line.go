package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/ids"
)

// Telnet IAC command bytes the line decoder strips out of the stream
// rather than forwarding as text. Option negotiation is not answered: the
// bytes are consumed and dropped, and no WONT/DONT reply is sent — this is
// a plain MUD line protocol, not a full telnet terminal.
const (
	iacByte = 255
	will    = 251
	wont    = 252
	doOpt   = 253
	dont    = 254
	sb      = 250
	se      = 240
)

// LineSession is one accepted TCP connection speaking the line protocol.
type LineSession struct {
	id           ids.SessionId
	conn         net.Conn
	log          *zap.Logger
	outQueue     chan []byte
	closeCh      chan struct{}
	closeOnce    sync.Once
	closed       atomic.Bool
	ip           string
	writeTimeout time.Duration
	caps         Capabilities
}

func (s *LineSession) IsClosed() bool { return s.closed.Load() }

func (s *LineSession) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

// enqueue pushes an already-framed line onto the session's bounded output
// queue, matching the teacher's Send: non-blocking, drop-the-slow-session
// on backpressure rather than stall the writer loop.
func (s *LineSession) enqueue(frame []byte) {
	if s.closed.Load() {
		return
	}
	select {
	case s.outQueue <- frame:
	default:
		s.log.Warn("output queue full, disconnecting slow session", zap.Uint64("session", uint64(s.id)))
		s.Close()
	}
}

// LineServer accepts TCP connections and runs the line protocol: decode
// bytes into lines (stripping telnet IAC sequences), publish
// bus.InboundEvent{Kind: InboundLineReceived} per line, and drain queued
// OutboundEvents handed to it by the tick engine's outbound-flush phase
// via Transmit.
type LineServer struct {
	listener net.Listener
	in       bus.InboundBus
	alloc    *ids.Allocator
	limits   LineLimits
	log      *zap.Logger

	writeTimeout time.Duration
	readTimeout  time.Duration
	outQueueSize int

	mu       sync.Mutex
	sessions map[ids.SessionId]*LineSession
}

func NewLineServer(bindAddr string, in bus.InboundBus, alloc *ids.Allocator, limits LineLimits, outQueueSize int, writeTimeout, readTimeout time.Duration, log *zap.Logger) (*LineServer, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}
	return &LineServer{
		listener:     ln,
		in:           in,
		alloc:        alloc,
		limits:       limits,
		log:          log,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		outQueueSize: outQueueSize,
		sessions:     make(map[ids.SessionId]*LineSession),
	}, nil
}

func (s *LineServer) Addr() net.Addr { return s.listener.Addr() }

// AcceptLoop runs until ctx is canceled or the listener errors, spawning a
// reader/writer goroutine pair per accepted connection.
func (s *LineServer) AcceptLoop(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		s.handleConn(conn)
	}
}

func (s *LineServer) handleConn(conn net.Conn) {
	id, err := s.alloc.Next()
	if err != nil {
		s.log.Error("session id allocation failed", zap.Error(err))
		conn.Close()
		return
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	sess := &LineSession{
		id:           id,
		conn:         conn,
		log:          s.log,
		outQueue:     make(chan []byte, s.outQueueSize),
		closeCh:      make(chan struct{}),
		ip:           host,
		writeTimeout: s.writeTimeout,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Info("connection accepted", zap.Uint64("session", uint64(id)), zap.String("ip", sess.ip))
	s.in.Publish(bus.InboundEvent{Kind: bus.InboundConnected, Session: id})

	go s.readLoop(sess)
	go s.writeLoop(sess)
}

// readLoop decodes the byte stream into lines and publishes one
// InboundLineReceived event per line. On protocol violation (line too
// long, too many non-printable bytes) it emits a single error line and
// closes; on queue backpressure it reports Disconnected through the bus
// per §4.14 rather than silently dropping the session.
func (s *LineServer) readLoop(sess *LineSession) {
	defer s.closeSession(sess, "read-error")

	r := bufio.NewReaderSize(sess.conn, 512)
	var line []byte
	nonPrintable := 0
	maxLen := s.limits.maxLineLength()

	for {
		if s.readTimeout > 0 {
			sess.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		b, err := r.ReadByte()
		if err != nil {
			return
		}

		switch {
		case b == iacByte:
			if err := s.skipTelnetCommand(r); err != nil {
				return
			}
			continue
		case b == '\r':
			continue
		case b == '\n':
			if s.in.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Session: sess.id, Line: string(line)}) {
				line = line[:0]
				nonPrintable = 0
				continue
			}
			s.log.Warn("inbound bus full, disconnecting session", zap.Uint64("session", uint64(sess.id)))
			s.in.Publish(bus.InboundEvent{Kind: bus.InboundDisconnected, Session: sess.id, Reason: "inbound-backpressure"})
			return
		default:
			if b < 0x20 || b >= 0x7f {
				nonPrintable++
			}
			line = append(line, b)
			if len(line) > maxLen || (len(line) > 0 && nonPrintable*100/len(line) > s.nonPrintablePct()) {
				sess.enqueue([]byte("protocol error: malformed line\r\n"))
				return
			}
		}
	}
}

func (s *LineServer) nonPrintablePct() int {
	if s.limits.MaxNonPrintablePct <= 0 {
		return 10
	}
	return s.limits.MaxNonPrintablePct
}

// skipTelnetCommand consumes one IAC-prefixed command, including its option
// byte or subnegotiation block, without sending any reply.
func (s *LineServer) skipTelnetCommand(r *bufio.Reader) error {
	cmd, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case will, wont, doOpt, dont:
		if _, err := r.ReadByte(); err != nil { // the option byte
			return err
		}
	case sb:
		for {
			b, err := r.ReadByte()
			if err != nil {
				return err
			}
			if b == iacByte {
				if b2, err := r.ReadByte(); err != nil {
					return err
				} else if b2 == se {
					return nil
				}
			}
		}
	default:
		// single-byte command (NOP, AYT, ...): nothing further to consume
	}
	return nil
}

func (s *LineServer) closeSession(sess *LineSession, reason string) {
	if sess.IsClosed() {
		return
	}
	sess.Close()
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	s.in.Publish(bus.InboundEvent{Kind: bus.InboundDisconnected, Session: sess.id, Reason: reason})
}

func (s *LineServer) writeLoop(sess *LineSession) {
	for {
		select {
		case frame := <-sess.outQueue:
			if sess.writeTimeout > 0 {
				sess.conn.SetWriteDeadline(time.Now().Add(sess.writeTimeout))
			}
			if _, err := sess.conn.Write(frame); err != nil {
				s.closeSession(sess, "write-error")
				return
			}
		case <-sess.closeCh:
			return
		}
	}
}

// Transmit implements internal/tick.OutboundTransmitter: it renders a
// session's batch of events into framed line-protocol bytes and enqueues
// them for the writer goroutine. Structured-data (GMCP) frames are
// batched onto the same flush cadence as text, per §4.14, rather than
// triggering a separate write per message.
func (s *LineServer) Transmit(sid ids.SessionId, events []bus.OutboundEvent) {
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	s.mu.Unlock()
	if !ok {
		return
	}

	var buf []byte
	for _, ev := range events {
		buf = append(buf, renderLineEvent(ev)...)
		if ev.Kind == bus.OutboundClose {
			sess.enqueue(buf)
			s.closeSession(sess, ev.Reason)
			return
		}
	}
	if len(buf) > 0 {
		sess.enqueue(buf)
	}
}

func renderLineEvent(ev bus.OutboundEvent) []byte {
	switch ev.Kind {
	case bus.OutboundSendText:
		return []byte(ev.Text + "\r\n")
	case bus.OutboundSendInfo:
		return []byte("[info] " + ev.Text + "\r\n")
	case bus.OutboundSendError:
		return []byte("[error] " + ev.Text + "\r\n")
	case bus.OutboundSendPrompt:
		return []byte("\r\n> ")
	case bus.OutboundClearScreen:
		return []byte("\x1b[2J\x1b[H")
	case bus.OutboundGmcpData:
		return []byte(fmt.Sprintf("GMCP %s %s\r\n", ev.GmcpPackage, string(ev.GmcpJSON)))
	case bus.OutboundShowLoginScreen:
		return []byte(ev.Text + "\r\n")
	default:
		return nil
	}
}

// Close stops accepting connections and closes every live session.
func (s *LineServer) Close() error {
	err := s.listener.Close()
	s.mu.Lock()
	sessions := make([]*LineSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
	return err
}
