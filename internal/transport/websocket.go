package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/ids"
)

// wsFrame is the structured-data-capable framing used over the WebSocket
// transport: a "text" frame carries plain text the same as the line
// protocol, "prompt" and "clear" frames mark a prompt and a screen clear,
// and a "gmcp" frame carries a structured-data package alongside them, matching
// §4.14's requirement that structured frames ride the same flush cadence
// as text rather than a separate channel.
type wsFrame struct {
	Kind    string          `json:"kind"`
	Text    string          `json:"text,omitempty"`
	Package string          `json:"package,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSSession is one upgraded WebSocket connection.
type WSSession struct {
	id           ids.SessionId
	conn         *websocket.Conn
	log          *zap.Logger
	outQueue     chan wsFrame
	closeCh      chan struct{}
	closeOnce    sync.Once
	closed       atomic.Bool
	ip           string
	writeTimeout time.Duration
}

func (s *WSSession) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *WSSession) enqueue(f wsFrame) {
	if s.closed.Load() {
		return
	}
	select {
	case s.outQueue <- f:
	default:
		s.log.Warn("websocket output queue full, disconnecting slow session", zap.Uint64("session", uint64(s.id)))
		s.Close()
	}
}

// WSServer serves the line protocol over WebSocket text frames, for
// browser-based clients that cannot open a raw TCP socket. It publishes
// and drains the same bus.InboundEvent/OutboundEvent shapes as LineServer
// so the tick engine treats both adapters identically.
type WSServer struct {
	in           bus.InboundBus
	alloc        *ids.Allocator
	limits       LineLimits
	log          *zap.Logger
	writeTimeout time.Duration
	readTimeout  time.Duration
	outQueueSize int

	mu       sync.Mutex
	sessions map[ids.SessionId]*WSSession
}

func NewWSServer(in bus.InboundBus, alloc *ids.Allocator, limits LineLimits, outQueueSize int, writeTimeout, readTimeout time.Duration, log *zap.Logger) *WSServer {
	return &WSServer{
		in:           in,
		alloc:        alloc,
		limits:       limits,
		log:          log,
		writeTimeout: writeTimeout,
		readTimeout:  readTimeout,
		outQueueSize: outQueueSize,
		sessions:     make(map[ids.SessionId]*WSSession),
	}
}

// Handler returns the http.HandlerFunc to mount on the WS bind address.
func (s *WSServer) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		s.handleConn(conn, r.RemoteAddr)
	}
}

func (s *WSServer) handleConn(conn *websocket.Conn, remoteAddr string) {
	id, err := s.alloc.Next()
	if err != nil {
		s.log.Error("session id allocation failed", zap.Error(err))
		conn.Close()
		return
	}

	sess := &WSSession{
		id:           id,
		conn:         conn,
		log:          s.log,
		outQueue:     make(chan wsFrame, s.outQueueSize),
		closeCh:      make(chan struct{}),
		ip:           remoteAddr,
		writeTimeout: s.writeTimeout,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.log.Info("websocket connection accepted", zap.Uint64("session", uint64(id)), zap.String("ip", remoteAddr))
	s.in.Publish(bus.InboundEvent{Kind: bus.InboundConnected, Session: id})

	go s.writeLoop(sess)
	s.readLoop(sess)
}

func (s *WSServer) readLoop(sess *WSSession) {
	defer s.closeSession(sess, "read-error")

	maxLen := s.limits.maxLineLength()
	sess.conn.SetReadLimit(int64(maxLen))

	for {
		if s.readTimeout > 0 {
			sess.conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		line := string(data)
		if len(line) > maxLen {
			sess.enqueue(wsFrame{Kind: "text", Text: "protocol error: malformed line"})
			return
		}
		if !s.in.Publish(bus.InboundEvent{Kind: bus.InboundLineReceived, Session: sess.id, Line: line}) {
			s.log.Warn("inbound bus full, disconnecting session", zap.Uint64("session", uint64(sess.id)))
			s.in.Publish(bus.InboundEvent{Kind: bus.InboundDisconnected, Session: sess.id, Reason: "inbound-backpressure"})
			return
		}
	}
}

func (s *WSServer) closeSession(sess *WSSession, reason string) {
	if sess.closed.Load() {
		return
	}
	sess.Close()
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
	s.in.Publish(bus.InboundEvent{Kind: bus.InboundDisconnected, Session: sess.id, Reason: reason})
}

func (s *WSServer) writeLoop(sess *WSSession) {
	for {
		select {
		case frame := <-sess.outQueue:
			if sess.writeTimeout > 0 {
				sess.conn.SetWriteDeadline(time.Now().Add(sess.writeTimeout))
			}
			if err := sess.conn.WriteJSON(frame); err != nil {
				s.closeSession(sess, "write-error")
				return
			}
		case <-sess.closeCh:
			return
		}
	}
}

// Transmit implements internal/tick.OutboundTransmitter for the WebSocket
// adapter, mirroring LineServer.Transmit's per-session batching.
func (s *WSServer) Transmit(sid ids.SessionId, events []bus.OutboundEvent) {
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	s.mu.Unlock()
	if !ok {
		return
	}
	for _, ev := range events {
		frame, closeAfter := renderWSEvent(ev)
		if frame != nil {
			sess.enqueue(*frame)
		}
		if closeAfter {
			s.closeSession(sess, ev.Reason)
			return
		}
	}
}

func renderWSEvent(ev bus.OutboundEvent) (*wsFrame, bool) {
	switch ev.Kind {
	case bus.OutboundSendText:
		return &wsFrame{Kind: "text", Text: ev.Text}, false
	case bus.OutboundSendInfo:
		return &wsFrame{Kind: "text", Text: fmt.Sprintf("[info] %s", ev.Text)}, false
	case bus.OutboundSendError:
		return &wsFrame{Kind: "text", Text: fmt.Sprintf("[error] %s", ev.Text)}, false
	case bus.OutboundSendPrompt:
		return &wsFrame{Kind: "prompt"}, false
	case bus.OutboundClearScreen:
		return &wsFrame{Kind: "clear"}, false
	case bus.OutboundGmcpData:
		return &wsFrame{Kind: "gmcp", Package: ev.GmcpPackage, Data: ev.GmcpJSON}, false
	case bus.OutboundShowLoginScreen:
		return &wsFrame{Kind: "text", Text: ev.Text}, false
	case bus.OutboundClose:
		return nil, true
	default:
		return nil, false
	}
}

// Close closes every live session; the underlying HTTP server lifecycle is
// owned by the composition root.
func (s *WSServer) Close() error {
	s.mu.Lock()
	sessions := make([]*WSSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.Close()
	}
	return nil
}
