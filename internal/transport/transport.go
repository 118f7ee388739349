// Package transport implements the transport adapters described as
// contract-only in the specification: decode an inbound byte stream into
// lines, frame and coalesce outbound events, and report backpressure
// through the inbound bus. Neither adapter negotiates per-session
// capabilities; see Capabilities.
//
// Adapted from the teacher's internal/net Session/Server pair — per-
// connection reader/writer goroutines, atomic closed state, bounded
// queues, "drop the slow session rather than block the tick thread" — with
// the L1J binary packet cipher and init handshake removed entirely. This
// is a plain line protocol, not the L1J client wire format, so there is
// nothing in that cipher for a SPEC_FULL component to exercise.
package transport

import (
	"github.com/ambonmud/server/internal/ids"
)

// LineLimits bounds the line decoder, per §4.14: a configured maximum line
// length and a non-printable-byte cap, violation of either ends the
// connection with a single protocol-error line.
type LineLimits struct {
	MaxLineLength      int
	MaxNonPrintablePct int // 0-100; share of non-printable bytes tolerated in one line
}

func (l LineLimits) maxLineLength() int {
	if l.MaxLineLength <= 0 {
		return 4096
	}
	return l.MaxLineLength
}

// Capabilities describes a per-session capability set: terminal type,
// window size, and whether the transport carries structured-data
// (GMCP-style) frames alongside plain text. Neither the line nor the
// WebSocket adapter negotiates or fills it in.
type Capabilities struct {
	TerminalType  string
	WindowWidth   int
	WindowHeight  int
	AnsiEnabled   bool
	StructuredData bool
}

// sessionEntry is the shared bookkeeping both adapters keep per connected
// session so Transmit can find the right writer without the tick engine
// ever knowing which transport a session arrived over.
type sessionEntry struct {
	id     ids.SessionId
	closed chan struct{}
}
