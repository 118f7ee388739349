// Package bus defines the typed event envelopes shared by the inbound,
// outbound, and inter-engine buses, and the interfaces their local,
// pub/sub, and streaming-RPC implementations must all satisfy.
//
// Every event is a flat tagged record (a Kind enum plus per-kind fields)
// rather than an interface hierarchy, per the arena-plus-id /
// flat-tagged-record guidance: cheap to copy, cheap to encode, and
// dispatched with a single switch on the tick thread.
package bus

import "github.com/ambonmud/server/internal/ids"

// InboundKind tags the variants of InboundEvent.
type InboundKind uint8

const (
	InboundConnected InboundKind = iota
	InboundDisconnected
	InboundLineReceived
	InboundGmcpReceived
)

// InboundEvent carries client-originated traffic from a transport adapter
// into the tick engine.
type InboundEvent struct {
	Kind        InboundKind
	Session     ids.SessionId
	AnsiEnabled bool   // Connected
	Reason      string // Disconnected
	Line        string // LineReceived
	GmcpPackage string // GmcpReceived
	GmcpJSON    []byte // GmcpReceived
}

// OutboundKind tags the variants of OutboundEvent.
type OutboundKind uint8

const (
	OutboundSendText OutboundKind = iota
	OutboundSendInfo
	OutboundSendError
	OutboundSendPrompt
	OutboundShowLoginScreen
	OutboundSetAnsi
	OutboundClearScreen
	OutboundShowAnsiDemo
	OutboundClose
	OutboundSessionRedirect
	OutboundGmcpData
)

// TextKind further distinguishes SendText payloads for renderers that
// colorize by category; the core never interprets it beyond passing it
// through.
type TextKind uint8

const (
	TextNormal TextKind = iota
	TextCombat
	TextSystem
	TextChat
)

// OutboundEvent carries server-originated traffic from the tick engine out
// to a transport adapter for delivery to one session.
type OutboundEvent struct {
	Kind        OutboundKind
	Session     ids.SessionId
	Text        string   // SendText/SendInfo/SendError
	TextKind    TextKind // SendText
	Reason      string   // Close
	ToGateway   string   // SessionRedirect
	AnsiEnabled bool     // SetAnsi
	GmcpPackage string   // GmcpData
	GmcpJSON    []byte   // GmcpData
}

// InterEngineKind tags the variants of InterEngineEvent.
type InterEngineKind uint8

const (
	InterEngineRoutedInbound InterEngineKind = iota
	InterEngineRoutedOutbound
	InterEngineHandoffPrepare
	InterEngineHandoffCommit
	InterEngineHandoffAck
	InterEngineHandoffReject
	InterEngineCrossEngineTell
	InterEngineScaleDecision
)

// InterEngineEvent carries engine-to-engine and engine-to-gateway traffic.
type InterEngineEvent struct {
	Kind             InterEngineKind
	TargetEngineId   string // RoutedInbound / Handoff*
	TargetGatewayId  string // RoutedOutbound
	Inbound          *InboundEvent
	Outbound         *OutboundEvent
	TicketId         string // Handoff*
	TicketBlob       []byte // HandoffPrepare/Commit: msgpack-encoded HandoffTicket
	RejectReason     string // HandoffReject
	FromSession      ids.SessionId
	ToPlayerName     string
	TellText         string // CrossEngineTell
	Zone             string // ScaleDecision
	ScaleUp          bool
}
