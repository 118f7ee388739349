package rpc

import (
	busv "github.com/ambonmud/server/internal/bus"
)

// WireMessage is one frame on an inbound or outbound stream: exactly one
// of Inbound/Outbound/InterEngine is set, matching which stream carries it.
type WireMessage struct {
	Seq         uint64
	Inbound     *busv.InboundEvent
	Outbound    *busv.OutboundEvent
	InterEngine *busv.InterEngineEvent
}

// Ack carries the sequence number of the frame the receiver has just
// processed, sent even when that frame was dropped because the local queue
// was full; the sender does not resume from it after a reconnect.
type Ack struct {
	Watermark uint64
}
