package model

import (
	"time"

	"github.com/ambonmud/server/internal/ids"
)

// HandoffState is the ticket's position in the
// PREPARED -> SENT -> ACKED -> COMMITTED|ROLLED_BACK lifecycle.
type HandoffState uint8

const (
	HandoffPrepared HandoffState = iota
	HandoffSent
	HandoffAcked
	HandoffCommitted
	HandoffRolledBack
)

// HandoffTicket tracks one in-flight cross-zone player transfer. StateBlob
// is the msgpack-encoded PlayerState snapshot (shared encoding family with
// the pub/sub envelope payloads) carried opaquely by the Handoff Manager.
type HandoffTicket struct {
	Id              string
	Session         ids.SessionId
	FromEngineId    string
	ToEngineId      string
	FromRoomId      RoomId
	ToRoomId        RoomId
	State           HandoffState
	StateBlob       []byte
	CreatedAt       time.Time
	AckDeadline     time.Time
}
