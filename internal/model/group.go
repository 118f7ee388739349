package model

import (
	"time"

	"github.com/ambonmud/server/internal/ids"
)

// Group is a small party of players who share XP splits and group-wide
// tells/emotes. GroupId is the leader's session id at formation time and
// is stable even if leadership later transfers.
type Group struct {
	Id                 int64
	Leader             ids.SessionId
	Members            []ids.SessionId
	LootRoundRobinIndex int
}

// PendingInvite is an outstanding group invitation, expired by the
// Scheduler if not accepted within the configured window.
type PendingInvite struct {
	GroupId   int64
	Inviter   ids.SessionId
	Invitee   ids.SessionId
	ExpiresAt time.Time
}
