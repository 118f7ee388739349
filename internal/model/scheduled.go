package model

import "time"

// ScheduledActionKind identifies what the Scheduler should do when an
// action comes due; the Scheduler itself only orders and drains entries,
// it never interprets Kind.
type ScheduledActionKind uint8

const (
	ScheduledMobRespawn ScheduledActionKind = iota
	ScheduledInviteExpiry
	ScheduledEffectExpiry
	ScheduledAbilityCooldownReady
	ScheduledHandoffAckTimeout
)

// ScheduledAction is one entry in the Scheduler's min-heap, ordered by
// DueAt. Payload is an opaque id (mob template key, session id, ticket
// id, ...) whose meaning depends on Kind and is resolved by the
// subsystem that queued it. Heap bookkeeping lives in the scheduler
// package's own wrapper type, not here.
type ScheduledAction struct {
	Kind    ScheduledActionKind
	DueAt   time.Time
	Payload string
}
