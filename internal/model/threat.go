package model

import "github.com/ambonmud/server/internal/ids"

// ThreatEntry is one player's accumulated threat against one mob. The
// Threat Table keys entries by (MobId, SessionId); Amount changes by the
// deltas damage/healing events add, which may be negative, and is cleared
// by explicit removal, never decayed over time.
type ThreatEntry struct {
	MobId   MobId
	Session ids.SessionId
	Amount  float64
}
