// Package persist specifies the boundary to the player-record persistence
// chain. The spec treats persistence as an external collaborator; this
// package defines only the repository interface the core calls through,
// plus an in-memory reference implementation used by tests and
// single-process deployments that haven't wired a real database.
//
// A production deployment adapts the teacher repo's pgx/v5 +
// pressly/goose migration chain (see original character_repo.go) behind
// this same interface; that wiring is out of scope for the core.
package persist

import "github.com/ambonmud/server/internal/model"

// PlayerSnapshot is the subset of PlayerState the core persists on
// disconnect/handoff: (roomId, lastSeen, name) per the spec, plus the
// identity fields needed to find the row again.
type PlayerSnapshot struct {
	PlayerId       model.PlayerId
	Name           string
	RoomId         model.RoomId
	LastSeenUnixMs int64
}

// PlayerRepository is the external collaborator for account/character
// persistence. Lookups are case-insensitive; Save is idempotent (calling
// it twice with the same snapshot leaves the stored record unchanged).
type PlayerRepository interface {
	FindByName(name string) (*PlayerSnapshot, bool, error)
	FindById(id model.PlayerId) (*PlayerSnapshot, bool, error)
	Create(snap PlayerSnapshot) (model.PlayerId, error)
	Save(snap PlayerSnapshot) error
}
