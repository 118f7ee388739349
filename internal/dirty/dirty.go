// Package dirty implements the per-tick "what changed" accumulator: four
// sets (player vitals, player status, mob HP, group info) that mutating
// subsystems mark into and the flush phase drains once per tick.
package dirty

import (
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// Set is a generic dirty-id accumulator: insertion is O(1). Drain copies
// the marked ids into a new slice and then replaces the map with an empty
// one; it does not iterate and clear the set in place.
type Set[K comparable] struct {
	members map[K]struct{}
}

func NewSet[K comparable]() *Set[K] {
	return &Set[K]{members: make(map[K]struct{})}
}

func (s *Set[K]) Mark(id K) { s.members[id] = struct{}{} }

// Drain returns every marked id and clears the set atomically with
// respect to the caller (single-threaded tick use only).
func (s *Set[K]) Drain() []K {
	out := make([]K, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	s.members = make(map[K]struct{}, len(s.members))
	return out
}

func (s *Set[K]) Len() int { return len(s.members) }

// Sets bundles the four dirty sets the spec names; the Tick Engine holds
// exactly one instance and flushes it at the end of every tick.
type Sets struct {
	PlayerVitals *Set[ids.SessionId]
	PlayerStatus *Set[ids.SessionId]
	MobHP        *Set[model.MobId]
	GroupInfo    *Set[int64]
}

func NewSets() *Sets {
	return &Sets{
		PlayerVitals: NewSet[ids.SessionId](),
		PlayerStatus: NewSet[ids.SessionId](),
		MobHP:        NewSet[model.MobId](),
		GroupInfo:    NewSet[int64](),
	}
}
