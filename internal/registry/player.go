// Package registry holds the authoritative, single-writer maps of live
// entities: players by session, mobs and items by id, each with a
// secondary room-membership index kept consistent with the primary map
// inside every mutating call. No component-store indirection is used
// here (unlike the generic entity/component stores this package's
// membership-index idiom is adapted from) because each registry owns a
// single concrete struct type, not an open set of components.
package registry

import (
	"sync"

	"golang.org/x/text/cases"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/persist"
)

var nameFolder = cases.Fold()

// PlayerRegistry is the authoritative map of connected players plus a
// room -> members index. All methods are intended to be called only
// from the tick thread; the mutex exists solely to let read-only
// diagnostic/metrics code take a safe snapshot from another goroutine.
type PlayerRegistry struct {
	mu       sync.RWMutex
	bySession map[ids.SessionId]*model.PlayerState
	byRoom    map[model.RoomId]map[ids.SessionId]struct{}
	namesLower map[string]ids.SessionId // case-insensitive online-name uniqueness
	repo      persist.PlayerRepository
}

func NewPlayerRegistry(repo persist.PlayerRepository) *PlayerRegistry {
	return &PlayerRegistry{
		bySession:  make(map[ids.SessionId]*model.PlayerState),
		byRoom:     make(map[model.RoomId]map[ids.SessionId]struct{}),
		namesLower: make(map[string]ids.SessionId),
		repo:       repo,
	}
}

// foldName applies Unicode case folding (not a plain ASCII lowercase) so
// that names differing only by case in any script collide the same way
// the client-facing uniqueness check expects.
func foldName(name string) string { return nameFolder.String(name) }

// connect binds a newly-created PlayerState into the registry, enforcing
// case-insensitive name uniqueness before the bind succeeds.
func (r *PlayerRegistry) Connect(p *model.PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := foldName(p.Name)
	if existing, ok := r.namesLower[key]; ok && existing != p.SessionId {
		return ErrNameTaken{Name: p.Name}
	}

	r.bySession[p.SessionId] = p
	r.namesLower[key] = p.SessionId
	r.addToRoom(p.SessionId, p.RoomId)
	return nil
}

// AttachExisting binds a player record loaded from persistence (e.g.
// after a handoff) without re-checking name uniqueness against itself.
func (r *PlayerRegistry) AttachExisting(p *model.PlayerState) error {
	if err := r.Connect(p); err != nil {
		return err
	}
	return nil
}

// Disconnect removes the player from the registry and persists its
// (roomId, lastSeen, name) via the external repository. A player with no
// PlayerId (never persisted) is removed without a save.
func (r *PlayerRegistry) Disconnect(sid ids.SessionId, lastSeenUnixMs int64) error {
	r.mu.Lock()
	p, ok := r.bySession[sid]
	if !ok {
		r.mu.Unlock()
		return ErrNotFound{SessionId: sid}
	}
	delete(r.bySession, sid)
	delete(r.namesLower, foldName(p.Name))
	r.removeFromRoom(sid, p.RoomId)
	r.mu.Unlock()

	if p.PlayerId == 0 {
		return nil
	}
	return r.repo.Save(persist.PlayerSnapshot{
		PlayerId:     p.PlayerId,
		Name:         p.Name,
		RoomId:       p.RoomId,
		LastSeenUnixMs: lastSeenUnixMs,
	})
}

// Rename changes a player's display name, re-checking uniqueness.
func (r *PlayerRegistry) Rename(sid ids.SessionId, newName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.bySession[sid]
	if !ok {
		return ErrNotFound{SessionId: sid}
	}
	key := foldName(newName)
	if existing, ok := r.namesLower[key]; ok && existing != sid {
		return ErrNameTaken{Name: newName}
	}
	delete(r.namesLower, foldName(p.Name))
	p.Name = newName
	r.namesLower[key] = sid
	return nil
}

// MoveTo relocates a player to a new room, updating both the primary
// record and the membership index atomically from the caller's view.
func (r *PlayerRegistry) MoveTo(sid ids.SessionId, to model.RoomId) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.bySession[sid]
	if !ok {
		return ErrNotFound{SessionId: sid}
	}
	r.removeFromRoom(sid, p.RoomId)
	p.RoomId = to
	r.addToRoom(sid, to)
	return nil
}

func (r *PlayerRegistry) Get(sid ids.SessionId) (*model.PlayerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.bySession[sid]
	return p, ok
}

// FindByNameInRoom returns the session in room whose name equals name
// under Unicode case folding; a prefix of a name does not match.
func (r *PlayerRegistry) FindByNameInRoom(room model.RoomId, name string) (ids.SessionId, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	folded := foldName(name)
	members, ok := r.byRoom[room]
	if !ok {
		return 0, false
	}
	for sid := range members {
		p := r.bySession[sid]
		if foldName(p.Name) == folded {
			return sid, true
		}
	}
	return 0, false
}

// PlayersInRoom returns a stable snapshot slice of session ids present
// in room at the time of the call.
func (r *PlayerRegistry) PlayersInRoom(room model.RoomId) []ids.SessionId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byRoom[room]
	out := make([]ids.SessionId, 0, len(members))
	for sid := range members {
		out = append(out, sid)
	}
	return out
}

func (r *PlayerRegistry) addToRoom(sid ids.SessionId, room model.RoomId) {
	set, ok := r.byRoom[room]
	if !ok {
		set = make(map[ids.SessionId]struct{})
		r.byRoom[room] = set
	}
	set[sid] = struct{}{}
}

func (r *PlayerRegistry) removeFromRoom(sid ids.SessionId, room model.RoomId) {
	set, ok := r.byRoom[room]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.byRoom, room)
	}
}

// AllSessionIds returns a stable snapshot of every connected session id,
// used by per-tick phases (regen, mob aggro scanning) that must visit
// every player regardless of room.
func (r *PlayerRegistry) AllSessionIds() []ids.SessionId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ids.SessionId, 0, len(r.bySession))
	for sid := range r.bySession {
		out = append(out, sid)
	}
	return out
}

// Len reports the number of connected players; used by zone load
// reporting.
func (r *PlayerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySession)
}
