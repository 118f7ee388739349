package registry

import (
	"strings"
	"sync"

	"github.com/ambonmud/server/internal/model"
)

// MobRegistry is the authoritative map of live mob instances plus a
// room -> members index. Respawn goes through Spawn again rather than
// mutating a dead MobState back to life, per the spec's "respawn is a
// new MobState" rule.
type MobRegistry struct {
	mu     sync.RWMutex
	byId   map[model.MobId]*model.MobState
	byRoom map[model.RoomId]map[model.MobId]struct{}
}

func NewMobRegistry() *MobRegistry {
	return &MobRegistry{
		byId:   make(map[model.MobId]*model.MobState),
		byRoom: make(map[model.RoomId]map[model.MobId]struct{}),
	}
}

func (r *MobRegistry) Spawn(mob *model.MobState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byId[mob.Id] = mob
	r.addToRoom(mob.Id, mob.RoomId)
}

func (r *MobRegistry) Remove(id model.MobId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mob, ok := r.byId[id]
	if !ok {
		return
	}
	delete(r.byId, id)
	r.removeFromRoom(id, mob.RoomId)
}

func (r *MobRegistry) MoveTo(id model.MobId, to model.RoomId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	mob, ok := r.byId[id]
	if !ok {
		return ErrNotFound{MobId: id}
	}
	r.removeFromRoom(id, mob.RoomId)
	mob.RoomId = to
	r.addToRoom(id, to)
	return nil
}

func (r *MobRegistry) Get(id model.MobId) (*model.MobState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mob, ok := r.byId[id]
	return mob, ok
}

// AllMobIds returns a stable snapshot of every live mob id, used by the
// mob behavior step which must visit every mob regardless of room.
func (r *MobRegistry) AllMobIds() []model.MobId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.MobId, 0, len(r.byId))
	for id := range r.byId {
		out = append(out, id)
	}
	return out
}

// MobsInRoom returns a stable snapshot of mob ids present in room.
func (r *MobRegistry) MobsInRoom(room model.RoomId) []model.MobId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byRoom[room]
	out := make([]model.MobId, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// FindByNameSubstring finds the alphabetically-first mob in room whose
// name contains keyword, case-insensitively, matching startCombat's
// targeting rule.
func (r *MobRegistry) FindByNameSubstring(room model.RoomId, keyword string) (model.MobId, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best model.MobId
	var bestName string
	found := false
	folded := strings.ToLower(keyword)
	for id := range r.byRoom[room] {
		mob := r.byId[id]
		if !strings.Contains(strings.ToLower(mob.Name), folded) {
			continue
		}
		if !found || mob.Name < bestName {
			best, bestName, found = id, mob.Name, true
		}
	}
	return best, found
}

func (r *MobRegistry) addToRoom(id model.MobId, room model.RoomId) {
	set, ok := r.byRoom[room]
	if !ok {
		set = make(map[model.MobId]struct{})
		r.byRoom[room] = set
	}
	set[id] = struct{}{}
}

func (r *MobRegistry) removeFromRoom(id model.MobId, room model.RoomId) {
	set, ok := r.byRoom[room]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.byRoom, room)
	}
}
