package dirty

import (
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/registry"
)

// RoomOf resolves the room a dirty mob or player currently occupies; the
// composition root supplies the NewRegistryRoomOf adapter over the live
// registries, so the flush functions depend only on this interface.
type RoomOf interface {
	PlayersInRoom(room model.RoomId) []ids.SessionId
	MobRoom(mob model.MobId) (model.RoomId, bool)
}

// registryRoomOf adapts the concrete Player/Mob registries to RoomOf.
type registryRoomOf struct {
	players *registry.PlayerRegistry
	mobs    *registry.MobRegistry
}

func NewRegistryRoomOf(players *registry.PlayerRegistry, mobs *registry.MobRegistry) RoomOf {
	return registryRoomOf{players: players, mobs: mobs}
}

func (r registryRoomOf) PlayersInRoom(room model.RoomId) []ids.SessionId {
	return r.players.PlayersInRoom(room)
}

func (r registryRoomOf) MobRoom(mob model.MobId) (model.RoomId, bool) {
	m, ok := r.mobs.Get(mob)
	if !ok {
		return "", false
	}
	return m.RoomId, true
}

// FlushMobHP calls emit once per (player, dirty mob) pair. Dirty mobs are
// first grouped by room so each affected room's player list is looked up
// once; the number of emit calls is still dirty mobs times players in
// their room.
func FlushMobHP(set *Set[model.MobId], rooms RoomOf, emit func(ids.SessionId, model.MobId)) {
	dirtyMobs := set.Drain()
	if len(dirtyMobs) == 0 {
		return
	}

	byRoom := make(map[model.RoomId][]model.MobId, len(dirtyMobs))
	for _, mob := range dirtyMobs {
		room, ok := rooms.MobRoom(mob)
		if !ok {
			continue
		}
		byRoom[room] = append(byRoom[room], mob)
	}

	for room, mobs := range byRoom {
		for _, sid := range rooms.PlayersInRoom(room) {
			for _, mob := range mobs {
				emit(sid, mob)
			}
		}
	}
}

// FlushPlayerVitals emits one SendText/GmcpData outbound event per dirty
// player's own HP/mana change; unlike mob HP this never fans out to
// other sessions, so no room-membership indirection is needed.
func FlushPlayerVitals(set *Set[ids.SessionId], emit func(ids.SessionId)) {
	for _, sid := range set.Drain() {
		emit(sid)
	}
}

// FlushPlayerStatus mirrors FlushPlayerVitals for status-effect changes.
func FlushPlayerStatus(set *Set[ids.SessionId], emit func(ids.SessionId)) {
	for _, sid := range set.Drain() {
		emit(sid)
	}
}

// FlushGroupInfo emits one notification per dirty group id; callers
// resolve membership themselves since group rosters already live in the
// group package, not here.
func FlushGroupInfo(set *Set[int64], emit func(int64)) {
	for _, id := range set.Drain() {
		emit(id)
	}
}
