// Package world holds static Room content: the immutable map of rooms a
// zone was built from, loaded once at startup (or zone-instance creation)
// by an external content loader. It is a plain lookup table, not an
// entity store — the tick engine's registries (internal/registry) layer
// live membership on top of the RoomId keys defined here, the same
// separation the teacher draws between its static map/door tables
// (internal/data) and its in-memory PlayerInfo/NpcInfo state
// (internal/world.State).
package world

import "github.com/ambonmud/server/internal/model"

// World is the authoritative static room table for one running server. It
// implements the narrow RoomSource interfaces internal/command and
// internal/mobai depend on, so callers never import this package directly
// just to satisfy those.
type World struct {
	rooms map[model.RoomId]*model.Room
}

// New builds an empty World; callers add content with Add before serving
// traffic.
func New() *World {
	return &World{rooms: make(map[model.RoomId]*model.Room)}
}

// NewFromRooms builds a World pre-populated from a loaded room set, keyed
// by each Room's own Id.
func NewFromRooms(rooms []*model.Room) *World {
	w := New()
	for _, r := range rooms {
		w.Add(r)
	}
	return w
}

// Add inserts or replaces one room's static content.
func (w *World) Add(r *model.Room) {
	w.rooms[r.Id] = r
}

// Room resolves a room's static content by id.
func (w *World) Room(id model.RoomId) (*model.Room, bool) {
	r, ok := w.rooms[id]
	return r, ok
}

// RoomsInZone returns every room id whose RoomId.Zone() matches zone, for
// callers (the Zone Router's instance-content bootstrap, diagnostics)
// that need a zone's full room set rather than one lookup at a time.
func (w *World) RoomsInZone(zone string) []model.RoomId {
	var ids []model.RoomId
	for id := range w.rooms {
		if id.Zone() == zone {
			ids = append(ids, id)
		}
	}
	return ids
}
