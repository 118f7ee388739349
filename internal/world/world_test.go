package world

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ambonmud/server/internal/model"
)

func TestWorld_RoomLookup(t *testing.T) {
	plaza := model.NewRoomId("hub", "plaza")
	w := NewFromRooms([]*model.Room{{Id: plaza, Name: "The Plaza"}})

	r, ok := w.Room(plaza)
	assert.True(t, ok)
	assert.Equal(t, "The Plaza", r.Name)

	_, ok = w.Room(model.NewRoomId("hub", "missing"))
	assert.False(t, ok)
}

func TestWorld_RoomsInZone(t *testing.T) {
	plaza := model.NewRoomId("hub", "plaza")
	gate := model.NewRoomId("hub", "gate")
	sewer := model.NewRoomId("sewer", "entrance")
	w := NewFromRooms([]*model.Room{{Id: plaza}, {Id: gate}, {Id: sewer}})

	assert.ElementsMatch(t, []model.RoomId{plaza, gate}, w.RoomsInZone("hub"))
	assert.ElementsMatch(t, []model.RoomId{sewer}, w.RoomsInZone("sewer"))
}
