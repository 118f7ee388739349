package dirty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

func TestSet_MarkDrainClears(t *testing.T) {
	s := NewSet[model.MobId]()
	s.Mark("z:mob-1")
	s.Mark("z:mob-2")
	s.Mark("z:mob-1") // duplicate marks collapse

	drained := s.Drain()
	assert.ElementsMatch(t, []model.MobId{"z:mob-1", "z:mob-2"}, drained)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Drain())
}

type fakeRooms struct {
	playersByRoom map[model.RoomId][]ids.SessionId
	mobRoom       map[model.MobId]model.RoomId
}

func (f fakeRooms) PlayersInRoom(room model.RoomId) []ids.SessionId { return f.playersByRoom[room] }
func (f fakeRooms) MobRoom(mob model.MobId) (model.RoomId, bool) {
	r, ok := f.mobRoom[mob]
	return r, ok
}

func TestFlushMobHP_EmitsOncePerPlayerPerDirtyMobInRoom(t *testing.T) {
	room := model.NewRoomId("z", "r1")
	rooms := fakeRooms{
		playersByRoom: map[model.RoomId][]ids.SessionId{room: {1, 2}},
		mobRoom:       map[model.MobId]model.RoomId{"z:a": room, "z:b": room},
	}
	set := NewSet[model.MobId]()
	set.Mark("z:a")
	set.Mark("z:b")

	type pair struct {
		sid ids.SessionId
		mob model.MobId
	}
	var got []pair
	FlushMobHP(set, rooms, func(sid ids.SessionId, mob model.MobId) {
		got = append(got, pair{sid, mob})
	})

	require.Len(t, got, 4)
	assert.Equal(t, 0, set.Len())
}

func TestFlushMobHP_SkipsMobsWithUnknownRoom(t *testing.T) {
	rooms := fakeRooms{playersByRoom: map[model.RoomId][]ids.SessionId{}, mobRoom: map[model.MobId]model.RoomId{}}
	set := NewSet[model.MobId]()
	set.Mark("z:orphan")

	var calls int
	FlushMobHP(set, rooms, func(ids.SessionId, model.MobId) { calls++ })
	assert.Equal(t, 0, calls)
}
