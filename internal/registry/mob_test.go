package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/model"
)

func TestMobRegistry_SpawnMoveRemove(t *testing.T) {
	reg := NewMobRegistry()
	room := model.NewRoomId("forest", "clearing")
	mob := &model.MobState{Id: "forest:wolf-1", Name: "a grey wolf", RoomId: room}
	reg.Spawn(mob)

	assert.Contains(t, reg.MobsInRoom(room), mob.Id)

	other := model.NewRoomId("forest", "path")
	require.NoError(t, reg.MoveTo(mob.Id, other))
	assert.NotContains(t, reg.MobsInRoom(room), mob.Id)
	assert.Contains(t, reg.MobsInRoom(other), mob.Id)

	reg.Remove(mob.Id)
	assert.Empty(t, reg.MobsInRoom(other))
	_, ok := reg.Get(mob.Id)
	assert.False(t, ok)
}

func TestMobRegistry_FindByNameSubstring_PicksAlphabeticallyFirst(t *testing.T) {
	reg := NewMobRegistry()
	room := model.NewRoomId("forest", "clearing")
	reg.Spawn(&model.MobState{Id: "forest:wolf-2", Name: "a white wolf", RoomId: room})
	reg.Spawn(&model.MobState{Id: "forest:wolf-1", Name: "a grey wolf", RoomId: room})

	id, ok := reg.FindByNameSubstring(room, "wolf")
	require.True(t, ok)
	assert.Equal(t, model.MobId("forest:wolf-1"), id)
}

func TestMobRegistry_RemovingLastMobInRoomDropsRoomKey(t *testing.T) {
	reg := NewMobRegistry()
	room := model.NewRoomId("forest", "clearing")
	reg.Spawn(&model.MobState{Id: "forest:wolf-1", Name: "a grey wolf", RoomId: room})
	reg.Remove("forest:wolf-1")
	assert.Empty(t, reg.MobsInRoom(room))
}
