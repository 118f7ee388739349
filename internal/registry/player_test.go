package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/persist"
)

func TestPlayerRegistry_ConnectMoveDisconnect_KeepsMembershipConsistent(t *testing.T) {
	reg := NewPlayerRegistry(persist.NewMemoryRepository())
	p := model.NewPlayerState(1, "Alice", model.NewRoomId("town", "square"))
	require.NoError(t, reg.Connect(p))

	require.Len(t, reg.PlayersInRoom(p.RoomId), 1)
	assert.EqualValues(t, 1, reg.PlayersInRoom(p.RoomId)[0])

	require.NoError(t, reg.MoveTo(1, model.NewRoomId("town", "inn")))
	assert.Empty(t, reg.PlayersInRoom(model.NewRoomId("town", "square")))
	assert.Len(t, reg.PlayersInRoom(model.NewRoomId("town", "inn")), 1)

	require.NoError(t, reg.Disconnect(1, 1000))
	assert.Empty(t, reg.PlayersInRoom(model.NewRoomId("town", "inn")))
	_, ok := reg.Get(1)
	assert.False(t, ok)
}

func TestPlayerRegistry_CaseInsensitiveNameUniqueness(t *testing.T) {
	reg := NewPlayerRegistry(persist.NewMemoryRepository())
	room := model.NewRoomId("town", "square")
	require.NoError(t, reg.Connect(model.NewPlayerState(1, "Bob", room)))

	err := reg.Connect(model.NewPlayerState(2, "BOB", room))
	assert.Error(t, err)
	assert.IsType(t, ErrNameTaken{}, err)
}

func TestPlayerRegistry_FindByNameInRoom(t *testing.T) {
	reg := NewPlayerRegistry(persist.NewMemoryRepository())
	room := model.NewRoomId("town", "square")
	require.NoError(t, reg.Connect(model.NewPlayerState(1, "Carol", room)))

	sid, ok := reg.FindByNameInRoom(room, "carol")
	require.True(t, ok)
	assert.EqualValues(t, 1, sid)
}
