package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/bus/local"
	"github.com/ambonmud/server/internal/dirty"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

type fakeRooms struct {
	playersIn map[model.RoomId][]ids.SessionId
	mobRoom   map[model.MobId]model.RoomId
}

func (f fakeRooms) PlayersInRoom(room model.RoomId) []ids.SessionId { return f.playersIn[room] }
func (f fakeRooms) MobRoom(mob model.MobId) (model.RoomId, bool) {
	r, ok := f.mobRoom[mob]
	return r, ok
}

func TestDirtyFlush_MobHPFansOutToRoomPlayers(t *testing.T) {
	sets := dirty.NewSets()
	sets.MobHP.Mark("hub:rat-1")
	room := model.NewRoomId("hub", "plaza")

	rooms := fakeRooms{
		playersIn: map[model.RoomId][]ids.SessionId{room: {1, 2}},
		mobRoom:   map[model.MobId]model.RoomId{"hub:rat-1": room},
	}

	out := local.NewOutboundBus(16)
	e := NewEngine(Budgets{})
	RegisterDirtyFlush(e, DirtyFlushDeps{
		Dirty: sets,
		Rooms: rooms,
		Out:   out,
		MobHP: func(mob model.MobId) (string, []byte) { return "Mob.hp", []byte(`{"id":"` + string(mob) + `"}`) },
	})

	e.Tick(time.Unix(0, 0))

	events := out.Drain(10)
	require.Len(t, events, 2)
	assert.Equal(t, bus.OutboundGmcpData, events[0].Kind)
	assert.Equal(t, "Mob.hp", events[0].GmcpPackage)
}

func TestDirtyFlush_NilPayloadStillDrainsSet(t *testing.T) {
	sets := dirty.NewSets()
	sets.PlayerVitals.Mark(1)

	e := NewEngine(Budgets{})
	RegisterDirtyFlush(e, DirtyFlushDeps{Dirty: sets})

	e.Tick(time.Unix(0, 0))
	assert.Equal(t, 0, sets.PlayerVitals.Len())
}
