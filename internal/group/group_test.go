package group

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

type fakePlayers struct {
	bySid map[ids.SessionId]*model.PlayerState
}

func (f fakePlayers) Get(sid ids.SessionId) (*model.PlayerState, bool) {
	p, ok := f.bySid[sid]
	return p, ok
}

func (f fakePlayers) FindByNameInRoom(room model.RoomId, name string) (ids.SessionId, bool) {
	for sid, p := range f.bySid {
		if p.RoomId == room && p.Name == name {
			return sid, true
		}
	}
	return 0, false
}

type recordingBroadcaster struct {
	toSession map[ids.SessionId][]string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{toSession: make(map[ids.SessionId][]string)}
}

func (r *recordingBroadcaster) ToSession(sid ids.SessionId, text string) {
	r.toSession[sid] = append(r.toSession[sid], text)
}

func newFixture() (*Manager, fakePlayers) {
	room := model.NewRoomId("hub", "plaza")
	players := fakePlayers{bySid: map[ids.SessionId]*model.PlayerState{
		1: model.NewPlayerState(1, "alice", room),
		2: model.NewPlayerState(2, "bob", room),
		3: model.NewPlayerState(3, "carol", room),
	}}
	m := New(6, time.Minute, players)
	return m, players
}

func TestInviteAccept_FormsGroupWithInviterAsLeader(t *testing.T) {
	m, _ := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)

	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))

	g, ok := m.GroupOf(1)
	require.True(t, ok)
	assert.Equal(t, ids.SessionId(1), g.Leader)
	assert.ElementsMatch(t, []ids.SessionId{1, 2}, g.Members)
}

func TestInvite_RejectsIfAlreadyGrouped(t *testing.T) {
	m, _ := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))

	err := m.Invite(now, 3, "bob", b)
	assert.Error(t, err)
}

func TestInvite_ExpiresLazily(t *testing.T) {
	m, _ := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))

	late := now.Add(2 * time.Minute)
	err := m.Accept(late, 2, b)
	assert.Error(t, err, "invite should have expired lazily")
}

func TestLeave_DissolvesGroupBelowTwoMembers(t *testing.T) {
	m, _ := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))

	m.Leave(2, b)

	_, ok := m.GroupOf(1)
	assert.False(t, ok, "group of 2 dissolves once a member leaves")
}

func TestLeave_TransfersLeadershipOnLeaderLeave(t *testing.T) {
	m, _ := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))
	require.NoError(t, m.Invite(now, 1, "carol", b))
	require.NoError(t, m.Accept(now, 3, b))

	m.Leave(1, b)

	g, ok := m.GroupOf(2)
	require.True(t, ok)
	assert.Equal(t, ids.SessionId(2), g.Leader)
	assert.ElementsMatch(t, []ids.SessionId{2, 3}, g.Members)
}

func TestKick_LeaderOnly(t *testing.T) {
	m, _ := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))
	require.NoError(t, m.Invite(now, 1, "carol", b))
	require.NoError(t, m.Accept(now, 3, b))

	assert.Error(t, m.Kick(2, "carol", b), "non-leader cannot kick")
	require.NoError(t, m.Kick(1, "carol", b))

	_, stillGrouped := m.GroupOf(3)
	assert.False(t, stillGrouped)
}

func TestAccept_SetsPlayerGroupIdOnBothMembers(t *testing.T) {
	m, players := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))

	g, ok := m.GroupOf(1)
	require.True(t, ok)
	require.NotNil(t, players.bySid[1].GroupId)
	require.NotNil(t, players.bySid[2].GroupId)
	assert.Equal(t, g.Id, *players.bySid[1].GroupId)
	assert.Equal(t, g.Id, *players.bySid[2].GroupId)
}

func TestLeave_ClearsPlayerGroupId(t *testing.T) {
	m, players := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))

	m.Leave(2, b)

	assert.Nil(t, players.bySid[1].GroupId, "group of 2 dissolves, so the remaining member is also cleared")
	assert.Nil(t, players.bySid[2].GroupId)
}

func TestKick_ClearsKickedPlayerGroupIdOnly(t *testing.T) {
	m, players := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))
	require.NoError(t, m.Invite(now, 1, "carol", b))
	require.NoError(t, m.Accept(now, 3, b))

	require.NoError(t, m.Kick(1, "carol", b))

	assert.Nil(t, players.bySid[3].GroupId)
	require.NotNil(t, players.bySid[1].GroupId, "group of 1+2 survives the kick")
	require.NotNil(t, players.bySid[2].GroupId)
}

func TestMembersInRoom_OnlySameRoom(t *testing.T) {
	m, players := newFixture()
	b := newRecordingBroadcaster()
	now := time.Unix(0, 0)
	require.NoError(t, m.Invite(now, 1, "bob", b))
	require.NoError(t, m.Accept(now, 2, b))

	players.bySid[2].RoomId = model.NewRoomId("hub", "elsewhere")

	assert.Equal(t, []ids.SessionId{1}, m.MembersInRoom(1, model.NewRoomId("hub", "plaza")))
}
