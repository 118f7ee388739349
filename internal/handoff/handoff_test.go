package handoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

type fakeSource struct {
	dropped      []ids.SessionId
	disconnected []ids.SessionId
}

func (f *fakeSource) Get(sid ids.SessionId) (*model.PlayerState, bool) { return nil, false }
func (f *fakeSource) DropCombat(sid ids.SessionId)                    { f.dropped = append(f.dropped, sid) }
func (f *fakeSource) Disconnect(sid ids.SessionId, lastSeenUnixMs int64) error {
	f.disconnected = append(f.disconnected, sid)
	return nil
}

func TestPrepareAckCommit_RoundTripsPlayerSnapshot(t *testing.T) {
	m := NewManager(3 * time.Second)
	now := time.Unix(0, 0)

	p := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	p.HP, p.MaxHP = 80, 100
	p.Level = 5

	ticket, err := m.Prepare("t1", now, p, "engine-a", "engine-b", model.NewRoomId("forest", "clearing"))
	require.NoError(t, err)
	assert.Equal(t, model.HandoffSent, ticket.State)

	accept, reason := m.ReceivePrepare(now, ticket, true)
	require.True(t, accept)
	assert.Empty(t, reason)

	acked, ok := m.Ack("t1")
	require.True(t, ok)
	assert.Equal(t, model.HandoffAcked, acked.State)

	src := &fakeSource{}
	committed, err := m.Commit("t1", now, src)
	require.NoError(t, err)
	assert.Equal(t, model.HandoffCommitted, committed.State)
	assert.Equal(t, []ids.SessionId{1}, src.dropped)
	assert.Equal(t, []ids.SessionId{1}, src.disconnected)

	restored, finalTicket, err := m.CommitInbound("t1")
	require.NoError(t, err)
	assert.Equal(t, model.HandoffCommitted, finalTicket.State)
	assert.Equal(t, "alice", restored.Name)
	assert.Equal(t, int32(80), restored.HP)
	assert.Equal(t, int32(5), restored.Level)
	assert.Equal(t, model.NewRoomId("forest", "clearing"), restored.RoomId)
}

func TestReceivePrepare_RejectsUnknownRoom(t *testing.T) {
	m := NewManager(3 * time.Second)
	now := time.Unix(0, 0)
	p := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	ticket, err := m.Prepare("t1", now, p, "engine-a", "engine-b", model.NewRoomId("forest", "clearing"))
	require.NoError(t, err)

	accept, reason := m.ReceivePrepare(now, ticket, false)
	assert.False(t, accept)
	assert.Equal(t, "unknown-room", reason)
}

func TestSweepExpired_RollsBackUnackedOutboundTicket(t *testing.T) {
	m := NewManager(3 * time.Second)
	now := time.Unix(0, 0)
	p := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	_, err := m.Prepare("t1", now, p, "engine-a", "engine-b", model.NewRoomId("forest", "clearing"))
	require.NoError(t, err)

	rolledBack, _ := m.SweepExpired(now.Add(4 * time.Second))
	require.Len(t, rolledBack, 1)
	assert.Equal(t, model.HandoffRolledBack, rolledBack[0].State)

	_, ok := m.Ack("t1")
	assert.False(t, ok, "ticket should have been removed from the outbound set by the sweep")
}

func TestSweepExpired_DiscardsStaleInboundPendingTicket(t *testing.T) {
	m := NewManager(3 * time.Second)
	now := time.Unix(0, 0)
	p := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	ticket, err := m.Prepare("t1", now, p, "engine-a", "engine-b", model.NewRoomId("forest", "clearing"))
	require.NoError(t, err)
	_, _ = m.ReceivePrepare(now, ticket, true)

	_, discarded := m.SweepExpired(now.Add(7 * time.Second))
	assert.Equal(t, []string{"t1"}, discarded)

	_, _, err = m.CommitInbound("t1")
	assert.Error(t, err, "discarded inbound ticket should no longer be committable")
}
