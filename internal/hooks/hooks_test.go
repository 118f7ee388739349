package hooks

import (
	"testing"

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

type recordingBroadcaster struct {
	toSession map[ids.SessionId][]string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{toSession: make(map[ids.SessionId][]string)}
}

func (r *recordingBroadcaster) ToSession(sid ids.SessionId, text string) {
	r.toSession[sid] = append(r.toSession[sid], text)
}

func TestOnKill_AdvancesQuestProgressForEveryContributor(t *testing.T) {
	p1 := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	p2 := model.NewPlayerState(2, "bob", model.NewRoomId("hub", "plaza"))
	players := fakePlayers{bySid: map[ids.SessionId]*model.PlayerState{1: p1, 2: p2}}
	b := newRecordingBroadcaster()

	s := New(players, b, []QuestObjective{{QuestId: "rat-cull", MobZone: "sewer"}}, nil, nil)
	s.OnKill([]ids.SessionId{1, 2}, model.MobId("sewer:rat-1"))

	assert.Equal(t, int32(1), p1.ActiveQuests["rat-cull"])
	assert.Equal(t, int32(1), p2.ActiveQuests["rat-cull"])
}

func TestOnKill_SkipsCompletedQuest(t *testing.T) {
	p1 := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	p1.CompletedQuestIds["rat-cull"] = true
	players := fakePlayers{bySid: map[ids.SessionId]*model.PlayerState{1: p1}}
	b := newRecordingBroadcaster()

	s := New(players, b, []QuestObjective{{QuestId: "rat-cull", MobZone: ""}}, nil, nil)
	s.OnKill([]ids.SessionId{1}, model.MobId("sewer:rat-1"))

	assert.Equal(t, int32(0), p1.ActiveQuests["rat-cull"])
}

func TestOnKill_UnlocksAchievementAtThreshold(t *testing.T) {
	p1 := model.NewPlayerState(1, "alice", model.NewRoomId("hub", "plaza"))
	players := fakePlayers{bySid: map[ids.SessionId]*model.PlayerState{1: p1}}
	b := newRecordingBroadcaster()

	rule := AchievementRule{AchievementId: "novice-slayer", CounterKey: "kills", Threshold: 2}
	s := New(players, b, nil, []AchievementRule{rule}, nil)

	s.OnKill([]ids.SessionId{1}, model.MobId("sewer:rat-1"))
	assert.False(t, p1.UnlockedAchievementIds["novice-slayer"])

	s.OnKill([]ids.SessionId{1}, model.MobId("sewer:rat-2"))
	require.True(t, p1.UnlockedAchievementIds["novice-slayer"])
	assert.Contains(t, b.toSession[1], "Achievement unlocked: novice-slayer!")
}

func TestOnLevelUp_Announces(t *testing.T) {
	b := newRecordingBroadcaster()
	s := New(fakePlayers{bySid: map[ids.SessionId]*model.PlayerState{}}, b, nil, nil, nil)
	s.OnLevelUp(1, 5)
	assert.Equal(t, []string{"You are now level 5!"}, b.toSession[1])
}
