package mobai

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ambonmud/server/internal/combat"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/persist"
	"github.com/ambonmud/server/internal/registry"
	"github.com/ambonmud/server/internal/scripting"
	"github.com/ambonmud/server/internal/vitals"
)

type recordingBroadcaster struct {
	toSession map[ids.SessionId][]string
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{toSession: make(map[ids.SessionId][]string)}
}
func (b *recordingBroadcaster) ToSession(sid ids.SessionId, text string) {
	b.toSession[sid] = append(b.toSession[sid], text)
}
func (b *recordingBroadcaster) ToRoomExcept(room model.RoomId, except ids.SessionId, text string) {}
func (b *recordingBroadcaster) Prompt(sid ids.SessionId)                                          {}

type aiRoomSource struct{ rooms map[model.RoomId]*model.Room }

func (r aiRoomSource) Room(id model.RoomId) (*model.Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

func writeScript(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	full := filepath.Join(dir, sub)
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, name), []byte(body), 0o644))
}

func TestAI_EngageNearest_StartsCombat(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ai", "mobs.lua", `
function decide_mob_action(template_key, has_target)
  return { action = 1 } -- MobActionEngageNearest
end
`)
	rules, err := scripting.NewEngine(dir, zap.NewNop())
	require.NoError(t, err)

	players := registry.NewPlayerRegistry(persist.NewMemoryRepository())
	mobs := registry.NewMobRegistry()
	items := registry.NewItemRegistry()
	status := vitals.NewStatusEffects()
	core := combat.New(combat.Config{TickPeriod: 100 * time.Millisecond, StrDivisor: 4, BaseStrength: 10}, status, rules, players, mobs, items, nil)

	room := model.NewRoomId("hub", "plaza")
	alice := model.NewPlayerState(1, "alice", room)
	require.NoError(t, players.Connect(alice))
	mobs.Spawn(&model.MobState{Id: "hub:rat-1", Name: "rat", RoomId: room, HP: 5, MaxHP: 5, TemplateKey: "rat"})

	ai := New(Config{MaxMobsPerTick: 10}, rules, mobs, players, core, aiRoomSource{}, func(int) int { return 0 }, nil)

	b := newRecordingBroadcaster()
	ai.Tick(time.Unix(0, 0), b)

	require.True(t, core.IsMobActive("hub:rat-1"))
	require.Contains(t, b.toSession[1], "rat attacks you!")
}

func TestAI_SkipsMobsAlreadyActive(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ai", "mobs.lua", `
function decide_mob_action(template_key, has_target)
  return { action = 1 }
end
`)
	rules, err := scripting.NewEngine(dir, zap.NewNop())
	require.NoError(t, err)

	players := registry.NewPlayerRegistry(persist.NewMemoryRepository())
	mobs := registry.NewMobRegistry()
	items := registry.NewItemRegistry()
	status := vitals.NewStatusEffects()
	core := combat.New(combat.Config{TickPeriod: 100 * time.Millisecond, StrDivisor: 4, BaseStrength: 10}, status, rules, players, mobs, items, nil)

	room := model.NewRoomId("hub", "plaza")
	alice := model.NewPlayerState(1, "alice", room)
	require.NoError(t, players.Connect(alice))
	mobs.Spawn(&model.MobState{Id: "hub:rat-1", Name: "rat", RoomId: room, HP: 5, MaxHP: 5, TemplateKey: "rat"})

	b := newRecordingBroadcaster()
	require.NoError(t, core.StartCombat(time.Unix(0, 0), 1, "rat", b))

	ai := New(Config{MaxMobsPerTick: 10}, rules, mobs, players, core, aiRoomSource{}, func(int) int { return 0 }, nil)
	ai.Tick(time.Unix(0, 0), b)
	// still only one "You attack rat" from StartCombat, no duplicate engage text
	require.Equal(t, 1, len(b.toSession[1]))
}
