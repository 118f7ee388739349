package vitals

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/scripting"
)

func newTestEngine(t *testing.T, luaBody string) *scripting.Engine {
	t.Helper()
	dir := t.TempDir()
	sub := filepath.Join(dir, "ability")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "rules.lua"), []byte(luaBody), 0o644))
	e, err := scripting.NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	return e
}

const fireballLua = `
function get_ability(key)
  if key == "fireball" then
    return {
      class_mask = 2, min_level = 1, mana_cost = 10, cooldown_ms = 1000,
      target = 1, effect = 0, min_magnitude = 5, max_magnitude = 10,
      status_kind = 0, duration_ms = 0,
    }
  end
  return nil
end
`

func TestAbilities_Resolve_EnemyTarget(t *testing.T) {
	e := newTestEngine(t, fireballLua)
	defer e.Close()
	a := NewAbilities(e)

	caster := model.NewPlayerState(1, "Mage", model.NewRoomId("z", "r1"))
	caster.Class = model.ClassMage
	caster.Mana = 50

	findMob := func(room model.RoomId, keyword string) (model.MobId, bool) { return "z:wolf", true }
	findAlly := func(model.RoomId, string, *int64) (ids.SessionId, bool) { return 0, false }

	cast, err := a.Resolve(time.Unix(1000, 0), caster, "fireball", "wolf", findMob, findAlly)
	require.NoError(t, err)
	require.Equal(t, model.MobId("z:wolf"), cast.ResolvedTarget.Mob)
}

func TestAbilities_Resolve_WrongClassRejected(t *testing.T) {
	e := newTestEngine(t, fireballLua)
	defer e.Close()
	a := NewAbilities(e)

	caster := model.NewPlayerState(1, "Warrior", model.NewRoomId("z", "r1"))
	caster.Class = model.ClassWarrior
	caster.Mana = 50

	_, err := a.Resolve(time.Unix(1000, 0), caster, "fireball", "wolf",
		func(model.RoomId, string) (model.MobId, bool) { return "z:wolf", true },
		func(model.RoomId, string, *int64) (ids.SessionId, bool) { return 0, false },
	)
	require.ErrorIs(t, err, ErrWrongClass)
}

func TestAbilities_Resolve_CooldownBlocksSecondCast(t *testing.T) {
	e := newTestEngine(t, fireballLua)
	defer e.Close()
	a := NewAbilities(e)

	caster := model.NewPlayerState(1, "Mage", model.NewRoomId("z", "r1"))
	caster.Class = model.ClassMage
	caster.Mana = 50

	findMob := func(model.RoomId, string) (model.MobId, bool) { return "z:wolf", true }
	findAlly := func(model.RoomId, string, *int64) (ids.SessionId, bool) { return 0, false }

	now := time.Unix(1000, 0)
	_, err := a.Resolve(now, caster, "fireball", "wolf", findMob, findAlly)
	require.NoError(t, err)

	_, err = a.Resolve(now.Add(100*time.Millisecond), caster, "fireball", "wolf", findMob, findAlly)
	require.ErrorIs(t, err, ErrOnCooldown)

	_, err = a.Resolve(now.Add(2*time.Second), caster, "fireball", "wolf", findMob, findAlly)
	require.NoError(t, err)
}

func TestAbilities_Resolve_AllyEmptyKeywordBecomesSelf(t *testing.T) {
	e := newTestEngine(t, `
function get_ability(key)
  return { class_mask = 255, min_level = 1, mana_cost = 0, cooldown_ms = 0,
    target = 2, effect = 1, min_magnitude = 5, max_magnitude = 5, status_kind = 0, duration_ms = 0 }
end
`)
	defer e.Close()
	a := NewAbilities(e)

	caster := model.NewPlayerState(1, "Cleric", model.NewRoomId("z", "r1"))
	caster.Class = model.ClassCleric

	cast, err := a.Resolve(time.Unix(1000, 0), caster, "heal", "",
		func(model.RoomId, string) (model.MobId, bool) { return "", false },
		func(model.RoomId, string, *int64) (ids.SessionId, bool) { return 0, false },
	)
	require.NoError(t, err)
	require.Equal(t, ids.SessionId(1), cast.ResolvedTarget.Session)
}
