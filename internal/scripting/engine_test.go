package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeScript(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	full := filepath.Join(dir, sub)
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, name), []byte(body), 0o644))
}

func TestEngine_GetAbility_DecodesTable(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ability", "fireball.lua", `
function get_ability(key)
  if key == "fireball" then
    return {
      class_mask = 2, min_level = 5, mana_cost = 20, cooldown_ms = 3000,
      target = 1, effect = 0, min_magnitude = 10, max_magnitude = 20,
      status_kind = 0, duration_ms = 0,
    }
  end
  return nil
end
`)
	log := zap.NewNop()
	e, err := NewEngine(dir, log)
	require.NoError(t, err)
	defer e.Close()

	def, err := e.GetAbility("fireball")
	require.NoError(t, err)
	require.Equal(t, int32(5), def.MinLevel)
	require.Equal(t, TargetEnemy, def.Target)
	require.Equal(t, EffectDamage, def.Effect)
}

func TestEngine_GetAbility_UnknownKeyErrors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "ability", "empty.lua", `function get_ability(key) return nil end`)
	log := zap.NewNop()
	e, err := NewEngine(dir, log)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.GetAbility("does-not-exist")
	require.Error(t, err)
}

func TestEngine_ExpForLevelAndLevelFromExp(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "progression", "curve.lua", `
function exp_for_level(level)
  return level * level * 100
end
function level_from_exp(exp)
  local level = 1
  while (level + 1) * (level + 1) * 100 <= exp do
    level = level + 1
  end
  return level
end
`)
	log := zap.NewNop()
	e, err := NewEngine(dir, log)
	require.NoError(t, err)
	defer e.Close()

	require.EqualValues(t, 400, e.ExpForLevel(2))
	require.EqualValues(t, 2, e.LevelFromExp(400))
}
