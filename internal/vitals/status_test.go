package vitals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/model"
)

func TestStatusEffects_ExpirePlayer_RemovesPastDeadline(t *testing.T) {
	s := NewStatusEffects()
	now := time.Unix(1000, 0)
	s.AddToPlayer(1, model.ActiveEffect{Kind: model.EffectStun, ExpiresAt: now.Add(-time.Second)})
	s.AddToPlayer(1, model.ActiveEffect{Kind: model.EffectSlow, ExpiresAt: now.Add(time.Hour)})

	out := s.ExpirePlayer(1, now)
	require.Len(t, out, 1)
	assert.Equal(t, model.EffectStun, out[0].Effect.Kind)
	assert.False(t, s.HasPlayerEffect(1, model.EffectStun))
	assert.True(t, s.HasPlayerEffect(1, model.EffectSlow))
}

func TestStatusEffects_ShieldExpiresWhenAbsorbExhausted(t *testing.T) {
	s := NewStatusEffects()
	now := time.Unix(1000, 0)
	s.AddToPlayer(1, model.ActiveEffect{Kind: model.EffectShield, Magnitude: 0, ExpiresAt: now.Add(time.Hour)})

	out := s.ExpirePlayer(1, now)
	require.Len(t, out, 1)
}

func TestStatusEffects_AbsorbPlayerDamage_DecrementsShield(t *testing.T) {
	s := NewStatusEffects()
	s.AddToPlayer(1, model.ActiveEffect{Kind: model.EffectShield, Magnitude: 30})

	after, absorbed := s.AbsorbPlayerDamage(1, 50)
	assert.EqualValues(t, 20, after)
	assert.EqualValues(t, 30, absorbed)

	after2, absorbed2 := s.AbsorbPlayerDamage(1, 10)
	assert.EqualValues(t, 10, after2)
	assert.EqualValues(t, 0, absorbed2)
}

func TestStatusEffects_StacksCountTracksAddRemove(t *testing.T) {
	s := NewStatusEffects()
	s.AddToPlayer(1, model.ActiveEffect{Kind: model.EffectSlow, ExpiresAt: time.Unix(2000, 0)})
	s.AddToPlayer(1, model.ActiveEffect{Kind: model.EffectSlow, ExpiresAt: time.Unix(2000, 0)})
	assert.True(t, s.HasPlayerEffect(1, model.EffectSlow))

	s.ExpirePlayer(1, time.Unix(3000, 0))
	assert.False(t, s.HasPlayerEffect(1, model.EffectSlow))
}

func TestStatusEffects_DueDOTsHOTs_AdvancesNextTick(t *testing.T) {
	s := NewStatusEffects()
	now := time.Unix(1000, 0)
	s.AddToMob("z:mob-1", model.ActiveEffect{Kind: model.EffectDamageOverTime, TickAmount: 5, NextTickAt: now})

	due := s.DueDOTsHOTs(now, time.Second)
	require.Len(t, due, 1)
	for k, effs := range due {
		assert.False(t, k.IsPlayer())
		assert.Equal(t, model.MobId("z:mob-1"), k.Mob())
		require.Len(t, effs, 1)
	}

	due2 := s.DueDOTsHOTs(now, time.Second)
	assert.Empty(t, due2)
}
