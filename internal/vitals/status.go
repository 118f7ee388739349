package vitals

import (
	"time"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// targetKey identifies who an effect is applied to, folding the
// PLAYER/MOB tagged variant into one comparable map key.
type targetKey struct {
	isPlayer bool
	session  ids.SessionId
	mob      model.MobId
}

func playerKey(sid ids.SessionId) targetKey { return targetKey{isPlayer: true, session: sid} }
func mobKey(mob model.MobId) targetKey      { return targetKey{mob: mob} }

// IsPlayer, Session, and Mob let callers outside this package resolve a
// targetKey they received back from DueDOTsHOTs without needing to name
// the unexported type themselves.
func (k targetKey) IsPlayer() bool          { return k.isPlayer }
func (k targetKey) Session() ids.SessionId  { return k.session }
func (k targetKey) Mob() model.MobId        { return k.mob }

// StatusEffects tracks every ActiveEffect per target plus a per-target
// stacks-by-kind count, so a snapshot read is O(effects) rather than
// O(effects^2) re-scanning the effect list to count stacks each time.
type StatusEffects struct {
	byTarget map[targetKey][]model.ActiveEffect
	stacks   map[targetKey]map[model.EffectKind]int
}

func NewStatusEffects() *StatusEffects {
	return &StatusEffects{
		byTarget: make(map[targetKey][]model.ActiveEffect),
		stacks:   make(map[targetKey]map[model.EffectKind]int),
	}
}

func (s *StatusEffects) add(key targetKey, eff model.ActiveEffect) {
	s.byTarget[key] = append(s.byTarget[key], eff)
	m, ok := s.stacks[key]
	if !ok {
		m = make(map[model.EffectKind]int)
		s.stacks[key] = m
	}
	m[eff.Kind]++
}

func (s *StatusEffects) AddToPlayer(sid ids.SessionId, eff model.ActiveEffect) {
	s.add(playerKey(sid), eff)
}

func (s *StatusEffects) AddToMob(mob model.MobId, eff model.ActiveEffect) {
	s.add(mobKey(mob), eff)
}

func (s *StatusEffects) remove(key targetKey, idx int) {
	effs := s.byTarget[key]
	kind := effs[idx].Kind
	effs = append(effs[:idx], effs[idx+1:]...)
	if len(effs) == 0 {
		delete(s.byTarget, key)
	} else {
		s.byTarget[key] = effs
	}
	if m, ok := s.stacks[key]; ok {
		m[kind]--
		if m[kind] <= 0 {
			delete(m, kind)
		}
		if len(m) == 0 {
			delete(s.stacks, key)
		}
	}
}

// ExpireOutcome is what Tick found happened to one effect during
// ExpirePlayer/ExpireMob.
type ExpireOutcome struct {
	Effect model.ActiveEffect
}

// ExpirePlayer removes every expired effect on sid as of now, returning
// them for the caller to react to (e.g. clear a STUN-driven UI flag).
// A SHIELD whose remaining absorb has been exhausted (Magnitude <= 0) is
// treated as expired even before its deadline.
func (s *StatusEffects) ExpirePlayer(sid ids.SessionId, now time.Time) []ExpireOutcome {
	return s.expire(playerKey(sid), now)
}

func (s *StatusEffects) ExpireMob(mob model.MobId, now time.Time) []ExpireOutcome {
	return s.expire(mobKey(mob), now)
}

func (s *StatusEffects) expire(key targetKey, now time.Time) []ExpireOutcome {
	effs := s.byTarget[key]
	var out []ExpireOutcome
	for i := 0; i < len(effs); {
		e := effs[i]
		expired := !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
		if e.Kind == model.EffectShield && e.Magnitude <= 0 {
			expired = true
		}
		if expired {
			out = append(out, ExpireOutcome{Effect: e})
			s.remove(key, i)
			effs = s.byTarget[key]
			continue
		}
		i++
	}
	return out
}

// DueDOTsHOTs returns effects of kind DOT/HOT whose NextTickAt has
// passed, advancing NextTickAt in place so the caller applies the tick
// amount exactly once per due interval.
func (s *StatusEffects) DueDOTsHOTs(now time.Time, interval time.Duration) map[targetKey][]model.ActiveEffect {
	due := make(map[targetKey][]model.ActiveEffect)
	for k, effs := range s.byTarget {
		for i := range effs {
			e := &effs[i]
			if e.Kind != model.EffectDamageOverTime && e.Kind != model.EffectHealOverTime {
				continue
			}
			if now.Before(e.NextTickAt) {
				continue
			}
			due[k] = append(due[k], *e)
			e.NextTickAt = e.NextTickAt.Add(interval)
		}
	}
	return due
}

// AbsorbPlayerDamage passes incoming damage through any active SHIELD
// effects on sid, decrementing their remaining absorb and returning the
// damage that gets through plus the amount absorbed.
func (s *StatusEffects) AbsorbPlayerDamage(sid ids.SessionId, amount int32) (int32, int32) {
	key := playerKey(sid)
	effs := s.byTarget[key]
	absorbed := int32(0)
	for i := range effs {
		if effs[i].Kind != model.EffectShield || amount <= 0 {
			continue
		}
		take := int32(effs[i].Magnitude)
		if take > amount {
			take = amount
		}
		effs[i].Magnitude -= float64(take)
		amount -= take
		absorbed += take
	}
	return amount, absorbed
}

// GetPlayerStatMods folds every active attribute-buff/debuff effect on
// sid into a single StatMods delta.
func (s *StatusEffects) GetPlayerStatMods(sid ids.SessionId) model.StatMods {
	var mods model.StatMods
	for _, e := range s.byTarget[playerKey(sid)] {
		sign := int32(1)
		if e.Kind == model.EffectAttributeDebuff {
			sign = -1
		} else if e.Kind != model.EffectAttributeBuff {
			continue
		}
		mods.Str += sign * int32(e.Magnitude)
	}
	return mods
}

func (s *StatusEffects) HasPlayerEffect(sid ids.SessionId, kind model.EffectKind) bool {
	return s.stacks[playerKey(sid)][kind] > 0
}

func (s *StatusEffects) HasMobEffect(mob model.MobId, kind model.EffectKind) bool {
	return s.stacks[mobKey(mob)][kind] > 0
}
