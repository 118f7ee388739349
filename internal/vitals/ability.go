package vitals

import (
	"errors"
	"time"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/scripting"
)

var (
	ErrUnknownAbility  = errors.New("vitals: unknown ability")
	ErrWrongClass      = errors.New("vitals: wrong class for this ability")
	ErrLevelTooLow     = errors.New("vitals: level too low for this ability")
	ErrNotEnoughMana   = errors.New("vitals: not enough mana")
	ErrOnCooldown      = errors.New("vitals: ability is on cooldown")
	ErrInvalidTarget   = errors.New("vitals: invalid target for this ability")
)

// cooldownKey is per-session, per-ability.
type cooldownKey struct {
	session ids.SessionId
	ability string
}

// Abilities resolves casts: class/level/mana/cooldown gates, then target
// resolution. It never applies damage/heal/status itself — the result
// it returns tells Combat Core what to do, so threat and death handling
// stay uniform between auto-attacks and spells.
type Abilities struct {
	rules      *scripting.Engine
	cooldowns  map[cooldownKey]time.Time
}

func NewAbilities(rules *scripting.Engine) *Abilities {
	return &Abilities{rules: rules, cooldowns: make(map[cooldownKey]time.Time)}
}

// ResolvedCast is what the caller (Combat Core) should do once a cast
// clears every gate.
type ResolvedCast struct {
	Def           *scripting.AbilityDef
	ResolvedTarget TargetRef
}

// TargetRef is a flat tagged variant over the caster, an enemy mob, or
// an ally player — whichever TargetKind the ability resolved to.
type TargetRef struct {
	Kind    scripting.TargetKind
	Session ids.SessionId
	Mob     model.MobId
}

// ClassBit maps a model.Class to its bit in AbilityDef.ClassMask.
func ClassBit(c model.Class) uint8 { return 1 << uint8(c) }

// Resolve runs every gate for caster casting abilityKey with the given
// raw keyword (used for ALLY targeting), resolving self/enemy/ally
// targeting per spec: ALLY with an empty keyword becomes SELF; ALLY with
// a keyword must name a group member in the same room.
func (a *Abilities) Resolve(
	now time.Time,
	caster *model.PlayerState,
	abilityKey string,
	keyword string,
	findMobInRoom func(room model.RoomId, keyword string) (model.MobId, bool),
	findAllyInRoom func(room model.RoomId, keyword string, casterGroupId *int64) (ids.SessionId, bool),
) (*ResolvedCast, error) {
	def, err := a.rules.GetAbility(abilityKey)
	if err != nil {
		return nil, ErrUnknownAbility
	}
	if def.ClassMask&ClassBit(caster.Class) == 0 {
		return nil, ErrWrongClass
	}
	if caster.Level < def.MinLevel {
		return nil, ErrLevelTooLow
	}
	if caster.Mana < def.ManaCost {
		return nil, ErrNotEnoughMana
	}
	ck := cooldownKey{session: caster.SessionId, ability: abilityKey}
	if until, ok := a.cooldowns[ck]; ok && now.Before(until) {
		return nil, ErrOnCooldown
	}

	target, err := a.resolveTarget(caster, def, keyword, findMobInRoom, findAllyInRoom)
	if err != nil {
		return nil, err
	}

	a.cooldowns[ck] = now.Add(time.Duration(def.CooldownMs) * time.Millisecond)
	return &ResolvedCast{Def: def, ResolvedTarget: target}, nil
}

func (a *Abilities) resolveTarget(
	caster *model.PlayerState,
	def *scripting.AbilityDef,
	keyword string,
	findMobInRoom func(room model.RoomId, keyword string) (model.MobId, bool),
	findAllyInRoom func(room model.RoomId, keyword string, casterGroupId *int64) (ids.SessionId, bool),
) (TargetRef, error) {
	switch def.Target {
	case scripting.TargetSelf:
		return TargetRef{Kind: scripting.TargetSelf, Session: caster.SessionId}, nil

	case scripting.TargetEnemy:
		mob, ok := findMobInRoom(caster.RoomId, keyword)
		if !ok {
			return TargetRef{}, ErrInvalidTarget
		}
		return TargetRef{Kind: scripting.TargetEnemy, Mob: mob}, nil

	case scripting.TargetAlly:
		if keyword == "" {
			return TargetRef{Kind: scripting.TargetSelf, Session: caster.SessionId}, nil
		}
		sid, ok := findAllyInRoom(caster.RoomId, keyword, caster.GroupId)
		if !ok {
			return TargetRef{}, ErrInvalidTarget
		}
		return TargetRef{Kind: scripting.TargetAlly, Session: sid}, nil

	default:
		return TargetRef{}, ErrInvalidTarget
	}
}

// OnDisconnect drops a session's cooldown bookkeeping.
func (a *Abilities) OnDisconnect(sid ids.SessionId) {
	for k := range a.cooldowns {
		if k.session == sid {
			delete(a.cooldowns, k)
		}
	}
}
