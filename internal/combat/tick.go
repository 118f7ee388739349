package combat

import (
	"time"

	"github.com/ambonmud/server/internal/dirty"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// Tick runs one combat phase: player attacks first (shuffled, capped),
// then mob attacks (shuffled, capped against the remaining per-tick
// budget), matching the spec's two-pass per-tick structure.
func (c *Core) Tick(now time.Time, b Broadcaster, vitalsDirty *dirty.Set[ids.SessionId], mobDirty *dirty.Set[model.MobId]) {
	budget := c.cfg.MaxCombatsPerTick
	spent := c.tickPlayers(now, b, vitalsDirty, mobDirty, budget)
	if spent < budget {
		c.tickMobs(now, b, vitalsDirty, mobDirty, budget-spent)
	}
}

// playerMobPair is one (sid, mobId) entry snapshotted before shuffling
// so mutation during iteration (e.g. a death removing entries) never
// invalidates the iteration itself.
type playerMobPair struct {
	sid ids.SessionId
	mob model.MobId
}

func (c *Core) tickPlayers(now time.Time, b Broadcaster, vitalsDirty *dirty.Set[ids.SessionId], mobDirty *dirty.Set[model.MobId], budget int) int {
	pairs := make([]playerMobPair, 0, len(c.playerTarget))
	for sid, mob := range c.playerTarget {
		pairs = append(pairs, playerMobPair{sid, mob})
	}
	order := c.shuffle(len(pairs))

	spent := 0
	for _, idx := range order {
		if spent >= budget {
			break
		}
		pair := pairs[idx]
		if _, stillFighting := c.playerTarget[pair.sid]; !stillFighting {
			continue // already resolved earlier this loop (e.g. death)
		}
		c.resolvePlayerAttack(now, pair.sid, pair.mob, b, vitalsDirty, mobDirty)
		spent++
	}
	return spent
}

func (c *Core) resolvePlayerAttack(now time.Time, sid ids.SessionId, mobId model.MobId, b Broadcaster, vitalsDirty *dirty.Set[ids.SessionId], mobDirty *dirty.Set[model.MobId]) {
	p, ok := c.players.Get(sid)
	if !ok {
		delete(c.playerTarget, sid)
		return
	}
	mob, ok := c.mobs.Get(mobId)
	if !ok || mob.RoomId != p.RoomId {
		delete(c.playerTarget, sid)
		c.threatTable.RemovePlayer(sid)
		b.ToSession(sid, "Your opponent is no longer here.")
		b.Prompt(sid)
		return
	}

	if p.HP <= 0 {
		c.handlePlayerDeath(sid, p, b)
		return
	}

	if c.status.HasPlayerEffect(sid, model.EffectStun) {
		b.ToSession(sid, "You are stunned and cannot act.")
		return
	}

	statMods := c.status.GetPlayerStatMods(sid)
	equipMods := c.equipStatMods(sid)
	totalStr := p.Strength + statMods.Str + equipMods.Str
	strBonus := (totalStr - c.cfg.BaseStrength) / c.cfg.StrDivisor

	minDmg, maxDmg := c.weaponDamageRange(sid)
	damage := c.roll(minDmg, maxDmg) + statMods.AttackBonus + equipMods.AttackBonus + strBonus
	damage -= mob.Armor
	if damage < 1 {
		damage = 1
	}

	mob.HP -= damage
	mobDirty.Mark(mobId)
	c.threatTable.Add(mobId, sid, float64(damage)*p.Class.ThreatMultiplier())
	if c.hooks != nil {
		c.hooks.OnDamageDealt(sid, mobId, damage)
	}

	if mob.HP <= 0 {
		c.handleMobDeath(now, mobId, mob, b)
	}
}

func (c *Core) tickMobs(now time.Time, b Broadcaster, vitalsDirty *dirty.Set[ids.SessionId], mobDirty *dirty.Set[model.MobId], budget int) {
	mobIds := make([]model.MobId, 0, len(c.activeMobs))
	for id := range c.activeMobs {
		mobIds = append(mobIds, id)
	}
	order := c.shuffle(len(mobIds))

	spent := 0
	for _, idx := range order {
		if spent >= budget {
			break
		}
		mobId := mobIds[idx]
		state, ok := c.activeMobs[mobId]
		if !ok || now.Before(state.nextTickAt) {
			continue
		}
		c.resolveMobAttack(now, mobId, state, b, vitalsDirty)
		spent++
	}
}

func (c *Core) resolveMobAttack(now time.Time, mobId model.MobId, state *mobCombatState, b Broadcaster, vitalsDirty *dirty.Set[ids.SessionId]) {
	mob, ok := c.mobs.Get(mobId)
	if !ok {
		delete(c.activeMobs, mobId)
		return
	}

	targetSid, found := c.threatTable.Top(mobId, func(sid ids.SessionId) bool {
		p, ok := c.players.Get(sid)
		return ok && p.RoomId == mob.RoomId
	})
	if !found {
		delete(c.activeMobs, mobId)
		return
	}

	p, _ := c.players.Get(targetSid)
	statMods := c.status.GetPlayerStatMods(targetSid)
	equipMods := c.equipStatMods(targetSid)
	totalDex := p.Dexterity + statMods.Dex + equipMods.Dex
	dodgePct := float64(totalDex-c.cfg.BaseDexterity)*c.cfg.DexDodgePerPoint + statMods.DodgeBonus + equipMods.DodgeBonus
	if dodgePct < 0 {
		dodgePct = 0
	}
	if dodgePct > c.cfg.MaxDodgePct {
		dodgePct = c.cfg.MaxDodgePct
	}

	dodged := float64(c.rng(10000))/10000.0 < dodgePct
	if !dodged {
		raw := c.roll(mob.MinDamage, mob.MaxDamage)
		afterShield, _ := c.status.AbsorbPlayerDamage(targetSid, raw)
		p.HP -= afterShield
		vitalsDirty.Mark(targetSid)

		if p.HP <= 0 {
			c.handlePlayerDeath(targetSid, p, b)
			delete(c.playerTarget, targetSid)
		}
	}

	state.nextTickAt = state.nextTickAt.Add(c.cfg.TickPeriod)
	for sid := range c.playerTarget {
		if c.playerTarget[sid] == mobId {
			b.Prompt(sid)
		}
	}
}

// HealingThreat adds H*healingThreatMultiplier threat to every mob in
// the healer's room that currently has threat from any same-room
// groupmate, preventing cross-room aggro accumulation.
func (c *Core) HealingThreat(healerSid ids.SessionId, room model.RoomId, amount int32, groupmates func(ids.SessionId) []ids.SessionId) {
	threatAmount := float64(amount) * c.cfg.HealingThreatMultiplier
	mates := groupmates(healerSid)
	for mobId := range c.activeMobs {
		mob, ok := c.mobs.Get(mobId)
		if !ok || mob.RoomId != room {
			continue
		}
		for _, mate := range mates {
			if _, has := c.threatTable.Top(mobId, func(s ids.SessionId) bool { return s == mate }); has {
				c.threatTable.Add(mobId, healerSid, threatAmount)
				break
			}
		}
	}
	if c.hooks != nil {
		c.hooks.OnHeal(healerSid, amount)
	}
}
