package combat

import (
	"fmt"
	"time"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// GroupLookup resolves a killer's groupmates sharing their room, used
// only for the XP-split rule; the Group System itself lives outside
// this package.
type GroupLookup interface {
	MembersInRoom(sid ids.SessionId, room model.RoomId) []ids.SessionId
}

// SetGroups wires the Group System lookup in after construction, since
// the group package in turn depends on model types Combat Core also
// uses; breaking the cycle this way keeps both packages free to import
// only model, not each other.
func (c *Core) SetGroups(g GroupLookup) { c.groups = g }

// handleMobDeath removes mobId from combat and from the registry, drops
// its items to the room, rolls loot, grants gold to the killer, and
// splits XP across the killer's same-room group (or awards it solely to
// the killer if ungrouped). Quest/achievement hooks fire for every
// contributor, not just the killer.
func (c *Core) handleMobDeath(now time.Time, mobId model.MobId, mob *model.MobState, b Broadcaster) {
	contributors := c.contributorsOf(mobId)
	killerSid, hasKiller := c.killerOf(mobId)

	for _, sid := range contributors {
		delete(c.playerTarget, sid)
	}
	delete(c.activeMobs, mobId)
	c.threatTable.RemoveMob(mobId)

	room := mob.RoomId
	for _, itemId := range c.items.ItemsOnMob(mobId) {
		_ = c.items.MoveTo(itemId, model.ItemLocation{Kind: model.LocationRoom, RoomId: room})
	}
	for _, drop := range mob.Drops {
		if c.rng(10000) < int(drop.Chance*10000) {
			// content loading is external; only the drop roll itself
			// lives in the core, the actual item instantiation is left
			// to the caller via the broadcast text below.
			b.ToRoomExcept(room, 0, fmt.Sprintf("%s drops something.", mob.Name))
		}
	}

	c.mobs.Remove(mobId)
	b.ToRoomExcept(room, 0, fmt.Sprintf("%s dies.", mob.Name))

	if hasKiller {
		c.awardKill(killerSid, mob, room, b)
	}

	if c.hooks != nil {
		c.hooks.OnKill(contributors, mobId)
	}
}

func (c *Core) contributorsOf(mobId model.MobId) []ids.SessionId {
	var out []ids.SessionId
	for sid, target := range c.playerTarget {
		if target == mobId {
			out = append(out, sid)
		}
	}
	return out
}

// killerOf picks the single highest-threat contributor as the kill
// credit holder, matching startCombat's own "current target" framing.
func (c *Core) killerOf(mobId model.MobId) (ids.SessionId, bool) {
	return c.threatTable.Top(mobId, func(ids.SessionId) bool { return true })
}

func (c *Core) awardKill(killerSid ids.SessionId, mob *model.MobState, room model.RoomId, b Broadcaster) {
	killer, ok := c.players.Get(killerSid)
	if !ok {
		return
	}

	gold := mob.Gold.Min
	if mob.Gold.Max > mob.Gold.Min {
		gold += int32(c.rng(int(mob.Gold.Max - mob.Gold.Min + 1)))
	}
	killer.Gold += int64(gold)

	recipients := []ids.SessionId{killerSid}
	if killer.GroupId != nil && c.groups != nil {
		recipients = c.groups.MembersInRoom(killerSid, room)
		if len(recipients) == 0 {
			recipients = []ids.SessionId{killerSid}
		}
	}

	n := len(recipients)
	bonus := 1.0
	if n > 1 {
		bonus = 1.0 + float64(n-1)*c.cfg.BonusPerExtraMember
	}
	perMemberXP := float64(mob.XPReward) / float64(n) * bonus

	for _, sid := range recipients {
		p, ok := c.players.Get(sid)
		if !ok {
			continue
		}
		charismaBonus := 1.0 + float64(p.Charisma)*0.001
		grant := int64(perMemberXP * charismaBonus)
		p.XPTotal += grant
		b.ToSession(sid, fmt.Sprintf("You gain %d experience.", grant))

		if c.rules != nil {
			newLevel := c.rules.LevelFromExp(p.XPTotal)
			if newLevel > p.Level {
				p.Level = newLevel
				if c.hooks != nil {
					c.hooks.OnLevelUp(sid, newLevel)
				}
				b.ToSession(sid, fmt.Sprintf("You are now level %d!", newLevel))
			}
		}
	}
}

// handlePlayerDeath marks a player dead: emits death text, broadcasts to
// the room, and clears their combat target.
func (c *Core) handlePlayerDeath(sid ids.SessionId, p *model.PlayerState, b Broadcaster) {
	delete(c.playerTarget, sid)
	c.threatTable.RemovePlayer(sid)
	b.ToSession(sid, "You have died.")
	b.ToRoomExcept(p.RoomId, sid, fmt.Sprintf("%s has died.", p.Name))
}
