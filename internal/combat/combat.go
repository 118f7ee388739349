// Package combat implements the N-to-M Combat Core: per-mob tick
// cadence, threat-weighted mob targeting, damage/dodge/absorb
// resolution, death handling with group XP split, flee, and healing
// threat fan-in.
package combat

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/registry"
	"github.com/ambonmud/server/internal/scripting"
	"github.com/ambonmud/server/internal/threat"
	"github.com/ambonmud/server/internal/vitals"
)

// Config holds every numeric tunable the per-tick combat formulas read,
// populated from internal/config at startup.
type Config struct {
	TickPeriod              time.Duration
	MaxCombatsPerTick       int
	StrDivisor              int32
	DexDodgePerPoint        float64
	MaxDodgePct             float64
	HealingThreatMultiplier float64
	BonusPerExtraMember     float64
	BaseStrength            int32
	BaseDexterity           int32
}

// mobCombatState tracks one mob's per-tick attack cadence while it has
// any live opponent.
type mobCombatState struct {
	nextTickAt time.Time
}

// Core is the live N:M combat tracker. playerTarget and activeMobs are
// the two maps named directly in the spec; all threat itself lives in
// the Threat Table, not here.
type Core struct {
	cfg Config

	playerTarget map[ids.SessionId]model.MobId
	activeMobs   map[model.MobId]*mobCombatState

	threatTable *threat.Table
	status      *vitals.StatusEffects
	rules       *scripting.Engine

	players *registry.PlayerRegistry
	mobs    *registry.MobRegistry
	items   *registry.ItemRegistry

	hooks  Hooks
	groups GroupLookup

	rng func(n int) int
}

// Hooks lets Group/Quest/Achievement callbacks (external to this
// package) observe combat events without Core depending on them
// directly; every hook is a pure function invoked synchronously, per
// the spec, with no persistence write.
type Hooks interface {
	OnDamageDealt(attacker ids.SessionId, mob model.MobId, amount int32)
	OnKill(contributors []ids.SessionId, mob model.MobId)
	OnHeal(healer ids.SessionId, amount int32)
	OnLevelUp(sid ids.SessionId, newLevel int32)
}

// Broadcaster is how Core tells the outside world things happened: room
// broadcasts, per-session text, and prompts. Kept as a narrow interface
// so Core never imports the bus package directly.
type Broadcaster interface {
	ToSession(sid ids.SessionId, text string)
	ToRoomExcept(room model.RoomId, except ids.SessionId, text string)
	Prompt(sid ids.SessionId)
}

func New(cfg Config, status *vitals.StatusEffects, rules *scripting.Engine, players *registry.PlayerRegistry, mobs *registry.MobRegistry, items *registry.ItemRegistry, hooks Hooks) *Core {
	return &Core{
		cfg:          cfg,
		playerTarget: make(map[ids.SessionId]model.MobId),
		activeMobs:   make(map[model.MobId]*mobCombatState),
		threatTable:  threat.New(),
		status:       status,
		rules:        rules,
		players:      players,
		mobs:         mobs,
		items:        items,
		hooks:        hooks,
		rng:          rand.Intn,
	}
}

// StartCombat locates a mob in the player's room by case-insensitive
// substring over name, ordered alphabetically on ties, and begins
// combat against it.
func (c *Core) StartCombat(now time.Time, sid ids.SessionId, keyword string, b Broadcaster) error {
	p, ok := c.players.Get(sid)
	if !ok {
		return fmt.Errorf("combat: unknown session")
	}
	if existing, fighting := c.playerTarget[sid]; fighting {
		if mob, ok := c.mobs.Get(existing); ok {
			return fmt.Errorf("You are already fighting %s", mob.Name)
		}
	}

	mobId, found := c.mobs.FindByNameSubstring(p.RoomId, keyword)
	if !found {
		return fmt.Errorf("You don't see that here")
	}
	mob, _ := c.mobs.Get(mobId)

	c.playerTarget[sid] = mobId
	if _, ok := c.activeMobs[mobId]; !ok {
		c.activeMobs[mobId] = &mobCombatState{nextTickAt: now.Add(c.cfg.TickPeriod)}
	}
	c.threatTable.Add(mobId, sid, 1.0*p.Class.ThreatMultiplier())

	b.ToSession(sid, fmt.Sprintf("You attack %s", mob.Name))
	b.ToRoomExcept(p.RoomId, sid, fmt.Sprintf("%s attacks %s", p.Name, mob.Name))
	return nil
}

// Flee removes sid from combat entirely: its target, all threat entries,
// and (if the mob is now uncontested) the mob from activeMobs.
func (c *Core) Flee(sid ids.SessionId, b Broadcaster) {
	mobId, fighting := c.playerTarget[sid]
	if !fighting {
		return
	}
	var mobName string
	if mob, ok := c.mobs.Get(mobId); ok {
		mobName = mob.Name
	}
	delete(c.playerTarget, sid)
	c.threatTable.RemovePlayer(sid)
	if !c.threatTable.HasEntry(mobId) {
		delete(c.activeMobs, mobId)
	}
	b.ToSession(sid, fmt.Sprintf("You flee from %s", mobName))
	b.Prompt(sid)
}

// Engage starts combat from the mob's side: an aggressive mob noticing a
// player in its room, rather than a player issuing a kill command. It
// skips the "already fighting" rejection StartCombat applies to players,
// since a mob can be fought by several players at once, and seeds only
// enough threat to make the mob attack back — the aggressor's own
// Behavior Tree decides whether to keep choosing this target.
func (c *Core) Engage(now time.Time, mobId model.MobId, sid ids.SessionId, b Broadcaster) {
	mob, ok := c.mobs.Get(mobId)
	if !ok {
		return
	}
	p, ok := c.players.Get(sid)
	if !ok {
		return
	}
	if _, fighting := c.playerTarget[sid]; !fighting {
		c.playerTarget[sid] = mobId
	}
	if _, ok := c.activeMobs[mobId]; !ok {
		c.activeMobs[mobId] = &mobCombatState{nextTickAt: now.Add(c.cfg.TickPeriod)}
	}
	c.threatTable.Add(mobId, sid, 1.0*p.Class.ThreatMultiplier())
	b.ToSession(sid, fmt.Sprintf("%s attacks you!", mob.Name))
}

// IsFighting reports whether sid currently has a combat target, so
// mob AI can skip aggro scanning for players already engaged.
func (c *Core) IsFighting(sid ids.SessionId) bool {
	_, ok := c.playerTarget[sid]
	return ok
}

// IsMobActive reports whether mobId is currently in combat (has an
// active-combat entry), so mob AI only scans for new targets once a mob is
// idle.
func (c *Core) IsMobActive(mobId model.MobId) bool {
	_, ok := c.activeMobs[mobId]
	return ok
}

// DropCombat rolls sid out of any active combat, clearing its target and
// its threat entries on every mob, without killing or transferring the
// target mob's remaining threat to anyone else. Used by the Handoff
// Manager before removing a player from this engine's registry (§4.12
// step 4: "rolling any active combat off, removing threat").
func (c *Core) DropCombat(sid ids.SessionId) {
	delete(c.playerTarget, sid)
	c.threatTable.RemovePlayer(sid)
}

func (c *Core) shuffle(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := c.rng(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func (c *Core) roll(min, max int32) int32 {
	if max <= min {
		return min
	}
	return min + int32(c.rng(int(max-min+1)))
}

// equipSlots enumerates every wearable slot the Item Registry tracks;
// SlotNone is excluded since nothing is ever equipped there.
var equipSlots = []model.EquipSlot{
	model.SlotWeaponMain, model.SlotWeaponOff,
	model.SlotHead, model.SlotChest, model.SlotHands, model.SlotLegs, model.SlotFeet,
	model.SlotRing1, model.SlotRing2, model.SlotNeck,
}

// Unarmed damage range, used when SlotWeaponMain is empty.
const (
	unarmedMinDamage int32 = 1
	unarmedMaxDamage int32 = 4
)

// equipStatMods sums the Mods of every item sid currently has equipped.
// Combined with StatusEffects.GetPlayerStatMods at each resolution site,
// this is the equipment half of a player's effective StatMods.
func (c *Core) equipStatMods(sid ids.SessionId) model.StatMods {
	var mods model.StatMods
	for _, slot := range equipSlots {
		itemId, ok := c.items.ItemEquippedAt(sid, slot)
		if !ok {
			continue
		}
		item, ok := c.items.Get(itemId)
		if !ok {
			continue
		}
		mods.Str += item.Mods.Str
		mods.Dex += item.Mods.Dex
		mods.Con += item.Mods.Con
		mods.Int += item.Mods.Int
		mods.Wis += item.Mods.Wis
		mods.Cha += item.Mods.Cha
		mods.AttackBonus += item.Mods.AttackBonus
		mods.DodgeBonus += item.Mods.DodgeBonus
	}
	return mods
}

// weaponDamageRange resolves sid's main-hand weapon roll range, falling
// back to the unarmed range when nothing is equipped there (or the
// equipped item isn't a weapon).
func (c *Core) weaponDamageRange(sid ids.SessionId) (int32, int32) {
	itemId, ok := c.items.ItemEquippedAt(sid, model.SlotWeaponMain)
	if !ok {
		return unarmedMinDamage, unarmedMaxDamage
	}
	item, ok := c.items.Get(itemId)
	if !ok || item.WeaponMaxDamage <= 0 {
		return unarmedMinDamage, unarmedMaxDamage
	}
	return item.WeaponMinDamage, item.WeaponMaxDamage
}
