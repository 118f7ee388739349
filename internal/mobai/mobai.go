// Package mobai implements the Simulation phase's mob-behavior step.
// Target detection and room geometry stay in Go; the decision of what a
// mob does with them is delegated to the external rules tables hosted in
// internal/scripting, the same split the teacher's NPC AI system used
// between Go-driven detection and Lua-driven decision logic.
package mobai

import (
	"time"

	"github.com/ambonmud/server/internal/combat"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/registry"
	"github.com/ambonmud/server/internal/scripting"
)

// RoomSource resolves a room's static content for exit-based wandering.
type RoomSource interface {
	Room(id model.RoomId) (*model.Room, bool)
}

// Config tunes the per-tick mob-AI budget.
type Config struct {
	MaxMobsPerTick int
}

// AI runs one behavior-tree decision per eligible mob per tick.
type AI struct {
	cfg     Config
	rules   *scripting.Engine
	mobs    *registry.MobRegistry
	players *registry.PlayerRegistry
	combat  *combat.Core
	rooms   RoomSource
	rng     func(n int) int
	shuffle func([]model.MobId)
}

func New(cfg Config, rules *scripting.Engine, mobs *registry.MobRegistry, players *registry.PlayerRegistry, core *combat.Core, rooms RoomSource, rng func(n int) int, shuffle func([]model.MobId)) *AI {
	if shuffle == nil {
		shuffle = func([]model.MobId) {}
	}
	return &AI{cfg: cfg, rules: rules, mobs: mobs, players: players, combat: core, rooms: rooms, rng: rng, shuffle: shuffle}
}

// Tick visits up to MaxMobsPerTick shuffled mobs, skipping any already
// in active combat, and carries out whatever the rules table decides.
func (a *AI) Tick(now time.Time, b combat.Broadcaster) {
	if a.rules == nil {
		return
	}
	mobIds := a.mobs.AllMobIds()
	a.shuffle(mobIds)

	budget := a.cfg.MaxMobsPerTick
	if budget <= 0 || budget > len(mobIds) {
		budget = len(mobIds)
	}

	for i := 0; i < budget; i++ {
		id := mobIds[i]
		mob, ok := a.mobs.Get(id)
		if !ok || mob.HP <= 0 {
			continue
		}
		if a.combat.IsMobActive(id) {
			continue
		}

		decision := a.rules.DecideMobAction(mob.TemplateKey, false)
		switch decision.Action {
		case scripting.MobActionEngageNearest:
			a.engageNearest(now, mob, b)
		case scripting.MobActionWander:
			a.wander(mob)
		}
	}
}

func (a *AI) engageNearest(now time.Time, mob *model.MobState, b combat.Broadcaster) {
	candidates := a.players.PlayersInRoom(mob.RoomId)
	if len(candidates) == 0 {
		return
	}
	target := candidates[a.rng(len(candidates))]
	a.combat.Engage(now, mob.Id, target, b)
}

func (a *AI) wander(mob *model.MobState) {
	if a.rooms == nil {
		return
	}
	room, ok := a.rooms.Room(mob.RoomId)
	if !ok || len(room.Exits) == 0 {
		return
	}
	exit := room.Exits[a.rng(len(room.Exits))]
	_ = a.mobs.MoveTo(mob.Id, exit.ToRoomId)
}
