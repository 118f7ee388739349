package tick

import (
	"time"

	"github.com/ambonmud/server/internal/combat"
	"github.com/ambonmud/server/internal/dirty"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/mobai"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/registry"
	"github.com/ambonmud/server/internal/scheduler"
	"github.com/ambonmud/server/internal/vitals"
)

// ScheduledActionHandler carries out one due scheduled action. Each kind
// (mob respawn, invite expiry, effect expiry, ability-cooldown-ready,
// handoff ack timeout) is handled by a different package this one never
// imports directly, so the composition root registers one handler per
// kind rather than this package branching on all of them.
type ScheduledActionHandler func(now time.Time, action model.ScheduledAction)

// SimulationDeps wires every Simulation-phase collaborator together in
// the exact order named in the spec: scheduler drainDue, regen, status
// effects, mob behavior trees, combat, ability bookkeeping.
type SimulationDeps struct {
	Scheduler           *scheduler.Scheduler
	MaxScheduledPerTick int
	ActionHandlers      map[model.ScheduledActionKind]ScheduledActionHandler

	Regen   *vitals.Regen
	Status  *vitals.StatusEffects
	Players *registry.PlayerRegistry
	Mobs    *registry.MobRegistry

	StatusTickInterval time.Duration
	OnDOT              func(sid ids.SessionId, amount int32)
	OnHOT              func(sid ids.SessionId, amount int32)
	OnMobDOT           func(mob model.MobId, amount int32)
	OnEffectExpired    func(outcome vitals.ExpireOutcome, sid ids.SessionId, mob model.MobId, isPlayer bool)

	MobAI       *mobai.AI
	Combat      *combat.Core
	Broadcaster combat.Broadcaster

	Dirty *dirty.Sets

	Shuffle func([]ids.SessionId)
}

// RegisterSimulation registers the single Simulation-phase System that
// runs every sub-step in spec order. It is one System, not six, because
// the phase's time budget applies to the whole ordered sequence, not to
// any sub-step individually.
func RegisterSimulation(e *Engine, deps SimulationDeps) {
	e.RegisterFunc(PhaseSimulation, "simulation", func(now time.Time) {
		runSimulation(now, deps)
	})
}

func runSimulation(now time.Time, deps SimulationDeps) {
	drainScheduled(now, deps)

	sessions := deps.Players.AllSessionIds()
	if deps.Shuffle != nil {
		deps.Shuffle(sessions)
	}

	if deps.Regen != nil && deps.Dirty != nil {
		deps.Regen.Tick(now, sessions, deps.Players, deps.Dirty.PlayerVitals)
	}

	applyStatusEffects(now, sessions, deps)

	if deps.MobAI != nil {
		deps.MobAI.Tick(now, deps.Broadcaster)
	}

	if deps.Combat != nil && deps.Dirty != nil {
		deps.Combat.Tick(now, deps.Broadcaster, deps.Dirty.PlayerVitals, deps.Dirty.MobHP)
	}

	// Ability bookkeeping: per-session cooldown state is pruned lazily on
	// disconnect (vitals.Abilities.OnDisconnect), and a ready cooldown
	// needs no sweep since gating happens at cast time, not ahead of it.
	// This step is reserved for future scheduled-cast resolution (e.g. a
	// channeled ability whose effect fires on a later tick than the cast).
}

func drainScheduled(now time.Time, deps SimulationDeps) {
	if deps.Scheduler == nil {
		return
	}
	due := deps.Scheduler.DrainDue(now, deps.MaxScheduledPerTick)
	for _, action := range due {
		if h, ok := deps.ActionHandlers[action.Kind]; ok {
			h(now, action)
		}
	}
}

func applyStatusEffects(now time.Time, sessions []ids.SessionId, deps SimulationDeps) {
	if deps.Status == nil {
		return
	}

	due := deps.Status.DueDOTsHOTs(now, deps.StatusTickInterval)
	for key, effs := range due {
		for _, eff := range effs {
			amount := int32(eff.TickAmount)
			switch {
			case key.IsPlayer() && eff.Kind == model.EffectDamageOverTime:
				if deps.OnDOT != nil {
					deps.OnDOT(key.Session(), amount)
				}
				if deps.Dirty != nil {
					deps.Dirty.PlayerVitals.Mark(key.Session())
				}
			case key.IsPlayer() && eff.Kind == model.EffectHealOverTime:
				if deps.OnHOT != nil {
					deps.OnHOT(key.Session(), amount)
				}
				if deps.Dirty != nil {
					deps.Dirty.PlayerVitals.Mark(key.Session())
				}
			case !key.IsPlayer() && eff.Kind == model.EffectDamageOverTime:
				if deps.OnMobDOT != nil {
					deps.OnMobDOT(key.Mob(), amount)
				}
				if deps.Dirty != nil {
					deps.Dirty.MobHP.Mark(key.Mob())
				}
			}
		}
	}

	for _, sid := range sessions {
		outcomes := deps.Status.ExpirePlayer(sid, now)
		if len(outcomes) == 0 {
			continue
		}
		for _, o := range outcomes {
			if deps.OnEffectExpired != nil {
				deps.OnEffectExpired(o, sid, "", true)
			}
		}
		if deps.Dirty != nil {
			deps.Dirty.PlayerStatus.Mark(sid)
		}
	}

	if deps.Mobs == nil {
		return
	}
	for _, mobId := range deps.Mobs.AllMobIds() {
		outcomes := deps.Status.ExpireMob(mobId, now)
		if len(outcomes) == 0 {
			continue
		}
		for _, o := range outcomes {
			if deps.OnEffectExpired != nil {
				deps.OnEffectExpired(o, 0, mobId, false)
			}
		}
		if deps.Dirty != nil {
			deps.Dirty.MobHP.Mark(mobId)
		}
	}
}
