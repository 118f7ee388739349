// Package vitals implements the Regen, Status Effect, and Ability
// systems (spec §4.6): periodic HP/mana regeneration, timed status
// effects with stacking and absorb, and ability cast resolution that
// hands damage/heal/status application back to Combat Core so threat
// and death handling stay uniform across both auto-attacks and spells.
package vitals

import (
	"time"

	"github.com/ambonmud/server/internal/dirty"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/registry"
)

// RegenConfig holds the tunables the per-tick regen formulas read;
// populated from internal/config at startup.
type RegenConfig struct {
	HPBaseIntervalMs    int64
	HPMsPerConstitution int64
	HPMinIntervalMs     int64
	HPAmount            int32

	ManaBaseIntervalMs    int64
	ManaMsPerWisdom       int64
	ManaMinIntervalMs     int64
	ManaAmount            int32

	MaxPlayersPerTick int
}

// Regen advances HP/mana for players whose regen interval has elapsed,
// shuffled and capped per tick like every other per-player simulation
// phase so no single phase can starve the rest of the tick.
type Regen struct {
	cfg              RegenConfig
	lastRegenAtMs    map[ids.SessionId]int64
	lastManaRegenAtMs map[ids.SessionId]int64
	shuffle          func([]ids.SessionId)
}

func NewRegen(cfg RegenConfig, shuffle func([]ids.SessionId)) *Regen {
	if shuffle == nil {
		shuffle = func([]ids.SessionId) {}
	}
	return &Regen{
		cfg:               cfg,
		lastRegenAtMs:     make(map[ids.SessionId]int64),
		lastManaRegenAtMs: make(map[ids.SessionId]int64),
		shuffle:           shuffle,
	}
}

func (r *Regen) hpIntervalFor(totalCon int32) int64 {
	interval := r.cfg.HPBaseIntervalMs - int64(totalCon)*r.cfg.HPMsPerConstitution
	if interval < r.cfg.HPMinIntervalMs {
		interval = r.cfg.HPMinIntervalMs
	}
	return interval
}

func (r *Regen) manaIntervalFor(totalWis int32) int64 {
	interval := r.cfg.ManaBaseIntervalMs - int64(totalWis)*r.cfg.ManaMsPerWisdom
	if interval < r.cfg.ManaMinIntervalMs {
		interval = r.cfg.ManaMinIntervalMs
	}
	return interval
}

// Tick advances regen for up to MaxPlayersPerTick shuffled sessions,
// marking vitals dirty for any player that actually changed.
func (r *Regen) Tick(now time.Time, sessions []ids.SessionId, players *registry.PlayerRegistry, dirtySet *dirty.Set[ids.SessionId]) {
	r.shuffle(sessions)
	nowMs := now.UnixMilli()

	budget := r.cfg.MaxPlayersPerTick
	if budget <= 0 || budget > len(sessions) {
		budget = len(sessions)
	}

	for i := 0; i < budget; i++ {
		sid := sessions[i]
		p, ok := players.Get(sid)
		if !ok {
			continue
		}
		changed := false

		if p.HP < p.MaxHP {
			last := r.lastRegenAtMs[sid]
			if nowMs-last >= r.hpIntervalFor(p.Constitution) {
				p.HP += r.cfg.HPAmount
				if p.HP > p.MaxHP {
					p.HP = p.MaxHP
				}
				r.lastRegenAtMs[sid] = nowMs
				changed = true
			}
		}

		if p.Mana < p.MaxMana {
			last := r.lastManaRegenAtMs[sid]
			if nowMs-last >= r.manaIntervalFor(p.Wisdom) {
				p.Mana += r.cfg.ManaAmount
				if p.Mana > p.MaxMana {
					p.Mana = p.MaxMana
				}
				r.lastManaRegenAtMs[sid] = nowMs
				changed = true
			}
		}

		if changed {
			dirtySet.Mark(sid)
		}
	}
}

// OnDisconnect drops a session's regen bookkeeping so long-lived maps
// don't grow unbounded across the server's uptime.
func (r *Regen) OnDisconnect(sid ids.SessionId) {
	delete(r.lastRegenAtMs, sid)
	delete(r.lastManaRegenAtMs, sid)
}
