// Package threat implements the per-mob cumulative threat table that
// Combat Core uses to pick a mob's attack target. Threat is additive and
// never decays on its own; only explicit removal (death, disconnect,
// flee) clears an entry.
package threat

import (
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// Table is a mobId -> sessionId -> cumulative-threat map. Negative
// contributions are allowed (threat-wipe effects); an inner map that
// drops to empty removes its mob row entirely so idle mobs don't
// accumulate garbage rows over a long uptime.
type Table struct {
	byMob map[model.MobId]map[ids.SessionId]float64
	// order tracks insertion order per mob so Top can break ties
	// deterministically without relying on map iteration order.
	order map[model.MobId][]ids.SessionId
}

func New() *Table {
	return &Table{
		byMob: make(map[model.MobId]map[ids.SessionId]float64),
		order: make(map[model.MobId][]ids.SessionId),
	}
}

// Add records delta threat from sid against mob, creating the row if
// needed. delta may be negative.
func (t *Table) Add(mob model.MobId, sid ids.SessionId, delta float64) {
	row, ok := t.byMob[mob]
	if !ok {
		row = make(map[ids.SessionId]float64)
		t.byMob[mob] = row
	}
	if _, existed := row[sid]; !existed {
		t.order[mob] = append(t.order[mob], sid)
	}
	row[sid] += delta
}

// Top returns the predicate-satisfying session with maximum cumulative
// threat against mob, breaking ties by insertion order (earliest wins).
func (t *Table) Top(mob model.MobId, predicate func(ids.SessionId) bool) (ids.SessionId, bool) {
	row, ok := t.byMob[mob]
	if !ok {
		return 0, false
	}
	var best ids.SessionId
	bestAmount := 0.0
	found := false
	for _, sid := range t.order[mob] {
		amount, ok := row[sid]
		if !ok || !predicate(sid) {
			continue
		}
		if !found || amount > bestAmount {
			best, bestAmount, found = sid, amount, true
		}
	}
	return best, found
}

// RemovePlayer removes sid from every mob's threat row, deleting rows
// that become empty.
func (t *Table) RemovePlayer(sid ids.SessionId) {
	for mob, row := range t.byMob {
		if _, ok := row[sid]; !ok {
			continue
		}
		delete(row, sid)
		t.order[mob] = removeSid(t.order[mob], sid)
		if len(row) == 0 {
			delete(t.byMob, mob)
			delete(t.order, mob)
		}
	}
}

// RemoveMob drops all threat tracked against mob.
func (t *Table) RemoveMob(mob model.MobId) {
	delete(t.byMob, mob)
	delete(t.order, mob)
}

// RemapSession merges old's threat entries into new across every mob,
// used when a session id changes identity (e.g. reconnection after a
// transport-lost RPC gap) but the character is the same combatant.
func (t *Table) RemapSession(old, newSid ids.SessionId) {
	for mob, row := range t.byMob {
		amount, ok := row[old]
		if !ok {
			continue
		}
		delete(row, old)
		t.order[mob] = removeSid(t.order[mob], old)
		if _, existed := row[newSid]; !existed {
			t.order[mob] = append(t.order[mob], newSid)
		}
		row[newSid] += amount
	}
}

// HasEntry reports whether mob has any threat tracked against it at
// all, used to detect combat-eligible mobs.
func (t *Table) HasEntry(mob model.MobId) bool {
	row, ok := t.byMob[mob]
	return ok && len(row) > 0
}

func removeSid(list []ids.SessionId, sid ids.SessionId) []ids.SessionId {
	for i, v := range list {
		if v == sid {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
