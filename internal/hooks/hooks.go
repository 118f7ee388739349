// Package hooks implements the Group/Quest/Achievement Hooks of §4.13:
// pure functions invoked synchronously by Combat Core on
// kill/damage/heal/level-up events. They mutate quest/achievement progress already carried on
// model.PlayerState and emit outbound notification text; persistence is
// never touched synchronously, matching the coalescing-wrapper rule the
// spec calls out explicitly for this component.
package hooks

import (
	"fmt"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// Broadcaster is the narrow outbound surface hooks need.
type Broadcaster interface {
	ToSession(sid ids.SessionId, text string)
}

// Players resolves PlayerState for hook bookkeeping without depending on
// the full registry surface.
type Players interface {
	Get(sid ids.SessionId) (*model.PlayerState, bool)
}

// QuestObjective is one static rule a kill/heal/level event may satisfy;
// content (the quest table itself) stays external per internal/world's
// remit, this package only evaluates whatever table it is handed.
type QuestObjective struct {
	QuestId   string
	MobZone   string // kill objectives: required mob zone, "" = any
	MinAmount int32  // heal objectives: minimum single-heal amount
}

// AchievementRule increments a named counter and unlocks an achievement
// once the counter reaches Threshold.
type AchievementRule struct {
	AchievementId string
	CounterKey    string
	Threshold     int32
}

// Set is the Hooks implementation passed to combat.New; Combat Core is its
// only caller.
type Set struct {
	players Players
	b       Broadcaster

	killObjectives []QuestObjective
	killRules      []AchievementRule
	healRules      []AchievementRule
}

func New(players Players, b Broadcaster, killObjectives []QuestObjective, killRules, healRules []AchievementRule) *Set {
	return &Set{players: players, b: b, killObjectives: killObjectives, killRules: killRules, healRules: healRules}
}

// OnDamageDealt is a no-op placeholder for damage-threshold
// achievements; none are defined yet, but Combat Core calls it on every
// hit so a future rule table has somewhere to attach without touching
// Combat Core again.
func (s *Set) OnDamageDealt(attacker ids.SessionId, mob model.MobId, amount int32) {}

// OnKill advances kill-objective quest progress and kill-count
// achievements for every contributor, not just the finishing blow.
func (s *Set) OnKill(contributors []ids.SessionId, mob model.MobId) {
	zone := mob.Zone()
	for _, sid := range contributors {
		p, ok := s.players.Get(sid)
		if !ok {
			continue
		}
		for _, obj := range s.killObjectives {
			if obj.MobZone != "" && obj.MobZone != zone {
				continue
			}
			if p.CompletedQuestIds[obj.QuestId] {
				continue
			}
			p.ActiveQuests[obj.QuestId]++
		}
		s.applyAchievements(p, sid, s.killRules, "kills")
	}
}

// OnHeal advances heal-amount achievements for the healer.
func (s *Set) OnHeal(healer ids.SessionId, amount int32) {
	p, ok := s.players.Get(healer)
	if !ok {
		return
	}
	for _, rule := range s.healRules {
		if amount < 0 {
			continue
		}
		s.bumpAchievement(p, healer, rule)
	}
}

// OnLevelUp announces the level-up; level-gated unlocks (titles) are
// applied by whatever static content table supplies them, this hook only
// emits the notification since the spec names level change as a
// Registry-originated event, not a quest/achievement one.
func (s *Set) OnLevelUp(sid ids.SessionId, newLevel int32) {
	s.b.ToSession(sid, fmt.Sprintf("You are now level %d!", newLevel))
}

func (s *Set) applyAchievements(p *model.PlayerState, sid ids.SessionId, rules []AchievementRule, _ string) {
	for _, rule := range rules {
		s.bumpAchievement(p, sid, rule)
	}
}

func (s *Set) bumpAchievement(p *model.PlayerState, sid ids.SessionId, rule AchievementRule) {
	if p.UnlockedAchievementIds[rule.AchievementId] {
		return
	}
	p.AchievementProgress[rule.CounterKey]++
	if p.AchievementProgress[rule.CounterKey] >= rule.Threshold {
		p.UnlockedAchievementIds[rule.AchievementId] = true
		s.b.ToSession(sid, fmt.Sprintf("Achievement unlocked: %s!", rule.AchievementId))
	}
}
