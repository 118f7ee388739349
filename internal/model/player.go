package model

import "github.com/ambonmud/server/internal/ids"

// Class identifies a player's combat class; used for the threat multiplier
// in Combat Core (warrior 1.5x, others 1.0x) and ability class gates.
type Class uint8

const (
	ClassWarrior Class = iota
	ClassMage
	ClassCleric
	ClassRogue
)

func (c Class) ThreatMultiplier() float64 {
	if c == ClassWarrior {
		return 1.5
	}
	return 1.0
}

// Race is a playable race; it affects no core-combat math directly but is
// carried for renderers and the ability/status rules tables (external).
type Race uint8

// PlayerState is the runtime, authoritative state for one connected
// character. Owned exclusively by the Player Registry on the engine
// hosting the player's current zone.
type PlayerState struct {
	SessionId ids.SessionId
	PlayerId  PlayerId // zero until persisted/attached
	Name      string
	RoomId    RoomId

	HP, MaxHP, BaseMaxHP int32
	Mana, MaxMana        int32

	Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma int32

	Race  Race
	Class Class
	Level int32

	XPTotal int64
	Gold    int64

	IsStaff     bool
	AnsiEnabled bool

	ActiveQuests          map[string]int32 // questId -> progress
	CompletedQuestIds     map[string]bool
	AchievementProgress   map[string]int32
	UnlockedAchievementIds map[string]bool
	ActiveTitle           string

	GuildId *string
	GroupId *int64 // current group's id (internal/group.Manager's key), or nil if ungrouped
}

func NewPlayerState(sid ids.SessionId, name string, room RoomId) *PlayerState {
	return &PlayerState{
		SessionId:              sid,
		Name:                   name,
		RoomId:                 room,
		Level:                  1,
		ActiveQuests:           make(map[string]int32),
		CompletedQuestIds:      make(map[string]bool),
		AchievementProgress:    make(map[string]int32),
		UnlockedAchievementIds: make(map[string]bool),
	}
}

// StatMods is an additive delta over a PlayerState's base attributes.
// PlayerState itself only ever carries base attributes; Combat Core folds
// a player's equipped items (via the Item Registry) and active status
// effects (via StatusEffects.GetPlayerStatMods) into StatMods values on
// demand, once per attack resolution, rather than caching a combined total
// on the player.
type StatMods struct {
	Str, Dex, Con, Int, Wis, Cha int32
	AttackBonus                  int32
	DodgeBonus                   float64
}
