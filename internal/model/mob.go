package model

// GoldRange is an inclusive [Min,Max] gold drop range.
type GoldRange struct {
	Min, Max int64
}

// DropEntry is one possible item drop with its independent probability.
type DropEntry struct {
	ItemTemplate string
	Chance       float64 // 0..1
	MinCount     int32
	MaxCount     int32
}

// MobState is the runtime state of one live mob instance. Owned
// exclusively by the Mob Registry; respawn creates a new MobState sharing
// the same TemplateKey.
type MobState struct {
	Id    MobId
	Name  string
	RoomId RoomId

	HP, MaxHP     int32
	MinDamage     int32
	MaxDamage     int32
	Armor         int32

	XPReward int64
	Gold     GoldRange
	Drops    []DropEntry

	TemplateKey string

	// BehaviorTree and Dialogue are external collaborators (NPC behavior
	// tree / dialogue engines); the core only needs an opaque handle it
	// can pass through.
	BehaviorTree interface{}
	Dialogue     interface{}

	QuestIds []string
}
