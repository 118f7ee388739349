package model

import "github.com/ambonmud/server/internal/ids"

// ItemLocationKind tags where an ItemInstance currently resides. Exactly
// one of the corresponding fields on ItemLocation is meaningful for a
// given Kind.
type ItemLocationKind uint8

const (
	LocationRoom ItemLocationKind = iota
	LocationMobInventory
	LocationPlayerInventory
	LocationPlayerEquip
	LocationContainer
)

// EquipSlot identifies a wearable slot; only meaningful when Kind is
// LocationPlayerEquip.
type EquipSlot uint8

const (
	SlotNone EquipSlot = iota
	SlotWeaponMain
	SlotWeaponOff
	SlotHead
	SlotChest
	SlotHands
	SlotLegs
	SlotFeet
	SlotRing1
	SlotRing2
	SlotNeck
)

// ItemLocation is a flat tagged variant: only the field matching Kind is
// populated, matching the bus event style used across the codebase instead
// of an interface hierarchy per location kind.
type ItemLocation struct {
	Kind ItemLocationKind

	RoomId RoomId

	MobId MobId

	PlayerSession ids.SessionId
	EquipSlot     EquipSlot

	ContainerItemId ItemId
}

// ItemId uniquely identifies one item instance for its lifetime.
type ItemId string

// ItemInstance is one concrete item in the world, whether lying on the
// ground, carried, worn, or nested in a container. The Item Registry is
// its sole owner; StatMods callers read it through the registry, never by
// holding a pointer across a tick boundary.
type ItemInstance struct {
	Id           ItemId
	TemplateKey  string
	Name         string
	Location     ItemLocation
	StackCount   int32
	Mods         StatMods
	Durability   int32
	MaxDurability int32
	Bound        bool

	// WeaponMinDamage/WeaponMaxDamage are the roll range for a weapon
	// equipped in SlotWeaponMain or SlotWeaponOff; zero (MaxDamage <= 0)
	// for anything that isn't a weapon.
	WeaponMinDamage int32
	WeaponMaxDamage int32
}
