package model

import "time"

// EffectKind identifies a status effect's behavior; the magnitude and
// tick-interval rules for each kind live in the Vitals/Status system, not
// here, so this stays a plain data record.
type EffectKind uint8

const (
	EffectDamageOverTime EffectKind = iota
	EffectHealOverTime
	EffectStun
	EffectSlow
	EffectShield
	EffectAttributeBuff
	EffectAttributeDebuff
)

// ActiveEffect is one applied status effect on a player or mob. Multiple
// instances of the same EffectKind from different sources may coexist;
// stacking/refresh rules are enforced by the Vitals system, not implied
// by this struct.
type ActiveEffect struct {
	Kind       EffectKind
	SourceId   string // opaque: session id or mob id, stringified by caller
	Magnitude  float64
	TickAmount float64
	ExpiresAt  time.Time
	NextTickAt time.Time
}
