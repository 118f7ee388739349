package model

import "time"

// ZoneOwnershipKind distinguishes zones pinned to a fixed engine from
// dynamic zones the Zone Router may scale horizontally.
type ZoneOwnershipKind uint8

const (
	ZoneStatic ZoneOwnershipKind = iota
	ZoneDynamic
)

// ZoneAssignment records which engine instance(s) currently own a zone.
// For ZoneStatic there is exactly one EngineId; for ZoneDynamic there may
// be several instance ids sharing load, selected by the Router's instance
// selection policy.
type ZoneAssignment struct {
	Zone       string
	Ownership  ZoneOwnershipKind
	InstanceIds []string
	ScaledAt   time.Time
}
