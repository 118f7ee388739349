package model

// Exit is one static connection out of a room.
type Exit struct {
	Direction Direction
	ToRoomId  RoomId
	Door      *DoorState
}

// DoorState models an openable/lockable exit; nil Exit.Door means the
// exit is a plain, always-open passage.
type DoorState struct {
	Closed   bool
	Locked   bool
	KeyTemplate string
}

// Feature is a static, non-entity piece of room content: a sign to read,
// a lever to pull, a vendor stall, etc. Behavior is dispatched by Kind in
// the world-interaction system (external to the core tick loop).
type Feature struct {
	Kind string
	Data map[string]string
}

// Room is static content loaded once at startup (or zone-instance
// creation) by the external content loader; the tick engine never
// mutates a Room's fields directly, only the membership lists layered on
// top by the registries.
type Room struct {
	Id          RoomId
	Name        string
	Description string
	Exits       []Exit
	Features    []Feature
	SpawnMobTemplates []string
}
