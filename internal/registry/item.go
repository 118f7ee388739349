package registry

import (
	"sync"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// itemBucket is an opaque key identifying one of ItemInstance's five
// possible containers (room, mob, player inventory, player equip slot,
// or a nested container item) so a single map can back all of them.
type itemBucket struct {
	kind    model.ItemLocationKind
	room    model.RoomId
	mob     model.MobId
	session ids.SessionId
	slot    model.EquipSlot
	parent  model.ItemId
}

func bucketOf(loc model.ItemLocation) itemBucket {
	switch loc.Kind {
	case model.LocationRoom:
		return itemBucket{kind: loc.Kind, room: loc.RoomId}
	case model.LocationMobInventory:
		return itemBucket{kind: loc.Kind, mob: loc.MobId}
	case model.LocationPlayerInventory:
		return itemBucket{kind: loc.Kind, session: loc.PlayerSession}
	case model.LocationPlayerEquip:
		return itemBucket{kind: loc.Kind, session: loc.PlayerSession, slot: loc.EquipSlot}
	case model.LocationContainer:
		return itemBucket{kind: loc.Kind, parent: loc.ContainerItemId}
	default:
		return itemBucket{kind: loc.Kind}
	}
}

// ItemRegistry is the authoritative map of item instances plus a
// location-bucket index covering all five ItemLocationKind variants.
type ItemRegistry struct {
	mu       sync.RWMutex
	byId     map[model.ItemId]*model.ItemInstance
	byBucket map[itemBucket]map[model.ItemId]struct{}
}

func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{
		byId:     make(map[model.ItemId]*model.ItemInstance),
		byBucket: make(map[itemBucket]map[model.ItemId]struct{}),
	}
}

func (r *ItemRegistry) Place(item *model.ItemInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byId[item.Id] = item
	r.addToBucket(item.Id, bucketOf(item.Location))
}

func (r *ItemRegistry) Remove(id model.ItemId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byId[id]
	if !ok {
		return
	}
	delete(r.byId, id)
	r.removeFromBucket(id, bucketOf(item.Location))
}

// MoveTo relocates an item to a new location, e.g. a kill dropping a
// MOB-held item to ROOM, or a player equipping from PLAYER_INV to
// PLAYER_EQUIP.
func (r *ItemRegistry) MoveTo(id model.ItemId, to model.ItemLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byId[id]
	if !ok {
		return ErrNotFound{ItemId: id}
	}
	r.removeFromBucket(id, bucketOf(item.Location))
	item.Location = to
	r.addToBucket(id, bucketOf(to))
	return nil
}

func (r *ItemRegistry) Get(id model.ItemId) (*model.ItemInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.byId[id]
	return item, ok
}

func (r *ItemRegistry) ItemsInRoom(room model.RoomId) []model.ItemId {
	return r.snapshot(itemBucket{kind: model.LocationRoom, room: room})
}

func (r *ItemRegistry) ItemsOnMob(mob model.MobId) []model.ItemId {
	return r.snapshot(itemBucket{kind: model.LocationMobInventory, mob: mob})
}

func (r *ItemRegistry) ItemsInInventory(sid ids.SessionId) []model.ItemId {
	return r.snapshot(itemBucket{kind: model.LocationPlayerInventory, session: sid})
}

func (r *ItemRegistry) ItemEquippedAt(sid ids.SessionId, slot model.EquipSlot) (model.ItemId, bool) {
	items := r.snapshot(itemBucket{kind: model.LocationPlayerEquip, session: sid, slot: slot})
	if len(items) == 0 {
		return "", false
	}
	return items[0], true
}

func (r *ItemRegistry) snapshot(key itemBucket) []model.ItemId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.byBucket[key]
	out := make([]model.ItemId, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

func (r *ItemRegistry) addToBucket(id model.ItemId, key itemBucket) {
	set, ok := r.byBucket[key]
	if !ok {
		set = make(map[model.ItemId]struct{})
		r.byBucket[key] = set
	}
	set[id] = struct{}{}
}

func (r *ItemRegistry) removeFromBucket(id model.ItemId, key itemBucket) {
	set, ok := r.byBucket[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(r.byBucket, key)
	}
}
