package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/model"
)

func TestItemRegistry_PlaceAndMoveAcrossLocationKinds(t *testing.T) {
	reg := NewItemRegistry()
	room := model.NewRoomId("town", "square")
	item := &model.ItemInstance{
		Id:          "sword-1",
		TemplateKey: "iron_sword",
		Name:        "an iron sword",
		Location:    model.ItemLocation{Kind: model.LocationRoom, RoomId: room},
	}
	reg.Place(item)
	assert.Contains(t, reg.ItemsInRoom(room), item.Id)

	err := reg.MoveTo(item.Id, model.ItemLocation{Kind: model.LocationPlayerInventory, PlayerSession: 42})
	require.NoError(t, err)
	assert.Empty(t, reg.ItemsInRoom(room))
	assert.Contains(t, reg.ItemsInInventory(42), item.Id)

	err = reg.MoveTo(item.Id, model.ItemLocation{Kind: model.LocationPlayerEquip, PlayerSession: 42, EquipSlot: model.SlotWeaponMain})
	require.NoError(t, err)
	assert.Empty(t, reg.ItemsInInventory(42))
	equipped, ok := reg.ItemEquippedAt(42, model.SlotWeaponMain)
	require.True(t, ok)
	assert.Equal(t, item.Id, equipped)
}

func TestItemRegistry_MobDrop(t *testing.T) {
	reg := NewItemRegistry()
	mob := model.MobId("forest:wolf-1")
	item := &model.ItemInstance{Id: "pelt-1", Location: model.ItemLocation{Kind: model.LocationMobInventory, MobId: mob}}
	reg.Place(item)
	assert.Contains(t, reg.ItemsOnMob(mob), item.Id)

	room := model.NewRoomId("forest", "clearing")
	require.NoError(t, reg.MoveTo(item.Id, model.ItemLocation{Kind: model.LocationRoom, RoomId: room}))
	assert.Empty(t, reg.ItemsOnMob(mob))
	assert.Contains(t, reg.ItemsInRoom(room), item.Id)
}

func TestItemRegistry_RemoveUnknownIsNoop(t *testing.T) {
	reg := NewItemRegistry()
	reg.Remove("does-not-exist")
}
