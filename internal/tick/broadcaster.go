package tick

import (
	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/registry"
)

// BusBroadcaster implements combat.Broadcaster (and any other package's
// narrow text/prompt interface) against an OutboundBus, so every
// subsystem that needs to tell a session or a room something publishes
// through the same bounded, prompt-coalescing queue the Outbound Flush
// phase drains, rather than writing to a transport directly from deep
// inside game logic.
type BusBroadcaster struct {
	out     bus.OutboundBus
	players *registry.PlayerRegistry
}

func NewBusBroadcaster(out bus.OutboundBus, players *registry.PlayerRegistry) *BusBroadcaster {
	return &BusBroadcaster{out: out, players: players}
}

func (b *BusBroadcaster) ToSession(sid ids.SessionId, text string) {
	b.out.Publish(bus.OutboundEvent{Kind: bus.OutboundSendText, Session: sid, Text: text, TextKind: bus.TextCombat})
}

func (b *BusBroadcaster) ToRoomExcept(room model.RoomId, except ids.SessionId, text string) {
	for _, sid := range b.players.PlayersInRoom(room) {
		if sid == except {
			continue
		}
		b.out.Publish(bus.OutboundEvent{Kind: bus.OutboundSendText, Session: sid, Text: text, TextKind: bus.TextCombat})
	}
}

func (b *BusBroadcaster) Prompt(sid ids.SessionId) {
	b.out.Publish(bus.OutboundEvent{Kind: bus.OutboundSendPrompt, Session: sid})
}
