// Package command turns one drained InboundEvent's text line into a game
// action, implementing internal/tick.InboundDispatcher. Grounded in the
// teacher's internal/handler package: a single Deps bundle passed to
// every handler and a flat switch on the first whitespace-delimited
// token, rather than a registered-command-table indirection the teacher
// never needed either.
package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/combat"
	"github.com/ambonmud/server/internal/group"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
	"github.com/ambonmud/server/internal/registry"
)

// RoomSource resolves static room content for "look".
type RoomSource interface {
	Room(id model.RoomId) (*model.Room, bool)
}

// Deps bundles every collaborator a command handler needs, mirroring the
// teacher's handler.Deps shape.
type Deps struct {
	Players *registry.PlayerRegistry
	Mobs    *registry.MobRegistry
	Combat  *combat.Core
	Groups  *group.Manager
	Rooms   RoomSource
	B       combat.Broadcaster

	OnDisconnect func(sid ids.SessionId)
}

// Dispatcher implements internal/tick.InboundDispatcher.
type Dispatcher struct {
	deps Deps
}

func New(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

func (d *Dispatcher) Dispatch(now time.Time, ev bus.InboundEvent) {
	switch ev.Kind {
	case bus.InboundDisconnected:
		if d.deps.OnDisconnect != nil {
			d.deps.OnDisconnect(ev.Session)
		}
		if d.deps.Groups != nil {
			d.deps.Groups.OnPlayerDisconnected(ev.Session, d.deps.B)
		}
		return
	case bus.InboundConnected:
		d.deps.B.Prompt(ev.Session)
		return
	case bus.InboundLineReceived:
		d.dispatchLine(now, ev.Session, ev.Line)
	}
}

func (d *Dispatcher) dispatchLine(now time.Time, sid ids.SessionId, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		d.deps.B.Prompt(sid)
		return
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "look", "l":
		d.look(sid)
	case "kill", "attack", "k":
		d.kill(now, sid, args)
	case "flee":
		d.flee(sid)
	case "say", "'":
		d.say(sid, strings.Join(args, " "))
	case "invite":
		d.invite(now, sid, args)
	case "accept":
		d.accept(now, sid)
	case "leave":
		d.leave(sid)
	case "kick":
		d.kick(sid, args)
	case "gtell", "gt":
		d.gtell(sid, strings.Join(args, " "))
	default:
		d.deps.B.ToSession(sid, fmt.Sprintf("Unknown command: %s", verb))
	}
	d.deps.B.Prompt(sid)
}

func (d *Dispatcher) look(sid ids.SessionId) {
	p, ok := d.deps.Players.Get(sid)
	if !ok {
		return
	}
	if d.deps.Rooms == nil {
		return
	}
	room, ok := d.deps.Rooms.Room(p.RoomId)
	if !ok {
		d.deps.B.ToSession(sid, "You are nowhere.")
		return
	}
	d.deps.B.ToSession(sid, room.Name)
	d.deps.B.ToSession(sid, room.Description)

	for _, other := range d.deps.Players.PlayersInRoom(p.RoomId) {
		if other == sid {
			continue
		}
		if op, ok := d.deps.Players.Get(other); ok {
			d.deps.B.ToSession(sid, fmt.Sprintf("%s is here.", op.Name))
		}
	}
	for _, mobId := range d.deps.Mobs.MobsInRoom(p.RoomId) {
		if mob, ok := d.deps.Mobs.Get(mobId); ok {
			d.deps.B.ToSession(sid, fmt.Sprintf("A %s is here.", mob.Name))
		}
	}
}

func (d *Dispatcher) kill(now time.Time, sid ids.SessionId, args []string) {
	if len(args) == 0 {
		d.deps.B.ToSession(sid, "Kill what?")
		return
	}
	if err := d.deps.Combat.StartCombat(now, sid, strings.Join(args, " "), d.deps.B); err != nil {
		d.deps.B.ToSession(sid, err.Error())
	}
}

func (d *Dispatcher) flee(sid ids.SessionId) {
	d.deps.Combat.Flee(sid, d.deps.B)
}

func (d *Dispatcher) say(sid ids.SessionId, text string) {
	if text == "" {
		return
	}
	p, ok := d.deps.Players.Get(sid)
	if !ok {
		return
	}
	d.deps.B.ToSession(sid, fmt.Sprintf("You say, '%s'", text))
	d.deps.B.ToRoomExcept(p.RoomId, sid, fmt.Sprintf("%s says, '%s'", p.Name, text))
}

func (d *Dispatcher) invite(now time.Time, sid ids.SessionId, args []string) {
	if d.deps.Groups == nil || len(args) == 0 {
		return
	}
	if err := d.deps.Groups.Invite(now, sid, args[0], d.deps.B); err != nil {
		d.deps.B.ToSession(sid, err.Error())
	}
}

func (d *Dispatcher) accept(now time.Time, sid ids.SessionId) {
	if d.deps.Groups == nil {
		return
	}
	if err := d.deps.Groups.Accept(now, sid, d.deps.B); err != nil {
		d.deps.B.ToSession(sid, err.Error())
	}
}

func (d *Dispatcher) leave(sid ids.SessionId) {
	if d.deps.Groups == nil {
		return
	}
	d.deps.Groups.Leave(sid, d.deps.B)
}

func (d *Dispatcher) kick(sid ids.SessionId, args []string) {
	if d.deps.Groups == nil || len(args) == 0 {
		return
	}
	if err := d.deps.Groups.Kick(sid, args[0], d.deps.B); err != nil {
		d.deps.B.ToSession(sid, err.Error())
	}
}

func (d *Dispatcher) gtell(sid ids.SessionId, text string) {
	if d.deps.Groups == nil || text == "" {
		return
	}
	if err := d.deps.Groups.Gtell(sid, text, d.deps.B); err != nil {
		d.deps.B.ToSession(sid, err.Error())
	}
}
