// Package group implements the Group System: party formation, invites,
// leadership transfer, and group-wide tells. Grounded in the teacher's
// registry shape (a primary map plus a room index) generalized from
// players-in-a-room to members-of-a-group, and its lazy-expiry idiom (the
// teacher expires stale state on next mutation rather than running a
// dedicated sweep goroutine).
package group

import (
	"fmt"
	"time"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// Broadcaster is the narrow outbound surface the Group System needs;
// satisfied by internal/tick.BusBroadcaster in the composition root.
type Broadcaster interface {
	ToSession(sid ids.SessionId, text string)
}

// Players resolves session state the way the Group System needs it:
// lookup by id and by in-room name, without depending on the full
// registry package surface.
type Players interface {
	Get(sid ids.SessionId) (*model.PlayerState, bool)
	FindByNameInRoom(room model.RoomId, name string) (ids.SessionId, bool)
}

// Manager owns groupBySession and pendingInvites, per §4.10. All
// mutations are expected to run on the tick thread; Manager itself does
// no locking, matching the single-writer registries it sits beside.
type Manager struct {
	maxGroupSize int
	inviteExpiry time.Duration

	players Players

	nextGroupId int64
	groups      map[int64]*model.Group
	groupOf     map[ids.SessionId]int64
	invites     map[ids.SessionId]model.PendingInvite

	now func() time.Time
}

func New(maxGroupSize int, inviteExpiry time.Duration, players Players) *Manager {
	return &Manager{
		maxGroupSize: maxGroupSize,
		inviteExpiry: inviteExpiry,
		players:      players,
		groups:       make(map[int64]*model.Group),
		groupOf:      make(map[ids.SessionId]int64),
		invites:      make(map[ids.SessionId]model.PendingInvite),
		now:          time.Now,
	}
}

// expireInvite drops invitee's pending invite if it is stale, lazily, on
// whatever mutation next touches it — the teacher never runs a sweep
// goroutine for this kind of soft state either.
func (m *Manager) expireInvite(invitee ids.SessionId, now time.Time) {
	inv, ok := m.invites[invitee]
	if ok && !now.Before(inv.ExpiresAt) {
		delete(m.invites, invitee)
	}
}

// setPlayerGroupId keeps PlayerState.GroupId in sync with groupOf so
// readers outside this package (combat's XP-split gate, ability ALLY
// targeting) can check group membership straight off the player struct
// instead of depending on the Group System.
func (m *Manager) setPlayerGroupId(sid ids.SessionId, gid *int64) {
	if p, ok := m.players.Get(sid); ok {
		p.GroupId = gid
	}
}

func (m *Manager) groupOfSid(sid ids.SessionId) (*model.Group, bool) {
	gid, ok := m.groupOf[sid]
	if !ok {
		return nil, false
	}
	g, ok := m.groups[gid]
	return g, ok
}

// Invite implements invite(inviterSid, targetName): the inviter must not
// already belong to a different group than the one the invite would
// extend; the target must be online, in the inviter's room, ungrouped,
// and not already invited by the same inviter.
func (m *Manager) Invite(now time.Time, inviterSid ids.SessionId, targetName string, b Broadcaster) error {
	inviter, ok := m.players.Get(inviterSid)
	if !ok {
		return fmt.Errorf("inviter not online")
	}
	if g, in := m.groupOfSid(inviterSid); in && g.Leader != inviterSid {
		return fmt.Errorf("only the group leader can invite")
	}
	if g, in := m.groupOfSid(inviterSid); in && len(g.Members) >= m.maxGroupSize {
		return fmt.Errorf("group is full")
	}

	targetSid, ok := m.players.FindByNameInRoom(inviter.RoomId, targetName)
	if !ok {
		return fmt.Errorf("you don't see %s here", targetName)
	}
	if _, grouped := m.groupOfSid(targetSid); grouped {
		return fmt.Errorf("%s is already in a group", targetName)
	}

	m.expireInvite(targetSid, now)
	if existing, ok := m.invites[targetSid]; ok && existing.Inviter == inviterSid {
		return fmt.Errorf("%s has already been invited", targetName)
	}

	var groupId int64
	if g, in := m.groupOfSid(inviterSid); in {
		groupId = g.Id
	}
	m.invites[targetSid] = model.PendingInvite{
		GroupId:   groupId,
		Inviter:   inviterSid,
		Invitee:   targetSid,
		ExpiresAt: now.Add(m.inviteExpiry),
	}

	b.ToSession(targetSid, fmt.Sprintf("%s invites you to join their group.", inviter.Name))
	return nil
}

// Accept implements accept(inviteeSid): removes the invite and adds
// invitee to the inviter's group, creating one with the inviter as
// leader if one does not already exist, up to maxGroupSize. Notifies
// every member including the new one.
func (m *Manager) Accept(now time.Time, inviteeSid ids.SessionId, b Broadcaster) error {
	m.expireInvite(inviteeSid, now)
	inv, ok := m.invites[inviteeSid]
	if !ok {
		return fmt.Errorf("you have no pending invite")
	}
	delete(m.invites, inviteeSid)

	g, ok := m.groupOfSid(inv.Inviter)
	if !ok {
		m.nextGroupId++
		g = &model.Group{Id: m.nextGroupId, Leader: inv.Inviter, Members: []ids.SessionId{inv.Inviter}}
		m.groups[g.Id] = g
		m.groupOf[inv.Inviter] = g.Id
		m.setPlayerGroupId(inv.Inviter, &g.Id)
	}
	if len(g.Members) >= m.maxGroupSize {
		return fmt.Errorf("group is full")
	}

	g.Members = append(g.Members, inviteeSid)
	m.groupOf[inviteeSid] = g.Id
	m.setPlayerGroupId(inviteeSid, &g.Id)

	invitee, _ := m.players.Get(inviteeSid)
	name := "someone"
	if invitee != nil {
		name = invitee.Name
	}
	for _, sid := range g.Members {
		b.ToSession(sid, fmt.Sprintf("%s has joined the group.", name))
	}
	return nil
}

// Leave implements leave(sid): removes sid from its group; a group that
// drops to a single member is dissolved; if sid was leader, leadership
// passes to the new first member.
func (m *Manager) Leave(sid ids.SessionId, b Broadcaster) {
	g, ok := m.groupOfSid(sid)
	if !ok {
		return
	}
	m.removeMember(g, sid, b)
}

// OnPlayerDisconnected implements onPlayerDisconnected(sid), identical to
// Leave per §4.10.
func (m *Manager) OnPlayerDisconnected(sid ids.SessionId, b Broadcaster) {
	m.Leave(sid, b)
}

func (m *Manager) removeMember(g *model.Group, sid ids.SessionId, b Broadcaster) {
	remaining := g.Members[:0:0]
	for _, m2 := range g.Members {
		if m2 != sid {
			remaining = append(remaining, m2)
		}
	}
	g.Members = remaining
	delete(m.groupOf, sid)
	m.setPlayerGroupId(sid, nil)

	if len(g.Members) <= 1 {
		for _, m2 := range g.Members {
			delete(m.groupOf, m2)
			m.setPlayerGroupId(m2, nil)
			b.ToSession(m2, "Your group has disbanded.")
		}
		delete(m.groups, g.Id)
		return
	}

	if g.Leader == sid {
		g.Leader = g.Members[0]
		for _, m2 := range g.Members {
			b.ToSession(m2, fmt.Sprintf("%s is now the group leader.", m.nameOf(g.Leader)))
		}
	}
	for _, m2 := range g.Members {
		b.ToSession(m2, fmt.Sprintf("%s has left the group.", m.nameOf(sid)))
	}
}

func (m *Manager) nameOf(sid ids.SessionId) string {
	if p, ok := m.players.Get(sid); ok {
		return p.Name
	}
	return "someone"
}

// Kick implements kick(leaderSid, name): leader-only.
func (m *Manager) Kick(leaderSid ids.SessionId, name string, b Broadcaster) error {
	g, ok := m.groupOfSid(leaderSid)
	if !ok {
		return fmt.Errorf("you are not in a group")
	}
	if g.Leader != leaderSid {
		return fmt.Errorf("only the group leader can kick")
	}
	var target ids.SessionId
	found := false
	for _, sid := range g.Members {
		if p, ok := m.players.Get(sid); ok && p.Name == name {
			target = sid
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s is not in your group", name)
	}
	m.removeMember(g, target, b)
	b.ToSession(target, "You have been removed from the group.")
	return nil
}

// Gtell implements gtell(sid, msg): broadcast to all members.
func (m *Manager) Gtell(sid ids.SessionId, msg string, b Broadcaster) error {
	g, ok := m.groupOfSid(sid)
	if !ok {
		return fmt.Errorf("you are not in a group")
	}
	name := m.nameOf(sid)
	for _, member := range g.Members {
		b.ToSession(member, fmt.Sprintf("[group] %s: %s", name, msg))
	}
	return nil
}

// MembersInRoom implements combat.GroupLookup: the same-room subset of
// sid's group, used only for the XP-split rule.
func (m *Manager) MembersInRoom(sid ids.SessionId, room model.RoomId) []ids.SessionId {
	g, ok := m.groupOfSid(sid)
	if !ok {
		return nil
	}
	var out []ids.SessionId
	for _, member := range g.Members {
		if p, ok := m.players.Get(member); ok && p.RoomId == room {
			out = append(out, member)
		}
	}
	return out
}

// GroupOf exposes the read-only membership list for display commands.
func (m *Manager) GroupOf(sid ids.SessionId) (*model.Group, bool) {
	return m.groupOfSid(sid)
}
