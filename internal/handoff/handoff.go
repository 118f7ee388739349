// Package handoff implements the Handoff Manager: the
// PREPARED -> SENT -> ACKED -> COMMITTED|ROLLED_BACK ticket lifecycle that
// moves a player from one engine to another across a zone boundary, per
// §4.12. Grounded in the teacher's PersistenceSystem batching idiom for
// "authoritative state snapshot, encoded once, carried opaquely" and in
// the scheduler's due-time bookkeeping for the ack-timeout/TTL sweeps.
package handoff

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// playerSnapshot is the msgpack-encoded subset of model.PlayerState
// carried in HandoffTicket.StateBlob — enough to reconstruct the player
// on the destination engine, per §5: position, vitals, identity, and
// progress fields, deliberately excluding transient combat/threat state
// which engine B starts fresh.
type playerSnapshot struct {
	PlayerId PlayerIdBlob
	Name     string
	RoomId   string

	HP, MaxHP, BaseMaxHP int32
	Mana, MaxMana        int32

	Strength, Dexterity, Constitution, Intelligence, Wisdom, Charisma int32

	Race  uint8
	Class uint8
	Level int32

	XPTotal int64
	Gold    int64

	IsStaff     bool
	AnsiEnabled bool

	ActiveQuests           map[string]int32
	CompletedQuestIds      map[string]bool
	AchievementProgress    map[string]int32
	UnlockedAchievementIds map[string]bool
	ActiveTitle            string
}

// PlayerIdBlob mirrors model.PlayerId's underlying representation so the
// snapshot type has no import-cycle dependency on how PlayerId is defined.
type PlayerIdBlob int64

func encodeSnapshot(p *model.PlayerState) ([]byte, error) {
	snap := playerSnapshot{
		PlayerId: PlayerIdBlob(p.PlayerId), Name: p.Name, RoomId: string(p.RoomId),
		HP: p.HP, MaxHP: p.MaxHP, BaseMaxHP: p.BaseMaxHP, Mana: p.Mana, MaxMana: p.MaxMana,
		Strength: p.Strength, Dexterity: p.Dexterity, Constitution: p.Constitution,
		Intelligence: p.Intelligence, Wisdom: p.Wisdom, Charisma: p.Charisma,
		Race: uint8(p.Race), Class: uint8(p.Class), Level: p.Level,
		XPTotal: p.XPTotal, Gold: p.Gold, IsStaff: p.IsStaff, AnsiEnabled: p.AnsiEnabled,
		ActiveQuests: p.ActiveQuests, CompletedQuestIds: p.CompletedQuestIds,
		AchievementProgress: p.AchievementProgress, UnlockedAchievementIds: p.UnlockedAchievementIds,
		ActiveTitle: p.ActiveTitle,
	}
	return msgpack.Marshal(&snap)
}

func decodeSnapshot(sid ids.SessionId, blob []byte, toRoom model.RoomId) (*model.PlayerState, error) {
	var snap playerSnapshot
	if err := msgpack.Unmarshal(blob, &snap); err != nil {
		return nil, err
	}
	p := model.NewPlayerState(sid, snap.Name, toRoom)
	p.PlayerId = model.PlayerId(snap.PlayerId)
	p.HP, p.MaxHP, p.BaseMaxHP = snap.HP, snap.MaxHP, snap.BaseMaxHP
	p.Mana, p.MaxMana = snap.Mana, snap.MaxMana
	p.Strength, p.Dexterity, p.Constitution = snap.Strength, snap.Dexterity, snap.Constitution
	p.Intelligence, p.Wisdom, p.Charisma = snap.Intelligence, snap.Wisdom, snap.Charisma
	p.Race, p.Class, p.Level = model.Race(snap.Race), model.Class(snap.Class), snap.Level
	p.XPTotal, p.Gold = snap.XPTotal, snap.Gold
	p.IsStaff, p.AnsiEnabled = snap.IsStaff, snap.AnsiEnabled
	p.ActiveQuests, p.CompletedQuestIds = snap.ActiveQuests, snap.CompletedQuestIds
	p.AchievementProgress, p.UnlockedAchievementIds = snap.AchievementProgress, snap.UnlockedAchievementIds
	p.ActiveTitle = snap.ActiveTitle
	return p, nil
}

// Outbox is how the Manager ships InterEngineEvents; satisfied by
// internal/bus's InterEngineBus in the composition root.
type Outbox interface {
	Publish(engineId string, kind string, ticket model.HandoffTicket, rejectReason string) error
}

// Source is the narrow surface the departing engine (A) needs from its
// Player Registry/Combat Core to remove a handed-off player cleanly.
type Source interface {
	Get(sid ids.SessionId) (*model.PlayerState, bool)
	Disconnect(sid ids.SessionId, lastSeenUnixMs int64) error
	DropCombat(sid ids.SessionId)
}

// Manager owns in-flight tickets on both the sending and receiving side of
// a handoff. One Manager instance is shared per engine; Side is implied by
// which method the caller drives.
type Manager struct {
	ackTimeout time.Duration
	pendingTTL time.Duration

	outbound map[string]*outboundTicket // keyed by ticket id, engine A side
	inbound  map[string]*inboundTicket  // keyed by ticket id, engine B side

	now func() time.Time
}

type outboundTicket struct {
	ticket      model.HandoffTicket
	ackDeadline time.Time
	snapshot    *model.PlayerState
}

type inboundTicket struct {
	ticket     model.HandoffTicket
	receivedAt time.Time
	player     *model.PlayerState
}

func NewManager(ackTimeout time.Duration) *Manager {
	return &Manager{
		ackTimeout: ackTimeout,
		pendingTTL: 2 * ackTimeout,
		outbound:   make(map[string]*outboundTicket),
		inbound:    make(map[string]*inboundTicket),
		now:        time.Now,
	}
}

// Prepare implements step 1-2: engine A builds a ticket capturing
// PlayerState and starts the ack-timeout clock.
func (m *Manager) Prepare(ticketId string, now time.Time, p *model.PlayerState, fromEngine, toEngine string, toRoom model.RoomId) (model.HandoffTicket, error) {
	blob, err := encodeSnapshot(p)
	if err != nil {
		return model.HandoffTicket{}, fmt.Errorf("encode handoff snapshot: %w", err)
	}
	ticket := model.HandoffTicket{
		Id: ticketId, Session: p.SessionId, FromEngineId: fromEngine, ToEngineId: toEngine,
		FromRoomId: p.RoomId, ToRoomId: toRoom, State: model.HandoffSent,
		StateBlob: blob, CreatedAt: now, AckDeadline: now.Add(m.ackTimeout),
	}
	m.outbound[ticketId] = &outboundTicket{ticket: ticket, ackDeadline: ticket.AckDeadline, snapshot: p}
	return ticket, nil
}

// ReceivePrepare implements step 3 on engine B: validate the room exists,
// reserve a PENDING slot, and return the ticket to ack with (or the
// reject reason on failure).
func (m *Manager) ReceivePrepare(now time.Time, ticket model.HandoffTicket, roomExists bool) (accept bool, rejectReason string) {
	if !roomExists {
		return false, "unknown-room"
	}
	if _, dup := m.inbound[ticket.Id]; dup {
		return false, "duplicate-ticket"
	}
	ticket.State = model.HandoffAcked
	m.inbound[ticket.Id] = &inboundTicket{ticket: ticket, receivedAt: now}
	return true, ""
}

// Ack records A's receipt of B's HandoffAck (step 3 reply observed on A).
func (m *Manager) Ack(ticketId string) (model.HandoffTicket, bool) {
	ot, ok := m.outbound[ticketId]
	if !ok {
		return model.HandoffTicket{}, false
	}
	ot.ticket.State = model.HandoffAcked
	return ot.ticket, true
}

// Commit implements step 4 on A: remove the player from the source
// registry (rolling combat off, dropping threat), mark the ticket
// COMMITTED, and return the engine/session pair the gateway should
// redirect.
func (m *Manager) Commit(ticketId string, now time.Time, src Source) (model.HandoffTicket, error) {
	ot, ok := m.outbound[ticketId]
	if !ok {
		return model.HandoffTicket{}, fmt.Errorf("no such outbound ticket %s", ticketId)
	}
	src.DropCombat(ot.ticket.Session)
	if err := src.Disconnect(ot.ticket.Session, now.UnixMilli()); err != nil {
		return model.HandoffTicket{}, fmt.Errorf("remove player for handoff commit: %w", err)
	}
	ot.ticket.State = model.HandoffCommitted
	delete(m.outbound, ticketId)
	return ot.ticket, nil
}

// CommitInbound implements step 5 on B: promotes the PENDING slot to
// ACTIVE and returns the reconstructed PlayerState to insert into the
// destination registry.
func (m *Manager) CommitInbound(ticketId string) (*model.PlayerState, model.HandoffTicket, error) {
	it, ok := m.inbound[ticketId]
	if !ok {
		return nil, model.HandoffTicket{}, fmt.Errorf("no such inbound ticket %s", ticketId)
	}
	p, err := decodeSnapshot(it.ticket.Session, it.ticket.StateBlob, it.ticket.ToRoomId)
	if err != nil {
		return nil, model.HandoffTicket{}, fmt.Errorf("decode handoff snapshot: %w", err)
	}
	it.ticket.State = model.HandoffCommitted
	delete(m.inbound, ticketId)
	return p, it.ticket, nil
}

// Reject records engine B's rejection so the caller can roll the ticket
// back on A without waiting for the ack timer.
func (m *Manager) Reject(ticketId string) (model.HandoffTicket, bool) {
	ot, ok := m.outbound[ticketId]
	if !ok {
		return model.HandoffTicket{}, false
	}
	ot.ticket.State = model.HandoffRolledBack
	delete(m.outbound, ticketId)
	return ot.ticket, true
}

// SweepExpired implements step 6-7: rolls back any outbound ticket whose
// ack deadline has passed without an Ack/Reject, and discards any inbound
// PENDING ticket older than 2*ackTimeout left by a crashed sender.
func (m *Manager) SweepExpired(now time.Time) (rolledBack []model.HandoffTicket, discarded []string) {
	for id, ot := range m.outbound {
		if ot.ticket.State != model.HandoffAcked && now.After(ot.ackDeadline) {
			ot.ticket.State = model.HandoffRolledBack
			rolledBack = append(rolledBack, ot.ticket)
			delete(m.outbound, id)
		}
	}
	for id, it := range m.inbound {
		if now.Sub(it.receivedAt) > m.pendingTTL {
			discarded = append(discarded, id)
			delete(m.inbound, id)
		}
	}
	return rolledBack, discarded
}
