package tick

import (
	"time"

	"github.com/ambonmud/server/internal/bus"
	"github.com/ambonmud/server/internal/dirty"
	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

// MobPayloadFunc, SessionPayloadFunc and GroupPayloadFunc encode one
// dirty entity's current state into a GMCP
// package name and JSON body; encoding itself lives outside this package
// (the renderer/protocol layer), this only decides *when* to call it.
type MobPayloadFunc func(mob model.MobId) (pkg string, payload []byte)
type SessionPayloadFunc func(sid ids.SessionId) (pkg string, payload []byte)
type GroupPayloadFunc func(groupId int64) (recipients []ids.SessionId, pkg string, payload []byte)

// DirtyFlushDeps configures the Dirty-Set Flush phase. Any payload func
// left nil just drains its set without publishing, so partially wired
// deployments (e.g. no group system yet) still flush cleanly.
type DirtyFlushDeps struct {
	Dirty *dirty.Sets
	Rooms dirty.RoomOf
	Out   bus.OutboundBus

	MobHP        MobPayloadFunc
	PlayerVitals SessionPayloadFunc
	PlayerStatus SessionPayloadFunc
	GroupInfo    GroupPayloadFunc
}

// RegisterDirtyFlush registers the Dirty-Set Flush phase: drain all four
// dirty sets and publish one outbound GMCP event per recipient; mob HP
// goes through dirty.FlushMobHP, which publishes one event per (player in
// the mob's room, dirty mob) pair.
func RegisterDirtyFlush(e *Engine, deps DirtyFlushDeps) {
	e.RegisterFunc(PhaseDirtyFlush, "dirty-flush", func(time.Time) {
		if deps.Dirty == nil {
			return
		}

		if deps.MobHP != nil && deps.Rooms != nil {
			dirty.FlushMobHP(deps.Dirty.MobHP, deps.Rooms, func(sid ids.SessionId, mob model.MobId) {
				pkg, payload := deps.MobHP(mob)
				deps.Out.Publish(bus.OutboundEvent{Kind: bus.OutboundGmcpData, Session: sid, GmcpPackage: pkg, GmcpJSON: payload})
			})
		} else {
			deps.Dirty.MobHP.Drain()
		}

		if deps.PlayerVitals != nil {
			dirty.FlushPlayerVitals(deps.Dirty.PlayerVitals, func(sid ids.SessionId) {
				pkg, payload := deps.PlayerVitals(sid)
				deps.Out.Publish(bus.OutboundEvent{Kind: bus.OutboundGmcpData, Session: sid, GmcpPackage: pkg, GmcpJSON: payload})
			})
		} else {
			deps.Dirty.PlayerVitals.Drain()
		}

		if deps.PlayerStatus != nil {
			dirty.FlushPlayerStatus(deps.Dirty.PlayerStatus, func(sid ids.SessionId) {
				pkg, payload := deps.PlayerStatus(sid)
				deps.Out.Publish(bus.OutboundEvent{Kind: bus.OutboundGmcpData, Session: sid, GmcpPackage: pkg, GmcpJSON: payload})
			})
		} else {
			deps.Dirty.PlayerStatus.Drain()
		}

		if deps.GroupInfo != nil {
			dirty.FlushGroupInfo(deps.Dirty.GroupInfo, func(groupId int64) {
				recipients, pkg, payload := deps.GroupInfo(groupId)
				for _, sid := range recipients {
					deps.Out.Publish(bus.OutboundEvent{Kind: bus.OutboundGmcpData, Session: sid, GmcpPackage: pkg, GmcpJSON: payload})
				}
			})
		} else {
			deps.Dirty.GroupInfo.Drain()
		}
	})
}
