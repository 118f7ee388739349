package threat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/ids"
	"github.com/ambonmud/server/internal/model"
)

func TestTable_TopBreaksTiesByInsertionOrder(t *testing.T) {
	tbl := New()
	mob := model.MobId("z:mob-1")
	tbl.Add(mob, 1, 10)
	tbl.Add(mob, 2, 10)

	sid, ok := tbl.Top(mob, func(ids.SessionId) bool { return true })
	require.True(t, ok)
	assert.EqualValues(t, 1, sid)
}

func TestTable_TopHonorsPredicate(t *testing.T) {
	tbl := New()
	mob := model.MobId("z:mob-1")
	tbl.Add(mob, 1, 100)
	tbl.Add(mob, 2, 1)

	sid, ok := tbl.Top(mob, func(s ids.SessionId) bool { return s == 2 })
	require.True(t, ok)
	assert.EqualValues(t, 2, sid)
}

func TestTable_RemovePlayer_DeletesEmptyMobRow(t *testing.T) {
	tbl := New()
	mob := model.MobId("z:mob-1")
	tbl.Add(mob, 1, 5)
	tbl.RemovePlayer(1)
	assert.False(t, tbl.HasEntry(mob))
}

func TestTable_RemapSession_MergesAdditively(t *testing.T) {
	tbl := New()
	mob := model.MobId("z:mob-1")
	tbl.Add(mob, 1, 5)
	tbl.Add(mob, 2, 3)
	tbl.RemapSession(1, 2)

	sid, ok := tbl.Top(mob, func(ids.SessionId) bool { return true })
	require.True(t, ok)
	assert.EqualValues(t, 2, sid)
}

func TestTable_NegativeThreatAllowed(t *testing.T) {
	tbl := New()
	mob := model.MobId("z:mob-1")
	tbl.Add(mob, 1, 10)
	tbl.Add(mob, 1, -20)
	assert.True(t, tbl.HasEntry(mob))
}
