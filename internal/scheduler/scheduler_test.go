package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambonmud/server/internal/model"
)

func TestScheduler_DrainDue_OrdersByDueAtThenInsertion(t *testing.T) {
	s := New()
	base := time.Unix(1000, 0)
	s.Schedule(model.ScheduledAction{Kind: model.ScheduledMobRespawn, DueAt: base, Payload: "a"})
	s.Schedule(model.ScheduledAction{Kind: model.ScheduledMobRespawn, DueAt: base, Payload: "b"})
	s.Schedule(model.ScheduledAction{Kind: model.ScheduledMobRespawn, DueAt: base.Add(-time.Second), Payload: "c"})

	due := s.DrainDue(base, 10)
	require.Len(t, due, 3)
	assert.Equal(t, "c", due[0].Payload)
	assert.Equal(t, "a", due[1].Payload)
	assert.Equal(t, "b", due[2].Payload)
}

func TestScheduler_DrainDue_RespectsMaxPerTickAndLeavesRest(t *testing.T) {
	s := New()
	base := time.Unix(1000, 0)
	for i := 0; i < 5; i++ {
		s.Schedule(model.ScheduledAction{DueAt: base})
	}
	due := s.DrainDue(base, 2)
	assert.Len(t, due, 2)
	assert.Equal(t, 3, s.QueueSize())
}

func TestScheduler_DrainDue_SkipsNotYetDue(t *testing.T) {
	s := New()
	base := time.Unix(1000, 0)
	s.Schedule(model.ScheduledAction{DueAt: base.Add(time.Hour)})
	due := s.DrainDue(base, 10)
	assert.Empty(t, due)
	assert.Equal(t, 1, s.QueueSize())
}

func TestScheduler_LateDrainedTracksOverdueItems(t *testing.T) {
	s := New()
	base := time.Unix(1000, 0)
	s.Schedule(model.ScheduledAction{DueAt: base})
	s.DrainDue(base.Add(5*time.Second), 10)
	assert.EqualValues(t, 1, s.LateDrained())
}
