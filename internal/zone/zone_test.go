package zone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLeastLoaded_PicksLowestRatio(t *testing.T) {
	candidates := []Instance{
		{Id: "a", Count: 8, Capacity: 10},
		{Id: "b", Count: 2, Capacity: 10},
	}
	assert.Equal(t, "b", LeastLoaded(candidates, "", ""))
}

func TestSticky_PrefersPriorInstanceWithCapacity(t *testing.T) {
	candidates := []Instance{
		{Id: "a", Count: 1, Capacity: 10},
		{Id: "b", Count: 9, Capacity: 10},
	}
	assert.Equal(t, "b", Sticky(candidates, "b", ""))
}

func TestEvaluate_ScalesUpOnlyAfterSustainWindow(t *testing.T) {
	r := NewRouter(NewInMemoryCoordinator("engine-1"), 10, 2, 30*time.Second, 5*time.Minute)
	now := time.Unix(0, 0)
	hot := []Instance{{Id: "zone-0", Count: 15, Capacity: 20}}

	assert.Nil(t, r.Evaluate(now, "zone", hot), "must not scale on first hot reading")

	later := now.Add(31 * time.Second)
	decision := r.Evaluate(later, "zone", hot)
	if assert.NotNil(t, decision) {
		assert.True(t, decision.ScaleUp)
	}
}

func TestEvaluate_NeverScalesDownBelowOneInstance(t *testing.T) {
	r := NewRouter(NewInMemoryCoordinator("engine-1"), 10, 2, time.Second, time.Second)
	now := time.Unix(0, 0)
	single := []Instance{{Id: "zone-0", Count: 0, Capacity: 20}}

	decision := r.Evaluate(now.Add(10*time.Second), "zone", single)
	assert.Nil(t, decision, "a single instance must never be a scale-down candidate")
}
