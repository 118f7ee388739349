package rpc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoff_WithinBoundsAndCapped(t *testing.T) {
	for attempt := 0; attempt < 12; attempt++ {
		d := nextBackoff(attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, time.Duration(float64(backoffCap)*(1+jitterFrac))+time.Millisecond)
	}
}

func TestNextBackoff_GrowsWithAttempt(t *testing.T) {
	// Compare low attempts where the cap hasn't kicked in yet; with +-20%
	// jitter attempt 0 lies in [200ms, 300ms] and attempt 3 in [1.6s, 2.4s],
	// so the ordering holds on every run.
	d0 := nextBackoff(0)
	d3 := nextBackoff(3)
	assert.Greater(t, d3, d0)
}
