// File: pool/rate_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateCounterWindow(t *testing.T) {
	var r rateCounter
	for i := 0; i < 9; i++ {
		r.record(int64(i) * int64(100*time.Millisecond))
	}
	assert.Zero(t, r.perSecond(int64(900*time.Millisecond)), "window still open")

	r.record(int64(time.Second))
	assert.Equal(t, uint64(10), r.perSecond(int64(1500*time.Millisecond)))
	// Reads do not disturb the published rate.
	assert.Equal(t, uint64(10), r.perSecond(int64(1500*time.Millisecond)))

	assert.Zero(t, r.perSecond(int64(3*time.Second)), "idle counter decays")
}

func TestRateCounterScalesLongWindows(t *testing.T) {
	var r rateCounter
	r.record(0)
	r.record(int64(2 * time.Second))
	assert.Equal(t, uint64(1), r.perSecond(int64(2*time.Second)))

	r.reset(int64(3 * time.Second))
	assert.Zero(t, r.perSecond(int64(3*time.Second)))
}
