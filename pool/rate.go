// File: pool/rate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Rolling per-second event rate, updated incrementally on every event.

package pool

import (
	"sync/atomic"
	"time"
)

// rateWindow is the sampling interval of a rateCounter.
const rateWindow = int64(time.Second)

// rateCounter counts events in the current window and publishes the rate of
// the last closed window. Readers never mutate it.
type rateCounter struct {
	start atomic.Int64  // window start, nanoseconds since pool epoch
	count atomic.Uint64 // events in the open window
	rate  atomic.Uint64 // events per second of the last closed window
}

// record counts one event at now and closes the window once it has elapsed.
func (r *rateCounter) record(now int64) {
	r.count.Add(1)
	start := r.start.Load()
	elapsed := now - start
	if elapsed < rateWindow || !r.start.CompareAndSwap(start, now) {
		return
	}
	n := r.count.Swap(0)
	r.rate.Store(n * uint64(time.Second) / uint64(elapsed))
}

// perSecond returns the last closed window rate, or 0 once no event has
// closed a window for two full windows.
func (r *rateCounter) perSecond(now int64) uint64 {
	if now-r.start.Load() >= 2*rateWindow {
		return 0
	}
	return r.rate.Load()
}

func (r *rateCounter) reset(now int64) {
	r.start.Store(now)
	r.count.Store(0)
	r.rate.Store(0)
}
