// File: control/diagnostics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Read-only aggregation of pool counters into diagnostics snapshots.

package control

import (
	"log/slog"
	"time"

	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/pool"
)

// Diagnostics derives snapshots, fragmentation and alert state from a
// Manager. It never mutates pool state, so repeated queries without
// intervening traffic return equal snapshots (uptime aside).
type Diagnostics struct {
	m   *pool.Manager
	log *slog.Logger
}

// NewDiagnostics binds diagnostics to m.
func NewDiagnostics(m *pool.Manager) *Diagnostics {
	return &Diagnostics{m: m, log: m.Logger().With("component", "diag")}
}

// Manager returns the observed manager.
func (d *Diagnostics) Manager() *pool.Manager { return d.m }

// Snapshot aggregates every tier. Counters are read without locks, so a
// snapshot taken under load may mix values from adjacent instants.
func (d *Diagnostics) Snapshot() api.Snapshot {
	tiers := d.m.Tiers()
	s := api.Snapshot{
		TotalCapacity: d.m.TotalCapacity(),
		Pools:         make([]api.PoolMetrics, 0, len(tiers)),
		UptimeSeconds: uint64(time.Since(d.m.Started()) / time.Second),
	}
	for _, p := range tiers {
		st := p.Stats()
		allocRate, freeRate := p.Rates()
		s.Pools = append(s.Pools, api.PoolMetrics{
			Name:               st.Name,
			BlockSize:          st.BlockSize,
			TotalBlocks:        st.TotalBlocks,
			UsedBlocks:         st.AllocatedCount,
			PeakBlocks:         st.PeakUsage,
			AllocationRate:     allocRate,
			DeallocationRate:   freeRate,
			AvgHoldTimeMs:      uint64(st.AverageHoldTime / time.Millisecond),
			UtilizationPercent: st.AllocatedCount * 100 / st.TotalBlocks,
			AllocationFailures: st.AllocationFailures,
		})
		s.TotalAllocated += st.AllocatedCount * st.BlockSize
		s.PeakAllocated += st.PeakUsage * st.BlockSize
		s.TotalAllocations += st.TotalAllocations
		s.TotalDeallocations += st.TotalDeallocations
		s.AllocationFailures += st.AllocationFailures
		s.TotalBytesServed += st.TotalBytesServed
	}
	s.AllocationFailures += d.m.OversizeRequests()
	s.OverallUtilization = s.TotalAllocated * 100 / s.TotalCapacity
	s.FragmentationIndex = fragmentation(s.Pools)
	s.LargestFreeBlock = largestFree(s.Pools)
	s.Alerts = api.Alerts{
		LowMemory:      s.OverallUtilization >= d.m.LowMemoryThreshold(),
		CriticalMemory: s.OverallUtilization >= d.m.CriticalMemoryThreshold(),
		Fragmentation:  s.TotalAllocated > 0 && s.FragmentationIndex > d.m.FragmentationThreshold(),
	}
	return s
}

// FragmentationIndex returns 0..100. Free capacity is weighted by block
// size and compared with the same number of free blocks all sitting in the
// largest tier: 0 when every free block is a largest block, approaching 100
// as free capacity shrinks into small tiers. No free block at all yields 100.
func (d *Diagnostics) FragmentationIndex() int {
	return fragmentation(d.poolMetrics())
}

// LargestFreeBlock returns the block size of the largest tier that still
// has a free block, or 0 when every tier is exhausted.
func (d *Diagnostics) LargestFreeBlock() int {
	return largestFree(d.poolMetrics())
}

// ActiveAllocations lists every block currently handed out, smallest tier
// first.
func (d *Diagnostics) ActiveAllocations() []api.ActiveBlock {
	return d.heldFor(0)
}

// PotentialLeaks lists blocks held for at least threshold and logs a
// warning when there are any.
func (d *Diagnostics) PotentialLeaks(threshold time.Duration) []api.ActiveBlock {
	leaks := d.heldFor(threshold)
	if len(leaks) > 0 {
		d.log.Warn("long-held blocks", "count", len(leaks), "threshold", threshold)
	}
	return leaks
}

func (d *Diagnostics) heldFor(minAge time.Duration) []api.ActiveBlock {
	var out []api.ActiveBlock
	for _, p := range d.m.Tiers() {
		out = p.Active(out, minAge)
	}
	return out
}

// LogStats writes one record per tier plus a summary record.
func (d *Diagnostics) LogStats() {
	s := d.Snapshot()
	for _, p := range s.Pools {
		d.log.Info("tier stats",
			"tier", p.Name,
			"block_size", p.BlockSize,
			"used", p.UsedBlocks,
			"total", p.TotalBlocks,
			"peak", p.PeakBlocks,
			"failures", p.AllocationFailures,
			"alloc_rate", p.AllocationRate,
			"avg_hold_ms", p.AvgHoldTimeMs,
		)
	}
	d.log.Info("pool summary",
		"allocated_bytes", s.TotalAllocated,
		"capacity_bytes", s.TotalCapacity,
		"utilization", s.OverallUtilization,
		"fragmentation", s.FragmentationIndex,
		"largest_free", s.LargestFreeBlock,
	)
}

func (d *Diagnostics) poolMetrics() []api.PoolMetrics {
	tiers := d.m.Tiers()
	out := make([]api.PoolMetrics, len(tiers))
	for i, p := range tiers {
		out[i] = api.PoolMetrics{BlockSize: p.BlockSize(), TotalBlocks: p.BlockCount(), UsedBlocks: p.Allocated()}
	}
	return out
}

// fragmentation expects pools ordered by block size.
func fragmentation(pools []api.PoolMetrics) int {
	if len(pools) == 0 {
		return 100
	}
	largest := pools[len(pools)-1].BlockSize
	freeBlocks, freeBytes := 0, 0
	for _, p := range pools {
		n := p.TotalBlocks - p.UsedBlocks
		freeBlocks += n
		freeBytes += n * p.BlockSize
	}
	if freeBlocks == 0 {
		return 100
	}
	return 100 - freeBytes*100/(freeBlocks*largest)
}

func largestFree(pools []api.PoolMetrics) int {
	for i := len(pools) - 1; i >= 0; i-- {
		if pools[i].UsedBlocks < pools[i].TotalBlocks {
			return pools[i].BlockSize
		}
	}
	return 0
}
