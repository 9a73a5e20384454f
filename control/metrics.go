// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime metrics registry and the publisher that feeds pool snapshots
// into it.

package control

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricsRegistry holds flat key/value metrics under a read/write lock.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Get returns one metric.
func (mr *MetricsRegistry) Get(key string) (any, bool) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, ok := mr.metrics[key]
	return v, ok
}

// Updated returns the time of the last Set.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// Keys returns the sorted metric names.
func (mr *MetricsRegistry) Keys() []string {
	mr.mu.RLock()
	keys := make([]string, 0, len(mr.metrics))
	for k := range mr.metrics {
		keys = append(keys, k)
	}
	mr.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// GetSnapshot returns a copy of all metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Publish writes the current snapshot into mr under the "pool." prefix,
// one key per aggregate and per tier field.
func (d *Diagnostics) Publish(mr *MetricsRegistry) {
	s := d.Snapshot()
	mr.Set("pool.total_capacity", s.TotalCapacity)
	mr.Set("pool.total_allocated", s.TotalAllocated)
	mr.Set("pool.peak_allocated", s.PeakAllocated)
	mr.Set("pool.overall_utilization", s.OverallUtilization)
	mr.Set("pool.fragmentation_index", s.FragmentationIndex)
	mr.Set("pool.largest_free_block", s.LargestFreeBlock)
	mr.Set("pool.allocation_failures", s.AllocationFailures)
	mr.Set("pool.alerts.low_memory", s.Alerts.LowMemory)
	mr.Set("pool.alerts.critical_memory", s.Alerts.CriticalMemory)
	mr.Set("pool.alerts.fragmentation", s.Alerts.Fragmentation)
	for _, t := range s.Pools {
		prefix := "pool." + strings.ToLower(t.Name) + "."
		mr.Set(prefix+"used_blocks", t.UsedBlocks)
		mr.Set(prefix+"peak_blocks", t.PeakBlocks)
		mr.Set(prefix+"utilization_percent", t.UtilizationPercent)
		mr.Set(prefix+"allocation_rate", t.AllocationRate)
		mr.Set(prefix+"allocation_failures", t.AllocationFailures)
	}
}
