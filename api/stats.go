// File: api/stats.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Statistics and diagnostics snapshot shapes. Snapshot is the sole externally
// consumed data shape of the allocator; field names are part of the contract.

package api

import "time"

// PoolStats is a point-in-time copy of one tier's counters.
type PoolStats struct {
	Name               string        `json:"name"`
	BlockSize          int           `json:"block_size"`
	TotalBlocks        int           `json:"total_blocks"`
	AllocatedCount     int           `json:"allocated_count"`
	PeakUsage          int           `json:"peak_usage"`
	TotalAllocations   uint64        `json:"total_allocations"`
	TotalDeallocations uint64        `json:"total_deallocations"`
	AllocationFailures uint64        `json:"allocation_failures"`
	TotalBytesServed   uint64        `json:"total_bytes_served"`
	AverageHoldTime    time.Duration `json:"average_hold_time_ns"`
}

// FreeBlocks returns the number of blocks not currently allocated.
func (s PoolStats) FreeBlocks() int { return s.TotalBlocks - s.AllocatedCount }

// ActiveBlock describes one block currently handed out.
type ActiveBlock struct {
	Tier      string        `json:"tier"`
	BlockSize int           `json:"block_size"`
	Slot      int           `json:"slot"`
	Age       time.Duration `json:"age_ns"`
}

// PoolMetrics is the per-tier section of a Snapshot.
type PoolMetrics struct {
	Name               string `json:"name"`
	BlockSize          int    `json:"block_size"`
	TotalBlocks        int    `json:"total_blocks"`
	UsedBlocks         int    `json:"used_blocks"`
	PeakBlocks         int    `json:"peak_blocks"`
	AllocationRate     uint64 `json:"allocation_rate"`
	DeallocationRate   uint64 `json:"deallocation_rate"`
	AvgHoldTimeMs      uint64 `json:"avg_hold_time_ms"`
	UtilizationPercent int    `json:"utilization_percent"`
	AllocationFailures uint64 `json:"allocation_failures"`
}

// Alerts groups the threshold flags of a Snapshot.
type Alerts struct {
	LowMemory      bool `json:"low_memory"`
	CriticalMemory bool `json:"critical_memory"`
	Fragmentation  bool `json:"fragmentation"`
}

// Snapshot is an immutable aggregation across all tiers.
type Snapshot struct {
	TotalCapacity      int           `json:"total_capacity"`
	TotalAllocated     int           `json:"total_allocated"`
	PeakAllocated      int           `json:"peak_allocated"`
	OverallUtilization int           `json:"overall_utilization"`
	FragmentationIndex int           `json:"fragmentation_index"`
	LargestFreeBlock   int           `json:"largest_free_block"`
	TotalAllocations   uint64        `json:"total_allocations"`
	TotalDeallocations uint64        `json:"total_deallocations"`
	AllocationFailures uint64        `json:"allocation_failures"`
	TotalBytesServed   uint64        `json:"total_bytes_served"`
	Pools              []PoolMetrics `json:"pools"`
	Alerts             Alerts        `json:"alerts"`
	UptimeSeconds      uint64        `json:"uptime_seconds"`
}
