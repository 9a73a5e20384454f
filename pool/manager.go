// File: pool/manager.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Manager routes requests to the smallest sufficient tier and aggregates
// capacity, utilization and memory-pressure state across tiers. One Manager
// is built at system start and passed to every collaborator that allocates.

package pool

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/blockpool/api"
)

// PressureLevel is the memory-pressure state derived from overall utilization.
type PressureLevel int32

const (
	PressureNormal PressureLevel = iota
	PressureLow
	PressureCritical
)

func (l PressureLevel) String() string {
	switch l {
	case PressureLow:
		return "low"
	case PressureCritical:
		return "critical"
	default:
		return "normal"
	}
}

// PressureFunc observes pressure level transitions. It runs on the goroutine
// whose allocation or release crossed the threshold and must not block.
type PressureFunc func(level PressureLevel, utilization int)

// Manager owns one FixedBlockPool per tier.
type Manager struct {
	tiers    []*FixedBlockPool
	maxSize  int
	capacity int
	low      int
	critical int
	frag     int

	oversize atomic.Uint64
	level    atomic.Int32
	hooks    atomic.Pointer[[]PressureFunc]
	hookMu   sync.Mutex

	started time.Time
	log     *slog.Logger
}

// Ensure compile-time compliance.
var _ api.Allocator = (*Manager)(nil)

// NewManager validates cfg and builds every tier arena. A nil cfg selects
// DefaultConfig.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tiers := cfg.sortedTiers()
	m := &Manager{
		tiers:    make([]*FixedBlockPool, 0, len(tiers)),
		maxSize:  tiers[len(tiers)-1].BlockSize,
		low:      cfg.LowMemoryThreshold,
		critical: cfg.CriticalMemoryThreshold,
		frag:     cfg.FragmentationThreshold,
		started:  time.Now(),
		log:      cfg.logger().With("component", "pool"),
	}
	for i, tc := range tiers {
		m.tiers = append(m.tiers, NewFixedBlockPool(tc, i, cfg))
		m.capacity += tc.BlockSize * tc.BlockCount
	}
	m.log.Info("pool manager initialized",
		"tiers", len(m.tiers), "capacity_bytes", m.capacity, "largest_block", m.maxSize)
	return m, nil
}

// TierFor returns the index of the smallest tier whose block size is at
// least size, or -1 when no tier can hold it.
func (m *Manager) TierFor(size int) int {
	if size < 0 || size > m.maxSize {
		return -1
	}
	for i, p := range m.tiers {
		if size <= p.blockSize {
			return i
		}
	}
	return -1
}

// Allocate serves size bytes from the smallest sufficient tier. Requests
// above the largest tier fail with api.ErrOversize before any tier is
// consulted.
func (m *Manager) Allocate(size int) (api.Block, error) {
	if size < 0 {
		return api.Block{}, api.ErrInvalidSize
	}
	if size > m.maxSize {
		m.oversize.Add(1)
		return api.Block{}, api.ErrOversize
	}
	b, err := m.tiers[m.TierFor(size)].Allocate()
	if err != nil {
		return api.Block{}, err
	}
	m.updatePressure()
	return b, nil
}

// Live reports whether b is currently allocated from one of the tiers.
func (m *Manager) Live(b api.Block) bool {
	idx := b.Tier()
	if b.IsZero() || idx >= len(m.tiers) {
		return false
	}
	return m.tiers[idx].Live(b)
}

// Deallocate re-derives the tier from size and returns the block to it.
// A size mapping to another tier than the block's own yields
// api.ErrTierMismatch and leaves every tier untouched.
func (m *Manager) Deallocate(b api.Block, size int) error {
	idx := m.TierFor(size)
	if idx < 0 {
		if size < 0 {
			return api.ErrInvalidSize
		}
		return api.ErrTierMismatch
	}
	if err := m.tiers[idx].Deallocate(b); err != nil {
		return err
	}
	m.updatePressure()
	return nil
}

// Tiers returns the tiers ordered by block size.
func (m *Manager) Tiers() []*FixedBlockPool {
	return append([]*FixedBlockPool(nil), m.tiers...)
}

// Tier returns the tier at index i.
func (m *Manager) Tier(i int) *FixedBlockPool { return m.tiers[i] }

// NumTiers returns the tier count.
func (m *Manager) NumTiers() int { return len(m.tiers) }

// MaxBlockSize returns the block size of the largest tier.
func (m *Manager) MaxBlockSize() int { return m.maxSize }

// TotalCapacity returns the combined arena size in bytes.
func (m *Manager) TotalCapacity() int { return m.capacity }

// TotalAllocated returns the bytes currently handed out across tiers.
func (m *Manager) TotalAllocated() int {
	total := 0
	for _, p := range m.tiers {
		total += p.Allocated() * p.blockSize
	}
	return total
}

// PeakAllocated returns the sum of per-tier peak usage in bytes.
func (m *Manager) PeakAllocated() int {
	total := 0
	for _, p := range m.tiers {
		total += int(p.peak.Load()) * p.blockSize
	}
	return total
}

// OverallUtilization returns allocated bytes as a percentage of capacity.
func (m *Manager) OverallUtilization() int {
	return m.TotalAllocated() * 100 / m.capacity
}

// HasLowMemoryAlert reports utilization at or above the low threshold.
func (m *Manager) HasLowMemoryAlert() bool {
	return m.OverallUtilization() >= m.low
}

// HasCriticalMemoryAlert reports utilization at or above the critical threshold.
func (m *Manager) HasCriticalMemoryAlert() bool {
	return m.OverallUtilization() >= m.critical
}

// LowMemoryThreshold returns the low-memory alert level in percent.
func (m *Manager) LowMemoryThreshold() int { return m.low }

// CriticalMemoryThreshold returns the critical alert level in percent.
func (m *Manager) CriticalMemoryThreshold() int { return m.critical }

// FragmentationThreshold returns the configured fragmentation alert level.
func (m *Manager) FragmentationThreshold() int { return m.frag }

// OversizeRequests returns how many requests exceeded the largest tier.
func (m *Manager) OversizeRequests() uint64 { return m.oversize.Load() }

// Pressure returns the last observed pressure level.
func (m *Manager) Pressure() PressureLevel { return PressureLevel(m.level.Load()) }

// Started returns the construction time of the manager.
func (m *Manager) Started() time.Time { return m.started }

// Logger returns the logger collaborators should derive from.
func (m *Manager) Logger() *slog.Logger { return m.log }

// OnPressure registers fn for pressure level transitions.
func (m *Manager) OnPressure(fn PressureFunc) {
	m.hookMu.Lock()
	defer m.hookMu.Unlock()
	var hooks []PressureFunc
	if cur := m.hooks.Load(); cur != nil {
		hooks = append(hooks, *cur...)
	}
	hooks = append(hooks, fn)
	m.hooks.Store(&hooks)
}

// ResetStats clears lifetime counters of every tier.
func (m *Manager) ResetStats() {
	for _, p := range m.tiers {
		p.ResetStats()
	}
	m.oversize.Store(0)
}

// Verify checks the free-list invariant of every tier.
func (m *Manager) Verify() bool {
	for _, p := range m.tiers {
		if !p.Verify() {
			return false
		}
	}
	return true
}

func (m *Manager) levelFor(util int) PressureLevel {
	switch {
	case util >= m.critical:
		return PressureCritical
	case util >= m.low:
		return PressureLow
	default:
		return PressureNormal
	}
}

// updatePressure publishes a level change exactly once per transition.
// Racing callers retry until the stored level matches the utilization they
// last read.
func (m *Manager) updatePressure() {
	for {
		util := m.OverallUtilization()
		next := m.levelFor(util)
		prev := PressureLevel(m.level.Load())
		if next == prev {
			return
		}
		if m.level.CompareAndSwap(int32(prev), int32(next)) {
			m.announce(next, util)
		}
	}
}

func (m *Manager) announce(next PressureLevel, util int) {
	switch next {
	case PressureCritical:
		m.log.Error("memory pool critical", "utilization", util)
	case PressureLow:
		m.log.Warn("memory pool low", "utilization", util)
	default:
		m.log.Info("memory pool pressure cleared", "utilization", util)
	}
	if hooks := m.hooks.Load(); hooks != nil {
		for _, fn := range *hooks {
			fn(next, util)
		}
	}
}
