// File: pool/manager_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool_test

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/pool"
)

func TestManagerDefaults(t *testing.T) {
	m := newManager(t)
	require.Equal(t, 5, m.NumTiers())
	assert.Equal(t, 20*1024, m.TotalCapacity())
	assert.Equal(t, 512, m.MaxBlockSize())
	names := []string{"TINY", "SMALL", "MEDIUM", "LARGE", "XLARGE"}
	for i, p := range m.Tiers() {
		assert.Equal(t, names[i], p.Name())
		assert.Equal(t, i, p.Index())
	}
	assert.Equal(t, 0, m.OverallUtilization())
	assert.False(t, m.HasLowMemoryAlert())
}

func TestManagerRouting(t *testing.T) {
	m := newManager(t)
	cases := []struct {
		size int
		tier int
	}{
		{0, 0}, {1, 0}, {16, 0}, {32, 0},
		{33, 1}, {64, 1},
		{65, 2}, {128, 2},
		{129, 3}, {256, 3},
		{257, 4}, {512, 4},
		{513, -1}, {-1, -1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.tier, m.TierFor(tc.size), "size %d", tc.size)
	}

	// Exhaustive: every served block is the smallest sufficient one.
	for size := 1; size <= m.MaxBlockSize(); size++ {
		b, err := m.Allocate(size)
		require.NoError(t, err)
		idx := b.Tier()
		assert.GreaterOrEqual(t, b.Size(), size)
		if idx > 0 {
			assert.Less(t, m.Tier(idx-1).BlockSize(), size)
		}
		require.NoError(t, m.Deallocate(b, size))
	}
	assert.True(t, m.Verify())
}

// 128 requests of 16 bytes fill TINY; the 129th fails without spilling
// into SMALL.
func TestManagerZeroSizeRoutesToSmallestTier(t *testing.T) {
	m := newManager(t)
	b, err := m.Allocate(0)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Tier())
	assert.Equal(t, 32, b.Size())
	assert.Equal(t, 1, m.Tier(0).Allocated())
	require.NoError(t, m.Deallocate(b, 0))
	assert.Zero(t, totalAllocated(m))

	_, err = m.Allocate(-1)
	require.ErrorIs(t, err, api.ErrInvalidSize)
}

func TestManagerPressureSettlesUnderContention(t *testing.T) {
	m := newManager(t, func(c *pool.Config) {
		c.Tiers = []pool.TierConfig{{Name: "ONLY", BlockSize: 32, BlockCount: 20}}
		c.LowMemoryThreshold = 50
		c.CriticalMemoryThreshold = 95
	})
	// Keep utilization oscillating around both thresholds.
	base := make([]api.Block, 0, 18)
	for i := 0; i < 18; i++ {
		b, err := m.Allocate(32)
		require.NoError(t, err)
		base = append(base, b)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				b, err := m.Allocate(32)
				if err != nil {
					continue
				}
				_ = m.Deallocate(b, 32)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 90, m.OverallUtilization())
	assert.Equal(t, pool.PressureLow, m.Pressure())

	for _, b := range base {
		require.NoError(t, m.Deallocate(b, 32))
	}
	assert.Equal(t, pool.PressureNormal, m.Pressure())
}

func TestManagerLive(t *testing.T) {
	m := newManager(t)
	b, err := m.Allocate(100)
	require.NoError(t, err)
	assert.True(t, m.Live(b))
	require.NoError(t, m.Deallocate(b, 100))
	assert.False(t, m.Live(b))
	assert.False(t, m.Live(api.Block{}))
}

func TestManagerTinyExhaustion(t *testing.T) {
	m := newManager(t)
	for i := 0; i < 128; i++ {
		b, err := m.Allocate(16)
		require.NoError(t, err)
		require.Equal(t, 0, b.Tier())
	}
	_, err := m.Allocate(16)
	assert.ErrorIs(t, err, api.ErrExhausted)

	tiny := m.Tier(0).Stats()
	assert.Equal(t, uint64(1), tiny.AllocationFailures)
	assert.Equal(t, 128, tiny.AllocatedCount)
	assert.Zero(t, m.Tier(1).Allocated())
}

func TestManagerReuseAfterFree(t *testing.T) {
	m := newManager(t)
	b, err := m.Allocate(64)
	require.NoError(t, err)
	for i := range b.Bytes() {
		b.Bytes()[i] = 0xA5
	}
	require.NoError(t, m.Deallocate(b, 64))

	b2, err := m.Allocate(64)
	require.NoError(t, err)
	assert.Equal(t, 64, b2.Size())
	require.NoError(t, m.Deallocate(b2, 64))
}

func TestManagerOversize(t *testing.T) {
	m := newManager(t)
	before := make([]api.PoolStats, m.NumTiers())
	for i, p := range m.Tiers() {
		before[i] = p.Stats()
	}
	_, err := m.Allocate(513)
	assert.ErrorIs(t, err, api.ErrOversize)
	for i, p := range m.Tiers() {
		assert.Equal(t, before[i], p.Stats())
	}
	assert.Equal(t, uint64(1), m.OversizeRequests())

	_, err = m.Allocate(-5)
	assert.ErrorIs(t, err, api.ErrInvalidSize)
}

func TestManagerTightLoop(t *testing.T) {
	m := newManager(t)
	for i := 0; i < 10000; i++ {
		b, err := m.Allocate(64)
		require.NoError(t, err)
		require.NoError(t, m.Deallocate(b, 64))
	}
	assert.Zero(t, totalAllocated(m))
	small := m.Tier(1).Stats()
	assert.GreaterOrEqual(t, small.PeakUsage, 1)
	assert.Equal(t, uint64(10000), small.TotalAllocations)
	assert.Equal(t, uint64(10000), small.TotalDeallocations)
}

func TestManagerConcurrentWorkers(t *testing.T) {
	m := newManager(t)
	sizes := []int{32, 64, 128}
	const workers = 8

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, 0))
			for i := 0; i < 1000; i++ {
				size := sizes[rng.IntN(len(sizes))]
				b, err := m.Allocate(size)
				if err != nil {
					assert.ErrorIs(t, err, api.ErrExhausted)
					continue
				}
				b.Bytes()[0] = byte(seed)
				assert.NoError(t, m.Deallocate(b, size))
			}
		}(uint64(w))
	}
	wg.Wait()

	assert.Zero(t, totalAllocated(m))
	assert.True(t, m.Verify())
}

func TestManagerRandomSequenceNoLeaks(t *testing.T) {
	m := newManager(t)
	rng := rand.New(rand.NewPCG(42, 7))
	type held struct {
		b    api.Block
		size int
	}
	var live []held
	for i := 0; i < 5000; i++ {
		if len(live) > 0 && rng.IntN(2) == 0 {
			j := rng.IntN(len(live))
			require.NoError(t, m.Deallocate(live[j].b, live[j].size))
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		size := rng.IntN(m.MaxBlockSize()) + 1
		b, err := m.Allocate(size)
		if err != nil {
			require.ErrorIs(t, err, api.ErrExhausted)
			continue
		}
		live = append(live, held{b, size})
	}
	for _, h := range live {
		require.NoError(t, m.Deallocate(h.b, h.size))
	}
	assert.Zero(t, totalAllocated(m))
	assert.True(t, m.Verify())
}

func TestManagerTierMismatch(t *testing.T) {
	m := newManager(t)
	b, err := m.Allocate(16)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Deallocate(b, 100), api.ErrTierMismatch)
	assert.ErrorIs(t, m.Deallocate(b, 1000), api.ErrTierMismatch)
	assert.ErrorIs(t, m.Deallocate(b, -1), api.ErrInvalidSize)
	assert.Equal(t, 1, m.Tier(0).Allocated())
	assert.Zero(t, m.Tier(2).Stats().TotalDeallocations)

	require.NoError(t, m.Deallocate(b, 8))
	assert.True(t, m.Verify())
}

func TestManagerPressureTransitions(t *testing.T) {
	m := newManager(t, func(c *pool.Config) {
		c.Tiers = []pool.TierConfig{{Name: "ONLY", BlockSize: 32, BlockCount: 10}}
		c.LowMemoryThreshold = 50
		c.CriticalMemoryThreshold = 90
	})
	var levels []pool.PressureLevel
	m.OnPressure(func(l pool.PressureLevel, _ int) { levels = append(levels, l) })

	var held []api.Block
	for i := 0; i < 9; i++ {
		b, err := m.Allocate(32)
		require.NoError(t, err)
		held = append(held, b)
	}
	assert.True(t, m.HasLowMemoryAlert())
	assert.True(t, m.HasCriticalMemoryAlert())
	assert.Equal(t, pool.PressureCritical, m.Pressure())

	for _, b := range held {
		require.NoError(t, m.Deallocate(b, 32))
	}
	assert.Equal(t, pool.PressureNormal, m.Pressure())
	assert.Equal(t, []pool.PressureLevel{
		pool.PressureLow, pool.PressureCritical, pool.PressureLow, pool.PressureNormal,
	}, levels)
	assert.Equal(t, "critical", pool.PressureCritical.String())
}

func TestManagerPeakAndReset(t *testing.T) {
	m := newManager(t)
	a, err := m.Allocate(32)
	require.NoError(t, err)
	b, err := m.Allocate(512)
	require.NoError(t, err)
	assert.Equal(t, 544, m.TotalAllocated())
	require.NoError(t, m.Deallocate(b, 512))
	assert.Equal(t, 544, m.PeakAllocated())

	_, _ = m.Allocate(600)
	m.ResetStats()
	assert.Zero(t, m.OversizeRequests())
	assert.Equal(t, 32, m.PeakAllocated())
	require.NoError(t, m.Deallocate(a, 32))
}

func TestManagerNilConfig(t *testing.T) {
	m, err := pool.NewManager(nil)
	require.NoError(t, err)
	assert.Equal(t, 20*1024, m.TotalCapacity())
}

func TestManagerRejectsInvalidConfig(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.Tiers = nil
	_, err := pool.NewManager(cfg)
	assert.ErrorIs(t, err, api.ErrInvalidConfig)
}
