// File: pool/tier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/momentics/blockpool/api"
)

// FixedBlockPool owns the arena of one tier: N blocks of S bytes, a LIFO
// stack of free slot indexes and the tier counters.
//
// The stack and per-slot state are guarded by mu, which is held only for
// the index swap. Counters are atomics so diagnostics can read them without
// taking the lock.
type FixedBlockPool struct {
	mu    sync.Mutex
	free  []uint16 // free slot indexes, top at free[top-1]
	top   int
	gens  []uint32 // odd while the slot is allocated
	stamp []int64  // allocation time of each slot
	_     cpu.CacheLinePad

	allocated   atomic.Int64
	peak        atomic.Int64
	allocs      atomic.Uint64
	frees       atomic.Uint64
	failures    atomic.Uint64
	bytesServed atomic.Uint64
	holdTotal   atomic.Int64
	holdSamples atomic.Uint64
	allocRate   rateCounter
	freeRate    rateCounter

	name       string
	index      int
	blockSize  int
	blockCount int
	arena      []byte
	trackHold  bool
	poison     bool
	epoch      time.Time
}

// NewFixedBlockPool builds a tier with its arena allocated up front.
// index is the tier tag stamped into every block it hands out.
func NewFixedBlockPool(tc TierConfig, index int, cfg *Config) *FixedBlockPool {
	p := &FixedBlockPool{
		free:       make([]uint16, tc.BlockCount),
		top:        tc.BlockCount,
		gens:       make([]uint32, tc.BlockCount),
		stamp:      make([]int64, tc.BlockCount),
		name:       tc.Name,
		index:      index,
		blockSize:  tc.BlockSize,
		blockCount: tc.BlockCount,
		arena:      make([]byte, tc.BlockSize*tc.BlockCount),
		trackHold:  cfg.TrackHoldTime,
		poison:     cfg.PoisonFreed,
		epoch:      time.Now(),
	}
	// Slot 0 ends up on top so a fresh pool hands out blocks in arena order.
	for i := range p.free {
		p.free[i] = uint16(tc.BlockCount - 1 - i)
	}
	return p
}

// now returns monotonic nanoseconds since the pool epoch.
func (p *FixedBlockPool) now() int64 { return int64(time.Since(p.epoch)) }

// Allocate pops the most recently freed slot. An empty stack counts a
// failure and returns api.ErrExhausted; it never blocks or retries.
func (p *FixedBlockPool) Allocate() (api.Block, error) {
	now := p.now()
	p.mu.Lock()
	if p.top == 0 {
		p.mu.Unlock()
		p.failures.Add(1)
		return api.Block{}, api.ErrExhausted
	}
	p.top--
	slot := p.free[p.top]
	p.gens[slot]++
	gen := p.gens[slot]
	p.stamp[slot] = now
	n := p.allocated.Add(1)
	p.mu.Unlock()

	storeMax(&p.peak, n)
	p.allocs.Add(1)
	p.bytesServed.Add(uint64(p.blockSize))
	p.allocRate.record(now)

	off := int(slot) * p.blockSize
	return api.NewBlock(p.arena[off:off+p.blockSize:off+p.blockSize], p.index, int(slot), gen), nil
}

// Deallocate pushes the block back on the free stack. Blocks minted by
// another tier, forged blocks and repeated or stale releases are rejected
// without touching the stack.
func (p *FixedBlockPool) Deallocate(b api.Block) error {
	if b.IsZero() {
		return api.ErrInvalidBlock
	}
	if b.Tier() != p.index || b.Size() != p.blockSize {
		return api.ErrTierMismatch
	}
	slot := b.Slot()
	if slot >= p.blockCount || unsafe.SliceData(b.Bytes()) != &p.arena[slot*p.blockSize] {
		return api.ErrInvalidBlock
	}

	now := p.now()
	p.mu.Lock()
	if p.gens[slot] != b.Generation() {
		p.mu.Unlock()
		return api.ErrDoubleFree
	}
	p.gens[slot]++
	held := now - p.stamp[slot]
	if p.poison {
		fill(b.Bytes(), PoisonByte)
	}
	p.free[p.top] = uint16(slot)
	p.top++
	p.allocated.Add(-1)
	p.mu.Unlock()

	p.frees.Add(1)
	if p.trackHold {
		p.holdTotal.Add(held)
		p.holdSamples.Add(1)
	}
	p.freeRate.record(now)
	return nil
}

// Live reports whether b is a block of this tier that is currently
// allocated under the generation b carries.
func (p *FixedBlockPool) Live(b api.Block) bool {
	if b.IsZero() || b.Tier() != p.index || b.Size() != p.blockSize {
		return false
	}
	slot := b.Slot()
	if slot >= p.blockCount || unsafe.SliceData(b.Bytes()) != &p.arena[slot*p.blockSize] {
		return false
	}
	p.mu.Lock()
	live := p.gens[slot] == b.Generation()
	p.mu.Unlock()
	return live
}

// Active appends to dst every allocated block held for at least minAge,
// in slot order. It takes the tier lock for the scan.
func (p *FixedBlockPool) Active(dst []api.ActiveBlock, minAge time.Duration) []api.ActiveBlock {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	for slot, gen := range p.gens {
		if gen%2 == 0 {
			continue
		}
		if age := time.Duration(now - p.stamp[slot]); age >= minAge {
			dst = append(dst, api.ActiveBlock{Tier: p.name, BlockSize: p.blockSize, Slot: slot, Age: age})
		}
	}
	return dst
}

// Stats returns a copy of the tier counters. It does not allocate.
func (p *FixedBlockPool) Stats() api.PoolStats {
	s := api.PoolStats{
		Name:               p.name,
		BlockSize:          p.blockSize,
		TotalBlocks:        p.blockCount,
		AllocatedCount:     int(p.allocated.Load()),
		PeakUsage:          int(p.peak.Load()),
		TotalAllocations:   p.allocs.Load(),
		TotalDeallocations: p.frees.Load(),
		AllocationFailures: p.failures.Load(),
		TotalBytesServed:   p.bytesServed.Load(),
	}
	if n := p.holdSamples.Load(); n > 0 {
		s.AverageHoldTime = time.Duration(p.holdTotal.Load() / int64(n))
	}
	return s
}

// Rates returns the allocation and deallocation rates per second.
func (p *FixedBlockPool) Rates() (alloc, dealloc uint64) {
	now := p.now()
	return p.allocRate.perSecond(now), p.freeRate.perSecond(now)
}

// ResetStats clears lifetime totals; peak restarts from the current count.
func (p *FixedBlockPool) ResetStats() {
	p.peak.Store(p.allocated.Load())
	p.allocs.Store(0)
	p.frees.Store(0)
	p.failures.Store(0)
	p.bytesServed.Store(0)
	p.holdTotal.Store(0)
	p.holdSamples.Store(0)
	now := p.now()
	p.allocRate.reset(now)
	p.freeRate.reset(now)
}

// Name returns the tier name.
func (p *FixedBlockPool) Name() string { return p.name }

// Index returns the tier tag.
func (p *FixedBlockPool) Index() int { return p.index }

// BlockSize returns the size of each block.
func (p *FixedBlockPool) BlockSize() int { return p.blockSize }

// BlockCount returns the number of blocks in the arena.
func (p *FixedBlockPool) BlockCount() int { return p.blockCount }

// Allocated returns the number of blocks currently handed out.
func (p *FixedBlockPool) Allocated() int { return int(p.allocated.Load()) }

// FreeBlocks returns the number of blocks available.
func (p *FixedBlockPool) FreeBlocks() int { return p.blockCount - p.Allocated() }

// Exhausted reports whether no block is available.
func (p *FixedBlockPool) Exhausted() bool { return p.FreeBlocks() == 0 }

// Utilization returns the allocated share of the tier in percent.
func (p *FixedBlockPool) Utilization() int { return p.Allocated() * 100 / p.blockCount }

// Verify walks the free stack and slot states under the lock and reports
// whether every block is accounted for exactly once. It allocates a scratch
// bitmap and is meant for tests and debug probes, not the hot path.
func (p *FixedBlockPool) Verify() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	onStack := make([]bool, p.blockCount)
	for _, slot := range p.free[:p.top] {
		if onStack[slot] || p.gens[slot]%2 == 1 {
			return false
		}
		onStack[slot] = true
	}
	used := 0
	for slot, gen := range p.gens {
		if gen%2 == 1 {
			used++
		} else if !onStack[slot] {
			return false
		}
	}
	return used == int(p.allocated.Load()) && used+p.top == p.blockCount
}

func storeMax(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n <= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
