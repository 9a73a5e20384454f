// File: fake/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sync"

	"github.com/momentics/blockpool/api"
)

// ExhaustedAllocator fails every request, as a pool with no free block would.
type ExhaustedAllocator struct {
	mu    sync.Mutex
	calls int
}

func (f *ExhaustedAllocator) Allocate(int) (api.Block, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return api.Block{}, api.ErrExhausted
}

func (f *ExhaustedAllocator) Deallocate(api.Block, int) error { return api.ErrInvalidBlock }

// Calls returns the number of Allocate calls seen.
func (f *ExhaustedAllocator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// CountingAllocator serves 8-byte aligned blocks from fresh slices and
// records the size of every allocate and release.
type CountingAllocator struct {
	mu     sync.Mutex
	next   int
	live   map[int]int // slot -> size passed at allocation
	allocs int
	frees  int
}

func NewCountingAllocator() *CountingAllocator {
	return &CountingAllocator{live: make(map[int]int)}
}

func (f *CountingAllocator) Allocate(size int) (api.Block, error) {
	if size < 0 {
		return api.Block{}, api.ErrInvalidSize
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.allocs++
	f.live[f.next] = size
	words := make([]uint64, (size+7)/8+1)
	buf := unsafeBytes(words)
	return api.NewBlock(buf, 0, f.next, 1), nil
}

func (f *CountingAllocator) Deallocate(b api.Block, size int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	want, ok := f.live[b.Slot()]
	if !ok {
		return api.ErrDoubleFree
	}
	if want != size {
		return api.ErrTierMismatch
	}
	delete(f.live, b.Slot())
	f.frees++
	return nil
}

// Live returns the number of blocks not yet released.
func (f *CountingAllocator) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

// Counts returns total allocations and releases.
func (f *CountingAllocator) Counts() (allocs, frees int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allocs, f.frees
}
