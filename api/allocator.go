// File: api/allocator.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocation contract consumed by collaborators (event bus, RPC layer, harness).

package api

// Allocator hands out fixed-size blocks by requested size.
// Callers must pass back the exact size used at allocation time.
type Allocator interface {
	// Allocate returns a block of at least size bytes or an error
	// (ErrExhausted, ErrOversize, ErrInvalidSize). It never blocks.
	Allocate(size int) (Block, error)

	// Deallocate returns a block to the tier derived from size.
	Deallocate(b Block, size int) error
}

// LiveChecker is implemented by allocators that can tell whether a block
// is still owned by the caller presenting it. A stale copy of a released
// block reports false even after its slot was handed to a new owner.
type LiveChecker interface {
	Live(b Block) bool
}

// Block is a value handle naming one fixed-size cell of a tier arena.
// The zero Block is empty. A Block must be returned exactly once.
type Block struct {
	data []byte
	tier uint8
	slot uint16
	gen  uint32
}

// NewBlock is used by pool implementations to mint a block handle.
func NewBlock(data []byte, tier, slot int, gen uint32) Block {
	return Block{data: data, tier: uint8(tier), slot: uint16(slot), gen: gen}
}

// Bytes returns the block storage. Its length equals the tier block size.
func (b Block) Bytes() []byte { return b.data }

// Size returns the tier block size, 0 for an empty block.
func (b Block) Size() int { return len(b.data) }

// Tier returns the index of the originating tier.
func (b Block) Tier() int { return int(b.tier) }

// Slot returns the slot index inside the tier arena.
func (b Block) Slot() int { return int(b.slot) }

// Generation returns the slot generation captured at allocation.
func (b Block) Generation() uint32 { return b.gen }

// IsZero reports whether b holds no block.
func (b Block) IsZero() bool { return b.data == nil }
