// File: pool/batch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Batch of same-size blocks released together.
// This implementation is NOT thread-safe.

package pool

import (
	"errors"

	"github.com/momentics/blockpool/api"
)

// Batch collects blocks allocated with one request size so they can be
// returned in a single call.
type Batch struct {
	alloc  api.Allocator
	size   int
	blocks []api.Block
}

// NewBatch creates an empty batch for size-byte requests with room for
// capacity blocks.
func NewBatch(a api.Allocator, size, capacity int) *Batch {
	return &Batch{alloc: a, size: size, blocks: make([]api.Block, 0, capacity)}
}

// Allocate adds one block to the batch.
func (b *Batch) Allocate() (api.Block, error) {
	blk, err := b.alloc.Allocate(b.size)
	if err != nil {
		return api.Block{}, err
	}
	b.blocks = append(b.blocks, blk)
	return blk, nil
}

// Fill allocates up to n blocks, stopping at the first failure, and
// returns how many were added.
func (b *Batch) Fill(n int) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := b.Allocate(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// Len returns number of blocks in the batch.
func (b *Batch) Len() int { return len(b.blocks) }

// Get retrieves the block at idx.
func (b *Batch) Get(idx int) api.Block { return b.blocks[idx] }

// Size returns the request size of the batch.
func (b *Batch) Size() int { return b.size }

// Release returns every block and empties the batch, keeping its storage.
// All blocks are attempted; failures are joined.
func (b *Batch) Release() error {
	var errs []error
	for _, blk := range b.blocks {
		if err := b.alloc.Deallocate(blk, b.size); err != nil {
			errs = append(errs, err)
		}
	}
	clear(b.blocks)
	b.blocks = b.blocks[:0]
	return errors.Join(errs...)
}
