// File: internal/concurrency/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RingBuffer is a bounded circular buffer with atomic head/tail,
// padded to prevent false sharing.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/blockpool/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[int] = (*RingBuffer[int])(nil)

// RingBuffer is safe for one producer and one consumer running
// concurrently. Multiple producers or consumers must serialize on their
// side, e.g. with a mutex per side.
type RingBuffer[T any] struct {
	data []T
	mask uint64
	head atomic.Uint64
	_    cpu.CacheLinePad
	tail atomic.Uint64
	_    cpu.CacheLinePad
}

// NewRingBuffer allocates a ring holding at least capacity items; the
// capacity is rounded up to a power of two.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}
	return &RingBuffer[T]{
		data: make([]T, size),
		mask: size - 1,
	}
}

// Enqueue adds item; returns false if full.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= uint64(len(r.data)) {
		return false
	}
	r.data[tail&r.mask] = item
	r.tail.Store(tail + 1)
	return true
}

// Dequeue removes the oldest item and clears its slot so the ring does not
// retain it.
func (r *RingBuffer[T]) Dequeue() (T, bool) {
	var zero T
	head := r.head.Load()
	if head >= r.tail.Load() {
		return zero, false
	}
	slot := &r.data[head&r.mask]
	item := *slot
	*slot = zero
	r.head.Store(head + 1)
	return item, true
}

// Len returns number of items currently in buffer.
func (r *RingBuffer[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns fixed buffer capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.data)
}
