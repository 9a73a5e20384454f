// File: pool/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Handle is an owning view of a value stored inside a pooled block.

package pool

import (
	"unsafe"

	"github.com/momentics/blockpool/api"
)

// Disposer is implemented by pooled values that must run cleanup before
// their block is returned.
type Disposer interface {
	Dispose()
}

// Handle owns exactly one block holding one T, or nothing.
//
// A Handle must not be copied: pass it on with Move, which empties the
// source. Release returns the block and is safe to call on every exit path,
// typically via defer; releasing an empty handle is a no-op.
type Handle[T any] struct {
	alloc api.Allocator
	block api.Block
	size  int
	value *T
}

// New allocates sizeof(T) bytes from a, zeroes them and runs init on the
// in-place value. On allocation failure init is never invoked and an empty
// handle is returned with the allocator error.
//
// T must be free of Go pointers (strings, slices, maps, interfaces, ...)
// because pooled arenas are not scanned by the garbage collector.
func New[T any](a api.Allocator, init func(*T)) (Handle[T], error) {
	if err := checkPooledType[T](); err != nil {
		return Handle[T]{}, err
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	b, err := a.Allocate(size)
	if err != nil {
		return Handle[T]{}, err
	}
	buf := b.Bytes()
	if len(buf) < size {
		_ = a.Deallocate(b, size)
		return Handle[T]{}, api.ErrInvalidBlock
	}
	clear(buf[:size])
	v := (*T)(unsafe.Pointer(unsafe.SliceData(buf)))
	if init != nil {
		init(v)
	}
	return Handle[T]{alloc: a, block: b, size: size, value: v}, nil
}

// With runs fn on a freshly constructed pooled T and releases it on every
// exit path, including error returns and panics. A release failure is
// reported only when fn itself succeeded.
func With[T any](a api.Allocator, init func(*T), fn func(*T) error) (err error) {
	h, err := New(a, init)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := h.Release(); err == nil {
			err = rerr
		}
	}()
	return fn(h.Get())
}

// Get returns the pooled value, nil for an empty handle.
func (h *Handle[T]) Get() *T { return h.value }

// Valid reports whether the handle owns a value.
func (h *Handle[T]) Valid() bool { return h.value != nil }

// Size returns the requested size, sizeof(T).
func (h *Handle[T]) Size() int { return h.size }

// BlockSize returns the size of the owning tier's blocks.
func (h *Handle[T]) BlockSize() int { return h.block.Size() }

// Move transfers ownership to the returned handle and empties h.
func (h *Handle[T]) Move() Handle[T] {
	out := *h
	*h = Handle[T]{}
	return out
}

// Release disposes the value, zeroes its storage and returns the block.
// When the allocator can check liveness, a stale copy of an already
// released handle fails with api.ErrDoubleFree before the storage, which
// may belong to a new owner by now, is touched.
func (h *Handle[T]) Release() error {
	if h.value == nil {
		return nil
	}
	if lc, ok := h.alloc.(api.LiveChecker); ok && !lc.Live(h.block) {
		*h = Handle[T]{}
		return api.ErrDoubleFree
	}
	if d, ok := any(h.value).(Disposer); ok {
		d.Dispose()
	}
	clear(h.block.Bytes()[:h.size])
	a, b, size := h.alloc, h.block, h.size
	*h = Handle[T]{}
	return a.Deallocate(b, size)
}
