// Package pool
// Author: momentics <momentics@gmail.com>
//
// Tiered fixed-block allocation for long-running, memory-constrained
// processes. Each tier owns one arena of equal-size blocks carved out at
// construction and a LIFO stack of free slot indexes, so allocation and
// release are O(1) and never touch the general heap.
//
// Manager routes a request to the smallest sufficient tier and tracks
// memory pressure. Handle stores a typed, pointer-free value inside a
// block with single-owner semantics. See tier.go, manager.go, handle.go.
package pool
