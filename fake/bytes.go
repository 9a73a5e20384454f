// File: fake/bytes.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import "unsafe"

// unsafeBytes views a word slice as bytes so fake blocks share the 8-byte
// alignment of real pool blocks.
func unsafeBytes(words []uint64) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), len(words)*8)
}
