// File: pool/bench_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool_test

import (
	"strconv"
	"testing"

	"github.com/momentics/blockpool/pool"
)

func BenchmarkManagerAllocate(b *testing.B) {
	m := newManager(b)
	for _, size := range []int{32, 64, 128, 256, 512} {
		b.Run(strconv.Itoa(size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				blk, err := m.Allocate(size)
				if err != nil {
					b.Fatal(err)
				}
				if err := m.Deallocate(blk, size); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkManagerParallel(b *testing.B) {
	m := newManager(b)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			blk, err := m.Allocate(64)
			if err != nil {
				continue
			}
			_ = m.Deallocate(blk, 64)
		}
	})
}

func BenchmarkHandle(b *testing.B) {
	m := newManager(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h, err := pool.New(m, func(s *sample) { s.ID = uint32(i) })
		if err != nil {
			b.Fatal(err)
		}
		_ = h.Release()
	}
}
