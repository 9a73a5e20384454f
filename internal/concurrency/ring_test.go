// File: internal/concurrency/ring_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferFIFO(t *testing.T) {
	r := NewRingBuffer[int](3)
	require.Equal(t, 4, r.Cap())
	for i := 1; i <= 4; i++ {
		require.True(t, r.Enqueue(i))
	}
	assert.False(t, r.Enqueue(5))
	assert.Equal(t, 4, r.Len())

	for i := 1; i <= 4; i++ {
		v, ok := r.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.Dequeue()
	assert.False(t, ok)
}

func TestRingBufferClearsSlots(t *testing.T) {
	r := NewRingBuffer[*int](1)
	v := 7
	require.True(t, r.Enqueue(&v))
	_, ok := r.Dequeue()
	require.True(t, ok)
	assert.Nil(t, r.data[0])
}

func TestRingBufferSPSC(t *testing.T) {
	r := NewRingBuffer[int](16)
	const n = 10000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; {
			if r.Enqueue(i) {
				i++
			}
		}
	}()
	for want := 0; want < n; {
		v, ok := r.Dequeue()
		if !ok {
			continue
		}
		require.Equal(t, want, v)
		want++
	}
	<-done
}
