// File: internal/concurrency/executor_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/blockpool/api"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestExecutorRunsTasks(t *testing.T) {
	e := NewExecutor(4, WithQueueSize(64), quiet())
	defer e.Close()

	var n atomic.Int64
	for i := 0; i < 50; i++ {
		require.NoError(t, e.Submit(func() { n.Add(1) }))
	}
	e.Wait()
	assert.Equal(t, int64(50), n.Load())

	stats := e.Stats()
	assert.Equal(t, int64(50), stats["completed_tasks"])
	assert.Zero(t, stats["pending_tasks"])
	assert.Equal(t, int64(4), stats["num_workers"])
}

func TestExecutorRecoversPanics(t *testing.T) {
	e := NewExecutor(1, quiet())
	defer e.Close()

	require.NoError(t, e.Submit(func() { panic("boom") }))
	ran := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(ran) }))
	e.Wait()
	<-ran
	assert.Equal(t, int64(1), e.Stats()["panics"])
}

func TestExecutorQueueFull(t *testing.T) {
	e := NewExecutor(1, WithQueueSize(1), quiet())
	defer e.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(started); <-block }))
	<-started
	require.NoError(t, e.Submit(func() {}))
	assert.ErrorIs(t, e.Submit(func() {}), api.ErrQueueFull)
	close(block)
	e.Wait()
}

func TestExecutorClose(t *testing.T) {
	e := NewExecutor(2, quiet())
	var n atomic.Int64
	require.NoError(t, e.Submit(func() { n.Add(1) }))
	e.Close()
	e.Close()
	assert.Equal(t, int64(1), n.Load())
	assert.ErrorIs(t, e.Submit(func() {}), api.ErrExecutorClosed)
}

func TestExecutorPinningFallsBack(t *testing.T) {
	// An impossible CPU id fails to pin; workers must still run tasks.
	e := NewExecutor(2, WithPinning([]int{1 << 20}), quiet())
	defer e.Close()
	done := make(chan struct{})
	require.NoError(t, e.Submit(func() { close(done) }))
	<-done
	e.Wait()
	assert.Zero(t, e.Stats()["pinned_workers"])
}
