// File: internal/concurrency/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor dispatches tasks to a fixed set of worker goroutines, each
// optionally locked to an OS thread pinned to one CPU.

package concurrency

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/blockpool/affinity"
	"github.com/momentics/blockpool/api"
)

// TaskFunc is a unit of work to execute.
type TaskFunc func()

// Option configures an Executor.
type Option func(*Executor)

// WithPinning pins worker i to cpus[i%len(cpus)]. Pinning failures are
// logged and the worker continues unpinned.
func WithPinning(cpus []int) Option {
	return func(e *Executor) { e.cpus = append([]int(nil), cpus...) }
}

// WithQueueSize sets the task queue capacity (default 4 per worker).
func WithQueueSize(n int) Option {
	return func(e *Executor) { e.queueSize = n }
}

// WithLogger sets the logger for pinning and task panic reports.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// Executor manages a pool of worker goroutines.
type Executor struct {
	tasks     chan TaskFunc
	mu        sync.RWMutex // orders Submit against Close
	closed    bool
	workers   sync.WaitGroup
	inflight  sync.WaitGroup
	cpus      []int
	queueSize int
	log       *slog.Logger

	numWorkers     int
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
	pinned         atomic.Int64
}

// NewExecutor starts numWorkers workers. If numWorkers <= 0, defaults to
// runtime.NumCPU().
func NewExecutor(numWorkers int, opts ...Option) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	e := &Executor{numWorkers: numWorkers, queueSize: numWorkers * 4}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	e.log = e.log.With("component", "executor")
	if e.queueSize < 1 {
		e.queueSize = 1
	}
	e.tasks = make(chan TaskFunc, e.queueSize)
	e.workers.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.run(i)
	}
	return e
}

// Submit enqueues a task without blocking. It fails with
// api.ErrExecutorClosed after Close and api.ErrQueueFull when the queue
// has no room.
func (e *Executor) Submit(task TaskFunc) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return api.ErrExecutorClosed
	}
	e.inflight.Add(1)
	select {
	case e.tasks <- task:
		e.totalTasks.Add(1)
		return nil
	default:
		e.inflight.Done()
		return api.ErrQueueFull
	}
}

// Wait blocks until every submitted task has finished. It must not run
// concurrently with Submit.
func (e *Executor) Wait() { e.inflight.Wait() }

// NumWorkers returns the number of workers.
func (e *Executor) NumWorkers() int { return e.numWorkers }

// Close stops accepting tasks, lets queued tasks finish and waits for the
// workers to exit. It is safe to call more than once.
func (e *Executor) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.tasks)
	}
	e.mu.Unlock()
	e.workers.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total, done := e.totalTasks.Load(), e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"panics":          e.panics.Load(),
		"pinned_workers":  e.pinned.Load(),
		"num_workers":     int64(e.numWorkers),
	}
}

func (e *Executor) run(id int) {
	defer e.workers.Done()
	if len(e.cpus) > 0 {
		runtime.LockOSThread()
		cpu := e.cpus[id%len(e.cpus)]
		if err := affinity.SetAffinity(cpu); err != nil {
			e.log.Warn("worker pinning failed", "worker", id, "cpu", cpu, "error", err)
		} else {
			e.pinned.Add(1)
		}
	}
	for task := range e.tasks {
		e.execute(id, task)
	}
}

// execute runs the task, recovering from panics to keep the worker alive.
func (e *Executor) execute(id int, task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.log.Error("task panicked", "worker", id, "panic", r)
		}
		e.completedTasks.Add(1)
		e.inflight.Done()
	}()
	task()
}
