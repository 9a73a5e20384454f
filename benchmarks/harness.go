// File: benchmarks/harness.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Workload drivers that measure allocator latency and exercise its
// invariants under allocation churn, fragmentation and contention.

package benchmarks

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/internal/concurrency"
	"github.com/momentics/blockpool/pool"
)

// maxOutstanding bounds the blocks each contention worker holds.
const maxOutstanding = 10

// Result is the outcome of one workload. Latencies cover single allocate
// calls; failed calls count toward Failures but not toward min/max.
type Result struct {
	Name       string        `json:"test_name"`
	Iterations uint64        `json:"iterations"`
	Total      time.Duration `json:"total_time_ns"`
	Avg        time.Duration `json:"avg_time_ns"`
	Min        time.Duration `json:"min_time_ns"`
	Max        time.Duration `json:"max_time_ns"`
	Failures   uint64        `json:"failures"`
	Verified   bool          `json:"verified"`
}

// Harness drives workloads against one Manager. It expects exclusive use
// of the manager while a workload runs.
type Harness struct {
	m        *pool.Manager
	seed     uint64
	cpus     []int
	duration time.Duration
	log      *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithSeed fixes the random source of the randomized workloads.
func WithSeed(seed uint64) Option { return func(h *Harness) { h.seed = seed } }

// WithPinning pins contention workers to the given CPUs.
func WithPinning(cpus []int) Option { return func(h *Harness) { h.cpus = cpus } }

// WithDuration sets the duration RunAll gives timed workloads.
func WithDuration(d time.Duration) Option { return func(h *Harness) { h.duration = d } }

// NewHarness binds a harness to m.
func NewHarness(m *pool.Manager, opts ...Option) *Harness {
	h := &Harness{m: m, seed: 1, duration: 3 * time.Second}
	for _, opt := range opts {
		opt(h)
	}
	h.log = m.Logger().With("component", "bench")
	return h
}

// latency accumulates per-call timings.
type latency struct {
	min, max time.Duration
	n        uint64
}

func newLatency() latency { return latency{min: math.MaxInt64} }

func (l *latency) add(d time.Duration) {
	l.n++
	l.min = min(l.min, d)
	l.max = max(l.max, d)
}

func (l *latency) merge(o latency) {
	l.n += o.n
	l.min = min(l.min, o.min)
	l.max = max(l.max, o.max)
}

func (h *Harness) finish(r Result, lat latency) Result {
	if lat.n > 0 {
		r.Min, r.Max = lat.min, lat.max
	}
	r.Verified = h.m.Verify()
	h.log.Info("benchmark finished",
		"name", r.Name, "iterations", r.Iterations, "failures", r.Failures,
		"avg", r.Avg, "verified", r.Verified)
	if !r.Verified {
		h.log.Error("free-list invariant violated", "name", r.Name)
	}
	return r
}

// Allocation allocates size bytes iterations times, then frees every block.
// Avg spreads the total over both phases.
func (h *Harness) Allocation(size, iterations int) Result {
	r := Result{Name: "Allocation/Deallocation", Iterations: uint64(iterations)}
	lat := newLatency()
	held := pool.NewBatch(h.m, size, min(iterations, h.m.TotalCapacity()))

	start := time.Now()
	for i := 0; i < iterations; i++ {
		t0 := time.Now()
		_, err := held.Allocate()
		d := time.Since(t0)
		if err != nil {
			r.Failures++
			continue
		}
		lat.add(d)
	}
	if err := held.Release(); err != nil {
		h.log.Error("deallocate failed", "size", size, "error", err)
	}
	r.Total = time.Since(start)
	if iterations > 0 {
		r.Avg = r.Total / time.Duration(2*iterations)
	}
	return h.finish(r, lat)
}

type sized struct {
	b    api.Block
	size int
}

var tierSizes = []int{32, 64, 128, 256, 512}

// Fragmentation cycles through the tier sizes and frees a random
// outstanding block about half the time, until d has elapsed.
func (h *Harness) Fragmentation(d time.Duration) Result {
	r := Result{Name: "Fragmentation Test"}
	lat := newLatency()
	rng := rand.New(rand.NewPCG(h.seed, 0))
	var held []sized

	start := time.Now()
	deadline := start.Add(d)
	for i := 0; time.Now().Before(deadline); i++ {
		size := tierSizes[i%len(tierSizes)]
		t0 := time.Now()
		b, err := h.m.Allocate(size)
		el := time.Since(t0)
		if err != nil {
			r.Failures++
		} else {
			lat.add(el)
			held = append(held, sized{b, size})
		}
		if len(held) > 0 && rng.IntN(100) < 50 {
			j := rng.IntN(len(held))
			_ = h.m.Deallocate(held[j].b, held[j].size)
			held[j] = held[len(held)-1]
			held = held[:len(held)-1]
		}
		r.Iterations++
	}
	for _, s := range held {
		_ = h.m.Deallocate(s.b, s.size)
	}
	r.Total = time.Since(start)
	if r.Iterations > 0 {
		r.Avg = r.Total / time.Duration(r.Iterations)
	}
	return h.finish(r, lat)
}

// Multithreaded runs threads workers on an executor, each allocating mixed
// 32/64/128-byte blocks and freeing the oldest once more than ten are
// outstanding, until d has elapsed.
func (h *Harness) Multithreaded(threads int, d time.Duration) Result {
	return h.contend("Multithreaded Contention", threads, d, func(i int, _ *rand.Rand) int {
		return tierSizes[i%3]
	})
}

// Stress runs one worker per CPU with random sizes across the full tier
// range, including sizes no tier serves, until d has elapsed.
func (h *Harness) Stress(d time.Duration) Result {
	limit := h.m.MaxBlockSize() + h.m.MaxBlockSize()/8
	return h.contend("Stress", 0, d, func(_ int, rng *rand.Rand) int {
		return rng.IntN(limit + 1)
	})
}

func (h *Harness) contend(name string, threads int, d time.Duration, next func(int, *rand.Rand) int) Result {
	opts := []concurrency.Option{concurrency.WithLogger(h.m.Logger())}
	if len(h.cpus) > 0 {
		opts = append(opts, concurrency.WithPinning(h.cpus))
	}
	if threads > 0 {
		opts = append(opts, concurrency.WithQueueSize(threads))
	}
	exec := concurrency.NewExecutor(threads, opts...)
	defer exec.Close()
	threads = exec.NumWorkers()

	var (
		iterations, failures atomic.Uint64
		mu                   sync.Mutex
		lat                  = newLatency()
	)
	start := time.Now()
	deadline := start.Add(d)
	for w := 0; w < threads; w++ {
		rng := rand.New(rand.NewPCG(h.seed, uint64(w)+1))
		err := exec.Submit(func() {
			local := newLatency()
			held := queue.New()
			var n, fails uint64
			for i := 0; time.Now().Before(deadline); i++ {
				size := next(i, rng)
				t0 := time.Now()
				b, err := h.m.Allocate(size)
				el := time.Since(t0)
				n++
				if err != nil {
					fails++
				} else {
					local.add(el)
					held.Add(sized{b, size})
				}
				if held.Length() > maxOutstanding {
					s := held.Remove().(sized)
					_ = h.m.Deallocate(s.b, s.size)
				}
			}
			for held.Length() > 0 {
				s := held.Remove().(sized)
				_ = h.m.Deallocate(s.b, s.size)
			}
			iterations.Add(n)
			failures.Add(fails)
			mu.Lock()
			lat.merge(local)
			mu.Unlock()
		})
		if err != nil {
			h.log.Error("worker submit failed", "worker", w, "error", err)
		}
	}
	exec.Wait()

	r := Result{
		Name:       name,
		Iterations: iterations.Load(),
		Failures:   failures.Load(),
		Total:      time.Since(start),
	}
	if r.Iterations > 0 {
		r.Avg = r.Total / time.Duration(r.Iterations)
	}
	return h.finish(r, lat)
}

// RunAll runs the standard suite: allocation at three sizes,
// fragmentation, contention on four workers and stress.
func (h *Harness) RunAll() []Result {
	h.log.Info("starting memory pool benchmarks", "duration", h.duration)
	results := []Result{
		h.Allocation(32, 10000),
		h.Allocation(128, 5000),
		h.Allocation(512, 1000),
		h.Fragmentation(h.duration),
		h.Multithreaded(4, h.duration),
		h.Stress(h.duration),
	}
	h.log.Info("benchmarks complete", "count", len(results))
	return results
}
