// File: facade/blockpool.go
// Unified facade layer for blockpool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BlockPool is the composition root: it builds the single pool Manager of
// a process and injects it into diagnostics, the control monitor, the
// pooled event bus, the benchmark harness and the task executor.

package facade

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/momentics/blockpool/adapters"
	"github.com/momentics/blockpool/affinity"
	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/benchmarks"
	"github.com/momentics/blockpool/control"
	"github.com/momentics/blockpool/events"
	"github.com/momentics/blockpool/internal/concurrency"
	"github.com/momentics/blockpool/pool"
)

// Config holds parameters immutable per run.
type Config struct {
	Pool           *pool.Config  // Tier layout and thresholds; nil means pool.DefaultConfig()
	EventQueueSize int           // Pending event capacity of the bus
	NumWorkers     int           // Executor workers; <= 0 means one per CPU
	CPUAffinity    bool          // Pin executor and benchmark workers to allowed CPUs
	PollInterval   time.Duration // Period of event processing and metrics refresh after Start
	BenchDuration  time.Duration // Duration of timed workloads in RunBenchmarks
	Seed           uint64        // Seed of randomized benchmark workloads
	Logger         *slog.Logger  // Root logger; nil means slog.Default()
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Pool:           pool.DefaultConfig(),
		EventQueueSize: 16,
		NumWorkers:     4,
		CPUAffinity:    false,
		PollInterval:   100 * time.Millisecond,
		BenchDuration:  3 * time.Second,
		Seed:           1,
	}
}

// BlockPool aggregates the allocator and its collaborators.
type BlockPool struct {
	manager  *pool.Manager
	diag     *control.Diagnostics
	monitor  *adapters.ControlAdapter
	bus      *events.Bus
	harness  *benchmarks.Harness
	executor *concurrency.Executor
	log      *slog.Logger

	config  *Config
	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// New validates cfg and wires every component around one Manager.
func New(cfg *Config) (*BlockPool, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.PollInterval <= 0 || cfg.EventQueueSize <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidConfig, "facade: poll interval and event queue size must be positive").
			WithContext("poll_interval", cfg.PollInterval).
			WithContext("event_queue_size", cfg.EventQueueSize).
			WithCause(api.ErrInvalidConfig)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	pc := pool.DefaultConfig()
	if cfg.Pool != nil {
		c := *cfg.Pool
		pc = &c
	}
	if pc.Logger == nil {
		pc.Logger = log
	}
	m, err := pool.NewManager(pc)
	if err != nil {
		return nil, err
	}

	bp := &BlockPool{
		manager: m,
		diag:    control.NewDiagnostics(m),
		bus:     events.NewBus(m, cfg.EventQueueSize, log),
		log:     log.With("component", "facade"),
		config:  cfg,
	}
	bp.monitor = adapters.NewControlAdapter(bp.diag)

	execOpts := []concurrency.Option{concurrency.WithLogger(log)}
	benchOpts := []benchmarks.Option{
		benchmarks.WithSeed(cfg.Seed),
		benchmarks.WithDuration(cfg.BenchDuration),
	}
	if cfg.CPUAffinity {
		cpus, err := affinity.AllowedCPUs()
		switch {
		case err == nil:
			execOpts = append(execOpts, concurrency.WithPinning(cpus))
			benchOpts = append(benchOpts, benchmarks.WithPinning(cpus))
		case errors.Is(err, api.ErrNotSupported):
			bp.log.Info("cpu affinity unavailable, workers run unpinned")
		default:
			bp.log.Warn("cpu affinity query failed", "error", err)
		}
	}
	bp.executor = concurrency.NewExecutor(cfg.NumWorkers, execOpts...)
	bp.harness = benchmarks.NewHarness(m, benchOpts...)

	bp.monitor.RegisterDebugProbe("events.stats", func() any { return bp.bus.Stats() })
	bp.monitor.RegisterDebugProbe("executor.stats", func() any { return bp.executor.Stats() })
	m.OnPressure(func(level pool.PressureLevel, util int) {
		_ = bp.bus.Publish("pool.pressure", []byte(level.String()), pressurePriority(level))
	})
	return bp, nil
}

func pressurePriority(level pool.PressureLevel) events.Priority {
	switch level {
	case pool.PressureCritical:
		return events.PriorityCritical
	case pool.PressureLow:
		return events.PriorityHigh
	default:
		return events.PriorityNormal
	}
}

// Start begins periodic event processing and metrics refresh.
func (b *BlockPool) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return api.ErrExecutorClosed
	}
	if b.started {
		return nil
	}
	b.started = true
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	go b.loop(b.stop, b.done)
	b.log.Info("blockpool started", "poll_interval", b.config.PollInterval)
	return nil
}

func (b *BlockPool) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(b.config.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			b.Poll()
		}
	}
}

// Poll dispatches queued events and refreshes published metrics once.
func (b *BlockPool) Poll() {
	b.bus.Process(0)
	b.monitor.Refresh()
}

// Stop halts the poll loop, drops queued events and waits for executor
// tasks. Stop is idempotent.
func (b *BlockPool) Stop() error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true
	started := b.started
	b.mu.Unlock()

	if started {
		close(b.stop)
		<-b.done
	}
	b.executor.Close()
	b.bus.Close()
	b.diag.LogStats()
	b.log.Info("blockpool stopped")
	return nil
}

// Submit runs task on the executor.
func (b *BlockPool) Submit(task func()) error { return b.executor.Submit(task) }

// Allocator returns the shared allocator for collaborators.
func (b *BlockPool) Allocator() api.Allocator { return b.manager }

// Manager returns the pool manager.
func (b *BlockPool) Manager() *pool.Manager { return b.manager }

// Diagnostics returns the diagnostics view of the manager.
func (b *BlockPool) Diagnostics() *control.Diagnostics { return b.diag }

// Monitor returns the metrics and probe surface.
func (b *BlockPool) Monitor() api.Monitor { return b.monitor }

// Events returns the pooled event bus.
func (b *BlockPool) Events() *events.Bus { return b.bus }

// Snapshot returns the current diagnostics snapshot.
func (b *BlockPool) Snapshot() api.Snapshot { return b.diag.Snapshot() }

// RunBenchmarks runs the standard workload suite. Blocks held elsewhere
// while it runs skew its failure counts.
func (b *BlockPool) RunBenchmarks() []benchmarks.Result { return b.harness.RunAll() }

// Harness returns the benchmark harness for individual workloads.
func (b *BlockPool) Harness() *benchmarks.Harness { return b.harness }
