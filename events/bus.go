// File: events/bus.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bus publishes events whose storage comes from the block pool. Events are
// queued as pooled handles and released back to the pool after dispatch.

package events

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/internal/concurrency"
	"github.com/momentics/blockpool/pool"
)

// Wildcard subscribes to every event type.
const Wildcard = "*"

// Handler consumes one event. The event is released when the handler
// returns, so it must not be retained.
type Handler func(*Event)

// Stats is a copy of the bus counters.
type Stats struct {
	Published          uint64 `json:"published"`
	Delivered          uint64 `json:"delivered"`
	Dropped            uint64 `json:"dropped"`
	AllocationFailures uint64 `json:"allocation_failures"`
	Pending            int    `json:"pending"`
}

// Bus is safe for concurrent publishers. Process may be called from any
// goroutine; concurrent Process calls serialize. Handlers may publish but
// must not call Process or Close.
type Bus struct {
	alloc   api.Allocator
	pending *concurrency.RingBuffer[pool.Handle[Event]]
	pubMu   sync.Mutex // producer side of pending
	procMu  sync.Mutex // consumer side of pending

	subsMu sync.RWMutex
	subs   map[string][]Handler

	seq           atomic.Uint32
	published     atomic.Uint64
	delivered     atomic.Uint64
	dropped       atomic.Uint64
	allocFailures atomic.Uint64

	log *slog.Logger
}

// NewBus creates a bus drawing event storage from a. At most capacity
// events (rounded up to a power of two) wait for Process.
func NewBus(a api.Allocator, capacity int, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		alloc:   a,
		pending: concurrency.NewRingBuffer[pool.Handle[Event]](capacity),
		subs:    make(map[string][]Handler),
		log:     log.With("component", "events"),
	}
}

// Subscribe registers h for eventType, or for all types with Wildcard.
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], h)
}

// Publish builds a pooled event and queues it for Process. Allocation
// failures are returned as is; the bus never falls back to the heap.
// A full queue releases the event and returns api.ErrQueueFull.
func (b *Bus) Publish(eventType string, data []byte, prio Priority) error {
	h, err := b.build(eventType, data, prio)
	if err != nil {
		return err
	}
	owned := h.Move()
	b.pubMu.Lock()
	ok := b.pending.Enqueue(owned)
	b.pubMu.Unlock()
	if !ok {
		b.dropped.Add(1)
		_ = owned.Release()
		return api.ErrQueueFull
	}
	b.published.Add(1)
	return nil
}

// PublishSync builds a pooled event and dispatches it on the caller's
// goroutine.
func (b *Bus) PublishSync(eventType string, data []byte, prio Priority) error {
	h, err := b.build(eventType, data, prio)
	if err != nil {
		return err
	}
	defer h.Release()
	b.published.Add(1)
	b.dispatch(h.Get())
	return nil
}

// Process dispatches up to max queued events (all when max <= 0) and
// returns how many were handled.
func (b *Bus) Process(max int) int {
	b.procMu.Lock()
	defer b.procMu.Unlock()
	n := 0
	for max <= 0 || n < max {
		h, ok := b.pending.Dequeue()
		if !ok {
			break
		}
		b.dispatch(h.Get())
		if err := h.Release(); err != nil {
			b.log.Error("event release failed", "error", err)
		}
		n++
	}
	return n
}

// Close drops queued events without dispatching them.
func (b *Bus) Close() {
	b.procMu.Lock()
	defer b.procMu.Unlock()
	for {
		h, ok := b.pending.Dequeue()
		if !ok {
			return
		}
		b.dropped.Add(1)
		_ = h.Release()
	}
}

// Stats returns the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:          b.published.Load(),
		Delivered:          b.delivered.Load(),
		Dropped:            b.dropped.Load(),
		AllocationFailures: b.allocFailures.Load(),
		Pending:            b.pending.Len(),
	}
}

func (b *Bus) build(eventType string, data []byte, prio Priority) (pool.Handle[Event], error) {
	var ev Event
	if err := ev.SetType(eventType); err != nil {
		return pool.Handle[Event]{}, err
	}
	if err := ev.SetData(data); err != nil {
		return pool.Handle[Event]{}, err
	}
	ev.Priority = prio
	ev.Timestamp = time.Now().UnixNano()
	ev.Seq = b.seq.Add(1)

	h, err := pool.New(b.alloc, func(e *Event) { *e = ev })
	if err != nil {
		b.allocFailures.Add(1)
		b.log.Warn("event allocation failed", "type", eventType, "error", err)
		return pool.Handle[Event]{}, err
	}
	return h, nil
}

func (b *Bus) dispatch(e *Event) {
	b.subsMu.RLock()
	exact := b.subs[e.Type()]
	all := b.subs[Wildcard]
	b.subsMu.RUnlock()
	for _, h := range exact {
		h(e)
	}
	for _, h := range all {
		h(e)
	}
	b.delivered.Add(1)
}
