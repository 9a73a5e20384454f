// File: events/bus_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package events_test

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/events"
	"github.com/momentics/blockpool/fake"
	"github.com/momentics/blockpool/pool"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newBus(t *testing.T, capacity int) (*events.Bus, *pool.Manager) {
	t.Helper()
	cfg := pool.DefaultConfig()
	cfg.Logger = quiet()
	m, err := pool.NewManager(cfg)
	require.NoError(t, err)
	return events.NewBus(m, capacity, quiet()), m
}

func TestEventFitsMediumTier(t *testing.T) {
	size := int(unsafe.Sizeof(events.Event{}))
	assert.Greater(t, size, 64)
	assert.LessOrEqual(t, size, 128)
}

func TestEventFields(t *testing.T) {
	var e events.Event
	require.NoError(t, e.SetType("sensor.temperature"))
	require.NoError(t, e.SetData([]byte{1, 2, 3}))
	assert.Equal(t, "sensor.temperature", e.Type())
	assert.Equal(t, []byte{1, 2, 3}, e.Data())

	assert.ErrorIs(t, e.SetType(""), api.ErrInvalidArgument)
	assert.ErrorIs(t, e.SetData(make([]byte, events.MaxDataLen+1)), api.ErrInvalidArgument)
	assert.Equal(t, "critical", events.PriorityCritical.String())
}

func TestBusPublishProcess(t *testing.T) {
	bus, m := newBus(t, 8)
	var got []string
	bus.Subscribe("door.open", func(e *events.Event) {
		got = append(got, e.Type()+":"+string(e.Data()))
	})
	var all int
	bus.Subscribe(events.Wildcard, func(*events.Event) { all++ })

	require.NoError(t, bus.Publish("door.open", []byte("a"), events.PriorityHigh))
	require.NoError(t, bus.Publish("door.close", nil, events.PriorityNormal))
	assert.Equal(t, 2, m.Tier(2).Allocated())

	assert.Equal(t, 2, bus.Process(0))
	assert.Equal(t, []string{"door.open:a"}, got)
	assert.Equal(t, 2, all)
	assert.Zero(t, m.Tier(2).Allocated())

	s := bus.Stats()
	assert.Equal(t, uint64(2), s.Published)
	assert.Equal(t, uint64(2), s.Delivered)
	assert.Zero(t, s.Pending)
	assert.True(t, m.Verify())
}

func TestBusProcessLimit(t *testing.T) {
	bus, _ := newBus(t, 8)
	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish("tick", nil, events.PriorityLow))
	}
	assert.Equal(t, 3, bus.Process(3))
	assert.Equal(t, 2, bus.Stats().Pending)
	assert.Equal(t, 2, bus.Process(0))
}

func TestBusQueueFullReleasesEvent(t *testing.T) {
	bus, m := newBus(t, 2)
	require.NoError(t, bus.Publish("a", nil, events.PriorityNormal))
	require.NoError(t, bus.Publish("b", nil, events.PriorityNormal))
	assert.ErrorIs(t, bus.Publish("c", nil, events.PriorityNormal), api.ErrQueueFull)
	assert.Equal(t, 2, m.Tier(2).Allocated())
	assert.Equal(t, uint64(1), bus.Stats().Dropped)

	bus.Close()
	assert.Zero(t, m.Tier(2).Allocated())
	assert.Equal(t, uint64(3), bus.Stats().Dropped)
}

func TestBusPoolExhaustion(t *testing.T) {
	alloc := &fake.ExhaustedAllocator{}
	bus := events.NewBus(alloc, 4, quiet())
	err := bus.Publish("x", nil, events.PriorityNormal)
	assert.ErrorIs(t, err, api.ErrExhausted)
	assert.Equal(t, uint64(1), bus.Stats().AllocationFailures)
	assert.Zero(t, bus.Stats().Published)
}

func TestBusPublishSync(t *testing.T) {
	alloc := fake.NewCountingAllocator()
	bus := events.NewBus(alloc, 4, quiet())
	var seen events.Priority
	bus.Subscribe("alarm", func(e *events.Event) { seen = e.Priority })

	require.NoError(t, bus.PublishSync("alarm", []byte("x"), events.PriorityCritical))
	assert.Equal(t, events.PriorityCritical, seen)
	assert.Zero(t, alloc.Live())
	allocs, frees := alloc.Counts()
	assert.Equal(t, 1, allocs)
	assert.Equal(t, 1, frees)
}

func TestBusInvalidEventDoesNotAllocate(t *testing.T) {
	alloc := fake.NewCountingAllocator()
	bus := events.NewBus(alloc, 4, quiet())
	assert.ErrorIs(t, bus.Publish("", nil, events.PriorityNormal), api.ErrInvalidArgument)
	allocs, _ := alloc.Counts()
	assert.Zero(t, allocs)
}

func TestBusConcurrentPublishers(t *testing.T) {
	bus, m := newBus(t, 64)
	var mu sync.Mutex
	delivered := 0
	bus.Subscribe(events.Wildcard, func(*events.Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	var published sync.Map
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ok := 0
			for i := 0; i < 200; i++ {
				if bus.Publish("load", []byte{byte(i)}, events.PriorityNormal) == nil {
					ok++
				}
				if i%8 == 0 {
					bus.Process(0)
				}
			}
			published.Store(w, ok)
		}(w)
	}
	wg.Wait()
	bus.Process(0)

	total := 0
	published.Range(func(_, v any) bool { total += v.(int); return true })
	assert.Equal(t, total, delivered)
	assert.Zero(t, totalAllocated(m))
	assert.True(t, m.Verify())
}

func totalAllocated(m *pool.Manager) int {
	n := 0
	for _, p := range m.Tiers() {
		n += p.Allocated()
	}
	return n
}
