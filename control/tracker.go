// File: control/tracker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package control

import (
	"log/slog"
	"time"

	"github.com/momentics/blockpool/pool"
)

// UsageTracker measures the utilization change across one operation.
//
//	t := control.Track(m, "load schedule")
//	defer t.Done()
type UsageTracker struct {
	m         *pool.Manager
	operation string
	initial   int
	start     time.Time
	log       *slog.Logger
}

// UsageDelta is the outcome of a tracked operation.
type UsageDelta struct {
	Operation string
	Before    int // utilization percent at Track
	After     int // utilization percent at Done
	Elapsed   time.Duration
}

// Delta returns the utilization change in percentage points.
func (u UsageDelta) Delta() int { return u.After - u.Before }

// Track records the current utilization of m.
func Track(m *pool.Manager, operation string) *UsageTracker {
	return &UsageTracker{
		m:         m,
		operation: operation,
		initial:   m.OverallUtilization(),
		start:     time.Now(),
		log:       m.Logger().With("component", "diag"),
	}
}

// Done logs and returns the change since Track.
func (t *UsageTracker) Done() UsageDelta {
	d := UsageDelta{
		Operation: t.operation,
		Before:    t.initial,
		After:     t.m.OverallUtilization(),
		Elapsed:   time.Since(t.start),
	}
	t.log.Info("memory usage",
		"operation", d.Operation,
		"before", d.Before,
		"after", d.After,
		"delta", d.Delta(),
		"elapsed", d.Elapsed,
	)
	return d
}
