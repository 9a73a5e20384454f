// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Monitor using control package primitives.

package adapters

import (
	"github.com/momentics/blockpool/api"
	"github.com/momentics/blockpool/control"
)

// ControlAdapter joins the metrics registry, debug probes and pool
// diagnostics behind api.Monitor.
type ControlAdapter struct {
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
	diag    *control.Diagnostics
}

// Ensure compile-time compliance.
var _ api.Monitor = (*ControlAdapter)(nil)

// NewControlAdapter registers pool and platform probes and publishes an
// initial snapshot. A nil diag yields a monitor with platform probes only.
func NewControlAdapter(diag *control.Diagnostics) *ControlAdapter {
	adapter := &ControlAdapter{
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		diag:    diag,
	}
	control.RegisterPlatformProbes(adapter.debug)
	if diag != nil {
		diag.RegisterProbes(adapter.debug)
	}
	adapter.Refresh()
	return adapter
}

// Refresh republishes the current pool snapshot into the metrics registry.
func (c *ControlAdapter) Refresh() {
	if c.diag != nil {
		c.diag.Publish(c.metrics)
	}
}

// Stats returns metrics as of the last Refresh plus live probe output
// under the "debug." prefix.
func (c *ControlAdapter) Stats() map[string]any {
	combined := c.metrics.GetSnapshot()
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// SetMetric records an application metric next to the pool metrics.
func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

func (c *ControlAdapter) DumpState() map[string]any {
	return c.debug.DumpState()
}

// Metrics exposes the underlying registry.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }
