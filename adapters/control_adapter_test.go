package adapters_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/blockpool/adapters"
	"github.com/momentics/blockpool/control"
	"github.com/momentics/blockpool/pool"
)

func TestControlAdapterPublishesPoolMetrics(t *testing.T) {
	cfg := pool.DefaultConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := pool.NewManager(cfg)
	require.NoError(t, err)
	ctrl := adapters.NewControlAdapter(control.NewDiagnostics(m))

	stats := ctrl.Stats()
	assert.Equal(t, 20480, stats["pool.total_capacity"])
	assert.Equal(t, 0, stats["pool.tiny.used_blocks"])
	assert.Contains(t, stats, "debug.platform.cpus")
	assert.Equal(t, true, stats["debug.pool.verify"])

	b, err := m.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, 0, ctrl.Stats()["pool.tiny.used_blocks"], "stale until refresh")
	ctrl.Refresh()
	assert.Equal(t, 1, ctrl.Stats()["pool.tiny.used_blocks"])
	require.NoError(t, m.Deallocate(b, 16))
}

func TestControlAdapterProbesAndMetrics(t *testing.T) {
	ctrl := adapters.NewControlAdapter(nil)
	ctrl.SetMetric("app.loops", 3)
	ctrl.RegisterDebugProbe("app.state", func() any { return "running" })

	stats := ctrl.Stats()
	assert.Equal(t, 3, stats["app.loops"])
	assert.Equal(t, "running", stats["debug.app.state"])
	assert.Equal(t, "running", ctrl.DumpState()["app.state"])
	assert.NotContains(t, stats, "pool.total_capacity")
}
