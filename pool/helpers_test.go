// File: pool/helpers_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/momentics/blockpool/pool"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t testing.TB, mutate ...func(*pool.Config)) *pool.Manager {
	t.Helper()
	cfg := pool.DefaultConfig()
	cfg.Logger = quietLogger()
	for _, fn := range mutate {
		fn(cfg)
	}
	m, err := pool.NewManager(cfg)
	require.NoError(t, err)
	return m
}

func totalAllocated(m *pool.Manager) int {
	n := 0
	for _, p := range m.Tiers() {
		n += p.Allocated()
	}
	return n
}
