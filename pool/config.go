// File: pool/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Static allocator configuration. Tiers are fixed at construction; nothing
// here is reloadable at runtime.

package pool

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/momentics/blockpool/api"
)

const (
	// maxBlockCount bounds a tier so slot indexes fit the uint16 free stack.
	maxBlockCount = 0xFFFF
	// maxTiers bounds the tier count so tier tags fit a Block.
	maxTiers = 255
	// blockAlign is the required block size granularity.
	blockAlign = 8
)

// TierConfig describes one size tier.
type TierConfig struct {
	Name       string // Human-readable tier name (TINY, SMALL, ...)
	BlockSize  int    // Size of each block in bytes, multiple of 8
	BlockCount int    // Number of blocks in the tier arena
}

// Config holds parameters immutable per run.
type Config struct {
	Tiers                   []TierConfig // Size tiers, any order; sorted by BlockSize on construction
	LowMemoryThreshold      int          // Overall utilization percent raising the low-memory alert
	CriticalMemoryThreshold int          // Overall utilization percent raising the critical alert
	FragmentationThreshold  int          // Fragmentation index above which diagnostics flag fragmentation
	TrackHoldTime           bool         // Whether tiers account block hold time
	PoisonFreed             bool         // Whether freed blocks are overwritten with PoisonByte
	Logger                  *slog.Logger // Destination for lifecycle and alert logs; nil means slog.Default()
}

// PoisonByte fills freed blocks when Config.PoisonFreed is set.
const PoisonByte = 0xDE

// DefaultTiers returns the five shipped tiers (20 KiB static footprint).
func DefaultTiers() []TierConfig {
	return []TierConfig{
		{Name: "TINY", BlockSize: 32, BlockCount: 128},
		{Name: "SMALL", BlockSize: 64, BlockCount: 64},
		{Name: "MEDIUM", BlockSize: 128, BlockCount: 32},
		{Name: "LARGE", BlockSize: 256, BlockCount: 16},
		{Name: "XLARGE", BlockSize: 512, BlockCount: 8},
	}
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Tiers:                   DefaultTiers(),
		LowMemoryThreshold:      80,
		CriticalMemoryThreshold: 95,
		FragmentationThreshold:  50,
		TrackHoldTime:           true,
	}
}

// TotalMemory returns the static footprint of all tier arenas in bytes.
func (c *Config) TotalMemory() int {
	total := 0
	for _, t := range c.Tiers {
		total += t.BlockSize * t.BlockCount
	}
	return total
}

// Validate checks tier geometry and thresholds.
func (c *Config) Validate() error {
	if len(c.Tiers) == 0 || len(c.Tiers) > maxTiers {
		return configError("tier count out of range").WithContext("tiers", len(c.Tiers))
	}
	seen := make(map[int]bool, len(c.Tiers))
	for _, t := range c.Tiers {
		switch {
		case t.BlockSize < blockAlign || t.BlockSize%blockAlign != 0:
			return configError("block size must be a positive multiple of 8").
				WithContext("tier", t.Name).WithContext("block_size", t.BlockSize)
		case t.BlockCount <= 0 || t.BlockCount > maxBlockCount:
			return configError("block count out of range").
				WithContext("tier", t.Name).WithContext("block_count", t.BlockCount)
		case seen[t.BlockSize]:
			return configError("duplicate block size").
				WithContext("tier", t.Name).WithContext("block_size", t.BlockSize)
		}
		seen[t.BlockSize] = true
	}
	if !validPercent(c.LowMemoryThreshold) || !validPercent(c.CriticalMemoryThreshold) ||
		!validPercent(c.FragmentationThreshold) {
		return configError("thresholds must be within 0..100")
	}
	if c.LowMemoryThreshold > c.CriticalMemoryThreshold {
		return configError("low-memory threshold exceeds critical threshold").
			WithContext("low", c.LowMemoryThreshold).
			WithContext("critical", c.CriticalMemoryThreshold)
	}
	return nil
}

// sortedTiers returns a copy of the tiers ordered by block size, naming
// anonymous tiers after their size.
func (c *Config) sortedTiers() []TierConfig {
	tiers := append([]TierConfig(nil), c.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].BlockSize < tiers[j].BlockSize })
	for i := range tiers {
		if tiers[i].Name == "" {
			tiers[i].Name = fmt.Sprintf("B%d", tiers[i].BlockSize)
		}
	}
	return tiers
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func validPercent(v int) bool { return v >= 0 && v <= 100 }

func configError(msg string) *api.Error {
	return api.NewError(api.ErrCodeInvalidConfig, "pool: "+msg).WithCause(api.ErrInvalidConfig)
}
