package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/momentics/blockpool/facade"
	"github.com/momentics/blockpool/pool"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	noColor  bool
	tiers    string
	seed     uint64
	duration time.Duration
	pin      bool
)

var rootCmd = &cobra.Command{
	Use:   "poolbench",
	Short: "Benchmark and inspect the tiered block pool allocator",
	Long: `poolbench drives the tiered fixed-block allocator through its standard
workloads and prints timing results or diagnostics snapshots.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&tiers, "tiers", "",
		"Tier layout as SIZExCOUNT list, e.g. 32x128,64x64 (default: built-in tiers)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 1, "Seed for randomized workloads")
	rootCmd.PersistentFlags().
		DurationVar(&duration, "duration", 3*time.Second, "Duration of timed workloads")
	rootCmd.PersistentFlags().BoolVar(&pin, "pin", false, "Pin worker threads to allowed CPUs")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// newBlockPool builds the facade from global flags.
func newBlockPool() (*facade.BlockPool, error) {
	cfg := facade.DefaultConfig()
	cfg.Seed = seed
	cfg.BenchDuration = duration
	cfg.CPUAffinity = pin
	cfg.Logger = newLogger()
	if tiers != "" {
		tc, err := parseTiers(tiers)
		if err != nil {
			return nil, err
		}
		cfg.Pool.Tiers = tc
	}
	return facade.New(cfg)
}

func newLogger() *slog.Logger {
	var w io.Writer = io.Discard
	level := slog.LevelWarn
	if verbose && !quiet {
		w, level = os.Stderr, slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseTiers reads "32x128,64x64" into tier configs.
func parseTiers(s string) ([]pool.TierConfig, error) {
	var out []pool.TierConfig
	for _, part := range strings.Split(s, ",") {
		size, count, ok := strings.Cut(strings.TrimSpace(part), "x")
		if !ok {
			return nil, fmt.Errorf("invalid tier %q: want SIZExCOUNT", part)
		}
		bs, err := strconv.Atoi(size)
		if err != nil {
			return nil, fmt.Errorf("invalid tier size %q: %w", size, err)
		}
		bc, err := strconv.Atoi(count)
		if err != nil {
			return nil, fmt.Errorf("invalid tier count %q: %w", count, err)
		}
		out = append(out, pool.TierConfig{BlockSize: bs, BlockCount: bc})
	}
	return out, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
