package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/momentics/blockpool/api"
)

var diagFill int

func init() {
	cmd := newDiagCmd()
	cmd.Flags().IntVar(&diagFill, "fill", 0, "Allocate this many random-size blocks before the snapshot")
	rootCmd.AddCommand(cmd)
}

func newDiagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diag",
		Short: "Print a diagnostics snapshot",
		Long: `The diag command builds the pool, optionally fills it with random
allocations and prints the diagnostics report or its JSON snapshot.

Example:
  poolbench diag
  poolbench diag --fill 200
  poolbench diag --fill 240 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiag()
		},
	}
}

func runDiag() error {
	bp, err := newBlockPool()
	if err != nil {
		return err
	}
	defer bp.Stop()

	m := bp.Manager()
	rng := rand.New(rand.NewPCG(seed, 0))
	type held struct {
		b    api.Block
		size int
	}
	var live []held
	failures := 0
	for i := 0; i < diagFill; i++ {
		size := rng.IntN(m.MaxBlockSize()) + 1
		b, err := m.Allocate(size)
		if err != nil {
			failures++
			continue
		}
		live = append(live, held{b, size})
	}
	printVerbose("Filled %d blocks, %d failures\n", len(live), failures)

	if jsonOut {
		err = printJSON(bp.Snapshot())
	} else {
		printInfo("%s\n", styleReport(bp.Diagnostics().Report()))
	}
	for _, h := range live {
		if derr := m.Deallocate(h.b, h.size); derr != nil && err == nil {
			err = fmt.Errorf("release: %w", derr)
		}
	}
	return err
}
