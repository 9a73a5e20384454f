package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/momentics/blockpool/benchmarks"
)

var (
	runSize       int
	runIterations int
	runThreads    int
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runSize, "size", 32, "Request size for the allocation workload")
	cmd.Flags().IntVar(&runIterations, "iterations", 10000, "Iterations of the allocation workload")
	cmd.Flags().IntVar(&runThreads, "threads", 4, "Workers of the multithreaded workload")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [all|allocation|fragmentation|multithreaded|stress]",
		Short: "Run allocator benchmarks",
		Long: `The run command executes one workload, or the full suite when none is given.

Example:
  poolbench run
  poolbench run allocation --size 128 --iterations 5000
  poolbench run multithreaded --threads 8 --duration 5s --pin
  poolbench run --json`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"all", "allocation", "fragmentation", "multithreaded", "stress"},
		RunE: func(cmd *cobra.Command, args []string) error {
			workload := "all"
			if len(args) == 1 {
				workload = args[0]
			}
			return runBench(workload)
		},
	}
}

func runBench(workload string) error {
	bp, err := newBlockPool()
	if err != nil {
		return err
	}
	defer bp.Stop()

	h := bp.Harness()
	var results []benchmarks.Result
	printVerbose("Running workload: %s\n", workload)
	switch workload {
	case "all":
		results = h.RunAll()
	case "allocation":
		results = append(results, h.Allocation(runSize, runIterations))
	case "fragmentation":
		results = append(results, h.Fragmentation(duration))
	case "multithreaded":
		results = append(results, h.Multithreaded(runThreads, duration))
	case "stress":
		results = append(results, h.Stress(duration))
	default:
		return fmt.Errorf("unknown workload %q", workload)
	}

	if jsonOut {
		return printJSON(results)
	}
	printInfo("%s\n", styleReport(benchmarks.FormatReport(results)))
	for _, r := range results {
		if !r.Verified {
			return fmt.Errorf("%s: free-list invariant violated", r.Name)
		}
	}
	return nil
}
