package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"candor/internal/gc"
	"candor/internal/prof"
)

// setupProfiling inspects the root command's profiling flags and
// enables the corresponding profilers, returning a cleanup function
// safe to call multiple times (including via defer on every early
// return path a subcommand's RunE might take). gcStats, when given,
// is called once during cleanup so the --mem-profile dump also
// records what the run's collector did; build has no isolate to ask,
// so it omits this argument.
func setupProfiling(cmd *cobra.Command, gcStats ...func() gc.Stats) (func(), error) {
	root := cmd.Root()

	cpuProfile, err := root.PersistentFlags().GetString("cpu-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	memProfile, err := root.PersistentFlags().GetString("mem-profile")
	if err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	tracePath, err := root.PersistentFlags().GetString("runtime-trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}

	stopCPU := func() {}
	stopTrace := func() {}
	writeMem := func() {}

	if cpuProfile != "" {
		if err := prof.StartCPU(cpuProfile); err != nil {
			return nil, fmt.Errorf("failed to start cpu profile: %w", err)
		}
		stopCPU = prof.StopCPU
	}
	if tracePath != "" {
		if err := prof.StartTrace(tracePath); err != nil {
			stopCPU()
			return nil, fmt.Errorf("failed to start trace: %w", err)
		}
		stopTrace = prof.StopTrace
	}
	if memProfile != "" {
		writeMem = func() {
			if err := prof.WriteMem(memProfile); err != nil {
				fmt.Fprintf(os.Stderr, "failed to write heap profile: %v\n", err)
			}
			if len(gcStats) > 0 && gcStats[0] != nil {
				if err := prof.WriteGCStats(memProfile, gcStats[0]()); err != nil {
					fmt.Fprintf(os.Stderr, "failed to write gc stats: %v\n", err)
				}
			}
		}
	}

	cleaned := false
	cleanup := func() {
		if cleaned {
			return
		}
		cleaned = true
		stopTrace()
		stopCPU()
		writeMem()
	}

	return cleanup, nil
}
