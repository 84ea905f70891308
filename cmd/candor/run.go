package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"candor/internal/candor"
	"candor/internal/config"
	"candor/internal/diag"
	"candor/internal/exec"
	"candor/internal/observ"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] file.candor",
	Short: "Compile and run a candor source file's main function",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	iso := candor.NewIsolate(config.Default(), nil)
	cleanup, err := setupProfiling(cmd, iso.CollectGarbage)
	if err != nil {
		return err
	}
	defer cleanup()

	timer := observ.NewTimer()

	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	var fn *candor.Function
	var diags *diag.Bag
	timer.Time("compile", func() {
		fn, diags, err = iso.Compile(string(content))
	})
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if diags != nil && diags.HasErrors() {
		printDiagnostics(os.Stderr, diags, iso.Files(), useColor(cmd, os.Stderr))
		return fmt.Errorf("%d error(s) building HIR", len(diags.Items()))
	}
	if fn == nil {
		return fmt.Errorf("%s declares no main function", args[0])
	}

	var result candor.Value
	var vmErr *exec.VMError
	timer.Time("execute", func() {
		result, vmErr = fn.Call()
	})
	if vmErr != nil {
		fmt.Fprintln(os.Stderr, vmErr.Format())
		printTimings(cmd, os.Stderr, timer)
		os.Exit(1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeValue(result))
	printTimings(cmd, os.Stderr, timer)
	return nil
}

// describeValue renders a candor.Value for run's final result line.
// Kept separate from internal/candor's own REPL describe helper so
// cmd/candor does not need to reach into that package's unexported
// rendering internals.
func describeValue(v candor.Value) string {
	switch {
	case v.IsNil():
		return "nil"
	case v.IsBoolean():
		return fmt.Sprintf("%v", v.Bool())
	case v.IsNumber():
		return fmt.Sprintf("%v", v.Float64())
	case v.IsString():
		return fmt.Sprintf("%q", v.String())
	case v.IsArray():
		return fmt.Sprintf("Array(%d)", v.Len())
	case v.IsObject():
		return "Object"
	case v.IsFunction():
		return "Function"
	case v.IsCData():
		return "CData"
	default:
		return "?"
	}
}
