package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"candor/internal/exec"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/observ"
	"candor/internal/regalloc"
	"candor/internal/sourcemap"
	"candor/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [dir]",
	Short: "Compile every .candor file under dir and cache the result",
	Long: `build runs every ".candor" file under dir through the parser, HIR
builder, LIR lowering and register allocation, then writes a combined
source map cache ("build.candorc") inside dir. No candor subcommand
reads the cache back.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().Int("jobs", 0, "parallel compile jobs (0 = GOMAXPROCS)")
	buildCmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	uiMode, _ := cmd.Flags().GetString("ui")

	timer := observ.NewTimer()
	fanOut := timer.Begin("compile")
	files, results, err := exec.CompileDir(cmd.Context(), dir, jobs)
	timer.End(fanOut, fmt.Sprintf("%d file(s)", len(results)))
	if err != nil {
		return err
	}

	useTUI := uiMode == "on" || (uiMode == "auto" && isTerminal(os.Stdout) && len(results) > 0)
	events := make(chan ui.Event, len(results)*4+1)

	var program *tea.Program
	done := make(chan error, 1)
	if useTUI {
		paths := make([]string, len(results))
		for i, r := range results {
			paths[i] = r.Path
		}
		program = tea.NewProgram(ui.NewProgressModel("candor build", paths, events))
		go func() {
			_, runErr := program.Run()
			done <- runErr
		}()
	}

	lowerIdx := timer.Begin("lower+regalloc")
	maps := sourcemap.NewSet()
	var failed int
	for _, r := range results {
		events <- ui.Event{File: r.Path, Stage: ui.StageParse, Status: ui.StatusWorking}
		if r.Err != nil || (r.Diags != nil && r.Diags.HasErrors()) {
			failed++
			events <- ui.Event{File: r.Path, Status: ui.StatusError}
			if !useTUI {
				if r.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, r.Err)
				} else {
					printDiagnostics(os.Stderr, r.Diags, files, useColor(cmd, os.Stderr))
				}
			}
			continue
		}
		for _, fn := range r.Module.Funcs {
			compileForCache(maps, fn)
		}
		events <- ui.Event{File: r.Path, Stage: ui.StageCodegen, Status: ui.StatusDone}
	}
	timer.End(lowerIdx, "")
	close(events)
	if useTUI {
		if runErr := <-done; runErr != nil {
			return runErr
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed to build", failed, len(results))
	}

	cachePath := filepath.Join(dir, "build.candorc")
	cacheIdx := timer.Begin("save-cache")
	saveErr := sourcemap.SaveCandorc(cachePath, maps)
	timer.End(cacheIdx, cachePath)
	if saveErr != nil {
		return saveErr
	}
	fmt.Fprintf(cmd.OutOrStdout(), "built %d file(s), cache: %s\n", len(results), cachePath)
	printTimings(cmd, os.Stderr, timer)
	return nil
}

// compileForCache runs fn through the LIR/regalloc pipeline purely to
// populate maps with its PushedPair list — candor build never
// executes anything, it only fills the source-map cache written to
// build.candorc.
func compileForCache(maps *sourcemap.Set, fn *hir.Func) {
	lf := lir.Lower(fn)
	lir.ComputeLiveness(lf)
	lir.BuildIntervals(lf)
	regalloc.Allocate(lf)

	m := maps.MapFor(fn.Name)
	for _, li := range lf.Instrs {
		if li.HIR == nil {
			continue
		}
		m.Push(uint32(li.ID), uint32(fn.Span.Start))
	}
}
