package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"candor/internal/diag"
	"candor/internal/observ"
	"candor/internal/source"
)

// timingsEnabled reports whether the root --timings flag is set.
func timingsEnabled(cmd *cobra.Command) bool {
	enabled, _ := cmd.Root().PersistentFlags().GetBool("timings")
	return enabled
}

// printTimings renders t's Report as an informational diagnostic line
// plus one note per phase when --timings is set, otherwise it is a
// no-op. A timing entry carries no source Span, so this bypasses
// printDiagnostics' file/line resolution and prints the
// severity/code/message/notes shape directly.
func printTimings(cmd *cobra.Command, out io.Writer, t *observ.Timer) {
	if !timingsEnabled(cmd) {
		return
	}
	d := timingDiagnostic("", t)
	fmt.Fprintf(out, "%s: [%s] %s\n", d.Severity, d.Code.ID(), d.Message)
	for _, n := range d.Notes {
		fmt.Fprintf(out, "    note: %s\n", n.Msg)
	}
}

// timingDiagnostic packages t's Report as an informational
// diag.Diagnostic, the shape the teacher's own driver package
// attaches pipeline timings to a Bag with (surge/internal/driver's
// appendTimingDiagnostic), adapted here to print directly rather than
// accumulate into a Bag alongside real compile diagnostics.
func timingDiagnostic(path string, t *observ.Timer) diag.Diagnostic {
	report := t.Report()
	msg := fmt.Sprintf("timings: total %.2f ms", report.TotalMS)
	if path != "" {
		msg = fmt.Sprintf("%s (%s)", msg, path)
	}
	d := diag.NewInfo(diag.DriverTimings, source.Span{}, msg)
	for _, p := range report.Phases {
		note := fmt.Sprintf("%s: %.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			note += " // " + p.Note
		}
		d = d.WithNote(source.Span{}, note)
	}
	return d
}
