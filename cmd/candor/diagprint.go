package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"candor/internal/diag"
	"candor/internal/source"
)

// printDiagnostics renders every diagnostic in bag to out, one per
// line, prefixed by severity and source position. Colorizing is the
// caller's call (cmd/candor passes useColor's result for the relevant
// stream), matching how the teacher's diagfmt.Pretty takes its own
// Color option rather than deciding it internally.
func printDiagnostics(out io.Writer, bag *diag.Bag, files *source.FileSet, colorize bool) {
	sevColor := map[diag.Severity]*color.Color{
		diag.SevError:   color.New(color.FgRed, color.Bold),
		diag.SevWarning: color.New(color.FgYellow, color.Bold),
		diag.SevInfo:    color.New(color.FgCyan),
	}
	for _, d := range bag.Items() {
		loc := "?"
		if files != nil {
			start, _ := files.Resolve(d.Primary)
			loc = fmt.Sprintf("%s:%d:%d", files.Get(d.Primary.File).Path, start.Line, start.Col)
		}
		label := d.Severity.String()
		if colorize {
			if c, ok := sevColor[d.Severity]; ok {
				label = c.Sprint(label)
			}
		}
		fmt.Fprintf(out, "%s: %s: [%s] %s\n", loc, label, d.Code.ID(), d.Message)
		for _, n := range d.Notes {
			noteLoc := loc
			if files != nil {
				start, _ := files.Resolve(n.Span)
				noteLoc = fmt.Sprintf("%s:%d:%d", files.Get(n.Span.File).Path, start.Line, start.Col)
			}
			fmt.Fprintf(out, "    %s: note: %s\n", noteLoc, n.Msg)
		}
	}
}
