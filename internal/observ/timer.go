// Package observ times the phases of a compile pipeline (lex, parse,
// HIR build, LIR lowering, register allocation, codegen) the way
// internal/trace's Span records their structured trace events — a
// Timer accumulates wall-clock durations instead, for the plain
// "--timings" summary cmd/candor prints rather than a trace sink.
package observ

import (
	"fmt"
	"time"
)

// Phase records one named span's start time, duration and an optional
// closing note (e.g. a file path or item count).
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer accumulates a sequence of Phases for one pipeline run.
type Timer struct {
	phases []Phase
}

// NewTimer returns an empty Timer with room for a handful of phases
// before it needs to grow (candor run times two phases, compile and
// execute; candor build times three).
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a phase named name and returns its index, to be passed
// back to End once the phase finishes.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase at idx, recording its elapsed duration and an
// optional note. An out-of-range idx is ignored rather than panicking,
// since a caller that races Begin/End across goroutines should not
// bring down the whole build.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Time runs fn as a single phase named name, a convenience for the
// common case where the whole phase body is one function call.
func (t *Timer) Time(name string, fn func()) {
	idx := t.Begin(name)
	fn()
	t.End(idx, "")
}

// Summary renders every phase plus the running total as aligned,
// millisecond-precision text, the form cmd/candor prints to stderr
// under --timings.
func (t *Timer) Summary() string {
	report := t.Report()
	out := "timings:\n"
	for _, p := range report.Phases {
		out += fmt.Sprintf("  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			out += "  // " + p.Note
		}
		out += "\n"
	}
	out += fmt.Sprintf("  %-20s %7.2f ms\n", "total", report.TotalMS)
	return out
}

// PhaseReport is one Phase reduced to its JSON-serializable shape,
// the payload cmd/candor's timing diagnostic carries in its Note.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is a Timer's phases reduced to PhaseReports plus their total,
// ready to marshal into a diag.Diagnostic's Note or print as JSON.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report builds a Report from every phase the Timer has recorded so
// far; phases still open (never passed to End) report a zero duration.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
