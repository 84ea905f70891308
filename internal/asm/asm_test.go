package asm_test

import (
	"strings"
	"testing"

	"candor/internal/asm"
)

// TestPrologueEpilogueShape checks the standard stub frame spec.md
// §4.6 requires: "push fp; mov fp, sp" ... "mov sp, fp; pop fp; ret n*W".
func TestPrologueEpilogueShape(t *testing.T) {
	a := asm.NewTextAssembler()
	a.Prologue()
	a.Mov(asm.Reg(0), asm.Imm(1))
	a.Epilogue(2)
	out := a.String()

	if !strings.Contains(out, "push fp") || !strings.Contains(out, "mov fp, sp") {
		t.Fatalf("missing prologue shape:\n%s", out)
	}
	if !strings.Contains(out, "pop fp") || !strings.Contains(out, "ret 2*W") {
		t.Fatalf("missing epilogue shape:\n%s", out)
	}
}

// TestCheckGCEmitsSafepoint checks CheckGC leaves a recognizable
// cooperative safepoint in the stream.
func TestCheckGCEmitsSafepoint(t *testing.T) {
	a := asm.NewTextAssembler()
	a.CheckGC()
	if !strings.Contains(a.String(), "needs_gc") {
		t.Fatalf("expected CheckGC to reference needs_gc, got:\n%s", a.String())
	}
}

// TestLabelsRoundTrip checks a bound label renders distinctly from a
// forward jump referencing it.
func TestLabelsRoundTrip(t *testing.T) {
	a := asm.NewTextAssembler()
	l := asm.NewLabel("Lexit")
	a.Jcc(asm.CondEqual, l)
	a.Bind(l)
	out := a.String()
	if !strings.Contains(out, "jeq Lexit") || !strings.Contains(out, "Lexit:") {
		t.Fatalf("expected a forward jump and a bound label, got:\n%s", out)
	}
}
