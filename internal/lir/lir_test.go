package lir_test

import (
	"testing"

	"candor/internal/diag"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/parser"
	"candor/internal/source"
)

func lowerMain(t *testing.T, src string) *lir.LFunc {
	t.Helper()
	p := parser.New(src, source.FileID(1))
	mod, err := p.ParseModule()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	diags := diag.NewBag(64)
	h := hir.NewBuilder(mod, diags).Build()
	if diags.HasErrors() {
		t.Fatalf("unexpected HIR-build errors: %+v", diags.Items())
	}
	fn := h.FindFunc("main")
	if fn == nil {
		t.Fatal("main not found")
	}
	return lir.Lower(fn)
}

// TestFlattenFallsThrough checks that an unconditional Goto to the
// next block in flattened order is elided, per spec.md §4.5 step 7.
func TestFlattenFallsThrough(t *testing.T) {
	f := lowerMain(t, `fn main() { return 1 + 2; }`)
	for _, in := range f.Instrs {
		if in.Op == lir.LOpGoto {
			t.Fatalf("expected no Goto for a straight-line function, got one at id %d", in.ID)
		}
	}
}

// TestIdsAreEven checks the even-numbered instruction id invariant.
func TestIdsAreEven(t *testing.T) {
	f := lowerMain(t, `fn main() { a = { a: 1, b: 2 }; return a.a + a.b; }`)
	for _, in := range f.Instrs {
		if in.ID%2 != 0 {
			t.Fatalf("expected an even id, got %d", in.ID)
		}
	}
}

// TestLoopBranchReachesBothSuccessors checks a while loop lowers to a
// Branch instruction whose Data names both the body and exit blocks.
func TestLoopBranchReachesBothSuccessors(t *testing.T) {
	f := lowerMain(t, `fn main() { i = 10; while (i) { i = i - 1; } return i; }`)
	var branches int
	for _, in := range f.Instrs {
		if in.Op == lir.LOpBranch {
			branches++
			d := in.Data.(lir.BranchData)
			if d.Then == nil || d.Else == nil {
				t.Fatalf("branch missing a successor: %+v", d)
			}
		}
	}
	if branches == 0 {
		t.Fatal("expected at least one Branch for the while loop's condition")
	}
}

// TestLivenessCarriesLoopVariableAcrossBackEdge checks that the
// interval behind a loop-carried variable is live across the loop
// header's back edge, i.e. it appears in LiveOut of the body block.
func TestLivenessCarriesLoopVariableAcrossBackEdge(t *testing.T) {
	f := lowerMain(t, `fn main() { i = 10; while (i) { i = i - 1; } return i; }`)
	lir.ComputeLiveness(f)

	var header *lir.LBlock
	for _, b := range f.Blocks {
		if b.IsLoop {
			header = b
		}
	}
	if header == nil {
		t.Fatal("no loop header block found")
	}
	var bodyLiveOut bool
	for _, b := range f.Blocks {
		for _, s := range b.Succs {
			if s == header && len(b.LiveOut) > 0 {
				bodyLiveOut = true
			}
		}
	}
	if !bodyLiveOut {
		t.Fatal("expected some interval to be live out of the loop body, carried across the back edge")
	}
}

// TestBuildIntervalsCoversCallSite checks a call site's physical
// register intervals get a one-slot kill range at the call, per
// spec.md §4.5 step 5 ("calls add [id, id+1) to every physical
// register interval").
func TestBuildIntervalsCoversCallSite(t *testing.T) {
	f := lowerMain(t, `fn main() { f = fn(y) { return y; }; return f(1); }`)
	lir.ComputeLiveness(f)
	lir.BuildIntervals(f)

	var sawCallKill bool
	for _, in := range f.Instrs {
		if !in.IsCall {
			continue
		}
		for r := 0; r < lir.NumPhysRegs; r++ {
			iv := f.PhysIntervals[r]
			if iv.CoversPos(in.ID) {
				sawCallKill = true
			}
		}
	}
	if !sawCallKill {
		t.Fatal("expected the call site to mark every physical register interval live across it")
	}
}
