package hir_test

import (
	"testing"

	"candor/internal/diag"
	"candor/internal/hir"
	"candor/internal/parser"
	"candor/internal/source"
)

func build(t *testing.T, src string) *hir.Module {
	t.Helper()
	p := parser.New(src, source.FileID(1))
	mod, err := p.ParseModule()
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	diags := diag.NewBag(64)
	b := hir.NewBuilder(mod, diags)
	h := b.Build()
	if diags.HasErrors() {
		t.Fatalf("unexpected HIR-build errors: %+v", diags.Items())
	}
	return h
}

// TestReturnArithmetic covers spec.md §8 scenario 1: `return 1 + 2`
// lowers to a single BinOp feeding the function's Return.
func TestReturnArithmetic(t *testing.T) {
	h := build(t, `fn main() { return 1 + 2; }`)
	fn := h.FindFunc("main")
	if fn == nil {
		t.Fatal("main not found")
	}
	ret := fn.Entry.Terminator()
	if ret == nil || ret.Kind != hir.InstrReturn {
		t.Fatalf("expected a Return terminator, got %+v", ret)
	}
	if len(ret.Args) != 1 || ret.Args[0].Kind != hir.InstrBinOp {
		t.Fatalf("expected Return to consume one BinOp, got %+v", ret.Args)
	}
	op := ret.Args[0].Data.(hir.BinOpData).Op
	if op.String() != "+" {
		t.Fatalf("expected +, got %s", op)
	}
}

// TestObjectPropertySum covers scenario 2: `a = { a: 1, b: 2 }; a.a +
// a.b` — property loads feed a BinOp.
func TestObjectPropertySum(t *testing.T) {
	h := build(t, `fn main() { a = { a: 1, b: 2 }; return a.a + a.b; }`)
	fn := h.FindFunc("main")
	ret := fn.Entry.Terminator()
	if ret == nil || ret.Kind != hir.InstrReturn {
		t.Fatalf("expected Return terminator")
	}
	sum := ret.Args[0]
	if sum.Kind != hir.InstrBinOp || len(sum.Args) != 2 {
		t.Fatalf("expected a 2-arg BinOp, got %+v", sum)
	}
	for _, operand := range sum.Args {
		if operand.Kind != hir.InstrLoadProperty {
			t.Fatalf("expected both operands to be LoadProperty, got %s", operand.Kind)
		}
	}
}

// TestWhileLoopPhi covers scenario 6: a while loop's condition
// variable must be read through a Phi at the loop header once the
// header is sealed, with exactly two inputs (entry edge, back edge).
func TestWhileLoopPhi(t *testing.T) {
	h := build(t, `fn main() { i = 10; while (i) { i = i - 1; } return i; }`)
	fn := h.FindFunc("main")

	var header *hir.Block
	for _, b := range fn.Blocks {
		if b.IsLoop {
			header = b
		}
	}
	if header == nil {
		t.Fatal("no loop header found")
	}
	if len(header.Preds) != 2 {
		t.Fatalf("loop header should have exactly two predecessors, got %d", len(header.Preds))
	}

	var phi *hir.Instruction
	for _, in := range header.Instrs {
		if in.Kind == hir.InstrPhi {
			phi = in
		}
	}
	if phi == nil {
		t.Fatal("expected a Phi for the loop variable at the header")
	}
	if len(phi.Args) != 2 {
		t.Fatalf("expected a binary phi, got %d inputs", len(phi.Args))
	}
}

// TestShortCircuitAnd covers the && lowering rule: an If selecting
// between the raw LHS and the evaluated RHS, joined by a Phi.
func TestShortCircuitAnd(t *testing.T) {
	h := build(t, `fn main() { return 1 && 2; }`)
	fn := h.FindFunc("main")

	var ret, ifInstr *hir.Instruction
	for _, b := range fn.Blocks {
		for _, in := range b.Instrs {
			switch in.Kind {
			case hir.InstrReturn:
				ret = in
			case hir.InstrIf:
				ifInstr = in
			}
		}
	}
	if ifInstr == nil {
		t.Fatal("expected an If instruction for short-circuit &&")
	}
	if ret == nil || len(ret.Args) != 1 || ret.Args[0].Kind != hir.InstrPhi {
		t.Fatalf("expected && to lower to a Phi feeding Return, got %+v", ret)
	}
}

// TestClosureCapturesOuterLocal checks a nested function literal that
// references an outer local resolves through LoadContext, and the
// outer function's matching variable is written with StoreContext
// rather than tracked as a bare SSA value.
func TestClosureCapturesOuterLocal(t *testing.T) {
	h := build(t, `fn main() { x = 1; f = fn(y) { return x + y; }; return f(2); }`)
	fn := h.FindFunc("main")
	if fn.ContextSlotCount == 0 {
		t.Fatalf("expected main to allocate a context for the captured local")
	}

	var nested *hir.Func
	for _, f := range h.Funcs {
		if f.Name == "" {
			nested = f
		}
	}
	if nested == nil {
		t.Fatal("expected a lowered anonymous function")
	}

	var loadCtx *hir.Instruction
	for _, in := range nested.Entry.Instrs {
		if in.Kind == hir.InstrLoadContext {
			loadCtx = in
		}
	}
	if loadCtx == nil {
		t.Fatal("expected the closure to read its free variable via LoadContext")
	}
	if loadCtx.Data.(hir.ContextAccessData).Depth != 1 {
		t.Fatalf("expected depth 1 for the immediately enclosing function's context, got %d",
			loadCtx.Data.(hir.ContextAccessData).Depth)
	}
}

// TestBreakExitsLoop checks break jumps straight to the loop's exit
// block rather than falling through to the header's back edge.
func TestBreakExitsLoop(t *testing.T) {
	h := build(t, `fn main() { while (1) { break; } return 0; }`)
	fn := h.FindFunc("main")
	var exit *hir.Block
	for _, b := range fn.Blocks {
		if b.IsLoop {
			for _, s := range b.Succs {
				if s != b {
					exit = s
				}
			}
		}
	}
	if exit == nil {
		t.Fatal("could not find the loop's exit block")
	}
	if len(exit.Preds) < 1 {
		t.Fatalf("exit block has no predecessors")
	}
}
