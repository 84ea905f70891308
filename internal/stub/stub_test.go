package stub_test

import (
	"strings"
	"testing"

	"candor/internal/asm"
	"candor/internal/ast"
	"candor/internal/stub"
)

// TestEntryStubLaysOutSentinelAndArgs checks the Entry stub plants the
// enter-frame sentinel and spills argc, per spec.md §4.6.
func TestEntryStubLaysOutSentinelAndArgs(t *testing.T) {
	a := asm.NewTextAssembler()
	stub.EmitEntryStub(a)
	out := a.String()
	if !strings.Contains(out, "push fp") {
		t.Fatalf("expected the standard stub prologue, got:\n%s", out)
	}
	if !strings.Contains(out, "[fp-2*W]") {
		t.Fatalf("expected argc spilled to [fp-2*W], got:\n%s", out)
	}
}

// TestAllocateStubChecksLimit checks the bump allocator's fast path
// compares against a limit before committing.
func TestAllocateStubChecksLimit(t *testing.T) {
	a := asm.NewTextAssembler()
	stub.EmitAllocateStub(a, 16)
	out := a.String()
	if !strings.Contains(out, "RuntimeAllocate") {
		t.Fatalf("expected a runtime fallback call, got:\n%s", out)
	}
	if !strings.Contains(out, "cmp") {
		t.Fatalf("expected a limit check, got:\n%s", out)
	}
}

// TestPropertyLookupStubDispatchesThreeWays checks the stub branches
// toward the array path, falls through toward the object path, and
// still has a slow path reachable.
func TestPropertyLookupStubDispatchesThreeWays(t *testing.T) {
	a := asm.NewTextAssembler()
	stub.EmitPropertyLookupStub(a, false)
	out := a.String()
	if !strings.Contains(out, "PropertyLookupStub_Array") {
		t.Fatalf("expected an array-path label, got:\n%s", out)
	}
	if !strings.Contains(out, "RuntimeLookupProperty") {
		t.Fatalf("expected a slow-path runtime call, got:\n%s", out)
	}
}

// TestBinaryOpStubEveryOperator checks every BinOp gets a stub body
// that ends in a runtime fallback for the boxed-double case.
func TestBinaryOpStubEveryOperator(t *testing.T) {
	ops := []ast.BinOp{
		ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod,
		ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe,
		ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShl, ast.OpShr,
	}
	for _, op := range ops {
		a := asm.NewTextAssembler()
		stub.EmitBinaryOpStub(a, op)
		out := a.String()
		if !strings.Contains(out, "RuntimeBinOpSlow") {
			t.Fatalf("operator %s missing boxed-double fallback:\n%s", op, out)
		}
	}
}

// TestRuntimeWrappersCallThrough checks each thin wrapper calls its
// matching runtime function and checks GC afterward.
func TestRuntimeWrappersCallThrough(t *testing.T) {
	cases := []struct {
		emit func(asm.Assembler)
		want string
	}{
		{stub.EmitTypeofStub, "RuntimeTypeof"},
		{stub.EmitSizeofStub, "RuntimeSizeof"},
		{stub.EmitKeysofStub, "RuntimeKeysof"},
		{stub.EmitCloneStub, "RuntimeClone"},
		{stub.EmitDeletePropertyStub, "RuntimeDeleteProperty"},
		{stub.EmitStackTraceStub, "RuntimeStackTrace"},
		{stub.EmitGCCollectStub, "RuntimeCollectGarbage"},
		{stub.EmitStringHashStub, "RuntimeStringHash"},
		{stub.EmitCoerceToBooleanStub, "RuntimeCoerceToBoolean"},
	}
	for _, c := range cases {
		a := asm.NewTextAssembler()
		c.emit(a)
		out := a.String()
		if !strings.Contains(out, c.want) {
			t.Fatalf("expected a call to %s, got:\n%s", c.want, out)
		}
		if !strings.Contains(out, "needs_gc") {
			t.Fatalf("expected CheckGC after the runtime call, got:\n%s", out)
		}
	}
}
