package exec_test

import (
	"testing"

	"candor/internal/config"
	"candor/internal/diag"
	"candor/internal/exec"
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/parser"
	"candor/internal/source"
	"candor/internal/tagged"
)

// build lowers src to HIR the same way internal/hir's own builder_test
// does, failing the test on any parse or HIR-build diagnostic.
func build(t *testing.T, src string) (*hir.Module, *source.FileSet) {
	t.Helper()
	fileSet := source.NewFileSet()
	fid := fileSet.AddVirtual("test.candor", []byte(src))
	p := parser.New(src, fid)
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
	return h, fileSet
}

// newEngine builds an Engine over src's "main" function and returns it
// together with a callable heap.Address bound to main, ready to feed
// into Engine.CallFunction.
func newEngine(t *testing.T, src string) (*exec.Engine, heap.Address) {
	t.Helper()
	mod, files := build(t, src)
	fn := mod.FindFunc("main")
	if fn == nil {
		t.Fatal("main not found")
	}
	e := exec.NewEngine(mod, files, config.Default(), nil)
	fv := tagged.AllocFunction(e.Heap, e.RootContext, heap.EncodeInt(int64(fn.ID)), e.RootContext, fn.ParamCount)
	return e, fv
}

func call(t *testing.T, e *exec.Engine, fn heap.Address, args ...heap.Address) heap.Address {
	t.Helper()
	v, err := e.CallFunction(fn, args)
	if err != nil {
		t.Fatalf("unexpected VMError: %v", err)
	}
	return v
}

// TestReturnArithmetic covers spec.md §8 scenario 1: `return 1 + 2`
// runs end to end to the unboxed integer 3.
func TestReturnArithmetic(t *testing.T) {
	e, fn := newEngine(t, `fn main() { return 1 + 2; }`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 3 {
		t.Fatalf("expected unboxed 3, got %#v", got)
	}
}

// TestObjectPropertySum covers scenario 2: object literal fields read
// back through LoadProperty and feed a BinOp.
func TestObjectPropertySum(t *testing.T) {
	e, fn := newEngine(t, `fn main() { a = { x: 1, y: 2 }; return a.x + a.y; }`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 3 {
		t.Fatalf("expected unboxed 3, got %#v", got)
	}
}

// TestArraySum covers an Array receiver through the same
// LoadProperty/StoreProperty path as TestObjectPropertySum, exercising
// property.go's Array branch (unboxed integer index) instead of its
// Object branch.
func TestArraySum(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		a = [10, 20, 30];
		total = 0;
		i = 0;
		while (i < 3) {
			total = total + a[i];
			i = i + 1;
		}
		return total;
	}`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 60 {
		t.Fatalf("expected unboxed 60, got %#v", got)
	}
}

// TestClosureCapturesOuterLocal covers closure capture: a nested
// function literal reads a variable declared in its enclosing
// function's context via InstrFunction/LoadContext with Depth > 0.
func TestClosureCapturesOuterLocal(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		n = 41;
		adder = fn() { return n + 1; };
		return adder();
	}`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 42 {
		t.Fatalf("expected unboxed 42, got %#v", got)
	}
}

// TestWhileLoopPhis exercises a while loop whose backedge forces LIR's
// loop-join gap moves (lir.LBlock.IsLoop, regalloc's interval splitting
// at the loop header) to actually run.
func TestWhileLoopPhis(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		i = 0;
		sum = 0;
		while (i < 10) {
			sum = sum + i;
			i = i + 1;
		}
		return sum;
	}`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 45 {
		t.Fatalf("expected unboxed 45, got %#v", got)
	}
}

// TestShortCircuitAnd covers `&&`'s short-circuit rule: the right
// operand must never execute once the left one is falsy, observable
// here through a side-effecting property store that only runs if
// short-circuiting fails.
func TestShortCircuitAnd(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		hit = { called: false };
		touch = fn() { hit.called = true; return true; };
		false && touch();
		return hit.called;
	}`)
	got := call(t, e, fn)
	if got != e.False {
		t.Fatalf("expected canonical False, got %#v want %#v", got, e.False)
	}
}

// TestVarargSpreadCall covers spec.md §8 scenario 3: a vararg
// parameter declared in the middle of a parameter list (`b...`, with a
// fixed parameter `c` after it) and a spread call argument
// (`[3,4]...`) that flattens onto the flat argv rather than landing as
// a single Array-valued slot.
func TestVarargSpreadCall(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		adder = fn(a, b..., c) { return a + b[0] + b[1] + c; };
		return adder(1, 2, [3, 4]...);
	}`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 10 {
		t.Fatalf("expected unboxed 10, got %#v", got)
	}
}

// TestRecursiveCall exercises callValue's general Call path (not just
// a closure invoked once) and the calling convention's fixed-argument
// slice.
func TestRecursiveCall(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		fact = fn(n) {
			if (n <= 1) { return 1; }
			return n * fact(n - 1);
		};
		return fact(5);
	}`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 120 {
		t.Fatalf("expected unboxed 120, got %#v", got)
	}
}

// TestStackTraceBuiltin covers the __$stackTrace() builtin reaching
// LOpGetStackTrace: the returned Array's first entry should name the
// innermost function.
func TestStackTraceBuiltin(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		inner = fn() { return __$stackTrace(); };
		return inner();
	}`)
	got := call(t, e, fn)
	if heap.IsUnboxed(got) || heap.IsNil(got) {
		t.Fatalf("expected an Array, got %#v", got)
	}
	if tagged.TagOf(e.Heap, got) != tagged.TagArray {
		t.Fatalf("expected an Array, got tag %v", tagged.TagOf(e.Heap, got))
	}
	if tagged.ArrayLength(e.Heap, got) == 0 {
		t.Fatal("expected a non-empty backtrace")
	}
}

// TestHeapExhaustion covers spec.md §7's fatal HeapExhaustion path: a
// tiny MaxHeapBytes ceiling must abort the call with a VMError rather
// than letting internal/heap's always-succeeding bump allocator run
// forever.
func TestHeapExhaustion(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		i = 0;
		while (i < 100000) {
			s = "a longer string literal to force allocation " + "padding to grow the heap";
			i = i + 1;
		}
		return i;
	}`)
	e.MaxHeapBytes = 4096
	_, err := e.CallFunction(fn, nil)
	if err == nil {
		t.Fatal("expected a HeapExhaustion VMError")
	}
	if err.Code != exec.PanicHeapExhaustion {
		t.Fatalf("expected PanicHeapExhaustion, got %v", err.Code)
	}
	if len(err.Backtrace) == 0 {
		t.Fatal("expected a non-empty backtrace")
	}
}

// TestCollectGarbageBuiltin covers the __$gc() builtin reaching
// LOpCollectGarbage, and that a value still reachable from a live
// local survives the collection it forces.
func TestCollectGarbageBuiltin(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		a = { x: 7 };
		__$gc();
		return a.x;
	}`)
	got := call(t, e, fn)
	if !heap.IsUnboxed(got) || heap.DecodeInt(got) != 7 {
		t.Fatalf("expected unboxed 7 to survive collection, got %#v", got)
	}
}

// TestDivideByZeroIsNonFatal covers spec.md §7's non-fatal taxonomy:
// dividing by zero resolves inline to Nil rather than faulting the
// call.
func TestDivideByZeroIsNonFatal(t *testing.T) {
	e, fn := newEngine(t, `fn main() { return 1 / 0; }`)
	got := call(t, e, fn)
	if !heap.IsNil(got) {
		t.Fatalf("expected Nil, got %#v", got)
	}
}

// TestNonCallableIsNonFatal covers calling a non-Function value: it
// resolves inline to Nil rather than faulting, per spec.md §7.
func TestNonCallableIsNonFatal(t *testing.T) {
	e, fn := newEngine(t, `fn main() {
		notAFunction = 5;
		return notAFunction();
	}`)
	got := call(t, e, fn)
	if !heap.IsNil(got) {
		t.Fatalf("expected Nil, got %#v", got)
	}
}
