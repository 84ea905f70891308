package candor_test

import (
	"testing"

	"candor/internal/candor"
	"candor/internal/config"
)

func newIsolate(t *testing.T) *candor.Isolate {
	t.Helper()
	return candor.NewIsolate(config.Default(), nil)
}

func compile(t *testing.T, iso *candor.Isolate, src string) *candor.Function {
	t.Helper()
	fn, diags, err := iso.Compile(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if diags != nil && diags.HasErrors() {
		t.Fatalf("unexpected HIR-build errors: %+v", diags.Items())
	}
	if fn == nil {
		t.Fatal("expected a compiled main function")
	}
	return fn
}

// TestFunctionNewAndCall covers spec.md §6's Function::New/Call pair
// end to end: compile a source string, call it, read back the result.
func TestFunctionNewAndCall(t *testing.T) {
	iso := newIsolate(t)
	fn := compile(t, iso, `fn main() { return 1 + 2; }`)

	result, err := fn.Call()
	if err != nil {
		t.Fatalf("unexpected VMError: %v", err)
	}
	if !result.IsNumber() || result.Float64() != 3 {
		t.Fatalf("expected 3, got %v", result.Float64())
	}
}

// TestValuePropertyRoundTrip covers Value's Object/Array accessors
// built on the same LoadProperty/StoreProperty path exec itself uses.
func TestValuePropertyRoundTrip(t *testing.T) {
	iso := newIsolate(t)
	obj := iso.NewObject()
	obj.SetProperty("x", iso.NewNumber(42))
	if got := obj.GetProperty("x"); !got.IsNumber() || got.Float64() != 42 {
		t.Fatalf("expected 42, got %v", got.Float64())
	}

	arr := iso.NewArray(iso.NewNumber(1), iso.NewNumber(2), iso.NewNumber(3))
	if arr.Len() != 3 {
		t.Fatalf("expected length 3, got %d", arr.Len())
	}
	if got := arr.GetIndex(1); !got.IsNumber() || got.Float64() != 2 {
		t.Fatalf("expected 2, got %v", got.Float64())
	}
}

// TestHandlePersistsAcrossCollection covers Handle[T]'s contract: a
// value reachable only through a persistent Handle (never stored into
// any context a root walk would otherwise find) must survive a forced
// collection.
func TestHandlePersistsAcrossCollection(t *testing.T) {
	iso := newIsolate(t)
	obj := iso.NewObject()
	obj.SetProperty("tag", iso.NewString("kept"))

	h := candor.NewValueHandle(iso, obj)
	defer h.Close()

	iso.CollectGarbage()
	iso.CollectGarbage()

	got := h.Get().GetProperty("tag")
	if !got.IsString() || got.String() != "kept" {
		t.Fatalf("expected %q to survive collection, got %q", "kept", got.String())
	}
}

// TestHandleUnrefFiresWeakCallback covers Unref's demotion: once a
// Handle is weak, its value may be collected and the callback fires
// exactly once when that happens.
func TestHandleUnrefFiresWeakCallback(t *testing.T) {
	iso := newIsolate(t)
	obj := iso.NewObject()
	h := candor.NewValueHandle(iso, obj)

	fired := false
	h.Unref(func(candor.Value) { fired = true })

	iso.CollectGarbage()
	iso.CollectGarbage()

	if !fired {
		t.Fatal("expected the weak callback to fire once obj became unreachable")
	}
	if !h.Reclaimed() {
		t.Fatal("expected Reclaimed to report true after the callback fired")
	}
}

// TestCWrapperDestroyedOnCollection covers spec.md §6's CWrapper: a
// native object's Destroy fires exactly once, when its weak CData
// handle's referent is found unreachable.
func TestCWrapperDestroyedOnCollection(t *testing.T) {
	iso := newIsolate(t)

	destroyed := false
	w := &testWrapper{onDestroy: func() { destroyed = true }}
	candor.NewCWrapper(iso, w)

	iso.CollectGarbage()
	iso.CollectGarbage()

	if !destroyed {
		t.Fatal("expected Destroy to have fired once the CData value became unreachable")
	}
}

type testWrapper struct {
	onDestroy func()
}

func (w *testWrapper) Destroy() { w.onDestroy() }
