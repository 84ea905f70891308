package candor

import (
	"candor/internal/exec"
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/tagged"
)

// Function is a callable Value: spec.md §6's Function::New/Function::
// Call pair. It embeds Value so a Function can be passed anywhere a
// Value is expected (stored in an Object, returned from a call, etc).
type Function struct {
	Value
}

// newFunction wraps fn as a callable heap Function bound to rootCtx,
// the same allocation LOpFunction performs for a closure literal —
// except a top-level Compile result has no enclosing context to
// capture, so its ParentContext is the engine's own RootContext.
func newFunction(iso *Isolate, fn *hir.Func) *Function {
	root := iso.engine.RootContext
	addr := tagged.AllocFunction(iso.engine.Heap, root, heap.EncodeInt(int64(fn.ID)), root, fn.ParamCount)
	return &Function{Value: valueOf(iso, addr)}
}

// functionOf wraps an already-callable address as a Function, the
// downcast Value.IsFunction callers should check before calling this.
func functionOf(iso *Isolate, addr heap.Address) *Function {
	return &Function{Value: valueOf(iso, addr)}
}

// Call invokes f with args via the Entry stub's calling convention
// (exec.Engine.CallFunction), per spec.md §6's Function::Call(argc,
// argv). A VMError surfaces spec.md §7's fatal half of the error
// taxonomy; every non-fatal case already resolved to Nil before this
// ever returns.
func (f *Function) Call(args ...Value) (Value, *exec.VMError) {
	raw := make([]heap.Address, len(args))
	for i, a := range args {
		raw[i] = a.addr
	}
	result, err := f.iso.engine.CallFunction(f.addr, raw)
	if err != nil {
		return Value{}, err
	}
	return valueOf(f.iso, result), nil
}
