package exec

import (
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/tagged"
)

// This file is exec's half of the internal/candor boundary: every
// method here just forwards to an already-implemented unexported
// helper, giving the embedding façade (spec.md §6's Value/Handle/
// Isolate/Function surface) a stable entry point without exposing
// exec's own instruction-dispatch internals.

// IndexFuncs registers funcs (and any nested closures the HIR builder
// already flattened into them) by FuncID, so a later CallFunction on a
// value built from one of them can resolve it. Used when a host
// compiles more source into an already-running Isolate (internal/
// candor's Isolate.Compile), which appends to e.Module.Funcs itself.
func (e *Engine) IndexFuncs(funcs []*hir.Func) {
	for _, fn := range funcs {
		e.funcsByID[fn.ID] = fn
	}
}

// BoxNumber mirrors boxNumber for host code building a Candor Number
// value from a Go float64.
func (e *Engine) BoxNumber(v float64) heap.Address { return e.boxNumber(v) }

// NumberValue mirrors numberValue for host code reading a Candor
// Number value (boxed or unboxed) back into a Go float64.
func (e *Engine) NumberValue(v heap.Address) float64 { return e.numberValue(v) }

// Truthy mirrors truthy (spec.md §4.6's CoerceToBoolean) for host code
// branching on a Candor value.
func (e *Engine) Truthy(v heap.Address) bool { return e.truthy(v) }

// BoolValue mirrors boolValue, returning the canonical True/False
// singleton for host code constructing a Candor Boolean.
func (e *Engine) BoolValue(cond bool) heap.Address { return e.boolValue(cond) }

// StringBytes mirrors stringBytes for host code reading a Candor
// String value (flat or cons) back into a Go byte slice.
func (e *Engine) StringBytes(p heap.Address) []byte { return e.stringBytes(p) }

// NewObject mirrors newObject for host code constructing an empty
// Candor Object.
func (e *Engine) NewObject() heap.Address { return e.newObject() }

// NewArray mirrors newArray for host code constructing a Candor Array
// already populated with elems.
func (e *Engine) NewArray(elems []heap.Address) heap.Address { return e.newArray(elems) }

// LoadProperty mirrors loadProperty for host code reading a property
// off a Candor Object or Array value.
func (e *Engine) LoadProperty(receiver, key heap.Address) heap.Address {
	return e.loadProperty(receiver, key)
}

// StoreProperty mirrors storeProperty for host code writing a
// property onto a Candor Object or Array value.
func (e *Engine) StoreProperty(receiver, key, value heap.Address) {
	e.storeProperty(receiver, key, value)
}

// StackTrace captures the live call stack from host code, the same
// shape runtimeStackTrace builds for the "__$stackTrace()" builtin,
// without requiring a live Frame — CallFunction has already unwound
// e.stack back to whatever depth it held before returning to the
// host, so a host-invoked StackTrace naturally sees an empty or
// partially-unwound chain rather than Candor's own in-flight frame.
func (e *Engine) StackTrace() heap.Address {
	frames := e.captureBacktrace()
	arr := e.newArrayWithLength(len(frames))
	funcKey := tagged.AllocString(e.Heap, "function")
	lineKey := tagged.AllocString(e.Heap, "line")
	offsetKey := tagged.AllocString(e.Heap, "offset")
	for i, bf := range frames {
		obj := e.newObject()
		e.storeProperty(obj, funcKey, tagged.AllocString(e.Heap, bf.FuncName))
		e.storeProperty(obj, lineKey, heap.EncodeInt(int64(bf.Line)))
		e.storeProperty(obj, offsetKey, heap.EncodeInt(int64(bf.Offset)))
		e.storeArrayIndex(arr, heap.EncodeInt(int64(i)), obj)
	}
	return arr
}
