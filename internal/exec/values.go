package exec

import (
	"candor/internal/heap"
	"candor/internal/tagged"
)

// boxNumber returns v's unboxed encoding if it fits a tagged small
// integer losslessly, otherwise a boxed Number, matching the stub's
// "unboxed small integers never reach [AllocNumber]" convention.
func (e *Engine) boxNumber(v float64) heap.Address {
	if n := int64(v); float64(n) == v && fitsUnboxed(n) {
		return heap.EncodeInt(n)
	}
	return tagged.AllocNumber(e.Heap, v)
}

// fitsUnboxed reports whether n survives EncodeInt/DecodeInt's
// single-bit tag shift without losing precision, i.e. it fits in 63
// bits signed.
func fitsUnboxed(n int64) bool {
	return n == heap.DecodeInt(heap.EncodeInt(n))
}

// numberValue reads the float64 payload of either encoding: an
// unboxed tagged integer or a boxed Number object.
func (e *Engine) numberValue(v heap.Address) float64 {
	if heap.IsUnboxed(v) {
		return float64(heap.DecodeInt(v))
	}
	return tagged.NumberValue(e.Heap, v)
}

// truthy implements spec.md §4.6's CoerceToBoolean: Nil and the
// unboxed integer zero are false, the Boolean singleton False is
// false, and every other value — including a boxed Number holding
// 0.0, which the stub's slow path never special-cases — is true.
func (e *Engine) truthy(v heap.Address) bool {
	switch {
	case heap.IsNil(v):
		return false
	case heap.IsUnboxed(v):
		return heap.DecodeInt(v) != 0
	case tagged.IsHeapObject(e.Heap, tagged.TagBoolean, v):
		return tagged.BooleanValue(e.Heap, v)
	default:
		return true
	}
}

// boolValue returns the canonical True/False singleton for cond,
// per spec.md §4.6's "yield canonical True/False from the root
// context" — every comparison and logical result routes through this
// rather than allocating a fresh Boolean.
func (e *Engine) boolValue(cond bool) heap.Address {
	if cond {
		return e.True
	}
	return e.False
}

// stringBytes flattens p (a cons-string chain or an already-Normal
// string) and returns its raw bytes.
func (e *Engine) stringBytes(p heap.Address) []byte {
	flat := tagged.Flatten(e.Heap, p)
	return tagged.StringRawBytes(e.Heap, flat)
}
