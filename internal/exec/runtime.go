package exec

import (
	"bytes"
	"hash/fnv"
	"strconv"

	"candor/internal/ast"
	"candor/internal/heap"
	"candor/internal/tagged"
)

// This file supplies the Go implementation behind every name
// internal/stub/stub.go declares as a RuntimeCall — the promise
// package stub's own doc comment makes ("internal/exec's interpreter
// supplies the actual Go implementation behind the same names").
// interp.go, binop.go and property.go call these directly rather than
// through a symbolic call instruction, since this package never emits
// real machine code for a stub's fast path to fall out of.

// runtimeAllocate is RuntimeAllocate: the bump allocator's overflow
// path. internal/heap's Space.Alloc always succeeds by appending a
// fresh page, so the only way spec.md's Heap Exhaustion error becomes
// reachable is this simulated ceiling.
func (e *Engine) runtimeAllocate(size int) *VMError {
	if e.MaxHeapBytes == 0 {
		return nil
	}
	if e.Heap.New.Size()+uint64(size) > e.MaxHeapBytes {
		return e.heapExhausted("allocation of " + strconv.Itoa(size) + " bytes would exceed the heap limit")
	}
	return nil
}

// runtimeCoerceToBoolean is RuntimeCoerceToBoolean.
func (e *Engine) runtimeCoerceToBoolean(v heap.Address) heap.Address {
	return e.boolValue(e.truthy(v))
}

// runtimeTypeof is RuntimeTypeof: returns a Candor string naming v's
// runtime type, per spec.md §6's typeof operator.
func (e *Engine) runtimeTypeof(v heap.Address) heap.Address {
	var name string
	switch {
	case heap.IsNil(v):
		name = "nil"
	case heap.IsUnboxed(v):
		name = "number"
	default:
		switch tagged.TagOf(e.Heap, v) {
		case tagged.TagBoolean:
			name = "boolean"
		case tagged.TagNumber:
			name = "number"
		case tagged.TagString:
			name = "string"
		case tagged.TagObject:
			name = "object"
		case tagged.TagArray:
			name = "array"
		case tagged.TagFunction:
			name = "function"
		case tagged.TagCData:
			name = "cdata"
		default:
			name = "object"
		}
	}
	return tagged.AllocString(e.Heap, name)
}

// runtimeSizeof is RuntimeSizeof: the element count of a String,
// Array or Object, or 0 for anything else.
func (e *Engine) runtimeSizeof(v heap.Address) heap.Address {
	if heap.IsUnboxed(v) || heap.IsNil(v) {
		return heap.EncodeInt(0)
	}
	var n int
	switch tagged.TagOf(e.Heap, v) {
	case tagged.TagString:
		n = tagged.StringLen(e.Heap, tagged.Flatten(e.Heap, v))
	case tagged.TagArray:
		n = tagged.ArrayLength(e.Heap, v)
	case tagged.TagObject:
		tagged.MapForEach(e.Heap, tagged.ObjectMap(e.Heap, v), func(k, val heap.Address) { n++ })
	}
	return heap.EncodeInt(int64(n))
}

// runtimeKeysof is RuntimeKeysof: an Array of an Object's string keys,
// or an Array of integer indices for an Array.
func (e *Engine) runtimeKeysof(v heap.Address) heap.Address {
	var keys []heap.Address
	if !heap.IsUnboxed(v) && !heap.IsNil(v) {
		switch tagged.TagOf(e.Heap, v) {
		case tagged.TagObject:
			tagged.MapForEach(e.Heap, tagged.ObjectMap(e.Heap, v), func(k, val heap.Address) {
				keys = append(keys, k)
			})
		case tagged.TagArray:
			n := tagged.ArrayLength(e.Heap, v)
			for i := 0; i < n; i++ {
				keys = append(keys, heap.EncodeInt(int64(i)))
			}
		}
	}
	return e.newArray(keys)
}

// runtimeClone is RuntimeClone: a shallow copy of an Object or Array
// (a fresh backing Map with the same entries, not a deep copy of the
// values it holds).
func (e *Engine) runtimeClone(v heap.Address) heap.Address {
	if heap.IsUnboxed(v) || heap.IsNil(v) {
		return v
	}
	switch tagged.TagOf(e.Heap, v) {
	case tagged.TagObject:
		cap := tagged.MapCapacity(e.Heap, tagged.ObjectMap(e.Heap, v))
		newMap := tagged.AllocMap(e.Heap, cap)
		tagged.MapForEach(e.Heap, tagged.ObjectMap(e.Heap, v), func(k, val heap.Address) {
			e.mapInsertFresh(newMap, k, val)
		})
		return tagged.AllocObject(e.Heap, newMap, tagged.MapMask(e.Heap, newMap))
	case tagged.TagArray:
		srcMap := tagged.ObjectMap(e.Heap, v)
		cap := tagged.MapCapacity(e.Heap, srcMap)
		newMap := tagged.AllocMap(e.Heap, cap)
		tagged.MapForEach(e.Heap, srcMap, func(k, val heap.Address) {
			e.mapInsertFresh(newMap, k, val)
		})
		return tagged.AllocArray(e.Heap, newMap, tagged.MapMask(e.Heap, newMap), tagged.ArrayLength(e.Heap, v))
	default:
		return v
	}
}

// runtimeStringHash is RuntimeStringHash: a 32-bit non-cryptographic
// hash of a String's flattened bytes, cached on the object the first
// time it is computed (spec.md §3's cached-hash word).
func (e *Engine) runtimeStringHash(p heap.Address) uint32 {
	flat := tagged.Flatten(e.Heap, p)
	if h, ok := tagged.StringCachedHash(e.Heap, flat); ok {
		return h
	}
	sum := fnv.New32a()
	sum.Write(tagged.StringRawBytes(e.Heap, flat))
	h := sum.Sum32()
	tagged.SetStringCachedHash(e.Heap, flat, h)
	return h
}

// runtimeBinOpSlow is RuntimeBinOpSlow: the boxed-double fallback
// EmitBinaryOpStub's fast path defers to whenever either operand is
// not an unboxed integer — a boxed Number, a String (+ concatenates),
// or an operator the fast path never handles (*, /, %).
func (e *Engine) runtimeBinOpSlow(op ast.BinOp, lhs, rhs heap.Address) heap.Address {
	if op == ast.OpAdd && e.isString(lhs) && e.isString(rhs) {
		return e.concatStrings(lhs, rhs)
	}

	switch op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
		return e.compareSlow(op, lhs, rhs)
	}

	a, b := e.numberValue(lhs), e.numberValue(rhs)
	switch op {
	case ast.OpAdd:
		return e.boxNumber(a + b)
	case ast.OpSub:
		return e.boxNumber(a - b)
	case ast.OpMul:
		return e.boxNumber(a * b)
	case ast.OpDiv:
		if b == 0 {
			return heap.NilAddress // DivideByZero: non-fatal, resolves to Nil (spec.md §7)
		}
		return e.boxNumber(a / b)
	case ast.OpMod:
		if b == 0 {
			return heap.NilAddress
		}
		ai, bi := int64(a), int64(b)
		return e.boxNumber(float64(ai % bi))
	case ast.OpBitAnd:
		return e.boxNumber(float64(int64(a) & int64(b)))
	case ast.OpBitOr:
		return e.boxNumber(float64(int64(a) | int64(b)))
	case ast.OpBitXor:
		return e.boxNumber(float64(int64(a) ^ int64(b)))
	case ast.OpShl:
		return e.boxNumber(float64(int64(a) << uint64(int64(b))))
	case ast.OpShr:
		return e.boxNumber(float64(int64(a) >> uint64(int64(b))))
	default:
		return heap.NilAddress
	}
}

func (e *Engine) compareSlow(op ast.BinOp, lhs, rhs heap.Address) heap.Address {
	if e.isString(lhs) && e.isString(rhs) {
		c := bytes.Compare(e.stringBytes(lhs), e.stringBytes(rhs))
		switch op {
		case ast.OpEq:
			return e.boolValue(c == 0)
		case ast.OpNe:
			return e.boolValue(c != 0)
		case ast.OpLt:
			return e.boolValue(c < 0)
		case ast.OpLe:
			return e.boolValue(c <= 0)
		case ast.OpGt:
			return e.boolValue(c > 0)
		case ast.OpGe:
			return e.boolValue(c >= 0)
		}
	}
	a, b := e.numberValue(lhs), e.numberValue(rhs)
	switch op {
	case ast.OpEq:
		return e.boolValue(a == b)
	case ast.OpNe:
		return e.boolValue(a != b)
	case ast.OpLt:
		return e.boolValue(a < b)
	case ast.OpLe:
		return e.boolValue(a <= b)
	case ast.OpGt:
		return e.boolValue(a > b)
	case ast.OpGe:
		return e.boolValue(a >= b)
	}
	return e.False
}

func (e *Engine) isString(v heap.Address) bool {
	return tagged.IsHeapObject(e.Heap, tagged.TagString, v)
}

func (e *Engine) concatStrings(lhs, rhs heap.Address) heap.Address {
	lb, rb := e.stringBytes(lhs), e.stringBytes(rhs)
	total := len(lb) + len(rb)
	if total < kMinConsLength {
		return tagged.AllocString(e.Heap, string(lb)+string(rb))
	}
	cons := tagged.AllocConsString(e.Heap, lhs, heap.NilAddress, total)
	tagged.SetConsRight(e.Heap, cons, rhs)
	return cons
}

// kMinConsLength mirrors internal/tagged's unexported constant of the
// same name; runtimeBinOpSlow needs it to decide eager-flatten vs.
// lazy-cons concatenation and internal/tagged does not export it.
const kMinConsLength = 13

// runtimeStackTrace is RuntimeStackTrace, defined in stacktrace.go.

// runtimeCollectGarbage is RuntimeCollectGarbage, defined in gc.go.
