package exec

import (
	"candor/internal/ast"
	"candor/internal/heap"
)

// binOp implements LOpBinOp, mirroring EmitBinaryOpStub's dispatch: an
// unboxed-integer fast path for the operators generated code can do
// directly (add/sub with overflow detection, the bitwise family, and
// every comparison), falling back to runtimeBinOpSlow for anything
// that touches a boxed Number, a String, or an operator the fast path
// never covers (*, /, %).
func (e *Engine) binOp(op ast.BinOp, lhs, rhs heap.Address) heap.Address {
	if heap.IsUnboxed(lhs) && heap.IsUnboxed(rhs) {
		a, b := heap.DecodeInt(lhs), heap.DecodeInt(rhs)
		switch op {
		case ast.OpAdd:
			if sum, ok := addOverflows(a, b); ok {
				return heap.EncodeInt(sum)
			}
		case ast.OpSub:
			if diff, ok := subOverflows(a, b); ok {
				return heap.EncodeInt(diff)
			}
		case ast.OpBitAnd:
			return heap.EncodeInt(a & b)
		case ast.OpBitOr:
			return heap.EncodeInt(a | b)
		case ast.OpBitXor:
			return heap.EncodeInt(a ^ b)
		case ast.OpShl:
			return heap.EncodeInt(a << uint64(b))
		case ast.OpShr:
			return heap.EncodeInt(a >> uint64(b))
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
	}
	return e.runtimeBinOpSlow(op, lhs, rhs)
}

// addOverflows reports whether a+b still fits the 63-bit range Address
// EncodeInt preserves; ok is false when the fast path must defer to
// the boxed-double fallback instead.
func addOverflows(a, b int64) (int64, bool) {
	sum := a + b
	return sum, fitsUnboxed(sum)
}

func subOverflows(a, b int64) (int64, bool) {
	diff := a - b
	return diff, fitsUnboxed(diff)
}

// not implements LOpNot: logical negation via CoerceToBoolean, per
// spec.md §4.6 ("not x" lowers to InstrNot over x's truthiness).
func (e *Engine) not(v heap.Address) heap.Address {
	return e.boolValue(!e.truthy(v))
}
