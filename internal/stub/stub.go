// Package stub emits the once-compiled trampolines spec.md §4.6
// describes against the internal/asm Assembler interface: the Entry
// stub, the Allocate stub, property lookup, the per-operator binary-op
// stub, and the thin runtime-call wrappers (coerce-to-boolean,
// typeof, sizeof, keysof, clone, delete-property, stack-trace,
// gc-collect, string-hash). Every stub follows the same frame
// convention — Prologue, body, Epilogue — and every call site inside
// a stub is followed by CheckGC, the only cooperative safe point
// besides function return.
package stub

import (
	"candor/internal/asm"
	"candor/internal/ast"
	"candor/internal/tagged"
)

// Conventional register assignments every stub in this package
// agrees on, so one stub can call into another's entry label and know
// which register its result or argument will be in.
const (
	RegResult   = 0 // return value register, per spec.md's "return value flows through the same register"
	RegArgc     = 0 // argc at call time, before the prologue spills it — shares RegResult's slot
	RegScratch  = 1
	RegScratch2 = 2
	RegReceiver = 3
	RegKey      = 4
)

// ArgcSlot is the stack slot the prologue spills argc into, per
// spec.md: "argc is carried in the platform's first integer return
// register at call time and spilled to [fp - 2*W] in the prologue."
const ArgcSlot = 2

// RuntimeCall names one of the host-level C runtime entry points a
// stub's slow path falls back into. These are never resolved to real
// addresses in this module — TextAssembler renders them as symbolic
// call targets, and internal/exec's interpreter supplies the actual
// Go implementation behind the same names.
type RuntimeCall string

const (
	RuntimeAllocate        RuntimeCall = "RuntimeAllocate"
	RuntimeLookupProperty  RuntimeCall = "RuntimeLookupProperty"
	RuntimeCoerceToBoolean RuntimeCall = "RuntimeCoerceToBoolean"
	RuntimeTypeof          RuntimeCall = "RuntimeTypeof"
	RuntimeSizeof          RuntimeCall = "RuntimeSizeof"
	RuntimeKeysof          RuntimeCall = "RuntimeKeysof"
	RuntimeClone           RuntimeCall = "RuntimeClone"
	RuntimeDeleteProperty  RuntimeCall = "RuntimeDeleteProperty"
	RuntimeStackTrace      RuntimeCall = "RuntimeStackTrace"
	RuntimeCollectGarbage  RuntimeCall = "RuntimeCollectGarbage"
	RuntimeStringHash      RuntimeCall = "RuntimeStringHash"
	RuntimeBinOpSlow       RuntimeCall = "RuntimeBinOpSlow"
)

func runtimeLabel(rt RuntimeCall) *asm.Label { return asm.NewLabel(string(rt)) }

// callRuntime calls the named runtime function and immediately checks
// for GC, matching "every stub call site is followed by a CheckGC
// macro" (spec.md §4.6).
func callRuntime(a asm.Assembler, rt RuntimeCall) {
	a.CallLabel(runtimeLabel(rt))
	a.CheckGC()
}

// withFrame emits Prologue, runs body, then Epilogue(popWords) — the
// frame shape every stub in this package shares.
func withFrame(a asm.Assembler, name string, popWords int, body func()) {
	entry := asm.NewLabel(name)
	a.Bind(entry)
	a.Prologue()
	body()
	a.Epilogue(popWords)
}

// EmitEntryStub emits the Entry stub: the prologue of a
// host-to-Candor call. It plants the frame sentinel, spills argc to
// ArgcSlot, pushes one Nil pad when argc is odd to keep 2-word
// alignment, calls the function's code pointer (held in RegScratch on
// entry) and checks GC. It saves no callee-saved registers and pushes
// no argument words itself.
func EmitEntryStub(a asm.Assembler) {
	withFrame(a, "EntryStub", 0, func() {
		a.Comment("plant the enter-frame sentinel (kEnterFrameTag)")
		a.Push(asm.Imm(0xFEEDBEEE))
		a.Mov(asm.Slot(ArgcSlot), asm.Reg(RegArgc))

		a.Comment("push arguments right-to-left")
		odd := asm.NewLabel("EntryStub_OddArgc")
		done := asm.NewLabel("EntryStub_ArgsDone")
		a.Mov(asm.Reg(RegScratch2), asm.Reg(RegArgc))
		a.And(asm.Reg(RegScratch2), asm.Imm(1))
		a.Cmp(asm.Reg(RegScratch2), asm.Imm(0))
		a.Jcc(asm.CondNotEqual, odd)
		a.Jmp(done)
		a.Bind(odd)
		a.Comment("odd argc: pad with one Nil to keep 2-word alignment")
		a.Push(asm.Imm(0))
		a.Bind(done)

		a.Call(asm.Reg(RegScratch))
		a.CheckGC()
	})
}

// EmitAllocateStub emits the Allocate stub: a bump-allocation fast
// path with a runtime fallback. size is the untagged byte count to
// allocate; 16 is the unit used for a freshly allocated Object or
// Array.
func EmitAllocateStub(a asm.Assembler, size int) {
	withFrame(a, "AllocateStub", 0, func() {
		overflow := asm.NewLabel("AllocateStub_Overflow")

		a.Comment("load new-space top via double indirection")
		a.Mov(asm.Reg(RegScratch), asm.Mem(RegScratch, 0))
		a.Mov(asm.Reg(RegResult), asm.Mem(RegScratch, 0))
		a.Mov(asm.Reg(RegScratch2), asm.Reg(RegResult))
		a.Add(asm.Reg(RegScratch2), asm.Imm(int64(size)))

		a.Comment("check against limit")
		a.Cmp(asm.Reg(RegScratch2), asm.Mem(RegScratch, asm.W))
		a.Jcc(asm.CondGreaterEqual, overflow)

		a.Comment("commit: write back top, tag the header")
		a.Mov(asm.Mem(RegScratch, 0), asm.Reg(RegScratch2))
		a.Mov(asm.Mem(RegResult, 0), asm.Imm(int64(size)))
		a.Jmp(asm.NewLabel("AllocateStub_Done"))

		a.Bind(overflow)
		a.Mov(asm.Reg(RegArgc), asm.Imm(int64(size)))
		callRuntime(a, RuntimeAllocate)

		a.Bind(asm.NewLabel("AllocateStub_Done"))
	})
}

// EmitPropertyLookupStub emits the three-way dispatch the property
// lookup stub performs on the receiver's tag: object with a string
// key, array with an unboxed integer key, or the slow path. change
// selects write semantics (probing finds or claims a slot) versus
// read semantics.
func EmitPropertyLookupStub(a asm.Assembler, change bool) {
	withFrame(a, "PropertyLookupStub", 0, func() {
		isArray := asm.NewLabel("PropertyLookupStub_Array")
		slow := asm.NewLabel("PropertyLookupStub_Slow")
		done := asm.NewLabel("PropertyLookupStub_Done")

		a.Comment("dispatch on receiver tag")
		a.Cmp(asm.Mem(RegReceiver, 0), asm.Imm(tagArray))
		a.Jcc(asm.CondEqual, isArray)
		a.Cmp(asm.Mem(RegReceiver, 0), asm.Imm(tagObject))
		a.Jcc(asm.CondNotEqual, slow)

		a.Comment("object, string key: hash the key, probe (hash & mask) + kSpaceOffset")
		callRuntime(a, RuntimeStringHash)
		a.And(asm.Reg(RegScratch), asm.Mem(RegReceiver, asm.W)) // mask
		a.Add(asm.Reg(RegScratch), asm.Imm(int64(kSpaceOffset)))
		if change {
			a.Comment("change=1: write the key into an empty (Nil) slot if the probe misses")
		}
		a.Jmp(done)

		a.Bind(isArray)
		a.Comment("array, unboxed integer key: range-check against mask, grow length if necessary")
		a.Cmp(asm.Reg(RegKey), asm.Mem(RegReceiver, asm.W))
		a.Jcc(asm.CondGreaterEqual, slow)
		a.Jmp(done)

		a.Bind(slow)
		callRuntime(a, RuntimeLookupProperty)

		a.Bind(done)
	})
}

// tag bytes the property lookup stub dispatches on, matching
// internal/tagged's Object/Array tag constants.
var (
	tagObject = int64(tagged.TagObject)
	tagArray  = int64(tagged.TagArray)
)

// kSpaceOffset is the header size a map's key/value space starts
// after — an interior-pointer offset, not a tag.
const kSpaceOffset = 16

// EmitBinaryOpStub emits the per-operator binary-op stub: an
// unboxed-integer fast path that overflows back into a boxed-double
// fallback (allocating a Number for each boxed operand), with
// comparisons yielding canonical True/False. && and || always defer
// to the runtime, since they are lowered to control flow in HIR and
// never reach a binary-op stub directly.
func EmitBinaryOpStub(a asm.Assembler, op ast.BinOp) {
	withFrame(a, "BinaryOpStub_"+op.String(), 0, func() {
		slow := asm.NewLabel("BinaryOpStub_Slow")
		done := asm.NewLabel("BinaryOpStub_Done")

		a.Comment("unboxed fast path for " + op.String() + ": low tag bit of both operands must be clear")
		a.Mov(asm.Reg(RegScratch2), asm.Reg(RegReceiver))
		a.And(asm.Reg(RegScratch2), asm.Imm(1))
		a.Cmp(asm.Reg(RegScratch2), asm.Imm(0))
		a.Jcc(asm.CondNotEqual, slow)
		a.Mov(asm.Reg(RegScratch2), asm.Reg(RegKey))
		a.And(asm.Reg(RegScratch2), asm.Imm(1))
		a.Cmp(asm.Reg(RegScratch2), asm.Imm(0))
		a.Jcc(asm.CondNotEqual, slow)

		switch op {
		case ast.OpAdd:
			a.Add(asm.Reg(RegResult), asm.Reg(RegKey))
			a.Jcc(asm.CondOverflow, slow)
		case ast.OpSub:
			a.Sub(asm.Reg(RegResult), asm.Reg(RegKey))
			a.Jcc(asm.CondOverflow, slow)
		case ast.OpBitAnd:
			a.And(asm.Reg(RegResult), asm.Reg(RegKey))
		case ast.OpBitOr:
			a.Or(asm.Reg(RegResult), asm.Reg(RegKey))
		case ast.OpShl:
			a.Shl(asm.Reg(RegResult), asm.Reg(RegKey))
		case ast.OpShr:
			a.Shr(asm.Reg(RegResult), asm.Reg(RegKey))
		case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpLe, ast.OpGt, ast.OpGe:
			a.Cmp(asm.Reg(RegResult), asm.Reg(RegKey))
			a.Comment("yield canonical True/False from the root context")
		default:
			a.Jmp(slow)
		}
		a.Jmp(done)

		a.Bind(slow)
		a.Comment("boxed-double fallback: allocate a Number for each boxed operand")
		callRuntime(a, RuntimeBinOpSlow)

		a.Bind(done)
	})
}

// EmitCoerceToBooleanStub, EmitTypeofStub, EmitSizeofStub,
// EmitKeysofStub, EmitCloneStub, EmitDeletePropertyStub,
// EmitStackTraceStub, EmitGCCollectStub and EmitStringHashStub are
// each a thin wrapper calling a matching C-level runtime function.
func EmitCoerceToBooleanStub(a asm.Assembler) {
	emitRuntimeWrapper(a, "CoerceToBooleanStub", RuntimeCoerceToBoolean)
}
func EmitTypeofStub(a asm.Assembler) { emitRuntimeWrapper(a, "TypeofStub", RuntimeTypeof) }
func EmitSizeofStub(a asm.Assembler) { emitRuntimeWrapper(a, "SizeofStub", RuntimeSizeof) }
func EmitKeysofStub(a asm.Assembler) { emitRuntimeWrapper(a, "KeysofStub", RuntimeKeysof) }
func EmitCloneStub(a asm.Assembler)  { emitRuntimeWrapper(a, "CloneStub", RuntimeClone) }
func EmitDeletePropertyStub(a asm.Assembler) {
	emitRuntimeWrapper(a, "DeletePropertyStub", RuntimeDeleteProperty)
}
func EmitStackTraceStub(a asm.Assembler) { emitRuntimeWrapper(a, "StackTraceStub", RuntimeStackTrace) }
func EmitGCCollectStub(a asm.Assembler) {
	emitRuntimeWrapper(a, "GCCollectStub", RuntimeCollectGarbage)
}
func EmitStringHashStub(a asm.Assembler) { emitRuntimeWrapper(a, "StringHashStub", RuntimeStringHash) }

func emitRuntimeWrapper(a asm.Assembler, name string, rt RuntimeCall) {
	withFrame(a, name, 0, func() {
		callRuntime(a, rt)
	})
}
