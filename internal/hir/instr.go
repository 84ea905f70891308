package hir

import "candor/internal/ast"

// InstrKind enumerates the closed set of HIR instruction shapes
// (spec.md §4.4).
type InstrKind uint8

const (
	InstrInvalid InstrKind = iota
	InstrEntry
	InstrLiteral
	InstrBinOp
	InstrNot
	InstrNil
	InstrLoadContext
	InstrStoreContext
	InstrLoadProperty
	InstrStoreProperty
	InstrDeleteProperty
	InstrCall
	InstrLoadArg
	InstrStoreArg
	InstrLoadVarArg
	InstrStoreVarArg
	InstrAllocateObject
	InstrAllocateArray
	InstrSizeof
	InstrTypeof
	InstrKeysof
	InstrClone
	InstrFunction
	InstrPhi
	InstrGoto
	InstrIf
	InstrReturn
	InstrAlignStack
	InstrCollectGarbage
	InstrGetStackTrace
)

// String returns a human-readable name for the instruction kind, the
// one internal/hir/print.go and disasm listings render.
func (k InstrKind) String() string {
	switch k {
	case InstrEntry:
		return "Entry"
	case InstrLiteral:
		return "Literal"
	case InstrBinOp:
		return "BinOp"
	case InstrNot:
		return "Not"
	case InstrNil:
		return "Nil"
	case InstrLoadContext:
		return "LoadContext"
	case InstrStoreContext:
		return "StoreContext"
	case InstrLoadProperty:
		return "LoadProperty"
	case InstrStoreProperty:
		return "StoreProperty"
	case InstrDeleteProperty:
		return "DeleteProperty"
	case InstrCall:
		return "Call"
	case InstrLoadArg:
		return "LoadArg"
	case InstrStoreArg:
		return "StoreArg"
	case InstrLoadVarArg:
		return "LoadVarArg"
	case InstrStoreVarArg:
		return "StoreVarArg"
	case InstrAllocateObject:
		return "AllocateObject"
	case InstrAllocateArray:
		return "AllocateArray"
	case InstrSizeof:
		return "Sizeof"
	case InstrTypeof:
		return "Typeof"
	case InstrKeysof:
		return "Keysof"
	case InstrClone:
		return "Clone"
	case InstrFunction:
		return "Function"
	case InstrPhi:
		return "Phi"
	case InstrGoto:
		return "Goto"
	case InstrIf:
		return "If"
	case InstrReturn:
		return "Return"
	case InstrAlignStack:
		return "AlignStack"
	case InstrCollectGarbage:
		return "CollectGarbage"
	case InstrGetStackTrace:
		return "GetStackTrace"
	default:
		return "Invalid"
	}
}

// Instruction is one SSA value/operation. Every field below is common
// to all kinds; kind-specific payloads live in Data. Removed
// instructions stay linked in their Block's Instrs list (spec.md
// §4.4's "Remove() remains in the list") so instruction ids never
// shift under a later pass; downstream passes skip them instead.
type Instruction struct {
	ID      InstrID
	Kind    InstrKind
	Args    []*Instruction
	Users   []*Instruction
	Slot    ScopeSlot
	Block   *Block
	Data    InstrData
	Removed bool
}

// InstrData is the interface for kind-specific instruction payloads,
// mirroring the teacher's Expr/ExprData split one level down from the
// AST: here the "expression" is the instruction itself.
type InstrData interface {
	instrData()
}

// AddUse appends use as a consumer of def, keeping def.Users and
// use.Args in sync. Builders call this instead of mutating Args
// directly so Users is never allowed to drift.
func AddUse(def, use *Instruction) {
	use.Args = append(use.Args, def)
	def.Users = append(def.Users, use)
}

// Remove marks i as dead without renumbering or unlinking it from its
// block, per spec.md §4.4's Remove() invariant; downstream passes
// check Removed and skip it.
func (i *Instruction) Remove() {
	i.Removed = true
}

// LiteralKind enumerates the shapes a Literal instruction's immediate
// value can take.
type LiteralKind uint8

const (
	LiteralNumber LiteralKind = iota
	LiteralString
	LiteralBool
)

// LiteralData holds the immediate value of an InstrLiteral.
type LiteralData struct {
	Kind   LiteralKind
	Number float64
	Str    string
	Bool   bool
}

func (LiteralData) instrData() {}

// BinOpData holds the operator of an InstrBinOp; Args holds [lhs, rhs].
type BinOpData struct {
	Op ast.BinOp
}

func (BinOpData) instrData() {}

// EntryData marks the function prologue instruction and carries the
// declared context-slot count so LIR's prologue lowering knows how
// large a context to allocate (spec.md §4.4).
type EntryData struct {
	ContextSlotCount int
}

func (EntryData) instrData() {}

// ContextAccessData locates a binding in the context chain: Depth is
// how many parent hops from the current function's own context, Index
// is the slot within that context. Depth 0 is the function's own
// context. Used by both LoadContext (no Args) and StoreContext
// (Args[0] is the value).
type ContextAccessData struct {
	Depth int
	Index int
}

func (ContextAccessData) instrData() {}

// PropertyData describes a property access/mutation/deletion. When
// HasKey is true the key is the static string Key; otherwise the key
// is computed and is the instruction immediately following Object in
// Args (LoadProperty/DeleteProperty: Args = [object] or [object, key];
// StoreProperty: Args = [object, value] or [object, key, value]).
type PropertyData struct {
	Key    string
	HasKey bool
}

func (PropertyData) instrData() {}

// CallData marks Args[0] as the callee and each of Args[1:] as a
// StoreArg or StoreVarArg instruction staging one outgoing argument;
// HasSpread is set when one of them is a StoreVarArg splicing an
// array's elements into the argument list via "expr...".
type CallData struct {
	HasSpread bool
}

func (CallData) instrData() {}

// ArgIndexData carries the fixed-argument slot index used by LoadArg
// (callee prologue, no Args) and StoreArg (call site, Args[0] is the
// value being placed at that position). FromEnd marks a callee-side
// LoadArg for a fixed parameter declared after the function's vararg
// parameter (`fn(a, b..., c)`'s c): that parameter's real argv
// position shifts with how many elements the vararg captured at a
// given call, so Index counts back from argv's end (0 = the first
// parameter after the vararg) rather than forward from its start.
type ArgIndexData struct {
	Index   int
	FromEnd bool
}

func (ArgIndexData) instrData() {}

// VarArgIndexData is ArgIndexData's counterpart for the vararg
// parameter: LoadVarArg (callee side, no Args — materializes a fresh
// Array from every argv slot not claimed by a fixed parameter before
// or after it, per hir.Func's VarargIndex/TailParamCount; Index is
// just the parameter's own declared position, kept for disasm) and
// StoreVarArg (call site, Args[0] is the spread expression's value;
// Index is how many fixed call arguments precede it, i.e. where its
// elements get spliced into the flat argv — "expr..." is only legal
// as a call's last argument, so this is always the splice point).
type VarArgIndexData struct {
	Index int
}

func (VarArgIndexData) instrData() {}

// FunctionData wires an InstrFunction instruction to the nested Func
// literal it instantiates into a closure value capturing the current
// context.
type FunctionData struct {
	Func *Func
}

func (FunctionData) instrData() {}

// ArrayLengthData carries an AllocateArray instruction's initial
// backing length; elements are filled in afterward with a
// StoreProperty per index (the property-lookup stub dispatches array
// vs. object element access by receiver tag at run time, so HIR does
// not need separate instruction kinds for the two).
type ArrayLengthData struct {
	Length int
}

func (ArrayLengthData) instrData() {}

// GotoData names the single successor of an unconditional jump.
type GotoData struct {
	Target *Block
}

func (GotoData) instrData() {}

// IfData names the two successors of a conditional branch; Args[0]
// holds the condition instruction.
type IfData struct {
	Then *Block
	Else *Block
}

func (IfData) instrData() {}
