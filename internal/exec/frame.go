package exec

import (
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/lir"
)

// kEnterFrameTag is spec.md §6's sentinel word planted at the base of
// every managed call frame, used here only by GetStackTrace's
// corruption check (stacktrace.go) since exec has no real machine
// stack to walk.
const kEnterFrameTag = 0xFEEDBEEE

// Frame is one activation record: a simulated register file and spill
// area sized exactly the way regalloc.Result says this function's
// compiled form needs, plus the heap Context its LoadContext/
// StoreContext instructions address. It is the concrete shape
// internal/gc's RootSlot/Slots helper was written to adapt (see
// internal/gc/roots.go's doc comment).
type Frame struct {
	Func  *hir.Func
	LFunc *lir.LFunc

	Regs   [lir.NumPhysRegs]heap.Address
	Spills []heap.Address

	// Context is this call's own heap Context, always allocated even
	// when Func.ContextSlotCount == 0 — see DESIGN.md's "always
	// allocate a context" decision, which keeps resolveIdent's
	// Depth-hop arithmetic sound regardless of which ancestor
	// functions happened to capture anything.
	Context       heap.Address
	ParentContext heap.Address

	Argv []heap.Address

	Caller     *Frame
	CallSiteID lir.LInstrID

	// Cur is the instruction runBlock is currently executing in this
	// frame, read by stacktrace.go's captureBacktrace when this frame
	// is the innermost one on the stack.
	Cur lir.LInstrID

	Sentinel uint32
}

// newFrame allocates the register/spill storage for one call to fn,
// using cf's regalloc result to size Spills.
func newFrame(fn *hir.Func, cf *compiledFunc, parentContext heap.Address, argv []heap.Address, caller *Frame, callSiteID lir.LInstrID) *Frame {
	return &Frame{
		Func:          fn,
		LFunc:         cf.LFunc,
		Spills:        make([]heap.Address, cf.Result.NumSpillSlots),
		ParentContext: parentContext,
		Argv:          argv,
		Caller:        caller,
		CallSiteID:    callSiteID,
		Sentinel:      kEnterFrameTag,
	}
}

// cell resolves iv (a value's root interval) to the concrete storage
// location live at pos — a register or a spill slot — by walking to
// whichever split child covers pos (see DESIGN.md's ChildAt note).
func (fr *Frame) cell(iv *lir.LInterval, pos lir.LInstrID) *heap.Address {
	child := iv.ChildAt(pos)
	if child == nil {
		child = iv
	}
	return fr.rawCell(child)
}

// rawCell resolves an already-concrete (not-yet-split-searched)
// interval directly, used by gap resolution (interp.go) on the
// resolved split children regalloc's resolveDataFlow already picked.
func (fr *Frame) rawCell(iv *lir.LInterval) *heap.Address {
	switch {
	case iv.Reg != lir.NoRegister:
		return &fr.Regs[iv.Reg]
	case iv.SpillSlot != lir.NoSpillSlot:
		return &fr.Spills[iv.SpillSlot]
	default:
		return nil
	}
}

func (fr *Frame) get(iv *lir.LInterval, pos lir.LInstrID) heap.Address {
	return *fr.cell(iv, pos)
}

func (fr *Frame) set(iv *lir.LInterval, pos lir.LInstrID, v heap.Address) {
	*fr.cell(iv, pos) = v
}
