package lir

import "candor/internal/hir"

// NumPhysRegs is the size of the allocatable general-purpose register
// file the rest of the pipeline targets. It is small on purpose: a
// tiny register file exercises spilling and blocked-register
// allocation (AllocateBlockedReg) far more often than a realistic
// 16-register machine would, which is exactly the code path this
// module most needs tests against.
const NumPhysRegs = 6

// LFunc is one function lowered to LIR: a flat instruction list plus
// the block boundaries, liveness sets, and intervals built over it.
type LFunc struct {
	HIR    *hir.Func
	Blocks []*LBlock
	Instrs []*LInstruction

	// valueIntervals maps each HIR instruction that produces a result
	// to the virtual LInterval carrying its live range.
	valueIntervals map[*hir.Instruction]*LInterval
	Intervals      []*LInterval // virtual intervals, in creation order
	PhysIntervals  [NumPhysRegs]*LInterval

	nextInstrID    LInstrID
	nextIntervalID LIntervalID
}

func newLFunc(hf *hir.Func) *LFunc {
	f := &LFunc{HIR: hf, valueIntervals: map[*hir.Instruction]*LInterval{}}
	for r := 0; r < NumPhysRegs; r++ {
		f.PhysIntervals[r] = &LInterval{ID: f.allocIntervalID(), Fixed: true, FixedReg: r, Reg: r, SpillSlot: NoSpillSlot}
	}
	return f
}

func (f *LFunc) allocInstrID() LInstrID {
	id := f.nextInstrID
	f.nextInstrID += 2
	return id
}

func (f *LFunc) allocIntervalID() LIntervalID {
	id := f.nextIntervalID
	f.nextIntervalID++
	return id
}

// LookupInterval returns the virtual interval already allocated for
// an HIR value, or nil if nothing in this function ever referenced it
// as an argument or a result (e.g. a Phi no downstream instruction
// consumes).
func (f *LFunc) LookupInterval(v *hir.Instruction) *LInterval {
	return f.valueIntervals[v]
}

// intervalFor returns the virtual interval for an HIR value,
// allocating one on first reference.
func (f *LFunc) intervalFor(v *hir.Instruction) *LInterval {
	if iv, ok := f.valueIntervals[v]; ok {
		return iv
	}
	iv := &LInterval{ID: f.allocIntervalID(), Reg: NoRegister, SpillSlot: NoSpillSlot}
	f.valueIntervals[v] = iv
	f.Intervals = append(f.Intervals, iv)
	return iv
}

// append adds instr to the end of the flat instruction list and to
// its block, assigning it the next even id.
func (f *LFunc) append(b *LBlock, instr *LInstruction) *LInstruction {
	instr.ID = f.allocInstrID()
	instr.Block = b
	f.Instrs = append(f.Instrs, instr)
	b.Instrs = append(b.Instrs, instr)
	return instr
}

// Module is a batch of lowered functions.
type Module struct {
	Funcs []*LFunc
}
