package lir

import "candor/internal/hir"

// Lower flattens hf and generates one LFunc over the flattened order,
// per spec.md §4.5 steps 1–2. Phis are not given their own
// LInstruction: each phi's inputs are recorded so that later data-flow
// resolution (package internal/regalloc) can splice the right gap
// moves into the predecessor edges instead.
func Lower(hf *hir.Func) *LFunc {
	f := newLFunc(hf)
	order := flattenBlocks(hf)

	lblocks := make(map[hir.BlockID]*LBlock, len(order))
	for i, hb := range order {
		lb := newLBlock(LBlockID(i))
		lb.IsLoop = hb.IsLoop
		lb.HIR = hb
		lblocks[hb.ID] = lb
		f.Blocks = append(f.Blocks, lb)
	}
	for _, hb := range order {
		lb := lblocks[hb.ID]
		for _, s := range hb.Succs {
			lb.addSucc(lblocks[s.ID])
		}
	}

	for i, hb := range order {
		lb := f.Blocks[i]
		lb.Start = f.nextInstrID
		label := f.append(lb, &LInstruction{Op: LOpLabel})
		lb.Label = label

		var nextBlock *hir.Block
		if i+1 < len(order) {
			nextBlock = order[i+1]
		}
		for _, in := range hb.Instrs {
			if in.Removed || in.Kind == hir.InstrPhi {
				continue
			}
			f.genInstr(lb, in, hb, nextBlock, lblocks)
		}
		lb.End = f.nextInstrID
	}
	return f
}

// genInstr emits the LIR form of a single HIR instruction.
func (f *LFunc) genInstr(lb *LBlock, in *hir.Instruction, hb *hir.Block, fallthroughTo *hir.Block, lblocks map[hir.BlockID]*LBlock) {
	switch in.Kind {
	case hir.InstrEntry:
		data := in.Data.(hir.EntryData)
		li := f.append(lb, &LInstruction{Op: LOpPrologue, HIR: in, Data: data})
		li.Result = &LUse{Interval: f.intervalFor(in), Kind: UseAny}

	case hir.InstrGoto:
		target := in.Data.(hir.GotoData).Target
		if target == fallthroughTo {
			return // adjacent fall-through: elided per spec.md §4.5 step 7
		}
		f.append(lb, &LInstruction{Op: LOpGoto, HIR: in, Data: GotoData{Target: lblocks[target.ID]}})

	case hir.InstrIf:
		data := in.Data.(hir.IfData)
		li := &LInstruction{Op: LOpBranch, HIR: in, Data: BranchData{Then: lblocks[data.Then.ID], Else: lblocks[data.Else.ID]}}
		li.Inputs = append(li.Inputs, LUse{Interval: f.intervalFor(in.Args[0]), Kind: UseAny})
		f.append(lb, li)

	default:
		op, ok := hirToLOp[in.Kind]
		if !ok {
			return
		}
		li := &LInstruction{Op: op, HIR: in, Data: in.Data, IsCall: in.Kind == hir.InstrCall}
		for _, a := range in.Args {
			kind := UseAny
			li.Inputs = append(li.Inputs, LUse{Interval: f.intervalFor(a), Kind: kind})
		}
		if producesValue(in.Kind) {
			li.Result = &LUse{Interval: f.intervalFor(in), Kind: UseAny}
		}
		f.append(lb, li)
	}
}

// producesValue reports whether an HIR instruction kind leaves behind
// a value later instructions may consume. Return, StoreContext,
// StoreProperty, DeleteProperty, CollectGarbage and AlignStack are
// pure effects.
func producesValue(k hir.InstrKind) bool {
	switch k {
	case hir.InstrReturn, hir.InstrStoreContext, hir.InstrStoreProperty,
		hir.InstrDeleteProperty, hir.InstrCollectGarbage, hir.InstrAlignStack:
		return false
	default:
		return true
	}
}
