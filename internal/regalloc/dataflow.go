package regalloc

import (
	"candor/internal/hir"
	"candor/internal/lir"
)

// resolveDataFlow implements spec.md §4.5 step 7: for every edge
// B -> S and every interval live into S, if the child active at the
// end of B differs from the child active at the start of S, record a
// {dst <- src} leg in that edge's gap.
//
// A block's Phi instructions are not modeled as LIR instructions (see
// lir.Lower); instead each phi's Nth operand is known to correspond to
// its block's Nth predecessor (hir's builder always calls AddUse on a
// phi in the same order it walks that block's Preds — sealBlock for
// loop headers, lowerLogical for short-circuit joins), so a phi
// contributes one gap leg per incoming edge copying that edge's
// operand interval into the phi's own interval, rather than needing
// the usual same-interval-different-child comparison.
func resolveDataFlow(f *lir.LFunc) {
	for _, pred := range f.Blocks {
		for si, succ := range pred.Succs {
			predEnd := pred.End - 2
			succStart := succ.Start
			predIdx := predIndex(succ, pred, si)

			var moves []lir.GapMove

			for _, hirInstr := range succ.HIR.Instrs {
				if hirInstr.Kind != hir.InstrPhi || hirInstr.Removed || predIdx >= len(hirInstr.Args) {
					continue
				}
				operand := hirInstr.Args[predIdx]
				dstIv := f.LookupInterval(hirInstr)
				srcIv := f.LookupInterval(operand)
				if dstIv == nil || srcIv == nil {
					continue
				}
				dstChild := dstIv.ChildAt(succStart)
				srcChild := srcIv.ChildAt(predEnd)
				if dstChild != nil && srcChild != nil && dstChild != srcChild {
					moves = append(moves, lir.GapMove{Dst: dstChild, Src: srcChild})
				}
			}

			for iv := range succ.LiveIn {
				root := iv.Root()
				srcChild := root.ChildAt(predEnd)
				dstChild := root.ChildAt(succStart)
				if srcChild != nil && dstChild != nil && srcChild != dstChild {
					moves = append(moves, lir.GapMove{Dst: dstChild, Src: srcChild})
				}
			}

			if len(moves) > 0 {
				moves = serializeCycles(moves)
				if pred.Gaps == nil {
					pred.Gaps = map[*lir.LBlock]*lir.LInstruction{}
				}
				pred.Gaps[succ] = &lir.LInstruction{Op: lir.LOpGap, Data: lir.GapData{Moves: moves}}
			}
		}
	}
}

// predIndex finds pred's position among succ's Preds, defaulting to
// the loop index si (the order pred.Succs was iterated in) if the
// direct search fails; in every shape lir.Lower produces the two
// orders already agree.
func predIndex(succ, pred *lir.LBlock, si int) int {
	for i, p := range succ.Preds {
		if p == pred {
			return i
		}
	}
	return si
}

// serializeCycles breaks any cyclic dependency among one gap's moves
// (e.g. a<-b, b<-a) through one extra temporary leg, so emitting the
// moves in sequence produces the same result a true parallel move
// would. This grammar produces at most a single loop-carried-variable
// swap per edge, so a direct pairwise cycle check covers every case
// lir.Lower can actually generate; it is not a general cycle breaker
// for arbitrary-length move cycles.
func serializeCycles(moves []lir.GapMove) []lir.GapMove {
	inCycle := map[int]bool{}
	for i, m := range moves {
		for j, n := range moves {
			if i != j && m.Src == n.Dst && m.Dst == n.Src {
				inCycle[i], inCycle[j] = true, true
			}
		}
	}
	if len(inCycle) == 0 {
		return moves
	}

	var cyc, rest []lir.GapMove
	for i, m := range moves {
		if inCycle[i] {
			cyc = append(cyc, m)
		} else {
			rest = append(rest, m)
		}
	}
	if len(cyc) == 2 {
		a, b := cyc[0], cyc[1]
		tmp := &lir.LInterval{Reg: lir.NoRegister, SpillSlot: lir.NoSpillSlot}
		rest = append(rest, lir.GapMove{Dst: tmp, Src: a.Dst}, lir.GapMove{Dst: a.Dst, Src: b.Dst}, lir.GapMove{Dst: b.Dst, Src: tmp})
	} else {
		rest = append(rest, cyc...)
	}
	return rest
}
