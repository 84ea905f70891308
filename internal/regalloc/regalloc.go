// Package regalloc implements the Wimmer/Mössenböck linear-scan
// register allocator spec.md §4.5 describes: it consumes the
// LIntervals internal/lir builds over a flattened instruction list
// and assigns each a physical register or a spill slot, splitting
// live ranges as needed, then resolves the parallel moves every block
// edge and every spill needs.
package regalloc

import (
	"sort"

	"candor/internal/lir"
)

// Result holds the outcome of allocating one function: the set of
// split children every original interval produced (walk appends new
// intervals to this list as it splits), and the spill-slot count the
// prologue must reserve.
type Result struct {
	Intervals     []*lir.LInterval
	NumSpillSlots int
}

// Allocate runs the full pipeline (walk, resolveDataFlow,
// allocateSpillSlots) over f, which must already have had
// lir.ComputeLiveness and lir.BuildIntervals run on it.
func Allocate(f *lir.LFunc) *Result {
	res := &Result{}
	walk(f, res)
	res.Intervals = f.Intervals
	resolveDataFlow(f)
	allocateSpillSlots(f, res)
	return res
}

// walk is the classic Linear Scan Allocation loop: partition into
// unhandled/active/inactive/handled sets ordered by start position,
// advancing `current` through unhandled and trying TryAllocateFreeReg
// before falling back to AllocateBlockedReg.
func walk(f *lir.LFunc, res *Result) {
	unhandled := make([]*lir.LInterval, 0, len(f.Intervals))
	for _, iv := range f.Intervals {
		if len(iv.Ranges) > 0 {
			unhandled = append(unhandled, iv)
		}
	}
	sort.SliceStable(unhandled, func(i, j int) bool { return unhandled[i].From() < unhandled[j].From() })

	var active, inactive []*lir.LInterval

	for len(unhandled) > 0 {
		current := unhandled[0]
		unhandled = unhandled[1:]
		pos := current.From()

		var stillActive []*lir.LInterval
		for _, iv := range active {
			switch {
			case iv.To() <= pos:
				// handled
			case !iv.CoversPos(pos):
				inactive = append(inactive, iv)
			default:
				stillActive = append(stillActive, iv)
			}
		}
		active = stillActive

		var stillInactive []*lir.LInterval
		for _, iv := range inactive {
			switch {
			case iv.To() <= pos:
				// handled
			case iv.CoversPos(pos):
				active = append(active, iv)
			default:
				stillInactive = append(stillInactive, iv)
			}
		}
		inactive = stillInactive

		if ok := tryAllocateFreeReg(f, current, active, inactive, pos); !ok {
			newUnhandled := allocateBlockedReg(f, current, active, inactive, pos)
			for _, iv := range newUnhandled {
				f.Intervals = append(f.Intervals, iv)
			}
			unhandled = append(unhandled, newUnhandled...)
			sort.SliceStable(unhandled, func(i, j int) bool { return unhandled[i].From() < unhandled[j].From() })
		}
		if current.Reg != lir.NoRegister {
			active = append(active, current)
		}
	}
}

// tryAllocateFreeReg implements spec.md §4.5 step 6's
// TryAllocateFreeReg: free_pos[r] = 0 for every register held by an
// active interval, free_pos[r] = the first position at which an
// inactive interval starts intersecting current for every register
// held by one, kMaxPos otherwise. The register with the largest
// free_pos wins; if that is still >= current's end the whole interval
// fits unsplit, otherwise current is split at free_pos (rounded to an
// even boundary) and only the prefix gets the register.
func tryAllocateFreeReg(f *lir.LFunc, current *lir.LInterval, active, inactive []*lir.LInterval, pos lir.LInstrID) bool {
	const kMaxPos = lir.LInstrID(1 << 30)
	freePos := make([]lir.LInstrID, lir.NumPhysRegs)
	for r := range freePos {
		freePos[r] = kMaxPos
	}
	for _, iv := range active {
		if iv.Reg >= 0 && iv.Reg < lir.NumPhysRegs {
			freePos[iv.Reg] = 0
		}
	}
	for _, iv := range inactive {
		if iv.Reg < 0 || iv.Reg >= lir.NumPhysRegs {
			continue
		}
		if at := current.IntersectsWith(iv); at != lir.NoLInstrID && at < freePos[iv.Reg] {
			freePos[iv.Reg] = at
		}
	}
	for r := 0; r < lir.NumPhysRegs; r++ {
		if fixed := f.PhysIntervals[r]; fixed != nil {
			if at := current.IntersectsWith(fixed); at != lir.NoLInstrID && at < freePos[r] {
				freePos[r] = at
			}
		}
	}

	best, bestPos := -1, lir.LInstrID(-1)
	for r, p := range freePos {
		if p > bestPos {
			best, bestPos = r, p
		}
	}
	if best == -1 || bestPos == 0 {
		return false
	}

	if bestPos >= current.To() {
		current.Reg = best
		return true
	}
	splitPos := roundEven(bestPos)
	if splitPos <= current.From() {
		return false
	}
	tail := current.SplitAt(splitPos)
	f.Intervals = append(f.Intervals, tail)
	current.Reg = best
	return true
}

// allocateBlockedReg implements spec.md §4.5 step 6's
// AllocateBlockedReg: compute use_pos (next required-register use of
// each register's occupant) and block_pos (next use of a fixed
// interval). If current's own first required-register use is later
// than every use_pos, current itself spills; otherwise current takes
// the register with the furthest use_pos, splitting itself before
// block_pos if a fixed interval needs the register sooner, and
// splitting every intersecting occupant at current's start so the
// freed tail can be reallocated later.
func allocateBlockedReg(f *lir.LFunc, current *lir.LInterval, active, inactive []*lir.LInterval, pos lir.LInstrID) []*lir.LInterval {
	const kMaxPos = lir.LInstrID(1 << 30)
	usePos := make([]lir.LInstrID, lir.NumPhysRegs)
	blockPos := make([]lir.LInstrID, lir.NumPhysRegs)
	occupant := make([]*lir.LInterval, lir.NumPhysRegs)
	for r := range usePos {
		usePos[r], blockPos[r] = kMaxPos, kMaxPos
	}

	for _, iv := range active {
		if iv.Reg < 0 || iv.Reg >= lir.NumPhysRegs {
			continue
		}
		if u := iv.NextUseAfter(pos, lir.UseRegister); u != lir.NoLInstrID && u < usePos[iv.Reg] {
			usePos[iv.Reg] = u
			occupant[iv.Reg] = iv
		}
	}
	for _, iv := range inactive {
		if iv.Reg < 0 || iv.Reg >= lir.NumPhysRegs {
			continue
		}
		if at := current.IntersectsWith(iv); at != lir.NoLInstrID {
			if u := iv.NextUseAfter(pos, lir.UseRegister); u != lir.NoLInstrID && u < usePos[iv.Reg] {
				usePos[iv.Reg] = u
				occupant[iv.Reg] = iv
			}
		}
	}
	for r := 0; r < lir.NumPhysRegs; r++ {
		fixed := f.PhysIntervals[r]
		if fixed == nil {
			continue
		}
		if at := current.IntersectsWith(fixed); at != lir.NoLInstrID && at < blockPos[r] {
			blockPos[r] = at
			if at < usePos[r] {
				usePos[r] = at
			}
		}
	}

	best, bestUse := -1, lir.LInstrID(-1)
	for r, u := range usePos {
		if u > bestUse {
			best, bestUse = r, u
		}
	}

	firstRegUse := current.NextUseAfter(pos, lir.UseRegister)
	if best == -1 || (firstRegUse != lir.NoLInstrID && firstRegUse >= bestUse) {
		// current itself loses: split before its first register use and
		// spill the tail (or the whole thing if it never needs one).
		if firstRegUse == lir.NoLInstrID || firstRegUse <= current.From() {
			current.Reg = lir.NoRegister
			return nil
		}
		tail := current.SplitAt(roundEven(firstRegUse))
		tail.Reg = lir.NoRegister
		current.Reg = lir.NoRegister
		return []*lir.LInterval{tail}
	}

	current.Reg = best
	var requeue []*lir.LInterval
	if blockPos[best] < current.To() {
		tail := current.SplitAt(roundEven(blockPos[best]))
		tail.Reg = lir.NoRegister
		requeue = append(requeue, tail)
	}
	if occ := occupant[best]; occ != nil {
		splitAt := roundEven(current.From())
		if splitAt > occ.From() && splitAt < occ.To() {
			tail := occ.SplitAt(splitAt)
			tail.Reg = lir.NoRegister
			requeue = append(requeue, tail)
		} else if splitAt <= occ.From() {
			occ.Reg = lir.NoRegister
		}
	}
	return requeue
}

// roundEven rounds pos down to an even id, so every split point the
// allocator makes lands on an instruction id.
func roundEven(pos lir.LInstrID) lir.LInstrID {
	if pos%2 != 0 {
		return pos - 1
	}
	return pos
}
