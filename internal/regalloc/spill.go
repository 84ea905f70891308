package regalloc

import (
	"sort"

	"candor/internal/lir"
)

// allocateSpillSlots implements spec.md §4.5 step 8: a second linear
// scan, this time only over intervals that never got a register
// (Reg == NoRegister), assigning each a stack slot index and reusing
// a slot once its previous occupant's range has ended.
func allocateSpillSlots(f *lir.LFunc, res *Result) {
	var spilled []*lir.LInterval
	for _, iv := range f.Intervals {
		if iv.Reg == lir.NoRegister && len(iv.Ranges) > 0 {
			spilled = append(spilled, iv)
		}
	}
	sort.SliceStable(spilled, func(i, j int) bool { return spilled[i].From() < spilled[j].From() })

	var freeSlots []int
	occupied := map[int]*lir.LInterval{}
	numSlots := 0

	for _, iv := range spilled {
		for slot, occ := range occupied {
			if occ.To() <= iv.From() {
				freeSlots = append(freeSlots, slot)
				delete(occupied, slot)
			}
		}
		var slot int
		if len(freeSlots) > 0 {
			slot, freeSlots = freeSlots[len(freeSlots)-1], freeSlots[:len(freeSlots)-1]
		} else {
			slot = numSlots
			numSlots++
		}
		iv.SpillSlot = slot
		occupied[slot] = iv
	}
	res.NumSpillSlots = numSlots
}
