package lir

// BuildIntervals walks blocks in reverse order adding ranges and uses
// to every interval, per spec.md §4.5 step 5. It must run after
// ComputeLiveness.
func BuildIntervals(f *LFunc) {
	for i := len(f.Blocks) - 1; i >= 0; i-- {
		b := f.Blocks[i]
		startID, endID := b.Start, b.End

		for iv := range b.LiveOut {
			iv.AddRange(startID, endID+2)
		}

		for j := len(b.Instrs) - 1; j >= 0; j-- {
			in := b.Instrs[j]
			id := in.ID

			if in.IsCall {
				for r := 0; r < NumPhysRegs; r++ {
					f.PhysIntervals[r].AddRange(id, id+1)
				}
			}
			for _, sc := range in.Scratch {
				sc.Interval.AddRange(id-1, id)
			}
			if in.Result != nil {
				iv := in.Result.Interval
				if len(iv.Ranges) == 0 || iv.Ranges[0].Start > id {
					iv.AddRange(id, id+2)
				} else {
					iv.Ranges[0].Start = id
				}
				iv.Uses = append(iv.Uses, IntervalUse{Pos: id, Kind: in.Result.Kind})
			}
			for _, use := range in.Inputs {
				kind := use.Kind
				if kind == UseAny && in.IsCall {
					kind = UseRegister
				}
				use.Interval.AddUse(id, kind)
				if !use.Interval.CoversPos(startID) {
					use.Interval.AddRange(startID, id+2)
				}
			}
		}
	}
}
