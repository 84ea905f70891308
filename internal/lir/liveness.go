package lir

// ComputeLiveness fills in LiveGen/LiveKill for every block (local
// liveness) and then iterates LiveIn/LiveOut to a fixed point (global
// liveness), per spec.md §4.5 steps 3–4.
func ComputeLiveness(f *LFunc) {
	for _, b := range f.Blocks {
		computeLocalLiveness(b)
	}

	changed := true
	for changed {
		changed = false
		for i := len(f.Blocks) - 1; i >= 0; i-- {
			b := f.Blocks[i]
			out := map[*LInterval]bool{}
			for _, s := range b.Succs {
				for iv := range s.LiveIn {
					out[iv] = true
				}
			}
			if !sameSet(out, b.LiveOut) {
				b.LiveOut = out
				changed = true
			}
			in := map[*LInterval]bool{}
			for iv := range b.LiveGen {
				in[iv] = true
			}
			for iv := range b.LiveOut {
				if !b.LiveKill[iv] {
					in[iv] = true
				}
			}
			if !sameSet(in, b.LiveIn) {
				b.LiveIn = in
				changed = true
			}
		}
	}
}

// computeLocalLiveness scans one block's instructions in order: a use
// of an interval not yet killed in this block is a gen; a result is a
// kill (the definition starts the value's life inside this block).
func computeLocalLiveness(b *LBlock) {
	for _, in := range b.Instrs {
		for _, use := range in.Inputs {
			if !b.LiveKill[use.Interval] {
				b.LiveGen[use.Interval] = true
			}
		}
		for _, sc := range in.Scratch {
			b.LiveKill[sc.Interval] = true
		}
		if in.Result != nil {
			b.LiveKill[in.Result.Interval] = true
		}
	}
}

func sameSet(a, b map[*LInterval]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
