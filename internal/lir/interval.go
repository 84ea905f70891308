package lir

// Range is a half-open live subrange `[Start, End)` on the linear
// instruction axis.
type Range struct {
	Start, End LInstrID
}

func (r Range) intersects(o Range) bool {
	return r.Start < o.End && o.Start < r.End
}

// IntervalUse records one use position within an interval's live
// range, annotated with the kind of location the allocator may place
// it in.
type IntervalUse struct {
	Pos  LInstrID
	Kind UseKind
}

// LInterval is the allocator's unit: a numbered live range, built as
// one or more disjoint Ranges, carrying the list of uses within it.
// Splitting an interval produces a Child covering the tail; Parent
// links back so spill-slot assignment can see the whole family.
type LInterval struct {
	ID     LIntervalID
	Ranges []Range // kept in ascending Start order
	Uses   []IntervalUse

	Fixed    bool // true for one of the NumPhysRegs physical-register intervals
	FixedReg int  // meaningful only when Fixed

	Reg       int // assigned physical register, -1 until allocated
	SpillSlot int // assigned stack slot, -1 until spilled

	Parent   *LInterval
	Children []*LInterval
}

// NoRegister and NoSpillSlot mark an interval not yet (or never)
// assigned a location of that kind.
const (
	NoRegister  = -1
	NoSpillSlot = -1
)

// From returns the position of the interval's first range.
func (iv *LInterval) From() LInstrID {
	if len(iv.Ranges) == 0 {
		return NoLInstrID
	}
	return iv.Ranges[0].Start
}

// To returns the position just past the interval's last range.
func (iv *LInterval) To() LInstrID {
	if len(iv.Ranges) == 0 {
		return NoLInstrID
	}
	return iv.Ranges[len(iv.Ranges)-1].End
}

// CoversPos reports whether pos falls inside any of the interval's
// ranges.
func (iv *LInterval) CoversPos(pos LInstrID) bool {
	for _, r := range iv.Ranges {
		if pos >= r.Start && pos < r.End {
			return true
		}
	}
	return false
}

// IntersectsWith returns the earliest position at which iv and other
// overlap, or NoLInstrID if they never do.
func (iv *LInterval) IntersectsWith(other *LInterval) LInstrID {
	best := NoLInstrID
	for _, a := range iv.Ranges {
		for _, b := range other.Ranges {
			if a.intersects(b) {
				start := a.Start
				if b.Start > start {
					start = b.Start
				}
				if best == NoLInstrID || start < best {
					best = start
				}
			}
		}
	}
	return best
}

// AddRange merges in `[start, end)`, coalescing with the existing
// range at the front if they touch or overlap — interval building
// walks the block list backwards so ranges are naturally added in
// descending order, and keeping the list normalized as it grows keeps
// every later lookup (CoversPos, IntersectsWith) a simple scan.
func (iv *LInterval) AddRange(start, end LInstrID) {
	if start >= end {
		return
	}
	if len(iv.Ranges) > 0 {
		front := &iv.Ranges[0]
		if start <= front.End {
			if start < front.Start {
				front.Start = start
			}
			if end > front.End {
				front.End = end
			}
			return
		}
	}
	iv.Ranges = append([]Range{{Start: start, End: end}}, iv.Ranges...)
}

// AddUse records a use at pos with the given kind, and extends the
// interval's first range back to pos if pos precedes it — an operand
// is live from its own definition up to (at least) the use.
func (iv *LInterval) AddUse(pos LInstrID, kind UseKind) {
	iv.Uses = append(iv.Uses, IntervalUse{Pos: pos, Kind: kind})
	if len(iv.Ranges) == 0 {
		iv.Ranges = append(iv.Ranges, Range{Start: pos, End: pos.Next()})
		return
	}
	if pos < iv.Ranges[0].Start {
		iv.Ranges[0].Start = pos
	}
}

// NextUseAfter returns the position of the first use at or after
// `from` requiring `kind` (or stricter), used by AllocateBlockedReg to
// compute use_pos / block_pos. It returns NoLInstrID if there is none.
func (iv *LInterval) NextUseAfter(from LInstrID, kind UseKind) LInstrID {
	for _, u := range iv.Uses {
		if u.Pos >= from && u.Kind >= kind {
			return u.Pos
		}
	}
	return NoLInstrID
}

// Root returns the original, unsplit interval this one descends from.
func (iv *LInterval) Root() *LInterval {
	for iv.Parent != nil && iv.Parent != iv {
		iv = iv.Parent
	}
	return iv
}

// ChildAt returns whichever member of iv's split family (iv's root,
// or one of its descendants) covers pos, or nil if none does — used
// by data-flow resolution to find which half of a split interval is
// live at a given edge.
func (iv *LInterval) ChildAt(pos LInstrID) *LInterval {
	root := iv.Root()
	var find func(*LInterval) *LInterval
	find = func(cur *LInterval) *LInterval {
		if cur.CoversPos(pos) {
			return cur
		}
		for _, c := range cur.Children {
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	return find(root)
}

// SplitAt divides iv into iv (covering up to pos) and a new child
// covering pos onward, moving every range and use at or after pos into
// the child. SplitAt uses pos as given (regalloc rounds it down to an
// even id before calling): the prefix keeps everything strictly before
// the split.
func (iv *LInterval) SplitAt(pos LInstrID) *LInterval {
	child := &LInterval{Reg: NoRegister, SpillSlot: NoSpillSlot, Parent: iv}
	if iv.Parent != nil {
		child.Parent = iv.Parent
	} else {
		child.Parent = iv
	}
	iv.Children = append(iv.Children, child)

	var keptRanges, movedRanges []Range
	for _, r := range iv.Ranges {
		switch {
		case r.End <= pos:
			keptRanges = append(keptRanges, r)
		case r.Start >= pos:
			movedRanges = append(movedRanges, r)
		default:
			keptRanges = append(keptRanges, Range{Start: r.Start, End: pos})
			movedRanges = append(movedRanges, Range{Start: pos, End: r.End})
		}
	}
	iv.Ranges, child.Ranges = keptRanges, movedRanges

	var keptUses, movedUses []IntervalUse
	for _, u := range iv.Uses {
		if u.Pos < pos {
			keptUses = append(keptUses, u)
		} else {
			movedUses = append(movedUses, u)
		}
	}
	iv.Uses, child.Uses = keptUses, movedUses
	return child
}
