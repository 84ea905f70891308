package gc

import "candor/internal/heap"

// RootSlot is one mutable location a collection pass must rewrite if
// the value it holds gets evacuated: a grey-queue entry pairs a value
// with exactly this, per spec.md §4.3's "(value, slot_address)" pairs.
// Candor's addresses double as page-relative pointers (internal/heap),
// so a heap-resident field's slot is itself a heap.Address; a Go-side
// location (an interpreter register, a spill cell on a simulated
// frame) is not, hence the indirection through Get/Set rather than a
// bare heap.Address.
type RootSlot interface {
	Get() heap.Address
	Set(heap.Address)
}

// HeapSlot adapts a heap-resident field — a context slot, an object's
// map pointer, a map's key or value cell — into a RootSlot.
type HeapSlot struct {
	Mem  heap.Memory
	Addr heap.Address
}

func (s HeapSlot) Get() heap.Address  { return s.Mem.ReadWord(s.Addr) }
func (s HeapSlot) Set(v heap.Address) { s.Mem.WriteWord(s.Addr, v) }

// CellSlot adapts a Go-side location — a *heap.Address backing an
// interpreter register or a simulated stack frame's spill slot — into
// a RootSlot, used by internal/exec to hand the collector its
// non-heap roots at a safe point.
type CellSlot struct {
	Cell *heap.Address
}

func (s CellSlot) Get() heap.Address  { return *s.Cell }
func (s CellSlot) Set(v heap.Address) { *s.Cell = v }

// Slots adapts a slice of Go-side cells in one call, the shape
// internal/exec's simulated register file and spill area naturally
// produce.
func Slots(cells []*heap.Address) []RootSlot {
	out := make([]RootSlot, len(cells))
	for i, c := range cells {
		out[i] = CellSlot{Cell: c}
	}
	return out
}
