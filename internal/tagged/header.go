package tagged

import "candor/internal/heap"

// Header field offsets, interior form (k*W-1), relative to a boxed
// pointer p whose header starts at p-1. See spec.md §3 "Heap object
// header (boxed)".
const (
	offTag     = -1                // 0*W - 1
	offRepr    = 0                 // (0*W-1) + 1
	offGen     = 1                 // (0*W-1) + 2
	offMark    = heap.WordSize - 2 // 1*W - 2
	offForward = heap.WordSize - 1 // 1*W - 1
	HeaderSize = 2 * heap.WordSize // two words: {tag,repr,gen,reserved,mark} + {forward}
)

// PayloadOffset returns the interior offset of the k-th word-sized
// payload slot following the header.
func PayloadOffset(k int) int {
	return (2+k)*heap.WordSize - 1
}

func headerStart(p heap.Address) heap.Address { return p.Plus(-1) }

// TagOf reads the tag byte of the boxed object at p.
func TagOf(h heap.Memory, p heap.Address) Tag {
	return Tag(h.ReadByte(p.Plus(offTag)))
}

// SetTag writes the tag byte of the boxed object at p.
func SetTag(h heap.Memory, p heap.Address, t Tag) {
	h.WriteByte(p.Plus(offTag), byte(t))
}

// ReprOf reads the representation byte (subtype) of the object at p.
func ReprOf(h heap.Memory, p heap.Address) byte {
	return h.ReadByte(p.Plus(offRepr))
}

// SetRepr writes the representation byte of the object at p.
func SetRepr(h heap.Memory, p heap.Address, v byte) {
	h.WriteByte(p.Plus(offRepr), v)
}

// GenerationOf reads the survival-count byte of the object at p.
func GenerationOf(h heap.Memory, p heap.Address) byte {
	return h.ReadByte(p.Plus(offGen))
}

// SetGeneration writes the survival-count byte of the object at p.
func SetGeneration(h heap.Memory, p heap.Address, v byte) {
	h.WriteByte(p.Plus(offGen), v)
}

// IsMarked reports whether the object at p has already been evacuated
// this cycle.
func IsMarked(h heap.Memory, p heap.Address) bool {
	return h.ReadByte(p.Plus(offMark)) != 0
}

// SetMarked sets or clears the GC mark bit of the object at p.
func SetMarked(h heap.Memory, p heap.Address, marked bool) {
	var v byte
	if marked {
		v = 1
	}
	h.WriteByte(p.Plus(offMark), v)
}

// ForwardOf reads the forward pointer left behind after evacuation.
func ForwardOf(h heap.Memory, p heap.Address) heap.Address {
	return h.ReadWord(p.Plus(offForward))
}

// SetForward writes the forward pointer of the from-space copy at p.
func SetForward(h heap.Memory, p heap.Address, to heap.Address) {
	h.WriteWord(p.Plus(offForward), to)
}

// writeHeader initializes the tag/repr/gen/mark fields of a freshly
// allocated object; the forward-pointer word is left zeroed.
func writeHeader(h *heap.Heap, p heap.Address, tag Tag, repr byte) {
	SetTag(h, p, tag)
	SetRepr(h, p, repr)
	SetGeneration(h, p, 0)
	SetMarked(h, p, false)
	h.WriteWord(p.Plus(offForward), heap.Address(0))
}
