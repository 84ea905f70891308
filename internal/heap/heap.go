package heap

import (
	"encoding/binary"
	"fmt"
)

// GCTarget selects which space(s) a collection pass should cover, the
// value of the "needs_gc" word emitted code reads at safe points.
type GCTarget uint8

const (
	GCNone GCTarget = iota
	GCNewSpace
	GCOldSpace
	GCBoth
)

// Memory is the byte-addressable read/write surface both Heap and
// Space expose. internal/tagged's accessors take a Memory so the
// collector can read and write object fields on a scratch to-space
// that has not yet been swapped into a Heap's New or Old field.
type Memory interface {
	ReadByte(Address) byte
	WriteByte(Address, byte)
	ReadWord(Address) Address
	WriteWord(Address, Address)
	ReadBytes(Address, int) []byte
	WriteBytes(Address, []byte)
}

// Heap owns the new-space and old-space semispace pair. It provides
// byte-addressable read/write over whichever page currently backs an
// Address, modeling the memory a real JIT would dereference directly.
type Heap struct {
	New *Space
	Old *Space

	nextPageID uint32
	needsGC    GCTarget
}

// New constructs a Heap with the given page size and initial per-space
// size limits.
func New(pageSize uint32, initialLimit uint64) *Heap {
	h := &Heap{}
	h.New = newSpace("new", pageSize, &h.nextPageID, initialLimit)
	h.Old = newSpace("old", pageSize, &h.nextPageID, initialLimit*4)
	return h
}

// NeedsGC returns the pending collection target recorded by RequestGC
// or CheckAndRequestGC. No allocation path or function return reads
// it; a collection runs only when gc.Collector.Collect is called.
func (h *Heap) NeedsGC() GCTarget { return h.needsGC }

// RequestGC marks target as due for the next CheckGC safe point.
func (h *Heap) RequestGC(target GCTarget) { h.needsGC = target }

// ClearGCRequest resets needs_gc to none after a collection completes.
func (h *Heap) ClearGCRequest() { h.needsGC = GCNone }

// CheckAndRequestGC looks at both spaces' size limits and requests a
// collection if either has been exceeded; mirrors the check a real
// allocation fast path performs before falling back to the slow path.
func (h *Heap) CheckAndRequestGC() {
	n, o := h.New.NeedsGC(), h.Old.NeedsGC()
	switch {
	case n && o:
		h.needsGC = GCBoth
	case n:
		h.needsGC = GCNewSpace
	case o:
		h.needsGC = GCOldSpace
	}
}

func (h *Heap) pageFor(addr Address) (*Page, *Space) {
	id := addr.pageID()
	if p := h.New.pageByID(id); p != nil {
		return p, h.New
	}
	if p := h.Old.pageByID(id); p != nil {
		return p, h.Old
	}
	return nil, nil
}

func (h *Heap) mustPage(addr Address) *Page {
	p, _ := h.pageFor(addr)
	if p == nil {
		panic(fmt.Sprintf("heap: address %s does not belong to any live page", addr))
	}
	return p
}

// ReadByte returns the byte at addr.
func (h *Heap) ReadByte(addr Address) byte {
	p := h.mustPage(addr)
	return p.data[addr.offset()]
}

// WriteByte stores v at addr.
func (h *Heap) WriteByte(addr Address, v byte) {
	p := h.mustPage(addr)
	p.data[addr.offset()] = v
}

// ReadWord reads a little-endian 8-byte word starting at addr,
// interpreted as an Address (a tagged value or a raw forward pointer).
func (h *Heap) ReadWord(addr Address) Address {
	p := h.mustPage(addr)
	off := addr.offset()
	return Address(binary.LittleEndian.Uint64(p.data[off : off+WordSize]))
}

// WriteWord stores v as a little-endian 8-byte word at addr.
func (h *Heap) WriteWord(addr Address, v Address) {
	p := h.mustPage(addr)
	off := addr.offset()
	binary.LittleEndian.PutUint64(p.data[off:off+WordSize], uint64(v))
}

// ReadBytes copies n bytes starting at addr.
func (h *Heap) ReadBytes(addr Address, n int) []byte {
	p := h.mustPage(addr)
	off := addr.offset()
	out := make([]byte, n)
	copy(out, p.data[off:off+uint32(n)])
	return out
}

// WriteBytes copies data into the page starting at addr.
func (h *Heap) WriteBytes(addr Address, data []byte) {
	p := h.mustPage(addr)
	off := addr.offset()
	copy(p.data[off:off+uint32(len(data))], data)
}

// Alloc bumps n bytes from the new space, the allocator's normal fast
// path. Callers needing old-space (promotion) allocation use AllocOld.
func (h *Heap) Alloc(n uint32) Address {
	addr := h.New.Alloc(n)
	h.CheckAndRequestGC()
	return addr
}

// AllocOld bumps n bytes directly from old space, used by the
// collector when promoting a sufficiently old object.
func (h *Heap) AllocOld(n uint32) Address {
	addr := h.Old.Alloc(n)
	h.CheckAndRequestGC()
	return addr
}

// NewScratchSpace builds a fresh, empty Space sharing this heap's
// page-id counter (so its pages never collide with New's or Old's),
// used by the collector as an evacuation target before Space.Swap
// installs it in place of New or Old.
func (h *Heap) NewScratchSpace(name string, limit uint64) *Space {
	return newSpace(name, h.New.pageSize, &h.nextPageID, limit)
}
