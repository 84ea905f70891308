package candor

import (
	"encoding/binary"

	"candor/internal/heap"
	"candor/internal/tagged"
)

// CWrapper is the base interface for native Go objects that present
// themselves to Candor code as an opaque CData value, per spec.md
// §6's "base class for native objects ... with a destructor invoked
// from a weak callback". Candor script cannot read a CWrapper's
// fields directly — it can only hold the CData value and pass it back
// to host-provided functions that know what it wraps.
type CWrapper interface {
	// Destroy runs once, when the Isolate's collector determines the
	// CData value wrapping this CWrapper is no longer reachable.
	Destroy()
}

// NewCWrapper allocates a CData value wrapping impl: a Go-side
// registry entry keyed by a small integer stored in the CData's own
// byte payload, since a live Go pointer cannot be embedded in heap
// bytes the collector might relocate. A weak handle on the CData value
// calls impl.Destroy() exactly once the first time a collection finds
// it unreachable, then frees the registry slot.
func NewCWrapper(iso *Isolate, impl CWrapper) Value {
	id := iso.nextCData
	iso.nextCData++
	iso.cwrappers[id] = impl

	addr := tagged.AllocCData(iso.engine.Heap, 4)
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(id))
	tagged.SetCDataBytes(iso.engine.Heap, addr, buf[:])

	cell := addr
	iso.engine.GC.Weak.Add(&cell, func(referent heap.Address) {
		w, ok := iso.cwrappers[id]
		if !ok {
			return
		}
		delete(iso.cwrappers, id)
		w.Destroy()
	})

	return valueOf(iso, addr)
}

// CWrapperOf resolves v back to the Go CWrapper it was constructed
// from, or nil if v is not a live CData value this Isolate allocated
// via NewCWrapper.
func CWrapperOf(v Value) CWrapper {
	if !v.IsCData() {
		return nil
	}
	b := tagged.CDataBytes(v.iso.engine.Heap, v.addr)
	if len(b) < 4 {
		return nil
	}
	id := int(binary.LittleEndian.Uint32(b))
	return v.iso.cwrappers[id]
}
