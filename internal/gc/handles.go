package gc

import "candor/internal/heap"

// Handles is the persistent-handle table: a C++ embedder's
// Candor::Handle keeps an entry here for as long as it's alive, so
// the value it wraps is always treated as a GC root regardless of
// whether any Candor-visible context still references it.
type Handles struct {
	next  int
	items map[int]*heap.Address
}

// NewHandles returns an empty persistent-handle table.
func NewHandles() *Handles {
	return &Handles{items: make(map[int]*heap.Address)}
}

// Add registers cell as persistent, returning a handle id Remove
// later takes back.
func (h *Handles) Add(cell *heap.Address) int {
	h.next++
	h.items[h.next] = cell
	return h.next
}

// Remove unregisters id; the value it held stops being a root on the
// next collection.
func (h *Handles) Remove(id int) { delete(h.items, id) }

// Len reports how many handles are currently registered.
func (h *Handles) Len() int { return len(h.items) }

// Roots returns a RootSlot for every currently registered handle, the
// shape Collect seeds its grey queue with.
func (h *Handles) Roots() []RootSlot {
	out := make([]RootSlot, 0, len(h.items))
	for _, cell := range h.items {
		out = append(out, CellSlot{Cell: cell})
	}
	return out
}

// WeakCallback is invoked once, at most, when the collector determines
// a weak handle's referent did not survive a collection. The argument
// is the address the handle held just before the cycle ran; by the
// time the callback runs the object has already been reclaimed and
// must not be dereferenced.
type WeakCallback func(referent heap.Address)

type weakEntry struct {
	cell *heap.Address
	cb   WeakCallback
	live bool
}

// WeakHandles is the weak-handle table (spec.md's "WeakHandle"):
// unlike Handles, a registered cell is never itself treated as a
// root. Probe is run once per cycle, after evacuation but before the
// from-space pages are discarded, so it can still read the from-space
// mark bit the evacuation pass left behind.
type WeakHandles struct {
	entries []*weakEntry
}

// NewWeakHandles returns an empty weak-handle table.
func NewWeakHandles() *WeakHandles { return &WeakHandles{} }

// Add registers cell as weak, invoking cb exactly once the first time
// a collection finds it unreachable. Add returns a token Remove can
// later use to unregister the handle before that happens.
func (w *WeakHandles) Add(cell *heap.Address, cb WeakCallback) int {
	w.entries = append(w.entries, &weakEntry{cell: cell, cb: cb, live: true})
	return len(w.entries) - 1
}

// Remove unregisters the handle at token, a no-op if it already fired.
func (w *WeakHandles) Remove(token int) {
	if token < 0 || token >= len(w.entries) {
		return
	}
	w.entries[token].live = false
}

// Len reports how many weak handles are still registered and have not
// yet fired.
func (w *WeakHandles) Len() int {
	n := 0
	for _, e := range w.entries {
		if e.live {
			n++
		}
	}
	return n
}
