package candor

import "candor/internal/heap"

// Rooted is the constraint Handle[T] registers against: anything with
// a stable heap.Address to track as a GC root.
type Rooted interface {
	Address() heap.Address
}

// Handle is Candor::Handle: a scoped persistent root over a single
// value. While alive, the cell it wraps is walked as a GC root on
// every collection regardless of whether anything Candor-visible
// still references it — construction registers with the Isolate's
// persistent-handle table (internal/gc.Handles), Close unregisters.
//
// Go has no deterministic destructor, so where spec.md's "destruction
// removes" maps to a real C++ object going out of scope, here it maps
// to an explicit Close call; a Handle left open simply keeps its
// value alive for the Isolate's lifetime, the same leak a forgotten
// real Handle would cause.
type Handle[T Rooted] struct {
	iso  *Isolate
	cell heap.Address
	id   int
	wrap func(*Isolate, heap.Address) T

	weak      bool
	weakToken int
	reclaimed bool
}

// NewHandle registers v as a persistent root, returning a Handle that
// keeps it alive until Close (or Unref, once its weak callback fires).
func NewHandle[T Rooted](iso *Isolate, v T, wrap func(*Isolate, heap.Address) T) *Handle[T] {
	h := &Handle[T]{iso: iso, cell: v.Address(), wrap: wrap}
	h.id = iso.engine.GC.Persistent.Add(&h.cell)
	return h
}

// NewValueHandle is NewHandle specialized for a plain Value, the
// common case where T needs no extra downcast on re-wrap.
func NewValueHandle(iso *Isolate, v Value) *Handle[Value] {
	return NewHandle(iso, v, valueOf)
}

// Get returns the handle's current value, re-wrapped from whatever
// address the cell holds now — a copying collection may have moved it
// since the last call.
func (h *Handle[T]) Get() T { return h.wrap(h.iso, h.cell) }

// Unref demotes h from a persistent root to a weak one: the value it
// wraps may now be collected, and cb (if non-nil) fires exactly once
// when that happens, per spec.md §6's WeakHandle contract. Calling
// Unref on an already-weak handle is a no-op.
func (h *Handle[T]) Unref(cb func(T)) {
	if h.weak {
		return
	}
	h.iso.engine.GC.Persistent.Remove(h.id)
	h.weak = true
	h.weakToken = h.iso.engine.GC.Weak.Add(&h.cell, func(referent heap.Address) {
		h.reclaimed = true
		if cb != nil {
			cb(h.wrap(h.iso, referent))
		}
	})
}

// Close unregisters h, whether it is currently persistent or weak.
// After Close, Get's result is no longer meaningful.
func (h *Handle[T]) Close() {
	if h.weak {
		h.iso.engine.GC.Weak.Remove(h.weakToken)
		return
	}
	h.iso.engine.GC.Persistent.Remove(h.id)
}

// Reclaimed reports whether h is weak and its referent has already
// been collected.
func (h *Handle[T]) Reclaimed() bool { return h.reclaimed }
