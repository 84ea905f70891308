// Package gc implements Candor's semispace copying collector
// (spec.md §4.3): Cheney-style evacuation driven by a FIFO grey
// queue of (value, slot) pairs, generational promotion into old space
// at kMinOldSpaceGeneration survivals, and bookkeeping for the
// persistent and weak handle tables an embedder's Candor::Handle and
// Candor::WeakHandle types are backed by.
//
// Candor's address space has no real stack or registers to walk with
// a frame pointer, so the sentinel-chasing root scan spec.md §4.3
// describes is internal/exec's job: it hands the collector the set of
// RootSlot values a pass needs (simulated register file, spill
// slots), and the collector treats every persistent handle and every
// slot reachable from there as the root set.
//
// Without a write barrier, a minor collection cannot know which old
// objects hold references into new space, so it conservatively treats
// every object currently allocated in old space as a root holder; a
// major collection returns the favor and treats every object in new
// space the same way. Neither pass moves the space it isn't targeting,
// so this only risks retaining slightly more garbage than a precise
// remembered set would, never under-collecting.
package gc

import (
	"context"
	"fmt"

	"candor/internal/config"
	"candor/internal/heap"
	"candor/internal/tagged"
	"candor/internal/trace"
)

// defaultMinOldSpaceGeneration mirrors internal/tagged's unexported
// kMinOldSpaceGeneration (spec.md §4.3) and is used when a
// Collector is built with New rather than NewFromConfig.
const defaultMinOldSpaceGeneration = 5

// Stats summarizes one Collect call, reported back to the caller.
type Stats struct {
	NewSurvived int
	Promoted    int
	OldSurvived int
	WeakFreed   int
}

func (s *Stats) merge(o Stats) {
	s.NewSurvived += o.NewSurvived
	s.Promoted += o.Promoted
	s.OldSurvived += o.OldSurvived
	s.WeakFreed += o.WeakFreed
}

// Collector runs evacuating collections over a single heap.Heap.
type Collector struct {
	Heap       *heap.Heap
	Persistent *Handles
	Weak       *WeakHandles
	Tracer     trace.Tracer

	// MinOldSpaceGeneration is the survival count at which an
	// evacuated object promotes into old space, normally sourced from
	// candor.toml's [gc] table via NewFromConfig.
	MinOldSpaceGeneration byte

	grey []RootSlot
}

// New returns a Collector bound to h with empty handle tables, no
// tracer, and the spec-default promotion threshold.
func New(h *heap.Heap) *Collector {
	return &Collector{
		Heap:                  h,
		Persistent:            NewHandles(),
		Weak:                  NewWeakHandles(),
		MinOldSpaceGeneration: defaultMinOldSpaceGeneration,
	}
}

// NewFromConfig is New with the promotion threshold taken from a
// loaded candor.toml's [gc] table instead of the hardcoded default.
func NewFromConfig(h *heap.Heap, cfg config.GCConfig) *Collector {
	c := New(h)
	c.MinOldSpaceGeneration = cfg.MinOldSpaceGeneration
	return c
}

// Collect runs one collection cycle over target; heap.GCNone is
// treated as GCBoth. It does not read internal/heap's needs_gc word,
// and clears it once the cycle is done. roots are the caller's non-persistent, non-heap-resident
// locations — typically the live interpreter registers and spill
// slots at the safe point that triggered this call.
func (c *Collector) Collect(ctx context.Context, target heap.GCTarget, roots []RootSlot) Stats {
	if len(c.grey) != 0 {
		panic("gc: Collect invoked with a non-empty grey queue, this is a bug")
	}
	if target == heap.GCNone {
		target = heap.GCBoth
	}

	span := trace.Begin(c.tracer(), trace.ScopePass, "gc", trace.CurrentSpan(ctx).SpanID)

	var stats Stats
	if target == heap.GCNewSpace || target == heap.GCBoth {
		stats.merge(c.collectNew(roots))
	}
	if target == heap.GCOldSpace || target == heap.GCBoth {
		stats.merge(c.collectOld(roots))
	}
	c.Heap.ClearGCRequest()

	span.WithExtra("survived", fmt.Sprintf("%d", stats.NewSurvived+stats.OldSurvived)).
		WithExtra("promoted", fmt.Sprintf("%d", stats.Promoted)).
		End(fmt.Sprintf("weak_freed=%d", stats.WeakFreed))

	return stats
}

func (c *Collector) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return trace.Nop
}

// collectNew evacuates every reachable new-space object into a fresh
// to-space, promoting survivors whose generation has crossed
// kMinOldSpaceGeneration directly into old space, then swaps the
// to-space in as the heap's new space.
func (c *Collector) collectNew(roots []RootSlot) Stats {
	h := c.Heap
	from := h.New
	fromIDs := from.PageIDs()
	to := h.NewScratchSpace("new-to", 0)

	c.seedRoots(roots)
	c.seedSpaceAsRoots(h.Old)

	var stats Stats
	seenOutside := make(map[heap.Address]bool)
	c.drain(from, fromIDs, to, h.Old, true, seenOutside, &stats)

	freed := c.Weak.probe(h, fromIDs)
	stats.WeakFreed += freed

	h.New.Swap(to)
	h.New.SetLimitFromLiveSize()
	to.Reset()
	return stats
}

// collectOld compacts old space by evacuating every reachable old
// object into a fresh to-space, leaving new space untouched (its
// addresses do not move, so slots pointing into it are left alone).
func (c *Collector) collectOld(roots []RootSlot) Stats {
	h := c.Heap
	from := h.Old
	fromIDs := from.PageIDs()
	to := h.NewScratchSpace("old-to", 0)

	c.seedRoots(roots)
	c.seedSpaceAsRoots(h.New)

	var stats Stats
	seenOutside := make(map[heap.Address]bool)
	c.drain(from, fromIDs, to, to, false, seenOutside, &stats)

	freed := c.Weak.probe(h, fromIDs)
	stats.WeakFreed += freed

	h.Old.Swap(to)
	h.Old.SetLimitFromLiveSize()
	to.Reset()
	return stats
}

func (c *Collector) seedRoots(roots []RootSlot) {
	c.grey = append(c.grey, c.Persistent.Roots()...)
	c.grey = append(c.grey, roots...)
}

// seedSpaceAsRoots enqueues the outgoing slots of every object
// currently allocated in s, the conservative stand-in for a real
// remembered set described in the package doc comment.
func (c *Collector) seedSpaceAsRoots(s *heap.Space) {
	for _, b := range s.PageBounds() {
		addr := b.Start
		for addr != b.End {
			tag := tagged.TagOf(c.Heap, addr)
			size := tagged.Size(c.Heap, tag, addr)
			for _, slotAddr := range tagged.OutgoingSlots(c.Heap, tag, addr) {
				c.grey = append(c.grey, HeapSlot{Mem: c.Heap, Addr: slotAddr})
			}
			addr = addr.Plus(evenRound(size))
		}
	}
}

// drain processes the grey queue to exhaustion, evacuating every
// not-yet-marked value found inside from (whose page ids are fromIDs)
// into to, or into promoteTo once a survivor's generation reaches
// kMinOldSpaceGeneration and allowPromotion is set.
func (c *Collector) drain(from *heap.Space, fromIDs map[uint32]bool, to, promoteTo *heap.Space, allowPromotion bool, seenOutside map[heap.Address]bool, stats *Stats) {
	for len(c.grey) > 0 {
		slot := c.grey[0]
		c.grey = c.grey[1:]
		c.evacuate(slot, fromIDs, to, promoteTo, allowPromotion, seenOutside, stats)
	}
}

func (c *Collector) evacuate(slot RootSlot, fromIDs map[uint32]bool, to, promoteTo *heap.Space, allowPromotion bool, seenOutside map[heap.Address]bool, stats *Stats) {
	h := c.Heap
	v := slot.Get()
	if heap.IsUnboxed(v) || heap.IsNil(v) {
		return
	}
	tag := tagged.TagOf(h, v)
	if tag == tagged.TagCode {
		return
	}
	if !fromIDs[v.PageID()] {
		// v already lives outside the space this pass is evacuating
		// (a stable old-space address during a minor collection, or a
		// stable new-space address during a major one). Its own
		// address never changes, but it may hold pointers into the
		// space that is moving, so recurse into its children once.
		if seenOutside[v] {
			return
		}
		seenOutside[v] = true
		for _, slotAddr := range tagged.OutgoingSlots(h, tag, v) {
			c.grey = append(c.grey, HeapSlot{Mem: h, Addr: slotAddr})
		}
		return
	}
	if tagged.IsMarked(h, v) {
		slot.Set(tagged.ForwardOf(h, v))
		return
	}

	size := tagged.Size(h, tag, v)
	gen := tagged.GenerationOf(h, v)
	promote := allowPromotion && gen+1 >= c.MinOldSpaceGeneration

	var dst heap.Address
	var dstMem heap.Memory
	if promote {
		dst = promoteTo.Alloc(uint32(size))
		dstMem = promoteTo
		stats.Promoted++
	} else {
		dst = to.Alloc(uint32(size))
		dstMem = to
		if to == promoteTo {
			stats.OldSurvived++
		} else {
			stats.NewSurvived++
		}
	}

	raw := h.ReadBytes(v.Plus(-1), size)
	dstMem.WriteBytes(dst.Plus(-1), raw)
	tagged.SetGeneration(dstMem, dst, gen+1)
	tagged.SetMarked(dstMem, dst, false)
	tagged.SetForward(dstMem, dst, heap.Address(0))

	tagged.SetMarked(h, v, true)
	tagged.SetForward(h, v, dst)
	slot.Set(dst)

	for _, slotAddr := range tagged.OutgoingSlots(dstMem, tag, dst) {
		c.grey = append(c.grey, HeapSlot{Mem: dstMem, Addr: slotAddr})
	}
}

// probe checks every still-registered weak handle against fromIDs,
// the set of page ids about to be discarded: a handle whose cell
// still points into one of them did not survive, so its callback
// fires and the entry is dropped; otherwise the cell is left alone if
// it was never in the collected space, or rewritten to its forward
// address if it was marked live.
func (w *WeakHandles) probe(h *heap.Heap, fromIDs map[uint32]bool) int {
	freed := 0
	for _, e := range w.entries {
		if !e.live {
			continue
		}
		v := *e.cell
		if heap.IsUnboxed(v) || heap.IsNil(v) || !fromIDs[v.PageID()] {
			continue
		}
		if tagged.IsMarked(h, v) {
			*e.cell = tagged.ForwardOf(h, v)
			continue
		}
		e.live = false // unregistered in place so Add's tokens stay valid
		e.cb(v)
		freed++
	}
	return freed
}

// evenRound mirrors internal/heap.Page.tryAlloc's bump rounding, so a
// full-space walk over already-allocated objects lands on the same
// boundaries the allocator used.
func evenRound(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}
