package gc_test

import (
	"context"
	"testing"

	"candor/internal/gc"
	"candor/internal/heap"
	"candor/internal/tagged"
	"candor/internal/testkit"
)

func newTestHeap() *heap.Heap {
	return heap.New(heap.DefaultPageSize, 1<<20)
}

// TestCollectSurvivesReachableObject builds a two-level object graph
// rooted in a Go-side cell, runs a full collection, and checks the
// graph is still intact at its (necessarily different) post-GC
// addresses.
func TestCollectSurvivesReachableObject(t *testing.T) {
	h := newTestHeap()
	ctx := tagged.AllocContext(h, heap.NilAddress, 1)
	child := tagged.AllocNumber(h, 42)
	tagged.SetContextSlot(h, ctx, 0, child)

	root := ctx
	c := gc.New(h)
	stats := c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})

	if stats.NewSurvived == 0 && stats.OldSurvived == 0 {
		t.Fatalf("expected at least one survivor, got %+v", stats)
	}
	if err := testkit.CheckTagWellFormedness(root, true); err != nil {
		t.Fatal(err)
	}
	if tagged.TagOf(h, root) != tagged.TagContext {
		t.Fatalf("root lost its tag after collection: %s", tagged.TagOf(h, root))
	}
	movedChild := tagged.ContextSlot(h, root, 0)
	if tagged.TagOf(h, movedChild) != tagged.TagNumber {
		t.Fatalf("child lost its tag after collection: %s", tagged.TagOf(h, movedChild))
	}
	if tagged.NumberValue(h, movedChild) != 42 {
		t.Fatalf("child value corrupted: got %v", tagged.NumberValue(h, movedChild))
	}
}

// TestCollectIdempotentWithNoMutation verifies invariant 2: running GC
// twice back to back with nothing allocated in between leaves both
// spaces at the same size.
func TestCollectIdempotentWithNoMutation(t *testing.T) {
	h := newTestHeap()
	root := tagged.AllocContext(h, heap.NilAddress, 2)
	tagged.SetContextSlot(h, root, 0, tagged.AllocString(h, "hello"))
	tagged.SetContextSlot(h, root, 1, tagged.AllocBoolean(h, true))

	c := gc.New(h)
	c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})
	before := testkit.SpaceSnapshot{NewSize: h.New.Size(), OldSize: h.Old.Size()}

	c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})
	after := testkit.SpaceSnapshot{NewSize: h.New.Size(), OldSize: h.Old.Size()}

	if err := testkit.CheckGCIdempotence(before, after); err != nil {
		t.Fatal(err)
	}
}

// TestCollectReclaimsUnreachable checks that an object with no root
// path does not survive a collection: after GC the heap's new space
// shrinks to just the still-reachable object.
func TestCollectReclaimsUnreachable(t *testing.T) {
	h := newTestHeap()
	root := tagged.AllocNumber(h, 1)
	tagged.AllocString(h, "garbage, nothing points at this")

	c := gc.New(h)
	c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})

	survivorSize := h.New.Size() + h.Old.Size()
	wantSize := uint64(tagged.Size(h, tagged.TagNumber, root))
	if survivorSize != wantSize {
		t.Fatalf("garbage not reclaimed: live size after GC = %d, want %d", survivorSize, wantSize)
	}
}

// TestPromotionAfterSurvivalThreshold checks an object crosses into
// old space once it has survived MinOldSpaceGeneration consecutive
// minor collections.
func TestPromotionAfterSurvivalThreshold(t *testing.T) {
	h := newTestHeap()
	root := tagged.AllocNumber(h, 7)

	c := gc.New(h)
	c.MinOldSpaceGeneration = 2
	for i := 0; i < 2; i++ {
		c.Collect(context.Background(), heap.GCNewSpace, []gc.RootSlot{gc.CellSlot{Cell: &root}})
	}

	if h.Old.Size() == 0 {
		t.Fatalf("expected survivor to be promoted into old space after %d collections", c.MinOldSpaceGeneration)
	}
	if tagged.NumberValue(h, root) != 7 {
		t.Fatalf("promoted value corrupted: got %v", tagged.NumberValue(h, root))
	}
}

// TestWeakHandleFiresOnceWhenUnreachable checks a weak handle's
// callback runs exactly once when its referent is not rooted, and
// never runs again for a handle already removed.
func TestWeakHandleFiresOnceWhenUnreachable(t *testing.T) {
	h := newTestHeap()
	target := tagged.AllocString(h, "ephemeral")

	c := gc.New(h)
	fired := 0
	var lastFreed heap.Address
	c.Weak.Add(&target, func(referent heap.Address) {
		fired++
		lastFreed = referent
	})

	root := tagged.AllocNumber(h, 0)
	c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})

	if fired != 1 {
		t.Fatalf("weak callback fired %d times, want 1", fired)
	}
	if lastFreed != target {
		t.Fatalf("weak callback saw %s, want the pre-GC address %s", lastFreed, target)
	}
	if c.Weak.Len() != 0 {
		t.Fatalf("weak handle table still has %d live entries after firing", c.Weak.Len())
	}

	// a second collection must not fire the callback again
	c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})
	if fired != 1 {
		t.Fatalf("weak callback fired again on a later collection: now %d", fired)
	}
}

// TestWeakHandleSurvivesWhileReachable checks a weak handle whose
// referent is also reachable through a strong root is rewritten to
// the post-GC address, not freed.
func TestWeakHandleSurvivesWhileReachable(t *testing.T) {
	h := newTestHeap()
	root := tagged.AllocContext(h, heap.NilAddress, 1)
	target := tagged.AllocString(h, "kept alive")
	tagged.SetContextSlot(h, root, 0, target)

	c := gc.New(h)
	fired := 0
	c.Weak.Add(&target, func(heap.Address) { fired++ })

	c.Collect(context.Background(), heap.GCBoth, []gc.RootSlot{gc.CellSlot{Cell: &root}})

	if fired != 0 {
		t.Fatalf("weak callback fired for a reachable object")
	}
	if target != tagged.ContextSlot(h, root, 0) {
		t.Fatalf("weak cell %s does not match the surviving strong reference %s", target, tagged.ContextSlot(h, root, 0))
	}
}

// TestPersistentHandleKeepsValueAliveWithNoOtherRoot checks a value
// reachable only through the persistent-handle table survives GC.
func TestPersistentHandleKeepsValueAliveWithNoOtherRoot(t *testing.T) {
	h := newTestHeap()
	value := tagged.AllocString(h, "held by an embedder handle")

	c := gc.New(h)
	id := c.Persistent.Add(&value)
	t.Cleanup(func() { c.Persistent.Remove(id) })

	c.Collect(context.Background(), heap.GCBoth, nil)

	if tagged.TagOf(h, value) != tagged.TagString {
		t.Fatalf("persistent handle's value was reclaimed")
	}
}

// TestOldToNewPointerSurvivesMinorCollection exercises the
// write-barrier-free design: an old-space context's slot pointing
// into new space must still be discovered and evacuated by a
// new-space-only collection.
func TestOldToNewPointerSurvivesMinorCollection(t *testing.T) {
	h := newTestHeap()
	oldCtx := tagged.AllocContext(h, heap.NilAddress, 1)

	c := gc.New(h)
	c.MinOldSpaceGeneration = 1
	// promote oldCtx into old space with one minor collection, keeping
	// it rooted throughout.
	c.Collect(context.Background(), heap.GCNewSpace, []gc.RootSlot{gc.CellSlot{Cell: &oldCtx}})
	if h.Old.Size() == 0 {
		t.Fatalf("setup failed: context did not promote to old space")
	}

	child := tagged.AllocNumber(h, 99)
	tagged.SetContextSlot(h, oldCtx, 0, child)

	// root nothing directly; child is only reachable via the
	// old-space context's slot.
	c.Collect(context.Background(), heap.GCNewSpace, []gc.RootSlot{gc.CellSlot{Cell: &oldCtx}})

	moved := tagged.ContextSlot(h, oldCtx, 0)
	if tagged.TagOf(h, moved) != tagged.TagNumber || tagged.NumberValue(h, moved) != 99 {
		t.Fatalf("old-to-new pointer not kept alive across minor collection")
	}
}
