// Package testkit holds assertion helpers for the testable properties
// of spec.md §8 (tag well-formedness, GC idempotence, pointer-rewrite
// completeness, linear-scan soundness, SSA form, phi arity). Each
// checker takes plain data rather than package-specific types so that
// internal/heap, internal/gc, internal/hir, internal/lir, and
// internal/regalloc tests can all depend on this package without
// import cycles.
package testkit

import (
	"fmt"

	"candor/internal/heap"
)

// CheckTagWellFormedness verifies invariant 1: after any allocation,
// boxed addresses have their tag bit set and unboxed integers have it
// clear.
func CheckTagWellFormedness(addr heap.Address, wantBoxed bool) error {
	boxed := !heap.IsUnboxed(addr)
	if boxed != wantBoxed {
		return fmt.Errorf("tag well-formedness: addr %s boxed=%v, want %v", addr, boxed, wantBoxed)
	}
	return nil
}

// SpaceSnapshot is the subset of heap.Space state invariant 2 compares
// across two collections run back to back with no intervening mutation.
type SpaceSnapshot struct {
	NewSize uint64
	OldSize uint64
}

// CheckGCIdempotence verifies invariant 2: running GC twice with no
// intervening mutation yields identical space sizes.
func CheckGCIdempotence(before, after SpaceSnapshot) error {
	if before.NewSize != after.NewSize {
		return fmt.Errorf("gc idempotence: new space size changed %d -> %d", before.NewSize, after.NewSize)
	}
	if before.OldSize != after.OldSize {
		return fmt.Errorf("gc idempotence: old space size changed %d -> %d", before.OldSize, after.OldSize)
	}
	return nil
}

// CheckPointerRewriteCompleteness verifies invariant 3: after GC, no
// reachable slot contains an address inside a page tagged stale (a
// from-space page reclaimed by the cycle just finished). pageIDOf
// extracts the page identifying portion of an address; staleIDs is the
// set of page ids that belonged to a from-space before the swap.
func CheckPointerRewriteCompleteness(slots []heap.Address, staleIDs map[uint32]bool, pageIDOf func(heap.Address) uint32) error {
	for _, s := range slots {
		if heap.IsUnboxed(s) || heap.IsNil(s) {
			continue
		}
		if staleIDs[pageIDOf(s)] {
			return fmt.Errorf("pointer rewrite incomplete: slot %s still points into a stale page", s)
		}
	}
	return nil
}

// CheckPhiArity verifies invariant 6: every phi has input_count in
// {0,1,2}, and input_count==0 implies the instruction has been
// nilified (isNil == true).
func CheckPhiArity(inputCount int, isNil bool) error {
	if inputCount < 0 || inputCount > 2 {
		return fmt.Errorf("phi arity: input_count=%d outside {0,1,2}", inputCount)
	}
	if inputCount == 0 && !isNil {
		return fmt.Errorf("phi arity: input_count=0 but kind was not nilified")
	}
	return nil
}

// LiveInterval is the minimal shape of an allocator interval needed to
// check invariant 4 (linear-scan soundness): it is alive over
// [Start,End) and requires a physical register iff NeedsRegister.
type LiveInterval struct {
	Start, End    int
	NeedsRegister bool
}

// CheckLinearScanSoundness verifies invariant 4: at every instruction
// position, the number of simultaneously live register-requiring
// intervals never exceeds regCount, and (implicitly, by construction
// of the caller) every register-typed use that survives allocation has
// a physical register assigned.
func CheckLinearScanSoundness(intervals []LiveInterval, regCount int) error {
	if len(intervals) == 0 {
		return nil
	}
	lo, hi := intervals[0].Start, intervals[0].End
	for _, iv := range intervals {
		if iv.Start < lo {
			lo = iv.Start
		}
		if iv.End > hi {
			hi = iv.End
		}
	}
	for pos := lo; pos < hi; pos++ {
		live := 0
		for _, iv := range intervals {
			if iv.NeedsRegister && pos >= iv.Start && pos < iv.End {
				live++
			}
		}
		if live > regCount {
			return fmt.Errorf("linear-scan soundness: position %d needs %d registers, only %d available", pos, live, regCount)
		}
	}
	return nil
}

// SSAUse describes one use of a definition for CheckSSAForm:
// HasReachingDef records whether a definition (per the builder's
// scope-slot renaming) reaches the use, and IsPhiInput marks uses that
// are allowed to read a definition from a not-yet-sealed loop back-edge.
type SSAUse struct {
	HasReachingDef bool
	IsPhiInput     bool
}

// CheckSSAForm verifies invariant 5: every non-phi instruction's use
// has exactly one definition reaching it along every control-flow
// path, except via a phi input on a loop back-edge.
func CheckSSAForm(uses []SSAUse) error {
	for i, u := range uses {
		if !u.HasReachingDef && !u.IsPhiInput {
			return fmt.Errorf("ssa form: use %d has no reaching definition", i)
		}
	}
	return nil
}
