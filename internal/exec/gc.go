package exec

import (
	"context"

	"candor/internal/gc"
	"candor/internal/heap"
)

// CollectGarbage runs a full collection over both spaces, handing the
// collector every live root this engine knows about: every active
// Frame's register file, spill area, argument vector and context
// cells, plus the engine-level RootContext/True/False cells that are
// not necessarily reachable from any frame between calls.
func (e *Engine) CollectGarbage() gc.Stats {
	return e.GC.Collect(context.Background(), heap.GCBoth, e.rootSlots())
}

// runtimeCollectGarbage is RuntimeCollectGarbage, the stub's
// "__$gc() forces an immediate cycle" builtin (see internal/hir's
// recognition of that name) reaching exec through LOpCollectGarbage.
func (e *Engine) runtimeCollectGarbage() {
	e.CollectGarbage()
}

// rootSlots assembles the collector's non-persistent root set from
// every frame on the call stack — the simulated register file and
// spill slots internal/gc's package doc says this package owns
// producing.
func (e *Engine) rootSlots() []gc.RootSlot {
	var cells []*heap.Address
	for _, fr := range e.stack {
		for i := range fr.Regs {
			cells = append(cells, &fr.Regs[i])
		}
		for i := range fr.Spills {
			cells = append(cells, &fr.Spills[i])
		}
		for i := range fr.Argv {
			cells = append(cells, &fr.Argv[i])
		}
		cells = append(cells, &fr.Context, &fr.ParentContext)
	}
	cells = append(cells, &e.RootContext, &e.True, &e.False)
	return gc.Slots(cells)
}
