// Package exec is Candor's execution engine: it binds internal/lir and
// internal/regalloc's compiled form to internal/heap, internal/tagged
// and internal/gc, and interprets the resulting register-allocated
// instruction stream directly rather than emitting and running real
// machine code. Where internal/stub describes a trampoline calling
// into a named RuntimeCall on its slow path, this package supplies the
// Go function behind that name (runtime.go); where a stub's fast path
// is inline assembly, interp.go inlines the equivalent Go arithmetic.
package exec

import (
	"strconv"

	"candor/internal/config"
	"candor/internal/gc"
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/regalloc"
	"candor/internal/source"
	"candor/internal/sourcemap"
	"candor/internal/tagged"
	"candor/internal/trace"
)

// compiledFunc is the cached output of lowering and allocating one
// hir.Func, plus a block-index lookup so the interpreter's fall-through
// and branch bookkeeping never has to linear-scan LFunc.Blocks.
type compiledFunc struct {
	LFunc      *lir.LFunc
	Result     *regalloc.Result
	blockIndex map[*lir.LBlock]int
}

// Engine owns one Candor isolate's heap, collector and compiled-code
// cache. It is the Go-native stand-in for spec.md's "current Heap"
// global: spec.md §9 notes this is best modeled as an explicit value
// threaded through every call rather than true global state, which is
// exactly what Engine is.
type Engine struct {
	Heap   *heap.Heap
	GC     *gc.Collector
	Module *hir.Module
	Files  *source.FileSet
	Maps   *sourcemap.Set
	Tracer trace.Tracer

	// RootContext is the single context at the base of every call's
	// parent chain; its two slots hold the canonical True/False values
	// every comparison and CoerceToBoolean call yields, per spec.md
	// §4.6's "yield canonical True/False from the root context".
	RootContext heap.Address
	True, False heap.Address

	funcsByID map[hir.FuncID]*hir.Func
	compiled  map[hir.FuncID]*compiledFunc

	// stack is the live call chain, most recent call last; it backs
	// both CollectGarbage's root enumeration and GetStackTrace. See
	// call.go for the last_stack/last_frame save-restore CallFunction
	// performs around re-entrant host callbacks (spec.md §5).
	stack []*Frame

	// MaxHeapBytes is a simulated exhaustion ceiling: internal/heap's
	// allocator always succeeds by appending pages (internal/heap's
	// Space.Alloc), so without a cap Candor's Heap Exhaustion error
	// (spec.md §7) would never be reachable. Zero means unlimited.
	MaxHeapBytes uint64
}

// NewEngine builds an Engine for mod, with a heap and collector sized
// from cfg and every function (including nested closures the HIR
// builder already flattened into mod.Funcs) indexed by FuncID.
func NewEngine(mod *hir.Module, files *source.FileSet, cfg config.Config, tracer trace.Tracer) *Engine {
	h := heap.New(cfg.Heap.PageSize, cfg.Heap.NewSpaceLimit)
	collector := gc.NewFromConfig(h, cfg.GC)
	collector.Tracer = tracer

	e := &Engine{
		Heap:      h,
		GC:        collector,
		Module:    mod,
		Files:     files,
		Maps:      sourcemap.NewSet(),
		Tracer:    tracer,
		funcsByID: map[hir.FuncID]*hir.Func{},
		compiled:  map[hir.FuncID]*compiledFunc{},
	}
	for _, fn := range mod.Funcs {
		e.funcsByID[fn.ID] = fn
	}

	e.RootContext = tagged.AllocContext(h, heap.NilAddress, 2)
	e.True = tagged.AllocBoolean(h, true)
	e.False = tagged.AllocBoolean(h, false)
	tagged.SetContextSlot(h, e.RootContext, 0, e.True)
	tagged.SetContextSlot(h, e.RootContext, 1, e.False)

	return e
}

// compile lowers fn to LIR and runs the full register-allocation
// pipeline exactly once per function, caching the result the way a
// real JIT would cache a compiled code entry (spec.md §4.5 steps 1-8).
func (e *Engine) compile(fn *hir.Func) *compiledFunc {
	if cf, ok := e.compiled[fn.ID]; ok {
		return cf
	}

	span := trace.Begin(e.tracer(), trace.ScopePass, "exec.compile:"+fn.Name, trace.CurrentSpan(nil).SpanID)

	lf := lir.Lower(fn)
	lir.ComputeLiveness(lf)
	lir.BuildIntervals(lf)
	res := regalloc.Allocate(lf)

	idx := make(map[*lir.LBlock]int, len(lf.Blocks))
	for i, b := range lf.Blocks {
		idx[b] = i
	}

	m := e.Maps.MapFor(fn.Name)
	for _, li := range lf.Instrs {
		if li.HIR == nil {
			continue
		}
		m.Push(uint32(li.ID), uint32(fn.Span.Start))
	}

	cf := &compiledFunc{LFunc: lf, Result: res, blockIndex: idx}
	e.compiled[fn.ID] = cf
	span.End("blocks=" + strconv.Itoa(len(lf.Blocks)))
	return cf
}

func (e *Engine) tracer() trace.Tracer {
	if e.Tracer != nil {
		return e.Tracer
	}
	return trace.Nop
}
