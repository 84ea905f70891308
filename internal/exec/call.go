package exec

import (
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/tagged"
)

// CallFunction is exec's host-facing entry point: it runs fn with the
// given arguments and restores the engine's call stack to whatever it
// held before the call even when fn faults. This is the save-restore
// spec.md §5 calls out for a reentrant call into Candor triggered from
// a host callback invoked mid-call: the saved depth is this call's
// own, so a callback's CallFunction unwinds back to exactly the frame
// active when the callback fired rather than clobbering an outer call
// already in progress.
func (e *Engine) CallFunction(fn heap.Address, args []heap.Address) (heap.Address, *VMError) {
	depth := len(e.stack)
	defer func() { e.stack = e.stack[:depth] }()
	return e.callValue(fn, args, nil, lir.NoLInstrID)
}

// callValue is the call mechanism's shared core: the inline-Nil
// NonCallable fast path (spec.md §7) for any non-Function receiver,
// and otherwise compiling (if needed) and interpreting the callee's
// body in a freshly allocated Frame and Context.
func (e *Engine) callValue(fn heap.Address, argv []heap.Address, caller *Frame, callSiteID lir.LInstrID) (heap.Address, *VMError) {
	if !tagged.IsHeapObject(e.Heap, tagged.TagFunction, fn) {
		return heap.NilAddress, nil // NonCallable: non-fatal, resolves inline to Nil
	}

	funcID := hir.FuncID(heap.DecodeInt(tagged.FunctionCodeEntry(e.Heap, fn)))
	target, ok := e.funcsByID[funcID]
	if !ok {
		return heap.NilAddress, nil
	}

	cf := e.compile(target)
	parentCtx := tagged.FunctionParentContext(e.Heap, fn)

	fr := newFrame(target, cf, parentCtx, argv, caller, callSiteID)
	fr.Context = tagged.AllocContext(e.Heap, parentCtx, target.ContextSlotCount)

	e.stack = append(e.stack, fr)
	res := e.runBlocks(fr, cf)
	e.stack = e.stack[:len(e.stack)-1]

	if res.Err != nil {
		return heap.NilAddress, res.Err
	}
	return res.Value, nil
}

// execCall implements LOpCall: resolve the callee and every staged
// argument from the call site's own Inputs, per hir.CallData's
// "Args[0] is the callee, Args[1:] are StoreArg/StoreVarArg
// instructions" convention. lir.Lower copies an HIR instruction's Args
// into Inputs positionally, so li.HIR.Args[i] names the HIR
// instruction backing li.Inputs[i] — each one's own
// ArgIndexData/VarArgIndexData says where its value lands in the
// flat argv the callee's LoadArg/LoadVarArg reads by absolute index.
func (e *Engine) execCall(fr *Frame, li *lir.LInstruction) (heap.Address, *VMError) {
	callee := fr.get(li.Inputs[0].Interval, li.ID)

	var argv []heap.Address
	for i := 1; i < len(li.Inputs); i++ {
		store := li.HIR.Args[i]
		val := fr.get(li.Inputs[i].Interval, li.ID)
		switch data := store.Data.(type) {
		case hir.ArgIndexData:
			argv = growTo(argv, data.Index+1)
			argv[data.Index] = val
		case hir.VarArgIndexData:
			// "expr..." splices the spread array's own elements into
			// the flat argv at this position, rather than landing the
			// array object itself in a single slot.
			n := 0
			if tagged.IsHeapObject(e.Heap, tagged.TagArray, val) {
				n = tagged.ArrayLength(e.Heap, val)
			}
			argv = growTo(argv, data.Index+n)
			for j := 0; j < n; j++ {
				argv[data.Index+j] = e.loadProperty(val, heap.EncodeInt(int64(j)))
			}
		}
	}

	return e.callValue(callee, argv, fr, li.ID)
}

// growTo extends s with Nil-filled slots until it has at least n
// elements, without disturbing any slot already set.
func growTo(s []heap.Address, n int) []heap.Address {
	for len(s) < n {
		s = append(s, heap.NilAddress)
	}
	return s
}
