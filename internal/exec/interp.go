package exec

import (
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/tagged"
)

// execResult is what running one compiled function body until it
// either returns or faults leaves behind.
type execResult struct {
	Value heap.Address
	Err   *VMError
}

// runBlocks interprets fr's compiled instruction stream one block at
// a time, starting at block 0 (the function's entry, per lir.Lower's
// flattening order), applying each outgoing edge's resolved gap move
// before following it. It never recurses for straight-line control
// flow; Call is the only instruction that pushes a nested
// interpretation (call.go's callValue).
func (e *Engine) runBlocks(fr *Frame, cf *compiledFunc) execResult {
	blocks := cf.LFunc.Blocks
	cur := 0
	for {
		b := blocks[cur]
		next, res, done := e.runBlock(fr, cf, b)
		if done {
			return res
		}
		cur = next
	}
}

// runBlock executes one block's instructions and returns the index of
// the block execution should continue at next. done is true once a
// Return or a fault ends the whole call.
func (e *Engine) runBlock(fr *Frame, cf *compiledFunc, b *lir.LBlock) (next int, res execResult, done bool) {
	for _, li := range b.Instrs {
		fr.Cur = li.ID
		switch li.Op {
		case lir.LOpLabel:
			continue

		case lir.LOpGoto:
			target := li.Data.(lir.GotoData).Target
			e.applyGap(fr, b, target)
			return cf.blockIndex[target], execResult{}, false

		case lir.LOpBranch:
			data := li.Data.(lir.BranchData)
			cond := fr.get(li.Inputs[0].Interval, li.ID)
			target := data.Else
			if e.truthy(cond) {
				target = data.Then
			}
			e.applyGap(fr, b, target)
			return cf.blockIndex[target], execResult{}, false

		case lir.LOpReturn:
			var v heap.Address = heap.NilAddress
			if len(li.Inputs) > 0 {
				v = fr.get(li.Inputs[0].Interval, li.ID)
			}
			return 0, execResult{Value: v}, true

		default:
			if err := e.execInstr(fr, li); err != nil {
				return 0, execResult{Err: err}, true
			}
		}
	}

	// No explicit terminator: the block falls through to the next one
	// in flattened order (lir.Lower elided the Goto at generation time).
	idx := cf.blockIndex[b]
	if idx+1 < len(cf.LFunc.Blocks) {
		target := cf.LFunc.Blocks[idx+1]
		e.applyGap(fr, b, target)
		return idx + 1, execResult{}, false
	}
	return 0, execResult{Value: heap.NilAddress}, true
}

// applyGap performs pred's resolved parallel move into succ, if the
// data-flow resolution pass (internal/regalloc/dataflow.go) recorded
// one for that edge. Moves are applied through a local scratch table
// rather than Frame.get/set: Dst/Src are already the concrete split
// children resolveDataFlow picked, and serializeCycles's 2-cycle break
// can introduce a bare scratch LInterval with neither a register nor
// a spill slot, which Frame.rawCell reports by returning nil.
func (e *Engine) applyGap(fr *Frame, pred, succ *lir.LBlock) {
	gap := pred.Gaps[succ]
	if gap == nil {
		return
	}
	scratch := map[*lir.LInterval]heap.Address{}
	read := func(iv *lir.LInterval) heap.Address {
		if cell := fr.rawCell(iv); cell != nil {
			return *cell
		}
		return scratch[iv]
	}
	write := func(iv *lir.LInterval, v heap.Address) {
		if cell := fr.rawCell(iv); cell != nil {
			*cell = v
			return
		}
		scratch[iv] = v
	}
	for _, mv := range gap.Data.(lir.GapData).Moves {
		write(mv.Dst, read(mv.Src))
	}
}

// execInstr runs one non-control-flow instruction, writing its result
// (if any) into the register/spill cell the allocator picked.
func (e *Engine) execInstr(fr *Frame, li *lir.LInstruction) *VMError {
	var out heap.Address
	switch li.Op {
	case lir.LOpPrologue:
		out = heap.NilAddress

	case lir.LOpLiteral:
		data := li.HIR.Data.(hir.LiteralData)
		switch data.Kind {
		case hir.LiteralNumber:
			out = e.boxNumber(data.Number)
		case hir.LiteralString:
			if err := e.checkAllocate(fr, len(data.Str)); err != nil {
				return err
			}
			out = tagged.AllocString(e.Heap, data.Str)
		case hir.LiteralBool:
			out = e.boolValue(data.Bool)
		}

	case lir.LOpBinOp:
		op := li.HIR.Data.(hir.BinOpData).Op
		lhs := fr.get(li.Inputs[0].Interval, li.ID)
		rhs := fr.get(li.Inputs[1].Interval, li.ID)
		out = e.binOp(op, lhs, rhs)

	case lir.LOpNot:
		out = e.not(fr.get(li.Inputs[0].Interval, li.ID))

	case lir.LOpNil:
		out = heap.NilAddress

	case lir.LOpLoadContext:
		data := li.HIR.Data.(hir.ContextAccessData)
		out = tagged.ContextSlot(e.Heap, e.ancestorContext(fr, data.Depth), data.Index)

	case lir.LOpStoreContext:
		data := li.HIR.Data.(hir.ContextAccessData)
		v := fr.get(li.Inputs[0].Interval, li.ID)
		tagged.SetContextSlot(e.Heap, e.ancestorContext(fr, data.Depth), data.Index, v)
		out = v

	case lir.LOpLoadProperty:
		recv, key := e.propertyOperands(fr, li)
		out = e.loadProperty(recv, key)

	case lir.LOpStoreProperty:
		recv, key, val := e.storeOperands(fr, li)
		e.storeProperty(recv, key, val)
		out = val

	case lir.LOpDeleteProperty:
		recv, key := e.propertyOperands(fr, li)
		e.deleteProperty(recv, key)
		out = heap.NilAddress

	case lir.LOpLoadArg:
		data := li.HIR.Data.(hir.ArgIndexData)
		idx := data.Index
		if data.FromEnd {
			// a fixed parameter declared after the vararg parameter:
			// its real slot floats with how many elements the vararg
			// captured at this call, so it's addressed from argv's end.
			idx = len(fr.Argv) - fr.Func.TailParamCount + data.Index
		}
		out = heap.NilAddress
		if idx >= 0 && idx < len(fr.Argv) {
			out = fr.Argv[idx]
		}

	case lir.LOpStoreArg, lir.LOpStoreVarArg:
		// Pass-through: the value is picked back up positionally by
		// the enclosing Call (call.go), keyed by this instruction's
		// ArgIndexData/VarArgIndexData rather than by its own result.
		out = fr.get(li.Inputs[0].Interval, li.ID)

	case lir.LOpLoadVarArg:
		// Materialize a fresh Array from every argv slot not claimed by
		// a fixed parameter before (VarargIndex) or after
		// (TailParamCount) the vararg parameter.
		lo := fr.Func.VarargIndex
		if lo < 0 || lo > len(fr.Argv) {
			lo = len(fr.Argv)
		}
		hi := len(fr.Argv) - fr.Func.TailParamCount
		if hi < lo {
			hi = lo
		}
		if err := e.checkAllocate(fr, 0); err != nil {
			return err
		}
		out = e.newArray(fr.Argv[lo:hi])

	case lir.LOpAllocateObject:
		if err := e.checkAllocate(fr, 0); err != nil {
			return err
		}
		out = e.newObject()

	case lir.LOpAllocateArray:
		length := li.HIR.Data.(hir.ArrayLengthData).Length
		if err := e.checkAllocate(fr, 0); err != nil {
			return err
		}
		out = e.newArrayWithLength(length)

	case lir.LOpSizeof:
		out = e.runtimeSizeof(fr.get(li.Inputs[0].Interval, li.ID))

	case lir.LOpTypeof:
		out = e.runtimeTypeof(fr.get(li.Inputs[0].Interval, li.ID))

	case lir.LOpKeysof:
		out = e.runtimeKeysof(fr.get(li.Inputs[0].Interval, li.ID))

	case lir.LOpClone:
		out = e.runtimeClone(fr.get(li.Inputs[0].Interval, li.ID))

	case lir.LOpFunction:
		fn := li.HIR.Data.(hir.FunctionData).Func
		if err := e.checkAllocate(fr, 0); err != nil {
			return err
		}
		out = tagged.AllocFunction(e.Heap, fr.Context, heap.EncodeInt(int64(fn.ID)), e.RootContext, fn.ParamCount)

	case lir.LOpAlignStack:
		return nil

	case lir.LOpCollectGarbage:
		e.runtimeCollectGarbage()
		return nil

	case lir.LOpGetStackTrace:
		v, err := e.runtimeStackTrace(fr)
		if err != nil {
			return err
		}
		out = v

	case lir.LOpCall:
		v, err := e.execCall(fr, li)
		if err != nil {
			return err
		}
		out = v

	default:
		out = heap.NilAddress
	}

	if li.Result != nil {
		fr.set(li.Result.Interval, li.ID, out)
	}
	return nil
}

// ancestorContext walks depth parent hops up from fr's own context,
// per hir.ContextAccessData's "Depth 0 is the function's own context"
// convention. fr.Context is always allocated (see frame.go's
// newFrame/call.go), so depth 0 never has to fall back to
// ParentContext.
func (e *Engine) ancestorContext(fr *Frame, depth int) heap.Address {
	ctx := fr.Context
	for i := 0; i < depth; i++ {
		ctx = tagged.ContextParent(e.Heap, ctx)
	}
	return ctx
}

// propertyOperands resolves a LoadProperty/DeleteProperty instruction's
// receiver and key per hir.PropertyData's HasKey convention: a static
// string key never reaches an Input, a computed one is Inputs[1].
func (e *Engine) propertyOperands(fr *Frame, li *lir.LInstruction) (receiver, key heap.Address) {
	data := li.HIR.Data.(hir.PropertyData)
	receiver = fr.get(li.Inputs[0].Interval, li.ID)
	if data.HasKey {
		key = tagged.AllocString(e.Heap, data.Key)
		return
	}
	key = fr.get(li.Inputs[1].Interval, li.ID)
	return
}

// storeOperands resolves a StoreProperty instruction's receiver, key
// and value: Args = [object, value] when HasKey, [object, key, value]
// otherwise.
func (e *Engine) storeOperands(fr *Frame, li *lir.LInstruction) (receiver, key, value heap.Address) {
	data := li.HIR.Data.(hir.PropertyData)
	receiver = fr.get(li.Inputs[0].Interval, li.ID)
	if data.HasKey {
		key = tagged.AllocString(e.Heap, data.Key)
		value = fr.get(li.Inputs[1].Interval, li.ID)
		return
	}
	key = fr.get(li.Inputs[1].Interval, li.ID)
	value = fr.get(li.Inputs[2].Interval, li.ID)
	return
}

// checkAllocate runs the simulated heap-exhaustion check runtime.go's
// runtimeAllocate implements before any instruction that allocates,
// in the role of the RuntimeAllocate fallback stub.EmitAllocateStub
// emits. Returning a non-nil error here aborts the call
// the same way a real allocation-failure trampoline would.
func (e *Engine) checkAllocate(fr *Frame, size int) *VMError {
	if err := e.runtimeAllocate(size); err != nil {
		err.Backtrace = e.captureBacktrace()
		return err
	}
	return nil
}
