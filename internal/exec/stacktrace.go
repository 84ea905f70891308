package exec

import (
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/source"
	"candor/internal/tagged"
)

// captureBacktrace walks the live call chain from the innermost frame
// out, resolving each one's current position to a source line through
// internal/sourcemap. The innermost frame's position is its own Cur
// (the instruction runBlock was executing when the fault or
// GetStackTrace fired); every other frame is blocked at the Call
// instruction that invoked the frame above it, recorded on that child
// frame as CallSiteID.
func (e *Engine) captureBacktrace() []BacktraceFrame {
	frames := make([]BacktraceFrame, 0, len(e.stack))
	for i := len(e.stack) - 1; i >= 0; i-- {
		fr := e.stack[i]
		pos := fr.Cur
		if i+1 < len(e.stack) {
			pos = e.stack[i+1].CallSiteID
		}
		frames = append(frames, e.frameAt(fr.Func, pos))
	}
	return frames
}

// frameAt resolves one position within fn to a BacktraceFrame via
// internal/sourcemap's Set.DecodeFrame plus internal/source's
// offset-to-line conversion.
func (e *Engine) frameAt(fn *hir.Func, pos lir.LInstrID) BacktraceFrame {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	decoded := e.Maps.DecodeFrame(fn.Name, uint32(pos), func(astOffset uint32) int {
		start, _ := e.Files.Resolve(source.Span{File: fn.Span.File, Start: astOffset, End: astOffset})
		return int(start.Line)
	})
	return BacktraceFrame{FuncName: name, Line: decoded.Line, Offset: decoded.Offset}
}

// runtimeStackTrace is RuntimeStackTrace, the stub's "__$stackTrace()"
// builtin reaching exec through LOpGetStackTrace: it first checks
// every live frame's enter-frame sentinel (spec.md §6's Sentinels
// section), then materializes the backtrace as a Candor Array of
// {line, offset, function} Objects, innermost frame first.
func (e *Engine) runtimeStackTrace(fr *Frame) (heap.Address, *VMError) {
	for _, f := range e.stack {
		if f.Sentinel != kEnterFrameTag {
			return heap.NilAddress, e.sentinelCorruption("frame sentinel does not match kEnterFrameTag, stack is corrupt")
		}
	}

	frames := e.captureBacktrace()
	arr := e.newArrayWithLength(len(frames))
	funcKey := tagged.AllocString(e.Heap, "function")
	lineKey := tagged.AllocString(e.Heap, "line")
	offsetKey := tagged.AllocString(e.Heap, "offset")
	for i, bf := range frames {
		obj := e.newObject()
		e.storeProperty(obj, funcKey, tagged.AllocString(e.Heap, bf.FuncName))
		e.storeProperty(obj, lineKey, heap.EncodeInt(int64(bf.Line)))
		e.storeProperty(obj, offsetKey, heap.EncodeInt(int64(bf.Offset)))
		e.storeArrayIndex(arr, heap.EncodeInt(int64(i)), obj)
	}
	return arr, nil
}
