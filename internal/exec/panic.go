package exec

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// PanicCode enumerates exec's half of spec.md §7's closed error
// taxonomy: the two fatal kinds that abort the host rather than
// recovering to Nil. The HIR-build errors (IncorrectLhs,
// CallWithoutVariable, ExpectedLoop) never reach this package — they
// are diagnosed and reported by internal/diag before a module is ever
// compiled. The non-fatal runtime kinds (divide-by-zero, non-callable
// call, non-object delete) are not given a PanicCode at all, per
// spec.md's "stub returns Nil": they resolve inline in runtime.go,
// call.go and property.go without ever constructing a VMError.
type PanicCode int

const (
	// PanicHeapExhaustion fires when an allocation would push the
	// engine's simulated heap past Engine.MaxHeapBytes.
	PanicHeapExhaustion PanicCode = iota + 1
	// PanicSentinelCorruption fires when GetStackTrace finds a Frame
	// whose enter-frame sentinel does not read back as kEnterFrameTag
	// (spec.md §6's Sentinels section).
	PanicSentinelCorruption
)

func (c PanicCode) String() string {
	switch c {
	case PanicHeapExhaustion:
		return "HeapExhaustion"
	case PanicSentinelCorruption:
		return "SentinelCorruption"
	default:
		return "Unknown"
	}
}

// BacktraceFrame is one entry of a VMError's captured call chain,
// shaped like the teacher's vm.BacktraceFrame but resolved through
// internal/sourcemap instead of an AST node pointer.
type BacktraceFrame struct {
	FuncName string
	Line     int
	Offset   uint32
}

// VMError is a fatal runtime condition: host abort, per spec.md §7's
// "fatal" propagation column. It is returned up through runBlocks,
// callValue and CallFunction rather than panicking, keeping exec's control flow
// explicit the way the rest of this module favors explicit error
// returns over Go panics.
type VMError struct {
	Code      PanicCode
	Message   string
	Backtrace []BacktraceFrame
}

func (e *VMError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Format renders e with its backtrace, colorized the way a TTY-facing
// CLI error report would be.
func (e *VMError) Format() string {
	var b strings.Builder
	b.WriteString(color.RedString("panic: %s", e.Error()))
	for _, f := range e.Backtrace {
		b.WriteString(fmt.Sprintf("\n  at %s (line %d)", color.CyanString(f.FuncName), f.Line))
	}
	return b.String()
}

func (e *Engine) heapExhausted(msg string) *VMError {
	return &VMError{Code: PanicHeapExhaustion, Message: msg, Backtrace: e.captureBacktrace()}
}

func (e *Engine) sentinelCorruption(msg string) *VMError {
	return &VMError{Code: PanicSentinelCorruption, Message: msg, Backtrace: e.captureBacktrace()}
}
