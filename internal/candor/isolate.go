package candor

import (
	"candor/internal/config"
	"candor/internal/diag"
	"candor/internal/exec"
	"candor/internal/gc"
	"candor/internal/heap"
	"candor/internal/hir"
	"candor/internal/parser"
	"candor/internal/source"
	"candor/internal/tagged"
	"candor/internal/trace"
)

// Isolate owns one independent Candor heap and call stack, the
// embedding unit spec.md §5 describes as never sharing a heap with
// any other Isolate. Everything else in this package — Value, Handle,
// Function, CWrapper — is scoped to the Isolate that produced it.
type Isolate struct {
	engine *exec.Engine
	files  *source.FileSet

	cwrappers map[int]CWrapper
	nextCData int
}

// NewIsolate constructs an Isolate with its own heap and collector,
// sized from cfg. A nil tracer disables internal/trace instrumentation.
func NewIsolate(cfg config.Config, tracer trace.Tracer) *Isolate {
	files := source.NewFileSet()
	mod := &hir.Module{}
	return &Isolate{
		engine:    exec.NewEngine(mod, files, cfg, tracer),
		files:     files,
		cwrappers: map[int]CWrapper{},
	}
}

// Files returns the Isolate's FileSet, so a host can resolve a
// Diagnostic's Span back to a path/line/column after Compile returns
// a non-empty Bag.
func (iso *Isolate) Files() *source.FileSet { return iso.files }

// Nil returns the canonical Nil singleton.
func (iso *Isolate) Nil() Value { return valueOf(iso, heap.NilAddress) }

// True returns the canonical True singleton.
func (iso *Isolate) True() Value { return valueOf(iso, iso.engine.True) }

// False returns the canonical False singleton.
func (iso *Isolate) False() Value { return valueOf(iso, iso.engine.False) }

// NewNumber boxes f the same way a Literal instruction would (small
// integers stay unboxed).
func (iso *Isolate) NewNumber(f float64) Value { return valueOf(iso, iso.engine.BoxNumber(f)) }

// NewBoolean returns the canonical True/False singleton for b.
func (iso *Isolate) NewBoolean(b bool) Value { return valueOf(iso, iso.engine.BoolValue(b)) }

// NewString allocates a flat String holding s.
func (iso *Isolate) NewString(s string) Value {
	return valueOf(iso, tagged.AllocString(iso.engine.Heap, s))
}

// NewObject allocates an empty Object.
func (iso *Isolate) NewObject() Value { return valueOf(iso, iso.engine.NewObject()) }

// NewArray allocates an Array populated with elems.
func (iso *Isolate) NewArray(elems ...Value) Value {
	raw := make([]heap.Address, len(elems))
	for i, e := range elems {
		raw[i] = e.addr
	}
	return valueOf(iso, iso.engine.NewArray(raw))
}

// Compile parses src and lowers it to a callable Function, per
// spec.md §6's Function::New(source, length). Candor's grammar only
// allows top-level `fn` declarations (internal/parser.ParseModule), so
// the entry point compiled source exposes is its "main" function; a
// source string that declares no "main" compiles successfully but
// yields a nil Function.
func (iso *Isolate) Compile(src string) (*Function, *diag.Bag, error) {
	fid := iso.files.AddVirtual("<embedded>", []byte(src))
	p := parser.New(src, fid)
	astMod, err := p.ParseModule()
	if err != nil {
		return nil, nil, err
	}

	diags := diag.NewBag(64)
	mod := hir.NewBuilder(astMod, diags).Build()
	if diags.HasErrors() {
		return nil, diags, nil
	}

	iso.engine.Module.Funcs = append(iso.engine.Module.Funcs, mod.Funcs...)
	iso.engine.IndexFuncs(mod.Funcs)

	main := mod.FindFunc("main")
	if main == nil {
		return nil, diags, nil
	}
	return newFunction(iso, main), diags, nil
}

// StackTrace returns an Array of {line, offset, function} Objects
// describing the Isolate's current live call chain, per spec.md §6.
func (iso *Isolate) StackTrace() Value {
	return valueOf(iso, iso.engine.StackTrace())
}

// CollectGarbage forces an immediate full collection, the host-facing
// equivalent of the "__$gc()" builtin.
func (iso *Isolate) CollectGarbage() gc.Stats { return iso.engine.CollectGarbage() }

// SetMaxHeapBytes caps the Isolate's simulated heap at n bytes; zero
// means unlimited. See exec.Engine.MaxHeapBytes.
func (iso *Isolate) SetMaxHeapBytes(n uint64) { iso.engine.MaxHeapBytes = n }
