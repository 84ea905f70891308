package hir

import "candor/internal/source"

// Func is one lowered Candor function: its entry block, every block
// reachable from it, and the bookkeeping spec.md §4.4/§4.6 need to
// emit a matching prologue (parameter count, vararg position, declared
// context-slot count).
type Func struct {
	ID   FuncID
	Name string // "" for an anonymous function literal
	Span source.Span

	ParamCount  int
	HasVararg   bool
	VarargIndex int // index of the "name..." parameter; -1 if HasVararg is false

	// TailParamCount is the number of fixed parameters declared after
	// VarargIndex (0 when the vararg parameter is last, or absent).
	// Their flat argv position depends on how many elements the vararg
	// captured at a given call, so they're addressed from the end of
	// argv rather than a static offset from its start.
	TailParamCount int

	Entry  *Block
	Blocks []*Block

	// ContextSlotCount is the number of scope slots this function's
	// declared variables occupy in its own heap context, filled in once
	// the builder finishes walking the body; InstrEntry.Data carries the
	// same number for LIR's prologue lowering to read without reaching
	// back into Func.
	ContextSlotCount int

	nextInstrID InstrID
	nextBlockID BlockID
}

// NewBlock allocates and registers a fresh, unsealed block.
func (f *Func) NewBlock() *Block {
	f.nextBlockID++
	b := &Block{ID: f.nextBlockID}
	f.Blocks = append(f.Blocks, b)
	return b
}

// FindBlock returns the block with the given id, or nil.
func (f *Func) FindBlock(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}
