// Package hir builds Candor's SSA intermediate representation
// (spec.md §4.4) from internal/ast: a graph of Blocks holding ordered
// Instructions, with binary Phis at join points and loop headers
// flagged structurally. HIR preserves no syntax — every AST construct
// is lowered to the closed Instruction-kind enum during a single walk.
package hir

// InstrID identifies an Instruction within a Func. Ids are assigned in
// emission order starting at 1; zero is the sentinel for "no
// instruction" (an absent Phi input, a not-yet-filled back-edge).
type InstrID uint32

// BlockID identifies a Block within a Func, assigned in creation order.
type BlockID uint32

// FuncID identifies a Func within a Module, assigned in declaration
// order (the order spec.md's §4.5 flattening pass later reuses as a
// stable tie-break).
type FuncID uint32

const (
	NoInstrID InstrID = 0
	NoBlockID BlockID = 0
	NoFuncID  FuncID  = 0
)

func (id InstrID) IsValid() bool { return id != NoInstrID }
func (id BlockID) IsValid() bool { return id != NoBlockID }
func (id FuncID) IsValid() bool  { return id != NoFuncID }

// ScopeSlot identifies a lexically scoped binding's storage: either a
// function's declared context slot (captured by a nested closure) or
// a purely local SSA value with no stable address. Entry carries the
// function's declared context-slot count so the prologue knows how
// large a context to allocate.
type ScopeSlot struct {
	// IsContext is true when this binding lives in the function's
	// heap-allocated context (it is captured by an inner FuncLit);
	// false when the builder tracks it purely as an SSA value with no
	// backing storage.
	IsContext bool
	Index     int
}

// NoScopeSlot is the zero ScopeSlot, used by instructions that do not
// correspond to a named binding (every instruction but a use of
// LoadContext/StoreContext's target local, or a Phi produced for one).
var NoScopeSlot = ScopeSlot{}
