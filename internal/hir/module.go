package hir

// Module is every function lowered from one internal/ast.Module: the
// top-level function literals plus every nested FuncLit discovered
// while walking them, each lowered into its own Func referencing its
// parent's context via InstrFunction/ContextAccessData.
type Module struct {
	Funcs []*Func
}

// FindFunc returns the function with the given name, or nil. Unnamed
// closures are only reachable via their enclosing InstrFunction.
func (m *Module) FindFunc(name string) *Func {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
