// Package sourcemap implements the code-offset to AST-offset mapping
// spec.md §6 describes: a PushedPair list sorted by code offset,
// looked up via binary search while decoding a stack trace, and
// persisted to a `.candorc` sidecar file so a previously compiled
// function's trace can be decoded without recompiling it.
package sourcemap

import (
	"sort"
)

// PushedPair records that the instruction at CodeOffset originated
// from the AST node at AstOffset. "Pushed" names the moment this pair
// is recorded: each time the code generator emits an instruction, it
// pushes one pair onto the map before moving on.
type PushedPair struct {
	CodeOffset uint32
	AstOffset  uint32
}

// Map is one function's PushedPair list, always kept sorted by
// CodeOffset so Lookup can binary search it.
type Map struct {
	FuncName string
	Pairs    []PushedPair
}

// NewMap returns an empty Map for the named function.
func NewMap(funcName string) *Map {
	return &Map{FuncName: funcName}
}

// Push records that codeOffset originated from astOffset. Callers are
// expected to push in increasing CodeOffset order, the order code
// generation naturally visits instructions in; Push still re-sorts
// defensively so a map built out of order is never silently wrong.
func (m *Map) Push(codeOffset, astOffset uint32) {
	m.Pairs = append(m.Pairs, PushedPair{CodeOffset: codeOffset, AstOffset: astOffset})
	if n := len(m.Pairs); n > 1 && m.Pairs[n-2].CodeOffset > codeOffset {
		sort.Slice(m.Pairs, func(i, j int) bool { return m.Pairs[i].CodeOffset < m.Pairs[j].CodeOffset })
	}
}

// Lookup returns the AST offset for the instruction at or immediately
// before codeOffset — the pair a return address decodes to, since a
// call site's return address points just past the call instruction,
// not at the start of one of this map's recorded offsets. It reports
// false if codeOffset precedes every recorded pair.
func (m *Map) Lookup(codeOffset uint32) (uint32, bool) {
	i := sort.Search(len(m.Pairs), func(i int) bool { return m.Pairs[i].CodeOffset > codeOffset })
	if i == 0 {
		return 0, false
	}
	return m.Pairs[i-1].AstOffset, true
}

// Set is every function's Map, keyed by name, the unit a Module
// persists and an Isolate's StackTrace() decodes against.
type Set struct {
	Maps map[string]*Map
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{Maps: map[string]*Map{}}
}

// MapFor returns the Map for name, creating an empty one on first
// reference.
func (s *Set) MapFor(name string) *Map {
	if m, ok := s.Maps[name]; ok {
		return m
	}
	m := NewMap(name)
	s.Maps[name] = m
	return m
}

// Frame is one decoded stack-trace entry: the source line and
// code-relative offset, and the function name it was found in —
// exactly the `{line, offset, function}` shape spec.md §6's
// StackTrace() builds an Array of Objects from.
type Frame struct {
	Line     int
	Offset   uint32
	Function string
}

// DecodeFrame resolves one sentinel-chain frame's return address
// (relative to its own function's code) into a Frame, walking the
// chain the way spec.md §6 describes: "reads the return address of
// each frame, looks it up via binary search." lineOf converts an AST
// offset to a 1-based source line.
func (s *Set) DecodeFrame(funcName string, codeOffset uint32, lineOf func(astOffset uint32) int) Frame {
	m, ok := s.Maps[funcName]
	if !ok {
		return Frame{Function: funcName, Offset: codeOffset}
	}
	astOffset, found := m.Lookup(codeOffset)
	if !found {
		return Frame{Function: funcName, Offset: codeOffset}
	}
	return Frame{Line: lineOf(astOffset), Offset: codeOffset, Function: funcName}
}
