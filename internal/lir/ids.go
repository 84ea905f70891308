// Package lir lowers an internal/hir.Module into a linear list of
// LInstructions per function (spec.md §4.5), computes local and
// global liveness over that list, and builds the LIntervals the
// internal/regalloc linear-scan allocator walks. Everything downstream
// of HIR construction up to physical-register assignment lives here;
// internal/regalloc consumes the Intervals this package builds and
// never looks at HIR directly.
package lir

// LInstrID identifies one LInstruction's position on the linear
// instruction axis. Ids are even-numbered, leaving the odd positions
// between two instructions free; regalloc rounds its split points down
// to even ids.
type LInstrID int

// NoLInstrID marks an absent position.
const NoLInstrID LInstrID = -1

// Next returns the next even id after this one.
func (id LInstrID) Next() LInstrID { return id + 2 }

// LBlockID identifies one flattened block.
type LBlockID int

// LIntervalID identifies one LInterval, virtual or fixed.
type LIntervalID int
