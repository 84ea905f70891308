package hir

// Block is an ordered sequence of Instructions and a node in the
// function's control-flow graph (spec.md §4.4). IsLoop flags a
// structurally detected while-loop header; LIR's flattening pass
// (spec.md §4.5) emits a loop header without waiting for its back-edge
// predecessor, then visits successors last-to-first, so a while loop's
// exit block can be emitted before its body.
type Block struct {
	ID     BlockID
	Instrs []*Instruction
	Preds  []*Block
	Succs  []*Block
	IsLoop bool

	// sealed is set once every predecessor of this block is known, so
	// the builder can stop inserting incomplete phis for it.
	sealed bool
}

// Append adds instr to the end of the block, setting instr.Block and
// instr.ID.
func (b *Block) Append(f *Func, instr *Instruction) *Instruction {
	f.nextInstrID++
	instr.ID = f.nextInstrID
	instr.Block = b
	b.Instrs = append(b.Instrs, instr)
	return instr
}

// Terminator returns the block's last non-removed instruction if it
// is a control instruction (Goto, If, Return), or nil.
func (b *Block) Terminator() *Instruction {
	for i := len(b.Instrs) - 1; i >= 0; i-- {
		in := b.Instrs[i]
		if in.Removed {
			continue
		}
		switch in.Kind {
		case InstrGoto, InstrIf, InstrReturn:
			return in
		}
		return nil
	}
	return nil
}

// IsTerminated reports whether the block already ends in a control
// instruction, so the builder knows not to append another one (e.g.
// after a `return` statement, the rest of the enclosing block is
// unreachable and is not lowered).
func (b *Block) IsTerminated() bool {
	return b.Terminator() != nil
}

// addSucc links b to s in both directions.
func (b *Block) addSucc(s *Block) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}
