package lir

import "candor/internal/hir"

// LBlock is one flattened basic block: a contiguous run of
// LInstructions between a Label and the block's terminator.
type LBlock struct {
	ID    LBlockID
	HIR   *hir.Block // the block this was flattened from, kept so regalloc can read its Phis
	Label *LInstruction
	Start LInstrID // position of Label
	End   LInstrID // position just past the terminator

	Instrs []*LInstruction

	Preds, Succs []*LBlock
	IsLoop       bool

	LiveGen, LiveKill map[*LInterval]bool
	LiveIn, LiveOut   map[*LInterval]bool

	// Gaps holds the resolved parallel move for each outgoing edge,
	// filled in by internal/regalloc's data-flow resolution pass.
	Gaps map[*LBlock]*LInstruction
}

func newLBlock(id LBlockID) *LBlock {
	return &LBlock{
		ID:       id,
		LiveGen:  map[*LInterval]bool{},
		LiveKill: map[*LInterval]bool{},
		LiveIn:   map[*LInterval]bool{},
		LiveOut:  map[*LInterval]bool{},
	}
}

func (b *LBlock) addSucc(s *LBlock) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}
