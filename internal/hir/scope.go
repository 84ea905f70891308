package hir

// ssaScope tracks the current SSA value of every local variable in a
// function that has no nested closures (so none of its locals need a
// context slot — see builder.go's analyzeFunc). It implements the
// simple on-the-fly SSA construction algorithm: each block keeps a
// map of variable name to its current defining instruction, reads
// that don't find a local definition recurse to predecessors, and a
// block with more than one predecessor gets a Phi once both
// predecessors are known. Candor restricts join points to arity two
// (spec.md §4.4), which keeps this a direct translation of the
// textbook algorithm with no generalization to N-way phis needed.
type ssaScope struct {
	f *Func

	defs map[BlockID]map[string]*Instruction
	// incomplete holds phis created for an unsealed block (a loop
	// header whose back-edge predecessor isn't wired up yet) so a
	// second pass can fill their remaining operand once sealed.
	incomplete map[BlockID]map[string]*Instruction
}

func newSSAScope(f *Func) *ssaScope {
	return &ssaScope{
		f:          f,
		defs:       make(map[BlockID]map[string]*Instruction),
		incomplete: make(map[BlockID]map[string]*Instruction),
	}
}

func (s *ssaScope) write(b *Block, name string, v *Instruction) {
	m := s.defs[b.ID]
	if m == nil {
		m = make(map[string]*Instruction)
		s.defs[b.ID] = m
	}
	m[name] = v
}

func (s *ssaScope) read(b *Block, name string) *Instruction {
	if v, ok := s.defs[b.ID][name]; ok {
		return v
	}
	return s.readRecursive(b, name)
}

func (s *ssaScope) readRecursive(b *Block, name string) *Instruction {
	var v *Instruction
	if !b.sealed {
		phi := newPhi(s.f, b)
		m := s.incomplete[b.ID]
		if m == nil {
			m = make(map[string]*Instruction)
			s.incomplete[b.ID] = m
		}
		m[name] = phi
		v = phi
	} else if len(b.Preds) == 1 {
		v = s.read(b.Preds[0], name)
	} else if len(b.Preds) == 0 {
		// unreachable block, or the function entry block reading a
		// declared name before its first assignment; either way the
		// read becomes Nil and no diagnostic is reported.
		v = newNil(s.f, b)
	} else {
		phi := newPhi(s.f, b)
		s.write(b, name, phi)
		for _, pred := range b.Preds {
			AddUse(s.read(pred, name), phi)
		}
		v = s.tryRemoveTrivialPhi(phi)
	}
	s.write(b, name, v)
	return v
}

// sealBlock finalizes every phi left incomplete for b (a loop header
// whose back-edge has just been wired) by resolving each variable's
// value along every now-known predecessor.
func (s *ssaScope) sealBlock(b *Block) {
	for name, phi := range s.incomplete[b.ID] {
		for _, pred := range b.Preds {
			AddUse(s.read(pred, name), phi)
		}
		s.tryRemoveTrivialPhi(phi)
	}
	delete(s.incomplete, b.ID)
	b.sealed = true
}

// tryRemoveTrivialPhi collapses a phi whose operands (ignoring
// self-references) all agree on one value, rewriting every use to
// that value directly. A phi with zero real operands (every path to
// it was unreachable, or it never picked up operands because the
// variable is undefined along every predecessor) nilifies in place,
// per spec.md §4.4's "input_count == 0 ⇒ kind becomes Nil".
func (s *ssaScope) tryRemoveTrivialPhi(phi *Instruction) *Instruction {
	var same *Instruction
	trivial := true
	for _, op := range phi.Args {
		if op == phi || op == same {
			continue
		}
		if same != nil {
			trivial = false
			break
		}
		same = op
	}
	if !trivial {
		return phi
	}
	if same == nil {
		phi.Kind = InstrNil
		phi.Args = nil
		phi.Data = nil
		return phi
	}

	users := make([]*Instruction, 0, len(phi.Users))
	for _, u := range phi.Users {
		if u != phi {
			users = append(users, u)
		}
	}
	replaceAllUses(phi, same)
	phi.Remove()

	for _, u := range users {
		if u.Kind == InstrPhi {
			s.tryRemoveTrivialPhi(u)
		}
	}
	return same
}

// replaceAllUses rewrites every Args slot of every user of old to new,
// moving old's Users list onto new.
func replaceAllUses(old, new *Instruction) {
	for _, u := range old.Users {
		for i, a := range u.Args {
			if a == old {
				u.Args[i] = new
			}
		}
		new.Users = append(new.Users, u)
	}
	old.Users = nil
}

func newPhi(f *Func, b *Block) *Instruction {
	return b.Append(f, &Instruction{Kind: InstrPhi})
}

func newNil(f *Func, b *Block) *Instruction {
	return b.Append(f, &Instruction{Kind: InstrNil})
}
