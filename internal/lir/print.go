package lir

import (
	"fmt"
	"io"
)

// Dump renders f's flattened instruction list, one line per
// LInstruction, annotated with the interval id each use/result
// touches.
func Dump(w io.Writer, f *LFunc) error {
	for _, b := range f.Blocks {
		loopTag := ""
		if b.IsLoop {
			loopTag = " loop"
		}
		if _, err := fmt.Fprintf(w, "lb%d:%s\n", b.ID, loopTag); err != nil {
			return err
		}
		for _, in := range b.Instrs {
			if err := printInstr(w, in); err != nil {
				return err
			}
		}
	}
	return nil
}

func printInstr(w io.Writer, in *LInstruction) error {
	var result string
	if in.Result != nil {
		result = fmt.Sprintf("i%d = ", in.Result.Interval.ID)
	}
	var inputs string
	for i, use := range in.Inputs {
		if i > 0 {
			inputs += ", "
		}
		inputs += fmt.Sprintf("i%d", use.Interval.ID)
	}
	extra := ""
	switch d := in.Data.(type) {
	case BranchData:
		extra = fmt.Sprintf(" then=lb%d else=lb%d", d.Then.ID, d.Else.ID)
	case GotoData:
		extra = fmt.Sprintf(" -> lb%d", d.Target.ID)
	case GapData:
		for _, m := range d.Moves {
			extra += fmt.Sprintf(" i%d<-i%d", m.Dst.ID, m.Src.ID)
		}
	}
	_, err := fmt.Fprintf(w, "  [%4d] %s%s(%s)%s\n", in.ID, result, in.Op, inputs, extra)
	return err
}
