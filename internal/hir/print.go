package hir

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders a Module as text, one function and block at a time.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer { return &Printer{w: w} }

// Dump writes every function in m to w.
func Dump(w io.Writer, m *Module) error {
	p := NewPrinter(w)
	for _, f := range m.Funcs {
		if err := p.PrintFunc(f); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printf(format string, args ...any) error {
	_, err := fmt.Fprintf(p.w, format, args...)
	return err
}

// PrintFunc renders one function's blocks in id order.
func (p *Printer) PrintFunc(f *Func) error {
	name := f.Name
	if name == "" {
		name = fmt.Sprintf("<anon %d>", f.ID)
	}
	if err := p.printf("func %s(argc=%d vararg=%v ctxslots=%d) {\n", name, f.ParamCount, f.HasVararg, f.ContextSlotCount); err != nil {
		return err
	}
	for _, b := range f.Blocks {
		if err := p.printBlock(b); err != nil {
			return err
		}
	}
	return p.printf("}\n")
}

func (p *Printer) printBlock(b *Block) error {
	loopTag := ""
	if b.IsLoop {
		loopTag = " loop"
	}
	if err := p.printf("  b%d:%s\n", b.ID, loopTag); err != nil {
		return err
	}
	for _, in := range b.Instrs {
		if err := p.printInstr(in); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) printInstr(in *Instruction) error {
	prefix := "    "
	if in.Removed {
		prefix = "    ; removed "
	}
	var args []string
	for _, a := range in.Args {
		args = append(args, fmt.Sprintf("%%%d", a.ID))
	}
	extra := instrExtra(in)
	line := fmt.Sprintf("%s%%%d = %s(%s)", prefix, in.ID, in.Kind, strings.Join(args, ", "))
	if extra != "" {
		line += " " + extra
	}
	return p.printf("%s\n", line)
}

func instrExtra(in *Instruction) string {
	switch d := in.Data.(type) {
	case LiteralData:
		switch d.Kind {
		case LiteralNumber:
			return fmt.Sprintf("#%g", d.Number)
		case LiteralString:
			return fmt.Sprintf("%q", d.Str)
		case LiteralBool:
			return fmt.Sprintf("%v", d.Bool)
		}
	case BinOpData:
		return d.Op.String()
	case EntryData:
		return fmt.Sprintf("ctxslots=%d", d.ContextSlotCount)
	case ContextAccessData:
		return fmt.Sprintf("depth=%d idx=%d", d.Depth, d.Index)
	case PropertyData:
		if d.HasKey {
			return fmt.Sprintf("key=%q", d.Key)
		}
		return "computed"
	case ArgIndexData:
		if d.FromEnd {
			return fmt.Sprintf("idx=%d fromEnd", d.Index)
		}
		return fmt.Sprintf("idx=%d", d.Index)
	case VarArgIndexData:
		return fmt.Sprintf("idx=%d", d.Index)
	case ArrayLengthData:
		return fmt.Sprintf("len=%d", d.Length)
	case FunctionData:
		name := d.Func.Name
		if name == "" {
			name = fmt.Sprintf("<anon %d>", d.Func.ID)
		}
		return fmt.Sprintf("func=%s", name)
	case GotoData:
		return fmt.Sprintf("-> b%d", d.Target.ID)
	case IfData:
		return fmt.Sprintf("then=b%d else=b%d", d.Then.ID, d.Else.ID)
	}
	return ""
}
