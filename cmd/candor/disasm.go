package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/width"

	"candor/internal/asm"
	"candor/internal/diag"
	"candor/internal/hir"
	"candor/internal/lir"
	"candor/internal/parser"
	"candor/internal/regalloc"
	"candor/internal/source"
	"candor/internal/stub"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] file.candor",
	Short: "Show a source file's lowered LIR and calling-convention stubs",
	Long: `disasm runs a source file through the full front end (parse, HIR,
LIR lowering, linear-scan register allocation) and prints each
function's allocated instruction stream. With --stubs it then also
prints the calling-convention stub bodies every compiled function
relies on.`,
	Args: cobra.ExactArgs(1),
	RunE: runDisasm,
}

func init() {
	disasmCmd.Flags().Bool("stubs", false, "also print the calling-convention stub catalog")
}

func runDisasm(cmd *cobra.Command, args []string) error {
	files := source.NewFileSet()
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	fid := files.Add(args[0], content, 0)

	p := parser.New(string(content), fid)
	astMod, err := p.ParseModule()
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	diags := diag.NewBag(100)
	mod := hir.NewBuilder(astMod, diags).Build()
	out := cmd.OutOrStdout()
	if diags.HasErrors() {
		printDiagnostics(os.Stderr, diags, files, useColor(cmd, os.Stderr))
		return fmt.Errorf("%d error(s) building HIR", len(diags.Items()))
	}

	for _, fn := range mod.Funcs {
		disasmFunc(out, fn)
	}

	withStubs, _ := cmd.Flags().GetBool("stubs")
	if withStubs {
		fmt.Fprintln(out, "\n; calling-convention stubs")
		fmt.Fprint(out, stubCatalog())
	}
	return nil
}

// disasmFunc runs one function through lir.Lower, ComputeLiveness,
// BuildIntervals and regalloc.Allocate, then prints every instruction
// annotated with the physical register or spill slot its result
// interval landed in.
func disasmFunc(out io.Writer, fn *hir.Func) {
	lf := lir.Lower(fn)
	lir.ComputeLiveness(lf)
	lir.BuildIntervals(lf)
	res := regalloc.Allocate(lf)

	fmt.Fprintf(out, "\n; func %s (%d spill slot(s))\n", fn.Name, res.NumSpillSlots)
	for _, b := range lf.Blocks {
		fmt.Fprintf(out, "block %d:\n", b.ID)
		for _, instr := range b.Instrs {
			fmt.Fprintf(out, "  %4d  %-14s%-24s%s\n", instr.ID, instr.Op, literalPreview(instr), describeResult(instr))
		}
	}
}

// describeResult renders an instruction's result interval placement,
// the same Reg/SpillSlot allocation exec's Frame.get/Frame.set read
// back at interp time.
func describeResult(instr *lir.LInstruction) string {
	if instr.Result == nil || instr.Result.Interval == nil {
		return ""
	}
	iv := instr.Result.Interval
	if iv.Reg != lir.NoRegister {
		return fmt.Sprintf("-> r%d", iv.Reg)
	}
	if iv.SpillSlot != lir.NoSpillSlot {
		return fmt.Sprintf("-> slot[%d]", iv.SpillSlot)
	}
	return ""
}

// literalPreview renders a quoted preview of a Literal instruction's
// string value, folded to half-width form first so East-Asian
// full-width punctuation in a string literal doesn't throw off the
// fixed-width column this is printed into. Non-string literals and
// every other opcode render as an empty preview.
func literalPreview(instr *lir.LInstruction) string {
	if instr.Op != lir.LOpLiteral || instr.HIR == nil {
		return ""
	}
	lit, ok := instr.HIR.Data.(hir.LiteralData)
	if !ok || lit.Kind != hir.LiteralString {
		return ""
	}
	folded := width.Fold.String(lit.Str)
	const maxPreview = 18
	runes := []rune(folded)
	if len(runes) > maxPreview {
		folded = string(runes[:maxPreview]) + "…"
	}
	return fmt.Sprintf("%q", folded)
}

func stubCatalog() string {
	a := asm.NewTextAssembler()
	stub.EmitEntryStub(a)
	stub.EmitAllocateStub(a, 16)
	stub.EmitPropertyLookupStub(a, false)
	stub.EmitPropertyLookupStub(a, true)
	stub.EmitCoerceToBooleanStub(a)
	stub.EmitTypeofStub(a)
	stub.EmitSizeofStub(a)
	stub.EmitKeysofStub(a)
	stub.EmitCloneStub(a)
	stub.EmitDeletePropertyStub(a)
	stub.EmitStackTraceStub(a)
	stub.EmitGCCollectStub(a)
	stub.EmitStringHashStub(a)
	return a.String()
}
