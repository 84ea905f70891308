package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"candor/internal/ast"
	"candor/internal/parser"
	"candor/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.candor",
	Short: "Parse a candor source file and print its AST",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	files := source.NewFileSet()
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	fid := files.Add(args[0], content, 0)

	p := parser.New(string(content), fid)
	mod, err := p.ParseModule()
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, fnID := range mod.Funcs {
		dumpExpr(out, mod, fnID, 0)
	}
	return nil
}

func dumpIndent(out io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Fprint(out, "  ")
	}
}

// dumpExpr prints one arena-indexed expression node and recurses into
// its children, enough to see a parse's shape without needing a real
// pretty-printer grammar — this is a debugging aid, not a
// reformatter.
func dumpExpr(out io.Writer, mod *ast.Module, id ast.ExprID, depth int) {
	if !id.IsValid() {
		return
	}
	e := mod.Exprs.Get(id)
	dumpIndent(out, depth)
	switch e.Kind {
	case ast.ExprNumber:
		fmt.Fprintf(out, "Number %v\n", e.NumberLit)
	case ast.ExprString:
		fmt.Fprintf(out, "String %q\n", e.StringLit)
	case ast.ExprBool:
		fmt.Fprintf(out, "Bool %v\n", e.BoolLit)
	case ast.ExprNilLit:
		fmt.Fprintln(out, "Nil")
	case ast.ExprIdent:
		fmt.Fprintf(out, "Ident %s\n", e.Name)
	case ast.ExprUnary:
		fmt.Fprintln(out, "Unary")
		dumpExpr(out, mod, e.X, depth+1)
	case ast.ExprBinary:
		fmt.Fprintf(out, "Binary %s\n", e.BinOp)
		dumpExpr(out, mod, e.X, depth+1)
		dumpExpr(out, mod, e.Y, depth+1)
	case ast.ExprLogical:
		op := "||"
		if e.IsAnd {
			op = "&&"
		}
		fmt.Fprintf(out, "Logical %s\n", op)
		dumpExpr(out, mod, e.X, depth+1)
		dumpExpr(out, mod, e.Y, depth+1)
	case ast.ExprAssign:
		fmt.Fprintln(out, "Assign")
		dumpExpr(out, mod, e.X, depth+1)
		dumpExpr(out, mod, e.Y, depth+1)
	case ast.ExprCall:
		fmt.Fprintln(out, "Call")
		dumpExpr(out, mod, e.Callee, depth+1)
		for _, a := range e.Args {
			dumpExpr(out, mod, a, depth+1)
		}
	case ast.ExprSpread:
		fmt.Fprintln(out, "Spread")
		dumpExpr(out, mod, e.X, depth+1)
	case ast.ExprProperty:
		fmt.Fprintf(out, "Property .%s\n", e.Prop)
		dumpExpr(out, mod, e.Object, depth+1)
	case ast.ExprIndex:
		fmt.Fprintln(out, "Index")
		dumpExpr(out, mod, e.Object, depth+1)
		dumpExpr(out, mod, e.Y, depth+1)
	case ast.ExprObjectLit:
		fmt.Fprintln(out, "ObjectLit")
		for _, f := range e.Fields {
			dumpIndent(out, depth+1)
			fmt.Fprintf(out, "%s:\n", f.Key)
			dumpExpr(out, mod, f.Value, depth+2)
		}
	case ast.ExprArrayLit:
		fmt.Fprintln(out, "ArrayLit")
		for _, el := range e.Elems {
			dumpExpr(out, mod, el, depth+1)
		}
	case ast.ExprFuncLit:
		name := e.FuncName
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(out, "Func %s(", name)
		for i, p := range e.Params {
			if i > 0 {
				fmt.Fprint(out, ", ")
			}
			fmt.Fprint(out, p.Name)
			if p.IsVararg {
				fmt.Fprint(out, "...")
			}
		}
		fmt.Fprintln(out, ")")
		for _, s := range e.Body {
			dumpStmt(out, mod, s, depth+1)
		}
	case ast.ExprTypeof:
		fmt.Fprintln(out, "Typeof")
		dumpExpr(out, mod, e.X, depth+1)
	case ast.ExprSizeof:
		fmt.Fprintln(out, "Sizeof")
		dumpExpr(out, mod, e.X, depth+1)
	case ast.ExprKeysof:
		fmt.Fprintln(out, "Keysof")
		dumpExpr(out, mod, e.X, depth+1)
	case ast.ExprClone:
		fmt.Fprintln(out, "Clone")
		dumpExpr(out, mod, e.X, depth+1)
	case ast.ExprDelete:
		fmt.Fprintln(out, "Delete")
		dumpExpr(out, mod, e.X, depth+1)
	default:
		fmt.Fprintln(out, "?")
	}
}

func dumpStmt(out io.Writer, mod *ast.Module, id ast.StmtID, depth int) {
	if !id.IsValid() {
		return
	}
	s := mod.Stmts.Get(id)
	dumpIndent(out, depth)
	switch s.Kind {
	case ast.StmtExpr:
		fmt.Fprintln(out, "ExprStmt")
		dumpExpr(out, mod, s.Expr, depth+1)
	case ast.StmtVarDecl:
		fmt.Fprintf(out, "VarDecl %s\n", s.Name)
		dumpExpr(out, mod, s.Expr, depth+1)
	case ast.StmtReturn:
		fmt.Fprintln(out, "Return")
		dumpExpr(out, mod, s.Expr, depth+1)
	case ast.StmtIf:
		fmt.Fprintln(out, "If")
		dumpExpr(out, mod, s.Cond, depth+1)
		for _, st := range s.Then {
			dumpStmt(out, mod, st, depth+1)
		}
		if len(s.Else) > 0 {
			dumpIndent(out, depth)
			fmt.Fprintln(out, "Else")
			for _, st := range s.Else {
				dumpStmt(out, mod, st, depth+1)
			}
		}
	case ast.StmtWhile:
		fmt.Fprintln(out, "While")
		dumpExpr(out, mod, s.Cond, depth+1)
		for _, st := range s.Body {
			dumpStmt(out, mod, st, depth+1)
		}
	case ast.StmtBreak:
		fmt.Fprintln(out, "Break")
	case ast.StmtContinue:
		fmt.Fprintln(out, "Continue")
	case ast.StmtBlock:
		fmt.Fprintln(out, "Block")
		for _, st := range s.Stmts {
			dumpStmt(out, mod, st, depth+1)
		}
	default:
		fmt.Fprintln(out, "?")
	}
}
