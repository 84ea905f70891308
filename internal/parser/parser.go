// Package parser builds an internal/ast.Module from Candor source text
// via a small recursive-descent + precedence-climbing parser.
package parser

import (
	"fmt"

	"candor/internal/ast"
	"candor/internal/lexer"
	"candor/internal/source"
	"candor/internal/token"
)

// Parser consumes a token stream and builds ast nodes.
type Parser struct {
	lx   *lexer.Lexer
	file source.FileID
	mod  *ast.Module
	cur  token.Token
	errs []error
}

// New returns a Parser over src, tagging every Span with fileID.
func New(src string, fileID source.FileID) *Parser {
	p := &Parser{lx: lexer.New(src), file: fileID, mod: ast.NewModule()}
	p.cur = p.lx.Next()
	return p
}

// Errors returns every parse error accumulated during ParseModule.
func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) span(start, end uint32) source.Span {
	return source.Span{File: p.file, Start: start, End: end}
}

func (p *Parser) advance() token.Token {
	t := p.cur
	p.cur = p.lx.Next()
	return t
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.cur.Kind != k {
		p.errorf("expected %s, got %s %q", k, p.cur.Kind, p.cur.Text)
		return p.cur
	}
	return p.advance()
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf("at %d: %s", p.cur.Start, fmt.Sprintf(format, args...)))
}

// ParseModule parses every top-level `fn` declaration until EOF.
func (p *Parser) ParseModule() (*ast.Module, error) {
	for p.cur.Kind != token.EOF {
		if p.cur.Kind != token.KwFn {
			p.errorf("expected top-level function, got %s", p.cur.Kind)
			p.advance()
			continue
		}
		id := p.parseFuncLit(true)
		if id.IsValid() {
			p.mod.Funcs = append(p.mod.Funcs, id)
		}
	}
	if len(p.errs) > 0 {
		return p.mod, p.errs[0]
	}
	return p.mod, nil
}

func (p *Parser) parseFuncLit(named bool) ast.ExprID {
	start := p.cur.Start
	p.expect(token.KwFn)
	name := ""
	if named {
		name = p.expect(token.Ident).Text
	} else if p.cur.Kind == token.Ident {
		name = p.advance().Text
	}
	p.expect(token.LParen)
	var params []ast.Param
	for p.cur.Kind != token.RParen {
		pname := p.expect(token.Ident).Text
		vararg := false
		if p.cur.Kind == token.Ellipsis {
			p.advance()
			vararg = true
		}
		params = append(params, ast.Param{Name: pname, IsVararg: vararg})
		if p.cur.Kind == token.Comma {
			p.advance()
			continue
		}
		break
	}
	end := p.cur.End
	p.expect(token.RParen)
	body := p.parseBlockStmts()
	e := ast.Expr{Kind: ast.ExprFuncLit, Span: p.span(start, end), FuncName: name, Params: params, Body: body}
	return p.mod.Exprs.Add(e)
}

func (p *Parser) parseBlockStmts() []ast.StmtID {
	p.expect(token.LBrace)
	var stmts []ast.StmtID
	for p.cur.Kind != token.RBrace && p.cur.Kind != token.EOF {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(token.RBrace)
	return stmts
}

func (p *Parser) parseStmt() ast.StmtID {
	start := p.cur.Start
	switch p.cur.Kind {
	case token.KwReturn:
		p.advance()
		var val ast.ExprID
		if p.cur.Kind != token.Semicolon {
			val = p.parseExpr()
		}
		end := p.cur.End
		p.expect(token.Semicolon)
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtReturn, Span: p.span(start, end), Expr: val})

	case token.KwVar:
		p.advance()
		name := p.expect(token.Ident).Text
		p.expect(token.Assign)
		val := p.parseExpr()
		end := p.cur.End
		p.expect(token.Semicolon)
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtVarDecl, Span: p.span(start, end), Name: name, Expr: val})

	case token.KwIf:
		p.advance()
		p.expect(token.LParen)
		cond := p.parseExpr()
		p.expect(token.RParen)
		then := p.parseBlockStmts()
		var els []ast.StmtID
		if p.cur.Kind == token.KwElse {
			p.advance()
			if p.cur.Kind == token.KwIf {
				els = []ast.StmtID{p.parseStmt()}
			} else {
				els = p.parseBlockStmts()
			}
		}
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtIf, Span: p.span(start, p.cur.End), Cond: cond, Then: then, Else: els})

	case token.KwWhile:
		p.advance()
		p.expect(token.LParen)
		cond := p.parseExpr()
		p.expect(token.RParen)
		body := p.parseBlockStmts()
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtWhile, Span: p.span(start, p.cur.End), Cond: cond, Body: body})

	case token.KwBreak:
		p.advance()
		end := p.cur.End
		p.expect(token.Semicolon)
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtBreak, Span: p.span(start, end)})

	case token.KwContinue:
		p.advance()
		end := p.cur.End
		p.expect(token.Semicolon)
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtContinue, Span: p.span(start, end)})

	case token.LBrace:
		stmts := p.parseBlockStmts()
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtBlock, Span: p.span(start, p.cur.End), Stmts: stmts})

	default:
		val := p.parseExpr()
		end := p.cur.End
		p.expect(token.Semicolon)
		return p.mod.Stmts.Add(ast.Stmt{Kind: ast.StmtExpr, Span: p.span(start, end), Expr: val})
	}
}

// parseExpr parses an assignment expression: the lowest precedence level.
func (p *Parser) parseExpr() ast.ExprID {
	lhs := p.parseLogicalOr()
	if p.cur.Kind == token.Assign {
		start := p.mod.Exprs.Get(lhs).Span.Start
		p.advance()
		rhs := p.parseExpr()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprAssign, Span: p.span(start, p.cur.End), X: lhs, Y: rhs})
	}
	return lhs
}

func (p *Parser) parseLogicalOr() ast.ExprID {
	lhs := p.parseLogicalAnd()
	for p.cur.Kind == token.OrOr {
		start := p.mod.Exprs.Get(lhs).Span.Start
		p.advance()
		rhs := p.parseLogicalAnd()
		lhs = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprLogical, Span: p.span(start, p.cur.End), X: lhs, Y: rhs, IsAnd: false})
	}
	return lhs
}

func (p *Parser) parseLogicalAnd() ast.ExprID {
	lhs := p.parseEquality()
	for p.cur.Kind == token.AndAnd {
		start := p.mod.Exprs.Get(lhs).Span.Start
		p.advance()
		rhs := p.parseEquality()
		lhs = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprLogical, Span: p.span(start, p.cur.End), X: lhs, Y: rhs, IsAnd: true})
	}
	return lhs
}

type binLevel struct {
	kinds map[token.Kind]ast.BinOp
	next  func(*Parser) ast.ExprID
}

func (p *Parser) parseBinary(kinds map[token.Kind]ast.BinOp, next func(*Parser) ast.ExprID) ast.ExprID {
	lhs := next(p)
	for {
		op, ok := kinds[p.cur.Kind]
		if !ok {
			return lhs
		}
		start := p.mod.Exprs.Get(lhs).Span.Start
		p.advance()
		rhs := next(p)
		lhs = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprBinary, Span: p.span(start, p.cur.End), BinOp: op, X: lhs, Y: rhs})
	}
}

func (p *Parser) parseEquality() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{token.Eq: ast.OpEq, token.Ne: ast.OpNe}, (*Parser).parseRelational)
}
func (p *Parser) parseRelational() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{
		token.Lt: ast.OpLt, token.Le: ast.OpLe, token.Gt: ast.OpGt, token.Ge: ast.OpGe,
	}, (*Parser).parseBitOr)
}
func (p *Parser) parseBitOr() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{token.BitOr: ast.OpBitOr}, (*Parser).parseBitXor)
}
func (p *Parser) parseBitXor() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{token.BitXor: ast.OpBitXor}, (*Parser).parseBitAnd)
}
func (p *Parser) parseBitAnd() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{token.BitAnd: ast.OpBitAnd}, (*Parser).parseShift)
}
func (p *Parser) parseShift() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{token.Shl: ast.OpShl, token.Shr: ast.OpShr}, (*Parser).parseAdditive)
}
func (p *Parser) parseAdditive() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{token.Plus: ast.OpAdd, token.Minus: ast.OpSub}, (*Parser).parseMultiplicative)
}
func (p *Parser) parseMultiplicative() ast.ExprID {
	return p.parseBinary(map[token.Kind]ast.BinOp{
		token.Star: ast.OpMul, token.Slash: ast.OpDiv, token.Percent: ast.OpMod,
	}, (*Parser).parseUnary)
}

func (p *Parser) parseUnary() ast.ExprID {
	start := p.cur.Start
	switch p.cur.Kind {
	case token.Minus:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprUnary, Span: p.span(start, p.cur.End), UnOp: ast.OpNeg, X: x})
	case token.Not:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprUnary, Span: p.span(start, p.cur.End), UnOp: ast.OpNot, X: x})
	case token.KwTypeof:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprTypeof, Span: p.span(start, p.cur.End), X: x})
	case token.KwSizeof:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprSizeof, Span: p.span(start, p.cur.End), X: x})
	case token.KwKeysof:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprKeysof, Span: p.span(start, p.cur.End), X: x})
	case token.KwClone:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprClone, Span: p.span(start, p.cur.End), X: x})
	case token.KwDelete:
		p.advance()
		x := p.parseUnary()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprDelete, Span: p.span(start, p.cur.End), X: x})
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.ExprID {
	e := p.parsePrimary()
	for {
		start := p.mod.Exprs.Get(e).Span.Start
		switch p.cur.Kind {
		case token.Dot:
			p.advance()
			name := p.expect(token.Ident).Text
			e = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprProperty, Span: p.span(start, p.cur.End), Object: e, Prop: name})
		case token.LBracket:
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			e = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprIndex, Span: p.span(start, p.cur.End), Object: e, Y: idx})
		case token.LParen:
			p.advance()
			var args []ast.ExprID
			for p.cur.Kind != token.RParen {
				arg := p.parseExpr()
				if p.cur.Kind == token.Ellipsis {
					argStart := p.mod.Exprs.Get(arg).Span.Start
					p.advance()
					arg = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprSpread, Span: p.span(argStart, p.cur.End), X: arg})
				}
				args = append(args, arg)
				if p.cur.Kind == token.Comma {
					p.advance()
					continue
				}
				break
			}
			p.expect(token.RParen)
			e = p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprCall, Span: p.span(start, p.cur.End), Callee: e, Args: args})
		case token.Ellipsis:
			// trailing spread without a call, e.g. `b...` used directly as an
			// argument expression handled by the call-site above; bare use
			// outside a call argument list is a parse error.
			p.errorf("'...' is only valid on a call argument")
			return e
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.ExprID {
	start := p.cur.Start
	switch p.cur.Kind {
	case token.Number:
		t := p.advance()
		var v float64
		fmt.Sscanf(t.Text, "%g", &v)
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprNumber, Span: p.span(start, t.End), NumberLit: v})
	case token.String:
		t := p.advance()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprString, Span: p.span(start, t.End), StringLit: t.Text})
	case token.KwTrue:
		t := p.advance()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprBool, Span: p.span(start, t.End), BoolLit: true})
	case token.KwFalse:
		t := p.advance()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprBool, Span: p.span(start, t.End), BoolLit: false})
	case token.KwNil:
		t := p.advance()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprNilLit, Span: p.span(start, t.End)})
	case token.Ident:
		t := p.advance()
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprIdent, Span: p.span(start, t.End), Name: t.Text})
	case token.KwFn:
		return p.parseFuncLit(false)
	case token.LParen:
		p.advance()
		e := p.parseExpr()
		p.expect(token.RParen)
		return e
	case token.LBracket:
		p.advance()
		var elems []ast.ExprID
		for p.cur.Kind != token.RBracket {
			elems = append(elems, p.parseExpr())
			if p.cur.Kind == token.Comma {
				p.advance()
				continue
			}
			break
		}
		end := p.cur.End
		p.expect(token.RBracket)
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprArrayLit, Span: p.span(start, end), Elems: elems})
	case token.LBrace:
		p.advance()
		var fields []ast.ObjectField
		for p.cur.Kind != token.RBrace {
			key := p.expect(token.Ident).Text
			p.expect(token.Colon)
			val := p.parseExpr()
			fields = append(fields, ast.ObjectField{Key: key, Value: val})
			if p.cur.Kind == token.Comma {
				p.advance()
				continue
			}
			break
		}
		end := p.cur.End
		p.expect(token.RBrace)
		return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprObjectLit, Span: p.span(start, end), Fields: fields})
	}

	p.errorf("unexpected token %s %q", p.cur.Kind, p.cur.Text)
	p.advance()
	return p.mod.Exprs.Add(ast.Expr{Kind: ast.ExprInvalid, Span: p.span(start, p.cur.Start)})
}
