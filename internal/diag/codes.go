package diag

import "fmt"

// Code is a compact, stable identifier for a diagnostic. Candor's
// grammar and HIR builder recognize a small, closed set of error
// shapes (spec.md §7); the code space stays deliberately narrow.
type Code uint16

const (
	UnknownCode Code = 0

	// Lexical errors.
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003

	// Syntax errors.
	SynInfo               Code = 2000
	SynUnexpectedToken    Code = 2001
	SynExpectSemicolon    Code = 2002
	SynExpectExpression   Code = 2003
	SynSpreadNotLastArg   Code = 2004
	SynVariadicMustBeLast Code = 2005
	SynExpectIdentifier   Code = 2006

	// HIR-build errors, the closed taxonomy of spec.md §7.
	HirInfo                Code = 3000
	HirIncorrectLhs        Code = 3001
	HirCallWithoutVariable Code = 3002
	HirExpectedLoop        Code = 3003

	// Driver / CLI informational codes.
	DriverInfo    Code = 4000
	DriverTimings Code = 4001
)

func (c Code) codePrefix() string {
	switch {
	case c >= 1000 && c < 2000:
		return "LEX"
	case c >= 2000 && c < 3000:
		return "SYN"
	case c >= 3000 && c < 4000:
		return "HIR"
	case c >= 4000 && c < 5000:
		return "DRV"
	default:
		return "GEN"
	}
}

var codeDescription = map[Code]string{
	UnknownCode:            "unknown diagnostic",
	LexInfo:                "lexical information",
	LexUnknownChar:         "unknown character",
	LexUnterminatedString:  "unterminated string literal",
	LexBadNumber:           "malformed number literal",
	SynInfo:                "syntax information",
	SynUnexpectedToken:     "unexpected token",
	SynExpectSemicolon:     "expected ';'",
	SynExpectExpression:    "expected an expression",
	SynSpreadNotLastArg:    "'...' is only valid on the last call argument",
	SynVariadicMustBeLast:  "variadic parameter must be last",
	SynExpectIdentifier:    "expected an identifier",
	HirInfo:                "HIR build information",
	HirIncorrectLhs:        "assignment target is not an lvalue",
	HirCallWithoutVariable: "method call has no receiver variable",
	HirExpectedLoop:        "'break'/'continue' used outside a loop",
	DriverInfo:             "informational",
	DriverTimings:          "pipeline timings",
}

// ID renders the code as a short "PREFIXnnnn" string, e.g. "HIR3001".
func (c Code) ID() string {
	return fmt.Sprintf("%s%04d", c.codePrefix(), uint16(c))
}

// Title returns the short human-readable description registered for c.
func (c Code) Title() string {
	if d, ok := codeDescription[c]; ok {
		return d
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
