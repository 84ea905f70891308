package diag

import "candor/internal/source"

// Note attaches secondary context (e.g. "declared here") to a Diagnostic.
type Note struct {
	Span source.Span
	Msg  string
}

// FixEdit is a single text replacement of Span's current content.
type FixEdit struct {
	Span    source.Span
	NewText string
}

// Fix is a suggested, mechanically applicable correction.
type Fix struct {
	Title string
	Edits []FixEdit
}

// Diagnostic is the central record produced by every compiler phase:
// the lexer/parser for lex/syntax errors, the HIR builder for the
// closed error taxonomy of spec.md §7.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}
