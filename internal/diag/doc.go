// Package diag defines the diagnostic model shared by the lexer,
// parser, and HIR builder (spec.md §7's closed error taxonomy).
//
// Diagnostic is the central record: a Severity, a Code, a Message, a
// primary source.Span, optional Notes for secondary context, and
// optional Fixes. Phases emit through a Reporter — typically a
// BagReporter backed by a Bag, which supports sorting and
// deduplication for deterministic CLI and golden-file output.
// FormatGoldenDiagnostics/FormatShortDiagnostics in golden.go render a
// Bag's contents to the single-line-per-entry text cmd/candor and the
// test suite compare against.
package diag
