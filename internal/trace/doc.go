// Package trace provides a tracing subsystem for the Candor compiler
// and runtime.
//
// Two places emit spans today: internal/exec opens one
// "exec.compile:<function>" span per function it compiles, and
// internal/gc opens one "gc" span per collection.
//
// # Usage
//
// No candor subcommand has a tracing flag. A Tracer built with New is
// passed to candor.NewIsolate or exec.NewEngine, which also hands it to
// the GC collector; a nil Tracer disables tracing.
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - NopTracer: Zero-overhead no-op tracer when disabled
//   - StreamTracer: Immediate write to output (file/stderr)
//   - RingTracer: Circular buffer for crash dumps
//   - MultiTracer: Combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: No tracing
//   - LevelError: No scoped events; only heartbeats are recorded
//   - LevelPhase: Driver and pass boundaries
//   - LevelDetail: Module-level events
//   - LevelDebug: Everything including AST nodes
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: Top-level CLI operations
//   - ScopeModule: Per-module processing
//   - ScopePass: Compilation phases (lex, parse, hir-build, lower, regalloc)
//   - ScopeNode: AST node level (future)
//
// # Context Propagation
//
// Tracers are propagated through the compilation pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePass, "parse", parentID)
//	defer span.End("")
package trace
