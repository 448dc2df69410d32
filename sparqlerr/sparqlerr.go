// Package sparqlerr defines the typed error taxonomy raised by the
// query-evaluation pipeline: parse, translate, execute, service and
// evaluation errors (the optimizer raises none). Each kind is raised with .New(...) and carries a
// stack trace via gopkg.in/src-d/go-errors.v1, the same pattern the
// surrounding engine uses for its own error families.
package sparqlerr

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrParse wraps a syntax error surfaced by the SPARQL text parser.
	// The engine never tries to recover from it; it is returned to the
	// caller unchanged.
	ErrParse = errors.NewKind("sparql: parse error: %s")

	// ErrTranslate covers an AST shape the translator does not
	// recognize or an internally inconsistent one (e.g. a unary path
	// operator with other than one child).
	ErrTranslate = errors.NewKind("sparql: translate error: %s")

	// ErrUnsupportedNode names the offending AST node kind.
	ErrUnsupportedNode = errors.NewKind("sparql: unsupported AST node %q")

	// ErrUnknownFunction is raised by the translator or evaluator when
	// a function call names something outside the supported set.
	ErrUnknownFunction = errors.NewKind("sparql: unknown function %q")

	// ErrExecute covers infrastructure failures inside the executor:
	// a store fault or an invariant violated by the algebra tree being
	// evaluated. Unlike per-solution evaluation errors, these terminate
	// the result stream.
	ErrExecute = errors.NewKind("sparql: execution error: %s")

	// ErrService covers a SERVICE round-trip failure (network, non-2xx,
	// malformed JSON results). It propagates as ErrExecute unless the
	// SERVICE clause is marked SILENT.
	ErrService = errors.NewKind("sparql: service error: %s")

	// ErrEval is a per-solution expression evaluation failure: a type
	// error, a bad argument, an unbound operand. Never crosses the
	// stream boundary — filter drops the mapping, extend leaves the
	// target variable unbound.
	ErrEval = errors.NewKind("sparql: evaluation error: %s")
)
