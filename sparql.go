// Package sparql is the top-level façade over the query engine: the
// same role engine.go's Engine plays for the teacher — one entry point
// wiring the store, translator, optimizer and executor together for a
// caller that already has a parsed query AST (§6.1's grammar-level
// tokenizer/parser is out of scope, §1).
package sparql

import (
	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/ast"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/exec"
	"github.com/exocortex-kb/sparqlengine/internal/optimize"
	"github.com/exocortex-kb/sparqlengine/internal/store"
	"github.com/exocortex-kb/sparqlengine/internal/translate"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// Engine exposes §6.2's library surface: Store, Translator, Optimizer
// and Executor, composed behind Select/Ask/Construct.
type Engine struct {
	store    *store.Store
	executor *exec.Executor
}

// New builds an Engine over s. svc is the SERVICE client (§4.7); nil
// is valid for workloads that never issue a SERVICE clause.
func New(s *store.Store, svc exec.ServiceClient) *Engine {
	return &Engine{store: s, executor: exec.New(s, svc)}
}

// Store returns the engine's underlying triple store (C2).
func (e *Engine) Store() *store.Store { return e.store }

// Plan translates and optimizes q into an algebra tree, without
// executing it — exposed for callers that want to inspect or cache a
// plan (e.g. the optimizer-equivalence property in §8).
func (e *Engine) Plan(q *ast.Query) (algebra.Node, error) {
	node, err := translate.Translate(q)
	if err != nil {
		return nil, err
	}
	return optimize.Optimize(node), nil
}

// Select runs a SELECT query to completion, returning every solution
// mapping (§6.2 execute_all).
func (e *Engine) Select(qctx *sparqlcontext.Context, q *ast.Query) ([]binding.Mapping, error) {
	node, err := e.Plan(q)
	if err != nil {
		return nil, err
	}
	return e.executor.ExecuteAll(qctx, node)
}

// Ask runs an ASK query (§6.2 execute_ask).
func (e *Engine) Ask(qctx *sparqlcontext.Context, q *ast.Query) (bool, error) {
	node, err := e.Plan(q)
	if err != nil {
		return false, err
	}
	ask, ok := node.(algebra.Ask)
	if !ok {
		return false, sparqlerr.ErrExecute.New("Ask called on a non-ASK query")
	}
	return e.executor.ExecuteAsk(qctx, ask)
}

// Construct runs a CONSTRUCT query, returning the instantiated triples
// (§6.2 execute_construct). Output is not deduplicated (§4.6).
func (e *Engine) Construct(qctx *sparqlcontext.Context, q *ast.Query) ([]store.Triple, error) {
	node, err := e.Plan(q)
	if err != nil {
		return nil, err
	}
	c, ok := node.(algebra.Construct)
	if !ok {
		return nil, sparqlerr.ErrExecute.New("Construct called on a non-CONSTRUCT query")
	}
	return e.executor.ExecuteConstruct(qctx, c)
}
