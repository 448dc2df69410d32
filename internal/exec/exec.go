// Package exec implements the iterator executor (C9): one lazy,
// pull-based stream per algebra operator, composed by wrapping child
// streams the same way the teacher's rowexec package builds a
// sql.RowIter tree over a resolved plan.
package exec

import (
	"fmt"

	"github.com/opentracing/opentracing-go"
	perrors "github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/eval"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/internal/store"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// ServiceClient is the C10 contract the SERVICE operator delegates to.
// Declared here (rather than imported as a concrete type) so internal/
// service can depend on exec's types if it ever needs to, without a
// cycle; the concrete *service.Client satisfies this directly.
type ServiceClient interface {
	Query(ctx *sparqlcontext.Context, endpoint, queryText string) (iter.Mapping, error)
}

// Executor runs algebra trees against a fixed store (§5 — the store is
// read-only for the lifetime of any evaluation). Service is optional;
// a nil Service makes every SERVICE clause behave as if the remote
// call failed (propagated unless SILENT).
type Executor struct {
	store   *store.Store
	service ServiceClient
}

// New builds an Executor. svc may be nil if the query workload never
// uses SERVICE.
func New(s *store.Store, svc ServiceClient) *Executor {
	return &Executor{store: s, service: svc}
}

// Execute returns node's result stream lazily — §6.2's `execute`.
func (ex *Executor) Execute(qctx *sparqlcontext.Context, node algebra.Node) (iter.Mapping, error) {
	span, _ := opentracing.StartSpanFromContext(qctx, "sparql.Execute")
	defer span.Finish()
	return ex.build(qctx, node)
}

// ExecuteAll drains node's stream into a slice — §6.2's `execute_all`.
func (ex *Executor) ExecuteAll(qctx *sparqlcontext.Context, node algebra.Node) ([]binding.Mapping, error) {
	span, _ := opentracing.StartSpanFromContext(qctx, "sparql.ExecuteAll")
	defer span.Finish()

	it, err := ex.build(qctx, node)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	return iter.Collect(it)
}

// ExecuteAsk evaluates an Ask root, short-circuiting on the first
// result (§4.6).
func (ex *Executor) ExecuteAsk(qctx *sparqlcontext.Context, ask algebra.Ask) (bool, error) {
	span, _ := opentracing.StartSpanFromContext(qctx, "sparql.ExecuteAsk")
	defer span.Finish()

	it, err := ex.build(qctx, ask.Where)
	if err != nil {
		return false, err
	}
	defer it.Close()

	_, err = it.Next()
	if err == iter.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ExecuteConstruct evaluates a Construct root, instantiating the
// template once per solution. Template triples with any unbound
// position are skipped; output is not deduplicated (§4.6). A blank node
// named in the template is freshened with a new identifier for every
// solution (§16.2.3: one template application must not share a blank
// node's identity across different solutions), while every triple
// instantiated from the *same* solution shares the same freshened
// identifier for a given template blank node name.
func (ex *Executor) ExecuteConstruct(qctx *sparqlcontext.Context, c algebra.Construct) ([]store.Triple, error) {
	span, _ := opentracing.StartSpanFromContext(qctx, "sparql.ExecuteConstruct")
	defer span.Finish()

	it, err := ex.build(qctx, c.Where)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []store.Triple
	for {
		m, err := it.Next()
		if err == iter.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		fresh := make(map[string]term.BlankNode)
		for _, tmpl := range c.Template {
			t, ok := instantiateTemplate(tmpl, m, fresh)
			if ok {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func instantiateTemplate(tmpl algebra.ConstructTemplate, m binding.Mapping, fresh map[string]term.BlankNode) (store.Triple, bool) {
	s, ok := resolveTemplateTerm(tmpl.Subject, m, fresh)
	if !ok {
		return store.Triple{}, false
	}
	p, ok := resolveTemplateTerm(tmpl.Predicate, m, fresh)
	if !ok {
		return store.Triple{}, false
	}
	predIRI, ok := p.(term.IRI)
	if !ok {
		return store.Triple{}, false
	}
	o, ok := resolveTemplateTerm(tmpl.Object, m, fresh)
	if !ok {
		return store.Triple{}, false
	}
	return store.Triple{Subject: s, Predicate: predIRI, Object: o}, true
}

// resolveTemplateTerm resolves a CONSTRUCT template position: a
// Variable substitutes the solution's binding (ok=false if unbound), a
// BlankNode is replaced with this solution's freshened identifier, and
// any other bound term passes through unchanged (§4.6).
func resolveTemplateTerm(t term.Term, m binding.Mapping, fresh map[string]term.BlankNode) (term.Term, bool) {
	switch x := t.(type) {
	case term.Variable:
		return m.Get(x.Name)
	case term.BlankNode:
		if b, ok := fresh[x.ID]; ok {
			return b, true
		}
		id, _ := uuid.NewV4()
		b := term.NewBlankNode(id.String())
		fresh[x.ID] = b
		return b, true
	default:
		return t, true
	}
}

// build dispatches on the algebra node kind and returns its lazy
// stream. Unsupported/invalid shapes are infrastructure errors (§7
// ExecutorError): they always indicate a bug in translate/optimize,
// never a per-solution condition.
func (ex *Executor) build(qctx *sparqlcontext.Context, node algebra.Node) (iter.Mapping, error) {
	evalCtx := ex.evalContext(qctx)

	switch n := node.(type) {
	case algebra.Select:
		return ex.build(qctx, n.In)
	case algebra.Subquery:
		return ex.build(qctx, n.In)
	case algebra.BGP:
		return bgpEval(ex.store, n)
	case algebra.Values:
		return valuesEval(n), nil
	case algebra.Join:
		return ex.buildJoin(qctx, n)
	case algebra.LeftJoin:
		return ex.buildLeftJoin(qctx, n, evalCtx)
	case algebra.Union:
		return ex.buildUnion(qctx, n)
	case algebra.Minus:
		return ex.buildMinus(qctx, n)
	case algebra.Filter:
		return ex.buildFilter(qctx, n, evalCtx)
	case algebra.Extend:
		return ex.buildExtend(qctx, n, evalCtx)
	case algebra.Project:
		return ex.buildProject(qctx, n)
	case algebra.Distinct:
		return ex.buildDedup(qctx, n.In)
	case algebra.Reduced:
		return ex.buildDedup(qctx, n.In) // reduced ≡ distinct (§9 Open Question)
	case algebra.OrderBy:
		return ex.buildOrderBy(qctx, n, evalCtx)
	case algebra.Slice:
		return ex.buildSlice(qctx, n)
	case algebra.Group:
		return ex.buildGroup(qctx, n, evalCtx)
	case algebra.Service:
		return ex.buildService(qctx, n)
	default:
		return nil, sparqlerr.ErrExecute.New(fmt.Sprintf("unsupported algebra node %T", node))
	}
}

// evalContext wires the expression evaluator's EXISTS hook back into
// this executor without eval importing exec: EXISTS{P} holds iff the
// join of the current mapping with P's solutions is non-empty, exactly
// the same compatibility test the Join operator itself uses.
func (ex *Executor) evalContext(qctx *sparqlcontext.Context) eval.Context {
	return eval.Context{
		Exists: func(pattern algebra.Node, m binding.Mapping) (bool, error) {
			it, err := ex.build(qctx, pattern)
			if err != nil {
				return false, err
			}
			defer it.Close()
			rows, err := iter.Collect(it)
			if err != nil {
				return false, err
			}
			for _, r := range rows {
				if m.Compatible(r) {
					return true, nil
				}
			}
			return false, nil
		},
	}
}

func bgpWrapErr(err error) error {
	if err == nil {
		return nil
	}
	return perrors.Wrap(err, "bgp evaluation failed")
}
