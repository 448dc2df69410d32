package exec

import (
	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/eval"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
)

// filterIter drops a solution when e errs or is not effectively true
// (§4.6 "errors drop").
type filterIter struct {
	in      iter.Mapping
	expr    algebra.Expr
	evalCtx eval.Context
}

func (ex *Executor) buildFilter(qctx *sparqlcontext.Context, n algebra.Filter, evalCtx eval.Context) (iter.Mapping, error) {
	in, err := ex.build(qctx, n.In)
	if err != nil {
		return nil, err
	}
	return &filterIter{in: in, expr: n.Expr, evalCtx: evalCtx}, nil
}

func (f *filterIter) Next() (binding.Mapping, error) {
	for {
		m, err := f.in.Next()
		if err != nil {
			return binding.Mapping{}, err
		}
		v, err := eval.Eval(f.expr, m, f.evalCtx)
		if err != nil {
			continue
		}
		ok, err := eval.EffectiveBoolean(v)
		if err != nil || !ok {
			continue
		}
		return m, nil
	}
}

func (f *filterIter) Close() error { return f.in.Close() }

// extendIter is BIND: on evaluation error the variable is left unbound
// rather than dropping the row (§4.6).
type extendIter struct {
	in      iter.Mapping
	varName string
	expr    algebra.Expr
	evalCtx eval.Context
}

func (ex *Executor) buildExtend(qctx *sparqlcontext.Context, n algebra.Extend, evalCtx eval.Context) (iter.Mapping, error) {
	in, err := ex.build(qctx, n.In)
	if err != nil {
		return nil, err
	}
	return &extendIter{in: in, varName: n.Var, expr: n.Expr, evalCtx: evalCtx}, nil
}

func (e *extendIter) Next() (binding.Mapping, error) {
	m, err := e.in.Next()
	if err != nil {
		return binding.Mapping{}, err
	}
	v, err := eval.Eval(e.expr, m, e.evalCtx)
	if err != nil {
		return m, nil
	}
	return m.With(e.varName, v), nil
}

func (e *extendIter) Close() error { return e.in.Close() }

// projectIter restricts each mapping to the declared variables;
// unmentioned variables are dropped and declared-but-unbound ones stay
// unbound (§4.6).
type projectIter struct {
	in   iter.Mapping
	vars []string
}

func (ex *Executor) buildProject(qctx *sparqlcontext.Context, n algebra.Project) (iter.Mapping, error) {
	in, err := ex.build(qctx, n.In)
	if err != nil {
		return nil, err
	}
	return &projectIter{in: in, vars: n.Vars}, nil
}

func (p *projectIter) Next() (binding.Mapping, error) {
	m, err := p.in.Next()
	if err != nil {
		return binding.Mapping{}, err
	}
	return m.Restrict(p.vars), nil
}

func (p *projectIter) Close() error { return p.in.Close() }

// buildDedup implements both distinct and reduced (treated as
// equivalent per §9 Open Questions): first-occurrence deduplication by
// solution equality, bucketed by Mapping.Hash to avoid an O(n^2) scan.
func (ex *Executor) buildDedup(qctx *sparqlcontext.Context, in algebra.Node) (iter.Mapping, error) {
	it, err := ex.build(qctx, in)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	rows, err := iter.Collect(it)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64][]binding.Mapping)
	var out []binding.Mapping
	for _, m := range rows {
		h := m.Hash()
		dup := false
		for _, prior := range seen[h] {
			if prior.Equal(m) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen[h] = append(seen[h], m)
		out = append(out, m)
	}
	return iter.FromSlice(out), nil
}
