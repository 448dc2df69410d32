package exec

import (
	"sort"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/eval"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
)

// buildOrderBy buffers In, then stable-sorts by the comparator list
// (§4.6). A comparator expression that errors to evaluate (typically
// an unbound variable) sorts as "unbound", which orders below every
// bound value.
func (ex *Executor) buildOrderBy(qctx *sparqlcontext.Context, n algebra.OrderBy, evalCtx eval.Context) (iter.Mapping, error) {
	it, err := ex.build(qctx, n.In)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	rows, err := iter.Collect(it)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, cmp := range n.Comparators {
			vi, oki := evalOrderKey(cmp.Expr, rows[i], evalCtx)
			vj, okj := evalOrderKey(cmp.Expr, rows[j], evalCtx)
			c := compareOrderKeys(vi, oki, vj, okj)
			if c == 0 {
				continue
			}
			if cmp.Dir == algebra.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return iter.FromSlice(rows), nil
}

func evalOrderKey(e algebra.Expr, m binding.Mapping, ctx eval.Context) (term.Term, bool) {
	v, err := eval.Eval(e, m, ctx)
	if err != nil {
		return nil, false
	}
	return v, true
}

// compareOrderKeys orders unbound below any bound value; two unbounds
// compare equal.
func compareOrderKeys(a term.Term, aBound bool, b term.Term, bBound bool) int {
	if !aBound && !bBound {
		return 0
	}
	if !aBound {
		return -1
	}
	if !bBound {
		return 1
	}
	return a.Compare(b)
}

// buildSlice applies OFFSET then LIMIT lazily: rows are still pulled
// one at a time from In, so a query that stops early (LIMIT or a
// caller abort) never forces evaluation past what was asked for (§5).
type sliceIter struct {
	in       iter.Mapping
	skip     int64
	limit    int64
	hasLimit bool
	emitted  int64
	skipped  bool
}

func (ex *Executor) buildSlice(qctx *sparqlcontext.Context, n algebra.Slice) (iter.Mapping, error) {
	in, err := ex.build(qctx, n.In)
	if err != nil {
		return nil, err
	}
	s := &sliceIter{in: in}
	if n.Offset != nil {
		s.skip = *n.Offset
	}
	if n.Limit != nil {
		s.hasLimit = true
		s.limit = *n.Limit
	}
	return s, nil
}

func (s *sliceIter) Next() (binding.Mapping, error) {
	if !s.skipped {
		for i := int64(0); i < s.skip; i++ {
			if _, err := s.in.Next(); err != nil {
				return binding.Mapping{}, err
			}
		}
		s.skipped = true
	}
	if s.hasLimit && s.emitted >= s.limit {
		return binding.Mapping{}, iter.EOF
	}
	m, err := s.in.Next()
	if err != nil {
		return binding.Mapping{}, err
	}
	s.emitted++
	return m, nil
}

func (s *sliceIter) Close() error { return s.in.Close() }
