package exec

import (
	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/eval"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
)

// joinIter is the nested-loop join (§4.6): the right side is evaluated
// once and cached, then scanned in full for every left mapping — left
// order is preserved, as the spec requires when no orderby follows.
type joinIter struct {
	left    iter.Mapping
	right   []binding.Mapping
	curLeft binding.Mapping
	haveCur bool
	idx     int
}

func (ex *Executor) buildJoin(qctx *sparqlcontext.Context, n algebra.Join) (iter.Mapping, error) {
	left, err := ex.build(qctx, n.Left)
	if err != nil {
		return nil, err
	}
	rightIt, err := ex.build(qctx, n.Right)
	if err != nil {
		left.Close()
		return nil, err
	}
	right, err := iter.Collect(rightIt)
	rightIt.Close()
	if err != nil {
		left.Close()
		return nil, err
	}
	return &joinIter{left: left, right: right}, nil
}

func (j *joinIter) Next() (binding.Mapping, error) {
	for {
		if !j.haveCur {
			m, err := j.left.Next()
			if err != nil {
				return binding.Mapping{}, err
			}
			j.curLeft = m
			j.haveCur = true
			j.idx = 0
		}
		for j.idx < len(j.right) {
			r := j.right[j.idx]
			j.idx++
			if j.curLeft.Compatible(r) {
				return j.curLeft.Merge(r), nil
			}
		}
		j.haveCur = false
	}
}

func (j *joinIter) Close() error { return j.left.Close() }

// leftJoinIter is OPTIONAL (§4.6): yield every compatible, filter-
// satisfying merge for the current left row; if none exists, yield the
// left row unchanged exactly once.
type leftJoinIter struct {
	left      iter.Mapping
	right     []binding.Mapping
	expr      algebra.Expr
	evalCtx   eval.Context
	curLeft   binding.Mapping
	haveCur   bool
	idx       int
	matchedAny bool
}

func (ex *Executor) buildLeftJoin(qctx *sparqlcontext.Context, n algebra.LeftJoin, evalCtx eval.Context) (iter.Mapping, error) {
	left, err := ex.build(qctx, n.Left)
	if err != nil {
		return nil, err
	}
	rightIt, err := ex.build(qctx, n.Right)
	if err != nil {
		left.Close()
		return nil, err
	}
	right, err := iter.Collect(rightIt)
	rightIt.Close()
	if err != nil {
		left.Close()
		return nil, err
	}
	return &leftJoinIter{left: left, right: right, expr: n.Expr, evalCtx: evalCtx}, nil
}

func (l *leftJoinIter) Next() (binding.Mapping, error) {
	for {
		if !l.haveCur {
			m, err := l.left.Next()
			if err != nil {
				return binding.Mapping{}, err
			}
			l.curLeft = m
			l.haveCur = true
			l.idx = 0
			l.matchedAny = false
		}
		for l.idx < len(l.right) {
			r := l.right[l.idx]
			l.idx++
			if !l.curLeft.Compatible(r) {
				continue
			}
			merged := l.curLeft.Merge(r)
			if l.expr != nil {
				v, err := eval.Eval(l.expr, merged, l.evalCtx)
				if err != nil {
					continue
				}
				ok, err := eval.EffectiveBoolean(v)
				if err != nil || !ok {
					continue
				}
			}
			l.matchedAny = true
			return merged, nil
		}
		l.haveCur = false
		if !l.matchedAny {
			l.matchedAny = true
			return l.curLeft, nil
		}
	}
}

func (l *leftJoinIter) Close() error { return l.left.Close() }

// unionIter yields every left mapping, then every right mapping
// (stable L-then-R, §4.6).
type unionIter struct {
	left, right iter.Mapping
	onLeft      bool
}

func (ex *Executor) buildUnion(qctx *sparqlcontext.Context, n algebra.Union) (iter.Mapping, error) {
	left, err := ex.build(qctx, n.Left)
	if err != nil {
		return nil, err
	}
	right, err := ex.build(qctx, n.Right)
	if err != nil {
		left.Close()
		return nil, err
	}
	return &unionIter{left: left, right: right, onLeft: true}, nil
}

func (u *unionIter) Next() (binding.Mapping, error) {
	if u.onLeft {
		m, err := u.left.Next()
		if err == nil {
			return m, nil
		}
		if err != iter.EOF {
			return binding.Mapping{}, err
		}
		u.onLeft = false
	}
	return u.right.Next()
}

func (u *unionIter) Close() error {
	err1 := u.left.Close()
	err2 := u.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// buildMinus implements SPARQL 1.1 §8.3.4: μ_L is removed iff some
// μ_R is Compatible with it *and* shares at least one variable;
// disjoint-domain rows are never removed.
func (ex *Executor) buildMinus(qctx *sparqlcontext.Context, n algebra.Minus) (iter.Mapping, error) {
	leftIt, err := ex.build(qctx, n.Left)
	if err != nil {
		return nil, err
	}
	rightIt, err := ex.build(qctx, n.Right)
	if err != nil {
		leftIt.Close()
		return nil, err
	}
	right, err := iter.Collect(rightIt)
	rightIt.Close()
	if err != nil {
		leftIt.Close()
		return nil, err
	}
	leftRows, err := iter.Collect(leftIt)
	leftIt.Close()
	if err != nil {
		return nil, err
	}

	var out []binding.Mapping
	for _, l := range leftRows {
		excluded := false
		for _, r := range right {
			if l.Compatible(r) && l.SharesVariableWith(r) {
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, l)
		}
	}
	return iter.FromSlice(out), nil
}
