package exec

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/eval"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
)

// bucket accumulates one GROUP BY bucket: the resolved key bindings
// plus, per declared aggregate, every successfully-evaluated value
// seen so far (kept as a slice rather than folded online, since
// AVG/GROUP_CONCAT/DISTINCT all need the full set to finalize).
type bucket struct {
	keyVals  []term.Term // parallel to Group.Keys, nil entry = unbound
	rowCount int
	values   [][]aggSample // values[i] = samples seen for Aggs[i]
}

type aggSample struct {
	term term.Term
	key  string // dedup key for DISTINCT
}

// buildGroup materializes In and folds it into buckets keyed by the
// grouping expressions' evaluated values (§4.6): rows whose full key
// tuple matches (unbound-for-unbound included) share a bucket, so all
// rows with an unbound key component at the same position and equal
// bound components land together; only a *different* bound value forms
// a different bucket.
func (ex *Executor) buildGroup(qctx *sparqlcontext.Context, n algebra.Group, evalCtx eval.Context) (iter.Mapping, error) {
	it, err := ex.build(qctx, n.In)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	rows, err := iter.Collect(it)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	if len(n.Keys) == 0 && len(rows) == 0 && len(n.Aggs) > 0 {
		// A keyless aggregate over zero input rows still yields one row
		// (§8 boundary behavior): COUNT = 0, SUM = 0, AVG = 0,
		// GROUP_CONCAT = "", MIN/MAX unbound.
		order = append(order, "")
		buckets[""] = &bucket{values: make([][]aggSample, len(n.Aggs))}
	}

	for _, m := range rows {
		keyVals := make([]term.Term, len(n.Keys))
		var sb strings.Builder
		for i, k := range n.Keys {
			v, err := eval.Eval(k.Expr, m, evalCtx)
			if err == nil {
				keyVals[i] = v
				sb.WriteString(v.Kind().String())
				sb.WriteByte(':')
				sb.WriteString(v.String())
			} else {
				sb.WriteString("<unbound>")
			}
			sb.WriteByte('\x1f')
		}
		key := sb.String()

		b, ok := buckets[key]
		if !ok {
			b = &bucket{keyVals: keyVals, values: make([][]aggSample, len(n.Aggs))}
			buckets[key] = b
			order = append(order, key)
		}
		b.rowCount++

		for i, agg := range n.Aggs {
			if agg.Kind == algebra.AggCount && agg.Expr == nil {
				b.values[i] = append(b.values[i], aggSample{})
				continue
			}
			v, err := eval.Eval(agg.Expr, m, evalCtx)
			if err != nil {
				continue
			}
			b.values[i] = append(b.values[i], aggSample{term: v, key: v.Kind().String() + ":" + v.String()})
		}
	}

	var out []binding.Mapping
	for _, key := range order {
		b := buckets[key]
		row := binding.Empty()
		for i, k := range n.Keys {
			if b.keyVals[i] != nil {
				row = row.With(k.OutputVar, b.keyVals[i])
			}
		}
		for i, agg := range n.Aggs {
			v, ok := finalizeAggregate(agg, b.values[i], b.rowCount)
			if ok {
				row = row.With(agg.OutputVar, v)
			}
		}
		out = append(out, row)
	}
	return iter.FromSlice(out), nil
}

func dedupeSamples(samples []aggSample) []aggSample {
	seen := make(map[string]bool, len(samples))
	out := make([]aggSample, 0, len(samples))
	for _, s := range samples {
		if seen[s.key] {
			continue
		}
		seen[s.key] = true
		out = append(out, s)
	}
	return out
}

func finalizeAggregate(agg algebra.AggregateExpr, samples []aggSample, rowCount int) (term.Term, bool) {
	if agg.Distinct {
		samples = dedupeSamples(samples)
	}

	switch agg.Kind {
	case algebra.AggCount:
		return term.NewTypedLiteral(strconv.Itoa(len(samples)), term.XSDInteger), true

	case algebra.AggSum:
		sum := 0.0
		for _, s := range samples {
			if f, ok := numericValue(s.term); ok {
				sum += f
			}
		}
		return term.NewTypedLiteral(formatNumber(sum), term.XSDDecimal), true

	case algebra.AggAvg:
		if len(samples) == 0 {
			return term.NewTypedLiteral("0", term.XSDDecimal), true
		}
		sum := 0.0
		n := 0
		for _, s := range samples {
			if f, ok := numericValue(s.term); ok {
				sum += f
				n++
			}
		}
		if n == 0 {
			return nil, false
		}
		return term.NewTypedLiteral(formatNumber(sum/float64(n)), term.XSDDecimal), true

	case algebra.AggMin, algebra.AggMax:
		return minMaxLiteral(agg.Kind, samples)

	case algebra.AggGroupConcat:
		sep := agg.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, 0, len(samples))
		for _, s := range samples {
			parts = append(parts, lexicalOrString(s.term))
		}
		return term.NewPlainLiteral(strings.Join(parts, sep)), true

	default:
		return nil, false
	}
}

func minMaxLiteral(kind algebra.AggregateKind, samples []aggSample) (term.Term, bool) {
	var lits []term.Literal
	for _, s := range samples {
		if lit, ok := s.term.(term.Literal); ok {
			lits = append(lits, lit)
		}
	}
	if len(lits) == 0 {
		return nil, false
	}
	sort.Slice(lits, func(i, j int) bool { return lits[i].Compare(lits[j]) < 0 })
	if kind == algebra.AggMin {
		return lits[0], true
	}
	return lits[len(lits)-1], true
}

func numericValue(t term.Term) (float64, bool) {
	lit, ok := t.(term.Literal)
	if !ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(lit.Lexical)
	return f, err == nil
}

func lexicalOrString(t term.Term) string {
	if lit, ok := t.(term.Literal); ok {
		return lit.Lexical
	}
	if iri, ok := t.(term.IRI); ok {
		return iri.Value
	}
	return t.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
