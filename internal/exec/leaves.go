package exec

import (
	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/bgp"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/internal/store"
)

// bgpEval runs the BGP engine (C8) over the store with no seed
// bindings — the top-level case described in package bgp's doc
// comment; a BGP nested inside a larger algebra tree is still
// evaluated independently here and reconciled by the enclosing Join's
// compatibility test, not by threading bindings into bgp.Eval.
func bgpEval(s *store.Store, n algebra.BGP) (iter.Mapping, error) {
	it, err := bgp.Eval(s, n.Patterns, binding.Empty())
	if err != nil {
		return nil, bgpWrapErr(err)
	}
	return it, nil
}

// valuesEval materializes VALUES rows directly; a row missing an entry
// for one of the declared variables means UNDEF (§4.6).
func valuesEval(n algebra.Values) iter.Mapping {
	rows := make([]binding.Mapping, 0, len(n.Rows))
	for _, row := range n.Rows {
		m := binding.Empty()
		for _, varName := range n.Vars {
			if t, ok := row[varName]; ok {
				m = m.With(varName, t)
			}
		}
		rows = append(rows, m)
	}
	return iter.FromSlice(rows)
}
