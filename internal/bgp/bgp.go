// Package bgp implements the basic graph pattern engine (C8): ordered
// nested-loop binding of a BGP's triple patterns against the store,
// including property-path predicates (§4.2).
//
// Eval takes a single seed mapping rather than an upstream stream,
// because per §4.6 it is the join operator that owns "for each μ in
// the left stream, scan the right operand". The executor always calls
// Eval with the empty mapping as seed: a BGP sitting on a join's right
// side is evaluated once, independently of the left, and the join then
// tests each left/right pair for compatibility.
package bgp

import (
	"fmt"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/iter"
	"github.com/exocortex-kb/sparqlengine/internal/store"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// Eval binds patterns left to right starting from seed, returning every
// resulting mapping as a materialized, pull-based stream. Ordering
// beyond "consistent with how each pattern was matched" is unspecified
// per §4.2, except where the caller re-sorts (ORDER BY).
func Eval(s *store.Store, patterns []algebra.TriplePattern, seed binding.Mapping) (iter.Mapping, error) {
	current := []binding.Mapping{seed}
	for _, p := range patterns {
		var next []binding.Mapping
		for _, m := range current {
			more, err := matchPattern(s, p, m)
			if err != nil {
				return nil, err
			}
			next = append(next, more...)
		}
		current = next
		if len(current) == 0 {
			break
		}
	}
	return iter.FromSlice(current), nil
}

// resolveTerm reports the concrete term a pattern position denotes
// given m: a bound term.Term and ok=true, or ok=false when the
// position is a variable still unbound in m (the wildcard case).
func resolveTerm(m binding.Mapping, t term.Term) (term.Term, bool) {
	if v, isVar := t.(term.Variable); isVar {
		bound, ok := m.Get(v.Name)
		return bound, ok
	}
	return t, true
}

// bindVar extends m with name=val, or reports failure if name is
// already bound to a different term (a join conflict within the BGP).
func bindVar(m binding.Mapping, name string, val term.Term) (binding.Mapping, bool) {
	if existing, ok := m.Get(name); ok {
		return m, existing.Equal(val)
	}
	return m.With(name, val), true
}

func matchPattern(s *store.Store, p algebra.TriplePattern, m binding.Mapping) ([]binding.Mapping, error) {
	// resolveTerm already reports (nil, false) for a still-unbound
	// variable, which is exactly store.Match's wildcard convention.
	subjTerm, _ := resolveTerm(m, p.Subject)
	objTerm, _ := resolveTerm(m, p.Object)

	if p.Path != nil {
		pairs, err := pathPairs(s, *p.Path, subjTerm, objTerm)
		if err != nil {
			return nil, err
		}
		var out []binding.Mapping
		for _, pr := range pairs {
			next := m
			ok := true
			if sv, isVar := p.Subject.(term.Variable); isVar {
				next, ok = bindVar(next, sv.Name, pr.s)
			}
			if ok {
				if ov, isVar := p.Object.(term.Variable); isVar {
					next, ok = bindVar(next, ov.Name, pr.o)
				}
			}
			if ok {
				out = append(out, next)
			}
		}
		return out, nil
	}

	var predPtr *term.IRI
	if pv, isVar := p.Predicate.(term.Variable); isVar {
		if bound, ok := m.Get(pv.Name); ok {
			iri, isIRI := bound.(term.IRI)
			if !isIRI {
				return nil, nil
			}
			predPtr = &iri
		}
	} else if iri, isIRI := p.Predicate.(term.IRI); isIRI {
		predPtr = &iri
	} else {
		return nil, sparqlerr.ErrExecute.New(fmt.Sprintf("predicate position bound to non-IRI term %T", p.Predicate))
	}

	triples := s.Match(subjTerm, predPtr, objTerm)
	var out []binding.Mapping
	for _, t := range triples {
		next := m
		ok := true
		if sv, isVar := p.Subject.(term.Variable); isVar {
			next, ok = bindVar(next, sv.Name, t.Subject)
		}
		if ok {
			if pv, isVar := p.Predicate.(term.Variable); isVar {
				next, ok = bindVar(next, pv.Name, t.Predicate)
			}
		}
		if ok {
			if ov, isVar := p.Object.(term.Variable); isVar {
				next, ok = bindVar(next, ov.Name, t.Object)
			}
		}
		if ok {
			out = append(out, next)
		}
	}
	return out, nil
}
