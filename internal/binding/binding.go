// Package binding implements the solution mapping (C3): a finite
// partial function from variable name to RDF term, with the
// merge-compatibility test every join-shaped operator in the executor
// relies on.
package binding

import (
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure"

	"github.com/exocortex-kb/sparqlengine/internal/term"
)

// Mapping is a solution: variable name -> bound term. The zero value is
// the empty mapping, the legal input to a BGP evaluated with no prior
// bindings.
type Mapping struct {
	vals map[string]term.Term
}

// Empty returns a new, unbound mapping.
func Empty() Mapping {
	return Mapping{}
}

// Of builds a mapping from an explicit variable->term set. Useful in
// tests and for VALUES row construction.
func Of(vals map[string]term.Term) Mapping {
	if len(vals) == 0 {
		return Mapping{}
	}
	cp := make(map[string]term.Term, len(vals))
	for k, v := range vals {
		cp[k] = v
	}
	return Mapping{vals: cp}
}

// Get returns the term bound to name, or (nil, false) if unbound.
func (m Mapping) Get(name string) (term.Term, bool) {
	if m.vals == nil {
		return nil, false
	}
	t, ok := m.vals[name]
	return t, ok
}

// Bound reports whether name is bound in m.
func (m Mapping) Bound(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Vars returns the bound variable names, order unspecified.
func (m Mapping) Vars() []string {
	out := make([]string, 0, len(m.vals))
	for k := range m.vals {
		out = append(out, k)
	}
	return out
}

// Len returns the number of bound variables.
func (m Mapping) Len() int { return len(m.vals) }

// With returns a copy of m with name bound to t. Does not mutate m —
// solution mappings are treated as immutable once produced, since a BGP
// engine nested-loop binds the same parent mapping into many children.
func (m Mapping) With(name string, t term.Term) Mapping {
	cp := make(map[string]term.Term, len(m.vals)+1)
	for k, v := range m.vals {
		cp[k] = v
	}
	cp[name] = t
	return Mapping{vals: cp}
}

// Without returns a copy of m with name unbound (used by project to
// restrict to a declared variable set).
func (m Mapping) Without(names ...string) Mapping {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	cp := make(map[string]term.Term)
	for k, v := range m.vals {
		if !drop[k] {
			cp[k] = v
		}
	}
	return Mapping{vals: cp}
}

// Restrict returns a copy of m containing only the named variables.
// Variables named but unbound in m stay unbound (project.vars invariant
// §3(v)).
func (m Mapping) Restrict(names []string) Mapping {
	cp := make(map[string]term.Term)
	for _, n := range names {
		if v, ok := m.Get(n); ok {
			cp[n] = v
		}
	}
	return Mapping{vals: cp}
}

// Compatible reports whether m and o agree on every variable bound in
// both: the merge-compatibility test (§3). Equality is RDF term
// equality (plain literal == xsd:string honored via term.Literal.Equal).
func (m Mapping) Compatible(o Mapping) bool {
	small, big := m, o
	if len(big.vals) < len(small.vals) {
		small, big = big, small
	}
	for k, v := range small.vals {
		if ov, ok := big.vals[k]; ok && !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Merge returns m ⋈ o — the union of both bindings — only valid when
// Compatible(o) holds. Callers must check compatibility first; Merge
// does not re-validate.
func (m Mapping) Merge(o Mapping) Mapping {
	cp := make(map[string]term.Term, len(m.vals)+len(o.vals))
	for k, v := range m.vals {
		cp[k] = v
	}
	for k, v := range o.vals {
		cp[k] = v
	}
	return Mapping{vals: cp}
}

// SharesVariableWith reports whether m and o have at least one variable
// name in common, regardless of whether the bound values agree. MINUS
// semantics (§4.6) require this in addition to Compatible.
func (m Mapping) SharesVariableWith(o Mapping) bool {
	small, big := m, o
	if len(big.vals) < len(small.vals) {
		small, big = big, small
	}
	for k := range small.vals {
		if _, ok := big.vals[k]; ok {
			return true
		}
	}
	return false
}

// Equal reports solution equality: same bound variables, same terms.
// Used by distinct/reduced de-duplication.
func (m Mapping) Equal(o Mapping) bool {
	if len(m.vals) != len(o.vals) {
		return false
	}
	for k, v := range m.vals {
		ov, ok := o.vals[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Hash returns a structural hash suitable as a dedup/group-by bucket
// key. Two equal mappings (per Equal) always hash the same; unequal
// mappings usually don't. Bucketing on this avoids an O(n^2) distinct/
// group-by implementation built from repeated Equal comparisons.
func (m Mapping) Hash() uint64 {
	keys := m.Vars()
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		v := m.vals[k]
		s := v.String()
		if lit, ok := v.(term.Literal); ok && lit.Language != "" {
			// Equal compares language tags case-insensitively.
			s = term.NewLangLiteral(lit.Lexical, strings.ToLower(lit.Language)).String()
		}
		parts = append(parts, k, v.Kind().String(), s)
	}
	h, err := hashstructure.Hash(parts, nil)
	if err != nil {
		// hashstructure only fails on unsupported types; parts is all
		// strings, so this is unreachable in practice.
		return 0
	}
	return h
}
