// Package store implements the in-memory triple store (C2): insertion,
// pattern match over (s?, p?, o?), and count. It keeps SPO/POS/OSP hash
// indexes so every one of the nine bound/unbound position combinations
// resolves in roughly O(result size), the canonical choice for a
// single-threaded in-memory store the rest of the pipeline treats as a
// read-only collaborator during evaluation.
package store

import (
	"sync"

	"github.com/exocortex-kb/sparqlengine/internal/term"
)

// Triple is an RDF statement. Subject is IRI or BlankNode, Predicate is
// always an IRI, Object is IRI, BlankNode or Literal.
type Triple struct {
	Subject   term.Term
	Predicate term.IRI
	Object    term.Term
}

func (t Triple) key() tripleKey {
	return tripleKey{encode(t.Subject), encode(t.Predicate), encode(t.Object)}
}

type tripleKey struct {
	s, p, o string
}

// Store is the set of triples the BGP engine queries during evaluation.
// It is safe for concurrent reads; mutation must happen between query
// executions per the single-threaded evaluation model (spec §5) — the
// mutex below only protects the indexer's add/remove calls from racing
// each other, not from a concurrent evaluation.
type Store struct {
	mu      sync.RWMutex
	triples map[tripleKey]Triple

	// spo[s][p][o], pos[p][o][s], osp[o][s][p] — three full permutation
	// indexes so any pattern with at least one bound position walks only
	// the matching bucket instead of scanning every triple.
	spo map[string]map[string]map[string]Triple
	pos map[string]map[string]map[string]Triple
	osp map[string]map[string]map[string]Triple
}

// New returns an empty store.
func New() *Store {
	return &Store{
		triples: make(map[tripleKey]Triple),
		spo:     make(map[string]map[string]map[string]Triple),
		pos:     make(map[string]map[string]map[string]Triple),
		osp:     make(map[string]map[string]map[string]Triple),
	}
}

// Add inserts a triple. Adding a triple that is already present is a
// no-op: the store keeps one copy of each distinct triple, so match
// never returns duplicate *triples* and Count counts distinct ones.
func (s *Store) Add(t Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(t)
}

// AddAll inserts every triple in ts.
func (s *Store) AddAll(ts []Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		s.addLocked(t)
	}
}

func (s *Store) addLocked(t Triple) {
	k := t.key()
	if _, ok := s.triples[k]; ok {
		return
	}
	s.triples[k] = t
	insert3(s.spo, k.s, k.p, k.o, t)
	insert3(s.pos, k.p, k.o, k.s, t)
	insert3(s.osp, k.o, k.s, k.p, t)
}

func insert3(idx map[string]map[string]map[string]Triple, a, b, c string, t Triple) {
	m1, ok := idx[a]
	if !ok {
		m1 = make(map[string]map[string]Triple)
		idx[a] = m1
	}
	m2, ok := m1[b]
	if !ok {
		m2 = make(map[string]Triple)
		m1[b] = m2
	}
	m2[c] = t
}

func remove3(idx map[string]map[string]map[string]Triple, a, b, c string) {
	m1, ok := idx[a]
	if !ok {
		return
	}
	m2, ok := m1[b]
	if !ok {
		return
	}
	delete(m2, c)
	if len(m2) == 0 {
		delete(m1, b)
	}
	if len(m1) == 0 {
		delete(idx, a)
	}
}

// Remove deletes a triple if present; a no-op otherwise.
func (s *Store) Remove(t Triple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := t.key()
	if _, ok := s.triples[k]; !ok {
		return
	}
	delete(s.triples, k)
	remove3(s.spo, k.s, k.p, k.o)
	remove3(s.pos, k.p, k.o, k.s)
	remove3(s.osp, k.o, k.s, k.p)
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triples = make(map[tripleKey]Triple)
	s.spo = make(map[string]map[string]map[string]Triple)
	s.pos = make(map[string]map[string]map[string]Triple)
	s.osp = make(map[string]map[string]map[string]Triple)
}

// Count returns the number of distinct triples in the store.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.triples)
}

// Match returns every triple agreeing with all non-nil positions. A nil
// argument means "any term" for that position. Match never fails:
// unrecognized/absent positions simply produce no results. The returned
// slice is a per-call materialization — a consistent snapshot as of this
// call, safe for the caller to range over even if the store mutates
// later (§4.1 invariant).
func (s *Store) Match(subject term.Term, predicate *term.IRI, object term.Term) []Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case subject != nil && predicate != nil && object != nil:
		k := tripleKey{encode(subject), encode(*predicate), encode(object)}
		if t, ok := s.triples[k]; ok {
			return []Triple{t}
		}
		return nil
	case subject != nil && predicate != nil:
		return collect(s.spo, encode(subject), encode(*predicate))
	case predicate != nil && object != nil:
		return collect(s.pos, encode(*predicate), encode(object))
	case subject != nil && object != nil:
		return collect(s.osp, encode(object), encode(subject))
	case subject != nil:
		return collect1(s.spo, encode(subject))
	case predicate != nil:
		return collect1(s.pos, encode(*predicate))
	case object != nil:
		return collect1(s.osp, encode(object))
	default:
		return s.all()
	}
}

func collect(idx map[string]map[string]map[string]Triple, a, b string) []Triple {
	m1, ok := idx[a]
	if !ok {
		return nil
	}
	m2, ok := m1[b]
	if !ok {
		return nil
	}
	out := make([]Triple, 0, len(m2))
	for _, t := range m2 {
		out = append(out, t)
	}
	return out
}

func collect1(idx map[string]map[string]map[string]Triple, a string) []Triple {
	m1, ok := idx[a]
	if !ok {
		return nil
	}
	var out []Triple
	for _, m2 := range m1 {
		for _, t := range m2 {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) all() []Triple {
	out := make([]Triple, 0, len(s.triples))
	for _, t := range s.triples {
		out = append(out, t)
	}
	return out
}

func encode(t term.Term) string {
	switch v := t.(type) {
	case term.IRI:
		return "I" + v.Value
	case term.BlankNode:
		return "B" + v.ID
	case term.Literal:
		return "L" + v.EffectiveDatatype() + "\x00" + v.Language + "\x00" + v.Lexical
	default:
		return "?" + t.String()
	}
}
