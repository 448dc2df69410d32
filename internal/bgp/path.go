package bgp

import (
	"fmt"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/store"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// pair is a resolved (subject, object) endpoint of a property path
// match. Either side may be nil only transiently inside pathPairs'
// recursion — callers of the top-level pathPairs always get concrete
// terms back, since the base case resolves against the store.
type pair struct{ s, o term.Term }

func pairKey(p pair) string {
	return encodeTermForKey(p.s) + "\x00" + encodeTermForKey(p.o)
}

func encodeTermForKey(t term.Term) string {
	if t == nil {
		return ""
	}
	return t.Kind().String() + ":" + t.String()
}

func dedupe(pairs []pair) []pair {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]pair, 0, len(pairs))
	for _, p := range pairs {
		k := pairKey(p)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// pathPairs resolves every (subject, object) pair satisfying path,
// given subj/obj constraints where nil means unconstrained (the same
// wildcard convention store.Match already uses).
func pathPairs(s *store.Store, path algebra.Path, subj, obj term.Term) ([]pair, error) {
	switch path.Kind {
	case algebra.PathIRI:
		return basePairs(s, path.IRI, subj, obj), nil

	case algebra.PathInverse:
		if path.Item == nil {
			return nil, sparqlerr.ErrExecute.New("inverse path missing child")
		}
		inner, err := pathPairs(s, *path.Item, obj, subj)
		if err != nil {
			return nil, err
		}
		out := make([]pair, len(inner))
		for i, p := range inner {
			out[i] = pair{s: p.o, o: p.s}
		}
		return out, nil

	case algebra.PathSeq:
		return seqPairs(s, path.Items, subj, obj)

	case algebra.PathAlt:
		var out []pair
		for _, branch := range path.Items {
			branchPairs, err := pathPairs(s, branch, subj, obj)
			if err != nil {
				return nil, err
			}
			out = append(out, branchPairs...)
		}
		return dedupe(out), nil

	case algebra.PathZeroOrMore:
		if path.Item == nil {
			return nil, sparqlerr.ErrExecute.New("zero-or-more path missing child")
		}
		return closurePairs(s, *path.Item, subj, obj, true)

	case algebra.PathOneOrMore:
		if path.Item == nil {
			return nil, sparqlerr.ErrExecute.New("one-or-more path missing child")
		}
		return closurePairs(s, *path.Item, subj, obj, false)

	case algebra.PathZeroOrOne:
		if path.Item == nil {
			return nil, sparqlerr.ErrExecute.New("zero-or-one path missing child")
		}
		one, err := pathPairs(s, *path.Item, subj, obj)
		if err != nil {
			return nil, err
		}
		ident := identityPairs(s, subj, obj)
		return dedupe(append(ident, one...)), nil

	default:
		return nil, sparqlerr.ErrExecute.New(fmt.Sprintf("unsupported path kind %d", path.Kind))
	}
}

// basePairs is the recursion's base case: a plain IRI predicate
// resolved directly against the store.
func basePairs(s *store.Store, predicate term.IRI, subj, obj term.Term) []pair {
	triples := s.Match(subj, &predicate, obj)
	out := make([]pair, 0, len(triples))
	for _, t := range triples {
		out = append(out, pair{s: t.Subject, o: t.Object})
	}
	return out
}

// seqPairs chains path items left to right through a free intermediate
// node: items[0] from subj to some x, items[1] from x to the next, and
// so on to obj. Only the first item gets subj's constraint and only
// the last gets obj's; interior joins are computed by intersecting on
// the shared endpoint.
func seqPairs(s *store.Store, items []algebra.Path, subj, obj term.Term) ([]pair, error) {
	if len(items) == 0 {
		return nil, sparqlerr.ErrExecute.New("sequence path with no items")
	}
	current, err := pathPairs(s, items[0], subj, nil)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(items); i++ {
		last := i == len(items)-1
		var nextConstraint term.Term
		if last {
			nextConstraint = obj
		}
		var joined []pair
		// Group the running frontier by its object endpoint so each
		// distinct intermediate node is only queried once.
		frontier := make(map[string][]term.Term) // encoded endpoint -> subjects reaching it
		order := make([]string, 0, len(current))
		endpointTerm := make(map[string]term.Term)
		for _, p := range current {
			k := encodeTermForKey(p.o)
			if _, ok := frontier[k]; !ok {
				order = append(order, k)
				endpointTerm[k] = p.o
			}
			frontier[k] = append(frontier[k], p.s)
		}
		for _, k := range order {
			step, err := pathPairs(s, items[i], endpointTerm[k], nextConstraint)
			if err != nil {
				return nil, err
			}
			for _, origSubj := range frontier[k] {
				for _, st := range step {
					joined = append(joined, pair{s: origSubj, o: st.o})
				}
			}
		}
		current = joined
	}
	return dedupe(current), nil
}

// identityPairs is the reflexive step for "?" and "*": every node that
// can stand as an endpoint maps to itself. When both subj and obj are
// constrained this is just the singleton/empty check; when exactly one
// is constrained that node maps to itself; only when both are free does
// it fall back to scanning the store for candidate nodes.
func identityPairs(s *store.Store, subj, obj term.Term) []pair {
	if subj != nil && obj != nil {
		if subj.Equal(obj) {
			return []pair{{s: subj, o: obj}}
		}
		return nil
	}
	if subj != nil {
		return []pair{{s: subj, o: subj}}
	}
	if obj != nil {
		return []pair{{s: obj, o: obj}}
	}
	nodes := storeNodes(s)
	out := make([]pair, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, pair{s: n, o: n})
	}
	return out
}

// storeNodes collects every distinct subject/object term currently in
// the store, the candidate set identityPairs needs when both path
// endpoints are unconstrained.
func storeNodes(s *store.Store) []term.Term {
	seen := make(map[string]term.Term)
	for _, t := range s.Match(nil, nil, nil) {
		seen[encodeTermForKey(t.Subject)] = t.Subject
		seen[encodeTermForKey(t.Object)] = t.Object
	}
	out := make([]term.Term, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	return out
}

// closurePairs computes the transitive closure of child starting from
// subj (or every store node, when subj is unconstrained), stopping at
// obj's constraint if any. zeroOk controls whether the zero-step
// reflexive pair is also included ("*") or not ("+") — note a node can
// still reach itself via a positive number of steps around a cycle,
// which counts for "+" too; zeroOk only governs the extra zero-step
// case. An expanded-set guards the walk against infinite cycles.
func closurePairs(s *store.Store, child algebra.Path, subj, obj term.Term, zeroOk bool) ([]pair, error) {
	var starts []term.Term
	if subj != nil {
		starts = []term.Term{subj}
	} else {
		starts = storeNodes(s)
	}

	var out []pair
	for _, start := range starts {
		reached, err := closureFrom(s, child, start)
		if err != nil {
			return nil, err
		}
		if zeroOk {
			reached = append(reached, start)
		}
		for _, r := range reached {
			if obj != nil && !r.Equal(obj) {
				continue
			}
			out = append(out, pair{s: start, o: r})
		}
	}
	return dedupe(out), nil
}

// closureFrom breadth-first walks child from start, returning every
// node reachable via one or more steps. A node already expanded (its
// own outgoing step already taken) is never re-expanded, which is what
// terminates the walk around a cycle — but a cycle that leads back to
// start is still recorded as reached, since that is a legitimate
// one-or-more path even though start was the origin.
func closureFrom(s *store.Store, child algebra.Path, start term.Term) ([]term.Term, error) {
	expanded := map[string]bool{}
	reachedSet := map[string]bool{}
	var reached []term.Term
	frontier := []term.Term{start}

	for len(frontier) > 0 {
		var next []term.Term
		for _, node := range frontier {
			k := encodeTermForKey(node)
			if expanded[k] {
				continue
			}
			expanded[k] = true

			step, err := pathPairs(s, child, node, nil)
			if err != nil {
				return nil, err
			}
			for _, p := range step {
				rk := encodeTermForKey(p.o)
				if !reachedSet[rk] {
					reachedSet[rk] = true
					reached = append(reached, p.o)
				}
				if !expanded[rk] {
					next = append(next, p.o)
				}
			}
		}
		frontier = next
	}
	return reached, nil
}
