package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exocortex-kb/sparqlengine/internal/term"
)

func iri(v string) term.IRI { return term.NewIRI(v) }

func sampleStore() *Store {
	s := New()
	s.AddAll([]Triple{
		{Subject: iri("t1"), Predicate: iri("rdf:type"), Object: iri("ems:Task")},
		{Subject: iri("t1"), Predicate: iri("exo:label"), Object: term.NewPlainLiteral("Implement SPARQL")},
		{Subject: iri("t1"), Predicate: iri("ems:status"), Object: term.NewPlainLiteral("doing")},
		{Subject: iri("t2"), Predicate: iri("rdf:type"), Object: iri("ems:Task")},
		{Subject: iri("t2"), Predicate: iri("exo:label"), Object: term.NewPlainLiteral("Write tests")},
		{Subject: iri("t2"), Predicate: iri("ems:status"), Object: term.NewPlainLiteral("done")},
	})
	return s
}

func TestMatchAllPositionsBound(t *testing.T) {
	s := sampleStore()
	p := iri("rdf:type")
	res := s.Match(iri("t1"), &p, iri("ems:Task"))
	require.Len(t, res, 1)
}

func TestMatchSubjectOnly(t *testing.T) {
	s := sampleStore()
	res := s.Match(iri("t1"), nil, nil)
	require.Len(t, res, 3)
}

func TestMatchPredicateObject(t *testing.T) {
	s := sampleStore()
	p := iri("ems:status")
	res := s.Match(nil, &p, term.NewPlainLiteral("done"))
	require.Len(t, res, 1)
	require.True(t, res[0].Subject.Equal(iri("t2")))
}

func TestMatchEmptyPatternReturnsEverything(t *testing.T) {
	s := sampleStore()
	require.Len(t, s.Match(nil, nil, nil), s.Count())
}

func TestMatchUnknownTermReturnsEmpty(t *testing.T) {
	s := sampleStore()
	res := s.Match(iri("nonexistent"), nil, nil)
	require.Empty(t, res)
}

func TestAddDuplicateTripleDoesNotDuplicateMatches(t *testing.T) {
	s := New()
	tr := Triple{Subject: iri("a"), Predicate: iri("p"), Object: iri("b")}
	s.Add(tr)
	s.Add(tr)
	require.Equal(t, 1, s.Count())
	require.Len(t, s.Match(nil, nil, nil), 1)
}

func TestRemoveAndClear(t *testing.T) {
	s := sampleStore()
	n := s.Count()
	tr := Triple{Subject: iri("t1"), Predicate: iri("rdf:type"), Object: iri("ems:Task")}
	s.Remove(tr)
	require.Equal(t, n-1, s.Count())

	s.Clear()
	require.Equal(t, 0, s.Count())
	require.Empty(t, s.Match(nil, nil, nil))
}

func TestPlainLiteralMatchesXSDStringValue(t *testing.T) {
	s := New()
	p := iri("exo:label")
	s.Add(Triple{Subject: iri("t1"), Predicate: p, Object: term.NewTypedLiteral("hello", term.XSDString)})

	res := s.Match(nil, &p, term.NewPlainLiteral("hello"))
	require.Len(t, res, 1)
}
