package sparql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exocortex-kb/sparqlengine/internal/ast"
	"github.com/exocortex-kb/sparqlengine/internal/store"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlcontext"
)

func fixtureStore() *store.Store {
	s := store.New()
	knows := term.NewIRI("http://example.org/knows")
	name := term.NewIRI("http://example.org/name")
	alice := term.NewIRI("http://example.org/alice")
	bob := term.NewIRI("http://example.org/bob")
	s.Add(store.Triple{Subject: alice, Predicate: knows, Object: bob})
	s.Add(store.Triple{Subject: alice, Predicate: name, Object: term.NewPlainLiteral("Alice")})
	s.Add(store.Triple{Subject: bob, Predicate: name, Object: term.NewPlainLiteral("Bob")})
	return s
}

func nv(name string) ast.Term { return ast.Term{TermType: ast.TermVariable, Value: name} }
func ni(iri string) ast.Term  { return ast.Term{TermType: ast.TermNamedNode, Value: iri} }

func bgpPattern(triples ...ast.TriplePattern) ast.Pattern {
	return ast.Pattern{Kind: ast.PatternBGP, Triples: triples}
}

func TestEngineSelectReturnsMatchingBindings(t *testing.T) {
	e := New(fixtureStore(), nil)

	q := &ast.Query{
		QueryType: ast.Select,
		Variables: []ast.ProjectionTerm{{Var: "who"}},
		Where: []ast.Pattern{
			bgpPattern(ast.TriplePattern{
				Subject:   ni("http://example.org/alice"),
				Predicate: ni("http://example.org/knows"),
				Object:    nv("who"),
			}),
		},
	}

	rows, err := e.Select(sparqlcontext.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	bob, ok := rows[0].Get("who")
	require.True(t, ok)
	require.Equal(t, "http://example.org/bob", bob.String())
}

func TestEngineAskReportsWhetherPatternMatches(t *testing.T) {
	e := New(fixtureStore(), nil)

	positive := &ast.Query{
		QueryType: ast.Ask,
		Where: []ast.Pattern{
			bgpPattern(ast.TriplePattern{
				Subject:   ni("http://example.org/alice"),
				Predicate: ni("http://example.org/knows"),
				Object:    ni("http://example.org/bob"),
			}),
		},
	}
	ok, err := e.Ask(sparqlcontext.Background(), positive)
	require.NoError(t, err)
	require.True(t, ok)

	negative := &ast.Query{
		QueryType: ast.Ask,
		Where: []ast.Pattern{
			bgpPattern(ast.TriplePattern{
				Subject:   ni("http://example.org/bob"),
				Predicate: ni("http://example.org/knows"),
				Object:    ni("http://example.org/alice"),
			}),
		},
	}
	ok, err = e.Ask(sparqlcontext.Background(), negative)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEngineConstructInstantiatesTemplate(t *testing.T) {
	e := New(fixtureStore(), nil)

	q := &ast.Query{
		QueryType: ast.Construct,
		Where: []ast.Pattern{
			bgpPattern(ast.TriplePattern{
				Subject:   nv("person"),
				Predicate: ni("http://example.org/name"),
				Object:    nv("label"),
			}),
		},
		Template: []ast.TriplePattern{
			{
				Subject:   nv("person"),
				Predicate: ni("http://example.org/displayName"),
				Object:    nv("label"),
			},
		},
	}

	triples, err := e.Construct(sparqlcontext.Background(), q)
	require.NoError(t, err)
	require.Len(t, triples, 2)
	for _, tr := range triples {
		require.Equal(t, "http://example.org/displayName", tr.Predicate.Value)
	}
}

func TestEngineAskRejectsNonAskQuery(t *testing.T) {
	e := New(fixtureStore(), nil)
	q := &ast.Query{
		QueryType: ast.Select,
		Variables: []ast.ProjectionTerm{{Var: "x"}},
	}
	_, err := e.Ask(sparqlcontext.Background(), q)
	require.Error(t, err)
}
