package translate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/ast"
)

func varTerm(name string) ast.Term { return ast.Term{TermType: ast.TermVariable, Value: name} }
func iriTerm(v string) ast.Term    { return ast.Term{TermType: ast.TermNamedNode, Value: v} }
func litTerm(v string) ast.Term    { return ast.Term{TermType: ast.TermLiteral, Value: v} }

func TestTranslateSimpleSelectWithFilter(t *testing.T) {
	q := &ast.Query{
		QueryType: ast.Select,
		Variables: []ast.ProjectionTerm{{Var: "l"}},
		Where: []ast.Pattern{
			{
				Kind: ast.PatternBGP,
				Triples: []ast.TriplePattern{
					{Subject: varTerm("t"), Predicate: iriTerm("exo:label"), Object: varTerm("l")},
					{Subject: varTerm("t"), Predicate: iriTerm("ems:status"), Object: varTerm("s")},
				},
			},
			{
				Kind: ast.PatternFilter,
				Expr: ast.Expr{
					Kind: ast.ExprOperation, Operator: "=",
					Args: []ast.Expr{
						{Kind: ast.ExprTerm, TermVal: &ast.Term{TermType: ast.TermVariable, Value: "s"}},
						{Kind: ast.ExprTerm, TermVal: &ast.Term{TermType: ast.TermLiteral, Value: "doing"}},
					},
				},
			},
		},
	}

	node, err := Translate(q)
	require.NoError(t, err)

	sel, ok := node.(algebra.Select)
	require.True(t, ok)
	proj, ok := sel.In.(algebra.Project)
	require.True(t, ok)
	require.Equal(t, []string{"l"}, proj.Vars)

	filter, ok := proj.In.(algebra.Filter)
	require.True(t, ok)
	cmp, ok := filter.Expr.(algebra.Compare)
	require.True(t, ok)
	require.Equal(t, algebra.OpEq, cmp.Op)

	bgp, ok := filter.In.(algebra.BGP)
	require.True(t, ok)
	require.Len(t, bgp.Patterns, 2)
}

func TestTranslateOptionalFoldsContextAsLeft(t *testing.T) {
	q := &ast.Query{
		QueryType: ast.Select,
		Where: []ast.Pattern{
			{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
				{Subject: varTerm("t"), Predicate: iriTerm("rdf:type"), Object: iriTerm("ems:Task")},
			}},
			{Kind: ast.PatternOptional, Patterns: []ast.Pattern{
				{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
					{Subject: varTerm("t"), Predicate: iriTerm("ems:status"), Object: varTerm("s")},
				}},
			}},
		},
	}

	node, err := Translate(q)
	require.NoError(t, err)

	sel := node.(algebra.Select)
	lj, ok := sel.In.(algebra.LeftJoin)
	require.True(t, ok, "expected a LeftJoin folded directly, got %T", sel.In)

	left, ok := lj.Left.(algebra.BGP)
	require.True(t, ok)
	require.Len(t, left.Patterns, 1)
}

func TestTranslateUnionAndMinus(t *testing.T) {
	makeWhere := func(label string) []ast.Pattern {
		return []ast.Pattern{{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
			{Subject: varTerm("t"), Predicate: iriTerm("exo:label"), Object: litTerm(label)},
		}}}
	}

	q := &ast.Query{
		QueryType: ast.Select,
		Where: []ast.Pattern{
			{Kind: ast.PatternUnion, Left: makeWhere("a"), Right: makeWhere("b")},
		},
	}
	node, err := Translate(q)
	require.NoError(t, err)
	sel := node.(algebra.Select)
	_, ok := sel.In.(algebra.Union)
	require.True(t, ok)

	q.Where = []ast.Pattern{{Kind: ast.PatternMinus, Left: makeWhere("a"), Right: makeWhere("b")}}
	node, err = Translate(q)
	require.NoError(t, err)
	sel = node.(algebra.Select)
	_, ok = sel.In.(algebra.Minus)
	require.True(t, ok)
}

func TestTranslateGroupByWithCount(t *testing.T) {
	q := &ast.Query{
		QueryType: ast.Select,
		Variables: []ast.ProjectionTerm{
			{Var: "s"},
			{Var: "c", Expr: ast.Expr{Kind: ast.ExprAggregate, Function: "count"}},
		},
		Group:     []ast.Expr{{Kind: ast.ExprTerm, TermVal: &ast.Term{TermType: ast.TermVariable, Value: "s"}}},
		GroupVars: []string{"s"},
		Where: []ast.Pattern{
			{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
				{Subject: varTerm("t"), Predicate: iriTerm("ems:status"), Object: varTerm("s")},
			}},
		},
	}

	node, err := Translate(q)
	require.NoError(t, err)
	sel := node.(algebra.Select)
	proj := sel.In.(algebra.Project)
	group, ok := proj.In.(algebra.Group)
	require.True(t, ok)
	require.Len(t, group.Keys, 1)
	require.Len(t, group.Aggs, 1)
	require.Equal(t, algebra.AggCount, group.Aggs[0].Kind)
}

func TestTranslateUnaryPathWithWrongChildCountErrors(t *testing.T) {
	q := &ast.Query{
		QueryType: ast.Select,
		Where: []ast.Pattern{
			{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
				{
					Subject: varTerm("a"),
					Path: &ast.PathPredicate{
						PathType: ast.PathOneOrMore,
						Items: []ast.PathItem{{IRI: "http://a"}, {IRI: "http://b"}},
					},
					Object: varTerm("b"),
				},
			}},
		},
	}
	_, err := Translate(q)
	require.Error(t, err)
}

func TestTranslateSeqPathKeepsChildList(t *testing.T) {
	q := &ast.Query{
		QueryType: ast.Ask,
		Where: []ast.Pattern{
			{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
				{
					Subject: varTerm("a"),
					Path: &ast.PathPredicate{
						PathType: ast.PathSeq,
						Items:    []ast.PathItem{{IRI: "http://a"}, {IRI: "http://b"}},
					},
					Object: varTerm("b"),
				},
			}},
		},
	}
	node, err := Translate(q)
	require.NoError(t, err)
	ask := node.(algebra.Ask)
	bgp := ask.Where.(algebra.BGP)
	require.Len(t, bgp.Patterns[0].Path.Items, 2)
}

func TestTranslateUnsupportedQueryTypeErrors(t *testing.T) {
	_, err := Translate(&ast.Query{QueryType: "DELETE"})
	require.Error(t, err)
}

func TestTranslateConstruct(t *testing.T) {
	q := &ast.Query{
		QueryType: ast.Construct,
		Template: []ast.TriplePattern{
			{Subject: varTerm("t"), Predicate: iriTerm("exo:label"), Object: varTerm("l")},
		},
		Where: []ast.Pattern{
			{Kind: ast.PatternBGP, Triples: []ast.TriplePattern{
				{Subject: varTerm("t"), Predicate: iriTerm("exo:label"), Object: varTerm("l")},
			}},
		},
	}
	node, err := Translate(q)
	require.NoError(t, err)
	c, ok := node.(algebra.Construct)
	require.True(t, ok)
	require.Len(t, c.Template, 1)
}
