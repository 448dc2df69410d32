package optimize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/term"
)

// requireNodeEqual reports a full structural diff on mismatch rather than
// testify's single-line "not equal" summary, which is unreadable once the
// tree nests a few Join/Filter levels deep.
func requireNodeEqual(t *testing.T, want, got algebra.Node) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("algebra tree mismatch (-want +got):\n%s", diff)
	}
}

func tp(s, p, o term.Term) algebra.TriplePattern {
	return algebra.TriplePattern{Subject: s, Predicate: p, Object: o}
}

func TestFilterPushesIntoMatchingJoinSide(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("rdf:type"), term.NewIRI("ems:Task")),
	}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("ems:status"), term.NewVariable("s")),
	}}

	filterExpr := algebra.Compare{
		Op:    algebra.OpEq,
		Left:  algebra.VarRef{Name: "s"},
		Right: algebra.Const{Value: term.NewPlainLiteral("doing")},
	}

	n := algebra.Filter{Expr: filterExpr, In: algebra.Join{Left: left, Right: right}}

	out := pushDown(n)

	join, ok := out.(algebra.Join)
	require.True(t, ok, "expected filter pushed below the join, got %T", out)

	rf, ok := join.Right.(algebra.Filter)
	require.True(t, ok, "expected filter pushed onto the right BGP, got %T", join.Right)
	require.Equal(t, filterExpr, rf.Expr)
	requireNodeEqual(t, left, join.Left)
}

func TestFilterOnBothSidesVarsStaysAtJoin(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("a"), term.NewIRI("p1"), term.NewVariable("x")),
	}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("b"), term.NewIRI("p2"), term.NewVariable("x")),
	}}
	filterExpr := algebra.Compare{Op: algebra.OpEq, Left: algebra.VarRef{Name: "x"}, Right: algebra.Const{Value: term.NewPlainLiteral("v")}}

	n := algebra.Filter{Expr: filterExpr, In: algebra.Join{Left: left, Right: right}}
	out := pushDown(n)

	f, ok := out.(algebra.Filter)
	require.True(t, ok, "expected filter to remain at the join since FV is not a strict subset of either side, got %T", out)
	_, ok = f.In.(algebra.Join)
	require.True(t, ok)
}

func TestFilterDuplicatesIntoBothUnionBranches(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("exo:label"), term.NewVariable("l")),
	}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("exo:altLabel"), term.NewVariable("l")),
	}}
	filterExpr := algebra.Compare{Op: algebra.OpEq, Left: algebra.VarRef{Name: "l"}, Right: algebra.Const{Value: term.NewPlainLiteral("x")}}

	n := algebra.Filter{Expr: filterExpr, In: algebra.Union{Left: left, Right: right}}
	out := Optimize(n)

	u, ok := out.(algebra.Union)
	require.True(t, ok)
	_, ok = u.Left.(algebra.Filter)
	require.True(t, ok, "expected filter duplicated into left branch")
	_, ok = u.Right.(algebra.Filter)
	require.True(t, ok, "expected filter duplicated into right branch")
}

func TestFilterNotPushedIntoLeftJoinRightWhenVarsOverlap(t *testing.T) {
	left := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("rdf:type"), term.NewIRI("ems:Task")),
	}}
	right := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("ems:status"), term.NewVariable("s")),
	}}
	filterExpr := algebra.Compare{Op: algebra.OpEq, Left: algebra.VarRef{Name: "s"}, Right: algebra.Const{Value: term.NewPlainLiteral("done")}}

	n := algebra.Filter{Expr: filterExpr, In: algebra.LeftJoin{Left: left, Right: right}}
	out := pushDown(n)

	f, ok := out.(algebra.Filter)
	require.True(t, ok, "filter referencing the optional side's variable must stay put, got %T", out)
	_, ok = f.In.(algebra.LeftJoin)
	require.True(t, ok)
}

func TestFilterIsTransparentThroughProjectOrderBySliceDistinct(t *testing.T) {
	in := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("t"), term.NewIRI("exo:label"), term.NewVariable("l")),
	}}
	filterExpr := algebra.Compare{Op: algebra.OpEq, Left: algebra.VarRef{Name: "l"}, Right: algebra.Const{Value: term.NewPlainLiteral("x")}}

	wrapped := algebra.Distinct{In: algebra.Slice{Limit: nil, In: algebra.OrderBy{In: algebra.Project{Vars: []string{"l"}, In: in}}}}
	n := algebra.Filter{Expr: filterExpr, In: wrapped}

	out := pushDown(n)
	d, ok := out.(algebra.Distinct)
	require.True(t, ok)
	s, ok := d.In.(algebra.Slice)
	require.True(t, ok)
	o, ok := s.In.(algebra.OrderBy)
	require.True(t, ok)
	p, ok := o.In.(algebra.Project)
	require.True(t, ok)
	_, ok = p.In.(algebra.Filter)
	require.True(t, ok, "filter should have travelled through every transparent wrapper down to the BGP")
}

func TestJoinReorderSwapsCheaperSideLeft(t *testing.T) {
	expensive := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("a"), term.NewVariable("p"), term.NewVariable("b")),
		tp(term.NewVariable("b"), term.NewVariable("q"), term.NewVariable("c")),
	}}
	cheap := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewIRI("ems:fixed"), term.NewIRI("rdf:type"), term.NewIRI("ems:Task")),
	}}

	n := algebra.Join{Left: expensive, Right: cheap}
	out := reorder(n)

	j, ok := out.(algebra.Join)
	require.True(t, ok)
	requireNodeEqual(t, cheap, j.Left)
	requireNodeEqual(t, expensive, j.Right)
}

func TestJoinReorderNotAppliedAcrossLeftJoinOrUnion(t *testing.T) {
	expensive := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("a"), term.NewVariable("p"), term.NewVariable("b")),
	}}
	cheap := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewIRI("ems:fixed"), term.NewIRI("rdf:type"), term.NewIRI("ems:Task")),
	}}

	lj := algebra.LeftJoin{Left: expensive, Right: cheap}
	out := reorder(lj).(algebra.LeftJoin)
	requireNodeEqual(t, expensive, out.Left) // leftjoin ordering is semantic and must not be swapped
	requireNodeEqual(t, cheap, out.Right)

	u := algebra.Union{Left: expensive, Right: cheap}
	outU := reorder(u).(algebra.Union)
	requireNodeEqual(t, expensive, outU.Left)
	requireNodeEqual(t, cheap, outU.Right)
}

func TestCostPenalizesPredicateVariableMost(t *testing.T) {
	subjVar := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewVariable("s"), term.NewIRI("p"), term.NewIRI("o")),
	}}
	predVar := algebra.BGP{Patterns: []algebra.TriplePattern{
		tp(term.NewIRI("s"), term.NewVariable("p"), term.NewIRI("o")),
	}}
	require.Greater(t, cost(predVar), cost(subjVar))
}

func TestOptimizeIsIdentityOnEquivalentStructureForUnaffectedQueries(t *testing.T) {
	n := algebra.Select{
		Vars: []string{"l"},
		In: algebra.Project{Vars: []string{"l"}, In: algebra.BGP{Patterns: []algebra.TriplePattern{
			tp(term.NewVariable("t"), term.NewIRI("exo:label"), term.NewVariable("l")),
		}}},
	}
	out := Optimize(n)
	requireNodeEqual(t, n, out)
}
