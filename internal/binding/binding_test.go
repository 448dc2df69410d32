package binding

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/exocortex-kb/sparqlengine/internal/term"
)

func TestCompatibleAndMerge(t *testing.T) {
	require := require.New(t)

	a := Empty().With("x", term.NewIRI("http://a")).With("y", term.NewPlainLiteral("1"))
	b := Empty().With("y", term.NewPlainLiteral("1")).With("z", term.NewIRI("http://b"))

	require.True(a.Compatible(b))
	merged := a.Merge(b)
	require.Equal(3, merged.Len())
	v, ok := merged.Get("x")
	require.True(ok)
	require.True(v.Equal(term.NewIRI("http://a")))
}

func TestIncompatibleMappingsConflict(t *testing.T) {
	a := Empty().With("x", term.NewIRI("http://a"))
	b := Empty().With("x", term.NewIRI("http://b"))
	require.False(t, a.Compatible(b))
}

func TestPlainVsXSDStringCompatible(t *testing.T) {
	a := Empty().With("x", term.NewPlainLiteral("v"))
	b := Empty().With("x", term.NewTypedLiteral("v", term.XSDString))
	require.True(t, a.Compatible(b))
}

func TestSharesVariableWith(t *testing.T) {
	a := Empty().With("x", term.NewIRI("http://a"))
	b := Empty().With("y", term.NewIRI("http://b"))
	c := Empty().With("x", term.NewIRI("http://c"))

	require.False(t, a.SharesVariableWith(b))
	require.True(t, a.SharesVariableWith(c))
}

func TestRestrictKeepsDeclaredUnboundVarsUnbound(t *testing.T) {
	a := Empty().With("x", term.NewIRI("http://a")).With("y", term.NewIRI("http://b"))
	r := a.Restrict([]string{"x", "z"})

	require.Equal(t, 1, r.Len())
	_, ok := r.Get("z")
	require.False(t, ok)
}

func TestEqualAndHashAgreeOnEqualMappings(t *testing.T) {
	a := Empty().With("x", term.NewIRI("http://a"))
	b := Empty().With("x", term.NewIRI("http://a"))

	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
}

func TestHashDiffersOnDifferentBindings(t *testing.T) {
	a := Empty().With("x", term.NewIRI("http://a"))
	b := Empty().With("x", term.NewIRI("http://b"))
	require.NotEqual(t, a.Hash(), b.Hash())
}
