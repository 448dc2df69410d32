package term

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLiteralPlainEqualsXSDString(t *testing.T) {
	require := require.New(t)

	plain := NewPlainLiteral("x")
	typed := NewTypedLiteral("x", XSDString)

	require.True(plain.Equal(typed))
	require.True(typed.Equal(plain))
	require.Equal(0, plain.Compare(typed))
}

func TestLiteralLanguageTagsMustMatch(t *testing.T) {
	require := require.New(t)

	en := NewLangLiteral("cat", "en")
	fr := NewLangLiteral("cat", "fr")

	require.False(en.Equal(fr))
	require.True(en.Equal(NewLangLiteral("cat", "EN")))
}

func TestIRIEquality(t *testing.T) {
	require := require.New(t)

	a := NewIRI("http://example.org/a")
	b := NewIRI("http://example.org/a")
	c := NewIRI("http://example.org/b")

	require.True(a.Equal(b))
	require.False(a.Equal(c))
}

func TestBlankNodeScopedIdentity(t *testing.T) {
	require := require.New(t)

	require.True(NewBlankNode("b1").Equal(NewBlankNode("b1")))
	require.False(NewBlankNode("b1").Equal(NewBlankNode("b2")))
}

func TestTotalOrderAcrossKinds(t *testing.T) {
	require := require.New(t)

	bn := NewBlankNode("b1")
	iri := NewIRI("http://example.org/a")
	lit := NewPlainLiteral("x")

	require.True(bn.Compare(iri) < 0)
	require.True(iri.Compare(lit) < 0)
	require.True(lit.Compare(bn) > 0)
}

func TestNumericLiteralOrdering(t *testing.T) {
	require := require.New(t)

	two := NewTypedLiteral("2", XSDInteger)
	ten := NewTypedLiteral("10", XSDInteger)

	// numeric comparison: 2 < 10, even though "10" < "2" lexically
	require.True(two.Compare(ten) < 0)
}

func TestDateTimeOrdering(t *testing.T) {
	require := require.New(t)

	early := NewTypedLiteral("2020-01-01T00:00:00Z", XSDDateTime)
	later := NewTypedLiteral("2021-01-01T00:00:00Z", XSDDateTime)

	require.True(early.Compare(later) < 0)
}

func TestIsResource(t *testing.T) {
	require := require.New(t)

	require.True(IsResource(NewIRI("http://x")))
	require.True(IsResource(NewBlankNode("b1")))
	require.False(IsResource(NewPlainLiteral("x")))
}
