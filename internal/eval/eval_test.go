package eval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/term"
)

func asBool(t *testing.T, v term.Term) bool {
	t.Helper()
	lit, ok := v.(term.Literal)
	require.True(t, ok)
	require.Equal(t, term.XSDBoolean, lit.EffectiveDatatype())
	return lit.Lexical == "true"
}

func TestVarRefBoundAndUnbound(t *testing.T) {
	m := binding.Of(map[string]term.Term{"s": term.NewPlainLiteral("doing")})

	v, err := Eval(algebra.VarRef{Name: "s"}, m, Context{})
	require.NoError(t, err)
	require.True(t, v.Equal(term.NewPlainLiteral("doing")))

	_, err = Eval(algebra.VarRef{Name: "missing"}, m, Context{})
	require.Error(t, err)
}

func TestCompareEqualityHonorsPlainVsXSDString(t *testing.T) {
	e := algebra.Compare{
		Op:    algebra.OpEq,
		Left:  algebra.Const{Value: term.NewPlainLiteral("x")},
		Right: algebra.Const{Value: term.NewTypedLiteral("x", term.XSDString)},
	}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, asBool(t, v))
}

func TestCompareOrderingRequiresLiterals(t *testing.T) {
	e := algebra.Compare{
		Op:    algebra.OpLt,
		Left:  algebra.Const{Value: term.NewIRI("http://a")},
		Right: algebra.Const{Value: term.NewPlainLiteral("x")},
	}
	_, err := Eval(e, binding.Empty(), Context{})
	require.Error(t, err)
}

func TestCompareNumericOrdering(t *testing.T) {
	e := algebra.Compare{
		Op:    algebra.OpLt,
		Left:  algebra.Const{Value: term.NewTypedLiteral("2", term.XSDInteger)},
		Right: algebra.Const{Value: term.NewTypedLiteral("10", term.XSDInteger)},
	}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, asBool(t, v))
}

func TestLogicalThreeValuedAndShortCircuitsOnFalse(t *testing.T) {
	badVar := algebra.VarRef{Name: "unbound"}
	falseConst := algebra.Const{Value: term.NewTypedLiteral("false", term.XSDBoolean)}

	e := algebra.Logical{Op: algebra.OpAnd, Left: falseConst, Right: badVar}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.False(t, asBool(t, v))
}

func TestLogicalThreeValuedOrShortCircuitsOnTrue(t *testing.T) {
	badVar := algebra.VarRef{Name: "unbound"}
	trueConst := algebra.Const{Value: term.NewTypedLiteral("true", term.XSDBoolean)}

	e := algebra.Logical{Op: algebra.OpOr, Left: trueConst, Right: badVar}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, asBool(t, v))
}

func TestLogicalAndPropagatesErrorWhenNeitherSideSettlesIt(t *testing.T) {
	badVar := algebra.VarRef{Name: "unbound"}
	trueConst := algebra.Const{Value: term.NewTypedLiteral("true", term.XSDBoolean)}

	e := algebra.Logical{Op: algebra.OpAnd, Left: trueConst, Right: badVar}
	_, err := Eval(e, binding.Empty(), Context{})
	require.Error(t, err)
}

func TestArithmeticPromotesIntToDoubleWhenEitherOperandIsDouble(t *testing.T) {
	e := algebra.Arithmetic{
		Op:    algebra.OpAdd,
		Left:  algebra.Const{Value: term.NewTypedLiteral("2", term.XSDInteger)},
		Right: algebra.Const{Value: term.NewTypedLiteral("1.5", term.XSDDouble)},
	}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	lit := v.(term.Literal)
	require.Equal(t, term.XSDDouble, lit.EffectiveDatatype())
}

func TestArithmeticDivisionByZeroErrors(t *testing.T) {
	e := algebra.Arithmetic{
		Op:    algebra.OpDiv,
		Left:  algebra.Const{Value: term.NewTypedLiteral("1", term.XSDInteger)},
		Right: algebra.Const{Value: term.NewTypedLiteral("0", term.XSDInteger)},
	}
	_, err := Eval(e, binding.Empty(), Context{})
	require.Error(t, err)
}

func TestInListFindsMatchIgnoringLaterElements(t *testing.T) {
	e := algebra.InList{
		Test: algebra.Const{Value: term.NewPlainLiteral("b")},
		List: []algebra.Expr{
			algebra.Const{Value: term.NewPlainLiteral("a")},
			algebra.Const{Value: term.NewPlainLiteral("b")},
		},
	}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, asBool(t, v))
}

func TestInListPropagatesErrorWhenNoMatchFound(t *testing.T) {
	e := algebra.InList{
		Test: algebra.Const{Value: term.NewPlainLiteral("z")},
		List: []algebra.Expr{
			algebra.VarRef{Name: "unbound"},
			algebra.Const{Value: term.NewPlainLiteral("a")},
		},
	}
	_, err := Eval(e, binding.Empty(), Context{})
	require.Error(t, err)
}

func TestExistsDelegatesToContextAndNegates(t *testing.T) {
	ctx := Context{Exists: func(p algebra.Node, m binding.Mapping) (bool, error) { return true, nil }}

	v, err := Eval(algebra.Exists{Pattern: algebra.BGP{}, Negate: false}, binding.Empty(), ctx)
	require.NoError(t, err)
	require.True(t, asBool(t, v))

	v, err = Eval(algebra.Exists{Pattern: algebra.BGP{}, Negate: true}, binding.Empty(), ctx)
	require.NoError(t, err)
	require.False(t, asBool(t, v))
}

func TestBoundDoesNotErrorOnUnboundVariable(t *testing.T) {
	e := algebra.FunctionCall{Name: "BOUND", Args: []algebra.Expr{algebra.VarRef{Name: "missing"}}}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.False(t, asBool(t, v))
}

func TestIfTakesOnlyTheSelectedBranch(t *testing.T) {
	e := algebra.FunctionCall{
		Name: "IF",
		Args: []algebra.Expr{
			algebra.Const{Value: term.NewTypedLiteral("false", term.XSDBoolean)},
			algebra.VarRef{Name: "unbound"}, // never evaluated
			algebra.Const{Value: term.NewPlainLiteral("else-branch")},
		},
	}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, v.Equal(term.NewPlainLiteral("else-branch")))
}

func TestCoalesceReturnsFirstSuccess(t *testing.T) {
	e := algebra.FunctionCall{
		Name: "COALESCE",
		Args: []algebra.Expr{
			algebra.VarRef{Name: "unbound"},
			algebra.Const{Value: term.NewPlainLiteral("fallback")},
		},
	}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, v.Equal(term.NewPlainLiteral("fallback")))
}

func TestStringFunctions(t *testing.T) {
	lit := term.NewPlainLiteral("Hello World")
	strlen, err := Eval(algebra.FunctionCall{Name: "STRLEN", Args: []algebra.Expr{algebra.Const{Value: lit}}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, strlen.Equal(term.NewTypedLiteral("11", term.XSDInteger)))

	ucase, err := Eval(algebra.FunctionCall{Name: "UCASE", Args: []algebra.Expr{algebra.Const{Value: lit}}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, ucase.Equal(term.NewPlainLiteral("HELLO WORLD")))

	contains, err := Eval(algebra.FunctionCall{Name: "CONTAINS", Args: []algebra.Expr{
		algebra.Const{Value: lit}, algebra.Const{Value: term.NewPlainLiteral("World")},
	}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, asBool(t, contains))

	substr, err := Eval(algebra.FunctionCall{Name: "SUBSTR", Args: []algebra.Expr{
		algebra.Const{Value: lit}, algebra.Const{Value: term.NewTypedLiteral("7", term.XSDInteger)},
	}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, substr.Equal(term.NewPlainLiteral("World")))
}

func TestRegexWithCaseInsensitiveFlag(t *testing.T) {
	e := algebra.FunctionCall{Name: "REGEX", Args: []algebra.Expr{
		algebra.Const{Value: term.NewPlainLiteral("Hello")},
		algebra.Const{Value: term.NewPlainLiteral("^hello$")},
		algebra.Const{Value: term.NewPlainLiteral("i")},
	}}
	v, err := Eval(e, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, asBool(t, v))
}

func TestNowUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := Context{Now: func() time.Time { return fixed }}
	v, err := Eval(algebra.FunctionCall{Name: "NOW"}, binding.Empty(), ctx)
	require.NoError(t, err)
	lit := v.(term.Literal)
	require.Equal(t, term.XSDDateTime, lit.EffectiveDatatype())
	require.Equal(t, "2026-01-02T03:04:05Z", lit.Lexical)
}

func TestDatePartsExtraction(t *testing.T) {
	dt := term.NewTypedLiteral("2026-07-29T10:20:30Z", term.XSDDateTime)
	year, err := Eval(algebra.FunctionCall{Name: "YEAR", Args: []algebra.Expr{algebra.Const{Value: dt}}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, year.Equal(term.NewTypedLiteral("2026", term.XSDInteger)))
}

func TestMathFunctions(t *testing.T) {
	v, err := Eval(algebra.FunctionCall{Name: "ABS", Args: []algebra.Expr{
		algebra.Const{Value: term.NewTypedLiteral("-3.5", term.XSDDecimal)},
	}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, v.Equal(term.NewTypedLiteral("3.5", term.XSDDecimal)))

	v, err = Eval(algebra.FunctionCall{Name: "ROUND", Args: []algebra.Expr{
		algebra.Const{Value: term.NewTypedLiteral("2.5", term.XSDDecimal)},
	}}, binding.Empty(), Context{})
	require.NoError(t, err)
	require.True(t, v.Equal(term.NewTypedLiteral("3", term.XSDDecimal)))
}

func TestUnknownFunctionErrors(t *testing.T) {
	_, err := Eval(algebra.FunctionCall{Name: "NOPE"}, binding.Empty(), Context{})
	require.Error(t, err)
}
