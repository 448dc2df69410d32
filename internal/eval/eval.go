// Package eval implements the expression evaluator (C7): it turns an
// algebra.Expr plus a solution mapping into a bound term, an effective
// boolean, or an evaluation error. Every error it raises is
// per-solution: a sparqlerr.ErrEval, or sparqlerr.ErrUnknownFunction for
// a function name outside the supported set — the caller (executor, C9) is the one
// that decides whether that means dropping a mapping (FILTER) or
// leaving a variable unbound (EXTEND), never the evaluator itself.
package eval

import (
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// Context carries the evaluator's external dependencies. Exists lets
// EXISTS/NOT EXISTS re-run a WHERE pattern against the store without
// this package importing the executor (C9) — the executor supplies the
// closure when it calls Eval, instead of eval depending on exec.
type Context struct {
	Now    func() time.Time
	Exists func(pattern algebra.Node, m binding.Mapping) (bool, error)
}

// Eval evaluates e against m, returning the bound term it denotes.
func Eval(e algebra.Expr, m binding.Mapping, ctx Context) (term.Term, error) {
	switch x := e.(type) {
	case algebra.VarRef:
		t, ok := m.Get(x.Name)
		if !ok {
			return nil, sparqlerr.ErrEval.New(fmt.Sprintf("unbound variable ?%s", x.Name))
		}
		return t, nil

	case algebra.Const:
		return x.Value, nil

	case algebra.Compare:
		return evalCompare(x, m, ctx)

	case algebra.Logical:
		b, err := evalLogical(x, m, ctx)
		if err != nil {
			return nil, err
		}
		return boolTerm(b), nil

	case algebra.Arithmetic:
		return evalArithmetic(x, m, ctx)

	case algebra.FunctionCall:
		return evalFunction(x, m, ctx)

	case algebra.InList:
		return evalInList(x, m, ctx)

	case algebra.Exists:
		return evalExists(x, m, ctx)

	case algebra.Aggregate:
		return nil, sparqlerr.ErrEval.New("aggregate expression evaluated outside a group context")

	default:
		return nil, sparqlerr.ErrEval.New(fmt.Sprintf("unsupported expression %T", e))
	}
}

// EffectiveBoolean derives a SPARQL effective boolean value from t
// (XPath fn:boolean rules restricted to the literal shapes SPARQL
// allows: xsd:boolean, numeric, and string literals).
func EffectiveBoolean(t term.Term) (bool, error) {
	lit, ok := t.(term.Literal)
	if !ok {
		return false, sparqlerr.ErrEval.New(fmt.Sprintf("effective boolean value requires a literal, got %s", t.Kind()))
	}
	switch lit.EffectiveDatatype() {
	case term.XSDBoolean:
		return lit.Lexical == "true" || lit.Lexical == "1", nil
	case term.XSDString, term.RDFLangString:
		return lit.Lexical != "", nil
	default:
		if f, k, ok := numericOf(lit); ok {
			_ = k
			return f != 0, nil
		}
		return false, sparqlerr.ErrEval.New("cannot derive an effective boolean value for datatype " + lit.EffectiveDatatype())
	}
}

func evalBool(e algebra.Expr, m binding.Mapping, ctx Context) (bool, error) {
	t, err := Eval(e, m, ctx)
	if err != nil {
		return false, err
	}
	return EffectiveBoolean(t)
}

func boolTerm(b bool) term.Term {
	if b {
		return term.NewTypedLiteral("true", term.XSDBoolean)
	}
	return term.NewTypedLiteral("false", term.XSDBoolean)
}

// evalLogical implements SPARQL's three-valued logic (§4.3): an error
// on one side does not fail the whole expression if the other side's
// value already settles it (false&&error=false, true||error=true);
// !error is always error.
func evalLogical(x algebra.Logical, m binding.Mapping, ctx Context) (bool, error) {
	switch x.Op {
	case algebra.OpNot:
		v, err := evalBool(x.Left, m, ctx)
		if err != nil {
			return false, err
		}
		return !v, nil

	case algebra.OpAnd:
		lv, lerr := evalBool(x.Left, m, ctx)
		if lerr == nil && !lv {
			return false, nil
		}
		rv, rerr := evalBool(x.Right, m, ctx)
		if rerr == nil && !rv {
			return false, nil
		}
		if lerr != nil {
			return false, lerr
		}
		if rerr != nil {
			return false, rerr
		}
		return lv && rv, nil

	case algebra.OpOr:
		lv, lerr := evalBool(x.Left, m, ctx)
		if lerr == nil && lv {
			return true, nil
		}
		rv, rerr := evalBool(x.Right, m, ctx)
		if rerr == nil && rv {
			return true, nil
		}
		if lerr != nil {
			return false, lerr
		}
		if rerr != nil {
			return false, rerr
		}
		return lv || rv, nil

	default:
		return false, sparqlerr.ErrEval.New("unknown logical operator")
	}
}

func evalCompare(x algebra.Compare, m binding.Mapping, ctx Context) (term.Term, error) {
	l, err := Eval(x.Left, m, ctx)
	if err != nil {
		return nil, err
	}
	r, err := Eval(x.Right, m, ctx)
	if err != nil {
		return nil, err
	}

	if x.Op == algebra.OpEq {
		return boolTerm(l.Equal(r)), nil
	}
	if x.Op == algebra.OpNe {
		return boolTerm(!l.Equal(r)), nil
	}

	ll, lok := l.(term.Literal)
	rl, rok := r.(term.Literal)
	if !lok || !rok {
		return nil, sparqlerr.ErrEval.New(fmt.Sprintf("ordering comparison requires literal operands, got %s and %s", l.Kind(), r.Kind()))
	}
	c := ll.Compare(rl)
	switch x.Op {
	case algebra.OpLt:
		return boolTerm(c < 0), nil
	case algebra.OpGt:
		return boolTerm(c > 0), nil
	case algebra.OpLe:
		return boolTerm(c <= 0), nil
	case algebra.OpGe:
		return boolTerm(c >= 0), nil
	default:
		return nil, sparqlerr.ErrEval.New("unknown comparison operator")
	}
}

// numKind orders the XPath numeric promotion ladder int < decimal <
// double; promote always widens toward the richer type (§4.3).
type numKind uint8

const (
	numInt numKind = iota
	numDecimal
	numDouble
)

func numericOf(t term.Term) (float64, numKind, bool) {
	lit, ok := t.(term.Literal)
	if !ok {
		return 0, 0, false
	}
	var k numKind
	switch lit.EffectiveDatatype() {
	case term.XSDInteger:
		k = numInt
	case term.XSDDecimal:
		k = numDecimal
	case term.XSDDouble:
		k = numDouble
	default:
		return 0, 0, false
	}
	f, err := cast.ToFloat64E(lit.Lexical)
	return f, k, err == nil
}

func promote(a, b numKind) numKind {
	if a > b {
		return a
	}
	return b
}
