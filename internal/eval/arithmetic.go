package eval

import (
	"strconv"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

func numericTerm(v float64, k numKind) term.Term {
	switch k {
	case numInt:
		return term.NewTypedLiteral(strconv.FormatInt(int64(v), 10), term.XSDInteger)
	case numDecimal:
		return term.NewTypedLiteral(strconv.FormatFloat(v, 'f', -1, 64), term.XSDDecimal)
	default:
		return term.NewTypedLiteral(strconv.FormatFloat(v, 'g', -1, 64), term.XSDDouble)
	}
}

func evalArithmetic(x algebra.Arithmetic, m binding.Mapping, ctx Context) (term.Term, error) {
	l, err := Eval(x.Left, m, ctx)
	if err != nil {
		return nil, err
	}
	r, err := Eval(x.Right, m, ctx)
	if err != nil {
		return nil, err
	}

	lf, lk, lok := numericOf(l)
	rf, rk, rok := numericOf(r)
	if !lok || !rok {
		return nil, sparqlerr.ErrEval.New("arithmetic requires numeric literal operands")
	}

	switch x.Op {
	case algebra.OpAdd:
		return numericTerm(lf+rf, promote(lk, rk)), nil
	case algebra.OpSub:
		return numericTerm(lf-rf, promote(lk, rk)), nil
	case algebra.OpMul:
		return numericTerm(lf*rf, promote(lk, rk)), nil
	case algebra.OpDiv:
		if rf == 0 {
			return nil, sparqlerr.ErrEval.New("division by zero")
		}
		k := promote(lk, rk)
		if k == numInt {
			// XPath numeric-divide on two integers still yields decimal.
			k = numDecimal
		}
		return numericTerm(lf/rf, k), nil
	default:
		return nil, sparqlerr.ErrEval.New("unknown arithmetic operator")
	}
}

func evalInList(x algebra.InList, m binding.Mapping, ctx Context) (term.Term, error) {
	test, err := Eval(x.Test, m, ctx)
	if err != nil {
		return nil, err
	}

	var firstErr error
	found := false
	for _, item := range x.List {
		v, err := Eval(item, m, ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if test.Equal(v) {
			found = true
			break
		}
	}
	if found {
		return boolTerm(!x.Negate), nil
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return boolTerm(x.Negate), nil
}

func evalExists(x algebra.Exists, m binding.Mapping, ctx Context) (term.Term, error) {
	if ctx.Exists == nil {
		return nil, sparqlerr.ErrEval.New("EXISTS requires an executor-provided evaluation context")
	}
	has, err := ctx.Exists(x.Pattern, m)
	if err != nil {
		return nil, err
	}
	return boolTerm(has != x.Negate), nil
}
