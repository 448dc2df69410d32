package eval

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/binding"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// evalFunction dispatches a FunctionCall to its implementation (§4.3).
// BOUND, IF and COALESCE need the unevaluated argument expressions
// (BOUND must not error on an unbound variable; IF/COALESCE only
// evaluate the branch they take), so they're handled before the rest
// of the arguments are eagerly evaluated.
func evalFunction(x algebra.FunctionCall, m binding.Mapping, ctx Context) (term.Term, error) {
	name := strings.ToUpper(x.Name)

	switch name {
	case "BOUND":
		return evalBound(x.Args, m)
	case "IF":
		return evalIf(x.Args, m, ctx)
	case "COALESCE":
		return evalCoalesce(x.Args, m, ctx)
	}

	args := make([]term.Term, len(x.Args))
	for i, a := range x.Args {
		v, err := Eval(a, m, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch name {
	case "STR":
		return fnStr(args)
	case "LANG":
		return fnLang(args)
	case "DATATYPE":
		return fnDatatype(args)
	case "ISIRI", "ISURI":
		return fnIsKind(args, term.KindIRI)
	case "ISLITERAL":
		return fnIsKind(args, term.KindLiteral)
	case "ISBLANK":
		return fnIsKind(args, term.KindBlankNode)
	case "REGEX":
		return fnRegex(args)
	case "CONTAINS":
		return fnStrBoolOp(args, strings.Contains)
	case "STRSTARTS":
		return fnStrBoolOp(args, strings.HasPrefix)
	case "STRENDS":
		return fnStrBoolOp(args, strings.HasSuffix)
	case "STRLEN":
		return fnStrlen(args)
	case "UCASE":
		return fnCase(args, strings.ToUpper)
	case "LCASE":
		return fnCase(args, strings.ToLower)
	case "SUBSTR":
		return fnSubstr(args)
	case "REPLACE":
		return fnReplace(args)
	case "CONCAT":
		return fnConcat(args)
	case "NOW":
		return fnNow(ctx)
	case "YEAR":
		return fnDatePart(args, "year")
	case "MONTH":
		return fnDatePart(args, "month")
	case "DAY":
		return fnDatePart(args, "day")
	case "HOURS":
		return fnDatePart(args, "hours")
	case "MINUTES":
		return fnDatePart(args, "minutes")
	case "SECONDS":
		return fnDatePart(args, "seconds")
	case "ABS":
		return fnMath(args, math.Abs)
	case "CEIL":
		return fnMath(args, math.Ceil)
	case "FLOOR":
		return fnMath(args, math.Floor)
	case "ROUND":
		return fnMath(args, roundHalfUp)
	default:
		return nil, sparqlerr.ErrUnknownFunction.New(x.Name)
	}
}

func requireArgs(args []term.Term, n int, fn string) error {
	if len(args) != n {
		return sparqlerr.ErrEval.New(fmt.Sprintf("%s expects %d argument(s), got %d", fn, n, len(args)))
	}
	return nil
}

func lexicalOf(t term.Term) (string, error) {
	switch x := t.(type) {
	case term.Literal:
		return x.Lexical, nil
	case term.IRI:
		return x.Value, nil
	default:
		return "", sparqlerr.ErrEval.New(fmt.Sprintf("expected a literal or IRI argument, got %s", t.Kind()))
	}
}

func evalBound(args []algebra.Expr, m binding.Mapping) (term.Term, error) {
	if len(args) != 1 {
		return nil, sparqlerr.ErrEval.New("BOUND expects exactly 1 argument")
	}
	v, ok := args[0].(algebra.VarRef)
	if !ok {
		return nil, sparqlerr.ErrEval.New("BOUND requires a variable argument")
	}
	return boolTerm(m.Bound(v.Name)), nil
}

func evalIf(args []algebra.Expr, m binding.Mapping, ctx Context) (term.Term, error) {
	if len(args) != 3 {
		return nil, sparqlerr.ErrEval.New("IF expects exactly 3 arguments")
	}
	cond, err := evalBool(args[0], m, ctx)
	if err != nil {
		return nil, err
	}
	if cond {
		return Eval(args[1], m, ctx)
	}
	return Eval(args[2], m, ctx)
}

func evalCoalesce(args []algebra.Expr, m binding.Mapping, ctx Context) (term.Term, error) {
	var lastErr error
	for _, a := range args {
		v, err := Eval(a, m, ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, sparqlerr.ErrEval.New("COALESCE requires at least one argument")
}

func fnStr(args []term.Term) (term.Term, error) {
	if err := requireArgs(args, 1, "STR"); err != nil {
		return nil, err
	}
	switch t := args[0].(type) {
	case term.IRI:
		return term.NewPlainLiteral(t.Value), nil
	case term.Literal:
		return term.NewPlainLiteral(t.Lexical), nil
	default:
		return nil, sparqlerr.ErrEval.New("STR requires an IRI or literal argument")
	}
}

func fnLang(args []term.Term) (term.Term, error) {
	if err := requireArgs(args, 1, "LANG"); err != nil {
		return nil, err
	}
	lit, ok := args[0].(term.Literal)
	if !ok {
		return nil, sparqlerr.ErrEval.New("LANG requires a literal argument")
	}
	return term.NewPlainLiteral(lit.Language), nil
}

func fnDatatype(args []term.Term) (term.Term, error) {
	if err := requireArgs(args, 1, "DATATYPE"); err != nil {
		return nil, err
	}
	lit, ok := args[0].(term.Literal)
	if !ok {
		return nil, sparqlerr.ErrEval.New("DATATYPE requires a literal argument")
	}
	return term.NewIRI(lit.EffectiveDatatype()), nil
}

func fnIsKind(args []term.Term, k term.Kind) (term.Term, error) {
	if err := requireArgs(args, 1, "ISIRI/ISLITERAL/ISBLANK"); err != nil {
		return nil, err
	}
	return boolTerm(args[0].Kind() == k), nil
}

func fnStrBoolOp(args []term.Term, op func(string, string) bool) (term.Term, error) {
	if err := requireArgs(args, 2, "string comparison function"); err != nil {
		return nil, err
	}
	a, err := lexicalOf(args[0])
	if err != nil {
		return nil, err
	}
	b, err := lexicalOf(args[1])
	if err != nil {
		return nil, err
	}
	return boolTerm(op(a, b)), nil
}

func fnStrlen(args []term.Term) (term.Term, error) {
	if err := requireArgs(args, 1, "STRLEN"); err != nil {
		return nil, err
	}
	s, err := lexicalOf(args[0])
	if err != nil {
		return nil, err
	}
	return term.NewTypedLiteral(strconv.Itoa(len([]rune(s))), term.XSDInteger), nil
}

func fnCase(args []term.Term, op func(string) string) (term.Term, error) {
	if err := requireArgs(args, 1, "UCASE/LCASE"); err != nil {
		return nil, err
	}
	lit, ok := args[0].(term.Literal)
	if !ok {
		return nil, sparqlerr.ErrEval.New("UCASE/LCASE requires a literal argument")
	}
	out := op(lit.Lexical)
	switch {
	case lit.Language != "":
		return term.NewLangLiteral(out, lit.Language), nil
	case lit.Datatype != "" && lit.Datatype != term.XSDString:
		return term.NewTypedLiteral(out, lit.Datatype), nil
	default:
		return term.NewPlainLiteral(out), nil
	}
}

func numArg(t term.Term) (float64, error) {
	f, _, ok := numericOf(t)
	if !ok {
		return 0, sparqlerr.ErrEval.New("expected a numeric literal argument")
	}
	return f, nil
}

// fnSubstr implements XPath's 1-indexed, clamped fn:substring.
func fnSubstr(args []term.Term) (term.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, sparqlerr.ErrEval.New("SUBSTR expects 2 or 3 arguments")
	}
	s, err := lexicalOf(args[0])
	if err != nil {
		return nil, err
	}
	runes := []rune(s)

	start, err := numArg(args[1])
	if err != nil {
		return nil, err
	}
	from := int(start) - 1
	if from < 0 {
		from = 0
	}
	if from > len(runes) {
		from = len(runes)
	}

	end := len(runes)
	if len(args) == 3 {
		length, err := numArg(args[2])
		if err != nil {
			return nil, err
		}
		end = from + int(length)
		if end > len(runes) {
			end = len(runes)
		}
		if end < from {
			end = from
		}
	}
	return term.NewPlainLiteral(string(runes[from:end])), nil
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	prefix := ""
	if strings.Contains(flags, "i") {
		prefix += "(?i)"
	}
	if strings.Contains(flags, "s") {
		prefix += "(?s)"
	}
	re, err := regexp.Compile(prefix + pattern)
	if err != nil {
		return nil, sparqlerr.ErrEval.New(fmt.Sprintf("invalid REGEX pattern %q: %v", pattern, err))
	}
	return re, nil
}

func fnRegex(args []term.Term) (term.Term, error) {
	if len(args) != 2 && len(args) != 3 {
		return nil, sparqlerr.ErrEval.New("REGEX expects 2 or 3 arguments")
	}
	s, err := lexicalOf(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := lexicalOf(args[1])
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(args) == 3 {
		flags, err = lexicalOf(args[2])
		if err != nil {
			return nil, err
		}
	}
	re, err := compileRegex(pattern, flags)
	if err != nil {
		return nil, err
	}
	return boolTerm(re.MatchString(s)), nil
}

func fnReplace(args []term.Term) (term.Term, error) {
	if len(args) != 3 && len(args) != 4 {
		return nil, sparqlerr.ErrEval.New("REPLACE expects 3 or 4 arguments")
	}
	s, err := lexicalOf(args[0])
	if err != nil {
		return nil, err
	}
	pattern, err := lexicalOf(args[1])
	if err != nil {
		return nil, err
	}
	replacement, err := lexicalOf(args[2])
	if err != nil {
		return nil, err
	}
	flags := ""
	if len(args) == 4 {
		flags, err = lexicalOf(args[3])
		if err != nil {
			return nil, err
		}
	}
	re, err := compileRegex(pattern, flags)
	if err != nil {
		return nil, err
	}
	return term.NewPlainLiteral(re.ReplaceAllString(s, replacement)), nil
}

func fnConcat(args []term.Term) (term.Term, error) {
	var b strings.Builder
	for _, a := range args {
		s, err := lexicalOf(a)
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
	}
	return term.NewPlainLiteral(b.String()), nil
}

func fnNow(ctx Context) (term.Term, error) {
	now := time.Now
	if ctx.Now != nil {
		now = ctx.Now
	}
	return term.NewTypedLiteral(now().UTC().Format(time.RFC3339), term.XSDDateTime), nil
}

func parseDateTime(t term.Term) (time.Time, error) {
	lit, ok := t.(term.Literal)
	if !ok || lit.EffectiveDatatype() != term.XSDDateTime {
		return time.Time{}, sparqlerr.ErrEval.New("expected an xsd:dateTime literal argument")
	}
	if v, err := time.Parse(time.RFC3339, lit.Lexical); err == nil {
		return v, nil
	}
	if v, err := time.Parse("2006-01-02T15:04:05", lit.Lexical); err == nil {
		return v, nil
	}
	return time.Time{}, sparqlerr.ErrEval.New("unparseable xsd:dateTime lexical " + lit.Lexical)
}

func fnDatePart(args []term.Term, part string) (term.Term, error) {
	if err := requireArgs(args, 1, strings.ToUpper(part)); err != nil {
		return nil, err
	}
	t, err := parseDateTime(args[0])
	if err != nil {
		return nil, err
	}
	var v int
	switch part {
	case "year":
		v = t.Year()
	case "month":
		v = int(t.Month())
	case "day":
		v = t.Day()
	case "hours":
		v = t.Hour()
	case "minutes":
		v = t.Minute()
	case "seconds":
		v = t.Second()
	}
	return term.NewTypedLiteral(strconv.Itoa(v), term.XSDInteger), nil
}

func fnMath(args []term.Term, op func(float64) float64) (term.Term, error) {
	if err := requireArgs(args, 1, "numeric function"); err != nil {
		return nil, err
	}
	f, k, ok := numericOf(args[0])
	if !ok {
		return nil, sparqlerr.ErrEval.New("expected a numeric literal argument")
	}
	return numericTerm(op(f), k), nil
}

func roundHalfUp(f float64) float64 {
	return math.Floor(f + 0.5)
}
