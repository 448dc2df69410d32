package exec

import (
	"fmt"
	"strings"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// serializeSelect turns pattern back into SPARQL text for a SERVICE
// round-trip (§6.3). Faithfulness is only required up to "produces the
// same solution set at the remote endpoint" (§6.3) — this is a
// best-effort serializer covering the pattern shapes SERVICE bodies
// realistically contain (BGP/Join/Filter/Optional/Union/paths), not a
// full algebra-to-text compiler.
func serializeSelect(pattern algebra.Node) (string, error) {
	body, err := serializeNode(pattern)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * WHERE { %s }", body), nil
}

func serializeNode(n algebra.Node) (string, error) {
	switch x := n.(type) {
	case algebra.BGP:
		parts := make([]string, 0, len(x.Patterns))
		for _, p := range x.Patterns {
			s, err := serializeTriplePattern(p)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, " "), nil

	case algebra.Join:
		l, err := serializeNode(x.Left)
		if err != nil {
			return "", err
		}
		r, err := serializeNode(x.Right)
		if err != nil {
			return "", err
		}
		return l + " " + r, nil

	case algebra.LeftJoin:
		l, err := serializeNode(x.Left)
		if err != nil {
			return "", err
		}
		r, err := serializeNode(x.Right)
		if err != nil {
			return "", err
		}
		opt := fmt.Sprintf("%s OPTIONAL { %s", l, r)
		if x.Expr != nil {
			e, err := serializeExpr(x.Expr)
			if err != nil {
				return "", err
			}
			opt += fmt.Sprintf(" FILTER(%s)", e)
		}
		return opt + " }", nil

	case algebra.Union:
		l, err := serializeNode(x.Left)
		if err != nil {
			return "", err
		}
		r, err := serializeNode(x.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("{ %s } UNION { %s }", l, r), nil

	case algebra.Minus:
		l, err := serializeNode(x.Left)
		if err != nil {
			return "", err
		}
		r, err := serializeNode(x.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s MINUS { %s }", l, r), nil

	case algebra.Filter:
		in, err := serializeNode(x.In)
		if err != nil {
			return "", err
		}
		e, err := serializeExpr(x.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s FILTER(%s)", in, e), nil

	case algebra.Extend:
		in, err := serializeNode(x.In)
		if err != nil {
			return "", err
		}
		e, err := serializeExpr(x.Expr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BIND(%s AS ?%s)", in, e, x.Var), nil

	case algebra.Project:
		return serializeNode(x.In)
	case algebra.Distinct:
		return serializeNode(x.In)
	case algebra.Reduced:
		return serializeNode(x.In)
	case algebra.Subquery:
		return serializeNode(x.In)

	default:
		return "", sparqlerr.ErrExecute.New(fmt.Sprintf("SERVICE body contains a pattern shape the serializer does not support: %T", n))
	}
}

func serializeTriplePattern(p algebra.TriplePattern) (string, error) {
	s := serializeTerm(p.Subject)
	o := serializeTerm(p.Object)
	if p.Path != nil {
		path, err := serializePath(*p.Path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s .", s, path, o), nil
	}
	return fmt.Sprintf("%s %s %s .", s, serializeTerm(p.Predicate), o), nil
}

func serializePath(p algebra.Path) (string, error) {
	switch p.Kind {
	case algebra.PathIRI:
		return serializeTerm(p.IRI), nil
	case algebra.PathInverse:
		inner, err := serializePath(*p.Item)
		if err != nil {
			return "", err
		}
		return "^" + inner, nil
	case algebra.PathZeroOrMore:
		inner, err := serializePath(*p.Item)
		if err != nil {
			return "", err
		}
		return inner + "*", nil
	case algebra.PathOneOrMore:
		inner, err := serializePath(*p.Item)
		if err != nil {
			return "", err
		}
		return inner + "+", nil
	case algebra.PathZeroOrOne:
		inner, err := serializePath(*p.Item)
		if err != nil {
			return "", err
		}
		return inner + "?", nil
	case algebra.PathSeq, algebra.PathAlt:
		sep := "/"
		if p.Kind == algebra.PathAlt {
			sep = "|"
		}
		parts := make([]string, 0, len(p.Items))
		for _, it := range p.Items {
			s, err := serializePath(it)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	default:
		return "", sparqlerr.ErrExecute.New("unsupported path kind in SERVICE serializer")
	}
}

func serializeTerm(t term.Term) string {
	switch v := t.(type) {
	case term.Variable:
		return "?" + v.Name
	case term.IRI:
		return "<" + v.Value + ">"
	case term.BlankNode:
		return "_:" + v.ID
	case term.Literal:
		lex := fmt.Sprintf("%q", v.Lexical)
		if v.Language != "" {
			return lex + "@" + v.Language
		}
		if v.Datatype != "" && v.Datatype != term.XSDString {
			return lex + "^^<" + v.Datatype + ">"
		}
		return lex
	default:
		return t.String()
	}
}

func serializeExpr(e algebra.Expr) (string, error) {
	switch x := e.(type) {
	case algebra.VarRef:
		return "?" + x.Name, nil
	case algebra.Const:
		return serializeTerm(x.Value), nil
	case algebra.Compare:
		l, err := serializeExpr(x.Left)
		if err != nil {
			return "", err
		}
		r, err := serializeExpr(x.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, compareOpText(x.Op), r), nil
	case algebra.Logical:
		l, err := serializeExpr(x.Left)
		if err != nil {
			return "", err
		}
		if x.Op == algebra.OpNot {
			return fmt.Sprintf("!(%s)", l), nil
		}
		r, err := serializeExpr(x.Right)
		if err != nil {
			return "", err
		}
		op := "&&"
		if x.Op == algebra.OpOr {
			op = "||"
		}
		return fmt.Sprintf("(%s %s %s)", l, op, r), nil
	case algebra.Arithmetic:
		l, err := serializeExpr(x.Left)
		if err != nil {
			return "", err
		}
		r, err := serializeExpr(x.Right)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, arithOpText(x.Op), r), nil
	case algebra.FunctionCall:
		args := make([]string, 0, len(x.Args))
		for _, a := range x.Args {
			s, err := serializeExpr(a)
			if err != nil {
				return "", err
			}
			args = append(args, s)
		}
		return fmt.Sprintf("%s(%s)", x.Name, strings.Join(args, ", ")), nil
	case algebra.InList:
		test, err := serializeExpr(x.Test)
		if err != nil {
			return "", err
		}
		args := make([]string, 0, len(x.List))
		for _, a := range x.List {
			s, err := serializeExpr(a)
			if err != nil {
				return "", err
			}
			args = append(args, s)
		}
		op := "IN"
		if x.Negate {
			op = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", test, op, strings.Join(args, ", ")), nil
	default:
		return "", sparqlerr.ErrExecute.New(fmt.Sprintf("SERVICE body contains an expression the serializer does not support: %T", e))
	}
}

func compareOpText(op algebra.CompareOp) string {
	switch op {
	case algebra.OpEq:
		return "="
	case algebra.OpNe:
		return "!="
	case algebra.OpLt:
		return "<"
	case algebra.OpGt:
		return ">"
	case algebra.OpLe:
		return "<="
	case algebra.OpGe:
		return ">="
	default:
		return "="
	}
}

func arithOpText(op algebra.ArithOp) string {
	switch op {
	case algebra.OpAdd:
		return "+"
	case algebra.OpSub:
		return "-"
	case algebra.OpMul:
		return "*"
	case algebra.OpDiv:
		return "/"
	default:
		return "+"
	}
}
