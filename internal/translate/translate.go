// Package translate implements the AST→algebra translator (C5): the
// only place in the pipeline that understands the parser's AST shape
// (spec §6.1). Everything downstream — optimizer, evaluator, executor —
// operates purely on the algebra.Node sum type.
package translate

import (
	"fmt"

	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/ast"
	"github.com/exocortex-kb/sparqlengine/internal/term"
	"github.com/exocortex-kb/sparqlengine/sparqlerr"
)

// Translate converts a parsed query into its algebra tree (§4.4).
func Translate(q *ast.Query) (algebra.Node, error) {
	if q == nil {
		return nil, sparqlerr.ErrTranslate.New("nil query")
	}

	switch q.QueryType {
	case ast.Select:
		return translateSelect(q)
	case ast.Ask:
		where, err := translateWhere(q.Where)
		if err != nil {
			return nil, err
		}
		return algebra.Ask{Where: where}, nil
	case ast.Construct:
		where, err := translateWhere(q.Where)
		if err != nil {
			return nil, err
		}
		tmpl, err := translateTemplate(q.Template)
		if err != nil {
			return nil, err
		}
		return algebra.Construct{Template: tmpl, Where: where}, nil
	default:
		return nil, sparqlerr.ErrUnsupportedNode.New(string(q.QueryType))
	}
}

// translateSelect implements the outer-to-inner structure of §4.4:
// slice → orderby → distinct/reduced → project → extend(per computed
// projection) → group(if aggregates/GROUP BY) → where.
func translateSelect(q *ast.Query) (algebra.Node, error) {
	node, err := translateWhere(q.Where)
	if err != nil {
		return nil, err
	}

	hasAggregates := len(q.Group) > 0 || selectHasAggregate(q.Variables)
	if hasAggregates {
		node, err = wrapGroup(q, node)
		if err != nil {
			return nil, err
		}
	}

	// one extend per computed projection `(expr AS ?v)`, source order.
	// A projection that is itself an aggregate is already bound by the
	// group as that aggregate's output variable and gets no extend.
	for _, p := range q.Variables {
		if p.Expr.Kind == "" || p.Expr.Kind == ast.ExprAggregate {
			continue
		}
		e, err := translateExpr(p.Expr)
		if err != nil {
			return nil, err
		}
		node = algebra.Extend{Var: p.Var, Expr: e, In: node}
	}

	vars := make([]string, 0, len(q.Variables))
	for _, p := range q.Variables {
		vars = append(vars, p.Var)
	}
	if len(vars) > 0 {
		node = algebra.Project{Vars: vars, In: node}
	}

	if q.Distinct {
		node = algebra.Distinct{In: node}
	} else if q.Reduced {
		node = algebra.Reduced{In: node}
	}

	if len(q.Order) > 0 {
		cmps := make([]algebra.SortExpr, 0, len(q.Order))
		for _, o := range q.Order {
			e, err := translateExpr(o.Expr)
			if err != nil {
				return nil, err
			}
			dir := algebra.Ascending
			if o.Descending {
				dir = algebra.Descending
			}
			cmps = append(cmps, algebra.SortExpr{Expr: e, Dir: dir})
		}
		node = algebra.OrderBy{Comparators: cmps, In: node}
	}

	if q.Limit != nil || q.Offset != nil {
		node = algebra.Slice{Offset: q.Offset, Limit: q.Limit, In: node}
	}

	return algebra.Select{Vars: vars, In: node}, nil
}

func selectHasAggregate(vars []ast.ProjectionTerm) bool {
	for _, v := range vars {
		if containsAggregate(v.Expr) {
			return true
		}
	}
	return false
}

func containsAggregate(e ast.Expr) bool {
	if e.Kind == ast.ExprAggregate {
		return true
	}
	for _, a := range e.Args {
		if containsAggregate(a) {
			return true
		}
	}
	return false
}

func wrapGroup(q *ast.Query, in algebra.Node) (algebra.Node, error) {
	keys := make([]algebra.GroupKey, 0, len(q.Group))
	for i, g := range q.Group {
		e, err := translateExpr(g)
		if err != nil {
			return nil, err
		}
		out := ""
		if i < len(q.GroupVars) {
			out = q.GroupVars[i]
		}
		keys = append(keys, algebra.GroupKey{Expr: e, OutputVar: out})
	}

	aggs := make([]algebra.AggregateExpr, 0)
	for _, p := range q.Variables {
		found, err := collectAggregates(p.Expr, p.Var)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, found...)
	}

	return algebra.Group{Keys: keys, Aggs: aggs, In: in}, nil
}

func collectAggregates(e ast.Expr, outputVar string) ([]algebra.AggregateExpr, error) {
	if e.Kind != ast.ExprAggregate {
		return nil, nil
	}
	kind, err := aggregateKind(e.Function)
	if err != nil {
		return nil, err
	}
	var arg algebra.Expr
	if len(e.Args) > 0 {
		arg, err = translateExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
	}
	return []algebra.AggregateExpr{{
		Kind:      kind,
		Expr:      arg,
		Distinct:  e.Distinct,
		Separator: e.Separator,
		OutputVar: outputVar,
	}}, nil
}

func aggregateKind(name string) (algebra.AggregateKind, error) {
	switch name {
	case "count":
		return algebra.AggCount, nil
	case "sum":
		return algebra.AggSum, nil
	case "avg":
		return algebra.AggAvg, nil
	case "min":
		return algebra.AggMin, nil
	case "max":
		return algebra.AggMax, nil
	case "group_concat":
		return algebra.AggGroupConcat, nil
	default:
		return 0, sparqlerr.ErrUnknownFunction.New(name)
	}
}

// translateWhere implements §4.4's WHERE-clause rule: partition into
// filter/bind/other, join the others left-to-right (empty → bgp([])),
// then wrap with one extend per BIND and one filter per FILTER, each
// class in source order.
func translateWhere(patterns []ast.Pattern) (algebra.Node, error) {
	var others []ast.Pattern
	var binds []ast.Pattern
	var filters []ast.Pattern

	for _, p := range patterns {
		switch p.Kind {
		case ast.PatternBind:
			binds = append(binds, p)
		case ast.PatternFilter:
			filters = append(filters, p)
		default:
			others = append(others, p)
		}
	}

	var node algebra.Node = algebra.BGP{}
	first := true
	for _, p := range others {
		child, err := translatePattern(p)
		if err != nil {
			return nil, err
		}
		switch {
		case first:
			node = child
		case isUnfoldedOptional(child):
			// OPTIONAL translates to leftjoin(bgp([]), inner, e?) with a
			// bgp([]) placeholder for its left operand (§4.4); fold the
			// accumulated context into that slot here instead of
			// wrapping it in a further join, which would evaluate the
			// filter against the optional's own bindings instead of the
			// merged outer+optional mapping.
			lj := child.(algebra.LeftJoin)
			node = algebra.LeftJoin{Left: node, Right: lj.Right, Expr: lj.Expr}
		default:
			node = algebra.Join{Left: node, Right: child}
		}
		first = false
	}

	for _, b := range binds {
		e, err := translateExpr(*exprOf(b))
		if err != nil {
			return nil, err
		}
		node = algebra.Extend{Var: b.BindVar, Expr: e, In: node}
	}

	for _, f := range filters {
		e, err := translateExpr(f.Expr)
		if err != nil {
			return nil, err
		}
		node = algebra.Filter{Expr: e, In: node}
	}

	return node, nil
}

// exprOf returns the expression carried by a BIND pattern (stored in
// the shared Expr field).
func exprOf(p ast.Pattern) *ast.Expr { return &p.Expr }

// isUnfoldedOptional reports whether n is the bgp([])-placeholder
// LeftJoin produced directly by translatePattern for an OPTIONAL that
// has not yet been folded against its preceding context.
func isUnfoldedOptional(n algebra.Node) bool {
	lj, ok := n.(algebra.LeftJoin)
	if !ok {
		return false
	}
	b, ok := lj.Left.(algebra.BGP)
	return ok && len(b.Patterns) == 0
}

func translatePattern(p ast.Pattern) (algebra.Node, error) {
	switch p.Kind {
	case ast.PatternBGP:
		return translateBGP(p.Triples)
	case ast.PatternGroup:
		return translateWhere(p.Patterns)
	case ast.PatternOptional:
		inner, err := translateWhere(p.Patterns)
		if err != nil {
			return nil, err
		}
		// split off a trailing filter embedded in the optional's own
		// pattern list, if the parser folded it there (common shape for
		// `OPTIONAL { ... FILTER(...) }`).
		var innerFilter algebra.Expr
		if f, ok := inner.(algebra.Filter); ok {
			innerFilter = f.Expr
			inner = f.In
		}
		// Left is a bgp([]) placeholder per §4.4: the real outer
		// context becomes the left side once this node is folded into
		// a join by the surrounding translateWhere loop; the optimizer
		// and executor both treat an empty bgp as a join identity.
		return algebra.LeftJoin{Left: algebra.BGP{}, Right: inner, Expr: innerFilter}, nil
	case ast.PatternUnion:
		left, err := translateWhere(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := translateWhere(p.Right)
		if err != nil {
			return nil, err
		}
		return algebra.Union{Left: left, Right: right}, nil
	case ast.PatternMinus:
		left, err := translateWhere(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := translateWhere(p.Right)
		if err != nil {
			return nil, err
		}
		return algebra.Minus{Left: left, Right: right}, nil
	case ast.PatternValues:
		rows := make([]map[string]term.Term, 0, len(p.ValuesRows))
		for _, row := range p.ValuesRows {
			r := make(map[string]term.Term, len(row))
			for k, v := range row {
				t, err := translateTerm(v)
				if err != nil {
					return nil, err
				}
				r[k] = t
			}
			rows = append(rows, r)
		}
		return algebra.Values{Vars: p.ValuesVars, Rows: rows}, nil
	case ast.PatternQuery:
		inner, err := translateSelect(p.Subquery)
		if err != nil {
			return nil, err
		}
		return algebra.Subquery{In: inner}, nil
	case ast.PatternService:
		pattern, err := translateWhere(p.Patterns)
		if err != nil {
			return nil, err
		}
		return algebra.Service{Endpoint: p.ServiceEndpoint, Pattern: pattern, Silent: p.ServiceSilent}, nil
	default:
		return nil, sparqlerr.ErrUnsupportedNode.New(string(p.Kind))
	}
}

func translateBGP(triples []ast.TriplePattern) (algebra.Node, error) {
	out := make([]algebra.TriplePattern, 0, len(triples))
	for _, t := range triples {
		tp, err := translateTriplePattern(t)
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return algebra.BGP{Patterns: out}, nil
}

func translateTriplePattern(t ast.TriplePattern) (algebra.TriplePattern, error) {
	s, err := translateTerm(t.Subject)
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	o, err := translateTerm(t.Object)
	if err != nil {
		return algebra.TriplePattern{}, err
	}

	if t.Path != nil {
		p, err := translatePath(*t.Path)
		if err != nil {
			return algebra.TriplePattern{}, err
		}
		return algebra.TriplePattern{Subject: s, Path: &p, Object: o}, nil
	}

	pred, err := translateTerm(t.Predicate)
	if err != nil {
		return algebra.TriplePattern{}, err
	}
	return algebra.TriplePattern{Subject: s, Predicate: pred, Object: o}, nil
}

// translatePath enforces §3 invariant (i): Seq/Alt carry Items, the
// four unary kinds carry exactly one Item.
func translatePath(p ast.PathPredicate) (algebra.Path, error) {
	kindMap := map[ast.PathKind]algebra.PathKind{
		ast.PathSeq:        algebra.PathSeq,
		ast.PathAlt:        algebra.PathAlt,
		ast.PathInverse:    algebra.PathInverse,
		ast.PathZeroOrMore: algebra.PathZeroOrMore,
		ast.PathOneOrMore:  algebra.PathOneOrMore,
		ast.PathZeroOrOne:  algebra.PathZeroOrOne,
	}
	kind, ok := kindMap[p.PathType]
	if !ok {
		return algebra.Path{}, sparqlerr.ErrUnsupportedNode.New(fmt.Sprintf("path type %q", p.PathType))
	}

	isUnary := kind == algebra.PathInverse || kind == algebra.PathZeroOrMore ||
		kind == algebra.PathOneOrMore || kind == algebra.PathZeroOrOne

	if isUnary {
		if len(p.Items) != 1 {
			return algebra.Path{}, sparqlerr.ErrTranslate.New(
				fmt.Sprintf("unary path %q must have exactly one child, got %d", p.PathType, len(p.Items)))
		}
		child, err := translatePathItem(p.Items[0])
		if err != nil {
			return algebra.Path{}, err
		}
		return algebra.Path{Kind: kind, Item: &child}, nil
	}

	items := make([]algebra.Path, 0, len(p.Items))
	for _, it := range p.Items {
		child, err := translatePathItem(it)
		if err != nil {
			return algebra.Path{}, err
		}
		items = append(items, child)
	}
	return algebra.Path{Kind: kind, Items: items}, nil
}

func translatePathItem(it ast.PathItem) (algebra.Path, error) {
	if it.Path != nil {
		return translatePath(*it.Path)
	}
	return algebra.Path{Kind: algebra.PathIRI, IRI: term.NewIRI(it.IRI)}, nil
}

func translateTemplate(triples []ast.TriplePattern) ([]algebra.ConstructTemplate, error) {
	out := make([]algebra.ConstructTemplate, 0, len(triples))
	for _, t := range triples {
		s, err := translateTerm(t.Subject)
		if err != nil {
			return nil, err
		}
		p, err := translateTerm(t.Predicate)
		if err != nil {
			return nil, err
		}
		o, err := translateTerm(t.Object)
		if err != nil {
			return nil, err
		}
		out = append(out, algebra.ConstructTemplate{Subject: s, Predicate: p, Object: o})
	}
	return out, nil
}

func translateTerm(t ast.Term) (term.Term, error) {
	switch t.TermType {
	case ast.TermVariable:
		return term.NewVariable(t.Value), nil
	case ast.TermNamedNode:
		return term.NewIRI(t.Value), nil
	case ast.TermBlankNode:
		return term.NewBlankNode(t.Value), nil
	case ast.TermLiteral:
		switch {
		case t.Language != "":
			return term.NewLangLiteral(t.Value, t.Language), nil
		case t.Datatype != "":
			return term.NewTypedLiteral(t.Value, t.Datatype), nil
		default:
			return term.NewPlainLiteral(t.Value), nil
		}
	default:
		return nil, sparqlerr.ErrUnsupportedNode.New(fmt.Sprintf("termType %q", t.TermType))
	}
}

func translateExpr(e ast.Expr) (algebra.Expr, error) {
	switch e.Kind {
	case ast.ExprTerm:
		if e.TermVal == nil {
			return nil, sparqlerr.ErrTranslate.New("term expression missing value")
		}
		if e.TermVal.TermType == ast.TermVariable {
			return algebra.VarRef{Name: e.TermVal.Value}, nil
		}
		t, err := translateTerm(*e.TermVal)
		if err != nil {
			return nil, err
		}
		return algebra.Const{Value: t}, nil

	case ast.ExprOperation:
		return translateOperation(e)

	case ast.ExprFunctionCall:
		args, err := translateExprList(e.Args)
		if err != nil {
			return nil, err
		}
		return algebra.FunctionCall{Name: e.Function, Args: args}, nil

	case ast.ExprAggregate:
		var arg algebra.Expr
		var err error
		if len(e.Args) > 0 {
			arg, err = translateExpr(e.Args[0])
			if err != nil {
				return nil, err
			}
		}
		kind, err := aggregateKind(e.Function)
		if err != nil {
			return nil, err
		}
		return algebra.Aggregate{Kind: kind, Arg: arg, Distinct: e.Distinct, Separator: e.Separator}, nil

	default:
		return nil, sparqlerr.ErrUnsupportedNode.New(fmt.Sprintf("expression kind %q", e.Kind))
	}
}

func translateExprList(es []ast.Expr) ([]algebra.Expr, error) {
	out := make([]algebra.Expr, 0, len(es))
	for _, e := range es {
		t, err := translateExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

var compareOps = map[string]algebra.CompareOp{
	"=": algebra.OpEq, "!=": algebra.OpNe,
	"<": algebra.OpLt, ">": algebra.OpGt,
	"<=": algebra.OpLe, ">=": algebra.OpGe,
}

var arithOps = map[string]algebra.ArithOp{
	"+": algebra.OpAdd, "-": algebra.OpSub, "*": algebra.OpMul, "/": algebra.OpDiv,
}

func translateOperation(e ast.Expr) (algebra.Expr, error) {
	switch e.Operator {
	case "=", "!=", "<", ">", "<=", ">=":
		if len(e.Args) != 2 {
			return nil, sparqlerr.ErrTranslate.New(fmt.Sprintf("comparison %q needs 2 args, got %d", e.Operator, len(e.Args)))
		}
		l, err := translateExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		r, err := translateExpr(e.Args[1])
		if err != nil {
			return nil, err
		}
		return algebra.Compare{Op: compareOps[e.Operator], Left: l, Right: r}, nil

	case "&&", "||":
		if len(e.Args) != 2 {
			return nil, sparqlerr.ErrTranslate.New(fmt.Sprintf("logical %q needs 2 args, got %d", e.Operator, len(e.Args)))
		}
		l, err := translateExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		r, err := translateExpr(e.Args[1])
		if err != nil {
			return nil, err
		}
		op := algebra.OpAnd
		if e.Operator == "||" {
			op = algebra.OpOr
		}
		return algebra.Logical{Op: op, Left: l, Right: r}, nil

	case "!":
		if len(e.Args) != 1 {
			return nil, sparqlerr.ErrTranslate.New("unary ! needs exactly 1 arg")
		}
		l, err := translateExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		return algebra.Logical{Op: algebra.OpNot, Left: l}, nil

	case "+", "-", "*", "/":
		if len(e.Args) != 2 {
			return nil, sparqlerr.ErrTranslate.New(fmt.Sprintf("arithmetic %q needs 2 args, got %d", e.Operator, len(e.Args)))
		}
		l, err := translateExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		r, err := translateExpr(e.Args[1])
		if err != nil {
			return nil, err
		}
		return algebra.Arithmetic{Op: arithOps[e.Operator], Left: l, Right: r}, nil

	case "exists", "notexists":
		where, err := translateWhere(e.Pattern)
		if err != nil {
			return nil, err
		}
		return algebra.Exists{Pattern: where, Negate: e.Operator == "notexists"}, nil

	case "in", "notin":
		if len(e.Args) < 1 {
			return nil, sparqlerr.ErrTranslate.New("IN needs a test expression")
		}
		test, err := translateExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		list, err := translateExprList(e.Args[1:])
		if err != nil {
			return nil, err
		}
		return algebra.InList{Test: test, List: list, Negate: e.Operator == "notin"}, nil

	default:
		return nil, sparqlerr.ErrUnsupportedNode.New(fmt.Sprintf("operator %q", e.Operator))
	}
}
