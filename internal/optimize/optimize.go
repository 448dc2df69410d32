// Package optimize implements the rule-based optimizer (C6): two pure,
// total rewrite passes over the algebra tree — filter push-down, then
// join reordering driven by a heuristic, I/O-free cost estimate (§4.5).
// Neither pass changes a query's result multiset; they only change the
// shape of the plan that produces it.
package optimize

import (
	"github.com/exocortex-kb/sparqlengine/internal/algebra"
	"github.com/exocortex-kb/sparqlengine/internal/term"
)

// Optimize rewrites n, applying filter push-down followed by join
// reordering, each as one full pass over the tree.
func Optimize(n algebra.Node) algebra.Node {
	return reorder(pushDown(n))
}

// ---- filter push-down ----

// pushDown recurses through n, pushing each Filter it encounters as far
// toward the leaves as the §4.5 rules allow.
func pushDown(n algebra.Node) algebra.Node {
	switch x := n.(type) {
	case algebra.Filter:
		return pushFilterInto(x.Expr, pushDown(x.In))
	case algebra.Join:
		return algebra.Join{Left: pushDown(x.Left), Right: pushDown(x.Right)}
	case algebra.LeftJoin:
		return algebra.LeftJoin{Left: pushDown(x.Left), Right: pushDown(x.Right), Expr: x.Expr}
	case algebra.Union:
		return algebra.Union{Left: pushDown(x.Left), Right: pushDown(x.Right)}
	case algebra.Minus:
		return algebra.Minus{Left: pushDown(x.Left), Right: pushDown(x.Right)}
	case algebra.Extend:
		return algebra.Extend{Var: x.Var, Expr: x.Expr, In: pushDown(x.In)}
	case algebra.Project:
		return algebra.Project{Vars: x.Vars, In: pushDown(x.In)}
	case algebra.Distinct:
		return algebra.Distinct{In: pushDown(x.In)}
	case algebra.Reduced:
		return algebra.Reduced{In: pushDown(x.In)}
	case algebra.OrderBy:
		return algebra.OrderBy{Comparators: x.Comparators, In: pushDown(x.In)}
	case algebra.Slice:
		return algebra.Slice{Offset: x.Offset, Limit: x.Limit, In: pushDown(x.In)}
	case algebra.Group:
		return algebra.Group{Keys: x.Keys, Aggs: x.Aggs, In: pushDown(x.In)}
	case algebra.Subquery:
		return algebra.Subquery{In: pushDown(x.In)}
	case algebra.Service:
		return algebra.Service{Endpoint: x.Endpoint, Pattern: pushDown(x.Pattern), Silent: x.Silent}
	case algebra.Ask:
		return algebra.Ask{Where: pushDown(x.Where)}
	case algebra.Construct:
		return algebra.Construct{Template: x.Template, Where: pushDown(x.Where)}
	case algebra.Select:
		return algebra.Select{Vars: x.Vars, In: pushDown(x.In)}
	default:
		// BGP, Values: leaves, nothing to push through.
		return n
	}
}

// pushFilterInto attempts to move a filter carrying expr one level
// further down into in, per §4.5. in is assumed already pushed-down.
func pushFilterInto(expr algebra.Expr, in algebra.Node) algebra.Node {
	fv := freeVars(expr)

	switch x := in.(type) {
	case algebra.Join:
		lv, rv := vars(x.Left), vars(x.Right)
		switch {
		case subset(fv, lv) && !subset(fv, rv):
			return algebra.Join{Left: pushFilterInto(expr, x.Left), Right: x.Right}
		case subset(fv, rv) && !subset(fv, lv):
			return algebra.Join{Left: x.Left, Right: pushFilterInto(expr, x.Right)}
		default:
			return algebra.Filter{Expr: expr, In: x}
		}

	case algebra.Union:
		// duplicate the filter into both branches.
		return algebra.Union{
			Left:  pushFilterInto(expr, x.Left),
			Right: pushFilterInto(expr, x.Right),
		}

	case algebra.LeftJoin:
		// never push into the right side — OPTIONAL's right side must see
		// unfiltered input or rows that should have produced unbound
		// optional vars get dropped instead (safety restriction, §4.5).
		// When expr's variables are disjoint from the right side and all
		// bound by the left, the filter moves into the left side.
		rv := vars(x.Right)
		if disjoint(fv, rv) {
			lv := vars(x.Left)
			if subset(fv, lv) {
				return algebra.LeftJoin{Left: pushFilterInto(expr, x.Left), Right: x.Right, Expr: x.Expr}
			}
		}
		return algebra.Filter{Expr: expr, In: x}

	case algebra.Project:
		return algebra.Project{Vars: x.Vars, In: pushFilterInto(expr, x.In)}
	case algebra.OrderBy:
		return algebra.OrderBy{Comparators: x.Comparators, In: pushFilterInto(expr, x.In)}
	case algebra.Slice:
		return algebra.Slice{Offset: x.Offset, Limit: x.Limit, In: pushFilterInto(expr, x.In)}
	case algebra.Distinct:
		return algebra.Distinct{In: pushFilterInto(expr, x.In)}

	default:
		return algebra.Filter{Expr: expr, In: in}
	}
}

// ---- join reordering ----

// reorder recurses through n, swapping a Join's operands wherever the
// right side is cheaper than the left (§4.5). It does not reorder
// across leftjoin (ordering is semantic there) or union.
func reorder(n algebra.Node) algebra.Node {
	switch x := n.(type) {
	case algebra.Join:
		l, r := reorder(x.Left), reorder(x.Right)
		if cost(r) < cost(l) {
			l, r = r, l
		}
		return algebra.Join{Left: l, Right: r}
	case algebra.LeftJoin:
		return algebra.LeftJoin{Left: reorder(x.Left), Right: reorder(x.Right), Expr: x.Expr}
	case algebra.Union:
		return algebra.Union{Left: reorder(x.Left), Right: reorder(x.Right)}
	case algebra.Minus:
		return algebra.Minus{Left: reorder(x.Left), Right: reorder(x.Right)}
	case algebra.Filter:
		return algebra.Filter{Expr: x.Expr, In: reorder(x.In)}
	case algebra.Extend:
		return algebra.Extend{Var: x.Var, Expr: x.Expr, In: reorder(x.In)}
	case algebra.Project:
		return algebra.Project{Vars: x.Vars, In: reorder(x.In)}
	case algebra.Distinct:
		return algebra.Distinct{In: reorder(x.In)}
	case algebra.Reduced:
		return algebra.Reduced{In: reorder(x.In)}
	case algebra.OrderBy:
		return algebra.OrderBy{Comparators: x.Comparators, In: reorder(x.In)}
	case algebra.Slice:
		return algebra.Slice{Offset: x.Offset, Limit: x.Limit, In: reorder(x.In)}
	case algebra.Group:
		return algebra.Group{Keys: x.Keys, Aggs: x.Aggs, In: reorder(x.In)}
	case algebra.Subquery:
		return algebra.Subquery{In: reorder(x.In)}
	case algebra.Service:
		return algebra.Service{Endpoint: x.Endpoint, Pattern: reorder(x.Pattern), Silent: x.Silent}
	case algebra.Ask:
		return algebra.Ask{Where: reorder(x.Where)}
	case algebra.Construct:
		return algebra.Construct{Template: x.Template, Where: reorder(x.Where)}
	case algebra.Select:
		return algebra.Select{Vars: x.Vars, In: reorder(x.In)}
	default:
		return n
	}
}

// cost estimates the relative cost of evaluating n (§4.5). It is a
// heuristic over plan shape only, never touching the store.
func cost(n algebra.Node) float64 {
	switch x := n.(type) {
	case algebra.BGP:
		c := 100.0 * float64(len(x.Patterns))
		for _, tp := range x.Patterns {
			if isVar(tp.Subject) {
				c += 10
			}
			if tp.Path != nil {
				c += 20
			} else if isVar(tp.Predicate) {
				c += 20
			}
			if isVar(tp.Object) {
				c += 10
			}
		}
		return c
	case algebra.Values:
		// not named by §4.5's rules; a materialized row set is cheap
		// relative to a store scan, scaling with its declared size.
		return 10.0*float64(len(x.Rows)) + 1
	case algebra.Filter:
		return 0.3 * cost(x.In)
	case algebra.Join:
		return cost(x.Left) * cost(x.Right)
	case algebra.LeftJoin:
		return cost(x.Left) + 0.5*cost(x.Right)
	case algebra.Union:
		return cost(x.Left) + cost(x.Right)
	case algebra.Minus:
		return cost(x.Left)
	case algebra.Extend:
		return cost(x.In)
	case algebra.Project:
		return cost(x.In)
	case algebra.Distinct:
		return cost(x.In)
	case algebra.Reduced:
		return cost(x.In)
	case algebra.OrderBy:
		return cost(x.In)
	case algebra.Slice:
		return cost(x.In)
	case algebra.Group:
		return cost(x.In)
	case algebra.Subquery:
		return cost(x.In)
	case algebra.Service:
		return cost(x.Pattern)
	default:
		return 100
	}
}

func isVar(t term.Term) bool {
	return t != nil && t.Kind() == term.KindVariable
}

// ---- variable-set helpers ----

type varSet map[string]struct{}

func setOf(names ...string) varSet {
	s := make(varSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s varSet) union(o varSet) varSet {
	out := make(varSet, len(s)+len(o))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range o {
		out[k] = struct{}{}
	}
	return out
}

func subset(a, b varSet) bool {
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func disjoint(a, b varSet) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return false
		}
	}
	return true
}

// vars returns the set of variable names that may appear bound in n's
// output mapping. It is a structural approximation (no store access)
// used only to decide push-down/reorder legality, never evaluation.
func vars(n algebra.Node) varSet {
	switch x := n.(type) {
	case algebra.BGP:
		s := varSet{}
		for _, tp := range x.Patterns {
			addTermVar(s, tp.Subject)
			if tp.Path == nil {
				addTermVar(s, tp.Predicate)
			}
			addTermVar(s, tp.Object)
		}
		return s
	case algebra.Values:
		return setOf(x.Vars...)
	case algebra.Join:
		return vars(x.Left).union(vars(x.Right))
	case algebra.LeftJoin:
		return vars(x.Left).union(vars(x.Right))
	case algebra.Union:
		return vars(x.Left).union(vars(x.Right))
	case algebra.Minus:
		return vars(x.Left)
	case algebra.Filter:
		return vars(x.In)
	case algebra.Extend:
		return vars(x.In).union(setOf(x.Var))
	case algebra.Project:
		return setOf(x.Vars...)
	case algebra.Distinct:
		return vars(x.In)
	case algebra.Reduced:
		return vars(x.In)
	case algebra.OrderBy:
		return vars(x.In)
	case algebra.Slice:
		return vars(x.In)
	case algebra.Group:
		s := varSet{}
		for _, k := range x.Keys {
			s[k.OutputVar] = struct{}{}
		}
		for _, a := range x.Aggs {
			s[a.OutputVar] = struct{}{}
		}
		return s
	case algebra.Subquery:
		return vars(x.In)
	case algebra.Service:
		return vars(x.Pattern)
	default:
		return varSet{}
	}
}

func addTermVar(s varSet, t term.Term) {
	if v, ok := t.(term.Variable); ok {
		s[v.Name] = struct{}{}
	}
}

// freeVars returns the set of variable names an expression reads.
func freeVars(e algebra.Expr) varSet {
	switch x := e.(type) {
	case algebra.VarRef:
		return setOf(x.Name)
	case algebra.Const:
		return varSet{}
	case algebra.Compare:
		return freeVars(x.Left).union(freeVars(x.Right))
	case algebra.Logical:
		s := freeVars(x.Left)
		if x.Right != nil {
			s = s.union(freeVars(x.Right))
		}
		return s
	case algebra.Arithmetic:
		return freeVars(x.Left).union(freeVars(x.Right))
	case algebra.FunctionCall:
		s := varSet{}
		for _, a := range x.Args {
			s = s.union(freeVars(a))
		}
		return s
	case algebra.InList:
		s := freeVars(x.Test)
		for _, a := range x.List {
			s = s.union(freeVars(a))
		}
		return s
	case algebra.Exists:
		// EXISTS/NOT EXISTS correlates with the outer mapping through
		// any shared variable name; using the pattern's full variable
		// set over-approximates FV(e), which only ever makes push-down
		// more conservative, never unsound.
		return vars(x.Pattern)
	case algebra.Aggregate:
		if x.Arg == nil {
			return varSet{}
		}
		return freeVars(x.Arg)
	default:
		return varSet{}
	}
}
