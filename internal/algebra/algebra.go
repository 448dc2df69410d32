// Package algebra defines the SPARQL algebra IR (C4): a closed
// tagged-variant tree of relational/graph operators, plus the
// expression DAG and property-path shapes it embeds. Every node kind
// implements Node via the unexported node() marker, the same sealed-
// interface technique the surrounding engine uses for its own plan
// tree (a non-allocating, exhaustive-switch dispatch instead of open
// polymorphism).
package algebra

import "github.com/exocortex-kb/sparqlengine/internal/term"

// Node is any algebra tree node: a leaf/pattern, a unary or binary
// operator, or a top-level root (Ask/Construct). Only types defined in
// this package implement it.
type Node interface {
	// Children returns the node's operand subtrees, in evaluation order.
	Children() []Node
	node()
}

// ---- leaves ----

// TriplePattern is one (subject, predicate, object) pattern inside a
// BGP; any position may be a bound term or a Variable. Predicate may
// carry a property Path instead of a plain term.
type TriplePattern struct {
	Subject   PatternTerm
	Predicate PatternTerm
	Path      *Path // non-nil when the predicate position is a path expression
	Object    PatternTerm
}

// PatternTerm is either a bound term.Term or a Variable; Variable is
// already a term.Term kind (§3) so no separate wrapper is needed — a
// pattern position is simply a term.Term that may be term.Variable.
type PatternTerm = term.Term

// BGP is a basic graph pattern: an ordered list of triple patterns
// joined by nested-loop binding (§4.2).
type BGP struct {
	Patterns []TriplePattern
}

func (BGP) node()              {}
func (BGP) Children() []Node   { return nil }

// Values materializes declared rows directly; a row's missing entry for
// a declared variable means UNDEF (unbound in that row).
type Values struct {
	Vars []string
	Rows []map[string]term.Term
}

func (Values) node()            {}
func (Values) Children() []Node { return nil }

// ---- binary operators ----

type Join struct{ Left, Right Node }

func (j Join) node()            {}
func (j Join) Children() []Node { return []Node{j.Left, j.Right} }

// LeftJoin is OPTIONAL: Expr is the optional inner FILTER, nil if none.
type LeftJoin struct {
	Left, Right Node
	Expr        Expr
}

func (l LeftJoin) node()            {}
func (l LeftJoin) Children() []Node { return []Node{l.Left, l.Right} }

type Union struct{ Left, Right Node }

func (u Union) node()            {}
func (u Union) Children() []Node { return []Node{u.Left, u.Right} }

type Minus struct{ Left, Right Node }

func (m Minus) node()            {}
func (m Minus) Children() []Node { return []Node{m.Left, m.Right} }

// ---- unary operators ----

type Filter struct {
	Expr Expr
	In   Node
}

func (f Filter) node()            {}
func (f Filter) Children() []Node { return []Node{f.In} }

// Extend is BIND: binds Var to the result of Expr for each input
// mapping (unbound on evaluation error). Neither the translator nor the
// executor checks that Var is unbound in the input; where it is already
// bound, a successful evaluation replaces its value.
type Extend struct {
	Var  string
	Expr Expr
	In   Node
}

func (e Extend) node()            {}
func (e Extend) Children() []Node { return []Node{e.In} }

type Project struct {
	Vars []string
	In   Node
}

func (p Project) node()            {}
func (p Project) Children() []Node { return []Node{p.In} }

type Distinct struct{ In Node }

func (d Distinct) node()            {}
func (d Distinct) Children() []Node { return []Node{d.In} }

// Reduced behaves as Distinct per spec §9 Open Questions.
type Reduced struct{ In Node }

func (r Reduced) node()            {}
func (r Reduced) Children() []Node { return []Node{r.In} }

// SortDirection is ASC or DESC for one OrderBy comparator.
type SortDirection uint8

const (
	Ascending SortDirection = iota
	Descending
)

type SortExpr struct {
	Expr Expr
	Dir  SortDirection
}

type OrderBy struct {
	Comparators []SortExpr
	In          Node
}

func (o OrderBy) node()            {}
func (o OrderBy) Children() []Node { return []Node{o.In} }

// Slice is OFFSET/LIMIT; nil pointers mean "absent" (no skip / no cap).
type Slice struct {
	Offset *int64
	Limit  *int64
	In     Node
}

func (s Slice) node()            {}
func (s Slice) Children() []Node { return []Node{s.In} }

// AggregateKind names a supported aggregate function.
type AggregateKind uint8

const (
	AggCount AggregateKind = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggGroupConcat
)

// AggregateExpr is one declared aggregate output of a Group node.
// Expr is nil for COUNT(*). Separator applies only to GroupConcat,
// defaulting to a single space (§4.6) when empty.
type AggregateExpr struct {
	Kind      AggregateKind
	Expr      Expr
	Distinct  bool
	Separator string
	OutputVar string
}

// Group buckets by Keys (grouping expressions, each with its own output
// variable) and folds Aggs per bucket. An empty Keys list with no Aggs
// is not legal SPARQL and the translator never produces it; an empty
// Keys list with Aggs present yields exactly one output row even over
// zero input rows (§8 boundary behavior).
type Group struct {
	Keys []GroupKey
	Aggs []AggregateExpr
	In   Node
}

type GroupKey struct {
	Expr      Expr
	OutputVar string
}

func (g Group) node()            {}
func (g Group) Children() []Node { return []Node{g.In} }

// Subquery wraps a nested SELECT translated independently; the
// executor joins its projected output back into the outer stream on
// shared variables (§4.6).
type Subquery struct{ In Node }

func (s Subquery) node()            {}
func (s Subquery) Children() []Node { return []Node{s.In} }

// Service is SERVICE <endpoint> { pattern }; Silent suppresses all
// remote failures into an empty substream instead of propagating.
type Service struct {
	Endpoint string
	Pattern  Node
	Silent   bool
}

func (s Service) node()            {}
func (s Service) Children() []Node { return []Node{s.Pattern} }

// ---- roots (top-level only) ----

type Ask struct{ Where Node }

func (a Ask) node()            {}
func (a Ask) Children() []Node { return []Node{a.Where} }

// ConstructTemplate is one triple pattern of a CONSTRUCT template;
// positions may be bound terms or variables resolved against the
// solution produced by Where.
type ConstructTemplate struct {
	Subject   term.Term
	Predicate term.Term
	Object    term.Term
}

type Construct struct {
	Template []ConstructTemplate
	Where    Node
}

func (c Construct) node()            {}
func (c Construct) Children() []Node { return []Node{c.Where} }

// Select is the SELECT root: Vars names the projected output (in
// translated form the projection itself is usually already folded into
// a Project node below, but the root records the original declared
// list for Executor.execute_all's schema).
type Select struct {
	Vars []string
	In   Node
}

func (s Select) node()            {}
func (s Select) Children() []Node { return []Node{s.In} }
