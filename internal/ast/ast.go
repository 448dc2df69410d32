// Package ast defines the concrete AST shape the translator consumes
// (spec §6.1). The surface SPARQL grammar tokenizer/parser is treated
// as a black box elsewhere in this module (it is out of scope per
// spec §1) — this package is the typed boundary between "whatever the
// parser produced" and the translator, so the translator itself never
// touches a dynamic/any-typed tree.
package ast

// QueryType discriminates the three supported query roots.
type QueryType string

const (
	Select    QueryType = "SELECT"
	Ask       QueryType = "ASK"
	Construct QueryType = "CONSTRUCT"
)

// ProjectionTerm is a single SELECT-list entry: either a bare variable
// or a computed `(expr AS ?v)` projection.
type ProjectionTerm struct {
	Var  string
	Expr Expr // Kind is empty for a bare variable, set for a computed projection
}

// OrderTerm is one ORDER BY comparator.
type OrderTerm struct {
	Expr       Expr
	Descending bool
}

// Query is the AST root produced by the (external) parser.
type Query struct {
	QueryType QueryType
	Variables []ProjectionTerm
	Where     []Pattern
	Group     []Expr
	GroupVars []string // output variable name per Group expr, same index
	Having    Expr
	Order     []OrderTerm
	Limit     *int64
	Offset    *int64
	Distinct  bool
	Reduced   bool
	Template  []TriplePattern // CONSTRUCT template
}

// PatternKind discriminates WHERE-clause pattern shapes.
type PatternKind string

const (
	PatternBGP      PatternKind = "bgp"
	PatternFilter   PatternKind = "filter"
	PatternOptional PatternKind = "optional"
	PatternUnion    PatternKind = "union"
	PatternMinus    PatternKind = "minus"
	PatternGroup    PatternKind = "group" // { ... } grouping braces, not GROUP BY
	PatternValues   PatternKind = "values"
	PatternBind     PatternKind = "bind"
	PatternQuery    PatternKind = "query" // nested { SELECT ... }
	PatternService  PatternKind = "service"
)

// Pattern is one element of a WHERE clause (or nested graph pattern).
// Which fields are populated depends on Kind.
type Pattern struct {
	Kind PatternKind

	// PatternBGP
	Triples []TriplePattern

	// PatternFilter
	Expr Expr

	// PatternOptional / PatternGroup: the single nested pattern list.
	// PatternUnion / PatternMinus: the two alternated/subtracted
	// pattern lists.
	Left, Right []Pattern
	Patterns    []Pattern

	// PatternValues
	ValuesVars []string
	ValuesRows []map[string]Term // a row may omit a var: UNDEF

	// PatternBind
	BindVar string

	// PatternQuery
	Subquery *Query

	// PatternService
	ServiceEndpoint string
	ServiceSilent   bool
}

// TriplePattern is one (subject, predicate, object) triple inside a BGP
// or CONSTRUCT template; Predicate may be a PathPredicate instead of a
// plain Term.
type TriplePattern struct {
	Subject   Term
	Predicate Term
	Path      *PathPredicate
	Object    Term
}

// PathKind mirrors algebra.PathKind at the AST boundary.
type PathKind string

const (
	PathSeq     PathKind = "/"
	PathAlt     PathKind = "|"
	PathInverse PathKind = "^"
	PathZeroOrMore PathKind = "*"
	PathOneOrMore  PathKind = "+"
	PathZeroOrOne  PathKind = "?"
)

// PathPredicate is a `{type:"path", pathType, items[]}` node (§6.1).
// Unary kinds populate exactly one entry in Items.
type PathPredicate struct {
	PathType PathKind
	Items    []PathItem
}

// PathItem is either a plain IRI leaf or a nested path.
type PathItem struct {
	IRI  string
	Path *PathPredicate
}

// TermType discriminates the four term shapes at the AST boundary
// (`{termType, value, datatype?, language?}`, §6.1).
type TermType string

const (
	TermVariable  TermType = "Variable"
	TermNamedNode TermType = "NamedNode"
	TermLiteral   TermType = "Literal"
	TermBlankNode TermType = "BlankNode"
)

type Term struct {
	TermType TermType
	Value    string
	Datatype string
	Language string
}

// ExprKind discriminates expression AST nodes (§6.1).
type ExprKind string

const (
	ExprOperation    ExprKind = "operation"
	ExprFunctionCall ExprKind = "functioncall"
	ExprAggregate    ExprKind = "aggregate"
	ExprTerm         ExprKind = "term" // a bare term (variable or literal) used as an expression
)

// Expr is the AST's expression node. Operator/Function names the
// specific comparison/logical/arithmetic/function symbol; for
// ExprAggregate, Function names the aggregate (count/sum/avg/min/max/
// group_concat).
type Expr struct {
	Kind     ExprKind
	Operator string // "=", "!=", "<", ">", "<=", ">=", "&&", "||", "!", "+", "-", "*", "/", "exists", "notexists", "in", "notin"
	Function string
	Args     []Expr
	TermVal  *Term // populated when Kind == ExprTerm

	// exists/notexists carry a nested pattern instead of (only) args.
	Pattern []Pattern

	// aggregate modifiers
	Distinct  bool
	Separator string
}
