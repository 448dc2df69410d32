package algebra

import "github.com/exocortex-kb/sparqlengine/internal/term"

// Expr is the expression-DAG sum type: comparisons, logical and
// arithmetic operators, function calls, variable/literal leaves,
// EXISTS/NOT EXISTS, IN/NOT IN and aggregates. Sealed the same way Node
// is, via the unexported expr() marker.
type Expr interface {
	expr()
}

// CompareOp enumerates the six comparison operators.
type CompareOp uint8

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
)

type Compare struct {
	Op          CompareOp
	Left, Right Expr
}

func (Compare) expr() {}

type LogicalOp uint8

const (
	OpAnd LogicalOp = iota
	OpOr
	OpNot
)

// Logical covers &&, ||, !. Right is nil when Op is OpNot (unary).
type Logical struct {
	Op          LogicalOp
	Left, Right Expr
}

func (Logical) expr() {}

type ArithOp uint8

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

type Arithmetic struct {
	Op          ArithOp
	Left, Right Expr
}

func (Arithmetic) expr() {}

// FunctionCall names a built-in SPARQL function; Args is variadic for
// functions like CONCAT and COALESCE. An unrecognized Name produces an
// evaluation error (§4.3), not a translate-time failure, since function
// extensibility is a runtime evaluator concern.
type FunctionCall struct {
	Name string
	Args []Expr
}

func (FunctionCall) expr() {}

// VarRef is a variable reference; evaluates to the bound term or
// "unbound" (§4.3).
type VarRef struct{ Name string }

func (VarRef) expr() {}

// Const is a literal constant embedded in an expression (e.g. the
// right-hand side of FILTER(?s = "doing")).
type Const struct{ Value term.Term }

func (Const) expr() {}

// Exists is EXISTS/NOT EXISTS; Pattern is re-evaluated against the
// current mapping as input, boolean = "any result" (negated for NOT
// EXISTS).
type Exists struct {
	Pattern Node
	Negate  bool
}

func (Exists) expr() {}

// InList is IN/NOT IN: Test equals any of List under term equality.
type InList struct {
	Test   Expr
	List   []Expr
	Negate bool
}

func (InList) expr() {}

// Aggregate is only ever embedded as the Expr of a Group.AggregateExpr
// output variable reference elsewhere in the tree (e.g. referenced from
// an outer ORDER BY); the aggregation itself happens in the Group
// operator (§4.3 — "Aggregates are not evaluated here").
type Aggregate struct {
	Kind      AggregateKind
	Arg       Expr // nil for COUNT(*)
	Distinct  bool
	Separator string
}

func (Aggregate) expr() {}
