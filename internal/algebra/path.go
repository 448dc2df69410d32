package algebra

import "github.com/exocortex-kb/sparqlengine/internal/term"

// PathKind discriminates the composite predicate shapes property paths
// can take.
type PathKind uint8

const (
	// PathIRI is a plain predicate, the base case of path recursion.
	PathIRI PathKind = iota
	// PathSeq is "/" — sequence; Items holds the ordered child paths.
	PathSeq
	// PathAlt is "|" — alternative; Items holds the branch paths.
	PathAlt
	// PathInverse is "^"; Item is the single inverted child.
	PathInverse
	// PathZeroOrMore is "*"; Item is the single repeated child.
	PathZeroOrMore
	// PathOneOrMore is "+"; Item is the single repeated child.
	PathOneOrMore
	// PathZeroOrOne is "?"; Item is the single optional child.
	PathZeroOrOne
)

// Path is a predicate-position path expression (§3, §4.2). Unary path
// kinds (Inverse, ZeroOrMore, OneOrMore, ZeroOrOne) carry exactly one
// child in Item; Seq and Alt carry their operand list in Items. This
// invariant is checked by the translator (§3 invariant i) — Item/Items
// usage is mutually exclusive per Kind and never mixed.
type Path struct {
	Kind  PathKind
	IRI   term.IRI // valid when Kind == PathIRI
	Item  *Path    // valid for the four unary kinds
	Items []Path   // valid for Seq and Alt
}
