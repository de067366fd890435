package expr

import (
	"strconv"
	"strings"

	"github.com/fieldline-labs/fieldline/pkg/token"
)

// Expr is the interface implemented by all AST nodes.
//
// The node set is closed: every node type lives in this package and
// implements the unexported marker method, so visitors can switch
// exhaustively over the concrete types.
type Expr interface {
	exprNode()
	// Pos returns the position of the node's first token.
	Pos() token.Position
	// String renders the node back to parseable source. Binary and
	// unary nodes are fully parenthesized, so reparsing the output
	// yields a structurally equal tree.
	String() string
}

// LiteralKind discriminates literal values.
type LiteralKind int

const (
	LiteralNumber LiteralKind = iota
	LiteralText
	LiteralBool
	LiteralNull
)

// Literal is a typed scalar constant.
type Literal struct {
	Kind LiteralKind
	Num  float64 // LiteralNumber
	Text string  // LiteralText
	Bool bool    // LiteralBool

	Position token.Position
}

// Identifier is the #name shorthand for a property of the current
// entity. It is equivalent to a PropertyRef on self with a single
// plain segment.
type Identifier struct {
	Name string

	Position token.Position
}

// Traversal marks how a path segment is traversed.
type Traversal int

const (
	// TraverseNone follows a to-one value.
	TraverseNone Traversal = iota
	// TraverseIndex picks one element of a to-many value: seg[2].
	TraverseIndex
	// TraverseAll fans out over every element: seg[*].
	TraverseAll
)

// PathSegment is one hop in a property-reference path.
type PathSegment struct {
	Name      string
	Traversal Traversal
	Index     int // meaningful only for TraverseIndex
}

// PropertyRef references a property through an ordered path of
// segments. EntityID is empty for @self references.
type PropertyRef struct {
	EntityID string // "" = self, else an explicit entity uuid
	Path     []PathSegment

	Position token.Position
}

// BinaryExpr applies an infix operator to two operands.
type BinaryExpr struct {
	Op    token.Type
	Left  Expr
	Right Expr

	Position token.Position
}

// UnaryExpr applies ! or arithmetic negation to one operand.
type UnaryExpr struct {
	Op   token.Type
	Expr Expr

	Position token.Position
}

// CallExpr invokes a registry function with ordered arguments.
type CallExpr struct {
	Name string // uppercase by convention, e.g. "COALESCE"
	Args []Expr

	Position token.Position
}

func (*Literal) exprNode()     {}
func (*Identifier) exprNode()  {}
func (*PropertyRef) exprNode() {}
func (*BinaryExpr) exprNode()  {}
func (*UnaryExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}

func (e *Literal) Pos() token.Position     { return e.Position }
func (e *Identifier) Pos() token.Position  { return e.Position }
func (e *PropertyRef) Pos() token.Position { return e.Position }
func (e *BinaryExpr) Pos() token.Position  { return e.Position }
func (e *UnaryExpr) Pos() token.Position   { return e.Position }
func (e *CallExpr) Pos() token.Position    { return e.Position }

func (e *Literal) String() string {
	switch e.Kind {
	case LiteralNumber:
		return strconv.FormatFloat(e.Num, 'f', -1, 64)
	case LiteralText:
		return quoteText(e.Text)
	case LiteralBool:
		return strconv.FormatBool(e.Bool)
	default:
		return "null"
	}
}

func (e *Identifier) String() string {
	return "#" + e.Name
}

func (e *PropertyRef) String() string {
	var b strings.Builder
	if e.EntityID == "" {
		b.WriteString("@self")
	} else {
		b.WriteString("@")
		b.WriteString(e.EntityID)
	}
	for _, seg := range e.Path {
		b.WriteString(".")
		b.WriteString(seg.Name)
		switch seg.Traversal {
		case TraverseIndex:
			b.WriteString("[")
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteString("]")
		case TraverseAll:
			b.WriteString("[*]")
		}
	}
	return b.String()
}

func (e *BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + e.Op.String() + " " + e.Right.String() + ")"
}

func (e *UnaryExpr) String() string {
	return "(" + e.Op.String() + e.Expr.String() + ")"
}

func (e *CallExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return e.Name + "(" + strings.Join(args, ", ") + ")"
}

// quoteText renders a text literal with the escapes the lexer accepts.
func quoteText(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Equal reports structural equality of two trees, ignoring positions.
// Used by tests and by callers caching parse results.
func Equal(a, b Expr) bool {
	switch x := a.(type) {
	case *Literal:
		y, ok := b.(*Literal)
		if !ok || x.Kind != y.Kind {
			return false
		}
		switch x.Kind {
		case LiteralNumber:
			return x.Num == y.Num
		case LiteralText:
			return x.Text == y.Text
		case LiteralBool:
			return x.Bool == y.Bool
		default:
			return true
		}
	case *Identifier:
		y, ok := b.(*Identifier)
		return ok && x.Name == y.Name
	case *PropertyRef:
		y, ok := b.(*PropertyRef)
		if !ok || x.EntityID != y.EntityID || len(x.Path) != len(y.Path) {
			return false
		}
		for i := range x.Path {
			if x.Path[i] != y.Path[i] {
				return false
			}
		}
		return true
	case *BinaryExpr:
		y, ok := b.(*BinaryExpr)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *UnaryExpr:
		y, ok := b.(*UnaryExpr)
		return ok && x.Op == y.Op && Equal(x.Expr, y.Expr)
	case *CallExpr:
		y, ok := b.(*CallExpr)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
