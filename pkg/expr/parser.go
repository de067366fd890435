package expr

import (
	"fmt"
	"strconv"

	"github.com/fieldline-labs/fieldline/pkg/token"
)

// Operator precedence levels, loosest first.
const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceComparison // ==, !=, <, >, <=, >=
	precedenceAddition   // +, -
	precedenceMultiply   // *, /, %
	precedenceUnary      // !, -
)

// Parser parses a formula expression into an AST.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	errors []error
}

// NewParser creates a new parser for the given formula source.
func NewParser(source string) *Parser {
	p := &Parser{
		lexer: NewLexer(source),
	}
	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses the source and returns the AST, or the first error
// encountered (a *LexError or *ParseError).
func Parse(source string) (Expr, error) {
	p := NewParser(source)
	e := p.parseExpression()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	if !p.check(token.EOF) {
		return nil, &ParseError{
			Pos:     p.token.Pos,
			Message: fmt.Sprintf("unexpected token %s after expression", p.token.Type),
		}
	}
	return e, nil
}

// TryParse parses the source and returns nil on any error. Use it to
// probe validity when the structured error is not needed.
func TryParse(source string) Expr {
	e, err := Parse(source)
	if err != nil {
		return nil
	}
	return e
}

// ---------- Token helpers ----------

// nextToken advances to the next token. A lexical error is recorded
// once and the stream is pinned to EOF.
func (p *Parser) nextToken() {
	p.token = p.peek
	next, err := p.lexer.NextToken()
	if err != nil {
		p.errors = append(p.errors, err)
		next = token.Token{Type: token.EOF, Pos: p.token.Pos}
	}
	p.peek = next
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.Type) bool {
	return p.token.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), t))
	return false
}

// addError adds a parse error at the current token.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// describeToken names the current token for error messages.
func (p *Parser) describeToken() string {
	if p.token.Type == token.EOF {
		return "end of input"
	}
	return p.token.Type.String()
}

// ---------- Expression parsing (precedence climbing) ----------

// parseExpression parses an expression using precedence climbing.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

// parseExpressionWithPrecedence parses infix operators while their
// precedence is >= minPrecedence.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token.Type)
		if prec < minPrecedence {
			break
		}

		op := p.token
		p.nextToken()

		// Left-associative: right operand binds one level tighter.
		right := p.parseExpressionWithPrecedence(prec + 1)
		if right == nil {
			return nil
		}

		left = &BinaryExpr{Op: op.Type, Left: left, Right: right, Position: left.Pos()}
	}

	return left
}

// parsePrefixExpr parses unary operators and primary expressions.
func (p *Parser) parsePrefixExpr() Expr {
	switch p.token.Type {
	case token.BANG:
		pos := p.token.Pos
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(precedenceUnary)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{Op: token.BANG, Expr: operand, Position: pos}

	case token.MINUS:
		pos := p.token.Pos
		p.nextToken()
		operand := p.parseExpressionWithPrecedence(precedenceUnary)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{Op: token.MINUS, Expr: operand, Position: pos}

	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of t as an infix operator,
// or precedenceNone when it is not one.
func infixPrecedence(t token.Type) int {
	switch t {
	case token.OR:
		return precedenceOr
	case token.AND:
		return precedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return precedenceComparison
	case token.PLUS, token.MINUS:
		return precedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precedenceMultiply
	default:
		return precedenceNone
	}
}

// ---------- Primary expressions ----------

// parsePrimary parses literals, property references, function calls,
// and parenthesized sub-expressions.
func (p *Parser) parsePrimary() Expr {
	switch p.token.Type {
	case token.NUMBER:
		num, err := strconv.ParseFloat(p.token.Literal, 64)
		if err != nil {
			p.addError(ErrInvalidNumber)
			return nil
		}
		lit := &Literal{Kind: LiteralNumber, Num: num, Position: p.token.Pos}
		p.nextToken()
		return lit

	case token.STRING:
		lit := &Literal{Kind: LiteralText, Text: p.token.Literal, Position: p.token.Pos}
		p.nextToken()
		return lit

	case token.TRUE:
		lit := &Literal{Kind: LiteralBool, Bool: true, Position: p.token.Pos}
		p.nextToken()
		return lit

	case token.FALSE:
		lit := &Literal{Kind: LiteralBool, Bool: false, Position: p.token.Pos}
		p.nextToken()
		return lit

	case token.NULL:
		lit := &Literal{Kind: LiteralNull, Position: p.token.Pos}
		p.nextToken()
		return lit

	case token.HASH:
		ident := &Identifier{Name: p.token.Literal, Position: p.token.Pos}
		p.nextToken()
		return ident

	case token.AT_SELF:
		pos := p.token.Pos
		p.nextToken()
		return p.parseReferencePath("", pos)

	case token.AT_ENTITY:
		pos := p.token.Pos
		entityID := p.token.Literal
		p.nextToken()
		return p.parseReferencePath(entityID, pos)

	case token.IDENT:
		return p.parseCall()

	case token.LPAREN:
		p.nextToken()
		e := p.parseExpression()
		if e == nil {
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		return e

	case token.EOF:
		p.addError(ErrUnexpectedEOF)
		return nil

	default:
		p.addError(fmt.Sprintf("unexpected token in expression: %s", p.describeToken()))
		return nil
	}
}

// parseReferencePath parses the dot-separated segment chain after
// @self or @<entity>. A reference with zero segments is a parse error.
func (p *Parser) parseReferencePath(entityID string, pos token.Position) Expr {
	ref := &PropertyRef{EntityID: entityID, Position: pos}

	for p.match(token.DOT) {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), "property name"))
			return nil
		}
		seg := PathSegment{Name: p.token.Literal}
		p.nextToken()

		if p.match(token.LBRACKET) {
			switch p.token.Type {
			case token.STAR:
				seg.Traversal = TraverseAll
				p.nextToken()
			case token.NUMBER:
				idx, err := strconv.Atoi(p.token.Literal)
				if err != nil {
					p.addError("index must be an integer")
					return nil
				}
				seg.Traversal = TraverseIndex
				seg.Index = idx
				p.nextToken()
			default:
				p.addError(fmt.Sprintf(ErrUnexpectedToken, p.describeToken(), "index or *"))
				return nil
			}
			if !p.expect(token.RBRACKET) {
				return nil
			}
		}

		ref.Path = append(ref.Path, seg)
	}

	if len(ref.Path) == 0 {
		p.errors = append(p.errors, &ParseError{Pos: pos, Message: ErrEmptyPath})
		return nil
	}

	return ref
}

// parseCall parses a function call. The callee must be a bare
// uppercase-convention name; whether the function exists is a
// validation concern, not a parse error.
func (p *Parser) parseCall() Expr {
	name := p.token.Literal
	pos := p.token.Pos
	p.nextToken()

	if !p.check(token.LPAREN) {
		p.errors = append(p.errors, &ParseError{
			Pos:     pos,
			Message: fmt.Sprintf("unexpected identifier %q; use #%s to reference a property", name, name),
		})
		return nil
	}
	if !isFunctionName(name) {
		p.errors = append(p.errors, &ParseError{
			Pos:     pos,
			Message: fmt.Sprintf(ErrBadFuncName, name),
		})
		return nil
	}
	p.nextToken() // consume '('

	call := &CallExpr{Name: name, Position: pos}

	if !p.check(token.RPAREN) {
		for {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)

			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if !p.expect(token.RPAREN) {
		return nil
	}

	return call
}

// isFunctionName reports whether name follows the uppercase function
// convention: an uppercase letter followed by uppercase letters,
// digits, or underscores.
func isFunctionName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] < 'A' || name[0] > 'Z' {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
