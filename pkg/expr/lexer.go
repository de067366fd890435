// Package expr provides lexing, parsing, and validation of Fieldline
// formula expressions.
//
// # Usage
//
//	ast, err := expr.Parse("#price * 1.1")
//	if err != nil {
//	    // handle *expr.ParseError / *expr.LexError
//	}
//
// # Grammar overview
//
//	expression → or_expr
//	or_expr    → and_expr ("||" and_expr)*
//	and_expr   → cmp_expr ("&&" cmp_expr)*
//	cmp_expr   → add_expr (("==" | "!=" | "<" | ">" | "<=" | ">=") add_expr)*
//	add_expr   → mul_expr (("+" | "-") mul_expr)*
//	mul_expr   → unary (("*" | "/" | "%") unary)*
//	unary      → ("!" | "-") unary | primary
//	primary    → literal | "#" IDENT | ref | call | "(" expression ")"
//	ref        → ("@self" | "@" UUID) ("." segment)+
//	segment    → IDENT ["[" INT "]" | "[" "*" "]"]
//	call       → NAME "(" [expression ("," expression)*] ")"
package expr

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/fieldline-labs/fieldline/pkg/token"
)

// Lexer tokenizes formula input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// currentPos returns the current position.
func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token, or a *LexError on malformed input.
// The lexer never panics; after an error it is not resumable.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespace()

	pos := l.currentPos()

	var tok token.Token
	tok.Pos = pos

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		tok.Literal = ""
		return tok, nil
	case '+':
		tok = l.newToken(token.PLUS, "+")
	case '-':
		tok = l.newToken(token.MINUS, "-")
	case '*':
		tok = l.newToken(token.STAR, "*")
	case '/':
		tok = l.newToken(token.SLASH, "/")
	case '%':
		tok = l.newToken(token.PERCENT, "%")
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Pos: pos}
		} else {
			return token.Token{}, &LexError{Pos: pos, Message: "unexpected character '=', did you mean '=='?"}
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.LE, Literal: "<=", Pos: pos}
		} else {
			tok = l.newToken(token.LT, "<")
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.newToken(token.GT, ">")
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.newToken(token.BANG, "!")
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = token.Token{Type: token.AND, Literal: "&&", Pos: pos}
		} else {
			return token.Token{}, &LexError{Pos: pos, Message: "unexpected character '&', did you mean '&&'?"}
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.OR, Literal: "||", Pos: pos}
		} else {
			return token.Token{}, &LexError{Pos: pos, Message: "unexpected character '|', did you mean '||'?"}
		}
	case '.':
		tok = l.newToken(token.DOT, ".")
	case ',':
		tok = l.newToken(token.COMMA, ",")
	case '(':
		tok = l.newToken(token.LPAREN, "(")
	case ')':
		tok = l.newToken(token.RPAREN, ")")
	case '[':
		tok = l.newToken(token.LBRACKET, "[")
	case ']':
		tok = l.newToken(token.RBRACKET, "]")
	case '@':
		return l.readReferenceSigil(pos)
	case '#':
		return l.readHashShorthand(pos)
	case '\'', '"':
		lit, err := l.readString(l.ch)
		if err != nil {
			return token.Token{}, err
		}
		return token.Token{Type: token.STRING, Literal: lit, Pos: pos}, nil
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			lit := l.readIdentifier()
			typ := token.LookupIdent(strings.ToLower(lit))
			return token.Token{Type: typ, Literal: lit, Pos: pos}, nil
		case isDigit(l.ch):
			lit, err := l.readNumber(pos)
			if err != nil {
				return token.Token{}, err
			}
			return token.Token{Type: token.NUMBER, Literal: lit, Pos: pos}, nil
		default:
			return token.Token{}, &LexError{Pos: pos, Message: "unexpected character " + string(l.ch)}
		}
	}

	l.readChar()
	return tok, nil
}

// newToken creates a new token at the current position.
func (l *Lexer) newToken(tokenType token.Type, literal string) token.Token {
	return token.Token{Type: tokenType, Literal: literal, Pos: l.currentPos()}
}

// skipWhitespace skips spaces, tabs, and newlines.
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readReferenceSigil reads @self or @<uuid>. The uuid is not validated
// here; syntactic shape only. Semantic validation happens in Validate.
func (l *Lexer) readReferenceSigil(pos token.Position) (token.Token, error) {
	l.readChar() // skip '@'

	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '-' || l.ch == '_' {
		l.readChar()
	}
	lit := l.input[start:l.pos]
	if lit == "" {
		return token.Token{}, &LexError{Pos: pos, Message: "expected 'self' or an entity id after '@'"}
	}
	if strings.EqualFold(lit, "self") {
		return token.Token{Type: token.AT_SELF, Literal: "self", Pos: pos}, nil
	}
	return token.Token{Type: token.AT_ENTITY, Literal: lit, Pos: pos}, nil
}

// readHashShorthand reads the #name shorthand.
func (l *Lexer) readHashShorthand(pos token.Position) (token.Token, error) {
	l.readChar() // skip '#'
	if !isLetter(l.ch) && l.ch != '_' {
		return token.Token{}, &LexError{Pos: pos, Message: "expected a property name after '#'"}
	}
	name := l.readIdentifier()
	return token.Token{Type: token.HASH, Literal: name, Pos: pos}, nil
}

// readString reads a quoted string literal with backslash escapes.
// Valid escapes: \\ \' \" \n \t \r
func (l *Lexer) readString(quote byte) (string, error) {
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		switch l.ch {
		case 0:
			return "", &LexError{Pos: l.currentPos(), Message: ErrUnterminatedString}
		case quote:
			l.readChar() // skip closing quote
			return result.String(), nil
		case '\\':
			escPos := l.currentPos()
			l.readChar()
			switch l.ch {
			case '\\':
				result.WriteByte('\\')
			case '\'':
				result.WriteByte('\'')
			case '"':
				result.WriteByte('"')
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			case 'r':
				result.WriteByte('\r')
			case 0:
				return "", &LexError{Pos: escPos, Message: ErrUnterminatedString}
			default:
				return "", &LexError{Pos: escPos, Message: fmt.Sprintf(ErrInvalidEscape, l.ch)}
			}
			l.readChar()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readIdentifier reads an unquoted identifier.
func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber(pos token.Position) (string, error) {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	if l.ch == 'e' || l.ch == 'E' {
		l.readChar() // skip 'e' or 'E'
		if l.ch == '+' || l.ch == '-' {
			l.readChar() // skip sign
		}
		if !isDigit(l.ch) {
			return "", &LexError{Pos: pos, Message: ErrInvalidNumber}
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// A trailing letter glued to a number ("12abc") is malformed.
	if isLetter(l.ch) || l.ch == '_' {
		return "", &LexError{Pos: pos, Message: ErrInvalidNumber}
	}

	return l.input[start:l.pos], nil
}

// isLetter returns true if ch is a letter.
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit returns true if ch is a digit.
func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, or the first lexical
// error encountered.
func Tokenize(input string) ([]token.Token, error) {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}
