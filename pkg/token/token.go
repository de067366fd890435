// Package token defines the lexical tokens of the Fieldline formula
// language: the small expression language attached to computed entity
// properties.
package token

import "fmt"

// Type represents the type of a lexical token.
type Type int32

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL

	// Literals and names
	IDENT  // bare identifier (function names, path segments)
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello' or "hello"

	// Property-reference sigils
	AT_SELF   // @self
	AT_ENTITY // @<uuid>
	HASH      // #name shorthand for @self.name

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // ==
	NE      // !=
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=
	AND     // && (keyword "and" also lexes to this)
	OR      // || (keyword "or" also lexes to this)
	BANG    // ! (keyword "not" also lexes to this)

	// Delimiters
	DOT      // .
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]

	// Keywords
	TRUE
	FALSE
	NULL
)

// String returns a human-readable representation of the token type.
func (t Type) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[Type]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	AT_SELF:   "@self",
	AT_ENTITY: "@entity",
	HASH:      "#",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	EQ:      "==",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	AND:     "&&",
	OR:      "||",
	BANG:    "!",

	DOT:      ".",
	COMMA:    ",",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",

	TRUE:  "TRUE",
	FALSE: "FALSE",
	NULL:  "NULL",
}

// keywords maps lowercase keyword strings to their token types.
// The formula language keeps this set deliberately small; everything
// else is an identifier.
var keywords = map[string]Type{
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
	"and":   AND,
	"or":    OR,
	"not":   BANG,
}

// LookupIdent returns the keyword token type for a lowercase identifier,
// or IDENT if it is not a keyword.
func LookupIdent(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// Token is a single lexical token with its source position.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}
