package expr

import (
	"fmt"

	"github.com/fieldline-labs/fieldline/pkg/token"
)

// LexError represents a lexical analysis error.
type LexError struct {
	Pos     token.Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lexer error at offset %d (line %d, column %d): %s",
		e.Pos.Offset, e.Pos.Line, e.Pos.Column, e.Message)
}

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken    = "unexpected token %s, expected %s"
	ErrUnexpectedEOF      = "unexpected end of input"
	ErrUnterminatedString = "unterminated string literal"
	ErrInvalidEscape      = "invalid escape sequence \\%c"
	ErrInvalidNumber      = "invalid number literal"
	ErrEmptyPath          = "property reference requires at least one path segment"
	ErrBadFuncName        = "function name %q must be uppercase (letters, digits, underscore)"
)
