package eval

import (
	"fmt"

	"github.com/fieldline-labs/fieldline/pkg/token"
)

// Stable error codes carried by EvalError. Hosts attach these to the
// failing property's computation result; they never abort sibling
// evaluations.
const (
	CodeTypeMismatch                 = "type_mismatch"
	CodeNotFound                     = "not_found"
	CodeDivisionByZero               = "division_by_zero"
	CodeNullDereference              = "null_dereference"
	CodeCollectionWithoutAggregation = "collection_without_aggregation"
	CodeIndexOutOfBounds             = "index_out_of_bounds"
	CodeUnknownFunction              = "unknown_function"
	CodeInvalidArgumentCount         = "invalid_argument_count"
	CodePropertyRead                 = "property_read_failed"
)

// EvalError is a typed evaluation failure. It is always returned as a
// value inside Result; the evaluator never panics and never throws
// across the engine boundary.
type EvalError struct {
	Code    string
	Message string
	Pos     token.Position
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error [%s] at line %d, column %d: %s",
		e.Code, e.Pos.Line, e.Pos.Column, e.Message)
}

func evalErr(code string, pos token.Position, format string, args ...any) *EvalError {
	return &EvalError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	}
}
