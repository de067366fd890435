package expr

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fieldline-labs/fieldline/pkg/funcs"
	"github.com/fieldline-labs/fieldline/pkg/token"
)

// Diagnostic codes produced by Validate.
const (
	DiagSyntax        = "syntax-error"
	DiagUnknownFunc   = "unknown-function"
	DiagArgumentCount = "invalid-argument-count"
	DiagEntityID      = "invalid-entity-id"
)

// Diagnostic is one finding of the semantic validation pass.
type Diagnostic struct {
	Pos     token.Position
	Code    string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d [%s] %s", d.Pos.Line, d.Pos.Column, d.Code, d.Message)
}

// Validate parses the source and runs the semantic pass against the
// registry: function existence (with suggestions), arity, and validity
// of explicit entity ids. Returns true with no diagnostics when the
// expression is well formed.
func Validate(source string, reg *funcs.Registry) (bool, []Diagnostic) {
	ast, err := Parse(source)
	if err != nil {
		d := Diagnostic{Code: DiagSyntax, Message: err.Error()}
		switch e := err.(type) {
		case *ParseError:
			d.Pos = e.Pos
			d.Message = e.Message
		case *LexError:
			d.Pos = e.Pos
			d.Message = e.Message
		}
		return false, []Diagnostic{d}
	}
	diags := ValidateExpr(ast, reg)
	return len(diags) == 0, diags
}

// ValidateExpr runs the semantic pass on an already-parsed tree.
func ValidateExpr(ast Expr, reg *funcs.Registry) []Diagnostic {
	v := &validator{reg: reg}
	v.walk(ast)
	return v.diags
}

type validator struct {
	reg   *funcs.Registry
	diags []Diagnostic
}

func (v *validator) walk(e Expr) {
	switch n := e.(type) {
	case *Literal, *Identifier:
		// nothing to check
	case *PropertyRef:
		if n.EntityID != "" {
			if _, err := uuid.Parse(n.EntityID); err != nil {
				v.diags = append(v.diags, Diagnostic{
					Pos:     n.Position,
					Code:    DiagEntityID,
					Message: fmt.Sprintf("invalid entity id %q", n.EntityID),
				})
			}
		}
	case *BinaryExpr:
		v.walk(n.Left)
		v.walk(n.Right)
	case *UnaryExpr:
		v.walk(n.Expr)
	case *CallExpr:
		v.checkCall(n)
		for _, arg := range n.Args {
			v.walk(arg)
		}
	}
}

func (v *validator) checkCall(call *CallExpr) {
	def, ok := v.reg.Get(call.Name)
	if !ok {
		msg := fmt.Sprintf("unknown function %s", call.Name)
		if similar := v.reg.FindSimilar(call.Name); len(similar) > 0 {
			msg += fmt.Sprintf(", did you mean %s?", strings.Join(similar, ", "))
		}
		v.diags = append(v.diags, Diagnostic{
			Pos:     call.Position,
			Code:    DiagUnknownFunc,
			Message: msg,
		})
		return
	}

	got := len(call.Args)
	if got < def.MinArgs || (def.MaxArgs != funcs.UnboundedArgs && got > def.MaxArgs) {
		v.diags = append(v.diags, Diagnostic{
			Pos:  call.Position,
			Code: DiagArgumentCount,
			Message: (&funcs.InvalidArgumentCountError{
				Name: def.Name,
				Got:  got,
				Min:  def.MinArgs,
				Max:  def.MaxArgs,
			}).Error(),
		})
	}
}
