// Package eval walks a parsed formula AST against a runtime context
// and produces a typed result or a typed evaluation error.
//
// Evaluation is synchronous and allocation-light: the only external
// calls are property reads through the injected Context. Null follows
// three-valued logic throughout: an unknown operand makes the result
// unknown rather than failing, except where an operation's own
// semantics (division by zero, type mismatch) make failure definite.
//
// Logical && and || short-circuit on a deciding left operand (false
// and true respectively); otherwise the right operand is evaluated and
// null propagates per SQL-style truth tables.
package eval

import (
	"errors"

	"github.com/fieldline-labs/fieldline/pkg/expr"
	"github.com/fieldline-labs/fieldline/pkg/funcs"
	"github.com/fieldline-labs/fieldline/pkg/token"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// Result is the outcome of evaluating one expression. Exactly one of
// Value (with Err == nil) or Err is meaningful.
type Result struct {
	Value value.Value
	Err   *EvalError
}

// Ok reports whether evaluation succeeded.
func (r Result) Ok() bool { return r.Err == nil }

// Evaluate walks the AST against the context.
func Evaluate(ast expr.Expr, ctx Context) Result {
	e := &evaluator{ctx: ctx}
	v, err := e.eval(ast, false)
	if err != nil {
		return Result{Err: err}
	}
	return Result{Value: v}
}

// EvaluateSimple evaluates against a plain map of self-properties,
// for call sites without relationship resolution. A nil registry uses
// the default built-ins.
func EvaluateSimple(ast expr.Expr, values map[string]value.Value, reg *funcs.Registry) Result {
	return Evaluate(ast, &MapContext{Values: values, Reg: reg})
}

type evaluator struct {
	ctx Context
}

// eval evaluates a node. allowFanout is true only for direct arguments
// of an aggregate call: everywhere else a collection traversal ([*])
// is an error, since raw fan-out lists must be reduced before use.
func (e *evaluator) eval(node expr.Expr, allowFanout bool) (value.Value, *EvalError) {
	switch n := node.(type) {
	case *expr.Literal:
		return literalValue(n), nil

	case *expr.Identifier:
		return e.readProperty("", n.Name, n.Position)

	case *expr.PropertyRef:
		return e.evalRef(n, allowFanout)

	case *expr.BinaryExpr:
		return e.evalBinary(n)

	case *expr.UnaryExpr:
		operand, err := e.eval(n.Expr, false)
		if err != nil {
			return value.Null(), err
		}
		var v value.Value
		var opErr error
		if n.Op == token.BANG {
			v, opErr = value.Not(operand)
		} else {
			v, opErr = value.Neg(operand)
		}
		if opErr != nil {
			return value.Null(), mapValueError(opErr, n.Position)
		}
		return v, nil

	case *expr.CallExpr:
		return e.evalCall(n)

	default:
		return value.Null(), evalErr(CodePropertyRead, node.Pos(), "unsupported node")
	}
}

func literalValue(lit *expr.Literal) value.Value {
	switch lit.Kind {
	case expr.LiteralNumber:
		return value.NewNumber(lit.Num)
	case expr.LiteralText:
		return value.NewText(lit.Text)
	case expr.LiteralBool:
		return value.NewBool(lit.Bool)
	default:
		return value.Null()
	}
}

// evalBinary applies an infix operator with short-circuiting for the
// logical operators.
func (e *evaluator) evalBinary(n *expr.BinaryExpr) (value.Value, *EvalError) {
	left, err := e.eval(n.Left, false)
	if err != nil {
		return value.Null(), err
	}

	switch n.Op {
	case token.AND:
		// false && _ is false without evaluating the right side.
		if left.Kind == value.KindBool && !left.Bool {
			return value.NewBool(false), nil
		}
		right, rerr := e.eval(n.Right, false)
		if rerr != nil {
			return value.Null(), rerr
		}
		v, opErr := value.And(left, right)
		if opErr != nil {
			return value.Null(), mapValueError(opErr, n.Position)
		}
		return v, nil

	case token.OR:
		// true || _ is true without evaluating the right side.
		if left.Kind == value.KindBool && left.Bool {
			return value.NewBool(true), nil
		}
		right, rerr := e.eval(n.Right, false)
		if rerr != nil {
			return value.Null(), rerr
		}
		v, opErr := value.Or(left, right)
		if opErr != nil {
			return value.Null(), mapValueError(opErr, n.Position)
		}
		return v, nil
	}

	right, rerr := e.eval(n.Right, false)
	if rerr != nil {
		return value.Null(), rerr
	}

	var v value.Value
	var opErr error
	switch n.Op {
	case token.PLUS:
		v, opErr = value.Add(left, right)
	case token.MINUS:
		v, opErr = value.Sub(left, right)
	case token.STAR:
		v, opErr = value.Mul(left, right)
	case token.SLASH:
		v, opErr = value.Div(left, right)
	case token.PERCENT:
		v, opErr = value.Mod(left, right)
	case token.EQ:
		v, opErr = value.Equals(left, right)
	case token.NE:
		v, opErr = value.NotEquals(left, right)
	case token.LT, token.GT, token.LE, token.GE:
		v, opErr = value.Compare(n.Op.String(), left, right)
	default:
		return value.Null(), evalErr(CodeTypeMismatch, n.Position, "unsupported operator %s", n.Op)
	}
	if opErr != nil {
		return value.Null(), mapValueError(opErr, n.Position)
	}
	return v, nil
}

// evalCall evaluates arguments left-to-right and dispatches to the
// registry. Aggregate calls permit collection fan-out in their direct
// arguments.
func (e *evaluator) evalCall(n *expr.CallExpr) (value.Value, *EvalError) {
	reg := e.ctx.Registry()

	def, ok := reg.Get(n.Name)
	if !ok {
		return value.Null(), mapFuncError(
			&funcs.UnknownFunctionError{Name: n.Name, Suggestions: reg.FindSimilar(n.Name)},
			n.Position,
		)
	}

	args := make([]value.Value, len(n.Args))
	for i, argNode := range n.Args {
		v, err := e.eval(argNode, def.Aggregate)
		if err != nil {
			return value.Null(), err
		}
		args[i] = v
	}

	out, err := reg.Invoke(n.Name, args)
	if err != nil {
		return value.Null(), mapFuncError(err, n.Position)
	}
	return out, nil
}

// evalRef resolves a property-reference path hop by hop. A to-many
// traversal fans out; the fanned-out result is a list that only an
// aggregate call may consume.
func (e *evaluator) evalRef(ref *expr.PropertyRef, allowFanout bool) (value.Value, *EvalError) {
	if hasFanout(ref) && !allowFanout {
		return value.Null(), evalErr(CodeCollectionWithoutAggregation, ref.Position,
			"collection traversal [*] must be wrapped in an aggregation function")
	}

	// entities is the breadth cursor: every entity the path has fanned
	// out to so far. It starts as the single base entity.
	entities := []string{ref.EntityID}
	fanned := false

	for i, seg := range ref.Path {
		last := i == len(ref.Path)-1

		var hopValues []value.Value
		for _, ent := range entities {
			v, err := e.readProperty(ent, seg.Name, ref.Position)
			if err != nil {
				return value.Null(), err
			}
			v, err = applyTraversal(v, seg, ref.Position)
			if err != nil {
				return value.Null(), err
			}
			if seg.Traversal == expr.TraverseAll {
				// Splice the fan-out elements into the hop results.
				if !v.IsNull() {
					hopValues = append(hopValues, v.List...)
				}
			} else {
				hopValues = append(hopValues, v)
			}
		}
		if seg.Traversal == expr.TraverseAll {
			fanned = true
		}

		if last {
			if fanned {
				return value.NewList(hopValues), nil
			}
			return hopValues[0], nil
		}

		// Intermediate hop: every non-null value must be an entity
		// reference to follow.
		next := make([]string, 0, len(hopValues))
		for _, v := range hopValues {
			switch v.Kind {
			case value.KindNull:
				// A null link contributes nothing downstream.
			case value.KindReference:
				next = append(next, v.Ref)
			default:
				return value.Null(), evalErr(CodeTypeMismatch, ref.Position,
					"segment %q resolves to %s, expected a reference", seg.Name, v.Kind)
			}
		}
		if len(next) == 0 {
			// The whole chain dead-ends in null.
			if fanned {
				return value.NewList(nil), nil
			}
			return value.Null(), nil
		}
		entities = next
	}

	return value.Null(), evalErr(CodePropertyRead, ref.Position, "empty property path")
}

// applyTraversal applies a segment's index/all marker to a fetched value.
func applyTraversal(v value.Value, seg expr.PathSegment, pos token.Position) (value.Value, *EvalError) {
	switch seg.Traversal {
	case expr.TraverseNone:
		return v, nil
	case expr.TraverseIndex:
		if v.IsNull() {
			return value.Null(), nil
		}
		if v.Kind != value.KindList {
			return value.Null(), evalErr(CodeTypeMismatch, pos,
				"segment %q indexed but resolves to %s, expected a list", seg.Name, v.Kind)
		}
		if seg.Index < 0 || seg.Index >= len(v.List) {
			return value.Null(), evalErr(CodeIndexOutOfBounds, pos,
				"index %d out of bounds for list of length %d", seg.Index, len(v.List))
		}
		return v.List[seg.Index], nil
	case expr.TraverseAll:
		if v.IsNull() {
			return value.NewList(nil), nil
		}
		// A to-one link fans out to a single-element list.
		if v.Kind == value.KindReference {
			return value.NewList([]value.Value{v}), nil
		}
		if v.Kind != value.KindList {
			return value.Null(), evalErr(CodeTypeMismatch, pos,
				"segment %q fanned out but resolves to %s, expected a list", seg.Name, v.Kind)
		}
		return v, nil
	default:
		return value.Null(), evalErr(CodePropertyRead, pos, "unknown traversal")
	}
}

func hasFanout(ref *expr.PropertyRef) bool {
	for _, seg := range ref.Path {
		if seg.Traversal == expr.TraverseAll {
			return true
		}
	}
	return false
}

// readProperty fetches a property through the context, mapping host
// errors to typed evaluation errors.
func (e *evaluator) readProperty(entityID, property string, pos token.Position) (value.Value, *EvalError) {
	v, err := e.ctx.Property(entityID, property)
	if err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return value.Null(), evalErr(CodeNotFound, pos, "%s", nf.Error())
		}
		return value.Null(), evalErr(CodePropertyRead, pos, "reading %s: %v", property, err)
	}
	return v, nil
}

// mapValueError converts value-package operator errors to EvalErrors.
func mapValueError(err error, pos token.Position) *EvalError {
	if errors.Is(err, value.ErrDivisionByZero) {
		return evalErr(CodeDivisionByZero, pos, "division by zero")
	}
	var te *value.TypeError
	if errors.As(err, &te) {
		return evalErr(CodeTypeMismatch, pos, "%s", te.Error())
	}
	return evalErr(CodeTypeMismatch, pos, "%v", err)
}

// mapFuncError converts registry errors to EvalErrors.
func mapFuncError(err error, pos token.Position) *EvalError {
	var (
		unknown *funcs.UnknownFunctionError
		arity   *funcs.InvalidArgumentCountError
		typ     *funcs.TypeMismatchError
	)
	switch {
	case errors.As(err, &unknown):
		return evalErr(CodeUnknownFunction, pos, "%s", unknown.Error())
	case errors.As(err, &arity):
		return evalErr(CodeInvalidArgumentCount, pos, "%s", arity.Error())
	case errors.As(err, &typ):
		return evalErr(CodeTypeMismatch, pos, "%s", typ.Error())
	case errors.Is(err, value.ErrDivisionByZero):
		return evalErr(CodeDivisionByZero, pos, "division by zero")
	default:
		return evalErr(CodeTypeMismatch, pos, "%v", err)
	}
}
