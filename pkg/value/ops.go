package value

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrDivisionByZero is returned by Div and Mod with a zero divisor.
var ErrDivisionByZero = errors.New("division by zero")

// TypeError reports an operator applied to incompatible operand types.
type TypeError struct {
	Op    string
	Left  Kind
	Right Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("operator %s not supported for %s and %s", e.Op, e.Left, e.Right)
}

func typeErr(op string, l, r Value) error {
	return &TypeError{Op: op, Left: l.Kind, Right: r.Kind}
}

// Add applies the + operator: number addition, text concatenation,
// datetime + duration, duration + duration. Null in, null out.
func Add(l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		return NewNumberUnit(l.Num+r.Num, mergeUnit(l, r)), nil
	case l.Kind == KindText && r.Kind == KindText:
		return NewText(l.Text + r.Text), nil
	case l.Kind == KindDatetime && r.Kind == KindDuration:
		return NewDatetime(l.Time.Add(r.Dur)), nil
	case l.Kind == KindDuration && r.Kind == KindDatetime:
		return NewDatetime(r.Time.Add(l.Dur)), nil
	case l.Kind == KindDuration && r.Kind == KindDuration:
		return NewDuration(l.Dur + r.Dur), nil
	default:
		return Null(), typeErr("+", l, r)
	}
}

// Sub applies the - operator. datetime - datetime yields a duration.
func Sub(l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		return NewNumberUnit(l.Num-r.Num, mergeUnit(l, r)), nil
	case l.Kind == KindDatetime && r.Kind == KindDuration:
		return NewDatetime(l.Time.Add(-r.Dur)), nil
	case l.Kind == KindDatetime && r.Kind == KindDatetime:
		return NewDuration(l.Time.Sub(r.Time)), nil
	case l.Kind == KindDuration && r.Kind == KindDuration:
		return NewDuration(l.Dur - r.Dur), nil
	default:
		return Null(), typeErr("-", l, r)
	}
}

// Mul applies the * operator. A number may scale a duration.
func Mul(l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		return NewNumberUnit(l.Num*r.Num, mergeUnit(l, r)), nil
	case l.Kind == KindDuration && r.Kind == KindNumber:
		return NewDuration(scaleDuration(l.Dur, r.Num)), nil
	case l.Kind == KindNumber && r.Kind == KindDuration:
		return NewDuration(scaleDuration(r.Dur, l.Num)), nil
	default:
		return Null(), typeErr("*", l, r)
	}
}

// Div applies the / operator. A zero divisor is ErrDivisionByZero,
// not null: the operands are known, the result is undefined.
func Div(l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		if r.Num == 0 {
			return Null(), ErrDivisionByZero
		}
		return NewNumberUnit(l.Num/r.Num, mergeUnit(l, r)), nil
	case l.Kind == KindDuration && r.Kind == KindNumber:
		if r.Num == 0 {
			return Null(), ErrDivisionByZero
		}
		return NewDuration(scaleDuration(l.Dur, 1/r.Num)), nil
	default:
		return Null(), typeErr("/", l, r)
	}
}

// Mod applies the % operator on numbers.
func Mod(l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	if l.Kind != KindNumber || r.Kind != KindNumber {
		return Null(), typeErr("%", l, r)
	}
	if r.Num == 0 {
		return Null(), ErrDivisionByZero
	}
	return NewNumber(math.Mod(l.Num, r.Num)), nil
}

// Compare applies an ordering operator ("<", ">", "<=", ">=").
// Ordered kinds: number, text, datetime, duration.
func Compare(op string, l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	var cmp int
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		cmp = compareFloat(l.Num, r.Num)
	case l.Kind == KindText && r.Kind == KindText:
		cmp = compareText(l.Text, r.Text)
	case l.Kind == KindDatetime && r.Kind == KindDatetime:
		cmp = l.Time.Compare(r.Time)
	case l.Kind == KindDuration && r.Kind == KindDuration:
		cmp = compareFloat(float64(l.Dur), float64(r.Dur))
	default:
		return Null(), typeErr(op, l, r)
	}
	switch op {
	case "<":
		return NewBool(cmp < 0), nil
	case ">":
		return NewBool(cmp > 0), nil
	case "<=":
		return NewBool(cmp <= 0), nil
	case ">=":
		return NewBool(cmp >= 0), nil
	default:
		return Null(), typeErr(op, l, r)
	}
}

// Equals applies == with three-valued semantics: null operands yield
// null, mismatched kinds are an error rather than false.
func Equals(l, r Value) (Value, error) {
	if l.IsNull() || r.IsNull() {
		return Null(), nil
	}
	if l.Kind != r.Kind {
		return Null(), typeErr("==", l, r)
	}
	return NewBool(l.Equal(r)), nil
}

// NotEquals applies !=.
func NotEquals(l, r Value) (Value, error) {
	v, err := Equals(l, r)
	if err != nil || v.IsNull() {
		return v, err
	}
	return NewBool(!v.Bool), nil
}

// And combines two already-evaluated boolean operands with SQL-style
// three-valued logic: false && null is false, true && null is null.
// Short-circuiting happens in the evaluator before this is called.
func And(l, r Value) (Value, error) {
	lb, lerr := truthKind(l, "&&", r)
	if lerr != nil {
		return Null(), lerr
	}
	rb, rerr := truthKind(r, "&&", l)
	if rerr != nil {
		return Null(), rerr
	}
	switch {
	case lb == ternFalse || rb == ternFalse:
		return NewBool(false), nil
	case lb == ternNull || rb == ternNull:
		return Null(), nil
	default:
		return NewBool(true), nil
	}
}

// Or combines two already-evaluated boolean operands: true || null is
// true, false || null is null.
func Or(l, r Value) (Value, error) {
	lb, lerr := truthKind(l, "||", r)
	if lerr != nil {
		return Null(), lerr
	}
	rb, rerr := truthKind(r, "||", l)
	if rerr != nil {
		return Null(), rerr
	}
	switch {
	case lb == ternTrue || rb == ternTrue:
		return NewBool(true), nil
	case lb == ternNull || rb == ternNull:
		return Null(), nil
	default:
		return NewBool(false), nil
	}
}

// Not applies logical negation. Null in, null out.
func Not(v Value) (Value, error) {
	if v.IsNull() {
		return Null(), nil
	}
	if v.Kind != KindBool {
		return Null(), &TypeError{Op: "!", Left: v.Kind, Right: KindNull}
	}
	return NewBool(!v.Bool), nil
}

// Neg applies arithmetic negation. Null in, null out.
func Neg(v Value) (Value, error) {
	switch v.Kind {
	case KindNull:
		return Null(), nil
	case KindNumber:
		return NewNumberUnit(-v.Num, v.Unit), nil
	case KindDuration:
		return NewDuration(-v.Dur), nil
	default:
		return Null(), &TypeError{Op: "-", Left: v.Kind, Right: KindNull}
	}
}

type ternary int

const (
	ternFalse ternary = iota
	ternTrue
	ternNull
)

func truthKind(v Value, op string, other Value) (ternary, error) {
	switch v.Kind {
	case KindNull:
		return ternNull, nil
	case KindBool:
		if v.Bool {
			return ternTrue, nil
		}
		return ternFalse, nil
	default:
		return ternNull, &TypeError{Op: op, Left: v.Kind, Right: other.Kind}
	}
}

// mergeUnit keeps the left unit when set, otherwise the right.
// Unit conversion is the host's concern; the engine only carries the tag.
func mergeUnit(l, r Value) string {
	if l.Unit != "" {
		return l.Unit
	}
	return r.Unit
}

func scaleDuration(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareText(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
