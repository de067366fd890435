// Package value defines the runtime value model of the formula engine.
//
// Value is a tagged union mirroring the property types of the host data
// model: text, number (with an optional unit), boolean, datetime,
// duration, entity reference, list, record, or null. Every operation in
// this package is total over the union: unsupported combinations return
// a typed error, and a null operand propagates as null rather than
// failing (three-valued logic).
package value

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindDatetime
	KindDuration
	KindReference
	KindList
	KindRecord
)

// String returns the lowercase type name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindDatetime:
		return "datetime"
	case KindDuration:
		return "duration"
	case KindReference:
		return "reference"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a runtime value. Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind

	Text string
	Num  float64
	Unit string // optional dimension for numbers ("kg", "usd", ...)
	Bool bool
	Time time.Time
	Dur  time.Duration
	Ref  string // entity id
	List []Value
	Rec  map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

func NewText(s string) Value { return Value{Kind: KindText, Text: s} }
func NewNumber(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// NewNumberUnit returns a number carrying a dimension/unit.
func NewNumberUnit(f float64, unit string) Value {
	return Value{Kind: KindNumber, Num: f, Unit: unit}
}

func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func NewDatetime(t time.Time) Value { return Value{Kind: KindDatetime, Time: t} }
func NewDuration(d time.Duration) Value { return Value{Kind: KindDuration, Dur: d} }
func NewReference(id string) Value { return Value{Kind: KindReference, Ref: id} }
func NewList(vs []Value) Value { return Value{Kind: KindList, List: vs} }
func NewRecord(m map[string]Value) Value { return Value{Kind: KindRecord, Rec: m} }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String renders the value for display and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindText:
		return v.Text
	case KindNumber:
		s := strconv.FormatFloat(v.Num, 'f', -1, 64)
		if v.Unit != "" {
			return s + " " + v.Unit
		}
		return s
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindDatetime:
		return v.Time.Format(time.RFC3339)
	case KindDuration:
		return v.Dur.String()
	case KindReference:
		return "@" + v.Ref
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindRecord:
		return fmt.Sprintf("record(%d fields)", len(v.Rec))
	default:
		return v.Kind.String()
	}
}

// Equal reports deep equality. Null equals only null.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindText:
		return v.Text == o.Text
	case KindNumber:
		return v.Num == o.Num && v.Unit == o.Unit
	case KindBool:
		return v.Bool == o.Bool
	case KindDatetime:
		return v.Time.Equal(o.Time)
	case KindDuration:
		return v.Dur == o.Dur
	case KindReference:
		return v.Ref == o.Ref
	case KindList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(v.Rec) != len(o.Rec) {
			return false
		}
		for k, e := range v.Rec {
			oe, ok := o.Rec[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
