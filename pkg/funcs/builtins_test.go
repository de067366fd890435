package funcs

import (
	"testing"
	"time"

	"github.com/fieldline-labs/fieldline/pkg/value"
)

func invoke(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	got, err := Default().Invoke(name, args)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", name, err)
	}
	return got
}

func TestIF(t *testing.T) {
	got := invoke(t, "IF", value.NewBool(true), value.NewText("yes"), value.NewText("no"))
	if got.Text != "yes" {
		t.Errorf("expected yes, got %s", got)
	}

	got = invoke(t, "IF", value.NewBool(false), value.NewText("yes"), value.NewText("no"))
	if got.Text != "no" {
		t.Errorf("expected no, got %s", got)
	}

	// An unknown condition picks neither branch.
	got = invoke(t, "IF", value.Null(), value.NewText("yes"), value.NewText("no"))
	if !got.IsNull() {
		t.Errorf("expected null, got %s", got)
	}

	if _, err := Default().Invoke("IF", []value.Value{value.NewNumber(1), value.Null(), value.Null()}); err == nil {
		t.Error("expected type error for non-boolean condition")
	}
}

func TestCOALESCE(t *testing.T) {
	got := invoke(t, "COALESCE", value.Null(), value.Null(), value.NewNumber(3), value.NewNumber(4))
	if !got.Equal(value.NewNumber(3)) {
		t.Errorf("expected 3, got %s", got)
	}

	got = invoke(t, "COALESCE", value.Null(), value.Null())
	if !got.IsNull() {
		t.Errorf("expected null, got %s", got)
	}
}

func TestISNULL(t *testing.T) {
	if got := invoke(t, "ISNULL", value.NewNumber(0)); got.Bool {
		t.Error("expected false for 0")
	}
	if got := invoke(t, "ISNULL", value.Null()); !got.Bool {
		t.Error("expected true for null")
	}
}

func TestMathBuiltins(t *testing.T) {
	tests := []struct {
		name string
		args []value.Value
		want value.Value
	}{
		{"ABS", []value.Value{value.NewNumber(-3.5)}, value.NewNumber(3.5)},
		{"ROUND", []value.Value{value.NewNumber(2.567), value.NewNumber(2)}, value.NewNumber(2.57)},
		{"ROUND", []value.Value{value.NewNumber(2.5)}, value.NewNumber(3)},
		{"FLOOR", []value.Value{value.NewNumber(2.9)}, value.NewNumber(2)},
		{"CEIL", []value.Value{value.NewNumber(2.1)}, value.NewNumber(3)},
		{"MIN", []value.Value{value.NewNumber(3), value.NewNumber(1), value.NewNumber(2)}, value.NewNumber(1)},
		{"MAX", []value.Value{value.NewNumber(3), value.NewNumber(1), value.NewNumber(2)}, value.NewNumber(3)},
	}

	for _, tt := range tests {
		got := invoke(t, tt.name, tt.args...)
		if !got.Equal(tt.want) {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestTextBuiltins(t *testing.T) {
	if got := invoke(t, "CONCAT", value.NewText("a"), value.NewText("b"), value.NewText("c")); got.Text != "abc" {
		t.Errorf("CONCAT: got %q", got.Text)
	}
	if got := invoke(t, "UPPER", value.NewText("abc")); got.Text != "ABC" {
		t.Errorf("UPPER: got %q", got.Text)
	}
	if got := invoke(t, "LOWER", value.NewText("ABC")); got.Text != "abc" {
		t.Errorf("LOWER: got %q", got.Text)
	}
	if got := invoke(t, "TRIM", value.NewText("  x  ")); got.Text != "x" {
		t.Errorf("TRIM: got %q", got.Text)
	}
	if got := invoke(t, "LENGTH", value.NewText("hello")); !got.Equal(value.NewNumber(5)) {
		t.Errorf("LENGTH: got %s", got)
	}
	if got := invoke(t, "CONTAINS", value.NewText("haystack"), value.NewText("stack")); !got.Bool {
		t.Error("CONTAINS: expected true")
	}
}

func TestDatetimeBuiltins(t *testing.T) {
	a := value.NewDatetime(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	b := value.NewDatetime(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	got := invoke(t, "DATE_DIFF", a, b, value.NewText("days"))
	if !got.Equal(value.NewNumber(5)) {
		t.Errorf("DATE_DIFF: expected 5, got %s", got)
	}

	got = invoke(t, "DATE_ADD", b, value.NewNumber(5), value.NewText("days"))
	if !got.Equal(a) {
		t.Errorf("DATE_ADD: expected %s, got %s", a, got)
	}

	if _, err := Default().Invoke("DATE_DIFF", []value.Value{a, b, value.NewText("fortnights")}); err == nil {
		t.Error("expected error for unknown unit")
	}

	if got := invoke(t, "YEAR", a); !got.Equal(value.NewNumber(2026)) {
		t.Errorf("YEAR: got %s", got)
	}
	if got := invoke(t, "MONTH", a); !got.Equal(value.NewNumber(3)) {
		t.Errorf("MONTH: got %s", got)
	}
	if got := invoke(t, "DAY", a); !got.Equal(value.NewNumber(15)) {
		t.Errorf("DAY: got %s", got)
	}
}

func TestNOW(t *testing.T) {
	before := time.Now().UTC()
	got := invoke(t, "NOW")
	after := time.Now().UTC()
	if got.Kind != value.KindDatetime {
		t.Fatalf("expected datetime, got %s", got.Kind)
	}
	if got.Time.Before(before) || got.Time.After(after) {
		t.Errorf("NOW out of range: %s", got.Time)
	}
}

func TestAggregates(t *testing.T) {
	nums := value.NewList([]value.Value{
		value.NewNumber(10), value.Null(), value.NewNumber(20), value.NewNumber(30),
	})

	if got := invoke(t, "SUM", nums); !got.Equal(value.NewNumber(60)) {
		t.Errorf("SUM: expected 60, got %s", got)
	}
	if got := invoke(t, "AVG", nums); !got.Equal(value.NewNumber(20)) {
		t.Errorf("AVG: expected 20, got %s", got)
	}
	// Null elements are skipped, not counted.
	if got := invoke(t, "COUNT", nums); !got.Equal(value.NewNumber(3)) {
		t.Errorf("COUNT: expected 3, got %s", got)
	}
	if got := invoke(t, "MINOF", nums); !got.Equal(value.NewNumber(10)) {
		t.Errorf("MINOF: expected 10, got %s", got)
	}
	if got := invoke(t, "MAXOF", nums); !got.Equal(value.NewNumber(30)) {
		t.Errorf("MAXOF: expected 30, got %s", got)
	}
}

func TestAggregates_Empty(t *testing.T) {
	empty := value.NewList(nil)
	allNull := value.NewList([]value.Value{value.Null(), value.Null()})

	for _, name := range []string{"SUM", "AVG", "MINOF", "MAXOF"} {
		if got := invoke(t, name, empty); !got.IsNull() {
			t.Errorf("%s of empty list: expected null, got %s", name, got)
		}
		if got := invoke(t, name, allNull); !got.IsNull() {
			t.Errorf("%s of all-null list: expected null, got %s", name, got)
		}
	}

	if got := invoke(t, "COUNT", empty); !got.Equal(value.NewNumber(0)) {
		t.Errorf("COUNT of empty list: expected 0, got %s", got)
	}
	if got := invoke(t, "COUNT", value.Null()); !got.Equal(value.NewNumber(0)) {
		t.Errorf("COUNT of null: expected 0, got %s", got)
	}
}

func TestSUM_Units(t *testing.T) {
	got := invoke(t, "SUM", value.NewList([]value.Value{
		value.NewNumberUnit(2, "kg"), value.NewNumberUnit(3, "kg"),
	}))
	if !got.Equal(value.NewNumberUnit(5, "kg")) {
		t.Errorf("expected 5 kg, got %s", got)
	}
}
