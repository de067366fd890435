package value

import (
	"testing"
	"time"
)

func TestValue_String(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	tests := []struct {
		v    Value
		want string
	}{
		{Null(), "null"},
		{NewText("hello"), "hello"},
		{NewNumber(42), "42"},
		{NewNumber(3.14), "3.14"},
		{NewNumberUnit(9.5, "kg"), "9.5 kg"},
		{NewBool(true), "true"},
		{NewDatetime(ts), "2026-03-14T09:26:53Z"},
		{NewDuration(90 * time.Minute), "1h30m0s"},
		{NewReference("abc-123"), "@abc-123"},
		{NewList([]Value{NewNumber(1), NewText("x")}), "[1, x]"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		k    Kind
		want string
	}{
		{KindNull, "null"},
		{KindText, "text"},
		{KindNumber, "number"},
		{KindBool, "boolean"},
		{KindDatetime, "datetime"},
		{KindDuration, "duration"},
		{KindReference, "reference"},
		{KindList, "list"},
		{KindRecord, "record"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("kind %d: expected %q, got %q", tt.k, tt.want, got)
		}
	}
}

func TestValue_Equal(t *testing.T) {
	if !Null().Equal(Null()) {
		t.Error("null should equal null")
	}
	if Null().Equal(NewNumber(0)) {
		t.Error("null should not equal 0")
	}
	if !NewNumberUnit(5, "kg").Equal(NewNumberUnit(5, "kg")) {
		t.Error("same number and unit should be equal")
	}
	if NewNumberUnit(5, "kg").Equal(NewNumberUnit(5, "lb")) {
		t.Error("differing units should not be equal")
	}
	if !NewList([]Value{NewNumber(1), NewNumber(2)}).Equal(NewList([]Value{NewNumber(1), NewNumber(2)})) {
		t.Error("equal lists should compare equal")
	}
	if NewList([]Value{NewNumber(1)}).Equal(NewList([]Value{NewNumber(1), NewNumber(2)})) {
		t.Error("lists of different length should not be equal")
	}
	if !NewRecord(map[string]Value{"a": NewText("x")}).Equal(NewRecord(map[string]Value{"a": NewText("x")})) {
		t.Error("equal records should compare equal")
	}

	utc := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("X", 3600))
	if !NewDatetime(utc).Equal(NewDatetime(offset)) {
		t.Error("datetimes should compare by instant, not location")
	}
}

func TestValue_IsNull(t *testing.T) {
	if !Null().IsNull() {
		t.Error("Null() should be null")
	}
	if NewNumber(0).IsNull() {
		t.Error("0 is not null")
	}
	if NewText("").IsNull() {
		t.Error("empty text is not null")
	}
}
