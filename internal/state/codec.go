package state

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldline-labs/fieldline/pkg/value"
)

// wireValue is the JSON shape a value.Value is stored as. The kind tag
// names which payload field is live; datetimes are RFC 3339 with
// nanoseconds, durations are nanosecond counts.
type wireValue struct {
	Kind string               `json:"kind"`
	Text string               `json:"text,omitempty"`
	Num  float64              `json:"num,omitempty"`
	Unit string               `json:"unit,omitempty"`
	Bool bool                 `json:"bool,omitempty"`
	Time string               `json:"time,omitempty"`
	Dur  int64                `json:"dur,omitempty"`
	Ref  string               `json:"ref,omitempty"`
	List []wireValue          `json:"list,omitempty"`
	Rec  map[string]wireValue `json:"rec,omitempty"`
}

func encodeValue(v value.Value) (string, error) {
	raw, err := json.Marshal(toWire(v))
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(raw), nil
}

func decodeValue(raw string) (value.Value, error) {
	var w wireValue
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return value.Null(), fmt.Errorf("failed to decode value: %w", err)
	}
	return fromWire(w)
}

func toWire(v value.Value) wireValue {
	w := wireValue{Kind: v.Kind.String()}
	switch v.Kind {
	case value.KindText:
		w.Text = v.Text
	case value.KindNumber:
		w.Num = v.Num
		w.Unit = v.Unit
	case value.KindBool:
		w.Bool = v.Bool
	case value.KindDatetime:
		w.Time = v.Time.UTC().Format(time.RFC3339Nano)
	case value.KindDuration:
		w.Dur = int64(v.Dur)
	case value.KindReference:
		w.Ref = v.Ref
	case value.KindList:
		w.List = make([]wireValue, len(v.List))
		for i, e := range v.List {
			w.List[i] = toWire(e)
		}
	case value.KindRecord:
		w.Rec = make(map[string]wireValue, len(v.Rec))
		for k, e := range v.Rec {
			w.Rec[k] = toWire(e)
		}
	}
	return w
}

func fromWire(w wireValue) (value.Value, error) {
	switch w.Kind {
	case "null":
		return value.Null(), nil
	case "text":
		return value.NewText(w.Text), nil
	case "number":
		return value.NewNumberUnit(w.Num, w.Unit), nil
	case "boolean":
		return value.NewBool(w.Bool), nil
	case "datetime":
		t, err := time.Parse(time.RFC3339Nano, w.Time)
		if err != nil {
			return value.Null(), fmt.Errorf("failed to decode datetime %q: %w", w.Time, err)
		}
		return value.NewDatetime(t), nil
	case "duration":
		return value.NewDuration(time.Duration(w.Dur)), nil
	case "reference":
		return value.NewReference(w.Ref), nil
	case "list":
		list := make([]value.Value, len(w.List))
		for i, e := range w.List {
			v, err := fromWire(e)
			if err != nil {
				return value.Null(), err
			}
			list[i] = v
		}
		return value.NewList(list), nil
	case "record":
		rec := make(map[string]value.Value, len(w.Rec))
		for k, e := range w.Rec {
			v, err := fromWire(e)
			if err != nil {
				return value.Null(), err
			}
			rec[k] = v
		}
		return value.NewRecord(rec), nil
	default:
		return value.Null(), fmt.Errorf("unknown value kind %q", w.Kind)
	}
}
