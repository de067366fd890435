package funcs

import (
	"fmt"
	"strings"
	"time"

	"github.com/fieldline-labs/fieldline/pkg/value"
)

// registerDatetime registers the date/time built-ins.
func registerDatetime(r *Registry) {
	r.mustRegister(Definition{
		Name:       "NOW",
		Category:   "datetime",
		MinArgs:    0,
		MaxArgs:    0,
		ReturnType: value.KindDatetime,
		Impl: func(_ []value.Value) (value.Value, error) {
			return value.NewDatetime(time.Now().UTC()), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "TODAY",
		Category:   "datetime",
		MinArgs:    0,
		MaxArgs:    0,
		ReturnType: value.KindDatetime,
		Impl: func(_ []value.Value) (value.Value, error) {
			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return value.NewDatetime(midnight), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "DATE_DIFF",
		Category:   "datetime",
		MinArgs:    3,
		MaxArgs:    3,
		ArgTypes:   []value.Kind{value.KindDatetime, value.KindDatetime, value.KindText},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			diff := args[0].Time.Sub(args[1].Time)
			scale, err := unitDuration("DATE_DIFF", args[2].Text)
			if err != nil {
				return value.Null(), err
			}
			return value.NewNumber(float64(diff) / float64(scale)), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "DATE_ADD",
		Category:   "datetime",
		MinArgs:    3,
		MaxArgs:    3,
		ArgTypes:   []value.Kind{value.KindDatetime, value.KindNumber, value.KindText},
		ReturnType: value.KindDatetime,
		Impl: func(args []value.Value) (value.Value, error) {
			scale, err := unitDuration("DATE_ADD", args[2].Text)
			if err != nil {
				return value.Null(), err
			}
			delta := time.Duration(args[1].Num * float64(scale))
			return value.NewDatetime(args[0].Time.Add(delta)), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "YEAR",
		Category:   "datetime",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindDatetime},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumber(float64(args[0].Time.Year())), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "MONTH",
		Category:   "datetime",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindDatetime},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumber(float64(args[0].Time.Month())), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "DAY",
		Category:   "datetime",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindDatetime},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumber(float64(args[0].Time.Day())), nil
		},
	})
}

// unitDuration maps a calendar unit name to its duration. Days are
// fixed 24h; calendar-aware arithmetic is out of the engine's scope.
func unitDuration(fn, unit string) (time.Duration, error) {
	switch strings.ToLower(unit) {
	case "days", "day":
		return 24 * time.Hour, nil
	case "hours", "hour":
		return time.Hour, nil
	case "minutes", "minute":
		return time.Minute, nil
	case "seconds", "second":
		return time.Second, nil
	case "milliseconds", "millisecond", "ms":
		return time.Millisecond, nil
	default:
		return 0, fmt.Errorf("%s: unknown unit %q", fn, unit)
	}
}
