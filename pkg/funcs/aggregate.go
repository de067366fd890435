package funcs

import (
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// registerAggregate registers the list-reducing built-ins. These are
// the only functions allowed to enclose a collection fan-out ([*]).
// Null list elements are skipped rather than nulling the whole result;
// a reduction over zero non-null elements is null (COUNT excepted).
func registerAggregate(r *Registry) {
	r.mustRegister(Definition{
		Name:       "SUM",
		Category:   "aggregate",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindList},
		ReturnType: value.KindNumber,
		Aggregate:  true,
		Impl: func(args []value.Value) (value.Value, error) {
			sum := 0.0
			unit := ""
			seen := false
			for i, e := range args[0].List {
				if e.IsNull() {
					continue
				}
				if e.Kind != value.KindNumber {
					return value.Null(), &TypeMismatchError{Name: "SUM", ArgIndex: i, Want: value.KindNumber, Got: e.Kind}
				}
				sum += e.Num
				if unit == "" {
					unit = e.Unit
				}
				seen = true
			}
			if !seen {
				return value.Null(), nil
			}
			return value.NewNumberUnit(sum, unit), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "AVG",
		Category:   "aggregate",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindList},
		ReturnType: value.KindNumber,
		Aggregate:  true,
		Impl: func(args []value.Value) (value.Value, error) {
			sum := 0.0
			unit := ""
			n := 0
			for i, e := range args[0].List {
				if e.IsNull() {
					continue
				}
				if e.Kind != value.KindNumber {
					return value.Null(), &TypeMismatchError{Name: "AVG", ArgIndex: i, Want: value.KindNumber, Got: e.Kind}
				}
				sum += e.Num
				if unit == "" {
					unit = e.Unit
				}
				n++
			}
			if n == 0 {
				return value.Null(), nil
			}
			return value.NewNumberUnit(sum/float64(n), unit), nil
		},
	})

	r.mustRegister(Definition{
		Name:        "COUNT",
		Category:    "aggregate",
		MinArgs:     1,
		MaxArgs:     1,
		ArgTypes:    []value.Kind{value.KindList},
		ReturnType:  value.KindNumber,
		Aggregate:   true,
		AcceptsNull: true, // COUNT of a null list is 0, not null
		Impl: func(args []value.Value) (value.Value, error) {
			if args[0].IsNull() {
				return value.NewNumber(0), nil
			}
			n := 0
			for _, e := range args[0].List {
				if !e.IsNull() {
					n++
				}
			}
			return value.NewNumber(float64(n)), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "MINOF",
		Category:   "aggregate",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindList},
		ReturnType: value.KindNumber,
		Aggregate:  true,
		Impl:       reduceExtreme("MINOF", func(a, b float64) bool { return a < b }),
	})

	r.mustRegister(Definition{
		Name:       "MAXOF",
		Category:   "aggregate",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindList},
		ReturnType: value.KindNumber,
		Aggregate:  true,
		Impl:       reduceExtreme("MAXOF", func(a, b float64) bool { return a > b }),
	})
}

func reduceExtreme(name string, better func(a, b float64) bool) Impl {
	return func(args []value.Value) (value.Value, error) {
		var best *value.Value
		for i := range args[0].List {
			e := args[0].List[i]
			if e.IsNull() {
				continue
			}
			if e.Kind != value.KindNumber {
				return value.Null(), &TypeMismatchError{Name: name, ArgIndex: i, Want: value.KindNumber, Got: e.Kind}
			}
			if best == nil || better(e.Num, best.Num) {
				best = &e
			}
		}
		if best == nil {
			return value.Null(), nil
		}
		return *best, nil
	}
}
