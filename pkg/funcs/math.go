package funcs

import (
	"math"

	"github.com/fieldline-labs/fieldline/pkg/value"
)

// registerMath registers the numeric built-ins. Units ride along
// unchanged where the operation preserves the dimension.
func registerMath(r *Registry) {
	r.mustRegister(Definition{
		Name:       "ABS",
		Category:   "math",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindNumber},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumberUnit(math.Abs(args[0].Num), args[0].Unit), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "ROUND",
		Category:   "math",
		MinArgs:    1,
		MaxArgs:    2,
		ArgTypes:   []value.Kind{value.KindNumber, value.KindNumber},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			digits := 0.0
			if len(args) == 2 {
				digits = args[1].Num
			}
			scale := math.Pow(10, digits)
			return value.NewNumberUnit(math.Round(args[0].Num*scale)/scale, args[0].Unit), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "FLOOR",
		Category:   "math",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindNumber},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumberUnit(math.Floor(args[0].Num), args[0].Unit), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "CEIL",
		Category:   "math",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindNumber},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumberUnit(math.Ceil(args[0].Num), args[0].Unit), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "MIN",
		Category:   "math",
		MinArgs:    2,
		MaxArgs:    UnboundedArgs,
		ArgTypes:   []value.Kind{value.KindNumber},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			best := args[0]
			for _, arg := range args[1:] {
				if arg.Num < best.Num {
					best = arg
				}
			}
			return best, nil
		},
	})

	r.mustRegister(Definition{
		Name:       "MAX",
		Category:   "math",
		MinArgs:    2,
		MaxArgs:    UnboundedArgs,
		ArgTypes:   []value.Kind{value.KindNumber},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			best := args[0]
			for _, arg := range args[1:] {
				if arg.Num > best.Num {
					best = arg
				}
			}
			return best, nil
		},
	})
}
