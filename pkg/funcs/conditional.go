package funcs

import (
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// registerConditional registers the conditional built-ins.
//
// These opt out of null passthrough: handling null is their job.
// IF with a null condition yields null (the condition is unknown,
// so neither branch applies).
func registerConditional(r *Registry) {
	r.mustRegister(Definition{
		Name:        "IF",
		Category:    "conditional",
		MinArgs:     3,
		MaxArgs:     3,
		ArgTypes:    []value.Kind{AnyKind, AnyKind, AnyKind},
		ReturnType:  AnyKind,
		AcceptsNull: true,
		Impl: func(args []value.Value) (value.Value, error) {
			cond := args[0]
			if cond.IsNull() {
				return value.Null(), nil
			}
			if cond.Kind != value.KindBool {
				return value.Null(), &TypeMismatchError{Name: "IF", ArgIndex: 0, Want: value.KindBool, Got: cond.Kind}
			}
			if cond.Bool {
				return args[1], nil
			}
			return args[2], nil
		},
	})

	r.mustRegister(Definition{
		Name:        "COALESCE",
		Category:    "conditional",
		MinArgs:     1,
		MaxArgs:     UnboundedArgs,
		ArgTypes:    []value.Kind{AnyKind},
		ReturnType:  AnyKind,
		AcceptsNull: true,
		Impl: func(args []value.Value) (value.Value, error) {
			for _, arg := range args {
				if !arg.IsNull() {
					return arg, nil
				}
			}
			return value.Null(), nil
		},
	})

	r.mustRegister(Definition{
		Name:        "ISNULL",
		Category:    "conditional",
		MinArgs:     1,
		MaxArgs:     1,
		ArgTypes:    []value.Kind{AnyKind},
		ReturnType:  value.KindBool,
		AcceptsNull: true,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewBool(args[0].IsNull()), nil
		},
	})
}
