package funcs

import (
	"strings"

	"github.com/fieldline-labs/fieldline/pkg/value"
)

// registerText registers the text built-ins.
func registerText(r *Registry) {
	r.mustRegister(Definition{
		Name:       "CONCAT",
		Category:   "text",
		MinArgs:    1,
		MaxArgs:    UnboundedArgs,
		ArgTypes:   []value.Kind{value.KindText},
		ReturnType: value.KindText,
		Impl: func(args []value.Value) (value.Value, error) {
			var b strings.Builder
			for _, arg := range args {
				b.WriteString(arg.Text)
			}
			return value.NewText(b.String()), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "UPPER",
		Category:   "text",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindText},
		ReturnType: value.KindText,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewText(strings.ToUpper(args[0].Text)), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "LOWER",
		Category:   "text",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindText},
		ReturnType: value.KindText,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewText(strings.ToLower(args[0].Text)), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "TRIM",
		Category:   "text",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindText},
		ReturnType: value.KindText,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewText(strings.TrimSpace(args[0].Text)), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "LENGTH",
		Category:   "text",
		MinArgs:    1,
		MaxArgs:    1,
		ArgTypes:   []value.Kind{value.KindText},
		ReturnType: value.KindNumber,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewNumber(float64(len([]rune(args[0].Text)))), nil
		},
	})

	r.mustRegister(Definition{
		Name:       "CONTAINS",
		Category:   "text",
		MinArgs:    2,
		MaxArgs:    2,
		ArgTypes:   []value.Kind{value.KindText, value.KindText},
		ReturnType: value.KindBool,
		Impl: func(args []value.Value) (value.Value, error) {
			return value.NewBool(strings.Contains(args[0].Text, args[1].Text)), nil
		},
	})
}
