// Package funcs provides the registry of built-in formula functions.
//
// A Registry is an explicit value rather than process-global state, so
// tests and embedders can construct isolated registries. Default()
// returns the shared registry of built-ins, initialized once. Lookup is
// safe for concurrent use; Register calls must be serialized by the
// caller and normally happen only at startup.
package funcs

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agext/levenshtein"

	"github.com/fieldline-labs/fieldline/pkg/value"
)

// AnyKind matches any argument kind in a Definition's ArgTypes.
const AnyKind value.Kind = -1

// UnboundedArgs marks a variadic Definition with no upper arity bound.
const UnboundedArgs = -1

// Impl is the implementation of a built-in function. It must be pure
// and must return errors as values, never panic.
type Impl func(args []value.Value) (value.Value, error)

// Definition describes a registered function.
type Definition struct {
	Name     string
	Category string // "conditional", "datetime", "math", "text", "aggregate"

	MinArgs int
	MaxArgs int // UnboundedArgs for variadic functions

	// ArgTypes holds the expected kind per position. When a call has
	// more arguments than entries, the last entry applies to the rest.
	// AnyKind accepts every kind.
	ArgTypes   []value.Kind
	ReturnType value.Kind

	// Aggregate functions reduce collection fan-out ([*]) results and
	// are the only legal enclosing context for them.
	Aggregate bool

	// AcceptsNull opts out of the default null passthrough: normally a
	// null argument short-circuits the call to a null result before
	// Impl runs (three-valued logic). COALESCE, ISNULL, IF, and COUNT
	// handle nulls themselves.
	AcceptsNull bool

	Impl Impl
}

// InvalidArgumentCountError reports a call with the wrong arity.
type InvalidArgumentCountError struct {
	Name string
	Got  int
	Min  int
	Max  int
}

func (e *InvalidArgumentCountError) Error() string {
	if e.Max == UnboundedArgs {
		return fmt.Sprintf("%s expects at least %d argument(s), got %d", e.Name, e.Min, e.Got)
	}
	if e.Min == e.Max {
		return fmt.Sprintf("%s expects %d argument(s), got %d", e.Name, e.Min, e.Got)
	}
	return fmt.Sprintf("%s expects between %d and %d arguments, got %d", e.Name, e.Min, e.Max, e.Got)
}

// TypeMismatchError reports a call argument of the wrong runtime kind.
type TypeMismatchError struct {
	Name     string
	ArgIndex int
	Want     value.Kind
	Got      value.Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s argument %d: expected %s, got %s", e.Name, e.ArgIndex+1, e.Want, e.Got)
}

// UnknownFunctionError reports a call to an unregistered function.
type UnknownFunctionError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownFunctionError) Error() string {
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("unknown function %s, did you mean %s?", e.Name, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("unknown function %s", e.Name)
}

// Registry holds function definitions keyed by uppercase name.
type Registry struct {
	funcs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Definition)}
}

// Register adds a definition. The name is uppercased; registering the
// same name twice is an error.
func (r *Registry) Register(def Definition) error {
	name := strings.ToUpper(strings.TrimSpace(def.Name))
	if name == "" {
		return fmt.Errorf("function name must not be empty")
	}
	if def.Impl == nil {
		return fmt.Errorf("function %s has no implementation", name)
	}
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("function %s already registered", name)
	}
	def.Name = name
	r.funcs[name] = &def
	return nil
}

// mustRegister registers a built-in and panics on conflict. Used only
// during package initialization where a conflict is a programming error.
func (r *Registry) mustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns the definition for name, if registered.
func (r *Registry) Get(name string) (*Definition, bool) {
	def, ok := r.funcs[strings.ToUpper(name)]
	return def, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[strings.ToUpper(name)]
	return ok
}

// Names returns all registered function names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindSimilar returns registered names close to name, for "did you
// mean" diagnostics: prefix matches plus names within edit distance 2.
func (r *Registry) FindSimilar(name string) []string {
	upper := strings.ToUpper(name)
	var similar []string
	for _, candidate := range r.Names() {
		if strings.HasPrefix(candidate, upper) && candidate != upper {
			similar = append(similar, candidate)
			continue
		}
		if levenshtein.Distance(upper, candidate, nil) <= 2 {
			similar = append(similar, candidate)
		}
	}
	return similar
}

// Invoke checks arity and argument kinds, applies null passthrough,
// and dispatches to the implementation. All failures are typed error
// values; Invoke never panics on well-formed definitions.
func (r *Registry) Invoke(name string, args []value.Value) (value.Value, error) {
	def, ok := r.Get(name)
	if !ok {
		return value.Null(), &UnknownFunctionError{
			Name:        strings.ToUpper(name),
			Suggestions: r.FindSimilar(name),
		}
	}

	if len(args) < def.MinArgs || (def.MaxArgs != UnboundedArgs && len(args) > def.MaxArgs) {
		return value.Null(), &InvalidArgumentCountError{
			Name: def.Name,
			Got:  len(args),
			Min:  def.MinArgs,
			Max:  def.MaxArgs,
		}
	}

	for i, arg := range args {
		want := argKindAt(def.ArgTypes, i)
		if want == AnyKind || arg.IsNull() {
			continue
		}
		if arg.Kind != want {
			return value.Null(), &TypeMismatchError{
				Name:     def.Name,
				ArgIndex: i,
				Want:     want,
				Got:      arg.Kind,
			}
		}
	}

	if !def.AcceptsNull {
		for _, arg := range args {
			if arg.IsNull() {
				return value.Null(), nil
			}
		}
	}

	return def.Impl(args)
}

func argKindAt(argTypes []value.Kind, i int) value.Kind {
	if len(argTypes) == 0 {
		return AnyKind
	}
	if i >= len(argTypes) {
		return argTypes[len(argTypes)-1]
	}
	return argTypes[i]
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry of built-in functions,
// built on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerConditional(defaultRegistry)
		registerDatetime(defaultRegistry)
		registerMath(defaultRegistry)
		registerText(defaultRegistry)
		registerAggregate(defaultRegistry)
	})
	return defaultRegistry
}

// NewDefault returns a fresh registry preloaded with the built-ins,
// for callers that want an isolated copy to extend.
func NewDefault() *Registry {
	r := NewRegistry()
	registerConditional(r)
	registerDatetime(r)
	registerMath(r)
	registerText(r)
	registerAggregate(r)
	return r
}
