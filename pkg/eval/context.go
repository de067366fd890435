package eval

import (
	"fmt"

	"github.com/fieldline-labs/fieldline/pkg/funcs"
	"github.com/fieldline-labs/fieldline/pkg/value"
)

// Context supplies the evaluator with property reads and the function
// registry. Implemented by the host platform; the engine performs no
// I/O of its own.
type Context interface {
	// Registry returns the function registry to dispatch calls to.
	Registry() *funcs.Registry

	// Property returns the current resolved value of a property.
	// entityID is "" for the current (self) entity. A property the
	// schema declares required but that has no value must be reported
	// as a *NotFoundError; an optional missing property is null.
	Property(entityID, property string) (value.Value, error)
}

// NotFoundError reports a read of a required property, entity, or
// relationship that does not exist.
type NotFoundError struct {
	EntityID string
	Property string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("property %s not found on entity %s", e.Property, e.EntityID)
}

// MapContext is a Context over a plain map of self-properties, with no
// relationship resolution. Remote reads fail with *NotFoundError;
// missing keys are null (optional semantics).
type MapContext struct {
	Values map[string]value.Value
	Reg    *funcs.Registry
}

// Registry implements Context.
func (c *MapContext) Registry() *funcs.Registry {
	if c.Reg != nil {
		return c.Reg
	}
	return funcs.Default()
}

// Property implements Context.
func (c *MapContext) Property(entityID, property string) (value.Value, error) {
	if entityID != "" {
		return value.Null(), &NotFoundError{EntityID: entityID, Property: property}
	}
	v, ok := c.Values[property]
	if !ok {
		return value.Null(), nil
	}
	return v, nil
}
