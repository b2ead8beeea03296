// Package property defines property descriptors: the immutable metadata
// that names, types and constrains one property of a property object.
//
// A descriptor is built once with New or one of the typed constructors and
// never changes afterwards. When a property object takes ownership of a
// descriptor it binds a frozen copy to itself (BindTo), so min/max and
// selection values written as expressions evaluate against that owner.
package property

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Owner is the property object a bound descriptor evaluates against.
type Owner interface {
	PropertyValue(name string) (any, error)
}

// Coercer adjusts a value before validation.
type Coercer interface {
	Coerce(owner Owner, v any) (any, error)
}

// CoercerFunc adapts a function to Coercer.
type CoercerFunc func(owner Owner, v any) (any, error)

// Coerce calls f.
func (f CoercerFunc) Coerce(owner Owner, v any) (any, error) { return f(owner, v) }

// Validator rejects values that are not acceptable.
type Validator interface {
	Validate(owner Owner, v any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(owner Owner, v any) error

// Validate calls f.
func (f ValidatorFunc) Validate(owner Owner, v any) error { return f(owner, v) }

// Property is a property descriptor.
type Property struct {
	name            string
	valueType       value.CoreType
	itemType        value.CoreType
	keyType         value.CoreType
	defaultValue    any
	readOnly        bool
	visible         bool
	minValue        any
	maxValue        any
	selectionValues any
	suggestedValues value.List
	description     string
	unit            string
	coercer         Coercer
	validator       Validator
	ref             *eval.Value

	owner  Owner
	frozen bool
}

// Name returns the property name.
func (p *Property) Name() string { return p.name }

// ValueType returns the declared core type of the value.
func (p *Property) ValueType() value.CoreType { return p.valueType }

// ItemType returns the element type of list and dict properties.
func (p *Property) ItemType() value.CoreType { return p.itemType }

// KeyType returns the key type of dict properties.
func (p *Property) KeyType() value.CoreType { return p.keyType }

// DefaultValue returns a deep copy of the default value.
func (p *Property) DefaultValue() any { return value.Clone(p.defaultValue) }

// RawDefault returns the default value without copying it. Callers must
// not mutate the result.
func (p *Property) RawDefault() any { return p.defaultValue }

// ReadOnly reports whether unprotected writes are rejected.
func (p *Property) ReadOnly() bool { return p.readOnly }

// Visible reports whether the property is listed among visible properties.
func (p *Property) Visible() bool { return p.visible }

// Description returns the free-text description.
func (p *Property) Description() string { return p.description }

// Unit returns the unit symbol.
func (p *Property) Unit() string { return p.unit }

// Coercer returns the coercer, if any.
func (p *Property) Coercer() Coercer { return p.coercer }

// Validator returns the validator, if any.
func (p *Property) Validator() Validator { return p.validator }

// SuggestedValues returns a copy of the suggested values.
func (p *Property) SuggestedValues() value.List { return p.suggestedValues.Clone() }

// Owner returns the property object the descriptor is bound to.
func (p *Property) Owner() Owner { return p.owner }

// IsFrozen reports whether the descriptor is bound to an owner.
func (p *Property) IsFrozen() bool { return p.frozen }

// IsReference reports whether the property is an indirection to another.
func (p *Property) IsReference() bool { return p.ref != nil }

// ReferenceExpression returns the expression naming the referenced
// property.
func (p *Property) ReferenceExpression() *eval.Value { return p.ref }

// IsSelection reports whether the property indexes into selection values.
func (p *Property) IsSelection() bool { return p.selectionValues != nil }

// IsCallable reports whether the property holds a function or procedure.
func (p *Property) IsCallable() bool {
	return p.valueType == value.CTFunc || p.valueType == value.CTProc
}

func (p *Property) evaluate(v any) (any, error) {
	e, ok := v.(*eval.Value)
	if !ok {
		return value.Clone(v), nil
	}
	if p.owner == nil {
		return nil, fmt.Errorf("%w: property %q is not bound", status.ErrInvalidState, p.name)
	}
	return e.Eval(p.owner)
}

// MinValue returns the lower bound, evaluated against the owner when it is
// an expression. Nil means unbounded.
func (p *Property) MinValue() (any, error) { return p.evaluate(p.minValue) }

// MaxValue returns the upper bound. Nil means unbounded.
func (p *Property) MaxValue() (any, error) { return p.evaluate(p.maxValue) }

// SelectionValues returns the selection list or dictionary, evaluated
// against the owner when it is an expression.
func (p *Property) SelectionValues() (any, error) { return p.evaluate(p.selectionValues) }

// RawMinValue returns the unevaluated lower bound.
func (p *Property) RawMinValue() any { return p.minValue }

// RawMaxValue returns the unevaluated upper bound.
func (p *Property) RawMaxValue() any { return p.maxValue }

// RawSelectionValues returns the unevaluated selection values.
func (p *Property) RawSelectionValues() any { return p.selectionValues }

// ReferencedName evaluates the reference expression and returns the name
// of the property it points at.
func (p *Property) ReferencedName() (string, error) {
	if p.ref == nil {
		return "", fmt.Errorf("%w: property %q is not a reference", status.ErrInvalidType, p.name)
	}
	res, err := p.ref.Eval(p.owner)
	if err != nil {
		return "", err
	}
	ref, ok := res.(eval.Reference)
	if !ok {
		return "", fmt.Errorf("%w: reference %q evaluated to %T", status.ErrInvalidType, p.ref.Expression(), res)
	}
	return ref.Name, nil
}

// StructTypeName returns the struct type of struct-typed properties.
func (p *Property) StructTypeName() string {
	if s, ok := p.defaultValue.(*value.Struct); ok {
		return s.TypeName()
	}
	return ""
}

// EnumerationType returns the enumeration type of enumeration-typed
// properties.
func (p *Property) EnumerationType() *value.EnumerationType {
	if e, ok := p.defaultValue.(value.Enumeration); ok {
		return e.Type()
	}
	return nil
}

// Clone returns an unbound, unfrozen copy. Object-typed defaults are
// deep-copied.
func (p *Property) Clone() *Property {
	cpy := *p
	cpy.defaultValue = value.Clone(p.defaultValue)
	cpy.suggestedValues = p.suggestedValues.Clone()
	cpy.owner = nil
	cpy.frozen = false
	return &cpy
}

// BindTo returns a frozen copy bound to owner. The default value is shared
// with p; descriptors never mutate it.
func (p *Property) BindTo(owner Owner) *Property {
	cpy := *p
	cpy.owner = owner
	cpy.frozen = true
	return &cpy
}

// Equal reports whether two descriptors declare the same metadata.
// Callbacks are compared by presence only.
func (p *Property) Equal(other *Property) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.name == other.name &&
		p.valueType == other.valueType &&
		p.itemType == other.itemType &&
		p.keyType == other.keyType &&
		p.readOnly == other.readOnly &&
		p.visible == other.visible &&
		p.description == other.description &&
		p.unit == other.unit &&
		value.Equal(p.defaultValue, other.defaultValue) &&
		value.Equal(p.minValue, other.minValue) &&
		value.Equal(p.maxValue, other.maxValue) &&
		value.Equal(p.selectionValues, other.selectionValues) &&
		value.Equal(p.suggestedValues, other.suggestedValues) &&
		refExpression(p.ref) == refExpression(other.ref) &&
		(p.coercer == nil) == (other.coercer == nil) &&
		(p.validator == nil) == (other.validator == nil)
}

func refExpression(e *eval.Value) string {
	if e == nil {
		return ""
	}
	return e.Expression()
}

// String returns "name (type)".
func (p *Property) String() string {
	return fmt.Sprintf("%s (%s)", p.name, p.valueType)
}
