package property

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Option configures a descriptor under construction.
type Option func(*Property)

// WithDefault sets the default value.
func WithDefault(v any) Option {
	return func(p *Property) { p.defaultValue = value.Normalize(v) }
}

// WithReadOnly marks the property read-only for unprotected writers.
func WithReadOnly(readOnly bool) Option {
	return func(p *Property) { p.readOnly = readOnly }
}

// WithVisible sets visibility. Properties are visible by default.
func WithVisible(visible bool) Option {
	return func(p *Property) { p.visible = visible }
}

// WithMin sets the lower bound: a number or an *eval.Value.
func WithMin(v any) Option {
	return func(p *Property) { p.minValue = value.Normalize(v) }
}

// WithMax sets the upper bound: a number or an *eval.Value.
func WithMax(v any) Option {
	return func(p *Property) { p.maxValue = value.Normalize(v) }
}

// WithSelectionValues sets the list or dictionary an integer property
// indexes into.
func WithSelectionValues(v any) Option {
	return func(p *Property) { p.selectionValues = value.Normalize(v) }
}

// WithSuggestedValues sets values offered to users without restricting
// input.
func WithSuggestedValues(items ...any) Option {
	return func(p *Property) { p.suggestedValues = value.NewList(items...) }
}

// WithItemType constrains list elements and dict values.
func WithItemType(t value.CoreType) Option {
	return func(p *Property) { p.itemType = t }
}

// WithKeyType constrains dict keys.
func WithKeyType(t value.CoreType) Option {
	return func(p *Property) { p.keyType = t }
}

// WithDescription sets the description.
func WithDescription(s string) Option {
	return func(p *Property) { p.description = s }
}

// WithUnit sets the unit symbol.
func WithUnit(s string) Option {
	return func(p *Property) { p.unit = s }
}

// WithCoercer installs a coercer.
func WithCoercer(c Coercer) Option {
	return func(p *Property) { p.coercer = c }
}

// WithValidator installs a validator.
func WithValidator(v Validator) Option {
	return func(p *Property) { p.validator = v }
}

// WithReference turns the property into an indirection evaluated by expr,
// which must yield a %Name reference.
func WithReference(expr *eval.Value) Option {
	return func(p *Property) { p.ref = expr }
}

// New builds a descriptor and checks that its default value matches the
// declared type.
func New(name string, valueType value.CoreType, opts ...Option) (*Property, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}
	p := newProperty(name, valueType, opts...)
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

func newProperty(name string, valueType value.CoreType, opts ...Option) *Property {
	p := &Property{
		name:      name,
		valueType: valueType,
		itemType:  value.CTUndefined,
		keyType:   value.CTUndefined,
		visible:   true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Property) check() error {
	if !p.valueType.IsValid() {
		return fmt.Errorf("%w: property %q has invalid type %d", status.ErrInvalidParameter, p.name, int(p.valueType))
	}
	if p.ref != nil {
		return nil
	}
	def := p.defaultValue
	if def == nil {
		return nil
	}
	if _, ok := def.(*eval.Value); ok {
		return nil
	}
	if p.valueType == value.CTObject {
		if value.CoreTypeOf(def) != value.CTObject {
			return fmt.Errorf("%w: object property %q has %T default", status.ErrInvalidType, p.name, def)
		}
		return nil
	}
	converted, err := value.Convert(def, p.valueType)
	if err != nil {
		return fmt.Errorf("property %q default: %w", p.name, err)
	}
	p.defaultValue = converted
	switch d := converted.(type) {
	case value.List:
		if !d.ItemTypes(p.itemType) {
			return fmt.Errorf("%w: property %q default has items outside %s", status.ErrInvalidType, p.name, p.itemType)
		}
	case *value.Dict:
		if !d.Types(p.keyType, p.itemType) {
			return fmt.Errorf("%w: property %q default has entries outside %s:%s", status.ErrInvalidType, p.name, p.keyType, p.itemType)
		}
	}
	return nil
}

// Bool declares a boolean property.
func Bool(name string, def bool, opts ...Option) *Property {
	return newProperty(name, value.CTBool, append([]Option{WithDefault(def)}, opts...)...)
}

// Int declares an integer property.
func Int(name string, def int64, opts ...Option) *Property {
	return newProperty(name, value.CTInt, append([]Option{WithDefault(def)}, opts...)...)
}

// Float declares a floating point property.
func Float(name string, def float64, opts ...Option) *Property {
	return newProperty(name, value.CTFloat, append([]Option{WithDefault(def)}, opts...)...)
}

// String declares a string property.
func String(name, def string, opts ...Option) *Property {
	return newProperty(name, value.CTString, append([]Option{WithDefault(def)}, opts...)...)
}

// Ratio declares a ratio property.
func Ratio(name string, def value.Ratio, opts ...Option) *Property {
	return newProperty(name, value.CTRatio, append([]Option{WithDefault(def)}, opts...)...)
}

// List declares a list property whose elements have itemType.
func List(name string, itemType value.CoreType, def value.List, opts ...Option) *Property {
	if def == nil {
		def = value.List{}
	}
	return newProperty(name, value.CTList, append([]Option{WithDefault(def), WithItemType(itemType)}, opts...)...)
}

// Dict declares a dictionary property.
func Dict(name string, keyType, itemType value.CoreType, def *value.Dict, opts ...Option) *Property {
	if def == nil {
		def = value.NewDict()
	}
	return newProperty(name, value.CTDict,
		append([]Option{WithDefault(def), WithKeyType(keyType), WithItemType(itemType)}, opts...)...)
}

// Selection declares an integer property indexing into values (a list or
// a dictionary with integer keys).
func Selection(name string, values any, def int64, opts ...Option) *Property {
	return newProperty(name, value.CTInt,
		append([]Option{WithDefault(def), WithSelectionValues(values)}, opts...)...)
}

// Struct declares a struct property of the default's struct type.
func Struct(name string, def *value.Struct, opts ...Option) *Property {
	return newProperty(name, value.CTStruct, append([]Option{WithDefault(def)}, opts...)...)
}

// Enumeration declares an enumeration property of the default's
// enumeration type.
func Enumeration(name string, def value.Enumeration, opts ...Option) *Property {
	return newProperty(name, value.CTEnumeration, append([]Option{WithDefault(def)}, opts...)...)
}

// Object declares a nested property object. def is the template each
// owning instance clones at construction.
func Object(name string, def value.Typed, opts ...Option) *Property {
	return newProperty(name, value.CTObject, append([]Option{WithDefault(def)}, opts...)...)
}

// Reference declares a property that operates on the property named by
// expr.
func Reference(name string, expr *eval.Value, opts ...Option) *Property {
	return newProperty(name, value.CTUndefined, append([]Option{WithReference(expr)}, opts...)...)
}

// Function declares a callable property.
func Function(name string, opts ...Option) *Property {
	return newProperty(name, value.CTFunc, opts...)
}

// Procedure declares a callable property without a result.
func Procedure(name string, opts ...Option) *Property {
	return newProperty(name, value.CTProc, opts...)
}

// Validate runs the constructor checks on a descriptor built with one of
// the typed constructors.
func Validate(p *Property) error {
	if p == nil {
		return fmt.Errorf("%w: property", status.ErrArgumentNull)
	}
	if p.name == "" {
		return fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}
	return p.check()
}
