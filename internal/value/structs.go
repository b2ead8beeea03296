package value

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// StructField describes one field of a StructType.
type StructField struct {
	Name    string
	Type    CoreType
	Default any
}

// StructType is a named record layout registered with a type manager.
type StructType struct {
	name   string
	fields []StructField
}

// NewStructType declares a struct type.
func NewStructType(name string, fields ...StructField) *StructType {
	t := &StructType{name: name, fields: make([]StructField, len(fields))}
	for i, f := range fields {
		f.Default = Normalize(f.Default)
		t.fields[i] = f
	}
	return t
}

// Name returns the struct type name.
func (t *StructType) Name() string { return t.name }

// Fields returns a copy of the field layout.
func (t *StructType) Fields() []StructField {
	return append([]StructField(nil), t.fields...)
}

// Field looks up a field by name.
func (t *StructType) Field(name string) (StructField, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}

// New builds a struct of this type. Missing fields take their declared
// defaults; unknown fields are rejected.
func (t *StructType) New(fields map[string]any) (*Struct, error) {
	for name := range fields {
		if _, ok := t.Field(name); !ok {
			return nil, fmt.Errorf("%w: struct %s has no field %q", status.ErrNotFound, t.name, name)
		}
	}
	s := &Struct{typeName: t.name, values: make(map[string]any, len(t.fields))}
	for _, f := range t.fields {
		v, ok := fields[f.Name]
		if !ok {
			v = Clone(f.Default)
		} else if v != nil && f.Type != CTUndefined {
			converted, err := Convert(v, f.Type)
			if err != nil {
				return nil, fmt.Errorf("struct %s field %q: %w", t.name, f.Name, err)
			}
			v = converted
		}
		s.names = append(s.names, f.Name)
		s.values[f.Name] = Normalize(v)
	}
	return s, nil
}

// Struct is an immutable record value.
type Struct struct {
	typeName string
	names    []string
	values   map[string]any
}

// NewStruct builds an untyped-layout struct from ordered names and values.
// Used when the struct type is not registered.
func NewStruct(typeName string, names []string, values []any) *Struct {
	s := &Struct{typeName: typeName, values: make(map[string]any, len(names))}
	for i, name := range names {
		var v any
		if i < len(values) {
			v = Normalize(values[i])
		}
		s.names = append(s.names, name)
		s.values[name] = v
	}
	return s
}

// TypeName returns the name of the struct type.
func (s *Struct) TypeName() string { return s.typeName }

// FieldNames returns the field names in declaration order.
func (s *Struct) FieldNames() []string { return append([]string(nil), s.names...) }

// Get returns a copy of a field value.
func (s *Struct) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return Clone(v), ok
}

// Clone returns a deep copy.
func (s *Struct) Clone() *Struct {
	if s == nil {
		return nil
	}
	cpy := &Struct{
		typeName: s.typeName,
		names:    append([]string(nil), s.names...),
		values:   make(map[string]any, len(s.values)),
	}
	for k, v := range s.values {
		cpy.values[k] = Clone(v)
	}
	return cpy
}

// Equal reports whether both structs have the same type and field values.
func (s *Struct) Equal(other *Struct) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.typeName != other.typeName || len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}
