package value

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// EnumerationType is a named, ordered set of enumerator names with integer
// values.
type EnumerationType struct {
	name   string
	names  []string
	values map[string]int64
}

// NewEnumerationType declares an enumeration whose values count from zero.
func NewEnumerationType(name string, names ...string) *EnumerationType {
	vals := make([]int64, len(names))
	for i := range names {
		vals[i] = int64(i)
	}
	return NewEnumerationTypeWithValues(name, names, vals)
}

// NewEnumerationTypeWithValues declares an enumeration with explicit values.
func NewEnumerationTypeWithValues(name string, names []string, values []int64) *EnumerationType {
	t := &EnumerationType{name: name, values: make(map[string]int64, len(names))}
	for i, n := range names {
		t.names = append(t.names, n)
		if i < len(values) {
			t.values[n] = values[i]
		} else {
			t.values[n] = int64(i)
		}
	}
	return t
}

// Name returns the enumeration type name.
func (t *EnumerationType) Name() string { return t.name }

// Names returns the enumerator names in declaration order.
func (t *EnumerationType) Names() []string { return append([]string(nil), t.names...) }

// Value returns the integer value of an enumerator.
func (t *EnumerationType) Value(name string) (int64, bool) {
	v, ok := t.values[name]
	return v, ok
}

// NameOf returns the enumerator with integer value v.
func (t *EnumerationType) NameOf(v int64) (string, bool) {
	for _, n := range t.names {
		if t.values[n] == v {
			return n, true
		}
	}
	return "", false
}

// Enumerate converts an enumerator name, an integer value or an
// Enumeration of the same type into an Enumeration.
func (t *EnumerationType) Enumerate(v any) (Enumeration, error) {
	switch x := Normalize(v).(type) {
	case Enumeration:
		if x.TypeName() != t.name {
			return Enumeration{}, fmt.Errorf("%w: enumeration %s is not %s", status.ErrInvalidType, x.TypeName(), t.name)
		}
		return Enumeration{typ: t, name: x.name}, nil
	case string:
		if _, ok := t.values[x]; !ok {
			return Enumeration{}, fmt.Errorf("%w: %s has no enumerator %q", status.ErrInvalidType, t.name, x)
		}
		return Enumeration{typ: t, name: x}, nil
	case int64:
		name, ok := t.NameOf(x)
		if !ok {
			return Enumeration{}, fmt.Errorf("%w: %s has no enumerator with value %d", status.ErrInvalidType, t.name, x)
		}
		return Enumeration{typ: t, name: name}, nil
	default:
		return Enumeration{}, fmt.Errorf("%w: cannot convert %T to enumeration %s", status.ErrInvalidType, v, t.name)
	}
}

// Enumeration is a member of an EnumerationType.
type Enumeration struct {
	typ  *EnumerationType
	name string
}

// MustEnumerate is Enumerate for literals; it panics on error.
func (t *EnumerationType) MustEnumerate(v any) Enumeration {
	e, err := t.Enumerate(v)
	if err != nil {
		panic(err)
	}
	return e
}

// Type returns the enumeration type.
func (e Enumeration) Type() *EnumerationType { return e.typ }

// TypeName returns the enumeration type name.
func (e Enumeration) TypeName() string {
	if e.typ == nil {
		return ""
	}
	return e.typ.name
}

// Name returns the enumerator name.
func (e Enumeration) Name() string { return e.name }

// Int returns the enumerator's integer value.
func (e Enumeration) Int() int64 {
	if e.typ == nil {
		return 0
	}
	return e.typ.values[e.name]
}

// String returns "Type.Name".
func (e Enumeration) String() string { return e.TypeName() + "." + e.name }

// Equal reports whether both enumerations name the same member of the same
// type.
func (e Enumeration) Equal(other Enumeration) bool {
	return e.TypeName() == other.TypeName() && e.name == other.name
}
