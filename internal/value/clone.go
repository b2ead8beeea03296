package value

import (
	"reflect"
	"sort"
)

// Normalize maps Go numeric kinds onto int64/float64 and generic
// containers onto List and *Dict. Other values are returned unchanged.
func Normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case []any:
		return NewList(x...)
	case []string:
		l := make(List, len(x))
		for i, s := range x {
			l[i] = s
		}
		return l
	case []int64:
		l := make(List, len(x))
		for i, n := range x {
			l[i] = n
		}
		return l
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		d := NewDict()
		for _, k := range keys {
			_ = d.Set(k, x[k])
		}
		return d
	case func(args ...any) (any, error):
		return Function(x)
	case func(args ...any) error:
		return Procedure(x)
	}
	return v
}

// Clone returns a deep copy of v. Scalars, enumerations and ratios are
// values already; containers are copied recursively; anything else is
// copied through Cloneable or returned as is.
func Clone(v any) any {
	switch x := v.(type) {
	case List:
		return x.Clone()
	case *Dict:
		return x.Clone()
	case *Struct:
		return x.Clone()
	case Cloneable:
		return x.CloneValue()
	case []any, map[string]any:
		return Clone(Normalize(x))
	}
	return v
}

// Equal reports whether a and b hold the same value. Callables never
// compare equal.
func Equal(a, b any) bool {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool, int64, float64, string:
		return a == b
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *Dict:
		y, ok := b.(*Dict)
		return ok && x.Equal(y)
	case *Struct:
		y, ok := b.(*Struct)
		return ok && x.Equal(y)
	case Enumeration:
		y, ok := b.(Enumeration)
		return ok && x.Equal(y)
	case Ratio:
		y, ok := b.(Ratio)
		return ok && x.Equal(y)
	case Function, Procedure:
		return false
	case Equatable:
		return x.EqualValue(b)
	}
	if b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
