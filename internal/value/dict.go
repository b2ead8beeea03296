package value

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// Dict is a dictionary that remembers insertion order. Keys are scalar
// values (bool, int64, float64, string).
//
// Dict is not safe for concurrent mutation; property objects hand out
// copies.
type Dict struct {
	keys  []any
	items map[any]any
}

// NewDict returns an empty dictionary.
func NewDict() *Dict {
	return &Dict{items: make(map[any]any)}
}

// DictOf builds a dictionary from alternating key/value arguments.
// It panics on an odd argument count or an unsupported key, which makes it
// suitable only for literals.
func DictOf(kv ...any) *Dict {
	if len(kv)%2 != 0 {
		panic("value: DictOf needs key/value pairs")
	}
	d := NewDict()
	for i := 0; i < len(kv); i += 2 {
		if err := d.Set(kv[i], kv[i+1]); err != nil {
			panic(err)
		}
	}
	return d
}

func dictKey(key any) (any, error) {
	switch k := Normalize(key).(type) {
	case bool, int64, float64, string:
		return k, nil
	case Enumeration:
		return k.Name(), nil
	default:
		return nil, fmt.Errorf("%w: dict key of type %T", status.ErrInvalidType, key)
	}
}

// Set inserts or replaces key. Replacing keeps the original position.
func (d *Dict) Set(key, val any) error {
	k, err := dictKey(key)
	if err != nil {
		return err
	}
	if d.items == nil {
		d.items = make(map[any]any)
	}
	if _, ok := d.items[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.items[k] = Normalize(val)
	return nil
}

// Get returns the value stored under key.
func (d *Dict) Get(key any) (any, bool) {
	if d == nil {
		return nil, false
	}
	k, err := dictKey(key)
	if err != nil {
		return nil, false
	}
	v, ok := d.items[k]
	return v, ok
}

// Has reports whether key is present.
func (d *Dict) Has(key any) bool {
	_, ok := d.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key any) bool {
	if d == nil {
		return false
	}
	k, err := dictKey(key)
	if err != nil {
		return false
	}
	if _, ok := d.items[k]; !ok {
		return false
	}
	delete(d.items, k)
	for i, existing := range d.keys {
		if existing == k {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []any {
	if d == nil {
		return nil
	}
	return append([]any(nil), d.keys...)
}

// Values returns the values in key order.
func (d *Dict) Values() List {
	if d == nil {
		return nil
	}
	vals := make(List, len(d.keys))
	for i, k := range d.keys {
		vals[i] = d.items[k]
	}
	return vals
}

// Range calls fn for each entry in order until fn returns false.
func (d *Dict) Range(fn func(key, val any) bool) {
	if d == nil {
		return
	}
	for _, k := range d.keys {
		if !fn(k, d.items[k]) {
			return
		}
	}
}

// Clone returns a deep copy of the dictionary.
func (d *Dict) Clone() *Dict {
	if d == nil {
		return nil
	}
	cpy := &Dict{
		keys:  append([]any(nil), d.keys...),
		items: make(map[any]any, len(d.items)),
	}
	for k, v := range d.items {
		cpy.items[k] = Clone(v)
	}
	return cpy
}

// Equal reports whether both dictionaries hold equal entries. Order is not
// significant.
func (d *Dict) Equal(other *Dict) bool {
	if d.Len() != other.Len() {
		return false
	}
	if d == nil || other == nil {
		return d.Len() == 0 && other.Len() == 0
	}
	for k, v := range d.items {
		ov, ok := other.items[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Types reports whether every key has core type keyType and every value
// has core type itemType. CTUndefined accepts anything.
func (d *Dict) Types(keyType, itemType CoreType) bool {
	ok := true
	d.Range(func(k, v any) bool {
		if keyType != CTUndefined && CoreTypeOf(k) != keyType {
			ok = false
		}
		if itemType != CTUndefined && CoreTypeOf(v) != itemType {
			ok = false
		}
		return ok
	})
	return ok
}
