package value

// List is an ordered list of values.
type List []any

// NewList builds a list from items, normalizing Go numeric kinds.
func NewList(items ...any) List {
	l := make(List, len(items))
	for i, item := range items {
		l[i] = Normalize(item)
	}
	return l
}

// Clone returns a deep copy of the list.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	cpy := make(List, len(l))
	for i, item := range l {
		cpy[i] = Clone(item)
	}
	return cpy
}

// ItemTypes reports whether every element has core type t. CTUndefined
// accepts any element.
func (l List) ItemTypes(t CoreType) bool {
	if t == CTUndefined {
		return true
	}
	for _, item := range l {
		if CoreTypeOf(item) != t {
			return false
		}
	}
	return true
}

// Contains reports whether any element equals v.
func (l List) Contains(v any) bool {
	for _, item := range l {
		if Equal(item, v) {
			return true
		}
	}
	return false
}
