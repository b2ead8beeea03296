package propertyobject

import (
	"fmt"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// DecodeValue decodes a JSON value written by a remote client for the
// property name. Plain JSON maps onto the runtime types (numbers to int or
// float, arrays to lists, objects to dictionaries) and tagged values decode
// as in a snapshot. An untagged object written to a struct property is
// built as that struct type, so clients can send {"low": 1, "high": 2}.
//
// The result is passed to SetPropertyValue, which converts and checks it.
func (o *Object) DecodeValue(name string, data []byte) (any, error) {
	p, err := o.GetProperty(name)
	if err != nil {
		return nil, err
	}
	v, err := NewDecoder(o.typeManager).Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", status.ErrInvalidParameter, err)
	}

	d, ok := v.(*value.Dict)
	if !ok || strings.Contains(name, "[") {
		return v, nil
	}
	structName := p.StructTypeName()
	if p.ValueType() != value.CTStruct || structName == "" || o.typeManager == nil {
		return v, nil
	}
	st, err := o.typeManager.StructType(structName)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any, d.Len())
	var bad error
	d.Range(func(k, fv any) bool {
		key, isString := k.(string)
		if !isString {
			bad = fmt.Errorf("%w: struct field names must be strings", status.ErrInvalidParameter)
			return false
		}
		fields[key] = fv
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return st.New(fields)
}
