package serialization

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// TypeResolver looks up registered struct and enumeration types.
type TypeResolver interface {
	StructType(name string) (*value.StructType, error)
	EnumerationType(name string) (*value.EnumerationType, error)
}

// Factory builds a value from a tagged object.
type Factory func(d *Decoder, so *SerializedObject) (any, error)

// Decoder turns raw trees into runtime values. Built-in tags are handled
// directly; further tags dispatch to registered factories.
type Decoder struct {
	types TypeResolver
	user  any

	mu        sync.RWMutex
	factories map[string]Factory
}

// NewDecoder returns a decoder resolving types through types (may be nil).
func NewDecoder(types TypeResolver) *Decoder {
	return &Decoder{types: types, factories: make(map[string]Factory)}
}

// Register installs a factory for a "__type" tag.
func (d *Decoder) Register(tag string, f Factory) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.factories[tag] = f
}

// WithUser returns a copy of the decoder carrying user as context for
// factories.
func (d *Decoder) WithUser(user any) *Decoder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	cpy := &Decoder{types: d.types, user: user, factories: make(map[string]Factory, len(d.factories))}
	for k, v := range d.factories {
		cpy.factories[k] = v
	}
	return cpy
}

// User returns the user context.
func (d *Decoder) User() any { return d.user }

// Types returns the type resolver.
func (d *Decoder) Types() TypeResolver { return d.types }

// Decode parses data and decodes the result.
func (d *Decoder) Decode(data []byte) (any, error) {
	raw, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return d.DecodeValue(raw)
}

// DecodeValue converts a raw tree into a runtime value. Untagged objects
// become string-keyed dictionaries.
func (d *Decoder) DecodeValue(raw any) (any, error) {
	switch x := raw.(type) {
	case nil, bool, string:
		return x, nil
	case json.Number:
		return decodeNumber(x)
	case []any:
		list := make(value.List, len(x))
		for i, item := range x {
			v, err := d.DecodeValue(item)
			if err != nil {
				return nil, err
			}
			list[i] = v
		}
		return list, nil
	case *SerializedObject:
		return d.decodeObject(x)
	}
	return nil, fmt.Errorf("%w: unexpected %T", ErrMalformed, raw)
}

// DecodeKey decodes a member of so.
func (d *Decoder) DecodeKey(so *SerializedObject, key string) (any, error) {
	raw, ok := so.Raw(key)
	if !ok {
		return nil, fmt.Errorf("%w: key %q", status.ErrNotFound, key)
	}
	return d.DecodeValue(raw)
}

func (d *Decoder) decodeObject(so *SerializedObject) (any, error) {
	switch tag := so.Type(); tag {
	case "":
		dict := value.NewDict()
		for _, k := range so.Keys() {
			v, err := d.DecodeKey(so, k)
			if err != nil {
				return nil, err
			}
			if err := dict.Set(k, v); err != nil {
				return nil, err
			}
		}
		return dict, nil
	case TagDict:
		return d.decodeDict(so)
	case TagStruct:
		return d.decodeStruct(so)
	case TagEnumeration:
		return d.decodeEnumeration(so)
	case TagRatio:
		num, err := so.ReadInt("num")
		if err != nil {
			return nil, err
		}
		den := so.OptInt("den", 1)
		return value.NewRatio(num, den)
	case TagEvalValue:
		expr, err := so.ReadString("eval")
		if err != nil {
			return nil, err
		}
		return eval.Parse(expr)
	default:
		d.mu.RLock()
		f, ok := d.factories[tag]
		d.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: no factory for type %q", status.ErrNotFound, tag)
		}
		return f(d, so)
	}
}

func (d *Decoder) decodeDict(so *SerializedObject) (any, error) {
	dict := value.NewDict()
	if !so.HasKey("values") {
		return dict, nil
	}
	entries, err := so.ReadList("values")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		entry, ok := e.(*SerializedObject)
		if !ok {
			return nil, fmt.Errorf("%w: dict entry is %T", ErrMalformed, e)
		}
		k, err := d.DecodeKey(entry, "key")
		if err != nil {
			return nil, err
		}
		var v any
		if entry.HasKey("value") {
			if v, err = d.DecodeKey(entry, "value"); err != nil {
				return nil, err
			}
		}
		if err := dict.Set(k, v); err != nil {
			return nil, err
		}
	}
	return dict, nil
}

func (d *Decoder) decodeStruct(so *SerializedObject) (any, error) {
	typeName, err := so.ReadString("typeName")
	if err != nil {
		return nil, err
	}
	var names []string
	var vals []any
	if so.HasKey("fields") {
		fields, err := so.ReadObject("fields")
		if err != nil {
			return nil, err
		}
		for _, k := range fields.Keys() {
			v, err := d.DecodeKey(fields, k)
			if err != nil {
				return nil, err
			}
			names = append(names, k)
			vals = append(vals, v)
		}
	}
	if d.types != nil {
		if t, err := d.types.StructType(typeName); err == nil {
			m := make(map[string]any, len(names))
			for i, n := range names {
				// fields dropped from the type since the snapshot was taken
				if _, ok := t.Field(n); ok {
					m[n] = vals[i]
				}
			}
			return t.New(m)
		}
	}
	return value.NewStruct(typeName, names, vals), nil
}

func (d *Decoder) decodeEnumeration(so *SerializedObject) (any, error) {
	typeName, err := so.ReadString("typeName")
	if err != nil {
		return nil, err
	}
	name, err := so.ReadString("value")
	if err != nil {
		return nil, err
	}
	if d.types == nil {
		return nil, fmt.Errorf("%w: enumeration type %q (no type manager)", status.ErrNotFound, typeName)
	}
	t, err := d.types.EnumerationType(typeName)
	if err != nil {
		return nil, err
	}
	return t.Enumerate(name)
}
