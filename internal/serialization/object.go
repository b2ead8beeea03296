package serialization

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// ErrMalformed is returned for input that is not a JSON document of the
// expected shape.
var ErrMalformed = errors.New("serialization: malformed input")

// SerializedObject is a parsed JSON object that remembers key order.
// Member values are nil, bool, string, json.Number, []any or
// *SerializedObject.
type SerializedObject struct {
	keys   []string
	fields map[string]any
}

// Parse reads a JSON document into its raw tree.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := readRaw(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return v, nil
}

// ParseObject reads a JSON document whose top level is an object.
func ParseObject(data []byte) (*SerializedObject, error) {
	raw, err := Parse(data)
	if err != nil {
		return nil, err
	}
	so, ok := raw.(*SerializedObject)
	if !ok {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformed)
	}
	return so, nil
}

func readRaw(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			so := &SerializedObject{fields: make(map[string]any)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("%w: object key is %T", ErrMalformed, keyTok)
				}
				val, err := readRaw(dec)
				if err != nil {
					return nil, err
				}
				so.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			return so, nil
		case '[':
			list := []any{}
			for dec.More() {
				val, err := readRaw(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			return list, nil
		}
		return nil, fmt.Errorf("%w: unexpected %v", ErrMalformed, t)
	default:
		return tok, nil
	}
}

func (o *SerializedObject) set(key string, val any) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = val
}

// Keys returns the member names in document order.
func (o *SerializedObject) Keys() []string { return append([]string(nil), o.keys...) }

// HasKey reports whether key is present (even if null).
func (o *SerializedObject) HasKey(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Type returns the "__type" tag, or "" when absent.
func (o *SerializedObject) Type() string {
	s, _ := o.fields[TypeKey].(string)
	return s
}

// Raw returns the raw member value.
func (o *SerializedObject) Raw(key string) (any, bool) {
	v, ok := o.fields[key]
	return v, ok
}

func (o *SerializedObject) missing(key string) error {
	return fmt.Errorf("%w: key %q", status.ErrNotFound, key)
}

func (o *SerializedObject) wrongType(key, want string, got any) error {
	return fmt.Errorf("%w: key %q is %T, want %s", status.ErrInvalidType, key, got, want)
}

// ReadString reads a string member.
func (o *SerializedObject) ReadString(key string) (string, error) {
	v, ok := o.fields[key]
	if !ok {
		return "", o.missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", o.wrongType(key, "string", v)
	}
	return s, nil
}

// ReadBool reads a boolean member.
func (o *SerializedObject) ReadBool(key string) (bool, error) {
	v, ok := o.fields[key]
	if !ok {
		return false, o.missing(key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, o.wrongType(key, "bool", v)
	}
	return b, nil
}

// ReadInt reads an integer member.
func (o *SerializedObject) ReadInt(key string) (int64, error) {
	v, ok := o.fields[key]
	if !ok {
		return 0, o.missing(key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, o.wrongType(key, "int", v)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, o.wrongType(key, "int", v)
	}
	return i, nil
}

// ReadFloat reads a numeric member as float.
func (o *SerializedObject) ReadFloat(key string) (float64, error) {
	v, ok := o.fields[key]
	if !ok {
		return 0, o.missing(key)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, o.wrongType(key, "float", v)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, o.wrongType(key, "float", v)
	}
	return f, nil
}

// ReadObject reads a nested object member.
func (o *SerializedObject) ReadObject(key string) (*SerializedObject, error) {
	v, ok := o.fields[key]
	if !ok {
		return nil, o.missing(key)
	}
	so, ok := v.(*SerializedObject)
	if !ok {
		return nil, o.wrongType(key, "object", v)
	}
	return so, nil
}

// ReadList reads a list member.
func (o *SerializedObject) ReadList(key string) ([]any, error) {
	v, ok := o.fields[key]
	if !ok {
		return nil, o.missing(key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, o.wrongType(key, "list", v)
	}
	return list, nil
}

// OptString reads an optional string member.
func (o *SerializedObject) OptString(key, def string) string {
	if s, err := o.ReadString(key); err == nil {
		return s
	}
	return def
}

// OptBool reads an optional boolean member.
func (o *SerializedObject) OptBool(key string, def bool) bool {
	if b, err := o.ReadBool(key); err == nil {
		return b
	}
	return def
}

// OptInt reads an optional integer member.
func (o *SerializedObject) OptInt(key string, def int64) int64 {
	if i, err := o.ReadInt(key); err == nil {
		return i
	}
	return def
}

// decodeNumber keeps integers as int64 and everything else as float64.
func decodeNumber(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: number %q", ErrMalformed, s)
	}
	return f, nil
}
