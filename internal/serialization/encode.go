package serialization

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// WriteValue writes any runtime value. Callables cannot be serialized.
func WriteValue(w Writer, v any) error {
	switch x := value.Normalize(v).(type) {
	case nil:
		w.WriteNull()
	case bool:
		w.WriteBool(x)
	case int64:
		w.WriteInt(x)
	case float64:
		w.WriteFloat(x)
	case string:
		w.WriteString(x)
	case value.List:
		w.StartList()
		for _, item := range x {
			if err := WriteValue(w, item); err != nil {
				return err
			}
		}
		w.EndList()
	case *value.Dict:
		return writeDict(w, x)
	case *value.Struct:
		return writeStruct(w, x)
	case value.Enumeration:
		w.StartObject()
		w.Key(TypeKey)
		w.WriteString(TagEnumeration)
		w.Key("typeName")
		w.WriteString(x.TypeName())
		w.Key("value")
		w.WriteString(x.Name())
		w.EndObject()
	case value.Ratio:
		w.StartObject()
		w.Key(TypeKey)
		w.WriteString(TagRatio)
		w.Key("num")
		w.WriteInt(x.Num)
		w.Key("den")
		w.WriteInt(x.Den)
		w.EndObject()
	case *eval.Value:
		w.StartObject()
		w.Key(TypeKey)
		w.WriteString(TagEvalValue)
		w.Key("eval")
		w.WriteString(x.Expression())
		w.EndObject()
	case Serializable:
		return x.Serialize(w)
	default:
		return fmt.Errorf("%w: %T is not serializable", status.ErrNoInterface, v)
	}
	return nil
}

// IsSerializable reports whether WriteValue can encode v.
func IsSerializable(v any) bool {
	switch value.Normalize(v).(type) {
	case value.Function, value.Procedure:
		return false
	}
	return true
}

func writeDict(w Writer, d *value.Dict) error {
	w.StartObject()
	w.Key(TypeKey)
	w.WriteString(TagDict)
	w.Key("values")
	w.StartList()
	var err error
	d.Range(func(k, v any) bool {
		w.StartObject()
		w.Key("key")
		if err = WriteValue(w, k); err != nil {
			return false
		}
		w.Key("value")
		if err = WriteValue(w, v); err != nil {
			return false
		}
		w.EndObject()
		return true
	})
	if err != nil {
		return err
	}
	w.EndList()
	w.EndObject()
	return nil
}

func writeStruct(w Writer, s *value.Struct) error {
	w.StartObject()
	w.Key(TypeKey)
	w.WriteString(TagStruct)
	w.Key("typeName")
	w.WriteString(s.TypeName())
	w.Key("fields")
	w.StartObject()
	for _, name := range s.FieldNames() {
		v, _ := s.Get(name)
		w.Key(name)
		if err := WriteValue(w, v); err != nil {
			return err
		}
	}
	w.EndObject()
	w.EndObject()
	return nil
}

// Marshal serializes v into a JSON document.
func Marshal(v any, user any) ([]byte, error) {
	w := NewJSONWriter(user)
	if err := WriteValue(w, v); err != nil {
		return nil, err
	}
	return w.Bytes()
}
