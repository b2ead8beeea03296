package property

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// SerializeID returns the "__type" tag of descriptors.
func (p *Property) SerializeID() string { return serialization.TagProperty }

// Serialize writes the descriptor. Only non-default metadata is written,
// so snapshots stay small and readers tolerate absent keys. Coercers and
// validators are code and are not serialized.
func (p *Property) Serialize(w serialization.Writer) error {
	w.StartObject()
	w.Key(serialization.TypeKey)
	w.WriteString(serialization.TagProperty)
	w.Key("name")
	w.WriteString(p.name)
	w.Key("valueType")
	w.WriteInt(int64(p.valueType))

	if p.itemType != value.CTUndefined {
		w.Key("itemType")
		w.WriteInt(int64(p.itemType))
	}
	if p.keyType != value.CTUndefined {
		w.Key("keyType")
		w.WriteInt(int64(p.keyType))
	}
	if p.description != "" {
		w.Key("description")
		w.WriteString(p.description)
	}
	if p.unit != "" {
		w.Key("unit")
		w.WriteString(p.unit)
	}
	if p.readOnly {
		w.Key("readOnly")
		w.WriteBool(true)
	}
	if !p.visible {
		w.Key("visible")
		w.WriteBool(false)
	}

	optional := []struct {
		key string
		v   any
	}{
		{"defaultValue", p.defaultValue},
		{"minValue", p.minValue},
		{"maxValue", p.maxValue},
		{"selectionValues", p.selectionValues},
	}
	for _, o := range optional {
		if o.v == nil || !serialization.IsSerializable(o.v) {
			continue
		}
		w.Key(o.key)
		if err := serialization.WriteValue(w, o.v); err != nil {
			return fmt.Errorf("property %q %s: %w", p.name, o.key, err)
		}
	}
	if len(p.suggestedValues) > 0 {
		w.Key("suggestedValues")
		if err := serialization.WriteValue(w, p.suggestedValues); err != nil {
			return err
		}
	}
	if p.ref != nil {
		w.Key("referencedProperty")
		if err := serialization.WriteValue(w, p.ref); err != nil {
			return err
		}
	}
	w.EndObject()
	return nil
}

// Deserialize is the decoder factory for "Property" objects.
func Deserialize(d *serialization.Decoder, so *serialization.SerializedObject) (any, error) {
	name, err := so.ReadString("name")
	if err != nil {
		return nil, err
	}
	vt := value.CoreType(so.OptInt("valueType", int64(value.CTUndefined)))

	opts := []Option{
		WithItemType(value.CoreType(so.OptInt("itemType", int64(value.CTUndefined)))),
		WithKeyType(value.CoreType(so.OptInt("keyType", int64(value.CTUndefined)))),
		WithDescription(so.OptString("description", "")),
		WithUnit(so.OptString("unit", "")),
		WithReadOnly(so.OptBool("readOnly", false)),
		WithVisible(so.OptBool("visible", true)),
	}

	decoded := map[string]func(any) Option{
		"defaultValue":    WithDefault,
		"minValue":        WithMin,
		"maxValue":        WithMax,
		"selectionValues": WithSelectionValues,
	}
	for _, key := range []string{"defaultValue", "minValue", "maxValue", "selectionValues"} {
		if !so.HasKey(key) {
			continue
		}
		v, err := d.DecodeKey(so, key)
		if err != nil {
			return nil, fmt.Errorf("property %q %s: %w", name, key, err)
		}
		opts = append(opts, decoded[key](v))
	}
	if so.HasKey("suggestedValues") {
		v, err := d.DecodeKey(so, "suggestedValues")
		if err != nil {
			return nil, err
		}
		if l, ok := v.(value.List); ok {
			opts = append(opts, WithSuggestedValues(l...))
		}
	}
	if so.HasKey("referencedProperty") {
		v, err := d.DecodeKey(so, "referencedProperty")
		if err != nil {
			return nil, err
		}
		expr, ok := v.(*eval.Value)
		if !ok {
			return nil, fmt.Errorf("%w: property %q reference is %T", status.ErrInvalidType, name, v)
		}
		opts = append(opts, WithReference(expr))
	}
	return New(name, vt, opts...)
}
