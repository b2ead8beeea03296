package propertyobject

import (
	"errors"
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/permission"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Snapshot keys.
const (
	keyClassName  = "className"
	keyFrozen     = "frozen"
	keyPropValues = "propValues"
	keyProperties = "properties"
)

// SerializeID implements serialization.Serializable.
func (o *Object) SerializeID() string { return serialization.TagPropertyObject }

// Serialize writes the object snapshot: class name, frozen flag, the
// overridden values the writer's user may read, and the local properties.
// The user travels as the writer's context; nil means full access.
func (o *Object) Serialize(w serialization.Writer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	user := userOf(w.User())

	w.StartObject()
	w.Key(serialization.TypeKey)
	w.WriteString(serialization.TagPropertyObject)
	if o.className != "" {
		w.Key(keyClassName)
		w.WriteString(o.className)
	}
	if o.frozen {
		w.Key(keyFrozen)
		w.WriteBool(true)
	}
	if o.hooks.SerializeCustomValues != nil {
		if err := o.hooks.SerializeCustomValues(o, w); err != nil {
			return err
		}
	}

	names := o.serializedValueNames(user)
	if len(names) > 0 {
		w.Key(keyPropValues)
		w.StartObject()
		for _, name := range names {
			w.Key(name)
			if err := serialization.WriteValue(w, o.values[name]); err != nil {
				return fmt.Errorf("serializing %q: %w", o.qualify(name), err)
			}
		}
		w.EndObject()
	}

	var local []*property.Property
	for _, name := range o.localOrder {
		p := o.localProps[name]
		if c, ok := p.RawDefault().(*Object); ok && !c.permissions.IsAuthorized(user, permission.Read) {
			continue
		}
		local = append(local, p)
	}
	if len(local) > 0 {
		w.Key(keyProperties)
		w.StartList()
		for _, p := range local {
			if err := p.Serialize(w); err != nil {
				return err
			}
		}
		w.EndList()
	}

	w.EndObject()
	return nil
}

// serializedValueNames lists overridden values in display order, skipping
// what user may not read and what cannot be serialized. Caller holds o.mu.
func (o *Object) serializedValueNames(user *permission.User) []string {
	ordered := make([]string, 0, len(o.values))
	seen := make(map[string]bool, len(o.values))
	for _, name := range append(append([]string(nil), o.customOrder...), o.valueOrder...) {
		if _, ok := o.values[name]; ok && !seen[name] {
			seen[name] = true
			ordered = append(ordered, name)
		}
	}

	readable := o.permissions.IsAuthorized(user, permission.Read)
	out := ordered[:0]
	for _, name := range ordered {
		v := o.values[name]
		if c, ok := v.(*Object); ok {
			if !c.permissions.IsAuthorized(user, permission.Read) {
				continue
			}
		} else if !readable || !serialization.IsSerializable(v) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func userOf(ctx any) *permission.User {
	u, _ := ctx.(*permission.User)
	return u
}

// Marshal serializes o for user. A nil user sees everything.
func Marshal(o *Object, user *permission.User) ([]byte, error) {
	return serialization.Marshal(o, user)
}

// Factory creates the object a snapshot is applied to.
type Factory func(className string) (*Object, error)

// DefaultFactory creates classless objects with New and class instances
// with NewWithClass, passing opts to both.
func DefaultFactory(tm *schema.TypeManager, opts ...Option) Factory {
	return func(className string) (*Object, error) {
		if className == "" {
			return New(append(opts, WithTypeManager(tm))...), nil
		}
		return NewWithClass(tm, className, opts...)
	}
}

// NewDecoder returns a decoder that understands property descriptors and
// property objects, resolving classes, structs and enumerations through
// tm (which may be nil).
func NewDecoder(tm *schema.TypeManager, opts ...Option) *serialization.Decoder {
	var d *serialization.Decoder
	if tm != nil {
		d = serialization.NewDecoder(tm)
	} else {
		d = serialization.NewDecoder(nil)
	}
	Register(d, DefaultFactory(tm, opts...))
	return d
}

// Register installs the property and property object factories on d.
func Register(d *serialization.Decoder, factory Factory) {
	d.Register(serialization.TagProperty, property.Deserialize)
	d.Register(serialization.TagPropertyObject, func(d *serialization.Decoder, so *serialization.SerializedObject) (any, error) {
		return Deserialize(d, so, factory)
	})
}

// Unmarshal decodes a property object snapshot.
func Unmarshal(d *serialization.Decoder, data []byte) (*Object, error) {
	v, err := d.Decode(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("%w: snapshot holds %T, not a property object", status.ErrInvalidType, v)
	}
	return o, nil
}

// Deserialize builds an object from a snapshot: factory creates the
// instance, local properties missing from it are added, and values are
// applied through the protected setter. Keys the snapshot omits keep their
// defaults; values of properties the instance does not know are skipped.
func Deserialize(d *serialization.Decoder, so *serialization.SerializedObject, factory Factory) (*Object, error) {
	o, err := factory(so.OptString(keyClassName, ""))
	if err != nil {
		return nil, err
	}
	if o.hooks.DeserializeCustomValues != nil {
		if err := o.hooks.DeserializeCustomValues(o, d, so); err != nil {
			return nil, err
		}
	}

	if so.HasKey(keyProperties) {
		items, err := so.ReadList(keyProperties)
		if err != nil {
			return nil, err
		}
		for _, raw := range items {
			v, err := d.DecodeValue(raw)
			if err != nil {
				return nil, err
			}
			p, ok := v.(*property.Property)
			if !ok {
				return nil, fmt.Errorf("%w: properties entry is %T", status.ErrInvalidType, v)
			}
			if o.HasProperty(p.Name()) {
				continue
			}
			if err := o.AddProperty(p); err != nil {
				return nil, err
			}
		}
	}

	if so.HasKey(keyPropValues) {
		values, err := so.ReadObject(keyPropValues)
		if err != nil {
			return nil, err
		}
		for _, name := range values.Keys() {
			v, err := d.DecodeKey(values, name)
			if err != nil {
				return nil, fmt.Errorf("decoding %q: %w", name, err)
			}
			err = o.SetProtectedPropertyValue(name, v)
			switch {
			case err == nil, errors.Is(err, status.ErrIgnored):
			case errors.Is(err, status.ErrNotFound):
				o.logger.Debug("skipping value of unknown property", "property", name)
			default:
				return nil, fmt.Errorf("applying %q: %w", name, err)
			}
		}
	}

	if so.OptBool(keyFrozen, false) {
		_ = o.Freeze()
	}
	return o, nil
}

// Update applies a snapshot to an existing object inside one transaction.
// Properties the snapshot lists get its value, child objects update
// recursively and properties it omits are cleared. The first hard failure
// stops the update.
func (o *Object) Update(d *serialization.Decoder, so *serialization.SerializedObject) error {
	if so == nil {
		return fmt.Errorf("%w: snapshot", status.ErrArgumentNull)
	}
	if o.IsFrozen() {
		return fmt.Errorf("%w: cannot update", status.ErrFrozen)
	}

	o.BeginUpdate()
	err := o.applySnapshot(d, so)
	endErr := o.EndUpdate()
	if err != nil {
		return err
	}
	return endErr
}

func (o *Object) applySnapshot(d *serialization.Decoder, so *serialization.SerializedObject) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	values := &serialization.SerializedObject{}
	if so.HasKey(keyPropValues) {
		var err error
		if values, err = so.ReadObject(keyPropValues); err != nil {
			return err
		}
	}

	for _, p := range o.allProperties() {
		if p.IsReference() || p.IsCallable() || !p.Visible() {
			continue
		}
		name := p.Name()
		raw, ok := values.Raw(name)
		if !ok {
			if err := o.clearValue(name, writeMode{protected: true, batch: true}); !status.IsSuccess(err) {
				return fmt.Errorf("clearing %q: %w", name, err)
			}
			continue
		}

		if child, isChild := o.values[name].(*Object); isChild && p.ValueType() == value.CTObject {
			if childSo, isSo := raw.(*serialization.SerializedObject); isSo && childSo.Type() == serialization.TagPropertyObject {
				if err := child.Update(d, childSo); err != nil {
					return fmt.Errorf("updating %q: %w", name, err)
				}
				continue
			}
		}

		v, err := d.DecodeValue(raw)
		if err != nil {
			return fmt.Errorf("decoding %q: %w", name, err)
		}
		if err := o.setValue(name, v, writeMode{protected: true, batch: true}); !status.IsSuccess(err) {
			return fmt.Errorf("applying %q: %w", name, err)
		}
	}
	return nil
}
