package propertyobject

import (
	"fmt"
	"maps"
	"slices"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Freeze makes the object immutable. Freezing a frozen object returns
// ErrIgnored.
func (o *Object) Freeze() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return fmt.Errorf("%w: already frozen", status.ErrIgnored)
	}
	o.frozen = true
	return nil
}

// Clone returns a deep, unfrozen copy. Local properties are rebound to the
// copy, child objects are cloned and adopted, and handlers are carried
// over. The copy is a root: it has no owner, path or relay.
func (o *Object) Clone() *Object { return o.clone(false) }

// clone copies o. With keepFrozen the frozen flag of o and of every child
// is carried into the copy; used when an object value is stored.
func (o *Object) clone(keepFrozen bool) *Object {
	o.mu.Lock()
	defer o.mu.Unlock()

	c := New(WithLogger(o.logger), WithTypeManager(o.typeManager), WithHooks(o.hooks))
	c.className = o.className
	c.frozen = keepFrozen && o.frozen
	c.permissions = o.permissions.Clone()

	for _, name := range o.localOrder {
		c.localProps[name] = o.localProps[name].Clone().BindTo(c)
	}
	c.localOrder = slices.Clone(o.localOrder)
	c.customOrder = slices.Clone(o.customOrder)

	for _, name := range o.valueOrder {
		switch v := o.values[name].(type) {
		case *Object:
			c.adoptChild(name, v.clone(keepFrozen))
		default:
			c.storeValue(name, value.Clone(v))
		}
	}

	for name, ev := range o.writeEvents {
		c.writeEvents[name] = ev.clone()
	}
	for name, ev := range o.readEvents {
		c.readEvents[name] = ev.clone()
	}
	c.anyWrite = o.anyWrite.clone()
	c.anyRead = o.anyRead.clone()
	c.endUpdate = o.endUpdate.clone()
	return c
}

// CloneValue implements value.Cloneable.
func (o *Object) CloneValue() any { return o.Clone() }

// snapshot is the comparable state of an object.
type snapshot struct {
	className string
	local     []*property.Property
	values    map[string]any
}

func (o *Object) snapshot() snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := snapshot{
		className: o.className,
		values:    make(map[string]any),
	}
	for _, name := range o.localOrder {
		s.local = append(s.local, o.localProps[name])
	}
	for _, p := range o.allProperties() {
		if p.IsReference() || p.IsCallable() {
			continue
		}
		s.values[p.Name()] = o.currentValue(p)
	}
	return s
}

// EqualValue implements value.Equatable: two objects are equal when they
// share the class, local properties and effective values. Child objects
// compare recursively.
func (o *Object) EqualValue(other any) bool {
	x, ok := other.(*Object)
	if !ok || x == nil {
		return false
	}
	if x == o {
		return true
	}
	a, b := o.snapshot(), x.snapshot()
	if a.className != b.className || len(a.local) != len(b.local) {
		return false
	}
	for i := range a.local {
		if !a.local[i].Equal(b.local[i]) {
			return false
		}
	}
	return maps.EqualFunc(a.values, b.values, value.Equal)
}
