package propertyobject

import (
	"fmt"
	"slices"

	"github.com/openDAQ/openDAQ-sub004/internal/coreevent"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// AddProperty adds a local property. The object keeps a frozen copy bound
// to itself; object-typed properties get a fresh copy of the default
// object as their value.
func (o *Object) AddProperty(p *property.Property) error {
	if p == nil {
		return fmt.Errorf("%w: property", status.ErrArgumentNull)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return fmt.Errorf("%w: cannot add %q", status.ErrFrozen, p.Name())
	}
	if err := property.Validate(p); err != nil {
		return err
	}
	name := p.Name()
	if !validPropertyName(name) {
		return fmt.Errorf("%w: property name %q", status.ErrInvalidParameter, name)
	}
	if _, exists := o.findProperty(name); exists {
		return fmt.Errorf("%w: property %q", status.ErrAlreadyExists, name)
	}
	if p.IsReference() {
		for _, ref := range p.ReferenceExpression().References() {
			if o.isReferenced(ref) {
				return fmt.Errorf("%w: property %q is already referenced", status.ErrInvalidParameter, ref)
			}
		}
	}

	bound := p.Clone().BindTo(o)
	o.syncMu.Lock()
	o.localProps[name] = bound
	o.syncMu.Unlock()
	o.localOrder = append(o.localOrder, name)

	if def, ok := bound.RawDefault().(*Object); ok && def != nil {
		o.adoptChild(name, def.Clone())
	}

	o.emitCoreEvent(coreevent.PropertyAdded,
		coreevent.ParamName, name,
		coreevent.ParamProperty, bound)
	return nil
}

// RemoveProperty removes a local property together with its value and
// handlers. Class properties cannot be removed.
func (o *Object) RemoveProperty(name string) error {
	if name == "" {
		return fmt.Errorf("%w: property name", status.ErrArgumentNull)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return fmt.Errorf("%w: cannot remove %q", status.ErrFrozen, name)
	}
	if _, ok := o.localProps[name]; !ok {
		if _, inClass := o.findProperty(name); inClass {
			return fmt.Errorf("%w: %q is a class property", status.ErrInvalidParameter, name)
		}
		return fmt.Errorf("%w: property %q", status.ErrNotFound, name)
	}

	o.syncMu.Lock()
	delete(o.localProps, name)
	o.syncMu.Unlock()
	o.localOrder = removeName(o.localOrder, name)
	o.customOrder = removeName(o.customOrder, name)
	if old, ok := o.values[name]; ok {
		releaseChild(old)
		o.deleteValue(name)
	}
	delete(o.writeEvents, name)
	delete(o.readEvents, name)

	o.emitCoreEvent(coreevent.PropertyRemoved, coreevent.ParamName, name)
	return nil
}

// SetPropertyOrder sets the display order. Listed names come first; the
// rest keep their declaration order. Unknown names are ignored.
func (o *Object) SetPropertyOrder(names []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.frozen {
		return fmt.Errorf("%w: cannot reorder properties", status.ErrFrozen)
	}
	o.customOrder = slices.Clone(names)

	order := make(value.List, len(names))
	for i, n := range names {
		order[i] = n
	}
	o.emitCoreEvent(coreevent.PropertyOrderChanged, coreevent.ParamOrder, order)
	return nil
}

// OnPropertyValueWrite returns the write event of property name.
func (o *Object) OnPropertyValueWrite(name string) (*Event[*PropertyValueEventArgs], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.propertyEvent(o.writeEvents, name)
}

// OnPropertyValueRead returns the read event of property name.
func (o *Object) OnPropertyValueRead(name string) (*Event[*PropertyValueEventArgs], error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.propertyEvent(o.readEvents, name)
}

func (o *Object) propertyEvent(events map[string]*Event[*PropertyValueEventArgs], name string) (*Event[*PropertyValueEventArgs], error) {
	if _, ok := o.findProperty(name); !ok {
		return nil, fmt.Errorf("%w: property %q", status.ErrNotFound, name)
	}
	ev, ok := events[name]
	if !ok {
		ev = newEvent[*PropertyValueEventArgs]()
		events[name] = ev
	}
	return ev, nil
}

// OnAnyPropertyValueWrite returns the event raised for writes to any
// property.
func (o *Object) OnAnyPropertyValueWrite() *Event[*PropertyValueEventArgs] { return o.anyWrite }

// OnAnyPropertyValueRead returns the event raised for reads of any
// property.
func (o *Object) OnAnyPropertyValueRead() *Event[*PropertyValueEventArgs] { return o.anyRead }

// OnEndUpdate returns the event raised when a transaction ends.
func (o *Object) OnEndUpdate() *Event[*EndUpdateEventArgs] { return o.endUpdate }
