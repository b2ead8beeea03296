package propertyobject

import (
	"fmt"
	"slices"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// maxReferenceDepth bounds reference chains so a cycle fails instead of
// overflowing the stack.
const maxReferenceDepth = 32

// findProperty looks up the unbound or bound descriptor declared on o:
// local properties first, then the class chain. Caller holds o.mu.
func (o *Object) findProperty(name string) (*property.Property, bool) {
	if p, ok := o.localProps[name]; ok {
		return p, true
	}
	if o.className == "" || o.typeManager == nil {
		return nil, false
	}
	p, err := o.typeManager.ClassProperty(o.className, name)
	if err != nil {
		return nil, false
	}
	return p, true
}

// lookup returns the descriptor of name bound to o. Caller holds o.mu.
func (o *Object) lookup(name string) (*property.Property, error) {
	p, ok := o.findProperty(name)
	if !ok {
		return nil, fmt.Errorf("%w: property %q", status.ErrNotFound, name)
	}
	if p.Owner() == property.Owner(o) {
		return p, nil
	}
	return p.BindTo(o), nil
}

// referenceTarget follows one reference hop and returns the target name.
func referenceTarget(p *property.Property, depth int) (string, error) {
	if depth >= maxReferenceDepth {
		return "", fmt.Errorf("%w: reference chain through %q is too deep", status.ErrInvalidState, p.Name())
	}
	return p.ReferencedName()
}

// childObject returns the object held by property name. Caller holds o.mu.
func (o *Object) childObject(name string, depth int) (*Object, error) {
	p, err := o.lookup(name)
	if err != nil {
		return nil, err
	}
	if p.IsReference() {
		target, err := referenceTarget(p, depth)
		if err != nil {
			return nil, err
		}
		pp, err := parsePath(target)
		if err != nil {
			return nil, err
		}
		if pp.rest != "" {
			owner, err := o.childObject(pp.head, depth+1)
			if err != nil {
				return nil, err
			}
			owner.mu.Lock()
			defer owner.mu.Unlock()
			return owner.childObject(pp.rest, depth+1)
		}
		return o.childObject(pp.head, depth+1)
	}
	c, ok := o.currentValue(p).(*Object)
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: property %q does not hold an object", status.ErrInvalidType, name)
	}
	return c, nil
}

// currentValue returns the override or the default, uncopied. Caller
// holds o.mu.
func (o *Object) currentValue(p *property.Property) any {
	if v, ok := o.values[p.Name()]; ok {
		return v
	}
	return p.RawDefault()
}

// isReferenced reports whether a reference property of o points at name.
func (o *Object) isReferenced(name string) bool {
	for _, p := range o.allProperties() {
		if !p.IsReference() {
			continue
		}
		if slices.Contains(p.ReferenceExpression().References(), name) {
			return true
		}
	}
	return false
}

// allProperties returns the bound descriptors in display order: the
// custom order first, then class properties (ancestors first), then local
// properties in insertion order. Caller holds o.mu.
func (o *Object) allProperties() []*property.Property {
	var declared []*property.Property
	if o.className != "" && o.typeManager != nil {
		classProps, err := o.typeManager.ClassProperties(o.className)
		if err != nil {
			o.logger.Warn("resolving class properties", "class", o.className, "error", err)
		}
		for _, p := range classProps {
			if _, shadowed := o.localProps[p.Name()]; !shadowed {
				declared = append(declared, p.BindTo(o))
			}
		}
	}
	for _, name := range o.localOrder {
		declared = append(declared, o.localProps[name])
	}
	if len(o.customOrder) == 0 {
		return declared
	}

	byName := make(map[string]*property.Property, len(declared))
	for _, p := range declared {
		byName[p.Name()] = p
	}
	out := make([]*property.Property, 0, len(declared))
	placed := make(map[string]bool, len(o.customOrder))
	for _, name := range o.customOrder {
		if p, ok := byName[name]; ok && !placed[name] {
			out = append(out, p)
			placed[name] = true
		}
	}
	for _, p := range declared {
		if !placed[p.Name()] {
			out = append(out, p)
		}
	}
	return out
}

// GetProperty returns the bound descriptor of name. Dotted names resolve
// through child objects. References are not followed.
func (o *Object) GetProperty(name string) (*property.Property, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pp, err := parsePath(name)
	if err != nil {
		return nil, err
	}
	if pp.rest != "" {
		child, err := o.childObject(pp.head, 0)
		if err != nil {
			return nil, err
		}
		return child.GetProperty(pp.rest)
	}
	return o.lookup(pp.head)
}

// HasProperty reports whether name resolves to a property.
func (o *Object) HasProperty(name string) bool {
	_, err := o.GetProperty(name)
	return err == nil
}

// GetAllProperties returns every property in display order.
func (o *Object) GetAllProperties() []*property.Property {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.allProperties()
}

// GetVisibleProperties returns visible properties that are not the target
// of a reference.
func (o *Object) GetVisibleProperties() []*property.Property {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*property.Property
	for _, p := range o.allProperties() {
		if p.Visible() && !o.isReferenced(p.Name()) {
			out = append(out, p)
		}
	}
	return out
}
