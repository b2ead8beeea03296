// Package schema holds property-object classes and the type manager that
// resolves classes, struct types and enumeration types by name.
package schema

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// Class is a named, ordered set of property descriptors with an optional
// parent class. Classes are immutable once built.
type Class struct {
	name       string
	parentName string
	props      []*property.Property
	index      map[string]int
}

// NewClass builds a class. Property names must be unique within the class.
func NewClass(name, parentName string, props ...*property.Property) (*Class, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: class name", status.ErrArgumentNull)
	}
	c := &Class{name: name, parentName: parentName, index: make(map[string]int, len(props))}
	for _, p := range props {
		if err := property.Validate(p); err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		if _, dup := c.index[p.Name()]; dup {
			return nil, fmt.Errorf("%w: class %s declares %q twice", status.ErrAlreadyExists, name, p.Name())
		}
		c.index[p.Name()] = len(c.props)
		c.props = append(c.props, p)
	}
	return c, nil
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// ParentName returns the parent class name, or "".
func (c *Class) ParentName() string { return c.parentName }

// Property returns a property declared directly on this class.
func (c *Class) Property(name string) (*property.Property, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.props[i], true
}

// Properties returns the properties declared directly on this class.
func (c *Class) Properties() []*property.Property {
	return append([]*property.Property(nil), c.props...)
}
