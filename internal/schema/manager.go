package schema

import (
	"fmt"
	"sync"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// Type is anything the type manager can hold: *Class, *value.StructType
// or *value.EnumerationType.
type Type interface {
	Name() string
}

// maxInheritanceDepth bounds parent-chain walks so a corrupted chain
// fails instead of looping.
const maxInheritanceDepth = 64

// TypeManager resolves types by name. It is read-mostly and safe for
// concurrent use.
type TypeManager struct {
	mu    sync.RWMutex
	types map[string]Type
	order []string
}

// NewTypeManager returns an empty type manager.
func NewTypeManager() *TypeManager {
	return &TypeManager{types: make(map[string]Type)}
}

// AddType registers t. A class's parent must already be registered.
func (m *TypeManager) AddType(t Type) error {
	if t == nil {
		return fmt.Errorf("%w: type", status.ErrArgumentNull)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	name := t.Name()
	if _, exists := m.types[name]; exists {
		return fmt.Errorf("%w: type %q", status.ErrAlreadyExists, name)
	}
	if c, ok := t.(*Class); ok && c.parentName != "" {
		parent, ok := m.types[c.parentName]
		if !ok {
			return fmt.Errorf("%w: parent class %q of %q", status.ErrNotFound, c.parentName, name)
		}
		if _, ok := parent.(*Class); !ok {
			return fmt.Errorf("%w: parent %q of %q is not a class", status.ErrInvalidType, c.parentName, name)
		}
	}
	m.types[name] = t
	m.order = append(m.order, name)
	return nil
}

// RemoveType unregisters a type. A class that is still the parent of
// another class cannot be removed.
func (m *TypeManager) RemoveType(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.types[name]; !ok {
		return fmt.Errorf("%w: type %q", status.ErrNotFound, name)
	}
	for _, t := range m.types {
		if c, ok := t.(*Class); ok && c.parentName == name {
			return fmt.Errorf("%w: type %q is the parent of %q", status.ErrInvalidState, name, c.name)
		}
	}
	delete(m.types, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Type returns the type registered under name.
func (m *TypeManager) Type(name string) (Type, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: type %q", status.ErrNotFound, name)
	}
	return t, nil
}

// HasType reports whether name is registered.
func (m *TypeManager) HasType(name string) bool {
	_, err := m.Type(name)
	return err == nil
}

// TypeNames returns registered names in registration order.
func (m *TypeManager) TypeNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Resolve returns the class registered under name.
func (m *TypeManager) Resolve(name string) (*Class, error) {
	t, err := m.Type(name)
	if err != nil {
		return nil, err
	}
	c, ok := t.(*Class)
	if !ok {
		return nil, fmt.Errorf("%w: type %q is not a property object class", status.ErrInvalidType, name)
	}
	return c, nil
}

// StructType returns the struct type registered under name.
func (m *TypeManager) StructType(name string) (*value.StructType, error) {
	t, err := m.Type(name)
	if err != nil {
		return nil, err
	}
	s, ok := t.(*value.StructType)
	if !ok {
		return nil, fmt.Errorf("%w: type %q is not a struct type", status.ErrInvalidType, name)
	}
	return s, nil
}

// EnumerationType returns the enumeration type registered under name.
func (m *TypeManager) EnumerationType(name string) (*value.EnumerationType, error) {
	t, err := m.Type(name)
	if err != nil {
		return nil, err
	}
	e, ok := t.(*value.EnumerationType)
	if !ok {
		return nil, fmt.Errorf("%w: type %q is not an enumeration type", status.ErrInvalidType, name)
	}
	return e, nil
}

// lineage returns the class chain from the root ancestor down to name.
func (m *TypeManager) lineage(name string) ([]*Class, error) {
	var chain []*Class
	for current := name; current != ""; {
		if len(chain) >= maxInheritanceDepth {
			return nil, fmt.Errorf("%w: class %q inheritance deeper than %d", status.ErrInvalidState, name, maxInheritanceDepth)
		}
		c, err := m.Resolve(current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
		current = c.parentName
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// ClassProperties returns every property of a class including inherited
// ones, ancestors first. A subclass property with an inherited name
// replaces the inherited one in place.
func (m *TypeManager) ClassProperties(className string) ([]*property.Property, error) {
	chain, err := m.lineage(className)
	if err != nil {
		return nil, err
	}
	var props []*property.Property
	pos := make(map[string]int)
	for _, c := range chain {
		for _, p := range c.props {
			if i, ok := pos[p.Name()]; ok {
				props[i] = p
				continue
			}
			pos[p.Name()] = len(props)
			props = append(props, p)
		}
	}
	return props, nil
}

// ClassProperty looks up a property of a class or its ancestors, nearest
// declaration first.
func (m *TypeManager) ClassProperty(className, name string) (*property.Property, error) {
	chain, err := m.lineage(className)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if p, ok := chain[i].Property(name); ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: property %q in class %q", status.ErrNotFound, name, className)
}

// InheritsFrom reports whether className is ancestor or derives from it.
func (m *TypeManager) InheritsFrom(className, ancestor string) bool {
	chain, err := m.lineage(className)
	if err != nil {
		return false
	}
	for _, c := range chain {
		if c.name == ancestor {
			return true
		}
	}
	return false
}
