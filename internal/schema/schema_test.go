package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

func mustClass(t *testing.T, name, parent string, props ...*property.Property) *Class {
	t.Helper()
	c, err := NewClass(name, parent, props...)
	require.NoError(t, err)
	return c
}

func newManager(t *testing.T) *TypeManager {
	t.Helper()
	tm := NewTypeManager()
	require.NoError(t, tm.AddType(mustClass(t, "Component", "",
		property.String("name", "component"),
		property.Bool("active", true),
	)))
	require.NoError(t, tm.AddType(mustClass(t, "Device", "Component",
		property.Int("rate", 100),
		property.String("name", "device"),
	)))
	require.NoError(t, tm.AddType(mustClass(t, "Scope", "Device",
		property.Float("timebase", 0.001),
	)))
	return tm
}

func TestNewClass(t *testing.T) {
	c := mustClass(t, "Device", "", property.Int("rate", 1), property.String("label", ""))
	assert.Equal(t, "Device", c.Name())
	assert.Empty(t, c.ParentName())
	p, ok := c.Property("rate")
	require.True(t, ok)
	assert.Equal(t, value.CTInt, p.ValueType())
	_, ok = c.Property("missing")
	assert.False(t, ok)
	assert.Len(t, c.Properties(), 2)

	_, err := NewClass("", "")
	assert.ErrorIs(t, err, status.ErrArgumentNull)
	_, err = NewClass("Dup", "", property.Int("a", 1), property.Int("a", 2))
	assert.ErrorIs(t, err, status.ErrAlreadyExists)
	_, err = NewClass("Bad", "", property.List("l", value.CTInt, value.NewList("x")))
	assert.ErrorIs(t, err, status.ErrInvalidType)
}

func TestAddAndResolve(t *testing.T) {
	tm := newManager(t)
	assert.Equal(t, []string{"Component", "Device", "Scope"}, tm.TypeNames())
	assert.True(t, tm.HasType("Device"))

	err := tm.AddType(mustClass(t, "Device", ""))
	assert.ErrorIs(t, err, status.ErrAlreadyExists)
	err = tm.AddType(mustClass(t, "Orphan", "Missing"))
	assert.ErrorIs(t, err, status.ErrNotFound)
	assert.ErrorIs(t, tm.AddType(nil), status.ErrArgumentNull)

	mode := value.NewEnumerationType("Mode", "Off", "On")
	point := value.NewStructType("Point", value.StructField{Name: "x", Type: value.CTFloat})
	require.NoError(t, tm.AddType(mode))
	require.NoError(t, tm.AddType(point))

	err = tm.AddType(mustClass(t, "Child", "Mode"))
	assert.ErrorIs(t, err, status.ErrInvalidType, "parent must be a class")

	_, err = tm.Resolve("Mode")
	assert.ErrorIs(t, err, status.ErrInvalidType)
	gotMode, err := tm.EnumerationType("Mode")
	require.NoError(t, err)
	assert.Same(t, mode, gotMode)
	gotPoint, err := tm.StructType("Point")
	require.NoError(t, err)
	assert.Same(t, point, gotPoint)
	_, err = tm.StructType("Mode")
	assert.ErrorIs(t, err, status.ErrInvalidType)
	_, err = tm.EnumerationType("Nope")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestRemoveType(t *testing.T) {
	tm := newManager(t)
	assert.ErrorIs(t, tm.RemoveType("Device"), status.ErrInvalidState)
	assert.ErrorIs(t, tm.RemoveType("Missing"), status.ErrNotFound)

	require.NoError(t, tm.RemoveType("Scope"))
	require.NoError(t, tm.RemoveType("Device"))
	assert.Equal(t, []string{"Component"}, tm.TypeNames())
	assert.False(t, tm.HasType("Scope"))
}

func TestClassProperties(t *testing.T) {
	tm := newManager(t)

	props, err := tm.ClassProperties("Scope")
	require.NoError(t, err)
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name()
	}
	assert.Equal(t, []string{"name", "active", "rate", "timebase"}, names)
	assert.Equal(t, "device", props[0].DefaultValue(), "subclass override replaces in place")

	p, err := tm.ClassProperty("Scope", "name")
	require.NoError(t, err)
	assert.Equal(t, "device", p.DefaultValue())
	p, err = tm.ClassProperty("Scope", "active")
	require.NoError(t, err)
	assert.Equal(t, true, p.DefaultValue())
	_, err = tm.ClassProperty("Scope", "missing")
	assert.ErrorIs(t, err, status.ErrNotFound)
	_, err = tm.ClassProperties("Missing")
	assert.ErrorIs(t, err, status.ErrNotFound)

	assert.True(t, tm.InheritsFrom("Scope", "Component"))
	assert.True(t, tm.InheritsFrom("Device", "Device"))
	assert.False(t, tm.InheritsFrom("Component", "Device"))
	assert.False(t, tm.InheritsFrom("Missing", "Component"))
}
