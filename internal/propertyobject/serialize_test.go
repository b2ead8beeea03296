package propertyobject

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/permission"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/serialization"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestSerialize_Golden(t *testing.T) {
	o := newClampObject(t)
	require.NoError(t, o.AddProperty(property.String("name", "dev")))
	require.NoError(t, o.SetPropertyValue("x", 7))

	data, err := Marshal(o, nil)
	require.NoError(t, err)
	newGoldie(t).Assert(t, "simple_object", data)
}

func TestRoundTrip(t *testing.T) {
	tm := newChildTypes(t)
	child, err := NewWithClass(tm, "Child")
	require.NoError(t, err)

	o := New(WithTypeManager(tm))
	require.NoError(t, o.AddProperty(property.Object("child", child)))
	require.NoError(t, o.AddProperty(property.List("items", value.CTInt, nil)))
	require.NoError(t, o.AddProperty(property.Dict("table", value.CTString, value.CTFloat, nil)))
	require.NoError(t, o.AddProperty(property.Float("gain", 1.0, property.WithUnit("dB"))))
	require.NoError(t, o.SetPropertyValue("child.gain", 3))
	require.NoError(t, o.SetPropertyValue("items", value.NewList(1, 2, 3)))
	require.NoError(t, o.SetPropertyValue("table", value.DictOf("a", 0.5, "b", 2.0)))
	require.NoError(t, o.SetPropertyValue("gain", 2.0))
	require.NoError(t, o.Freeze())

	data, err := Marshal(o, nil)
	require.NoError(t, err)

	restored, err := Unmarshal(NewDecoder(tm), data)
	require.NoError(t, err)

	assert.True(t, value.Equal(o, restored))
	assert.True(t, restored.IsFrozen())

	v, err := restored.GetPropertyValue("child.gain")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	v, _ = restored.GetPropertyValue("gain")
	assert.Equal(t, 2.0, v)
	p, err := restored.GetProperty("gain")
	require.NoError(t, err)
	assert.Equal(t, "dB", p.Unit())

	again, err := Marshal(restored, nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestRoundTrip_FrozenChild(t *testing.T) {
	tm := newChildTypes(t)
	child, err := NewWithClass(tm, "Child")
	require.NoError(t, err)

	o := New(WithTypeManager(tm))
	require.NoError(t, o.AddProperty(property.Object("child", child)))
	require.NoError(t, o.SetPropertyValue("child.gain", 6))
	live, err := o.GetPropertyValue("child")
	require.NoError(t, err)
	require.NoError(t, live.(*Object).Freeze())

	data, err := Marshal(o, nil)
	require.NoError(t, err)
	restored, err := Unmarshal(NewDecoder(tm), data)
	require.NoError(t, err)
	assert.False(t, restored.IsFrozen())

	rc, err := restored.GetPropertyValue("child")
	require.NoError(t, err)
	assert.True(t, rc.(*Object).IsFrozen())
	assert.Same(t, restored, rc.(*Object).Owner())
	v, _ := restored.GetPropertyValue("child.gain")
	assert.Equal(t, int64(6), v)
	assert.ErrorIs(t, restored.SetPropertyValue("child.gain", 7), status.ErrFrozen)
}

func TestDeserialize_BackwardCompatible(t *testing.T) {
	tm := newChildTypes(t)
	d := NewDecoder(tm)

	tests := []struct {
		name string
		json string
		gain int64
	}{
		{name: "no values", json: `{"__type":"PropertyObject","className":"Child"}`, gain: 1},
		{name: "known value", json: `{"__type":"PropertyObject","className":"Child","propValues":{"gain":4}}`, gain: 4},
		{name: "unknown value", json: `{"__type":"PropertyObject","className":"Child","propValues":{"gain":2,"removed":true}}`, gain: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := Unmarshal(d, []byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, "Child", o.ClassName())
			assert.False(t, o.IsFrozen())
			v, err := o.GetPropertyValue("gain")
			require.NoError(t, err)
			assert.Equal(t, tt.gain, v)
		})
	}

	_, err := Unmarshal(d, []byte(`{"__type":"PropertyObject","className":"Missing"}`))
	assert.ErrorIs(t, err, status.ErrNotFound)
	_, err = Unmarshal(d, []byte(`[1,2]`))
	assert.ErrorIs(t, err, status.ErrInvalidType)
}

func TestSerialize_PermissionFiltering(t *testing.T) {
	o := newClampObject(t)
	require.NoError(t, o.SetPropertyValue("x", 7))
	o.Permissions().SetPermissions(permission.NewBuilder().
		Inherit(false).
		Allow(permission.GroupAdmin, permission.All).
		Build())

	full, err := Marshal(o, permission.NewUser("root", permission.GroupAdmin))
	require.NoError(t, err)
	assert.Contains(t, string(full), `"propValues":{"x":7}`)

	limited, err := Marshal(o, permission.NewUser("guest"))
	require.NoError(t, err)
	assert.NotContains(t, string(limited), "propValues")
}

func TestUpdate(t *testing.T) {
	o := newClampObject(t)
	require.NoError(t, o.AddProperty(property.String("name", "dev")))
	require.NoError(t, o.SetPropertyValue("x", 7))
	ends := 0
	o.OnEndUpdate().Add(func(*Object, *EndUpdateEventArgs) { ends++ })

	so, err := serialization.ParseObject([]byte(`{"__type":"PropertyObject","propValues":{"name":"sensor"}}`))
	require.NoError(t, err)
	require.NoError(t, o.Update(NewDecoder(nil), so))

	v, _ := o.GetPropertyValue("x")
	assert.Equal(t, int64(5), v, "omitted values are cleared")
	v, _ = o.GetPropertyValue("name")
	assert.Equal(t, "sensor", v)
	assert.Equal(t, 1, ends)

	require.NoError(t, o.Freeze())
	assert.ErrorIs(t, o.Update(NewDecoder(nil), so), status.ErrFrozen)
}

func TestUpdate_NestedChild(t *testing.T) {
	tm := newChildTypes(t)
	child, err := NewWithClass(tm, "Child")
	require.NoError(t, err)
	o := New(WithTypeManager(tm))
	require.NoError(t, o.AddProperty(property.Object("child", child)))
	live, _ := o.GetPropertyValue("child")

	so, err := serialization.ParseObject([]byte(
		`{"__type":"PropertyObject","propValues":{"child":{"__type":"PropertyObject","className":"Child","propValues":{"gain":8}}}}`))
	require.NoError(t, err)
	require.NoError(t, o.Update(NewDecoder(tm), so))

	v, _ := o.GetPropertyValue("child.gain")
	assert.Equal(t, int64(8), v)
	after, _ := o.GetPropertyValue("child")
	assert.Same(t, live, after, "children update in place")
}
