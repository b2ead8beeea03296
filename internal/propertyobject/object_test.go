package propertyobject

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/eval"
	"github.com/openDAQ/openDAQ-sub004/internal/property"
	"github.com/openDAQ/openDAQ-sub004/internal/schema"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// newClampObject returns an object with x: int, default 5, bounds [0, 10].
func newClampObject(t *testing.T) *Object {
	t.Helper()
	o := New()
	require.NoError(t, o.AddProperty(property.Int("x", 5, property.WithMin(int64(0)), property.WithMax(int64(10)))))
	return o
}

// newChildTypes registers class Child { gain: int = 1 }.
func newChildTypes(t *testing.T) *schema.TypeManager {
	t.Helper()
	tm := schema.NewTypeManager()
	class, err := schema.NewClass("Child", "", property.Int("gain", 1))
	require.NoError(t, err)
	require.NoError(t, tm.AddType(class))
	return tm
}

func TestClampScenario(t *testing.T) {
	o := newClampObject(t)

	v, err := o.GetPropertyValue("x")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	require.NoError(t, o.SetPropertyValue("x", 15))
	v, _ = o.GetPropertyValue("x")
	assert.Equal(t, int64(10), v)

	require.NoError(t, o.SetPropertyValue("x", -3))
	v, _ = o.GetPropertyValue("x")
	assert.Equal(t, int64(0), v)

	err = o.AddProperty(property.Int("x", 1))
	assert.ErrorIs(t, err, status.ErrAlreadyExists)
}

func TestSetPropertyValue_Conversions(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.Float("gain", 1.5)))
	require.NoError(t, o.AddProperty(property.String("label", "a")))
	require.NoError(t, o.AddProperty(property.Bool("on", false)))

	tests := []struct {
		name    string
		prop    string
		in      any
		want    any
		wantErr error
	}{
		{name: "int to float", prop: "gain", in: 2, want: 2.0},
		{name: "string to float", prop: "gain", in: "3.5", want: 3.5},
		{name: "int to string", prop: "label", in: 7, want: "7"},
		{name: "string to bool", prop: "on", in: "true", want: true},
		{name: "bad float", prop: "gain", in: "abc", wantErr: status.ErrInvalidType},
		{name: "list to bool", prop: "on", in: []any{1}, wantErr: status.ErrInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := o.SetPropertyValue(tt.prop, tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got, err := o.GetPropertyValue(tt.prop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetPropertyValue_Errors(t *testing.T) {
	o := newClampObject(t)
	require.NoError(t, o.AddProperty(property.String("serial", "abc", property.WithReadOnly(true))))

	assert.ErrorIs(t, o.SetPropertyValue("", 1), status.ErrArgumentNull)
	assert.ErrorIs(t, o.SetPropertyValue("x", nil), status.ErrArgumentNull)
	assert.ErrorIs(t, o.SetPropertyValue("missing", 1), status.ErrNotFound)
	assert.ErrorIs(t, o.SetPropertyValue("serial", "xyz"), status.ErrAccessDenied)
	assert.ErrorIs(t, o.SetPropertyValue("x", 5), status.ErrIgnored)
	assert.ErrorIs(t, o.SetPropertyValue("x.y", 5), status.ErrInvalidType)

	require.NoError(t, o.SetProtectedPropertyValue("serial", "xyz"))
	v, _ := o.GetPropertyValue("serial")
	assert.Equal(t, "xyz", v)
}

func TestClearPropertyValue(t *testing.T) {
	o := newClampObject(t)

	assert.ErrorIs(t, o.ClearPropertyValue("x"), status.ErrIgnored)

	require.NoError(t, o.SetPropertyValue("x", 8))
	require.NoError(t, o.ClearPropertyValue("x"))
	v, _ := o.GetPropertyValue("x")
	assert.Equal(t, int64(5), v)

	assert.ErrorIs(t, o.ClearPropertyValue("x"), status.ErrIgnored)
	assert.ErrorIs(t, o.ClearPropertyValue("missing"), status.ErrNotFound)
}

func TestWriteEvents(t *testing.T) {
	o := newClampObject(t)

	ev, err := o.OnPropertyValueWrite("x")
	require.NoError(t, err)
	var seen []any
	var kinds []ChangeKind
	ev.Add(func(_ *Object, args *PropertyValueEventArgs) {
		seen = append(seen, args.Value())
		kinds = append(kinds, args.Kind)
	})
	anyCount := 0
	o.OnAnyPropertyValueWrite().Add(func(*Object, *PropertyValueEventArgs) { anyCount++ })

	require.NoError(t, o.SetPropertyValue("x", 7))
	require.NoError(t, o.ClearPropertyValue("x"))

	assert.Equal(t, []any{int64(7), nil}, seen)
	assert.Equal(t, []ChangeKind{ChangeUpdate, ChangeClear}, kinds)
	assert.Equal(t, 2, anyCount)

	_, err = o.OnPropertyValueWrite("missing")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestWriteHandlerOverridesValue(t *testing.T) {
	o := newClampObject(t)
	ev, err := o.OnPropertyValueWrite("x")
	require.NoError(t, err)
	ev.Add(func(_ *Object, args *PropertyValueEventArgs) {
		if v, ok := args.Value().(int64); ok && v%2 == 1 {
			args.SetValue(v + 1)
		}
	})

	require.NoError(t, o.SetPropertyValue("x", 3))
	v, _ := o.GetPropertyValue("x")
	assert.Equal(t, int64(4), v)
}

func TestReadHandlerOverridesValue(t *testing.T) {
	o := newClampObject(t)
	ev, err := o.OnPropertyValueRead("x")
	require.NoError(t, err)
	ev.Add(func(_ *Object, args *PropertyValueEventArgs) {
		assert.Equal(t, ChangeRead, args.Kind)
		args.SetValue(42)
	})

	v, err := o.GetPropertyValue("x")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	raw, err := o.ReadFast("x")
	require.NoError(t, err)
	assert.Equal(t, int64(5), raw)
}

func TestHandlerCanReenterObject(t *testing.T) {
	o := newClampObject(t)
	require.NoError(t, o.AddProperty(property.Int("double", 0)))

	ev, err := o.OnPropertyValueWrite("x")
	require.NoError(t, err)
	ev.Add(func(sender *Object, args *PropertyValueEventArgs) {
		v := args.Value().(int64)
		require.NoError(t, sender.SetPropertyValue("double", v*2))
	})

	require.NoError(t, o.SetPropertyValue("x", 4))
	v, _ := o.GetPropertyValue("double")
	assert.Equal(t, int64(8), v)
}

func TestConcurrentWriters(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.Int("counter", 0)))

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = o.SetPropertyValue("counter", n*1000+j)
				_, _ = o.GetPropertyValue("counter")
			}
		}(i)
	}
	wg.Wait()

	v, err := o.GetPropertyValue("counter")
	require.NoError(t, err)
	assert.IsType(t, int64(0), v)
}

func TestListIndexing(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.List("items", value.CTInt, value.NewList(1, 2, 3))))

	v, err := o.GetPropertyValue("items[1]")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	require.NoError(t, o.SetPropertyValue("items[1]", 9))
	v, _ = o.GetPropertyValue("items")
	assert.Equal(t, value.NewList(1, 9, 3), v)

	_, err = o.GetPropertyValue("items[5]")
	assert.ErrorIs(t, err, status.ErrOutOfRange)
	assert.ErrorIs(t, o.SetPropertyValue("items[0]", "x"), status.ErrInvalidType)
	_, err = o.GetPropertyValue("items[x]")
	assert.ErrorIs(t, err, status.ErrInvalidParameter)
	assert.ErrorIs(t, o.SetPropertyValue("items", value.NewList("a")), status.ErrInvalidType)
}

func TestContainersAreCopied(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.List("items", value.CTInt, nil)))
	require.NoError(t, o.AddProperty(property.Dict("table", value.CTString, value.CTInt, nil)))

	in := value.NewList(1, 2)
	require.NoError(t, o.SetPropertyValue("items", in))
	in[0] = int64(100)

	got, _ := o.GetPropertyValue("items")
	assert.Equal(t, value.NewList(1, 2), got)
	got.(value.List)[1] = int64(200)
	again, _ := o.GetPropertyValue("items")
	assert.Equal(t, value.NewList(1, 2), again)

	require.NoError(t, o.SetPropertyValue("table", value.DictOf("a", 1)))
	assert.ErrorIs(t, o.SetPropertyValue("table", value.DictOf(1, 1)), status.ErrInvalidType)
}

// newContainerObject returns an object with list, dict, struct and function
// properties.
func newContainerObject(t *testing.T) *Object {
	t.Helper()
	tm := schema.NewTypeManager()
	rangeType := value.NewStructType("Range",
		value.StructField{Name: "low", Type: value.CTFloat, Default: 0.0},
		value.StructField{Name: "high", Type: value.CTFloat, Default: 10.0},
	)
	require.NoError(t, tm.AddType(rangeType))
	def, err := rangeType.New(nil)
	require.NoError(t, err)

	o := New(WithTypeManager(tm))
	require.NoError(t, o.AddProperty(property.List("items", value.CTInt, value.NewList(1))))
	require.NoError(t, o.AddProperty(property.Dict("table", value.CTString, value.CTInt, nil)))
	require.NoError(t, o.AddProperty(property.Struct("range", def)))
	require.NoError(t, o.AddProperty(property.Function("fn")))
	return o
}

func newRange(t *testing.T, o *Object, high float64) *value.Struct {
	t.Helper()
	rt, err := o.TypeManager().StructType("Range")
	require.NoError(t, err)
	s, err := rt.New(map[string]any{"high": high})
	require.NoError(t, err)
	return s
}

func TestOverwriteOverriddenValue(t *testing.T) {
	o := newContainerObject(t)
	constant := func(n int64) value.Function {
		return func(...any) (any, error) { return n, nil }
	}

	tests := []struct {
		name   string
		prop   string
		first  any
		second any
		check  func(t *testing.T, got any)
	}{
		{
			name:   "list",
			prop:   "items",
			first:  value.NewList(1, 2),
			second: value.NewList(3),
			check: func(t *testing.T, got any) {
				assert.Equal(t, value.NewList(3), got)
			},
		},
		{
			name:   "dict",
			prop:   "table",
			first:  value.DictOf("a", 1),
			second: value.DictOf("b", 2),
			check: func(t *testing.T, got any) {
				assert.True(t, value.Equal(value.DictOf("b", 2), got))
			},
		},
		{
			name:   "struct",
			prop:   "range",
			first:  newRange(t, o, 5),
			second: newRange(t, o, 7),
			check: func(t *testing.T, got any) {
				high, _ := got.(*value.Struct).Get("high")
				assert.Equal(t, 7.0, high)
			},
		},
		{
			name:   "function",
			prop:   "fn",
			first:  constant(1),
			second: constant(2),
			check: func(t *testing.T, got any) {
				out, err := got.(value.Function)()
				require.NoError(t, err)
				assert.Equal(t, int64(2), out)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, o.SetPropertyValue(tt.prop, tt.first))
			assert.NotPanics(t, func() {
				assert.NoError(t, o.SetPropertyValue(tt.prop, tt.second))
			})
			got, err := o.GetPropertyValue(tt.prop)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}

	t.Run("list element", func(t *testing.T) {
		require.NoError(t, o.SetPropertyValue("items[0]", 8))
		require.NoError(t, o.SetPropertyValue("items[0]", 9))
		got, _ := o.GetPropertyValue("items")
		assert.Equal(t, value.NewList(9), got)
	})
}

func TestSelectionProperty(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.Selection("mode", value.NewList("off", "on", "auto"), 0)))

	require.NoError(t, o.SetPropertyValue("mode", 2))
	v, err := o.GetPropertySelectionValue("mode")
	require.NoError(t, err)
	assert.Equal(t, "auto", v)

	assert.ErrorIs(t, o.SetPropertyValue("mode", 3), status.ErrNotFound)

	require.NoError(t, o.AddProperty(property.Int("plain", 0)))
	_, err = o.GetPropertySelectionValue("plain")
	assert.ErrorIs(t, err, status.ErrInvalidType)
}

func TestReferenceProperty(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.Int("a", 1)))
	require.NoError(t, o.AddProperty(property.Reference("alias", eval.MustParse("%a"))))

	require.NoError(t, o.SetPropertyValue("alias", 4))
	v, _ := o.GetPropertyValue("a")
	assert.Equal(t, int64(4), v)
	v, _ = o.GetPropertyValue("alias")
	assert.Equal(t, int64(4), v)

	var visible []string
	for _, p := range o.GetVisibleProperties() {
		visible = append(visible, p.Name())
	}
	assert.Equal(t, []string{"alias"}, visible)
	assert.Len(t, o.GetAllProperties(), 2)

	err := o.AddProperty(property.Reference("alias2", eval.MustParse("%a")))
	assert.ErrorIs(t, err, status.ErrInvalidParameter)
}

func TestExpressionBounds(t *testing.T) {
	o := New()
	require.NoError(t, o.AddProperty(property.Int("limit", 20)))
	require.NoError(t, o.AddProperty(property.Int("level", 0, property.WithMax(eval.MustParse("$limit")))))

	require.NoError(t, o.SetPropertyValue("level", 50))
	v, _ := o.GetPropertyValue("level")
	assert.Equal(t, int64(20), v)
}

func TestCoercerAndValidator(t *testing.T) {
	o := New()
	even := property.ValidatorFunc(func(_ property.Owner, v any) error {
		if v.(int64)%2 != 0 {
			return status.ErrInvalidParameter
		}
		return nil
	})
	abs := property.CoercerFunc(func(_ property.Owner, v any) (any, error) {
		if n := v.(int64); n < 0 {
			return -n, nil
		}
		return v, nil
	})
	require.NoError(t, o.AddProperty(property.Int("n", 0, property.WithCoercer(abs), property.WithValidator(even))))

	require.NoError(t, o.SetPropertyValue("n", -4))
	v, _ := o.GetPropertyValue("n")
	assert.Equal(t, int64(4), v)

	assert.ErrorIs(t, o.SetPropertyValue("n", 3), status.ErrValidateFailed)
}

func TestEnumerationProperty(t *testing.T) {
	et := value.NewEnumerationType("Mode", "Idle", "Run")
	o := New()
	require.NoError(t, o.AddProperty(property.Enumeration("mode", et.MustEnumerate("Idle"))))

	require.NoError(t, o.SetPropertyValue("mode", "Run"))
	v, _ := o.GetPropertyValue("mode")
	assert.Equal(t, "Run", v.(value.Enumeration).Name())

	require.NoError(t, o.SetPropertyValue("mode", 0))
	assert.ErrorIs(t, o.SetPropertyValue("mode", "Stop"), status.ErrInvalidType)
}

func TestClassInstance(t *testing.T) {
	tm := newChildTypes(t)
	derived, err := schema.NewClass("Derived", "Child", property.String("label", "d"))
	require.NoError(t, err)
	require.NoError(t, tm.AddType(derived))

	o, err := NewWithClass(tm, "Derived")
	require.NoError(t, err)
	assert.Equal(t, "Derived", o.ClassName())

	var names []string
	for _, p := range o.GetAllProperties() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"gain", "label"}, names)

	assert.ErrorIs(t, o.RemoveProperty("gain"), status.ErrInvalidParameter)
	_, err = NewWithClass(tm, "Nope")
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestNestedObject(t *testing.T) {
	tm := newChildTypes(t)
	child, err := NewWithClass(tm, "Child")
	require.NoError(t, err)

	o := New(WithTypeManager(tm))
	require.NoError(t, o.AddProperty(property.Object("child", child)))

	require.NoError(t, o.SetPropertyValue("child.gain", 3))
	v, err := o.GetPropertyValue("child.gain")
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	// The template is not touched.
	tv, _ := child.GetPropertyValue("gain")
	assert.Equal(t, int64(1), tv)

	live, err := o.GetPropertyValue("child")
	require.NoError(t, err)
	c := live.(*Object)
	assert.Same(t, o, c.Owner())
	assert.Equal(t, "child", c.Path())

	assert.ErrorIs(t, o.SetPropertyValue("child", child), status.ErrAccessDenied)
	require.NoError(t, o.SetProtectedPropertyValue("child", child))
	v, _ = o.GetPropertyValue("child.gain")
	assert.Equal(t, int64(1), v)
	assert.Nil(t, c.Owner())

	require.NoError(t, o.SetPropertyValue("child.gain", 6))
	require.NoError(t, o.ClearPropertyValue("child"))
	v, _ = o.GetPropertyValue("child.gain")
	assert.Equal(t, int64(1), v)
}

func TestPropertyOrder(t *testing.T) {
	o := New()
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, o.AddProperty(property.Int(n, 0)))
	}
	require.NoError(t, o.SetPropertyOrder([]string{"c", "a"}))

	var names []string
	for _, p := range o.GetAllProperties() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)

	require.NoError(t, o.RemoveProperty("a"))
	assert.False(t, o.HasProperty("a"))
	assert.ErrorIs(t, o.RemoveProperty("a"), status.ErrNotFound)
}

func TestBoundPropertiesAreFrozenCopies(t *testing.T) {
	o := New()
	p := property.Int("x", 1)
	require.NoError(t, o.AddProperty(p))

	bound, err := o.GetProperty("x")
	require.NoError(t, err)
	assert.True(t, bound.IsFrozen())
	assert.False(t, p.IsFrozen())
	assert.NotSame(t, p, bound)
}

func TestAddPropertyValidation(t *testing.T) {
	o := New()
	assert.ErrorIs(t, o.AddProperty(nil), status.ErrArgumentNull)
	assert.ErrorIs(t, o.AddProperty(property.Int("a.b", 0)), status.ErrInvalidParameter)
}
