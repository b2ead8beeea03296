package eval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

type mapResolver map[string]any

func (m mapResolver) PropertyValue(name string) (any, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", status.ErrNotFound, name)
	}
	return v, nil
}

func TestEval(t *testing.T) {
	r := mapResolver{
		"rate":         int64(100),
		"gain":         2.5,
		"enabled":      true,
		"label":        "dev",
		"channel.mode": int64(1),
	}

	tests := []struct {
		expr string
		want any
	}{
		{"1 + 2 * 3", int64(7)},
		{"(1 + 2) * 3", int64(9)},
		{"10 - 3 - 2", int64(5)},
		{"7 / 2", int64(3)},
		{"7 / 2.0", 3.5},
		{"-$rate", int64(-100)},
		{"$rate * $gain", 250.0},
		{"$label + '-1'", "dev-1"},
		{"$rate > 50 && $enabled", true},
		{"$rate == 100.0", true},
		{"!$enabled || false", false},
		{"if($rate >= 100, 'fast', 'slow')", "fast"},
		{"$channel.mode != 0", true},
		{"1e3", 1000.0},
		{"%rate", Reference{Name: "rate"}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			v, err := Parse(tt.expr)
			require.NoError(t, err)
			got, err := v.Eval(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShortCircuit(t *testing.T) {
	v := MustParse("false && $missing")
	got, err := v.Eval(mapResolver{})
	require.NoError(t, err)
	assert.Equal(t, false, got)

	_, err = MustParse("true && $missing").Eval(mapResolver{})
	assert.ErrorIs(t, err, status.ErrNotFound)
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"1 / 0", status.ErrInvalidParameter},
		{"1.0 / 0", status.ErrInvalidParameter},
		{"'a' - 1", status.ErrInvalidType},
		{"'a' < 1", status.ErrInvalidType},
		{"-'a'", status.ErrInvalidType},
		{"if('x', 1, 2)", status.ErrInvalidType},
		{"$rate", status.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := MustParse(tt.expr).Eval(nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"1 +",
		"(1 + 2",
		"'open",
		"% + 1",
		"foo",
		"if(1, 2)",
		"1 2",
		"1 # 2",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Parse(expr)
			assert.ErrorIs(t, err, status.ErrInvalidParameter)
		})
	}
	assert.Panics(t, func() { MustParse("(") })
}

func TestReferencesAndIdentity(t *testing.T) {
	v := MustParse("if(%a, %b.c, $d)")
	assert.Equal(t, []string{"a", "b.c"}, v.References())
	assert.Equal(t, "if(%a, %b.c, $d)", v.String())
	assert.Equal(t, v.Expression(), v.String())

	assert.Same(t, v, v.CloneValue())
	assert.True(t, v.EqualValue(MustParse("if(%a, %b.c, $d)")))
	assert.False(t, v.EqualValue(MustParse("$d")))
	assert.False(t, v.EqualValue("if(%a, %b.c, $d)"))
}
