package value

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// Convert converts v to core type to. Numbers, booleans and strings
// convert among each other; integers convert to ratios. Any other
// mismatch fails with ErrInvalidType. CTUndefined accepts v unchanged.
func Convert(v any, to CoreType) (any, error) {
	v = Normalize(v)
	from := CoreTypeOf(v)
	if from == to || to == CTUndefined {
		return v, nil
	}

	switch to {
	case CTInt:
		switch x := v.(type) {
		case bool:
			if x {
				return int64(1), nil
			}
			return int64(0), nil
		case float64:
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("%w: %v is not representable as int", status.ErrInvalidType, x)
			}
			return int64(x), nil
		case string:
			s := strings.TrimSpace(x)
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n, nil
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return int64(f), nil
			}
		case Enumeration:
			return x.Int(), nil
		}
	case CTFloat:
		switch x := v.(type) {
		case bool:
			if x {
				return 1.0, nil
			}
			return 0.0, nil
		case int64:
			return float64(x), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		case Ratio:
			return x.Float64(), nil
		}
	case CTBool:
		switch x := v.(type) {
		case int64:
			return x != 0, nil
		case float64:
			return x != 0, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	case CTString:
		switch x := v.(type) {
		case bool:
			return strconv.FormatBool(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case float64:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		case Enumeration:
			return x.Name(), nil
		case Ratio:
			return x.String(), nil
		}
	case CTRatio:
		if x, ok := v.(int64); ok {
			return Ratio{Num: x, Den: 1}, nil
		}
	}

	return nil, fmt.Errorf("%w: cannot convert %s to %s", status.ErrInvalidType, from, to)
}

// Compare orders two numeric values. ok is false when either side is not
// a number.
func Compare(a, b any) (result int, ok bool) {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y), true
		case float64:
			return cmp.Compare(float64(x), y), true
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, float64(y)), true
		case float64:
			return cmp.Compare(x, y), true
		}
	}
	return 0, false
}

// ToInt returns v as int64 if it is an integer or an integral float.
func ToInt(v any) (int64, bool) {
	switch x := Normalize(v).(type) {
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
	}
	return 0, false
}
