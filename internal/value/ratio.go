package value

import (
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// Ratio is a rational number. The zero Ratio is invalid; use NewRatio.
type Ratio struct {
	Num int64
	Den int64
}

// NewRatio returns num/den. A zero denominator is rejected.
func NewRatio(num, den int64) (Ratio, error) {
	if den == 0 {
		return Ratio{}, fmt.Errorf("%w: ratio denominator is zero", status.ErrInvalidParameter)
	}
	if den < 0 {
		num, den = -num, -den
	}
	return Ratio{Num: num, Den: den}, nil
}

// Simplify reduces the ratio to lowest terms.
func (r Ratio) Simplify() Ratio {
	g := gcd(abs(r.Num), abs(r.Den))
	if g <= 1 {
		return r
	}
	return Ratio{Num: r.Num / g, Den: r.Den / g}
}

// Float64 returns the ratio as a float.
func (r Ratio) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// Equal compares by value, so 1/2 equals 2/4.
func (r Ratio) Equal(other Ratio) bool {
	return r.Num*other.Den == other.Num*r.Den
}

// String returns "num/den".
func (r Ratio) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
