package frame

import (
	"math"

	"github.com/lj123as/Device-Verification-Kit/internal/codec"
)

// Span is a field's absolute byte range [Lo, Hi) within one frame.
type Span struct {
	Lo, Hi int
	OK     bool // false when the span fell outside the frame
}

// resolveSpan turns a field's declared offset and length into absolute
// indices for a frame of n bytes. Referenced lengths read the already
// decoded value of the referenced field.
func (d *Decoder) resolveSpan(i, n int, vals []codec.Value) (lo int, length int64, ok bool) {
	f := d.m.Fields[i]
	lo = f.Offset
	if lo < 0 {
		lo += n
	}
	length = int64(f.Length)
	if !f.Fixed() {
		v, valid := vals[f.Ref].Int64()
		if !valid {
			return lo, 0, false
		}
		if length, valid = scaleLength(v, f.Mul, f.Add); !valid {
			return lo, length, false
		}
	}
	if lo < 0 || lo > n || length < 0 || length > int64(n-lo) {
		return lo, length, false
	}
	return lo, length, true
}

// scaleLength returns v*mul + add. On overflow it returns the saturated
// int64 bound in the direction of the overflow and false.
func scaleLength(v int64, mul, add int) (int64, bool) {
	m, a := int64(mul), int64(add)
	p := v * m
	if m != 0 && (p/m != v || (m == -1 && v == math.MinInt64)) {
		if (v < 0) == (m < 0) {
			return math.MaxInt64, false
		}
		return math.MinInt64, false
	}
	s := p + a
	switch {
	case a > 0 && s < p:
		return math.MaxInt64, false
	case a < 0 && s > p:
		return math.MinInt64, false
	}
	return s, true
}
