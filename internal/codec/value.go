package codec

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// Value is one decoded field value. Exactly one of the numeric or byte
// representations is meaningful, selected by Type.Kind().
//
// An undecodable value carries the field type but no data; it marks fields
// whose bytes fell outside the frame.
type Value struct {
	Type        Type
	Undecodable bool

	u uint64
	i int64
	f float64
	b []byte
}

// UintValue builds an unsigned value.
func UintValue(t Type, v uint64) Value {
	return Value{Type: t, u: v}
}

// IntValue builds a signed value.
func IntValue(t Type, v int64) Value {
	return Value{Type: t, i: v}
}

// FloatValue builds a float value.
func FloatValue(t Type, v float64) Value {
	return Value{Type: t, f: v}
}

// BytesValue builds a bytes value. b is copied.
func BytesValue(b []byte) Value {
	return Value{Type: Bytes, b: cloneBytes(b)}
}

// UndecodableValue marks a field that could not be read.
func UndecodableValue(t Type) Value {
	return Value{Type: t, Undecodable: true}
}

// Int64 returns the value as a signed integer. ok is false for floats,
// bytes, undecodable values and unsigned values above math.MaxInt64.
func (v Value) Int64() (int64, bool) {
	if v.Undecodable {
		return 0, false
	}
	switch v.Type.Kind() {
	case KindSigned:
		return v.i, true
	case KindUnsigned:
		if v.u > math.MaxInt64 {
			return 0, false
		}
		return int64(v.u), true
	default:
		return 0, false
	}
}

// Uint64 returns the value as an unsigned integer. ok is false for negative
// values and non-integers.
func (v Value) Uint64() (uint64, bool) {
	if v.Undecodable {
		return 0, false
	}
	switch v.Type.Kind() {
	case KindUnsigned:
		return v.u, true
	case KindSigned:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	default:
		return 0, false
	}
}

// Float64 returns any numeric value as float64.
func (v Value) Float64() (float64, bool) {
	if v.Undecodable {
		return 0, false
	}
	switch v.Type.Kind() {
	case KindUnsigned:
		return float64(v.u), true
	case KindSigned:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Bytes returns a copy of a bytes value.
func (v Value) Bytes() []byte {
	if v.Type != Bytes {
		return nil
	}
	return cloneBytes(v.b)
}

// Interface returns the natural Go representation: uint64, int64, float64,
// []byte, or nil when undecodable.
func (v Value) Interface() any {
	if v.Undecodable {
		return nil
	}
	switch v.Type.Kind() {
	case KindUnsigned:
		return v.u
	case KindSigned:
		return v.i
	case KindFloat:
		return v.f
	case KindBytes:
		return cloneBytes(v.b)
	default:
		return nil
	}
}

// Equal compares type, decodability and content.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.Undecodable != o.Undecodable {
		return false
	}
	if v.Undecodable {
		return true
	}
	switch v.Type.Kind() {
	case KindUnsigned:
		return v.u == o.u
	case KindSigned:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBytes:
		return bytes.Equal(v.b, o.b)
	default:
		return true
	}
}

// String formats the value for logs and CSV-style output. Bytes render as
// lowercase hex.
func (v Value) String() string {
	if v.Undecodable {
		return "<undecodable>"
	}
	switch v.Type.Kind() {
	case KindUnsigned:
		return strconv.FormatUint(v.u, 10)
	case KindSigned:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBytes:
		return hex.EncodeToString(v.b)
	default:
		return fmt.Sprintf("<%s>", v.Type)
	}
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
