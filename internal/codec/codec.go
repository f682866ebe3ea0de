package codec

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrUnknownType      = errors.New("codec: unknown field type")
	ErrWidthMismatch    = errors.New("codec: byte length does not match type width")
	ErrNotRepresentable = errors.New("codec: value not representable in type")
	ErrUnsupportedValue = errors.New("codec: unsupported value kind")
)

// errTooShort returns a standardised validation error for short buffers.
func errTooShort(what string, got, need int) error {
	return fmt.Errorf("%s too short: %d bytes (minimum %d): %w", what, got, need, ErrWidthMismatch)
}

// PutUint writes the low width bytes of value to dst using order.
func PutUint(order binary.ByteOrder, dst []byte, width int, value uint64) {
	switch width {
	case 1:
		dst[0] = byte(value)
	case 2:
		order.PutUint16(dst, uint16(value))
	case 4:
		order.PutUint32(dst, uint32(value))
	case 8:
		order.PutUint64(dst, value)
	default:
		panic(fmt.Sprintf("codec: unsupported integer width %d", width))
	}
}

// AppendUint appends the low width bytes of value to dst using order.
func AppendUint(order binary.ByteOrder, dst []byte, width int, value uint64) []byte {
	var buf [8]byte
	PutUint(order, buf[:width], width, value)
	return append(dst, buf[:width]...)
}

// Uint reads a width-byte unsigned integer from src using order.
func Uint(order binary.ByteOrder, src []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(order.Uint16(src))
	case 4:
		return uint64(order.Uint32(src))
	case 8:
		return order.Uint64(src)
	default:
		panic(fmt.Sprintf("codec: unsupported integer width %d", width))
	}
}

// Read decodes b as type t. Numeric types require len(b) == t.Width().
func Read(b []byte, t Type) (Value, error) {
	if !t.Valid() {
		return Value{}, ErrUnknownType
	}
	if t == Bytes {
		return BytesValue(b), nil
	}
	w := t.Width()
	if len(b) < w {
		return Value{}, errTooShort(t.String(), len(b), w)
	}
	if len(b) != w {
		return Value{}, fmt.Errorf("%w: %s wants %d bytes, got %d", ErrWidthMismatch, t, w, len(b))
	}
	raw := Uint(t.Order(), b, w)
	switch t.Kind() {
	case KindUnsigned:
		return UintValue(t, raw), nil
	case KindSigned:
		return IntValue(t, signExtend(raw, w)), nil
	case KindFloat:
		if w == 4 {
			return FloatValue(t, float64(math.Float32frombits(uint32(raw)))), nil
		}
		return FloatValue(t, math.Float64frombits(raw)), nil
	default:
		return Value{}, ErrUnknownType
	}
}

// ReadInt decodes b as an integer type and returns it as int64. It is used
// for length and count fields.
func ReadInt(b []byte, t Type) (int64, error) {
	if !t.IsInteger() {
		return 0, fmt.Errorf("%w: %s is not an integer type", ErrUnsupportedValue, t)
	}
	v, err := Read(b, t)
	if err != nil {
		return 0, err
	}
	n, ok := v.Int64()
	if !ok {
		return 0, fmt.Errorf("%w: %s exceeds int64", ErrNotRepresentable, v)
	}
	return n, nil
}

// Put encodes v as type t into dst. Numeric types write exactly t.Width()
// bytes; bytes values require len(dst) == len(v).
func Put(dst []byte, t Type, v Value) error {
	enc, err := Append(nil, t, v)
	if err != nil {
		return err
	}
	if len(dst) != len(enc) {
		return fmt.Errorf("%w: %s needs %d bytes, destination has %d", ErrWidthMismatch, t, len(enc), len(dst))
	}
	copy(dst, enc)
	return nil
}

// Append encodes v as type t and appends it to dst.
func Append(dst []byte, t Type, v Value) ([]byte, error) {
	if !t.Valid() {
		return dst, ErrUnknownType
	}
	if v.Undecodable {
		return dst, fmt.Errorf("%w: undecodable %s", ErrUnsupportedValue, t)
	}
	w := t.Width()
	switch t.Kind() {
	case KindUnsigned:
		u, ok := v.Uint64()
		if !ok || !FitsUint(t, u) {
			return dst, fmt.Errorf("%w: %s does not fit %s", ErrNotRepresentable, v, t)
		}
		return AppendUint(t.Order(), dst, w, u), nil
	case KindSigned:
		i, ok := v.Int64()
		if !ok || !FitsInt(t, i) {
			return dst, fmt.Errorf("%w: %s does not fit %s", ErrNotRepresentable, v, t)
		}
		return AppendUint(t.Order(), dst, w, uint64(i)), nil
	case KindFloat:
		f, ok := v.Float64()
		if !ok {
			return dst, fmt.Errorf("%w: %s is not numeric", ErrNotRepresentable, v)
		}
		if w == 4 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return dst, fmt.Errorf("%w: %g overflows %s", ErrNotRepresentable, f, t)
			}
			return AppendUint(t.Order(), dst, 4, uint64(math.Float32bits(float32(f)))), nil
		}
		return AppendUint(t.Order(), dst, 8, math.Float64bits(f)), nil
	case KindBytes:
		if v.Type != Bytes {
			return dst, fmt.Errorf("%w: %s value for bytes field", ErrUnsupportedValue, v.Type)
		}
		return append(dst, v.b...), nil
	default:
		return dst, ErrUnknownType
	}
}

// FitsInt reports whether i is representable in integer type t.
func FitsInt(t Type, i int64) bool {
	switch t.Kind() {
	case KindUnsigned:
		return i >= 0 && FitsUint(t, uint64(i))
	case KindSigned:
		bits := uint(t.Width() * 8)
		if bits >= 64 {
			return true
		}
		lo := -(int64(1) << (bits - 1))
		hi := int64(1)<<(bits-1) - 1
		return i >= lo && i <= hi
	default:
		return false
	}
}

// FitsUint reports whether u is representable in integer type t.
func FitsUint(t Type, u uint64) bool {
	switch t.Kind() {
	case KindUnsigned:
		bits := uint(t.Width() * 8)
		if bits >= 64 {
			return true
		}
		return u <= (uint64(1)<<bits)-1
	case KindSigned:
		if u > math.MaxInt64 {
			return false
		}
		return FitsInt(t, int64(u))
	default:
		return false
	}
}

// Coerce converts a loosely typed parameter value (as produced by YAML/JSON
// decoding or command-line parsing) into a Value of type t.
//
// Accepted inputs: Go integer and float kinds, bool (0/1), []byte, Value,
// and strings holding decimal, 0x-prefixed hex, or float literals. For bytes
// fields a string is read as hex.
func Coerce(t Type, in any) (Value, error) {
	if !t.Valid() {
		return Value{}, ErrUnknownType
	}
	if t == Bytes {
		return coerceBytes(in)
	}
	switch x := in.(type) {
	case Value:
		return coerceValue(t, x)
	case int:
		return coerceInt(t, int64(x))
	case int8:
		return coerceInt(t, int64(x))
	case int16:
		return coerceInt(t, int64(x))
	case int32:
		return coerceInt(t, int64(x))
	case int64:
		return coerceInt(t, x)
	case uint:
		return coerceUint(t, uint64(x))
	case uint8:
		return coerceUint(t, uint64(x))
	case uint16:
		return coerceUint(t, uint64(x))
	case uint32:
		return coerceUint(t, uint64(x))
	case uint64:
		return coerceUint(t, x)
	case float32:
		return coerceFloat(t, float64(x))
	case float64:
		return coerceFloat(t, x)
	case bool:
		if x {
			return coerceInt(t, 1)
		}
		return coerceInt(t, 0)
	case string:
		return coerceString(t, x)
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, in)
	}
}

func coerceValue(t Type, v Value) (Value, error) {
	switch v.Type.Kind() {
	case KindSigned:
		return coerceInt(t, v.i)
	case KindUnsigned:
		return coerceUint(t, v.u)
	case KindFloat:
		return coerceFloat(t, v.f)
	default:
		return Value{}, fmt.Errorf("%w: %s value for %s", ErrUnsupportedValue, v.Type, t)
	}
}

func coerceInt(t Type, i int64) (Value, error) {
	switch t.Kind() {
	case KindFloat:
		return FloatValue(t, float64(i)), nil
	case KindSigned:
		if !FitsInt(t, i) {
			return Value{}, fmt.Errorf("%w: %d does not fit %s", ErrNotRepresentable, i, t)
		}
		return IntValue(t, i), nil
	case KindUnsigned:
		if !FitsInt(t, i) {
			return Value{}, fmt.Errorf("%w: %d does not fit %s", ErrNotRepresentable, i, t)
		}
		return UintValue(t, uint64(i)), nil
	default:
		return Value{}, ErrUnknownType
	}
}

func coerceUint(t Type, u uint64) (Value, error) {
	switch t.Kind() {
	case KindFloat:
		return FloatValue(t, float64(u)), nil
	case KindSigned:
		if !FitsUint(t, u) {
			return Value{}, fmt.Errorf("%w: %d does not fit %s", ErrNotRepresentable, u, t)
		}
		return IntValue(t, int64(u)), nil
	case KindUnsigned:
		if !FitsUint(t, u) {
			return Value{}, fmt.Errorf("%w: %d does not fit %s", ErrNotRepresentable, u, t)
		}
		return UintValue(t, u), nil
	default:
		return Value{}, ErrUnknownType
	}
}

func coerceFloat(t Type, f float64) (Value, error) {
	if t.Kind() == KindFloat {
		return FloatValue(t, f), nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, fmt.Errorf("%w: %g is not an integer", ErrNotRepresentable, f)
	}
	if f < 0 {
		if f < math.MinInt64 {
			return Value{}, fmt.Errorf("%w: %g", ErrNotRepresentable, f)
		}
		return coerceInt(t, int64(f))
	}
	if f >= math.MaxUint64 {
		return Value{}, fmt.Errorf("%w: %g", ErrNotRepresentable, f)
	}
	return coerceUint(t, uint64(f))
}

func coerceString(t Type, s string) (Value, error) {
	s = strings.TrimSpace(s)
	if t.Kind() != KindFloat {
		if i, err := strconv.ParseInt(s, 0, 64); err == nil {
			return coerceInt(t, i)
		}
		if u, err := strconv.ParseUint(s, 0, 64); err == nil {
			return coerceUint(t, u)
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is not a number", ErrUnsupportedValue, s)
	}
	return coerceFloat(t, f)
}

func coerceBytes(in any) (Value, error) {
	switch x := in.(type) {
	case []byte:
		return BytesValue(x), nil
	case Value:
		if x.Type != Bytes {
			return Value{}, fmt.Errorf("%w: %s value for bytes", ErrUnsupportedValue, x.Type)
		}
		return BytesValue(x.b), nil
	case string:
		s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(x), "0x"), "0X")
		s = strings.ReplaceAll(s, " ", "")
		b, err := hex.DecodeString(s)
		if err != nil {
			return Value{}, fmt.Errorf("%w: bytes value %q: %v", ErrUnsupportedValue, x, err)
		}
		return BytesValue(b), nil
	default:
		return Value{}, fmt.Errorf("%w: %T for bytes", ErrUnsupportedValue, in)
	}
}

func signExtend(raw uint64, width int) int64 {
	shift := uint(64 - width*8)
	return int64(raw<<shift) >> shift
}
