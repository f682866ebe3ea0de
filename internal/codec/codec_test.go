package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		tag   string
		want  Type
		width int
		kind  Kind
	}{
		{"uint8", Uint8, 1, KindUnsigned},
		{"int8", Int8, 1, KindSigned},
		{"uint16_le", Uint16LE, 2, KindUnsigned},
		{"INT16_BE", Int16BE, 2, KindSigned},
		{" int32_le ", Int32LE, 4, KindSigned},
		{"uint64_be", Uint64BE, 8, KindUnsigned},
		{"float32_le", Float32LE, 4, KindFloat},
		{"float64_be", Float64BE, 8, KindFloat},
		{"bytes", Bytes, 0, KindBytes},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseType(tt.tag)
			if err != nil {
				t.Fatalf("ParseType(%q): %v", tt.tag, err)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %s, want %s", tt.tag, got, tt.want)
			}
			if got.Width() != tt.width {
				t.Errorf("Width() = %d, want %d", got.Width(), tt.width)
			}
			if got.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", got.Kind(), tt.kind)
			}
		})
	}
}

func TestParseTypeUnknown(t *testing.T) {
	for _, tag := range []string{"", "uint24_le", "int16", "string"} {
		if _, err := ParseType(tag); !errors.Is(err, ErrUnknownType) {
			t.Errorf("ParseType(%q) err = %v, want ErrUnknownType", tag, err)
		}
	}
}

func TestReadIntegers(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		in   []byte
		want int64
	}{
		{"uint8", Uint8, []byte{0xFF}, 255},
		{"int8 negative", Int8, []byte{0x80}, -128},
		{"uint16 le", Uint16LE, []byte{0x34, 0x12}, 0x1234},
		{"uint16 be", Uint16BE, []byte{0x12, 0x34}, 0x1234},
		{"int16 le -125", Int16LE, []byte{0x83, 0xFF}, -125},
		{"int16 be -2", Int16BE, []byte{0xFF, 0xFE}, -2},
		{"int32 le", Int32LE, []byte{0xFE, 0xFF, 0xFF, 0xFF}, -2},
		{"uint32 be", Uint32BE, []byte{0xDE, 0xAD, 0xBE, 0xEF}, 0xDEADBEEF},
		{"int64 be min", Int64BE, []byte{0x80, 0, 0, 0, 0, 0, 0, 0}, math.MinInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Read(tt.in, tt.typ)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			got, ok := v.Int64()
			if !ok {
				t.Fatalf("Int64() not ok for %s", v)
			}
			if got != tt.want {
				t.Errorf("Read(%x, %s) = %d, want %d", tt.in, tt.typ, got, tt.want)
			}
		})
	}
}

func TestReadFloat(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(1.5))
	v, err := Read(buf, Float32BE)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f, _ := v.Float64(); f != 1.5 {
		t.Errorf("float32_be = %g, want 1.5", f)
	}

	buf = make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(-0.25))
	v, err = Read(buf, Float64LE)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f, _ := v.Float64(); f != -0.25 {
		t.Errorf("float64_le = %g, want -0.25", f)
	}
}

func TestReadWidthMismatch(t *testing.T) {
	if _, err := Read([]byte{0x01}, Uint16LE); !errors.Is(err, ErrWidthMismatch) {
		t.Errorf("short read err = %v, want ErrWidthMismatch", err)
	}
	if _, err := Read([]byte{0x01, 0x02, 0x03}, Uint16LE); !errors.Is(err, ErrWidthMismatch) {
		t.Errorf("long read err = %v, want ErrWidthMismatch", err)
	}
}

func TestReadBytesCopies(t *testing.T) {
	src := []byte{0xAA, 0xBB}
	v, err := Read(src, Bytes)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	src[0] = 0x00
	if !bytes.Equal(v.Bytes(), []byte{0xAA, 0xBB}) {
		t.Errorf("bytes value aliased source: %x", v.Bytes())
	}
	if v.String() != "aabb" {
		t.Errorf("String() = %q, want aabb", v.String())
	}
}

func TestAppendRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		in   any
	}{
		{"uint8", Uint8, 200},
		{"int8", Int8, -100},
		{"int16 le", Int16LE, -125},
		{"uint16 be", Uint16BE, uint16(0xBEEF)},
		{"int32 be", Int32BE, int32(-70000)},
		{"uint32 le hex string", Uint32LE, "0xCAFEBABE"},
		{"uint64 le", Uint64LE, uint64(math.MaxUint64)},
		{"int64 be", Int64BE, int64(math.MinInt64)},
		{"float32 le", Float32LE, 3.25},
		{"float64 be", Float64BE, "-1.125"},
		{"bytes", Bytes, "0a0b0c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Coerce(tt.typ, tt.in)
			if err != nil {
				t.Fatalf("Coerce: %v", err)
			}
			enc, err := Append(nil, tt.typ, v)
			if err != nil {
				t.Fatalf("Append: %v", err)
			}
			if w := tt.typ.Width(); w != 0 && len(enc) != w {
				t.Fatalf("encoded %d bytes, want %d", len(enc), w)
			}
			got, err := Read(enc, tt.typ)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !got.Equal(v) {
				t.Errorf("round trip = %s, want %s", got, v)
			}
		})
	}
}

func TestAppendLayout(t *testing.T) {
	v := IntValue(Int16LE, -125)
	got, err := Append([]byte{0xAA}, Int16LE, v)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	want := []byte{0xAA, 0x83, 0xFF}
	if !bytes.Equal(got, want) {
		t.Errorf("Append = %x, want %x", got, want)
	}

	got, err = Append(nil, Uint32BE, UintValue(Uint32BE, 0x01020304))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("Append be = %x", got)
	}
}

func TestCoerceRejectsUnrepresentable(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		in   any
	}{
		{"uint8 overflow", Uint8, 256},
		{"uint8 negative", Uint8, -1},
		{"int8 overflow", Int8, 128},
		{"int16 underflow", Int16LE, -32769},
		{"fractional into int", Uint16LE, 1.5},
		{"garbage string", Uint16LE, "twelve"},
		{"bad hex bytes", Bytes, "zz"},
		{"unsupported kind", Uint8, struct{}{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Coerce(tt.typ, tt.in); err == nil {
				t.Errorf("Coerce(%s, %v) succeeded, want error", tt.typ, tt.in)
			}
		})
	}
}

func TestFits(t *testing.T) {
	if !FitsInt(Int16BE, -32768) || FitsInt(Int16BE, 32768) {
		t.Error("FitsInt int16 bounds wrong")
	}
	if !FitsUint(Uint16LE, 0xFFFF) || FitsUint(Uint16LE, 0x10000) {
		t.Error("FitsUint uint16 bounds wrong")
	}
	if FitsUint(Int64LE, math.MaxUint64) {
		t.Error("FitsUint int64 accepted MaxUint64")
	}
	if !FitsUint(Uint64BE, math.MaxUint64) {
		t.Error("FitsUint uint64 rejected MaxUint64")
	}
}

func TestUndecodableValue(t *testing.T) {
	v := UndecodableValue(Int16LE)
	if _, ok := v.Int64(); ok {
		t.Error("undecodable value returned ok Int64")
	}
	if v.Interface() != nil {
		t.Error("undecodable Interface() not nil")
	}
	if _, err := Append(nil, Int16LE, v); err == nil {
		t.Error("Append accepted undecodable value")
	}
	if !v.Equal(UndecodableValue(Int16LE)) {
		t.Error("undecodable values of same type not equal")
	}
}

func TestReadInt(t *testing.T) {
	n, err := ReadInt([]byte{0x10, 0x00}, Uint16LE)
	if err != nil || n != 16 {
		t.Errorf("ReadInt = %d, %v; want 16", n, err)
	}
	if _, err := ReadInt([]byte{0, 0, 0, 0}, Float32LE); !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("ReadInt(float) err = %v", err)
	}
}
