package checksum

import (
	"errors"
	"testing"

	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/spec"
)

var checkInput = []byte("123456789")

func intp(v int) *int { return &v }

// checkFrame appends zeroed storage after data and builds a Def covering
// exactly data.
func checkFrame(t *testing.T, c spec.Checksum, width int) (*Def, []byte) {
	t.Helper()
	c.Range = &spec.Range{From: 0, To: len(checkInput) - 1}
	c.StoreAt = -width
	d, err := Compile(&c)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	frame := append(append([]byte(nil), checkInput...), make([]byte, width)...)
	return d, frame
}

func TestCRCCheckValues(t *testing.T) {
	tests := []struct {
		name   string
		typ    string
		store  string
		params spec.ChecksumParams
		want   uint32
	}{
		{"CRC-16/CCITT-FALSE", "crc16", "uint16_be", spec.ChecksumParams{Poly: 0x1021, Init: 0xFFFF}, 0x29B1},
		{"CRC-16/XMODEM", "crc16", "uint16_be", spec.ChecksumParams{Poly: 0x1021}, 0x31C3},
		{"CRC-16/KERMIT", "crc16", "uint16_le", spec.ChecksumParams{Poly: 0x1021, RefIn: true, RefOut: true}, 0x2189},
		{"CRC-16/KERMIT reflected poly", "crc16", "uint16_le", spec.ChecksumParams{Poly: 0x8408, RefIn: true, RefOut: true, PolyForm: "reflected"}, 0x2189},
		{"CRC-16/MODBUS", "crc16", "uint16_le", spec.ChecksumParams{Poly: 0x8005, Init: 0xFFFF, RefIn: true, RefOut: true}, 0x4B37},
		{"CRC-16/ARC", "crc16", "uint16_le", spec.ChecksumParams{Poly: 0x8005, RefIn: true, RefOut: true}, 0xBB3D},
		{"CRC-32", "crc32", "uint32_le", spec.ChecksumParams{Poly: 0x04C11DB7, Init: 0xFFFFFFFF, XorOut: 0xFFFFFFFF, RefIn: true, RefOut: true}, 0xCBF43926},
		{"CRC-32/BZIP2", "crc32", "uint32_be", spec.ChecksumParams{Poly: 0x04C11DB7, Init: 0xFFFFFFFF, XorOut: 0xFFFFFFFF}, 0xFC891918},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			width := 2
			if tt.typ == "crc32" {
				width = 4
			}
			d, frame := checkFrame(t, spec.Checksum{Type: tt.typ, StoreFormat: tt.store, Params: tt.params}, width)
			got, err := d.Compute(frame)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got != tt.want {
				t.Errorf("Compute = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestSimpleCheckValues(t *testing.T) {
	tests := []struct {
		typ   string
		width int
		want  uint32
	}{
		{"sum8", 1, 0xDD},
		{"cs15", 2, 0x0E2F},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			d, frame := checkFrame(t, spec.Checksum{Type: tt.typ}, tt.width)
			got, err := d.Compute(frame)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if got != tt.want {
				t.Errorf("Compute = 0x%X, want 0x%X", got, tt.want)
			}
		})
	}
}

func TestCS15OddLength(t *testing.T) {
	d, err := Compile(&spec.Checksum{Type: "cs15", Range: &spec.Range{From: 0, To: 2}, StoreAt: 3})
	if err != nil {
		t.Fatal(err)
	}
	got, err := d.Compute([]byte{0x01, 0x02, 0x03, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x0405 {
		t.Errorf("Compute = 0x%X, want 0x0405", got)
	}
}

func TestXOR16Slices(t *testing.T) {
	to := -3
	c := &spec.Checksum{
		Type:    "xor16_slices",
		StoreAt: -2,
		Params: spec.ChecksumParams{
			SeedLowOffsets: []int{0},
			SeedUpOffsets:  []int{1},
			DataSlices: []spec.Slice{
				{From: 2, To: &to, Stride: intp(2), LowRelOffsets: []int{0}, UpRelOffsets: []int{1, 100}},
			},
		},
	}
	d, err := Compile(c)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if d.Format != codec.Uint16LE {
		t.Errorf("default format = %s, want uint16_le", d.Format)
	}

	frame := make([]byte, 16)
	for i := range frame {
		frame[i] = byte(0x10 + i)
	}
	got, err := d.Compute(frame)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x1F1E {
		t.Errorf("Compute = 0x%X, want 0x1F1E", got)
	}
}

func TestSealThenVerify(t *testing.T) {
	to := -3
	defs := map[string]*spec.Checksum{
		"sum8":  {Type: "sum8", Range: &spec.Range{From: 0, To: -2}, StoreAt: -1},
		"cs15":  {Type: "cs15", Range: &spec.Range{From: 2, To: -3}, StoreAt: -2, StoreFormat: "uint16_be"},
		"crc16": {Type: "crc16", Range: &spec.Range{From: 0, To: -2}, StoreAt: -2, StoreFormat: "uint16_le", Params: spec.ChecksumParams{Poly: 0x1021, Init: 0xFFFF}},
		"crc32": {Type: "crc32", Range: &spec.Range{From: 0, To: -1}, StoreAt: 2, StoreFormat: "uint32_le", Params: spec.ChecksumParams{Poly: 0x04C11DB7, Init: 0xFFFFFFFF, XorOut: 0xFFFFFFFF, RefIn: true, RefOut: true}},
		"xor16": {Type: "xor16_slices", StoreAt: -2, Params: spec.ChecksumParams{DataSlices: []spec.Slice{{From: 0, To: &to, LowRelOffsets: []int{0}}}}},
	}

	for name, c := range defs {
		t.Run(name, func(t *testing.T) {
			d, err := Compile(c)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			frame := []byte{0xAA, 0x55, 0x09, 0x10, 0x83, 0x1F, 0x42, 0x00, 0x00, 0x00, 0x00, 0x00}
			if err := d.Seal(frame); err != nil {
				t.Fatalf("Seal: %v", err)
			}
			if !d.Verify(frame) {
				t.Fatal("Verify after Seal = false")
			}
			// Flip a byte the checksum covers and is not stored in.
			lo, _, err := d.Span(len(frame))
			if err != nil {
				t.Fatal(err)
			}
			at, _ := d.StoreSpan(len(frame))
			i := lo
			if i >= at && i < at+d.Width() {
				i = at + d.Width()
			}
			frame[i] ^= 0x01
			if d.Verify(frame) {
				t.Error("Verify after corruption = true")
			}
		})
	}
}

func TestSpanTruncatesAtStore(t *testing.T) {
	d, err := Compile(&spec.Checksum{
		Type: "crc16", Range: &spec.Range{From: 0, To: -2}, StoreAt: -2, StoreFormat: "uint16_le",
		Params: spec.ChecksumParams{Poly: 0x1021, Init: 0xFFFF},
	})
	if err != nil {
		t.Fatal(err)
	}
	lo, hi, err := d.Span(10)
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0 || hi != 7 {
		t.Errorf("Span(10) = [%d,%d], want [0,7]", lo, hi)
	}
	if d.MinFrameLen() != 2 || d.Trailing() != 2 {
		t.Errorf("MinFrameLen=%d Trailing=%d, want 2, 2", d.MinFrameLen(), d.Trailing())
	}
}

func TestOutOfBounds(t *testing.T) {
	d, err := Compile(&spec.Checksum{Type: "sum8", Range: &spec.Range{From: 4, To: 9}, StoreAt: 10})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Compute(make([]byte, 8)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Compute on short frame: %v, want ErrOutOfBounds", err)
	}
	if d.Verify(make([]byte, 8)) {
		t.Error("Verify on short frame = true")
	}
	if err := d.Store(make([]byte, 8), 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Store on short frame: %v", err)
	}
}

func TestXOR16DefaultStride(t *testing.T) {
	to := 3
	d, err := Compile(&spec.Checksum{
		Type:    "xor16_slices",
		StoreAt: -2,
		Params: spec.ChecksumParams{
			DataSlices: []spec.Slice{{From: 0, To: &to, LowRelOffsets: []int{0}}},
		},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	got, err := d.Compute([]byte{0x01, 0x02, 0x04, 0x08, 0x00, 0x00})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got != 0x000F {
		t.Errorf("Compute = 0x%04X, want 0x000F", got)
	}
}

func TestCompileRejects(t *testing.T) {
	r := &spec.Range{From: 0, To: -2}
	tests := []struct {
		name string
		c    spec.Checksum
	}{
		{"crc without store format", spec.Checksum{Type: "crc16", Range: r, StoreAt: -2, Params: spec.ChecksumParams{Poly: 0x1021}}},
		{"crc32 in two bytes", spec.Checksum{Type: "crc32", Range: r, StoreAt: -2, StoreFormat: "uint16_le", Params: spec.ChecksumParams{Poly: 0x04C11DB7}}},
		{"poly too wide", spec.Checksum{Type: "crc16", Range: r, StoreAt: -2, StoreFormat: "uint16_le", Params: spec.ChecksumParams{Poly: 0x11021}}},
		{"zero poly", spec.Checksum{Type: "crc16", Range: r, StoreAt: -2, StoreFormat: "uint16_le"}},
		{"bad poly form", spec.Checksum{Type: "crc16", Range: r, StoreAt: -2, StoreFormat: "uint16_le", Params: spec.ChecksumParams{Poly: 0x1021, PolyForm: "mirrored"}}},
		{"missing range", spec.Checksum{Type: "sum8", StoreAt: -1}},
		{"signed store format", spec.Checksum{Type: "sum8", Range: r, StoreAt: -1, StoreFormat: "int8"}},
		{"store overruns end", spec.Checksum{Type: "cs15", Range: r, StoreAt: -1}},
		{"reversed range", spec.Checksum{Type: "sum8", Range: &spec.Range{From: 5, To: 2}, StoreAt: -1}},
		{"empty xor16", spec.Checksum{Type: "xor16_slices", StoreAt: -2}},
		{"negative stride", spec.Checksum{Type: "xor16_slices", StoreAt: -2, Params: spec.ChecksumParams{DataSlices: []spec.Slice{{Stride: intp(-1)}}}}},
		{"zero stride", spec.Checksum{Type: "xor16_slices", StoreAt: -2, Params: spec.ChecksumParams{DataSlices: []spec.Slice{{Stride: intp(0), LowRelOffsets: []int{0}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(&tt.c)
			if !errors.Is(err, spec.ErrMalformed) {
				t.Errorf("Compile error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestUnsupportedType(t *testing.T) {
	_, err := Compile(&spec.Checksum{Type: "md5"})
	var ute *UnsupportedTypeError
	if !errors.As(err, &ute) || ute.Type != "md5" {
		t.Fatalf("Compile error = %v, want *UnsupportedTypeError", err)
	}
	if !errors.Is(err, ErrUnsupportedType) || !errors.Is(err, spec.ErrMalformed) {
		t.Error("UnsupportedTypeError should match ErrUnsupportedType and spec.ErrMalformed")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindSum8, KindCS15, KindXOR16Slices, KindCRC16, KindCRC32} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
}
