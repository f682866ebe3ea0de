// Package checksum computes and verifies frame integrity checks described by
// a protocol document: sum8, cs15, xor16_slices and parameterised CRC-16 /
// CRC-32.
package checksum

import (
	"errors"
	"fmt"

	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/spec"
)

var (
	// ErrUnsupportedType is the errors.Is target of *UnsupportedTypeError.
	ErrUnsupportedType = errors.New("checksum: unsupported checksum type")
	// ErrOutOfBounds reports a range or store position outside the frame.
	ErrOutOfBounds = errors.New("checksum: range outside frame")
)

// UnsupportedTypeError reports a checksum tag outside the supported set. It
// is a configuration error and also matches spec.ErrMalformed.
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("checksum: unsupported checksum type %q", e.Type)
}

// Is matches ErrUnsupportedType and spec.ErrMalformed.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType || target == spec.ErrMalformed
}

// Def is a compiled checksum descriptor. It is immutable and safe to share
// between sessions.
type Def struct {
	Kind    Kind
	From    int // inclusive range start, negative counts from the frame end
	To      int // inclusive range end
	StoreAt int
	Format  codec.Type

	algo algorithm
}

// Compile validates a checksum block and builds its Def.
func Compile(c *spec.Checksum) (*Def, error) {
	kind, err := ParseKind(c.Type)
	if err != nil {
		return nil, err
	}

	d := &Def{Kind: kind, StoreAt: c.StoreAt}
	p := c.Params

	switch kind {
	case KindSum8:
		d.algo = sum8{}
	case KindCS15:
		d.algo = cs15{}
	case KindXOR16Slices:
		x, err := compileXOR16(p)
		if err != nil {
			return nil, err
		}
		d.algo = x
	case KindCRC16, KindCRC32:
		x, err := compileCRC(kind, p)
		if err != nil {
			return nil, err
		}
		d.algo = x
	}

	d.Format, err = storeFormat(kind, c.StoreFormat)
	if err != nil {
		return nil, err
	}
	if d.Format.Width()*8 < d.algo.bits() {
		return nil, spec.Malformed("checksum.store_format", "%s cannot hold a %d-bit %s value", d.Format, d.algo.bits(), kind)
	}
	if c.StoreAt < 0 && -c.StoreAt < d.Format.Width() {
		return nil, spec.Malformed("checksum.store_at", "%d leaves no room for %d stored bytes", c.StoreAt, d.Format.Width())
	}

	if d.algo.usesRange() {
		if c.Range == nil {
			return nil, spec.Malformed("checksum.range", "%s requires a range", kind)
		}
		d.From, d.To = c.Range.From, c.Range.To
		if d.From >= 0 && d.To >= 0 && d.To < d.From {
			return nil, spec.Malformed("checksum.range", "to %d precedes from %d", d.To, d.From)
		}
	}
	return d, nil
}

func storeFormat(kind Kind, tag string) (codec.Type, error) {
	if tag == "" {
		switch kind {
		case KindSum8:
			return codec.Uint8, nil
		case KindCS15, KindXOR16Slices:
			return codec.Uint16LE, nil
		default:
			return codec.TypeInvalid, spec.Malformed("checksum.store_format", "%s requires an explicit store_format", kind)
		}
	}
	t, err := codec.ParseType(tag)
	if err != nil || t.Kind() != codec.KindUnsigned || t.Width() > 4 {
		return codec.TypeInvalid, spec.Malformed("checksum.store_format", "unsupported store format %q", tag)
	}
	return t, nil
}

func compileCRC(kind Kind, p spec.ChecksumParams) (*crc, error) {
	width := 16
	if kind == KindCRC32 {
		width = 32
	}
	limit := uint64(1)<<width - 1
	for _, f := range []struct {
		name string
		v    spec.HexUint
	}{{"poly", p.Poly}, {"init", p.Init}, {"xorout", p.XorOut}} {
		if uint64(f.v) > limit {
			return nil, spec.Malformed("checksum.params."+f.name, "%s does not fit %d bits", f.v, width)
		}
	}
	if p.Poly == 0 {
		return nil, spec.Malformed("checksum.params.poly", "%s requires a non-zero poly", kind)
	}
	poly := uint32(p.Poly)
	switch p.PolyForm {
	case "", "normal":
	case "reflected":
		poly = reflect(poly, width)
	default:
		return nil, spec.Malformed("checksum.params.poly_form", "unknown poly form %q", p.PolyForm)
	}
	return newCRC(width, poly, uint32(p.Init), uint32(p.XorOut), p.RefIn, p.RefOut), nil
}

func compileXOR16(p spec.ChecksumParams) (*xor16Slices, error) {
	x := &xor16Slices{seedLow: p.SeedLowOffsets, seedUp: p.SeedUpOffsets}
	for i, s := range p.DataSlices {
		stride := 1
		if s.Stride != nil {
			stride = *s.Stride
		}
		if stride <= 0 {
			return nil, spec.Malformed(fmt.Sprintf("checksum.params.data_slices[%d].stride", i), "stride must be positive, got %d", stride)
		}
		x.slices = append(x.slices, xorSlice{
			from:   s.From,
			to:     s.To,
			stride: stride,
			low:    s.LowRelOffsets,
			up:     s.UpRelOffsets,
		})
	}
	if len(x.seedLow)+len(x.seedUp)+len(x.slices) == 0 {
		return nil, spec.Malformed("checksum.params", "xor16_slices needs seeds or data_slices")
	}
	return x, nil
}

// Width is the number of stored checksum bytes.
func (d *Def) Width() int { return d.Format.Width() }

// StoreSpan resolves the stored checksum bytes for a frame of n bytes to
// the absolute half-open span [at, at+Width()).
func (d *Def) StoreSpan(n int) (int, error) {
	at := d.StoreAt
	if at < 0 {
		at += n
	}
	if at < 0 || at+d.Width() > n {
		return 0, fmt.Errorf("%w: store_at %d, frame %d bytes", ErrOutOfBounds, d.StoreAt, n)
	}
	return at, nil
}

// MinFrameLen is the shortest frame able to hold the stored checksum.
func (d *Def) MinFrameLen() int {
	if d.StoreAt < 0 {
		return -d.StoreAt
	}
	return d.StoreAt + d.Width()
}

// Trailing is the number of bytes the stored checksum occupies at the end of
// the frame; zero when it is stored at a non-negative offset.
func (d *Def) Trailing() int {
	if d.StoreAt < 0 {
		return -d.StoreAt
	}
	return 0
}

// Span resolves the covered range for a frame of n bytes. A range that runs
// into the stored checksum is cut short just before it.
func (d *Def) Span(n int) (lo, hi int, err error) {
	if !d.algo.usesRange() {
		return 0, n - 1, nil
	}
	at, err := d.StoreSpan(n)
	if err != nil {
		return 0, 0, err
	}
	lo, hi = d.From, d.To
	if lo < 0 {
		lo += n
	}
	if hi < 0 {
		hi += n
	}
	if lo < at && hi >= at {
		hi = at - 1
	}
	if lo < 0 || hi >= n || hi < lo {
		return 0, 0, fmt.Errorf("%w: range [%d,%d], frame %d bytes", ErrOutOfBounds, d.From, d.To, n)
	}
	return lo, hi, nil
}

// Compute returns the checksum of frame.
func (d *Def) Compute(frame []byte) (uint32, error) {
	lo, hi, err := d.Span(len(frame))
	if err != nil {
		return 0, err
	}
	return d.algo.sum(frame, lo, hi), nil
}

// Expected reads the stored checksum from frame.
func (d *Def) Expected(frame []byte) (uint32, error) {
	at, err := d.StoreSpan(len(frame))
	if err != nil {
		return 0, err
	}
	w := d.Width()
	return uint32(codec.Uint(d.Format.Order(), frame[at:at+w], w)), nil
}

// Check computes and reads the checksum of frame in one call.
func (d *Def) Check(frame []byte) (computed, expected uint32, err error) {
	if computed, err = d.Compute(frame); err != nil {
		return 0, 0, err
	}
	if expected, err = d.Expected(frame); err != nil {
		return 0, 0, err
	}
	return computed, expected, nil
}

// Verify reports whether the stored checksum matches the computed one.
func (d *Def) Verify(frame []byte) bool {
	computed, expected, err := d.Check(frame)
	return err == nil && computed == expected
}

// Store writes value into the checksum bytes of frame.
func (d *Def) Store(frame []byte, value uint32) error {
	at, err := d.StoreSpan(len(frame))
	if err != nil {
		return err
	}
	w := d.Width()
	codec.PutUint(d.Format.Order(), frame[at:at+w], w, uint64(value))
	return nil
}

// Seal computes the checksum of frame and stores it in place.
func (d *Def) Seal(frame []byte) error {
	v, err := d.Compute(frame)
	if err != nil {
		return err
	}
	return d.Store(frame, v)
}
