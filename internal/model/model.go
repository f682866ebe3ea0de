// Package model compiles a frame definition from a protocol document into
// the validated, immutable form the decoder, encoder and session execute.
//
// Every value a frame definition carries is checked here, once. Problems are
// reported as *spec.MalformedError (or *checksum.UnsupportedTypeError) and
// never surface while a stream is being decoded.
package model

import (
	"fmt"

	"github.com/lj123as/Device-Verification-Kit/internal/checksum"
	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/spec"
)

// LengthMode selects how a frame's total length is found.
type LengthMode uint8

const (
	LengthFixed LengthMode = iota + 1
	LengthDynamic
	LengthCounted
)

func (m LengthMode) String() string {
	switch m {
	case LengthFixed:
		return spec.LengthFixed
	case LengthDynamic:
		return spec.LengthDynamic
	case LengthCounted:
		return spec.LengthCounted
	default:
		return "invalid"
	}
}

// LengthRule is the compiled length descriptor.
//
//	fixed:   total = Fixed
//	dynamic: total = value(field) + Overhead
//	counted: total = value(field)*Unit + Overhead
type LengthRule struct {
	Mode     LengthMode
	Fixed    int
	Offset   int // absolute offset of the length or count field
	Type     codec.Type
	Overhead int
	Unit     int
}

// FieldEnd is the first byte after the length or count field; zero for
// fixed frames.
func (r LengthRule) FieldEnd() int {
	if r.Mode == LengthFixed {
		return 0
	}
	return r.Offset + r.Type.Width()
}

// Field is one compiled entry of the field table.
type Field struct {
	Name   string
	Offset int // negative counts from the frame end
	Length int // constant length; unused when Ref >= 0
	Type   codec.Type
	Unit   string

	// Ref is the index of the integer field whose value sizes this field,
	// or -1. Length is then value(Ref)*Mul + Add.
	Ref      int
	Mul, Add int
}

// Fixed reports whether the field's length is known without reading the
// frame.
func (f Field) Fixed() bool { return f.Ref < 0 }

// Model is a compiled frame definition.
type Model struct {
	Protocol string
	Name     string
	Header   []byte
	Length   LengthRule
	Fields   []Field
	Checksum *checksum.Def // nil when the frame carries no checksum

	// CommandField is the index of the field carrying the command id, or -1.
	CommandField int
	// PayloadOffset is where encoded command parameters start.
	PayloadOffset int

	// Commands is the optional command table used for encoding.
	Commands *CommandTable

	index map[string]int
}

// New compiles a frame definition.
func New(f *spec.Frame) (*Model, error) {
	m := &Model{
		Name:         f.Name,
		CommandField: -1,
		index:        make(map[string]int, len(f.Fields)),
	}
	if len(f.Header) == 0 {
		return nil, spec.Malformed("header", "header must contain at least one byte")
	}
	m.Header = append([]byte(nil), f.Header...)

	if err := m.compileFields(f.Fields); err != nil {
		return nil, err
	}
	if err := m.compileLength(&f.Length); err != nil {
		return nil, err
	}
	if f.Checksum != nil {
		def, err := checksum.Compile(f.Checksum)
		if err != nil {
			return nil, err
		}
		m.Checksum = def
	}
	if err := m.checkLayout(); err != nil {
		return nil, err
	}
	if err := m.compileEncodeLayout(f); err != nil {
		return nil, err
	}
	return m, nil
}

// Load compiles the named frame of a protocol (the first when frame is
// empty) and, when cs is non-nil, its command table.
func Load(p *spec.Protocol, frame string, cs *spec.CommandSet) (*Model, error) {
	f, err := p.Frame(frame)
	if err != nil {
		return nil, err
	}
	m, err := New(f)
	if err != nil {
		return nil, err
	}
	m.Protocol = p.ID
	if cs != nil {
		if m.Commands, err = CompileCommands(cs); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FieldIndex returns the position of the named field in Fields.
func (m *Model) FieldIndex(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// Field returns the named field.
func (m *Model) Field(name string) (Field, bool) {
	i, ok := m.index[name]
	if !ok {
		return Field{}, false
	}
	return m.Fields[i], true
}

// MinFrameLen is the shortest total length that can hold the header, the
// length field and the stored checksum.
func (m *Model) MinFrameLen() int {
	n := max(len(m.Header), m.Length.FieldEnd())
	if m.Checksum != nil {
		n = max(n, m.Checksum.MinFrameLen())
	}
	return n
}

func (m *Model) compileFields(fields []spec.Field) error {
	for i, sf := range fields {
		path := fmt.Sprintf("fields[%d]", i)
		if sf.Name == "" {
			return spec.Malformed(path+".name", "field name is required")
		}
		if _, dup := m.index[sf.Name]; dup {
			return spec.Malformed(path+".name", "duplicate field name %q", sf.Name)
		}
		t, err := codec.ParseType(sf.Type)
		if err != nil {
			return spec.Malformed(path+".type", "%v", err)
		}
		f := Field{Name: sf.Name, Offset: sf.Offset, Type: t, Unit: sf.Unit, Ref: -1}

		if sf.Length.IsRef() {
			ref, ok := m.index[sf.Length.Ref]
			if !ok {
				return spec.Malformed(path+".length.ref", "%q is not a field declared before %q", sf.Length.Ref, sf.Name)
			}
			if !m.Fields[ref].Type.IsInteger() {
				return spec.Malformed(path+".length.ref", "%q is not an integer field", sf.Length.Ref)
			}
			if t != codec.Bytes {
				return spec.Malformed(path+".length", "only bytes fields may take a referenced length")
			}
			f.Ref, f.Mul, f.Add = ref, sf.Length.Mul, sf.Length.Add
		} else {
			f.Length = sf.Length.Fixed
			switch {
			case t == codec.Bytes && f.Length <= 0:
				return spec.Malformed(path+".length", "bytes field needs a positive length")
			case t != codec.Bytes && f.Length == 0:
				f.Length = t.Width()
			case t != codec.Bytes && f.Length != t.Width():
				return spec.Malformed(path+".length", "%s is %d bytes, length says %d", t, t.Width(), f.Length)
			}
		}

		m.index[sf.Name] = len(m.Fields)
		m.Fields = append(m.Fields, f)
	}
	return nil
}

func (m *Model) compileLength(l *spec.Length) error {
	switch l.Mode {
	case "", spec.LengthFixed:
		if l.Value <= 0 {
			return spec.Malformed("length.value", "fixed length must be positive")
		}
		if l.Value < len(m.Header) {
			return spec.Malformed("length.value", "fixed length %d is shorter than the header", l.Value)
		}
		m.Length = LengthRule{Mode: LengthFixed, Fixed: l.Value}
		return nil
	case spec.LengthDynamic:
		r, err := m.lengthField("length.field", l.Field)
		if err != nil {
			return err
		}
		r.Mode = LengthDynamic
		m.Length = r
	case spec.LengthCounted:
		r, err := m.lengthField("length.count_field", l.CountField)
		if err != nil {
			return err
		}
		if l.UnitBytes <= 0 {
			return spec.Malformed("length.unit_bytes", "counted length needs positive unit_bytes")
		}
		r.Mode = LengthCounted
		r.Unit = l.UnitBytes
		m.Length = r
	default:
		return spec.Malformed("length.mode", "unknown length mode %q", l.Mode)
	}
	if l.OverheadBytes < 0 {
		return spec.Malformed("length.overhead_bytes", "overhead must not be negative")
	}
	m.Length.Overhead = l.OverheadBytes
	return nil
}

// lengthField resolves a length or count field reference. Inline
// references default to a one-byte uint8 at offset 0.
func (m *Model) lengthField(path string, ref *spec.FieldRef) (LengthRule, error) {
	if ref == nil {
		return LengthRule{}, spec.Malformed(path, "length field is required")
	}
	var r LengthRule
	if ref.Ref != "" {
		f, ok := m.Field(ref.Ref)
		if !ok {
			return LengthRule{}, spec.Malformed(path+".ref", "unknown field %q", ref.Ref)
		}
		r.Offset, r.Type = f.Offset, f.Type
	} else {
		if ref.Offset != nil {
			r.Offset = *ref.Offset
		}
		r.Type = codec.Uint8
		if ref.Type != "" {
			t, err := codec.ParseType(ref.Type)
			if err != nil {
				return LengthRule{}, spec.Malformed(path+".type", "%v", err)
			}
			r.Type = t
		}
		if ref.Length != 0 && ref.Length != r.Type.Width() {
			return LengthRule{}, spec.Malformed(path+".length", "%s is %d bytes, length says %d", r.Type, r.Type.Width(), ref.Length)
		}
	}
	if !r.Type.IsInteger() {
		return LengthRule{}, spec.Malformed(path+".type", "%s is not an integer type", r.Type)
	}
	if r.Offset < 0 {
		return LengthRule{}, spec.Malformed(path+".offset", "length field must sit at a non-negative offset")
	}
	return r, nil
}

// checkLayout rejects field overlaps that can be decided without a frame,
// and for fixed frames every field and checksum bound.
func (m *Model) checkLayout() error {
	fixed := 0
	if m.Length.Mode == LengthFixed {
		fixed = m.Length.Fixed
	}

	type span struct{ lo, hi int }
	spanOf := func(f Field) (span, bool) {
		if !f.Fixed() {
			return span{}, false
		}
		lo := f.Offset
		if lo < 0 && fixed > 0 {
			lo += fixed
		}
		return span{lo, lo + f.Length}, true
	}
	// Spans on opposite sides of the frame only compare once the length is
	// known.
	sameSide := func(a, b Field) bool {
		return fixed > 0 || (a.Offset < 0) == (b.Offset < 0)
	}

	for i, f := range m.Fields {
		s, ok := spanOf(f)
		if !ok {
			continue
		}
		if fixed > 0 && (s.lo < 0 || s.hi > fixed) {
			return spec.Malformed(fmt.Sprintf("fields[%d]", i), "%q spans [%d,%d) outside a %d-byte frame", f.Name, s.lo, s.hi, fixed)
		}
		if f.Offset < 0 && fixed == 0 && s.hi > 0 {
			return spec.Malformed(fmt.Sprintf("fields[%d]", i), "%q runs past the frame end", f.Name)
		}
		for j := range i {
			g := m.Fields[j]
			t, ok := spanOf(g)
			if !ok || !sameSide(f, g) {
				continue
			}
			if s.lo < t.hi && t.lo < s.hi {
				return spec.Malformed(fmt.Sprintf("fields[%d]", i), "%q overlaps %q", f.Name, g.Name)
			}
		}
	}

	if fixed > 0 {
		if end := m.Length.FieldEnd(); end > fixed {
			return spec.Malformed("length", "length field ends past the %d-byte frame", fixed)
		}
		if m.Checksum != nil {
			if _, _, err := m.Checksum.Span(fixed); err != nil {
				return spec.Malformed("checksum", "%v", err)
			}
		}
	}
	return nil
}

func (m *Model) compileEncodeLayout(f *spec.Frame) error {
	end := max(len(m.Header), m.Length.FieldEnd())
	if f.CommandField != "" {
		i, ok := m.index[f.CommandField]
		if !ok {
			return spec.Malformed("command_field", "unknown field %q", f.CommandField)
		}
		cf := m.Fields[i]
		if !cf.Type.IsInteger() || cf.Offset < 0 {
			return spec.Malformed("command_field", "%q must be an integer field at a non-negative offset", cf.Name)
		}
		m.CommandField = i
		end = max(end, cf.Offset+cf.Length)
	}
	m.PayloadOffset = end
	if f.PayloadOffset != nil {
		if *f.PayloadOffset < 0 {
			return spec.Malformed("payload_offset", "payload offset must not be negative")
		}
		m.PayloadOffset = *f.PayloadOffset
	}
	return nil
}
