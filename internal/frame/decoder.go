package frame

import (
	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/model"
	"github.com/lj123as/Device-Verification-Kit/internal/semantic"
)

// Frame is one decoded frame. It is not modified after Decode returns.
type Frame struct {
	Raw []byte
	// Fields holds raw values by name; failed fields are undecodable values.
	Fields map[string]codec.Value
	// Semantic holds the unit and enum annotated projection.
	Semantic map[string]semantic.Value
	// Layout holds the absolute span of every field in model order.
	Layout []Span

	// ChecksumOK is true when the stored checksum matches, or the frame
	// declares none.
	ChecksumOK bool
	// Valid is ChecksumOK with every field decoded.
	Valid bool

	Offset      int64 // stream offset of Raw[0]; -1 when unknown
	Index       int   // emission sequence number within a session
	FieldErrors []error
}

// Value returns the raw value of a field.
func (f *Frame) Value(name string) (codec.Value, bool) {
	v, ok := f.Fields[name]
	return v, ok
}

// Decoder turns validated frame bytes into field values.
type Decoder struct {
	m     *model.Model
	table *semantic.Table
}

// NewDecoder builds a decoder. table may be nil.
func NewDecoder(m *model.Model, table *semantic.Table) *Decoder {
	return &Decoder{m: m, table: table}
}

// Model returns the model the decoder executes.
func (d *Decoder) Model() *model.Model { return d.m }

// Decode decodes raw, a complete frame. Every field is attempted; a field
// outside the frame is recorded as a *FieldOutOfBoundsError and set to an
// undecodable value. raw is copied.
func (d *Decoder) Decode(raw []byte) *Frame {
	n := len(raw)
	fr := &Frame{
		Raw:        append([]byte(nil), raw...),
		Fields:     make(map[string]codec.Value, len(d.m.Fields)),
		Semantic:   make(map[string]semantic.Value, len(d.m.Fields)),
		Layout:     make([]Span, len(d.m.Fields)),
		ChecksumOK: true,
		Offset:     -1,
	}

	vals := make([]codec.Value, len(d.m.Fields))
	for i, f := range d.m.Fields {
		lo, length, ok := d.resolveSpan(i, n, vals)
		if ok {
			hi := lo + int(length)
			v, err := codec.Read(fr.Raw[lo:hi], f.Type)
			if err == nil {
				vals[i] = v
				fr.Layout[i] = Span{Lo: lo, Hi: hi, OK: true}
			} else {
				ok = false
			}
		}
		if !ok {
			vals[i] = codec.UndecodableValue(f.Type)
			fr.Layout[i] = Span{Lo: lo, Hi: lo}
			fr.FieldErrors = append(fr.FieldErrors, &FieldOutOfBoundsError{Field: f.Name, Offset: lo, Length: length, FrameLen: n})
		}
		fr.Fields[f.Name] = vals[i]
		fr.Semantic[f.Name] = d.table.Project(f.Name, vals[i], f.Unit)
	}

	if d.m.Checksum != nil {
		fr.ChecksumOK = d.m.Checksum.Verify(fr.Raw)
	}
	fr.Valid = fr.ChecksumOK && len(fr.FieldErrors) == 0
	return fr
}
