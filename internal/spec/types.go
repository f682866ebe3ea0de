package spec

// Length modes.
const (
	LengthFixed   = "fixed"
	LengthDynamic = "dynamic"
	LengthCounted = "counted"
)

// Protocol is a protocol document: a set of named frame definitions.
type Protocol struct {
	ID          string  `yaml:"protocol_id"`
	Name        string  `yaml:"name,omitempty"`
	Version     string  `yaml:"version,omitempty"`
	Description string  `yaml:"description,omitempty"`
	Frames      []Frame `yaml:"frames"`
}

// Frame describes one frame layout.
type Frame struct {
	Name     string    `yaml:"name"`
	Header   HexBytes  `yaml:"header"`
	Length   Length    `yaml:"length"`
	Fields   []Field   `yaml:"fields"`
	Checksum *Checksum `yaml:"checksum,omitempty"`

	// Encode layout hints. CommandField names the field that carries the
	// command id; PayloadOffset is the first payload byte.
	CommandField  string `yaml:"command_field,omitempty"`
	PayloadOffset *int   `yaml:"payload_offset,omitempty"`
}

// Length is the frame length rule.
type Length struct {
	Mode          string    `yaml:"mode"`
	Value         int       `yaml:"value,omitempty"`
	Field         *FieldRef `yaml:"field,omitempty"`
	CountField    *FieldRef `yaml:"count_field,omitempty"`
	OverheadBytes int       `yaml:"overhead_bytes,omitempty"`
	UnitBytes     int       `yaml:"unit_bytes,omitempty"`
}

// FieldRef locates a length or count field, either inline (offset, length,
// type) or by naming a declared field.
type FieldRef struct {
	Ref    string `yaml:"ref,omitempty"`
	Offset *int   `yaml:"offset,omitempty"`
	Length int    `yaml:"length,omitempty"`
	Type   string `yaml:"type,omitempty"`
}

// Field is one entry of a frame's field table.
type Field struct {
	Name        string      `yaml:"name"`
	Offset      int         `yaml:"offset"`
	Length      FieldLength `yaml:"length"`
	Type        string      `yaml:"type"`
	Unit        string      `yaml:"unit,omitempty"`
	Description string      `yaml:"description,omitempty"`
}

// FieldLength is either a constant byte count or a reference to an earlier
// integer field: value(Ref)*Mul + Add.
type FieldLength struct {
	Fixed int
	Ref   string
	Mul   int
	Add   int
}

// IsRef reports whether the length depends on another field.
func (l FieldLength) IsRef() bool { return l.Ref != "" }

// Range is an inclusive byte span; negative offsets count from the frame end.
type Range struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Checksum describes the integrity check of a frame.
type Checksum struct {
	Type        string         `yaml:"type"`
	Range       *Range         `yaml:"range,omitempty"`
	StoreAt     int            `yaml:"store_at"`
	StoreFormat string         `yaml:"store_format,omitempty"`
	Params      ChecksumParams `yaml:"params,omitempty"`
}

// ChecksumParams carries algorithm-specific parameters. CRC families use
// Poly..PolyForm; xor16_slices uses the offset lists and DataSlices.
type ChecksumParams struct {
	Poly     HexUint `yaml:"poly,omitempty"`
	Init     HexUint `yaml:"init,omitempty"`
	XorOut   HexUint `yaml:"xorout,omitempty"`
	RefIn    bool    `yaml:"refin,omitempty"`
	RefOut   bool    `yaml:"refout,omitempty"`
	PolyForm string  `yaml:"poly_form,omitempty"`

	SeedLowOffsets []int   `yaml:"seed_low_offsets,omitempty"`
	SeedUpOffsets  []int   `yaml:"seed_up_offsets,omitempty"`
	DataSlices     []Slice `yaml:"data_slices,omitempty"`
}

// Slice is one strided span of an xor16_slices checksum.
type Slice struct {
	From          int   `yaml:"from"`
	To            *int  `yaml:"to,omitempty"`
	Stride        *int  `yaml:"stride,omitempty"`
	LowRelOffsets []int `yaml:"low_rel_offsets,omitempty"`
	UpRelOffsets  []int `yaml:"up_rel_offsets,omitempty"`
}

// CommandSet is a command document.
type CommandSet struct {
	ID        string     `yaml:"command_set_id"`
	Device    string     `yaml:"device,omitempty"`
	Protocol  string     `yaml:"protocol,omitempty"`
	Commands  []Command  `yaml:"commands"`
	Telemetry *Telemetry `yaml:"telemetry,omitempty"`
}

// Command is one encodable command.
type Command struct {
	Name        string    `yaml:"name"`
	ID          HexUint   `yaml:"id"`
	Description string    `yaml:"description,omitempty"`
	Frame       string    `yaml:"frame,omitempty"`
	Params      []Param   `yaml:"params,omitempty"`
	Payload     []Param   `yaml:"payload,omitempty"`
	Response    *Response `yaml:"response,omitempty"`
}

// Parameters returns the declared parameters. Older command sets list
// them under "payload".
func (c Command) Parameters() []Param {
	if len(c.Params) > 0 {
		return c.Params
	}
	return c.Payload
}

// Param is one command parameter.
type Param struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Range       *ParamRange `yaml:"range,omitempty"`
	Default     any         `yaml:"default,omitempty"`
	Unit        string      `yaml:"unit,omitempty"`
	Description string      `yaml:"description,omitempty"`
}

// ParamRange bounds a numeric parameter; either side may be open.
type ParamRange struct {
	Min *float64
	Max *float64
}

// Response lists the semantic shape of a command's reply.
type Response struct {
	Frame  string          `yaml:"frame,omitempty"`
	Fields []SemanticField `yaml:"fields"`
}

// Telemetry holds semantic rules for unsolicited frames.
type Telemetry struct {
	Fields []SemanticField `yaml:"fields,omitempty"`
}

// SemanticField maps a raw field onto an engineering value:
// value = raw*Scale + Offset, labelled with Unit or an Enum entry.
type SemanticField struct {
	Name   string            `yaml:"name"`
	Scale  *float64          `yaml:"scale,omitempty"`
	Offset float64           `yaml:"offset,omitempty"`
	Unit   string            `yaml:"unit,omitempty"`
	Label  string            `yaml:"label,omitempty"`
	Enum   map[string]string `yaml:"enum,omitempty"`
}
