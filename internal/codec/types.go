package codec

// Field type tags understood by the framing engine.
//
// The set is closed: every tag a protocol document may use maps onto one of
// the Type constants below, and every switch over Type in this module is
// exhaustive. Adding a type means adding a constant, a typeTable row and the
// matching cases; nothing is looked up by name at decode time.

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Type identifies how a field's bytes are interpreted.
type Type uint8

const (
	TypeInvalid Type = iota
	Uint8
	Int8
	Uint16LE
	Uint16BE
	Int16LE
	Int16BE
	Uint32LE
	Uint32BE
	Int32LE
	Int32BE
	Uint64LE
	Uint64BE
	Int64LE
	Int64BE
	Float32LE
	Float32BE
	Float64LE
	Float64BE
	Bytes
)

// Kind groups types by value representation.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindUnsigned
	KindSigned
	KindFloat
	KindBytes
)

type typeInfo struct {
	tag   string
	width int // 0 = variable (bytes)
	kind  Kind
	order binary.ByteOrder
}

var typeTable = [...]typeInfo{
	TypeInvalid: {tag: "invalid"},
	Uint8:       {"uint8", 1, KindUnsigned, binary.LittleEndian},
	Int8:        {"int8", 1, KindSigned, binary.LittleEndian},
	Uint16LE:    {"uint16_le", 2, KindUnsigned, binary.LittleEndian},
	Uint16BE:    {"uint16_be", 2, KindUnsigned, binary.BigEndian},
	Int16LE:     {"int16_le", 2, KindSigned, binary.LittleEndian},
	Int16BE:     {"int16_be", 2, KindSigned, binary.BigEndian},
	Uint32LE:    {"uint32_le", 4, KindUnsigned, binary.LittleEndian},
	Uint32BE:    {"uint32_be", 4, KindUnsigned, binary.BigEndian},
	Int32LE:     {"int32_le", 4, KindSigned, binary.LittleEndian},
	Int32BE:     {"int32_be", 4, KindSigned, binary.BigEndian},
	Uint64LE:    {"uint64_le", 8, KindUnsigned, binary.LittleEndian},
	Uint64BE:    {"uint64_be", 8, KindUnsigned, binary.BigEndian},
	Int64LE:     {"int64_le", 8, KindSigned, binary.LittleEndian},
	Int64BE:     {"int64_be", 8, KindSigned, binary.BigEndian},
	Float32LE:   {"float32_le", 4, KindFloat, binary.LittleEndian},
	Float32BE:   {"float32_be", 4, KindFloat, binary.BigEndian},
	Float64LE:   {"float64_le", 8, KindFloat, binary.LittleEndian},
	Float64BE:   {"float64_be", 8, KindFloat, binary.BigEndian},
	Bytes:       {tag: "bytes", kind: KindBytes},
}

// ParseType maps a type tag (e.g. "int16_le") onto a Type.
func ParseType(tag string) (Type, error) {
	norm := strings.ToLower(strings.TrimSpace(tag))
	for t := Uint8; t <= Bytes; t++ {
		if typeTable[t].tag == norm {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("%w: %q", ErrUnknownType, tag)
}

// MustParseType is ParseType for tags known at compile time.
func MustParseType(tag string) Type {
	t, err := ParseType(tag)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the protocol tag for the type.
func (t Type) String() string {
	if int(t) >= len(typeTable) {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return typeTable[t].tag
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	return t > TypeInvalid && t <= Bytes
}

// Width is the encoded size in bytes, or 0 for variable-length bytes.
func (t Type) Width() int {
	if !t.Valid() {
		return 0
	}
	return typeTable[t].width
}

// Kind reports the value representation of t.
func (t Type) Kind() Kind {
	if !t.Valid() {
		return KindInvalid
	}
	return typeTable[t].kind
}

// Order is the byte order of multi-byte types. Single-byte types report
// little endian, which is irrelevant for them.
func (t Type) Order() binary.ByteOrder {
	if !t.Valid() || typeTable[t].order == nil {
		return binary.LittleEndian
	}
	return typeTable[t].order
}

// IsInteger reports whether t holds a signed or unsigned integer.
func (t Type) IsInteger() bool {
	k := t.Kind()
	return k == KindSigned || k == KindUnsigned
}

// IsNumeric reports whether t holds an integer or float.
func (t Type) IsNumeric() bool {
	return t.IsInteger() || t.Kind() == KindFloat
}

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnsigned:
		return "unsigned"
	case KindSigned:
		return "signed"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}
