package spec

// Custom YAML scalars used by protocol and command documents. Protocol
// documents write bytes and CRC parameters as "0x.." strings as often as
// plain integers, so both forms are accepted everywhere a number is expected.

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// HexUint is an unsigned integer written as a number or a "0x" string.
type HexUint uint64

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HexUint) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected integer, got %s", n.Line, nodeKind(n))
	}
	v, err := parseUint(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*h = HexUint(v)
	return nil
}

// String renders the value in hex.
func (h HexUint) String() string {
	return fmt.Sprintf("0x%X", uint64(h))
}

// HexBytes is a byte sequence written as a list of byte tokens
// (["0xAA", "0x55"] or [170, 85]) or as one hex string ("AA55").
type HexBytes []byte

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *HexBytes) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]byte, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: byte token must be a scalar", item.Line)
			}
			v, err := parseUint(item.Value)
			if err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			if v > 0xFF {
				return fmt.Errorf("line %d: byte token %q exceeds 0xFF", item.Line, item.Value)
			}
			out = append(out, byte(v))
		}
		*b = out
		return nil
	case yaml.ScalarNode:
		s := strings.TrimSpace(n.Value)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
		s = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(s)
		out, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("line %d: invalid hex bytes %q: %w", n.Line, n.Value, err)
		}
		*b = out
		return nil
	default:
		return fmt.Errorf("line %d: expected byte list or hex string, got %s", n.Line, nodeKind(n))
	}
}

// UnmarshalYAML implements yaml.Unmarshaler. A scalar is a constant
// length; a mapping is {ref, mul, add}.
func (l *FieldLength) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		v, err := strconv.ParseInt(strings.TrimSpace(n.Value), 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: field length %q: %w", n.Line, n.Value, err)
		}
		*l = FieldLength{Fixed: int(v)}
		return nil
	case yaml.MappingNode:
		var raw struct {
			Ref string `yaml:"ref"`
			Mul *int   `yaml:"mul"`
			Add int    `yaml:"add"`
		}
		if err := n.Decode(&raw); err != nil {
			return err
		}
		mul := 1
		if raw.Mul != nil {
			mul = *raw.Mul
		}
		*l = FieldLength{Ref: raw.Ref, Mul: mul, Add: raw.Add}
		return nil
	default:
		return fmt.Errorf("line %d: field length must be an integer or {ref, mul, add}", n.Line)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler for {min, max} or [min, max].
func (r *ParamRange) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		var raw struct {
			Min *float64 `yaml:"min"`
			Max *float64 `yaml:"max"`
		}
		if err := n.Decode(&raw); err != nil {
			return err
		}
		r.Min, r.Max = raw.Min, raw.Max
		return nil
	case yaml.SequenceNode:
		if len(n.Content) != 2 {
			return fmt.Errorf("line %d: range list must have two entries", n.Line)
		}
		var bounds [2]*float64
		for i, item := range n.Content {
			if item.Tag == "!!null" {
				continue
			}
			v, err := parseFloat(item.Value)
			if err != nil {
				return fmt.Errorf("line %d: %w", item.Line, err)
			}
			bounds[i] = &v
		}
		r.Min, r.Max = bounds[0], bounds[1]
		return nil
	default:
		return fmt.Errorf("line %d: range must be {min, max} or [min, max]", n.Line)
	}
}

func parseUint(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unsigned integer %q", s)
	}
	return v, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown node"
	}
}
