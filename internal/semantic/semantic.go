// Package semantic projects raw decoded field values onto engineering
// values using the name → (scale, offset, unit, enum) rules a command
// document carries.
package semantic

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/spec"
)

// Rule is the projection of one field.
type Rule struct {
	Name   string
	Scale  float64
	Offset float64
	Unit   string
	Label  string
	Enum   map[int64]string

	// linear is set when Scale or Offset were declared; the projected value
	// is then a float64.
	linear bool
}

// Value is a projected field.
type Value struct {
	Raw   codec.Value
	Value any // int64, uint64, float64 or []byte; nil when undecodable
	Unit  string
	Label string
	// Enum is the enum entry name for Raw, empty when none applies.
	Enum string
}

// Undecodable reports whether the raw field failed to decode.
func (v Value) Undecodable() bool { return v.Raw.Undecodable }

func (v Value) String() string {
	if v.Raw.Undecodable {
		return "<undecodable>"
	}
	var s string
	switch x := v.Value.(type) {
	case float64:
		s = strconv.FormatFloat(x, 'g', -1, 64)
	default:
		s = v.Raw.String()
	}
	if v.Enum != "" {
		s += " (" + v.Enum + ")"
	}
	if v.Unit != "" {
		s += " " + v.Unit
	}
	return s
}

// Table maps field names to rules. The zero value and a nil *Table project
// every field as-is.
type Table struct {
	rules map[string]Rule
}

// NewTable builds a table from semantic field declarations. Later entries
// replace earlier ones with the same name, so telemetry rules listed after
// response rules take precedence.
func NewTable(fields []spec.SemanticField) (*Table, error) {
	t := &Table{rules: make(map[string]Rule, len(fields))}
	for i, sf := range fields {
		path := fmt.Sprintf("semantic[%d]", i)
		if sf.Name == "" {
			return nil, spec.Malformed(path+".name", "semantic field name is required")
		}
		r := Rule{Name: sf.Name, Scale: 1, Offset: sf.Offset, Unit: sf.Unit, Label: sf.Label}
		if sf.Scale != nil {
			r.Scale = *sf.Scale
			r.linear = true
		}
		if sf.Offset != 0 {
			r.linear = true
		}
		if len(sf.Enum) > 0 {
			r.Enum = make(map[int64]string, len(sf.Enum))
			for k, name := range sf.Enum {
				key, err := strconv.ParseInt(strings.TrimSpace(k), 0, 64)
				if err != nil {
					return nil, spec.Malformed(path+".enum", "enum key %q is not an integer", k)
				}
				r.Enum[key] = name
			}
		}
		t.rules[sf.Name] = r
	}
	return t, nil
}

// Rule returns the rule for a field.
func (t *Table) Rule(name string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	r, ok := t.rules[name]
	return r, ok
}

// Len is the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Project maps a raw value. unit is the field's own unit from the frame
// definition, used when the rule does not name one.
func (t *Table) Project(name string, raw codec.Value, unit string) Value {
	out := Value{Raw: raw, Unit: unit}
	if raw.Undecodable {
		return out
	}
	out.Value = raw.Interface()

	r, ok := t.Rule(name)
	if !ok {
		return out
	}
	if r.Unit != "" {
		out.Unit = r.Unit
	}
	out.Label = r.Label
	if r.Enum != nil {
		if i, ok := raw.Int64(); ok {
			out.Enum = r.Enum[i]
		}
	}
	if r.linear {
		if f, ok := raw.Float64(); ok {
			out.Value = f*r.Scale + r.Offset
		}
	}
	return out
}
