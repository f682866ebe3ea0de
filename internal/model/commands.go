package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/spec"
)

// Param is a compiled command parameter.
type Param struct {
	Name     string
	Type     codec.Type
	Min, Max *float64
	// Default is substituted when the caller omits the parameter. Nil
	// means the parameter is required.
	Default *codec.Value
	Unit    string
}

// InRange reports whether v satisfies the declared numeric range. Bytes
// parameters are always in range.
func (p Param) InRange(v codec.Value) bool {
	if p.Min == nil && p.Max == nil {
		return true
	}
	f, ok := v.Float64()
	if !ok {
		return true
	}
	if p.Min != nil && f < *p.Min {
		return false
	}
	if p.Max != nil && f > *p.Max {
		return false
	}
	return true
}

// Command is a compiled command definition.
type Command struct {
	Name        string
	ID          uint64
	Description string
	Params      []Param
	Response    []spec.SemanticField
}

// Param returns the named parameter.
func (c *Command) Param(name string) (*Param, bool) {
	for i := range c.Params {
		if c.Params[i].Name == name {
			return &c.Params[i], true
		}
	}
	return nil, false
}

// CommandTable is a compiled command document.
type CommandTable struct {
	ID       string
	Commands []Command
	// Telemetry holds semantic rules for frames that are not replies.
	Telemetry []spec.SemanticField

	byName map[string]int
	byID   map[uint64]int
}

// CompileCommands validates a command document.
func CompileCommands(cs *spec.CommandSet) (*CommandTable, error) {
	t := &CommandTable{
		ID:     cs.ID,
		byName: make(map[string]int, len(cs.Commands)),
		byID:   make(map[uint64]int, len(cs.Commands)),
	}
	if cs.Telemetry != nil {
		t.Telemetry = cs.Telemetry.Fields
	}
	for i, sc := range cs.Commands {
		path := fmt.Sprintf("commands[%d]", i)
		if sc.Name == "" {
			return nil, spec.Malformed(path+".name", "command name is required")
		}
		if _, dup := t.byName[sc.Name]; dup {
			return nil, spec.Malformed(path+".name", "duplicate command %q", sc.Name)
		}
		id := uint64(sc.ID)
		if prev, dup := t.byID[id]; dup {
			return nil, spec.Malformed(path+".id", "id %s already used by %q", sc.ID, cs.Commands[prev].Name)
		}
		c := Command{Name: sc.Name, ID: id, Description: sc.Description}
		if sc.Response != nil {
			c.Response = sc.Response.Fields
		}
		seen := make(map[string]bool)
		for j, sp := range sc.Parameters() {
			p, err := compileParam(fmt.Sprintf("%s.params[%d]", path, j), sp)
			if err != nil {
				return nil, err
			}
			if seen[p.Name] {
				return nil, spec.Malformed(fmt.Sprintf("%s.params[%d].name", path, j), "duplicate parameter %q", p.Name)
			}
			seen[p.Name] = true
			c.Params = append(c.Params, p)
		}
		t.byName[c.Name] = len(t.Commands)
		t.byID[c.ID] = len(t.Commands)
		t.Commands = append(t.Commands, c)
	}
	return t, nil
}

func compileParam(path string, sp spec.Param) (Param, error) {
	if sp.Name == "" {
		return Param{}, spec.Malformed(path+".name", "parameter name is required")
	}
	tag := sp.Type
	if tag == "" {
		tag = "uint8"
	}
	typ, err := codec.ParseType(tag)
	if err != nil {
		return Param{}, spec.Malformed(path+".type", "%v", err)
	}
	p := Param{Name: sp.Name, Type: typ, Unit: sp.Unit}
	if sp.Range != nil {
		if !typ.IsNumeric() {
			return Param{}, spec.Malformed(path+".range", "range on non-numeric type %s", typ)
		}
		if sp.Range.Min != nil && sp.Range.Max != nil && *sp.Range.Min > *sp.Range.Max {
			return Param{}, spec.Malformed(path+".range", "min %g exceeds max %g", *sp.Range.Min, *sp.Range.Max)
		}
		p.Min, p.Max = sp.Range.Min, sp.Range.Max
	}
	if sp.Default != nil {
		v, err := codec.Coerce(typ, sp.Default)
		if err != nil {
			return Param{}, spec.Malformed(path+".default", "%v", err)
		}
		if !p.InRange(v) {
			return Param{}, spec.Malformed(path+".default", "default %v outside declared range", sp.Default)
		}
		p.Default = &v
	}
	return p, nil
}

// Lookup finds a command by name, or by id written in decimal or 0x hex.
func (t *CommandTable) Lookup(selector string) (*Command, error) {
	sel := strings.TrimSpace(selector)
	if i, ok := t.byName[sel]; ok {
		return &t.Commands[i], nil
	}
	if id, err := strconv.ParseUint(sel, 0, 64); err == nil {
		if i, ok := t.byID[id]; ok {
			return &t.Commands[i], nil
		}
	}
	names := make([]string, len(t.Commands))
	for i, c := range t.Commands {
		names[i] = c.Name
	}
	return nil, fmt.Errorf("command not found: %s (available: %s)", selector, strings.Join(names, ", "))
}

// SemanticFields returns every response rule followed by telemetry rules.
func (t *CommandTable) SemanticFields() []spec.SemanticField {
	var out []spec.SemanticField
	for _, c := range t.Commands {
		out = append(out, c.Response...)
	}
	return append(out, t.Telemetry...)
}
