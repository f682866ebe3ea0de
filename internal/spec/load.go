package spec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lj123as/Device-Verification-Kit/internal/errors"
)

// ParseProtocol decodes a protocol document (JSON or YAML).
func ParseProtocol(data []byte) (*Protocol, error) {
	var p Protocol
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse protocol: %w", err)
	}
	if len(p.Frames) == 0 {
		return nil, Malformed("frames", "protocol declares no frames")
	}
	return &p, nil
}

// LoadProtocol reads and decodes a protocol document from disk.
func LoadProtocol(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapSpecError(fmt.Errorf("read protocol: %w", err), path)
	}
	p, err := ParseProtocol(data)
	if err != nil {
		return nil, errors.WrapSpecError(err, path)
	}
	return p, nil
}

// Frame returns the frame called name, or the first frame when name is
// empty.
func (p *Protocol) Frame(name string) (*Frame, error) {
	if len(p.Frames) == 0 {
		return nil, Malformed("frames", "protocol declares no frames")
	}
	if name == "" {
		return &p.Frames[0], nil
	}
	for i := range p.Frames {
		if p.Frames[i].Name == name {
			return &p.Frames[i], nil
		}
	}
	return nil, fmt.Errorf("frame not found: %s", name)
}

// ParseCommandSet decodes a command document (YAML or JSON).
func ParseCommandSet(data []byte) (*CommandSet, error) {
	var cs CommandSet
	if err := yaml.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("parse command set: %w", err)
	}
	return &cs, nil
}

// LoadCommandSet reads and decodes a command document from disk.
func LoadCommandSet(path string) (*CommandSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapSpecError(fmt.Errorf("read command set: %w", err), path)
	}
	cs, err := ParseCommandSet(data)
	if err != nil {
		return nil, errors.WrapSpecError(err, path)
	}
	return cs, nil
}
