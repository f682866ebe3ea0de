package config

// Engine configuration loading and validation

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/lj123as/Device-Verification-Kit/internal/errors"
)

// Defaults applied to zero-valued fields.
const (
	DefaultMaxFrameLen  = 4096
	DefaultResyncPolicy = "one_byte"
	DefaultLogLevel     = "info"
)

// EngineConfig tunes a streaming session. It never changes what a frame
// is; that comes from the protocol document.
type EngineConfig struct {
	// MaxFrameLen caps the length a length field may announce.
	MaxFrameLen int `yaml:"max_frame_len" toml:"max_frame_len"`
	// MaxPending bounds buffered input. Zero means 4*MaxFrameLen.
	MaxPending int `yaml:"max_pending" toml:"max_pending"`
	// NoiseWindow is the number of discarded bytes per noise event.
	// Zero disables noise events.
	NoiseWindow int `yaml:"noise_window" toml:"noise_window"`
	// ResyncPolicy is "one_byte" or "skip_candidate".
	ResyncPolicy string `yaml:"resync_policy" toml:"resync_policy"`

	LogLevel string `yaml:"log_level" toml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty" toml:"log_file"`
}

// Default returns the built-in engine configuration.
func Default() *EngineConfig {
	cfg := &EngineConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *EngineConfig) ApplyDefaults() {
	if c.MaxFrameLen == 0 {
		c.MaxFrameLen = DefaultMaxFrameLen
	}
	if c.MaxPending == 0 {
		c.MaxPending = 4 * c.MaxFrameLen
	}
	if c.ResyncPolicy == "" {
		c.ResyncPolicy = DefaultResyncPolicy
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks a configuration after defaults have been applied.
func (c *EngineConfig) Validate() error {
	if c.MaxFrameLen < 1 {
		return fmt.Errorf("max_frame_len must be positive, got %d", c.MaxFrameLen)
	}
	if c.MaxPending < c.MaxFrameLen {
		return fmt.Errorf("max_pending (%d) must be at least max_frame_len (%d)", c.MaxPending, c.MaxFrameLen)
	}
	if c.NoiseWindow < 0 {
		return fmt.Errorf("noise_window must not be negative, got %d", c.NoiseWindow)
	}
	switch c.ResyncPolicy {
	case "one_byte", "skip_candidate":
	default:
		return fmt.Errorf("invalid resync_policy %q (must be one_byte or skip_candidate)", c.ResyncPolicy)
	}
	switch strings.ToLower(c.LogLevel) {
	case "silent", "off", "none", "disabled", "error", "info", "verbose", "debug", "trace":
	default:
		return fmt.Errorf("invalid log_level %q (must be silent, error, info, verbose or debug)", c.LogLevel)
	}
	return nil
}

// Parse decodes a configuration document. format is "yaml" or "toml".
func Parse(data []byte, format string) (*EngineConfig, error) {
	var cfg EngineConfig
	switch format {
	case "toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	case "yaml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Load reads an engine configuration. The format follows the file
// extension: .toml is TOML, anything else is YAML.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return cfg, nil
}

// Write stores cfg as YAML, or TOML when path ends in .toml.
func Write(path string, cfg *EngineConfig) error {
	var buf bytes.Buffer
	if formatOf(path) == "toml" {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	} else {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		buf.Write(data)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}
