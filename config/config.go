// Package config holds the assocrebuild configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/brenns10/kernel-stuff/assocarray"
)

// Config is the assocrebuild configuration.
type Config struct {
	Strict   bool   `yaml:"strict"`
	MaxDepth int    `yaml:"max_depth"`
	Format   string `yaml:"format"` // json, yaml, cbor
	Output   string `yaml:"output"` // default output of the construct command

	Logging LoggingConfig `yaml:"logging"`
	Layout  LayoutConfig  `yaml:"layout,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// LayoutConfig overrides offsets of the kernel structures for kernels
// built with a nonstandard layout. Unset fields keep the architecture default.
type LayoutConfig struct {
	BackPointerOffset    *uint64 `yaml:"back_pointer_offset,omitempty"`
	ParentSlotOffset     *uint64 `yaml:"parent_slot_offset,omitempty"`
	SlotsOffset          *uint64 `yaml:"slots_offset,omitempty"`
	LeafCountOffset      *uint64 `yaml:"nr_leaves_on_branch_offset,omitempty"`
	NodeSize             *uint64 `yaml:"node_size,omitempty"`
	ArrayRootOffset      *uint64 `yaml:"array_root_offset,omitempty"`
	ArrayLeafCountOffset *uint64 `yaml:"nr_leaves_on_tree_offset,omitempty"`
}

// Apply returns l with the overrides in c applied.
func (c LayoutConfig) Apply(l assocarray.Layout) assocarray.Layout {
	set := func(dst *uint64, src *uint64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&l.BackPointerOffset, c.BackPointerOffset)
	set(&l.ParentSlotOffset, c.ParentSlotOffset)
	set(&l.SlotsOffset, c.SlotsOffset)
	set(&l.LeafCountOffset, c.LeafCountOffset)
	set(&l.NodeSize, c.NodeSize)
	set(&l.ArrayRootOffset, c.ArrayRootOffset)
	set(&l.ArrayLeafCountOffset, c.ArrayLeafCountOffset)
	return l
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: assocarray.DefaultMaxDepth,
		Format:   string(assocarray.FormatJSON),
		Output:   "construct_array.c",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("ASSOCREBUILD_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ASSOCREBUILD_STRICT: %w", err)
		}
		c.Strict = b
	}
	if v := os.Getenv("ASSOCREBUILD_FORMAT"); v != "" {
		c.Format = v
	}
	if v := os.Getenv("ASSOCREBUILD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if _, err := assocarray.ParseFormat(c.Format); err != nil {
		return err
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// Options returns the reconstruction options selected by c.
func (c *Config) Options() *assocarray.Options {
	return &assocarray.Options{Strict: c.Strict, MaxDepth: c.MaxDepth}
}
