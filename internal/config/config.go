// Package config handles exporter configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Archive modes.
const (
	ArchiveBuiltin = "builtin" // Built-in package writer
	ArchiveCommand = "command" // External converter tool
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export" toml:"export"`
	Archive ArchiveConfig `yaml:"archive" toml:"archive"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// ExportConfig holds the per-run export defaults.
type ExportConfig struct {
	Materials bool    `yaml:"materials" toml:"materials"`
	KeepUSDA  bool    `yaml:"keep_usda" toml:"keep_usda"`
	BakeAO    bool    `yaml:"bake_ao" toml:"bake_ao"`
	AOSamples int     `yaml:"ao_samples" toml:"ao_samples"`
	Scale     float64 `yaml:"scale" toml:"scale"`
	Animate   bool    `yaml:"animate" toml:"animate"`
}

// ArchiveConfig selects how packages are produced.
type ArchiveConfig struct {
	Mode    string   `yaml:"mode" toml:"mode"`       // builtin or command
	Command []string `yaml:"command" toml:"command"` // Converter invocation for command mode
	Verbose bool     `yaml:"verbose" toml:"verbose"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Materials: true,
			KeepUSDA:  false,
			BakeAO:    false,
			AOSamples: 8,
			Scale:     1,
			Animate:   false,
		},
		Archive: ArchiveConfig{
			Mode:    ArchiveBuiltin,
			Command: []string{"xcrun", "usdz_converter"},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings no export could run with.
func (c *Config) Validate() error {
	switch c.Archive.Mode {
	case ArchiveBuiltin:
	case ArchiveCommand:
		if len(c.Archive.Command) == 0 {
			return fmt.Errorf("%w: archive mode %q needs a command", ErrInvalidConfig, ArchiveCommand)
		}
	default:
		return fmt.Errorf("%w: unknown archive mode %q", ErrInvalidConfig, c.Archive.Mode)
	}
	if c.Export.Scale < 0 {
		return fmt.Errorf("%w: negative scale %v", ErrInvalidConfig, c.Export.Scale)
	}
	if c.Export.BakeAO && c.Export.AOSamples <= 0 {
		return fmt.Errorf("%w: AO baking needs at least one sample", ErrInvalidConfig)
	}
	return nil
}
