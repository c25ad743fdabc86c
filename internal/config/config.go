// Package config loads the recovar YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"recovar/internal/logging"
	"recovar/internal/recfmt"
)

var ErrInvalid = errors.New("config: invalid")

// Config is the on-disk configuration.
type Config struct {
	Load LoadConfig `yaml:"load"`
	Log  LogConfig  `yaml:"log"`
}

// LoadConfig controls corpus loading.
type LoadConfig struct {
	Mode          string `yaml:"mode"`
	Workers       int    `yaml:"workers"`
	MaxRecords    int    `yaml:"max_records"`
	LegacyRawCode bool   `yaml:"legacy_raw_code"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Load: LoadConfig{Mode: recfmt.ModeBestEffort.String()},
		Log:  LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	//nolint:gosec // G304: path is supplied by the user on the command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document leaves unset,
// and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return cfg.Validate()
}

// Validate rejects unknown modes and levels and negative limits.
func (c *Config) Validate() error {
	if _, err := recfmt.ParseMode(c.Load.Mode); err != nil {
		return fmt.Errorf("%w: load.mode: %v", ErrInvalid, err)
	}
	if c.Load.Workers < 0 {
		return fmt.Errorf("%w: load.workers must be >= 0, got %d", ErrInvalid, c.Load.Workers)
	}
	if c.Load.MaxRecords < 0 {
		return fmt.Errorf("%w: load.max_records must be >= 0, got %d", ErrInvalid, c.Load.MaxRecords)
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	return nil
}

// Options converts the load section to reader options.
func (c *Config) Options() recfmt.Options {
	mode, _ := recfmt.ParseMode(c.Load.Mode)
	return recfmt.Options{
		Mode:          mode,
		Workers:       c.Load.Workers,
		MaxRecords:    c.Load.MaxRecords,
		LegacyRawCode: c.Load.LegacyRawCode,
	}
}

// Logging converts the log section to a logger configuration.
func (c *Config) Logging() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = c.Log.Level
	lc.Pretty = c.Log.Pretty
	return lc
}
