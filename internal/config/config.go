// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional panel/session configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/siastat/pkg/sia"
)

const (
	appName    = "siastat"
	configFile = "config.yaml"

	// CurrentVersion is the only configuration schema version understood.
	CurrentVersion = 1
)

// Config is the on-disk configuration.
type Config struct {
	Version int           `yaml:"version"`
	Session SessionConfig `yaml:"session"`
	// Catalog optionally points at an event catalog YAML that replaces the
	// embedded one. Relative paths are resolved against the config file.
	Catalog string `yaml:"catalog,omitempty"`
}

// SessionConfig holds per-panel protocol settings.
type SessionConfig struct {
	AltAcknowledge bool   `yaml:"alt_acknowledge"`
	AccessCode     string `yaml:"access_code,omitempty"`
	Capabilities   string `yaml:"capabilities"`
	InitialLevel   int    `yaml:"initial_level"`
	AddressRadix   int    `yaml:"address_radix"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Session: SessionConfig{
			Capabilities: sia.DefaultCapabilities,
			InitialLevel: sia.Level2,
			AddressRadix: 10,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/siastat/config.yaml, falling back to
// $HOME/.config/siastat/config.yaml.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, configFile), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, configFile), nil
}

// Load reads the configuration at path. An empty path means DefaultPath.
// A missing file yields Default(); a file that exists but is invalid is an
// error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Catalog != "" && !filepath.IsAbs(cfg.Catalog) {
		cfg.Catalog = filepath.Join(filepath.Dir(path), cfg.Catalog)
	}
	return cfg, nil
}

// Parse decodes and validates configuration YAML. Unset fields take their
// defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	cfg.Version = 0
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	s := c.Session
	if s.InitialLevel < sia.MinLevel || s.InitialLevel > sia.MaxLevel {
		return fmt.Errorf("session.initial_level must be %d..%d, got %d", sia.MinLevel, sia.MaxLevel, s.InitialLevel)
	}
	if s.AddressRadix != 10 && s.AddressRadix != 16 {
		return fmt.Errorf("session.address_radix must be 10 or 16, got %d", s.AddressRadix)
	}
	for _, r := range s.AccessCode {
		if r < '0' || r > '9' {
			return fmt.Errorf("session.access_code must be digits only")
		}
	}
	if len(s.AccessCode) > sia.MaxPayloadSize {
		return fmt.Errorf("session.access_code longer than %d characters", sia.MaxPayloadSize)
	}
	if len(s.Capabilities) > sia.MaxPayloadSize {
		return fmt.Errorf("session.capabilities longer than %d characters", sia.MaxPayloadSize)
	}
	return nil
}

// LoadCatalog returns the configured event catalog, or the embedded one.
func (c *Config) LoadCatalog() (*sia.Catalog, error) {
	if c.Catalog == "" {
		return sia.DefaultCatalog(), nil
	}
	f, err := os.Open(c.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to open event catalog: %w", err)
	}
	defer f.Close()
	return sia.LoadCatalog(f)
}
