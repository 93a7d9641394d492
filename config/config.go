// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the TOML configuration file and applies defaults.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database configuration.
type Paths struct {
	// DataDir is where downloaded Cricsheet artifacts are kept.
	DataDir string `toml:"data_dir"`
	// DatabasePath is the DuckDB database file.
	DatabasePath string `toml:"database_path"`
}

// Photon contains configuration for the geocoding service.
type Photon struct {
	BaseURL      string  `toml:"base_url"`
	UserAgent    string  `toml:"user_agent"`
	DelaySeconds float64 `toml:"delay_seconds"`
}

// Server contains configuration for the query API.
type Server struct {
	Bind string `toml:"bind"`
}

// Config encapsulates all configuration values for crickpit.
type Config struct {
	Paths  Paths  `toml:"paths"`
	Photon Photon `toml:"photon"`
	Server Server `toml:"server"`
}

// PhotonDelay returns the politeness delay as a duration.
func (c *Config) PhotonDelay() time.Duration {
	return time.Duration(c.Photon.DelaySeconds * float64(time.Second))
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/crickpit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The boolean reports whether a file
// was actually found; without one the defaults apply as-is.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(filepath.Clean(resolvedPath))
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}

		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}

			return "", false, fmt.Errorf("stat config: %w", err)
		}

		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("crickpit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// normalize expands user-relative paths to absolute ones.
func (c *Config) normalize() error {
	var err error

	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}

	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return err
	}

	return nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Paths.DataDir == "" {
		return errors.New("config: paths.data_dir must not be empty")
	}

	if c.Paths.DatabasePath == "" {
		return errors.New("config: paths.database_path must not be empty")
	}

	if c.Photon.BaseURL == "" {
		return errors.New("config: photon.base_url must not be empty")
	}

	if c.Photon.DelaySeconds < 0 {
		return errors.New("config: photon.delay_seconds must not be negative")
	}

	if c.Server.Bind == "" {
		return errors.New("config: server.bind must not be empty")
	}

	return nil
}

// EnsureDirectories creates the directories needed before any command runs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, filepath.Dir(c.Paths.DatabasePath)} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}

	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}

	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}

		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}

	cleaned := filepath.Clean(pathValue)

	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}

	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}

	return nil
}
