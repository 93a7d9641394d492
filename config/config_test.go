// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, path, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if exists {
		t.Error("expected exists=false for a missing file")
	}

	if path != missing {
		t.Errorf("resolved path: got %q", path)
	}

	if cfg.Photon.BaseURL != "https://photon.komoot.io/api" {
		t.Errorf("photon base URL: got %q", cfg.Photon.BaseURL)
	}

	if cfg.PhotonDelay() != time.Second {
		t.Errorf("photon delay: got %s", cfg.PhotonDelay())
	}

	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Errorf("data dir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[paths]
data_dir = "` + dir + `/data"
database_path = "` + dir + `/db.duckdb"

[photon]
base_url = "http://localhost:2322/api"
delay_seconds = 0.25
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %s", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if !exists {
		t.Error("expected exists=true")
	}

	if cfg.Photon.BaseURL != "http://localhost:2322/api" {
		t.Errorf("photon base URL: got %q", cfg.Photon.BaseURL)
	}

	if cfg.PhotonDelay() != 250*time.Millisecond {
		t.Errorf("photon delay: got %s", cfg.PhotonDelay())
	}

	// Untouched sections keep their defaults.
	if cfg.Server.Bind != "127.0.0.1:8080" {
		t.Errorf("server bind: got %q", cfg.Server.Bind)
	}

	if cfg.Paths.DatabasePath != filepath.Join(dir, "db.duckdb") {
		t.Errorf("database path: got %q", cfg.Paths.DatabasePath)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative delay", "[photon]\ndelay_seconds = -1.0\n"},
		{"empty bind", "[server]\nbind = \"\"\n"},
		{"not toml", "{\"json\": true}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatalf("writing config: %s", err)
			}

			if _, _, _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := CreateSample(path); err != nil {
		t.Fatalf("creating sample: %s", err)
	}

	// The sample must itself be a loadable configuration.
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("loading sample: %s", err)
	}
}
