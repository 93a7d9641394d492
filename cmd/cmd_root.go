// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/crickpit/crickpit/config"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

var rootCmd = &cobra.Command{
	Use:   "crickpit",
	Short: "cricket ball-by-ball analytics",
	Long: `
crickpit downloads Cricsheet ball-by-ball archives, deduplicates venue
spellings through geocoding, and serves the loaded data over a JSON API.
`,
}

var (
	Version    = "dev"
	configPath string
	dbPath     string
)

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath,
		"config",
		"",
		"Configuration file. Defaults to ~/.config/crickpit/config.toml",
	)
	rootCmd.PersistentFlags().StringVar(
		&dbPath,
		"db-path",
		"",
		"Database file. Overrides paths.database_path from the configuration",
	)
}

// loadConfig loads the effective configuration and makes sure the data
// directories exist.
func loadConfig() (*config.Config, error) {
	cfg, path, exists, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if exists {
		log.Printf("Using configuration from %s", path)
	}

	if dbPath != "" {
		cfg.Paths.DatabasePath = dbPath
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("duckdb", cfg.Paths.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

func userAgent(cfg *config.Config) string {
	if cfg.Photon.UserAgent != "" {
		return cfg.Photon.UserAgent
	}

	return fmt.Sprintf("crickpit/%s (+https://github.com/crickpit/crickpit)", Version)
}
