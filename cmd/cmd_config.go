// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crickpit/crickpit/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes a commented sample configuration file",
	RunE: func(_ *cobra.Command, _ []string) error {
		path := configPath

		if path == "" {
			var err error

			path, err = config.DefaultConfigPath()
			if err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing %s", path)
		}

		if err := config.CreateSample(path); err != nil {
			return err
		}

		fmt.Printf("Wrote %s\n", path)

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the effective configuration",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, path, exists, err := config.Load(configPath)
		if err != nil {
			return err
		}

		if dbPath != "" {
			cfg.Paths.DatabasePath = dbPath
		}

		if exists {
			fmt.Printf("# %s\n", path)
		} else {
			fmt.Println("# built-in defaults")
		}

		fmt.Printf("data_dir      = %s\n", cfg.Paths.DataDir)
		fmt.Printf("database_path = %s\n", cfg.Paths.DatabasePath)
		fmt.Printf("photon.base_url  = %s\n", cfg.Photon.BaseURL)
		fmt.Printf("photon.delay     = %s\n", cfg.PhotonDelay())
		fmt.Printf("server.bind      = %s\n", cfg.Server.Bind)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
