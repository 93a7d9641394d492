// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/crickpit/crickpit/server"
	"github.com/crickpit/crickpit/venues"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the loaded data over a JSON API",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := venues.NewVenueRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating venue schema: %w", err)
		}

		log.Printf("Listening on %s", cfg.Server.Bind)

		return server.NewServer(db, repo).Run(cfg.Server.Bind)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
