// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crickpit/crickpit/ingest"
	"github.com/crickpit/crickpit/venues"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Access to the Cricsheet datasets",
}

var ingestListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the available datasets",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, b, c := strings.Repeat("─", 5), strings.Repeat("─", 28), strings.Repeat("─", 52)
		fmt.Println("Available datasets:")
		fmt.Printf("╭─%5s─┬─%-28s─┬─%-52s╮\n", a, b, c)
		fmt.Printf("│ %5s │ %-28s │ %-52s│\n", "Key", "Name", "Archive")
		fmt.Printf("├─%5s─┼─%-28s─┼─%-52s┤\n", a, b, c)
		err := ingest.Each(func(ds ingest.Dataset) error {
			fmt.Printf("│ %5s │ %-28s │ %-52s│\n", ds.Key, ds.Name, ds.ArchiveURL)

			return nil
		})
		fmt.Printf("╰─%5s─┴─%-28s─┴─%-52s╯\n", a, b, c)

		return err
	},
}

var ingestOptions = &ingest.ClientOptions{}

func datasetArg(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
			return err
		}

		if _, err := ingest.Find(args[0]); err != nil {
			return err
		}
	}

	return nil
}

var ingestUpdateCmd = &cobra.Command{
	Use:   "update [dataset]",
	Short: "Downloads and loads a dataset, or all of them",
	Args:  datasetArg,
	RunE: func(_ *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		repo, err := ingest.NewSQLMatchRepository(db)
		if err != nil {
			return fmt.Errorf("initializing repository: %w", err)
		}

		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		ingestOptions.DataPath = cfg.Paths.DataDir
		ingestOptions.UserAgent = userAgent(cfg)

		var metrics ingest.ClientMetrics

		if len(args) == 0 {
			err = ingest.Each(func(ds ingest.Dataset) error {
				c := ingest.NewClient(ingestOptions, &ds, repo)
				err := c.Update()
				metrics.Merge(&c.Metrics)

				return err
			})
		} else {
			ds, er := ingest.Find(args[0])
			if er != nil {
				return er
			}

			c := ingest.NewClient(ingestOptions, ds, repo)
			err = c.Update()
			metrics.Merge(&c.Metrics)
		}

		if !ingestOptions.SkipDownload {
			log.Printf(
				"Total download phase metrics - %d successful, %d failed",
				metrics.DownloadsOk,
				metrics.DownloadsErr,
			)
		}

		if !ingestOptions.SkipLoad {
			log.Printf(
				"Total load phase metrics - %d new matches with %d deliveries, %d skipped, %d failed",
				metrics.NewMatches,
				metrics.NewDeliveries,
				metrics.SkippedMatches,
				metrics.FailedMatches,
			)
		}

		if err == nil && !ingestOptions.DryRun {
			// Freshly loaded matches pick up coordinates from any venue
			// resolution already on file.
			if err := venues.NewVenueRepository(db).CreateSchema(); err != nil {
				return fmt.Errorf("creating venue schema: %w", err)
			}

			n, err := repo.BackfillVenueData()
			if err != nil {
				return fmt.Errorf("backfilling venue data: %w", err)
			}

			if n > 0 {
				log.Printf("Backfilled venue data on %d rows", n)
			}
		}

		return err
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestListCmd)
	ingestCmd.AddCommand(ingestUpdateCmd)
	ingestUpdateCmd.PersistentFlags().BoolVar(
		&ingestOptions.SkipDownload,
		"skip-download",
		false,
		"Skips downloading the archive and player registry",
	)
	ingestUpdateCmd.PersistentFlags().BoolVar(
		&ingestOptions.SkipLoad,
		"skip-load",
		false,
		"Skips loading the downloaded documents into the database",
	)
	ingestUpdateCmd.PersistentFlags().BoolVar(
		&ingestOptions.LoadFull,
		"load-full",
		false,
		"Reprocesses every match in the archive, not just pending ones",
	)
	ingestUpdateCmd.PersistentFlags().BoolVar(
		&ingestOptions.DryRun,
		"dry-run",
		false,
		"Don't persist any change",
	)
	ingestUpdateCmd.PersistentFlags().BoolVar(
		&ingestOptions.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	ingestUpdateCmd.PersistentFlags().BoolVar(
		&ingestOptions.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
	ingestUpdateCmd.PersistentFlags().IntVar(
		&ingestOptions.LoadMaxProcs,
		"load-max-procs",
		0,
		"Max number of processes to use in the load phase. Defaults to the number of CPUs",
	)
}
