// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/crickpit/crickpit/ingest"
	"github.com/crickpit/crickpit/utils"
	"github.com/crickpit/crickpit/venues"
)

var venuesCmd = &cobra.Command{
	Use:   "venues",
	Short: "Venue deduplication and alias management",
}

var (
	retryUnresolved  bool
	venuesTraceHTTP  bool
	venuesSeedInput  string
	venuesSeedOutput string
)

var venuesResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Geocodes unseen venue spellings and assigns them to canonical venues",
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
			return err
		}

		if seeded, err := venues.SeedIfEmpty(repo, venuesSeedInput); err != nil {
			return fmt.Errorf("seeding venue data: %w", err)
		} else if seeded {
			log.Printf("Seeded venue data from %s", venuesSeedInput)
		}

		geocoder := venues.NewPhotonGeocoder(&venues.PhotonOptions{
			BaseURL:         cfg.Photon.BaseURL,
			UserAgent:       userAgent(cfg),
			Delay:           cfg.PhotonDelay(),
			EnableHTTPTrace: venuesTraceHTTP,
		})

		resolver := venues.NewResolver(repo, geocoder)

		if retryUnresolved {
			n, err := resolver.RetryUnresolved()
			if err != nil {
				return err
			}

			log.Printf("Retried %d unresolved venues", n)

			return nil
		}

		summary, err := resolver.Run()
		if err != nil {
			return err
		}

		log.Printf(
			"Resolution complete - %d pending spellings, %d new canonical venues, %d aliased, %d unresolved",
			summary.Pending,
			summary.NewCanonical,
			summary.Aliased,
			summary.Unresolved,
		)

		matchRepo, err := ingest.NewSQLMatchRepository(db)
		if err != nil {
			return fmt.Errorf("initializing match repository: %w", err)
		}

		n, err := matchRepo.BackfillVenueData()
		if err != nil {
			return fmt.Errorf("backfilling venue data: %w", err)
		}

		log.Printf("Backfilled venue data on %d rows", n)

		return nil
	},
}

var venuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists canonical venues and their aliases",
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
			return err
		}

		canonical, err := repo.ListCanonical()
		if err != nil {
			return err
		}

		aliases, err := repo.ListAliases()
		if err != nil {
			return err
		}

		byCanonical := make(map[venues.VenuePair]int)
		for _, a := range aliases {
			byCanonical[venues.VenuePair{Venue: a.CanonicalVenue, City: a.CanonicalCity}]++
		}

		for _, v := range canonical {
			status := "unresolved"
			if v.Point != nil {
				status = v.Point.String()
			}

			fmt.Printf(
				"%s (%s): %s - %d spelling(s)\n",
				v.Venue,
				v.City,
				status,
				byCanonical[venues.VenuePair{Venue: v.Venue, City: v.City}],
			)
		}

		fmt.Printf(
			"%s canonical venues, %s aliases\n",
			utils.FormatInt(int64(len(canonical))),
			utils.FormatInt(int64(len(aliases))),
		)

		return nil
	},
}

var venuesStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Exports canonical venues and aliases to a JSON seed file",
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
		if err := venues.ExportToJSON(repo, venuesSeedOutput); err != nil {
			return err
		}

		log.Printf("Exported venue data to %s", venuesSeedOutput)

		return nil
	},
}

var venuesLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Imports canonical venues and aliases from a JSON seed file",
	Args:  cobra.ExactArgs(1),
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

		repo := venues.NewVenueRepository(db)
		if err := repo.CreateSchema(); err != nil {
			return err
		}

		nCanonical, nAliases, err := venues.ImportFromJSON(repo, args[0])
		if err != nil {
			return err
		}

		log.Printf("Imported %d canonical venues and %d aliases", nCanonical, nAliases)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(venuesCmd)
	venuesCmd.AddCommand(venuesResolveCmd)
	venuesCmd.AddCommand(venuesListCmd)
	venuesCmd.AddCommand(venuesStoreCmd)
	venuesCmd.AddCommand(venuesLoadCmd)

	venuesResolveCmd.PersistentFlags().BoolVar(
		&retryUnresolved,
		"retry-unresolved",
		false,
		"Re-geocodes canonical venues that have no coordinates yet",
	)
	venuesResolveCmd.PersistentFlags().StringVar(
		&venuesSeedInput,
		"seed",
		"venues-seed.json",
		"JSON seed file imported when the alias table is empty",
	)
	venuesResolveCmd.PersistentFlags().BoolVar(
		&venuesTraceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	venuesStoreCmd.PersistentFlags().StringVar(
		&venuesSeedOutput,
		"output",
		"venues-seed.json",
		"Path of the JSON seed file to write",
	)
}
