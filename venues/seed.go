// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SeedData is the JSON snapshot format for resolved venues. Both slices are
// sorted on export to minimize diffs when the file is checked into version
// control.
type SeedData struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Canonical  []*CanonicalVenue `json:"canonical_venues"`
	Aliases    []*VenueAlias     `json:"venue_aliases"`
}

// ExportToJSON writes all canonical venues and alias mappings to a file.
func ExportToJSON(repo VenueRepository, filepath string) error {
	canonical, err := repo.ListCanonical()
	if err != nil {
		return fmt.Errorf("listing canonical venues: %w", err)
	}

	aliases, err := repo.ListAliases()
	if err != nil {
		return fmt.Errorf("listing aliases: %w", err)
	}

	seed := &SeedData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Canonical:  canonical,
		Aliases:    aliases,
	}

	data, err := json.MarshalIndent(seed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0o600); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}

// ImportFromJSON loads a snapshot into the repository. Inserts are
// idempotent, so pre-existing rows are left untouched. A hand-edited file
// must honor the same spacing the resolver enforces: two distinct canonical
// venues within the proximity threshold of each other abort the import.
// Returns the number of canonical and alias rows in the file.
func ImportFromJSON(repo VenueRepository, filepath string) (int, int, error) {
	data, err := os.ReadFile(filepath) // #nosec G304 - filepath is provided by admin
	if err != nil {
		return 0, 0, fmt.Errorf("reading file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, 0, fmt.Errorf("parsing JSON: %w", err)
	}

	accepted, err := repo.ListCanonical()
	if err != nil {
		return 0, 0, fmt.Errorf("listing canonical venues: %w", err)
	}

	// Validate the whole file before touching the store, so a bad seed
	// leaves it as it was.
	for _, v := range seed.Canonical {
		if err := checkCanonicalSpacing(v, accepted); err != nil {
			return 0, 0, err
		}

		accepted = append(accepted, v)
	}

	for _, v := range seed.Canonical {
		if err := repo.InsertCanonical(v); err != nil {
			return 0, 0, fmt.Errorf("inserting canonical venue %q: %w", v.Venue, err)
		}
	}

	for _, a := range seed.Aliases {
		if err := repo.InsertAlias(a); err != nil {
			return 0, 0, fmt.Errorf("inserting alias %q: %w", a.Venue, err)
		}
	}

	return len(seed.Canonical), len(seed.Aliases), nil
}

// checkCanonicalSpacing rejects a candidate canonical venue that lies
// within ProximityThreshold of a different already-accepted one. The
// idempotent re-insert of the same (venue, city) passes through.
func checkCanonicalSpacing(v *CanonicalVenue, accepted []*CanonicalVenue) error {
	if v.Point == nil {
		return nil
	}

	for _, o := range accepted {
		if o.Point == nil || (o.Venue == v.Venue && o.City == v.City) {
			continue
		}

		if d := v.Point.HaversineDistance(o.Point); d <= ProximityThreshold {
			return fmt.Errorf("canonical venue %q (%s) lies %.0f m from %q (%s), under the %.0f m threshold",
				v.Venue, v.City, d, o.Venue, o.City, ProximityThreshold)
		}
	}

	return nil
}

// SeedIfEmpty imports a snapshot when the alias table is empty and the
// file exists. A missing seed file is not an error.
func SeedIfEmpty(repo VenueRepository, filepath string) (bool, error) {
	count, err := repo.CountAliases()
	if err != nil {
		return false, fmt.Errorf("counting aliases: %w", err)
	}

	if count > 0 {
		return false, nil
	}

	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return false, nil
	}

	if _, _, err := ImportFromJSON(repo, filepath); err != nil {
		return false, err
	}

	return true, nil
}
