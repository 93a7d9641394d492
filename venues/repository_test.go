// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"database/sql"
	"testing"
	"time"

	"github.com/crickpit/crickpit/spatial"
	_ "github.com/duckdb/duckdb-go/v2"
)

func setupTestDB(t *testing.T) (*sql.DB, VenueRepository) {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	repo := NewVenueRepository(db)
	if err := repo.CreateSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return db, repo
}

func TestCreateSchema(t *testing.T) {
	db, _ := setupTestDB(t)

	for _, table := range []string{"canonical_venues", "venue_aliases"} {
		var name string

		err := db.QueryRow(
			"SELECT table_name FROM information_schema.tables WHERE table_name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not created: %v", table, err)
		}
	}
}

func TestInsertAndListCanonical(t *testing.T) {
	_, repo := setupTestDB(t)

	v := &CanonicalVenue{
		Venue:         "Wankhede Stadium",
		City:          "Mumbai",
		Point:         &spatial.Point{Lat: 18.9389, Lng: 72.8258},
		PhotonName:    "Wankhede Stadium",
		PhotonCountry: "India",
		PhotonState:   "Maharashtra",
		OSMValue:      "stadium",
		GeocodedAt:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	if err := repo.InsertCanonical(v); err != nil {
		t.Fatalf("InsertCanonical() error = %v", err)
	}

	all, err := repo.ListCanonical()
	if err != nil {
		t.Fatalf("ListCanonical() error = %v", err)
	}

	if len(all) != 1 {
		t.Fatalf("ListCanonical() returned %d rows, want 1", len(all))
	}

	got := all[0]

	if got.Venue != "Wankhede Stadium" || got.City != "Mumbai" {
		t.Errorf("key = (%q, %q), want (Wankhede Stadium, Mumbai)", got.Venue, got.City)
	}

	if got.Point == nil || got.Point.Lat != 18.9389 || got.Point.Lng != 72.8258 {
		t.Errorf("Point = %+v, want lat 18.9389 lng 72.8258", got.Point)
	}

	if got.PhotonCountry != "India" || got.OSMValue != "stadium" {
		t.Errorf("provenance = %q/%q, want India/stadium", got.PhotonCountry, got.OSMValue)
	}

	if got.H3Res5 == 0 || got.H3Res7 == 0 || got.H3Res9 == 0 {
		t.Errorf("h3 cells not computed: %d %d %d", got.H3Res5, got.H3Res7, got.H3Res9)
	}
}

func TestInsertCanonicalIdempotent(t *testing.T) {
	_, repo := setupTestDB(t)

	v := &CanonicalVenue{
		Venue: "Eden Gardens",
		City:  "Kolkata",
		Point: &spatial.Point{Lat: 22.5646, Lng: 88.3433},
	}

	for range 3 {
		if err := repo.InsertCanonical(v); err != nil {
			t.Fatalf("InsertCanonical() error = %v", err)
		}
	}

	count, err := repo.CountCanonical()
	if err != nil {
		t.Fatalf("CountCanonical() error = %v", err)
	}

	if count != 1 {
		t.Errorf("CountCanonical() = %d, want 1", count)
	}
}

func TestInsertAliasIdempotent(t *testing.T) {
	_, repo := setupTestDB(t)

	a := &VenueAlias{
		Venue:          "Eden Gardens Stadium",
		City:           "Kolkata",
		CanonicalVenue: "Eden Gardens",
		CanonicalCity:  "Kolkata",
	}

	for range 3 {
		if err := repo.InsertAlias(a); err != nil {
			t.Fatalf("InsertAlias() error = %v", err)
		}
	}

	count, err := repo.CountAliases()
	if err != nil {
		t.Fatalf("CountAliases() error = %v", err)
	}

	if count != 1 {
		t.Errorf("CountAliases() = %d, want 1", count)
	}
}

func TestInsertCanonicalRejectsOutOfRangeCoordinates(t *testing.T) {
	_, repo := setupTestDB(t)

	v := &CanonicalVenue{
		Venue: "Bad Ground",
		Point: &spatial.Point{Lat: 95, Lng: 200},
	}

	if err := repo.InsertCanonical(v); err == nil {
		t.Error("InsertCanonical() accepted out-of-range coordinates")
	}
}

func TestUnresolvedCanonicals(t *testing.T) {
	_, repo := setupTestDB(t)

	resolved := &CanonicalVenue{
		Venue: "Wankhede Stadium",
		City:  "Mumbai",
		Point: &spatial.Point{Lat: 18.9389, Lng: 72.8258},
	}
	unresolved := &CanonicalVenue{Venue: "Mystery Ground"}

	if err := repo.InsertCanonical(resolved); err != nil {
		t.Fatalf("InsertCanonical() error = %v", err)
	}

	if err := repo.InsertCanonical(unresolved); err != nil {
		t.Fatalf("InsertCanonical() error = %v", err)
	}

	got, err := repo.UnresolvedCanonicals()
	if err != nil {
		t.Fatalf("UnresolvedCanonicals() error = %v", err)
	}

	if len(got) != 1 || got[0].Venue != "Mystery Ground" {
		t.Errorf("UnresolvedCanonicals() = %+v, want only Mystery Ground", got)
	}
}

func TestAliasKeysNullCityMatchesNullCity(t *testing.T) {
	_, repo := setupTestDB(t)

	if err := repo.InsertAlias(&VenueAlias{
		Venue:          "Sharjah Cricket Stadium",
		CanonicalVenue: "Sharjah Cricket Stadium",
	}); err != nil {
		t.Fatalf("InsertAlias() error = %v", err)
	}

	keys, err := repo.AliasKeys()
	if err != nil {
		t.Fatalf("AliasKeys() error = %v", err)
	}

	if !keys[VenuePair{Venue: "Sharjah Cricket Stadium", City: ""}] {
		t.Error("missing-city alias not matched by missing-city key")
	}

	if keys[VenuePair{Venue: "Sharjah Cricket Stadium", City: "Sharjah"}] {
		t.Error("missing-city alias must not match a keyed city")
	}
}

func TestSourceTableReady(t *testing.T) {
	db, repo := setupTestDB(t)

	if err := repo.SourceTableReady(); err == nil {
		t.Error("SourceTableReady() = nil without a matches table")
	}

	if _, err := db.Exec(`CREATE TABLE matches (match_id VARCHAR, venue VARCHAR, city VARCHAR)`); err != nil {
		t.Fatalf("creating matches table: %v", err)
	}

	if err := repo.SourceTableReady(); err == nil {
		t.Error("SourceTableReady() = nil with an empty matches table")
	}

	if _, err := db.Exec(`INSERT INTO matches VALUES ('1', 'Eden Gardens', 'Kolkata')`); err != nil {
		t.Fatalf("inserting match: %v", err)
	}

	if err := repo.SourceTableReady(); err != nil {
		t.Errorf("SourceTableReady() = %v, want nil", err)
	}
}

func TestSourceVenuePairsDistinctAndSorted(t *testing.T) {
	db, repo := setupTestDB(t)

	if _, err := db.Exec(`CREATE TABLE matches (match_id VARCHAR, venue VARCHAR, city VARCHAR)`); err != nil {
		t.Fatalf("creating matches table: %v", err)
	}

	inserts := [][]any{
		{"1", "Wankhede Stadium", "Mumbai"},
		{"2", "Wankhede Stadium", "Mumbai"}, // duplicate
		{"3", "Eden Gardens", "Kolkata"},
		{"4", "Sharjah Cricket Stadium", nil}, // null city
		{"5", nil, "Nowhere"},                 // null venue excluded
	}
	for _, row := range inserts {
		if _, err := db.Exec("INSERT INTO matches VALUES (?, ?, ?)", row...); err != nil {
			t.Fatalf("inserting match: %v", err)
		}
	}

	got, err := repo.SourceVenuePairs()
	if err != nil {
		t.Fatalf("SourceVenuePairs() error = %v", err)
	}

	want := []VenuePair{
		{Venue: "Eden Gardens", City: "Kolkata"},
		{Venue: "Sharjah Cricket Stadium", City: ""},
		{Venue: "Wankhede Stadium", City: "Mumbai"},
	}

	if len(got) != len(want) {
		t.Fatalf("SourceVenuePairs() = %+v, want %+v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}
