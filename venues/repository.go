// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/crickpit/crickpit/spatial"
	"github.com/uber/h3-go/v4"
)

// CanonicalVenue is the authoritative record for one physical stadium.
// Point is nil when every geocode attempt for the venue came back empty.
// Rows are never mutated or deleted once written.
type CanonicalVenue struct {
	ID            int64          `json:"-"`
	Venue         string         `json:"venue"`
	City          string         `json:"city,omitempty"`
	Point         *spatial.Point `json:"point,omitempty"`
	PhotonName    string         `json:"photon_name,omitempty"`
	PhotonCountry string         `json:"photon_country,omitempty"`
	PhotonState   string         `json:"photon_state,omitempty"`
	OSMValue      string         `json:"osm_value,omitempty"`
	GeocodedAt    time.Time      `json:"geocoded_at"`
	H3Res5        int64          `json:"-"`
	H3Res7        int64          `json:"-"`
	H3Res9        int64          `json:"-"`
}

func (v *CanonicalVenue) computeH3() error {
	if v.Point == nil {
		v.H3Res5, v.H3Res7, v.H3Res9 = 0, 0, 0

		return nil
	}

	latLng := h3.NewLatLng(v.Point.Lat, v.Point.Lng)

	for _, res := range []struct {
		res  int
		cell *int64
	}{
		{5, &v.H3Res5},
		{7, &v.H3Res7},
		{9, &v.H3Res9},
	} {
		cell, err := h3.LatLngToCell(latLng, res.res)
		if err != nil {
			return fmt.Errorf("converting to h3 cell at res %d: %w", res.res, err)
		}

		*res.cell = int64(cell)
	}

	return nil
}

// VenueAlias maps one observed (venue, city) spelling from source match
// data to a canonical venue. Exactly one row exists per distinct spelling;
// rows are never mutated or deleted.
type VenueAlias struct {
	Venue          string    `json:"venue"`
	City           string    `json:"city,omitempty"`
	CanonicalVenue string    `json:"canonical_venue"`
	CanonicalCity  string    `json:"canonical_city,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// VenuePair is an observed (venue, city) spelling. A missing city is the
// empty string; two pairs with missing cities compare equal.
type VenuePair struct {
	Venue string
	City  string
}

// VenueRepository handles append-only persistence of canonical venues and
// alias mappings. Single-writer; the resolver owns all writes.
type VenueRepository interface {
	// CreateSchema creates the canonical_venues and venue_aliases tables
	CreateSchema() error

	// InsertCanonical appends a canonical venue. Idempotent: re-inserting
	// an existing (venue, city) is a no-op.
	InsertCanonical(v *CanonicalVenue) error

	// InsertAlias appends an alias mapping. Idempotent like InsertCanonical.
	InsertAlias(a *VenueAlias) error

	// ListCanonical returns all canonical venues in insertion order.
	ListCanonical() ([]*CanonicalVenue, error)

	// ListAliases returns all alias mappings sorted by (venue, city).
	ListAliases() ([]*VenueAlias, error)

	// AliasKeys returns the set of spellings already resolved.
	AliasKeys() (map[VenuePair]bool, error)

	// UnresolvedCanonicals returns canonical venues without coordinates.
	UnresolvedCanonicals() ([]*CanonicalVenue, error)

	// CountCanonical returns the number of canonical venues.
	CountCanonical() (int, error)

	// CountAliases returns the number of alias mappings.
	CountAliases() (int, error)

	// SourceTableReady fails when the staged matches table is missing or
	// empty, so a run aborts with a clear diagnostic instead of silently
	// resolving nothing.
	SourceTableReady() error

	// SourceVenuePairs returns the distinct (venue, city) pairs observed
	// in staged match data, sorted by (venue, city).
	SourceVenuePairs() ([]VenuePair, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlVenueRepository struct {
	db *sql.DB
}

// NewVenueRepository creates a DuckDB-backed venue repository.
func NewVenueRepository(db *sql.DB) VenueRepository {
	return &sqlVenueRepository{db: db}
}

func (r *sqlVenueRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlVenueRepository) CreateSchema() error {
	// DuckDB needs to load the spatial extension
	_, err := r.db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS canonical_venues_seq START 1;

		CREATE TABLE IF NOT EXISTS canonical_venues (
			id INTEGER PRIMARY KEY DEFAULT nextval('canonical_venues_seq'),
			venue VARCHAR NOT NULL,
			city VARCHAR NOT NULL DEFAULT '',
			point POINT_2D,
			photon_name VARCHAR,
			photon_country VARCHAR,
			photon_state VARCHAR,
			osm_value VARCHAR,
			geocoded_at TIMESTAMP NOT NULL,
			h3_res5 UBIGINT,
			h3_res7 UBIGINT,
			h3_res9 UBIGINT,
			UNIQUE(venue, city)
		);

		CREATE TABLE IF NOT EXISTS venue_aliases (
			venue VARCHAR NOT NULL,
			city VARCHAR NOT NULL DEFAULT '',
			canonical_venue VARCHAR NOT NULL,
			canonical_city VARCHAR NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			UNIQUE(venue, city)
		);
	`)

	return err
}

func (r *sqlVenueRepository) InsertCanonical(v *CanonicalVenue) error {
	if v.Point != nil {
		if err := spatial.ValidateCoordinates(v.Point.Lat, v.Point.Lng); err != nil {
			return fmt.Errorf("canonical venue %q: %w", v.Venue, err)
		}
	}

	if err := v.computeH3(); err != nil {
		return err
	}

	if v.GeocodedAt.IsZero() {
		v.GeocodedAt = time.Now()
	}

	var lng, lat any
	if v.Point != nil {
		lng, lat = v.Point.Lng, v.Point.Lat
	}

	_, err := r.db.Exec(`
		INSERT INTO canonical_venues (
			venue, city, point,
			photon_name, photon_country, photon_state, osm_value,
			geocoded_at, h3_res5, h3_res7, h3_res9
		)
		SELECT ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM canonical_venues WHERE venue = ? AND city = ?
		)
	`,
		v.Venue, v.City, lng, lat,
		nve(v.PhotonName), nve(v.PhotonCountry), nve(v.PhotonState), nve(v.OSMValue),
		v.GeocodedAt, nz(v.H3Res5), nz(v.H3Res7), nz(v.H3Res9),
		v.Venue, v.City,
	)
	if err != nil {
		return fmt.Errorf("inserting canonical venue %q: %w", v.Venue, err)
	}

	return nil
}

func (r *sqlVenueRepository) InsertAlias(a *VenueAlias) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO venue_aliases (venue, city, canonical_venue, canonical_city, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM venue_aliases WHERE venue = ? AND city = ?
		)
	`,
		a.Venue, a.City, a.CanonicalVenue, a.CanonicalCity, a.CreatedAt,
		a.Venue, a.City,
	)
	if err != nil {
		return fmt.Errorf("inserting alias %q: %w", a.Venue, err)
	}

	return nil
}

var canonicalSelect = `
	SELECT id, venue, city, point,
	       photon_name, photon_country, photon_state, osm_value,
	       geocoded_at, h3_res5, h3_res7, h3_res9
	FROM canonical_venues
`

func (r *sqlVenueRepository) listCanonical(query string, args []any) ([]*CanonicalVenue, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []*CanonicalVenue

	for rows.Next() {
		v := &CanonicalVenue{}

		var point sql.Null[spatial.Point]

		var name, country, state, osmValue sql.NullString

		var h3Res5, h3Res7, h3Res9 sql.NullInt64

		err := rows.Scan(
			&v.ID, &v.Venue, &v.City, &point,
			&name, &country, &state, &osmValue,
			&v.GeocodedAt, &h3Res5, &h3Res7, &h3Res9,
		)
		if err != nil {
			return nil, err
		}

		if point.Valid {
			p := point.V
			v.Point = &p
		}

		v.PhotonName = name.String
		v.PhotonCountry = country.String
		v.PhotonState = state.String
		v.OSMValue = osmValue.String
		v.H3Res5 = h3Res5.Int64
		v.H3Res7 = h3Res7.Int64
		v.H3Res9 = h3Res9.Int64

		ret = append(ret, v)
	}

	return ret, rows.Err()
}

func (r *sqlVenueRepository) ListCanonical() ([]*CanonicalVenue, error) {
	return r.listCanonical(canonicalSelect+" ORDER BY id", nil)
}

func (r *sqlVenueRepository) UnresolvedCanonicals() ([]*CanonicalVenue, error) {
	return r.listCanonical(canonicalSelect+" WHERE point IS NULL ORDER BY id", nil)
}

func (r *sqlVenueRepository) ListAliases() ([]*VenueAlias, error) {
	rows, err := r.db.Query(`
		SELECT venue, city, canonical_venue, canonical_city, created_at
		FROM venue_aliases
		ORDER BY venue, city
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ret []*VenueAlias

	for rows.Next() {
		a := &VenueAlias{}
		if err := rows.Scan(&a.Venue, &a.City, &a.CanonicalVenue, &a.CanonicalCity, &a.CreatedAt); err != nil {
			return nil, err
		}

		ret = append(ret, a)
	}

	return ret, rows.Err()
}

func (r *sqlVenueRepository) AliasKeys() (map[VenuePair]bool, error) {
	rows, err := r.db.Query("SELECT venue, city FROM venue_aliases")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[VenuePair]bool)

	for rows.Next() {
		var p VenuePair
		if err := rows.Scan(&p.Venue, &p.City); err != nil {
			return nil, err
		}

		keys[p] = true
	}

	return keys, rows.Err()
}

func (r *sqlVenueRepository) CountCanonical() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM canonical_venues").Scan(&count)

	return count, err
}

func (r *sqlVenueRepository) CountAliases() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM venue_aliases").Scan(&count)

	return count, err
}

func (r *sqlVenueRepository) SourceTableReady() error {
	var exists int

	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'matches'
	`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking for matches table: %w", err)
	}

	if exists == 0 {
		return fmt.Errorf("matches table does not exist - run 'crickpit ingest update' first")
	}

	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM matches").Scan(&count); err != nil {
		return fmt.Errorf("counting staged matches: %w", err)
	}

	if count == 0 {
		return fmt.Errorf("matches table is empty - run 'crickpit ingest update' first")
	}

	return nil
}

func (r *sqlVenueRepository) SourceVenuePairs() ([]VenuePair, error) {
	rows, err := r.db.Query(`
		SELECT DISTINCT venue, COALESCE(city, '')
		FROM matches
		WHERE venue IS NOT NULL AND venue != ''
		ORDER BY 1, 2
	`)
	if err != nil {
		return nil, fmt.Errorf("querying source venue pairs: %w", err)
	}
	defer rows.Close()

	var ret []VenuePair

	for rows.Next() {
		var p VenuePair
		if err := rows.Scan(&p.Venue, &p.City); err != nil {
			return nil, err
		}

		ret = append(ret, p)
	}

	return ret, rows.Err()
}

func nve(v string) any {
	if len(v) == 0 {
		return nil
	}

	return v
}

func nz(v int64) any {
	if v == 0 {
		return nil
	}

	return v
}
