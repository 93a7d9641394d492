// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/crickpit/crickpit/utils"
)

// MatchRepository defines the interface for database operations.
type MatchRepository interface {
	//////// Extraction
	// CreateSchema creates the database schema.
	CreateSchema() error
	// SaveMatch saves one match and its deliveries to the database.
	SaveMatch(m *Match) error
	// LoadedMatches returns the identifiers of all matches already loaded
	// for the given dataset.
	LoadedMatches(dataset string) (map[string]bool, error)
	// ImportPeople replaces the player registry with the given Cricsheet
	// people.csv content.
	ImportPeople(r io.Reader) (int, error)

	//////// Venue Integration
	// BackfillVenueData updates matches with canonical venue names and
	// coordinates from the venue resolution tables.
	BackfillVenueData() (int64, error)

	// CountMatches returns the number of loaded matches.
	CountMatches() (int64, error)
	// CountDeliveries returns the number of loaded deliveries.
	CountDeliveries() (int64, error)

	DB() *sql.DB
}

type sqlMatchRepository struct {
	db *sql.DB
}

func NewSQLMatchRepository(db *sql.DB) (MatchRepository, error) {
	// DuckDB needs to load the spatial extension
	_, err := db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return nil, err
	}

	return &sqlMatchRepository{db: db}, nil
}

func (r *sqlMatchRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlMatchRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS matches (
			match_id VARCHAR NOT NULL,
			dataset VARCHAR NOT NULL,
			data_version VARCHAR,
			meta_created DATE,
			meta_revision INTEGER,
			season_label VARCHAR,
			season VARCHAR,
			match_date DATE,
			city VARCHAR,
			venue VARCHAR,
			team1 VARCHAR NOT NULL,
			team2 VARCHAR NOT NULL,
			team_type VARCHAR,
			match_type VARCHAR,
			gender VARCHAR,
			overs INTEGER,
			balls_per_over UTINYINT,
			toss_winner VARCHAR,
			toss_decision VARCHAR,
			toss_uncontested BOOLEAN,
			winner VARCHAR,
			won_by_runs USMALLINT,
			won_by_wickets UTINYINT,
			result VARCHAR,
			method VARCHAR,
			eliminator VARCHAR,
			player_of_match VARCHAR,
			event_name VARCHAR,
			event_match_number USMALLINT,
			event_stage VARCHAR
		);

		ALTER TABLE matches ADD COLUMN IF NOT EXISTS canonical_venue VARCHAR;
		ALTER TABLE matches ADD COLUMN IF NOT EXISTS canonical_city VARCHAR;
		ALTER TABLE matches ADD COLUMN IF NOT EXISTS venue_point POINT_2D;
		ALTER TABLE matches ADD COLUMN IF NOT EXISTS h3_res5 UBIGINT;
		ALTER TABLE matches ADD COLUMN IF NOT EXISTS h3_res7 UBIGINT;
		ALTER TABLE matches ADD COLUMN IF NOT EXISTS h3_res9 UBIGINT;

		CREATE TABLE IF NOT EXISTS deliveries (
			match_id VARCHAR NOT NULL,
			innings UTINYINT NOT NULL,
			batting_team VARCHAR NOT NULL,
			super_over BOOLEAN NOT NULL,
			over_num USMALLINT NOT NULL,
			ball_num UTINYINT NOT NULL,
			batter VARCHAR NOT NULL,
			bowler VARCHAR NOT NULL,
			non_striker VARCHAR NOT NULL,
			batter_runs UTINYINT NOT NULL,
			extras_runs UTINYINT NOT NULL,
			total_runs UTINYINT NOT NULL,
			non_boundary BOOLEAN NOT NULL,
			wides UTINYINT NOT NULL,
			noballs UTINYINT NOT NULL,
			byes UTINYINT NOT NULL,
			legbyes UTINYINT NOT NULL,
			penalty UTINYINT NOT NULL,
			is_wicket BOOLEAN NOT NULL,
			wicket_kind VARCHAR,
			wicket_player_out VARCHAR,
			wicket_fielder VARCHAR
		);

		CREATE TABLE IF NOT EXISTS players (
			identifier VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			unique_name VARCHAR NOT NULL,
			name_folded VARCHAR NOT NULL
		);
	`)

	return err
}

func (r *sqlMatchRepository) LoadedMatches(dataset string) (map[string]bool, error) {
	rows, err := r.db.Query("SELECT DISTINCT match_id FROM matches WHERE dataset = ?", dataset)
	if err != nil {
		return nil, fmt.Errorf("querying loaded matches: %w", err)
	}
	defer rows.Close()

	loaded := make(map[string]bool)

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning loaded match: %w", err)
		}

		loaded[id] = true
	}

	return loaded, rows.Err()
}

func nve(v string) any {
	var ret any
	if len(v) == 0 {
		ret = nil
	} else {
		ret = v
	}

	return ret
}

// SaveMatch replaces the match and its deliveries inside one transaction, so
// a rerun over an already loaded match converges instead of duplicating rows.
func (r *sqlMatchRepository) SaveMatch(m *Match) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for %s: %w", m.MatchID, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction for %s: %v", m.MatchID, err)
		}
	}()

	if _, err := tx.Exec("DELETE FROM deliveries WHERE match_id = ?", m.MatchID); err != nil {
		return fmt.Errorf("deleting deliveries for %s: %w", m.MatchID, err)
	}

	if _, err := tx.Exec("DELETE FROM matches WHERE match_id = ?", m.MatchID); err != nil {
		return fmt.Errorf("deleting match %s: %w", m.MatchID, err)
	}

	if _, err := tx.Exec(`
		INSERT INTO matches (
			match_id, dataset, data_version, meta_created, meta_revision,
			season_label, season, match_date, city, venue,
			team1, team2, team_type, match_type, gender,
			overs, balls_per_over,
			toss_winner, toss_decision, toss_uncontested,
			winner, won_by_runs, won_by_wickets, result, method, eliminator,
			player_of_match, event_name, event_match_number, event_stage
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?,
			?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?
		)
	`,
		m.MatchID, m.Dataset, nve(m.DataVersion), nve(m.MetaCreated), m.MetaRevision,
		nve(m.SeasonLabel), nve(m.Season), m.Date, nve(m.City), nve(m.Venue),
		m.Team1, m.Team2, nve(m.TeamType), nve(m.MatchType), nve(m.Gender),
		m.Overs, m.BallsPerOver,
		nve(m.TossWinner), nve(m.TossDecision), m.TossUncontested,
		nve(m.Winner), m.WonByRuns, m.WonByWkts, nve(m.Result), nve(m.Method), nve(m.Eliminator),
		nve(m.PlayerOfMatch), nve(m.EventName), m.EventMatchNum, nve(m.EventStage),
	); err != nil {
		return fmt.Errorf("inserting match %s: %w", m.MatchID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO deliveries (
			match_id, innings, batting_team, super_over, over_num, ball_num,
			batter, bowler, non_striker,
			batter_runs, extras_runs, total_runs, non_boundary,
			wides, noballs, byes, legbyes, penalty,
			is_wicket, wicket_kind, wicket_player_out, wicket_fielder
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, d := range m.Deliveries {
		_, err := stmt.Exec(
			d.MatchID, d.Innings, d.BattingTeam, d.SuperOver, d.OverNum, d.BallNum,
			d.Batter, d.Bowler, d.NonStriker,
			d.BatterRuns, d.ExtrasRuns, d.TotalRuns, d.NonBoundary,
			d.Wides, d.Noballs, d.Byes, d.Legbyes, d.Penalty,
			d.IsWicket, nve(d.WicketKind), nve(d.WicketPlayerOut), nve(d.WicketFielder),
		)
		if err != nil {
			return fmt.Errorf("inserting delivery for %s: %w", m.MatchID, err)
		}
	}

	return tx.Commit()
}

// ImportPeople replaces the players table from a Cricsheet people.csv stream.
// The registry is small enough to reload whole on every update.
func (r *sqlMatchRepository) ImportPeople(reader io.Reader) (int, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1 // Cricsheet occasionally adds trailing key columns

	header, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("reading people header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	for _, required := range []string{"identifier", "name", "unique_name"} {
		if _, ok := col[required]; !ok {
			return 0, fmt.Errorf("people registry: missing column %q", required)
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting people transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback people transaction: %v", err)
		}
	}()

	if _, err := tx.Exec("DELETE FROM players"); err != nil {
		return 0, fmt.Errorf("clearing players: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO players (identifier, name, unique_name, name_folded)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	var n int

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return n, fmt.Errorf("reading people record: %w", err)
		}

		identifier := record[col["identifier"]]
		name := record[col["name"]]
		uniqueName := record[col["unique_name"]]

		if identifier == "" || name == "" {
			continue
		}

		if _, err := stmt.Exec(
			identifier,
			name,
			uniqueName,
			utils.LowerASCIIFolding(name),
		); err != nil {
			return n, fmt.Errorf("inserting player %s: %w", identifier, err)
		}

		n++
	}

	if err := tx.Commit(); err != nil {
		return n, err
	}

	return n, nil
}

func (r *sqlMatchRepository) BackfillVenueData() (int64, error) {
	var n int64

	for _, q := range []string{
		// first we apply the canonical names
		`
		UPDATE matches
		SET
			canonical_venue = va.canonical_venue,
			canonical_city = va.canonical_city
		FROM
			venue_aliases va
		WHERE
			matches.venue = va.venue
			AND COALESCE(matches.city, '') = va.city
			AND matches.canonical_venue IS NULL
		`,
		// then we apply the geocoding information
		`
		UPDATE matches
		SET
			venue_point = cv.point,
			h3_res5 = cv.h3_res5,
			h3_res7 = cv.h3_res7,
			h3_res9 = cv.h3_res9
		FROM
			canonical_venues cv
		WHERE
			matches.canonical_venue = cv.venue
			AND COALESCE(matches.canonical_city, '') = cv.city
			AND matches.venue_point IS NULL
		`,
	} {
		result, err := r.db.Exec(q)
		if err != nil {
			return n, fmt.Errorf("backfilling venue data: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return n, fmt.Errorf("getting rows affected: %w", err)
		}

		n += rowsAffected
	}

	return n, nil
}

func (r *sqlMatchRepository) count(table string) (int64, error) {
	var n int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}

	return n, nil
}

func (r *sqlMatchRepository) CountMatches() (int64, error) {
	return r.count("matches")
}

func (r *sqlMatchRepository) CountDeliveries() (int64, error) {
	return r.count("deliveries")
}
