// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes the loaded data over a JSON query API.
package server

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crickpit/crickpit/utils"
	"github.com/crickpit/crickpit/venues"
)

type Server struct {
	db        *sql.DB
	venueRepo venues.VenueRepository
}

func NewServer(db *sql.DB, venueRepo venues.VenueRepository) *Server {
	return &Server{
		db:        db,
		venueRepo: venueRepo,
	}
}

func (s *Server) router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", s.health)
	r.GET("/api/venues", s.listVenues)
	r.GET("/api/venues/unresolved", s.listUnresolvedVenues)
	r.GET("/api/venues/aliases", s.listVenueAliases)
	r.GET("/api/teams", s.listTeams)
	r.GET("/api/teams/:name/matches", s.listTeamMatches)
	r.GET("/api/matches", s.listMatches)
	r.GET("/api/players/:name/batting", s.playerBatting)
	r.GET("/api/players/:name/bowling", s.playerBowling)

	return r
}

func (s *Server) Run(bind string) error {
	return s.router().Run(bind)
}

func (s *Server) health(ctx *gin.Context) {
	if err := s.db.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listVenues(ctx *gin.Context) {
	canonical, err := s.venueRepo.ListCanonical()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, canonical)
}

func (s *Server) listUnresolvedVenues(ctx *gin.Context) {
	unresolved, err := s.venueRepo.UnresolvedCanonicals()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, unresolved)
}

func (s *Server) listVenueAliases(ctx *gin.Context) {
	aliases, err := s.venueRepo.ListAliases()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, aliases)
}

// TeamInfo summarizes one team across all loaded datasets.
type TeamInfo struct {
	Name    string `json:"name"`
	Matches int    `json:"matches"`
	Wins    int    `json:"wins"`
}

func (s *Server) listTeams(ctx *gin.Context) {
	rows, err := s.db.Query(`
		SELECT
			t.team,
			COUNT(*) AS matches,
			COUNT(*) FILTER (WHERE t.winner = t.team) AS wins
		FROM (
			SELECT team1 AS team, winner FROM matches
			UNION ALL
			SELECT team2 AS team, winner FROM matches
		) t
		GROUP BY t.team
		ORDER BY matches DESC, t.team
	`)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}
	defer rows.Close()

	teams := make([]TeamInfo, 0, 32)

	for rows.Next() {
		var t TeamInfo
		if err := rows.Scan(&t.Name, &t.Matches, &t.Wins); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		teams = append(teams, t)
	}

	if err := rows.Err(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, teams)
}

// MatchSummary is one match row as the API returns it.
type MatchSummary struct {
	MatchID        string `json:"match_id"`
	Dataset        string `json:"dataset"`
	Season         string `json:"season"`
	Date           string `json:"date"`
	City           string `json:"city,omitempty"`
	Venue          string `json:"venue,omitempty"`
	CanonicalVenue string `json:"canonical_venue,omitempty"`
	Team1          string `json:"team1"`
	Team2          string `json:"team2"`
	Winner         string `json:"winner,omitempty"`
	Result         string `json:"result,omitempty"`
}

const matchColumns = `
	match_id, dataset, COALESCE(season, ''), CAST(match_date AS VARCHAR),
	COALESCE(city, ''), COALESCE(venue, ''), COALESCE(canonical_venue, ''),
	team1, team2, COALESCE(winner, ''), COALESCE(result, '')
`

func scanMatches(rows *sql.Rows) ([]MatchSummary, error) {
	matches := make([]MatchSummary, 0, 64)

	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(
			&m.MatchID, &m.Dataset, &m.Season, &m.Date,
			&m.City, &m.Venue, &m.CanonicalVenue,
			&m.Team1, &m.Team2, &m.Winner, &m.Result,
		); err != nil {
			return nil, err
		}

		matches = append(matches, m)
	}

	return matches, rows.Err()
}

func (s *Server) listTeamMatches(ctx *gin.Context) {
	name := ctx.Param("name")

	rows, err := s.db.Query(`
		SELECT `+matchColumns+`
		FROM matches
		WHERE team1 = ? OR team2 = ?
		ORDER BY match_date, match_id
	`, name, name)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}
	defer rows.Close()

	matches, err := scanMatches(rows)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if len(matches) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no matches for team %q", name)})

		return
	}

	ctx.JSON(http.StatusOK, matches)
}

func (s *Server) listMatches(ctx *gin.Context) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE 1=1`

	var args []any

	if season := ctx.Query("season"); season != "" {
		query += " AND season = ?"

		args = append(args, season)
	}

	if team := ctx.Query("team"); team != "" {
		query += " AND (team1 = ? OR team2 = ?)"

		args = append(args, team, team)
	}

	if venue := ctx.Query("venue"); venue != "" {
		query += " AND COALESCE(canonical_venue, venue) = ?"

		args = append(args, venue)
	}

	limit := 100

	if l := ctx.Query("limit"); l != "" {
		if _, err := fmt.Sscanf(l, "%d", &limit); err != nil || limit < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})

			return
		}
	}

	if limit > 1000 {
		limit = 1000
	}

	query += " ORDER BY match_date, match_id LIMIT ?"

	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}
	defer rows.Close()

	matches, err := scanMatches(rows)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, matches)
}

// resolvePlayer maps a case- and accent-insensitive name to the exact
// spelling the deliveries use, via the Cricsheet player registry. Names not
// in the registry pass through unchanged.
func (s *Server) resolvePlayer(name string) string {
	var canonical string

	err := s.db.QueryRow(
		"SELECT name FROM players WHERE name_folded = ? LIMIT 1",
		utils.LowerASCIIFolding(name),
	).Scan(&canonical)
	if err != nil {
		// unknown player, or the registry was never imported
		return name
	}

	return canonical
}

// BattingSeason aggregates one player's batting over a season.
type BattingSeason struct {
	Season     string  `json:"season"`
	Matches    int     `json:"matches"`
	Runs       int     `json:"runs"`
	Balls      int     `json:"balls"`
	Fours      int     `json:"fours"`
	Sixes      int     `json:"sixes"`
	Dismissals int     `json:"dismissals"`
	StrikeRate float64 `json:"strike_rate"`
}

func (s *Server) playerBatting(ctx *gin.Context) {
	name := s.resolvePlayer(ctx.Param("name"))

	rows, err := s.db.Query(`
		SELECT
			COALESCE(m.season, '') AS season,
			COUNT(DISTINCT d.match_id) AS matches,
			SUM(d.batter_runs) AS runs,
			COUNT(*) FILTER (WHERE d.wides = 0) AS balls,
			COUNT(*) FILTER (WHERE d.batter_runs = 4 AND NOT d.non_boundary) AS fours,
			COUNT(*) FILTER (WHERE d.batter_runs = 6 AND NOT d.non_boundary) AS sixes,
			COUNT(*) FILTER (WHERE d.is_wicket AND d.wicket_player_out = d.batter) AS dismissals
		FROM deliveries d
		JOIN matches m ON m.match_id = d.match_id
		WHERE d.batter = ?
		GROUP BY season
		ORDER BY season
	`, name)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}
	defer rows.Close()

	seasons := make([]BattingSeason, 0, 16)

	for rows.Next() {
		var b BattingSeason
		if err := rows.Scan(
			&b.Season, &b.Matches, &b.Runs, &b.Balls,
			&b.Fours, &b.Sixes, &b.Dismissals,
		); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		if b.Balls > 0 {
			b.StrikeRate = float64(b.Runs) / float64(b.Balls) * 100
		}

		seasons = append(seasons, b)
	}

	if err := rows.Err(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if len(seasons) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no batting record for %q", name)})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"player": name, "seasons": seasons})
}

// BowlingSeason aggregates one player's bowling over a season.
type BowlingSeason struct {
	Season  string  `json:"season"`
	Matches int     `json:"matches"`
	Balls   int     `json:"balls"`
	Runs    int     `json:"runs_conceded"`
	Wickets int     `json:"wickets"`
	Economy float64 `json:"economy"`
}

// Dismissal kinds not credited to the bowler.
const nonBowlerWickets = `('run out', 'retired hurt', 'retired out', 'obstructing the field', 'timed out')`

func (s *Server) playerBowling(ctx *gin.Context) {
	name := s.resolvePlayer(ctx.Param("name"))

	rows, err := s.db.Query(`
		SELECT
			COALESCE(m.season, '') AS season,
			COUNT(DISTINCT d.match_id) AS matches,
			COUNT(*) FILTER (WHERE d.wides = 0 AND d.noballs = 0) AS balls,
			SUM(d.total_runs - d.byes - d.legbyes - d.penalty) AS runs_conceded,
			COUNT(*) FILTER (WHERE d.is_wicket AND d.wicket_kind NOT IN `+nonBowlerWickets+`) AS wickets
		FROM deliveries d
		JOIN matches m ON m.match_id = d.match_id
		WHERE d.bowler = ?
		GROUP BY season
		ORDER BY season
	`, name)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}
	defer rows.Close()

	seasons := make([]BowlingSeason, 0, 16)

	for rows.Next() {
		var b BowlingSeason
		if err := rows.Scan(&b.Season, &b.Matches, &b.Balls, &b.Runs, &b.Wickets); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

			return
		}

		if b.Balls > 0 {
			b.Economy = float64(b.Runs) / (float64(b.Balls) / 6)
		}

		seasons = append(seasons, b)
	}

	if err := rows.Err(); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if len(seasons) == 0 {
		ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no bowling record for %q", name)})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"player": name, "seasons": seasons})
}
