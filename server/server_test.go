// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crickpit/crickpit/ingest"
	"github.com/crickpit/crickpit/spatial"
	"github.com/crickpit/crickpit/venues"
)

// setupServerTest seeds an in-memory database with one match, its
// deliveries, the player registry, and the venue resolution output.
func setupServerTest(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	matchRepo, err := ingest.NewSQLMatchRepository(db)
	require.NoError(t, err)
	require.NoError(t, matchRepo.CreateSchema())

	m := &ingest.Match{
		MatchID: "335982",
		Dataset: "ipl",
		Season:  "2008",
		Date:    "2008-04-20",
		City:    "Mumbai",
		Venue:   "Wankhede Stadium",
		Team1:   "Mumbai Indians",
		Team2:   "Chennai Super Kings",
		Winner:  "Mumbai Indians",
		Overs:   20,
		Deliveries: []ingest.Delivery{
			{
				MatchID: "335982", Innings: 1, BattingTeam: "Mumbai Indians",
				OverNum: 0, BallNum: 1,
				Batter: "SR Tendulkar", Bowler: "M Muralitharan", NonStriker: "S Jayasuriya",
				BatterRuns: 4, TotalRuns: 4,
			},
			{
				MatchID: "335982", Innings: 1, BattingTeam: "Mumbai Indians",
				OverNum: 0, BallNum: 2,
				Batter: "SR Tendulkar", Bowler: "M Muralitharan", NonStriker: "S Jayasuriya",
				Wides: 1, ExtrasRuns: 1, TotalRuns: 1,
			},
			{
				MatchID: "335982", Innings: 1, BattingTeam: "Mumbai Indians",
				OverNum: 0, BallNum: 3,
				Batter: "SR Tendulkar", Bowler: "M Muralitharan", NonStriker: "S Jayasuriya",
				IsWicket: true, WicketKind: "bowled", WicketPlayerOut: "SR Tendulkar",
			},
		},
	}
	require.NoError(t, matchRepo.SaveMatch(m))

	const people = "identifier,name,unique_name\nabc123,SR Tendulkar,SR Tendulkar\n"

	_, err = matchRepo.ImportPeople(strings.NewReader(people))
	require.NoError(t, err)

	venueRepo := venues.NewVenueRepository(db)
	require.NoError(t, venueRepo.CreateSchema())

	require.NoError(t, venueRepo.InsertCanonical(&venues.CanonicalVenue{
		Venue: "Wankhede Stadium",
		City:  "Mumbai",
		Point: &spatial.Point{Lat: 18.9388, Lng: 72.8258},
	}))
	require.NoError(t, venueRepo.InsertCanonical(&venues.CanonicalVenue{
		Venue: "Mystery Ground",
		City:  "",
	}))
	require.NoError(t, venueRepo.InsertAlias(&venues.VenueAlias{
		Venue:          "Wankhede Stadium",
		City:           "Mumbai",
		CanonicalVenue: "Wankhede Stadium",
		CanonicalCity:  "Mumbai",
	}))

	return NewServer(db, venueRepo).router()
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)

	router.ServeHTTP(w, req)

	return w
}

func TestHealth(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListVenues(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/venues")
	require.Equal(t, http.StatusOK, w.Code)

	var got []venues.CanonicalVenue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got, 2)
	assert.Equal(t, "Wankhede Stadium", got[0].Venue)
	require.NotNil(t, got[0].Point)
	assert.InDelta(t, 18.9388, got[0].Point.Lat, 1e-6)
}

func TestListUnresolvedVenues(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/venues/unresolved")
	require.Equal(t, http.StatusOK, w.Code)

	var got []venues.CanonicalVenue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got, 1)
	assert.Equal(t, "Mystery Ground", got[0].Venue)
	assert.Nil(t, got[0].Point)
}

func TestListVenueAliases(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/venues/aliases")
	require.Equal(t, http.StatusOK, w.Code)

	var got []venues.VenueAlias
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got, 1)
	assert.Equal(t, "Wankhede Stadium", got[0].CanonicalVenue)
}

func TestListTeams(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/teams")
	require.Equal(t, http.StatusOK, w.Code)

	var got []TeamInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got, 2)

	byName := map[string]TeamInfo{}
	for _, team := range got {
		byName[team.Name] = team
	}

	assert.Equal(t, 1, byName["Mumbai Indians"].Matches)
	assert.Equal(t, 1, byName["Mumbai Indians"].Wins)
	assert.Equal(t, 0, byName["Chennai Super Kings"].Wins)
}

func TestListTeamMatches(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/teams/Chennai%20Super%20Kings/matches")
	require.Equal(t, http.StatusOK, w.Code)

	var got []MatchSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got, 1)
	assert.Equal(t, "335982", got[0].MatchID)
	assert.Equal(t, "Mumbai Indians", got[0].Winner)

	w = get(t, router, "/api/teams/Nonexistent%20XI/matches")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMatchesFilters(t *testing.T) {
	router := setupServerTest(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"no filter", "/api/matches", 1},
		{"season match", "/api/matches?season=2008", 1},
		{"season miss", "/api/matches?season=2020", 0},
		{"team", "/api/matches?team=Mumbai%20Indians", 1},
		{"venue", "/api/matches?venue=Wankhede%20Stadium", 1},
		{"combined", "/api/matches?season=2008&team=Chennai%20Super%20Kings", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := get(t, router, tc.path)
			require.Equal(t, http.StatusOK, w.Code)

			var got []MatchSummary
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Len(t, got, tc.want)
		})
	}

	w := get(t, router, "/api/matches?limit=bogus")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayerBatting(t *testing.T) {
	router := setupServerTest(t)

	// Folded lookup resolves the lowercase spelling to the registry name.
	w := get(t, router, "/api/players/sr%20tendulkar/batting")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Player  string          `json:"player"`
		Seasons []BattingSeason `json:"seasons"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	assert.Equal(t, "SR Tendulkar", got.Player)
	require.Len(t, got.Seasons, 1)

	season := got.Seasons[0]
	assert.Equal(t, "2008", season.Season)
	assert.Equal(t, 1, season.Matches)
	assert.Equal(t, 4, season.Runs)
	assert.Equal(t, 2, season.Balls) // the wide doesn't count
	assert.Equal(t, 1, season.Fours)
	assert.Equal(t, 1, season.Dismissals)
	assert.InDelta(t, 200.0, season.StrikeRate, 1e-6)

	w = get(t, router, "/api/players/Nobody/batting")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPlayerBowling(t *testing.T) {
	router := setupServerTest(t)

	w := get(t, router, "/api/players/M%20Muralitharan/bowling")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Player  string          `json:"player"`
		Seasons []BowlingSeason `json:"seasons"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))

	require.Len(t, got.Seasons, 1)

	season := got.Seasons[0]
	assert.Equal(t, 2, season.Balls) // the wide doesn't count
	assert.Equal(t, 5, season.Runs)  // 4 off the bat + 1 wide
	assert.Equal(t, 1, season.Wickets)
}
