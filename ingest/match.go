// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// flexString tolerates Cricsheet fields that appear either as a JSON string
// or as a number, such as info.season ("2007/08" vs 2021).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())

	return nil
}

// matchFile mirrors the Cricsheet JSON layout, data_version 1.x.
type matchFile struct {
	Meta struct {
		DataVersion flexString `json:"data_version"`
		Created     string     `json:"created"`
		Revision    int        `json:"revision"`
	} `json:"meta"`
	Info struct {
		BallsPerOver int        `json:"balls_per_over"`
		City         string     `json:"city"`
		Dates        []string   `json:"dates"`
		Event        struct {
			Name        string     `json:"name"`
			MatchNumber int        `json:"match_number"`
			Stage       flexString `json:"stage"`
			Group       flexString `json:"group"`
		} `json:"event"`
		Gender    string     `json:"gender"`
		MatchType string     `json:"match_type"`
		Outcome   struct {
			Winner string `json:"winner"`
			Result string `json:"result"`
			Method string `json:"method"`
			By     struct {
				Runs    int `json:"runs"`
				Wickets int `json:"wickets"`
			} `json:"by"`
			Eliminator string `json:"eliminator"`
		} `json:"outcome"`
		Overs         int                 `json:"overs"`
		PlayerOfMatch []string            `json:"player_of_match"`
		Players       map[string][]string `json:"players"`
		Season        flexString          `json:"season"`
		TeamType      string              `json:"team_type"`
		Teams         []string            `json:"teams"`
		Toss          struct {
			Winner      string `json:"winner"`
			Decision    string `json:"decision"`
			Uncontested bool   `json:"uncontested"`
		} `json:"toss"`
		Venue string `json:"venue"`
	} `json:"info"`
	Innings []struct {
		Team      string `json:"team"`
		SuperOver bool   `json:"super_over"`
		Overs     []struct {
			Over       int `json:"over"`
			Deliveries []struct {
				Batter     string `json:"batter"`
				Bowler     string `json:"bowler"`
				NonStriker string `json:"non_striker"`
				Runs       struct {
					Batter      int  `json:"batter"`
					Extras      int  `json:"extras"`
					Total       int  `json:"total"`
					NonBoundary bool `json:"non_boundary"`
				} `json:"runs"`
				Extras struct {
					Wides   int `json:"wides"`
					Noballs int `json:"noballs"`
					Byes    int `json:"byes"`
					Legbyes int `json:"legbyes"`
					Penalty int `json:"penalty"`
				} `json:"extras"`
				Wickets []struct {
					Kind      string `json:"kind"`
					PlayerOut string `json:"player_out"`
					Fielders  []struct {
						Name       string `json:"name"`
						Substitute bool   `json:"substitute"`
					} `json:"fielders"`
				} `json:"wickets"`
			} `json:"deliveries"`
		} `json:"overs"`
	} `json:"innings"`
}

// Match is one flattened Cricsheet match ready for persistence.
type Match struct {
	MatchID      string
	Dataset      string
	DataVersion  string
	MetaCreated  string
	MetaRevision int

	SeasonLabel string // as published, e.g. "2007/08"
	Season      string // normalized starting from the match date
	Date        string // first scheduled date, ISO-8601
	City        string
	Venue       string

	Team1     string
	Team2     string
	TeamType  string
	MatchType string
	Gender    string

	Overs        int
	BallsPerOver int

	TossWinner      string
	TossDecision    string
	TossUncontested bool

	Winner     string
	WonByRuns  int
	WonByWkts  int
	Result     string // "tie", "no result" when there is no winner
	Method     string // e.g. "D/L"
	Eliminator string

	PlayerOfMatch string
	EventName     string
	EventMatchNum int
	EventStage    string

	Deliveries []Delivery
}

// Delivery is one ball of a match, in chronological order.
type Delivery struct {
	MatchID     string
	Innings     int // 1-based
	BattingTeam string
	SuperOver   bool
	OverNum     int
	BallNum     int // 1-based within the over, counting extras

	Batter     string
	Bowler     string
	NonStriker string

	BatterRuns  int
	ExtrasRuns  int
	TotalRuns   int
	NonBoundary bool

	Wides   int
	Noballs int
	Byes    int
	Legbyes int
	Penalty int

	IsWicket        bool
	WicketKind      string
	WicketPlayerOut string
	WicketFielder   string
}

// ParseMatch decodes one Cricsheet ball-by-ball document and flattens it into
// a Match with its deliveries. The match identifier is the document's file
// name stem, which Cricsheet keeps stable across archive revisions.
func ParseMatch(matchID, dataset string, r io.Reader) (*Match, error) {
	var doc matchFile

	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("match %s: decoding: %w", matchID, err)
	}

	if len(doc.Info.Teams) != 2 {
		return nil, fmt.Errorf("match %s: expected 2 teams, got %d", matchID, len(doc.Info.Teams))
	}
	if len(doc.Info.Dates) == 0 {
		return nil, fmt.Errorf("match %s: no dates", matchID)
	}

	m := &Match{
		MatchID:      matchID,
		Dataset:      dataset,
		DataVersion:  string(doc.Meta.DataVersion),
		MetaCreated:  doc.Meta.Created,
		MetaRevision: doc.Meta.Revision,

		SeasonLabel: string(doc.Info.Season),
		Season:      NormalizeSeason(string(doc.Info.Season), doc.Info.Dates[0]),
		Date:        doc.Info.Dates[0],
		City:        strings.TrimSpace(doc.Info.City),
		Venue:       strings.TrimSpace(doc.Info.Venue),

		Team1:     CanonicalTeam(doc.Info.Teams[0]),
		Team2:     CanonicalTeam(doc.Info.Teams[1]),
		TeamType:  doc.Info.TeamType,
		MatchType: doc.Info.MatchType,
		Gender:    doc.Info.Gender,

		Overs:        doc.Info.Overs,
		BallsPerOver: doc.Info.BallsPerOver,

		TossWinner:      CanonicalTeam(doc.Info.Toss.Winner),
		TossDecision:    doc.Info.Toss.Decision,
		TossUncontested: doc.Info.Toss.Uncontested,

		Winner:     CanonicalTeam(doc.Info.Outcome.Winner),
		WonByRuns:  doc.Info.Outcome.By.Runs,
		WonByWkts:  doc.Info.Outcome.By.Wickets,
		Result:     doc.Info.Outcome.Result,
		Method:     doc.Info.Outcome.Method,
		Eliminator: CanonicalTeam(doc.Info.Outcome.Eliminator),

		EventName:     doc.Info.Event.Name,
		EventMatchNum: doc.Info.Event.MatchNumber,
		EventStage:    string(doc.Info.Event.Stage),
	}

	if m.BallsPerOver == 0 {
		m.BallsPerOver = 6
	}
	if len(doc.Info.PlayerOfMatch) > 0 {
		m.PlayerOfMatch = doc.Info.PlayerOfMatch[0]
	}

	for i, innings := range doc.Innings {
		team := CanonicalTeam(innings.Team)

		for _, over := range innings.Overs {
			for ball, d := range over.Deliveries {
				row := Delivery{
					MatchID:     matchID,
					Innings:     i + 1,
					BattingTeam: team,
					SuperOver:   innings.SuperOver,
					OverNum:     over.Over,
					BallNum:     ball + 1,

					Batter:     d.Batter,
					Bowler:     d.Bowler,
					NonStriker: d.NonStriker,

					BatterRuns:  d.Runs.Batter,
					ExtrasRuns:  d.Runs.Extras,
					TotalRuns:   d.Runs.Total,
					NonBoundary: d.Runs.NonBoundary,

					Wides:   d.Extras.Wides,
					Noballs: d.Extras.Noballs,
					Byes:    d.Extras.Byes,
					Legbyes: d.Extras.Legbyes,
					Penalty: d.Extras.Penalty,
				}

				if len(d.Wickets) > 0 {
					w := d.Wickets[0]
					row.IsWicket = true
					row.WicketKind = w.Kind
					row.WicketPlayerOut = w.PlayerOut
					if len(w.Fielders) > 0 {
						row.WicketFielder = w.Fielders[0].Name
					}
				}

				m.Deliveries = append(m.Deliveries, row)
			}
		}
	}

	return m, nil
}
