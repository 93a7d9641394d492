// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import "testing"

func TestCanonicalTeam(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Delhi Daredevils", "Delhi Capitals"},
		{"Delhi Capitals", "Delhi Capitals"},
		{"Kings XI Punjab", "Punjab Kings"},
		{"Royal Challengers Bangalore", "Royal Challengers Bengaluru"},
		{"Rising Pune Supergiants", "Rising Pune Supergiant"},
		{"Mumbai Indians", "Mumbai Indians"},
		{" Chennai Super Kings ", "Chennai Super Kings"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := CanonicalTeam(tc.in); got != tc.want {
				t.Errorf("CanonicalTeam(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeSeason(t *testing.T) {
	tests := []struct {
		name  string
		label string
		date  string
		want  string
	}{
		{"split year label, date wins", "2007/08", "2008-04-20", "2008"},
		{"plain year label", "2021", "2021-10-17", "2021"},
		{"no date, plain label", "2021", "", "2021"},
		{"no date, split label keeps start year", "2019/20", "", "2019"},
		{"garbage date falls back to label", "2012", "TBC", "2012"},
		{"nothing usable", "", "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSeason(tc.label, tc.date); got != tc.want {
				t.Errorf("NormalizeSeason(%q, %q) = %q, want %q", tc.label, tc.date, got, tc.want)
			}
		})
	}
}
