// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"testing"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name  string
		venue string
		city  string
		want  string
	}{
		{
			name:  "plain stadium with city",
			venue: "Wankhede Stadium",
			city:  "Mumbai",
			want:  "Wankhede Cricket Stadium, Mumbai",
		},
		{
			name:  "all noise tokens stripped",
			venue: "Dubai International Cricket Stadium",
			city:  "Dubai",
			want:  "Dubai Cricket Stadium, Dubai",
		},
		{
			name:  "no city",
			venue: "Eden Gardens",
			city:  "",
			want:  "Eden Gardens Cricket Stadium",
		},
		{
			name:  "embedded city dropped at first comma",
			venue: "M Chinnaswamy Stadium, Bengaluru",
			city:  "Bengaluru",
			want:  "M Chinnaswamy Cricket Stadium, Bengaluru",
		},
		{
			name:  "mixed case tokens",
			venue: "Rajiv Gandhi INTERNATIONAL CRICKET Stadium",
			city:  "Hyderabad",
			want:  "Rajiv Gandhi Cricket Stadium, Hyderabad",
		},
		{
			name:  "consecutive whitespace collapsed",
			venue: "Sawai  Mansingh   Stadium",
			city:  "Jaipur",
			want:  "Sawai Mansingh Cricket Stadium, Jaipur",
		},
		{
			name:  "venue made entirely of noise tokens",
			venue: "Cricket Stadium",
			city:  "Sharjah",
			want:  "Cricket Stadium, Sharjah",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := NormalizeQuery(test.venue, test.city); got != test.want {
				t.Errorf("NormalizeQuery(%q, %q) = %q, want %q", test.venue, test.city, got, test.want)
			}
		})
	}
}

// The strip-and-collapse steps must be stable under reapplication; the full
// normalizer is not, since it appends a fixed suffix every call.
func TestCleanVenueIdempotent(t *testing.T) {
	venues := []string{
		"Wankhede Stadium",
		"Dubai International Cricket Stadium",
		"M Chinnaswamy Stadium, Bengaluru",
		"Sawai  Mansingh   Stadium",
		"Himachal Pradesh Cricket Association Stadium, Dharamsala",
		"Brabourne Stadium",
	}

	for _, v := range venues {
		once := CleanVenue(v)
		twice := CleanVenue(once)

		if once != twice {
			t.Errorf("CleanVenue not idempotent for %q: %q != %q", v, once, twice)
		}
	}
}

func TestCleanVenueNonEmptyVenueKeepsPrefixLetters(t *testing.T) {
	if got := CleanVenue("Arun Jaitley Stadium, Delhi"); got != "Arun Jaitley" {
		t.Errorf("CleanVenue() = %q, want %q", got, "Arun Jaitley")
	}
}
