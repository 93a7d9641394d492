// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import "strings"

// Franchise renames over the years. Cricsheet keeps the name in use at the
// time of the match, which splits one franchise's history across several
// labels; fold them into the current name so season aggregates line up.
var franchiseRenames = map[string]string{
	"Delhi Daredevils":            "Delhi Capitals",
	"Kings XI Punjab":             "Punjab Kings",
	"Royal Challengers Bangalore": "Royal Challengers Bengaluru",
	"Rising Pune Supergiants":     "Rising Pune Supergiant",
}

// CanonicalTeam maps a team name to its current franchise name. Names with
// no recorded rename pass through unchanged.
func CanonicalTeam(name string) string {
	name = strings.TrimSpace(name)

	if canonical, ok := franchiseRenames[name]; ok {
		return canonical
	}

	return name
}

// NormalizeSeason derives a single-year season from the match date, falling
// back to the published label when no usable date is present. Cricsheet
// labels mix plain years ("2021") with split-year spans ("2007/08"), and the
// same tournament edition can carry either form across archive revisions.
func NormalizeSeason(label, date string) string {
	if year := leadingYear(date); year != "" {
		return year
	}

	return leadingYear(label)
}

// leadingYear returns the 4-digit prefix of s, or "" if there is none.
func leadingYear(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return ""
	}

	for _, r := range s[:4] {
		if r < '0' || r > '9' {
			return ""
		}
	}

	return s[:4]
}
