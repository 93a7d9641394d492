// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"strings"
)

// noise tokens that hurt Photon's fuzzy matching when present in the raw
// venue name. Matched as whole words, case-insensitively.
var noiseTokens = map[string]bool{
	"cricket":       true,
	"stadium":       true,
	"international": true,
}

// CleanVenue reduces a raw venue string to its distinctive part: the name is
// truncated at the first comma (source data embeds city/state fragments
// there), noise tokens are removed, and whitespace is collapsed.
//
// CleanVenue is idempotent: CleanVenue(CleanVenue(s)) == CleanVenue(s).
func CleanVenue(venue string) string {
	if i := strings.Index(venue, ","); i >= 0 {
		venue = venue[:i]
	}

	words := strings.Fields(venue)
	kept := make([]string, 0, len(words))

	for _, w := range words {
		if noiseTokens[strings.ToLower(w)] {
			continue
		}

		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}

// NormalizeQuery builds the search string sent to the geocoding service for
// a raw (venue, city) pair. The distinctive part of the venue name is kept
// and a uniform " Cricket Stadium" suffix is appended so that bare grounds
// ("Eden Gardens") and fully-qualified ones ("Dubai International Cricket
// Stadium") produce comparable queries. The city, when known, is appended to
// disambiguate grounds that share a name across cities.
func NormalizeQuery(venue, city string) string {
	query := strings.TrimSpace(CleanVenue(venue) + " Cricket Stadium")

	if city != "" {
		query += ", " + city
	}

	return query
}
