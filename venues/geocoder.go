// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"github.com/crickpit/crickpit/spatial"
)

// Candidate is the outcome of one geocode attempt. Point is nil when the
// service had no match for the query; the provenance fields are only set
// when Point is.
type Candidate struct {
	Point    *spatial.Point
	Name     string
	Country  string
	State    string
	OSMValue string
}

// HasCoordinates reports whether the geocode attempt produced a usable
// position.
func (c *Candidate) HasCoordinates() bool {
	return c != nil && c.Point != nil
}

// Geocoder resolves a free-text query against a geocoding provider.
//
// Implementations return a coordinate-less Candidate (never nil) for
// expected failure modes such as empty result sets; an error is reserved
// for failures worth surfacing to the caller's log, and callers must still
// be able to proceed treating it as a no-match outcome.
type Geocoder interface {
	Geocode(query string) (*Candidate, error)
}
