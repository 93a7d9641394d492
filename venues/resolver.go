// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"fmt"
	"log"
	"time"
)

// ProximityThreshold is the distance in meters under which two geocoded
// points are considered the same physical venue. The two closest known
// distinct grounds sit roughly 700 m apart, while spelling variants of one
// ground geocode within about 50 m of each other.
const ProximityThreshold = 500.0

// RunSummary reports what a resolution run did.
type RunSummary struct {
	Pending      int // spellings not yet resolved at the start of the run
	NewCanonical int // canonical venues created with coordinates
	Aliased      int // spellings folded into an existing canonical venue
	Unresolved   int // canonical venues created without coordinates
}

// Resolver assigns every observed (venue, city) spelling to a canonical
// venue, geocoding spellings not seen before and merging those that land
// within ProximityThreshold of an existing canonical entry.
//
// Not safe for concurrent use; one run owns the repository.
type Resolver struct {
	repo     VenueRepository
	geocoder Geocoder

	// canonical entries with coordinates, insertion order. Entries created
	// during the run join the slice so later spellings can match them.
	canonical []*CanonicalVenue
}

// NewResolver creates a resolver over the given repository and geocoder.
func NewResolver(repo VenueRepository, geocoder Geocoder) *Resolver {
	return &Resolver{repo: repo, geocoder: geocoder}
}

// pendingPairs returns the elements of source not present in resolved,
// preserving source order. Pure set difference; a missing city only
// matches a missing city.
func pendingPairs(source []VenuePair, resolved map[VenuePair]bool) []VenuePair {
	pending := make([]VenuePair, 0, len(source))

	for _, p := range source {
		if !resolved[p] {
			pending = append(pending, p)
		}
	}

	return pending
}

// Run resolves every pending spelling. Per-venue geocode failures degrade
// to unresolved canonical entries; only storage errors abort the run.
func (r *Resolver) Run() (*RunSummary, error) {
	if err := r.repo.SourceTableReady(); err != nil {
		return nil, err
	}

	if err := r.repo.CreateSchema(); err != nil {
		return nil, fmt.Errorf("creating venue schema: %w", err)
	}

	source, err := r.repo.SourceVenuePairs()
	if err != nil {
		return nil, err
	}

	resolved, err := r.repo.AliasKeys()
	if err != nil {
		return nil, fmt.Errorf("loading alias keys: %w", err)
	}

	pending := pendingPairs(source, resolved)

	if err := r.loadCanonical(); err != nil {
		return nil, err
	}

	summary := &RunSummary{Pending: len(pending)}

	n := len(pending)
	for i, pair := range pending {
		query := NormalizeQuery(pair.Venue, pair.City)
		log.Printf("[%d/%d] Geocoding %q", i+1, n, query)

		candidate, err := r.geocoder.Geocode(query)
		if err != nil {
			log.Printf("[%d/%d] Warning: %s (%s) left unresolved: %v", i+1, n, pair.Venue, pair.City, err)
		}

		if err := r.resolve(pair, candidate, summary); err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// RetryUnresolved re-geocodes canonical venues previously stored without
// coordinates. Unresolved entries are terminal otherwise; this is the
// explicit re-trigger. A hit within the threshold of an existing canonical
// venue only logs the proximity, since canonical rows are never rewritten.
func (r *Resolver) RetryUnresolved() (int, error) {
	unresolved, err := r.repo.UnresolvedCanonicals()
	if err != nil {
		return 0, err
	}

	if err := r.loadCanonical(); err != nil {
		return 0, err
	}

	var hits int

	for _, v := range unresolved {
		query := NormalizeQuery(v.Venue, v.City)

		candidate, err := r.geocoder.Geocode(query)
		if err != nil || !candidate.HasCoordinates() {
			log.Printf("Still unresolved: %s (%s)", v.Venue, v.City)

			continue
		}

		hits++

		if nearest := r.nearestWithinThreshold(candidate); nearest != nil {
			log.Printf("Re-geocoded %s (%s) to within %0.f m of canonical %q - manual merge needed",
				v.Venue, v.City, ProximityThreshold, nearest.Venue)

			continue
		}

		log.Printf("Re-geocoded %s (%s) to %s - re-seed to adopt", v.Venue, v.City, candidate.Point)
	}

	return hits, nil
}

// loadCanonical primes the in-run view with every stored canonical entry
// that has coordinates, in insertion order.
func (r *Resolver) loadCanonical() error {
	all, err := r.repo.ListCanonical()
	if err != nil {
		return fmt.Errorf("loading canonical venues: %w", err)
	}

	r.canonical = r.canonical[:0]

	for _, v := range all {
		if v.Point != nil {
			r.canonical = append(r.canonical, v)
		}
	}

	return nil
}

// resolve decides the fate of one freshly geocoded spelling: alias of an
// existing canonical venue, a new canonical venue, or a new unresolved
// canonical venue when the candidate has no coordinates. Exactly one alias
// row and at most one canonical row are written.
func (r *Resolver) resolve(pair VenuePair, candidate *Candidate, summary *RunSummary) error {
	now := time.Now()

	if !candidate.HasCoordinates() {
		canonical := &CanonicalVenue{
			Venue:      pair.Venue,
			City:       pair.City,
			GeocodedAt: now,
		}

		if err := r.repo.InsertCanonical(canonical); err != nil {
			return err
		}

		summary.Unresolved++

		return r.repo.InsertAlias(&VenueAlias{
			Venue:          pair.Venue,
			City:           pair.City,
			CanonicalVenue: pair.Venue,
			CanonicalCity:  pair.City,
			CreatedAt:      now,
		})
	}

	if nearest := r.nearestWithinThreshold(candidate); nearest != nil {
		summary.Aliased++

		return r.repo.InsertAlias(&VenueAlias{
			Venue:          pair.Venue,
			City:           pair.City,
			CanonicalVenue: nearest.Venue,
			CanonicalCity:  nearest.City,
			CreatedAt:      now,
		})
	}

	canonical := &CanonicalVenue{
		Venue:         pair.Venue,
		City:          pair.City,
		Point:         candidate.Point,
		PhotonName:    candidate.Name,
		PhotonCountry: candidate.Country,
		PhotonState:   candidate.State,
		OSMValue:      candidate.OSMValue,
		GeocodedAt:    now,
	}

	if err := r.repo.InsertCanonical(canonical); err != nil {
		return err
	}

	r.canonical = append(r.canonical, canonical)
	summary.NewCanonical++

	return r.repo.InsertAlias(&VenueAlias{
		Venue:          pair.Venue,
		City:           pair.City,
		CanonicalVenue: pair.Venue,
		CanonicalCity:  pair.City,
		CreatedAt:      now,
	})
}

// nearestWithinThreshold scans canonical entries in insertion order and
// returns the closest one within ProximityThreshold, or nil. Exact
// distance ties keep the earlier entry.
func (r *Resolver) nearestWithinThreshold(candidate *Candidate) *CanonicalVenue {
	var (
		nearest *CanonicalVenue
		best    float64
	)

	for _, v := range r.canonical {
		d := candidate.Point.HaversineDistance(v.Point)
		if d > ProximityThreshold {
			continue
		}

		if nearest == nil || d < best {
			nearest, best = v, d
		}
	}

	return nearest
}
