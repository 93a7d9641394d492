// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package venues

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/crickpit/crickpit/spatial"
	"github.com/crickpit/crickpit/utils/httputils"
)

const (
	// DefaultPhotonURL is the public Photon endpoint.
	DefaultPhotonURL = "https://photon.komoot.io/api"

	defaultDelay   = 1 * time.Second
	defaultBackoff = 1 * time.Second
	maxRetries     = 3
)

// PhotonOptions configures a PhotonGeocoder.
type PhotonOptions struct {
	// BaseURL of the Photon API. Defaults to DefaultPhotonURL.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Delay is the politeness pause enforced between consecutive calls,
	// regardless of outcome. Defaults to one second.
	Delay time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool
}

// PhotonGeocoder calls the Photon fuzzy geocoding service, requesting the
// single best match per query.
type PhotonGeocoder struct {
	baseURL    string
	httpClient *http.Client
	delay      time.Duration
	backoff    time.Duration
	last       time.Time
	sleep      func(time.Duration)
}

// NewPhotonGeocoder creates a geocoder with the provided options.
func NewPhotonGeocoder(options *PhotonOptions) *PhotonGeocoder {
	if options == nil {
		options = &PhotonOptions{}
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = DefaultPhotonURL
	}

	delay := options.Delay
	if delay == 0 {
		delay = defaultDelay
	}

	userAgent := "crickpit/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: &httputils.LoggingRoundTripper{
			Writer:    httpLogWriter,
			Transport: http.DefaultTransport,
		},
	}

	return &PhotonGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		delay:   delay,
		backoff: defaultBackoff,
		sleep:   time.Sleep,
	}
}

// Photon returns a GeoJSON feature collection; coordinates are
// [longitude, latitude].
type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name     string `json:"name"`
			Country  string `json:"country"`
			State    string `json:"state"`
			OSMValue string `json:"osm_value"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves a query against Photon. Transient failures (network,
// 5xx, rate limit, malformed body) are retried with exponential backoff;
// once retries are exhausted the error is returned alongside an empty
// Candidate so the caller can degrade to an unresolved outcome. An empty
// result set is not an error.
func (g *PhotonGeocoder) Geocode(query string) (*Candidate, error) {
	g.pause()
	defer func() { g.last = time.Now() }()

	wait := g.backoff

	var lastErr error

	for attempt := 0; ; attempt++ {
		candidate, err := g.fetch(query)
		if err == nil {
			return candidate, nil
		}

		lastErr = err

		if !IsTransient(err) || attempt == maxRetries {
			break
		}

		g.sleep(wait)
		wait *= 2
	}

	return &Candidate{}, fmt.Errorf("geocoding %q: %w", query, lastErr)
}

// pause enforces the inter-call politeness delay.
func (g *PhotonGeocoder) pause() {
	if g.last.IsZero() {
		return
	}

	if elapsed := time.Since(g.last); elapsed < g.delay {
		g.sleep(g.delay - elapsed)
	}
}

func (g *PhotonGeocoder) fetch(query string) (*Candidate, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("lang", "en")
	params.Set("limit", "1")

	resp, err := g.httpClient.Get(g.baseURL + "?" + params.Encode())
	if err != nil {
		return nil, &GeocodeError{
			Type:    ErrorTypeNetwork,
			Message: "geocoding request failed",
			Err:     err,
		}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPStatus(resp.StatusCode)
	}

	var photonResp photonResponse
	if err := json.NewDecoder(resp.Body).Decode(&photonResp); err != nil {
		return nil, &GeocodeError{
			Type:    ErrorTypeMalformedResponse,
			Message: "decoding response",
			Err:     err,
		}
	}

	if len(photonResp.Features) == 0 {
		return &Candidate{}, nil
	}

	feature := photonResp.Features[0]
	if len(feature.Geometry.Coordinates) < 2 {
		return nil, &GeocodeError{
			Type:    ErrorTypeMalformedResponse,
			Message: "feature missing coordinates",
		}
	}

	lng, lat := feature.Geometry.Coordinates[0], feature.Geometry.Coordinates[1]
	if err := spatial.ValidateCoordinates(lat, lng); err != nil {
		return nil, &GeocodeError{
			Type:    ErrorTypeMalformedResponse,
			Message: "feature coordinates out of range",
			Err:     err,
		}
	}

	return &Candidate{
		Point:    &spatial.Point{Lat: lat, Lng: lng},
		Name:     feature.Properties.Name,
		Country:  feature.Properties.Country,
		State:    feature.Properties.State,
		OSMValue: feature.Properties.OSMValue,
	}, nil
}
