// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/crickpit/crickpit/utils/httputils"
)

const (
	downloadAttempts  = 3
	downloadBaseDelay = 5 * time.Second
)

// ClientOptions configuration for the ingest Client.
type ClientOptions struct {
	// DataPath is the root path for downloaded Cricsheet artifacts
	DataPath string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Skips the download phase (fetching the archive and player registry)
	SkipDownload bool

	// Skips the load phase (parsing documents into the database)
	SkipLoad bool

	// Overrides incremental load and reprocesses every match in the archive
	LoadFull bool

	// Dry run, don't persist any change
	DryRun bool

	// Max number of processes to use in the load phase.
	LoadMaxProcs int
}

// ClientMetrics tracks various metrics collected during client operations.
type ClientMetrics struct {
	DownloadMetrics
	LoadMetrics
}

// Merge combines the metrics from another ClientMetrics instance into this one.
func (m *ClientMetrics) Merge(other *ClientMetrics) *ClientMetrics {
	if other == nil {
		return m
	}

	m.DownloadMetrics.Merge(&other.DownloadMetrics)
	m.LoadMetrics.Merge(&other.LoadMetrics)

	return m
}

// DownloadMetrics tracks statistics about the download phase.
type DownloadMetrics struct {
	DownloadsOk  int
	DownloadsErr int
	PeopleRows   int
}

// Merge combines two DownloadMetrics.
func (f *DownloadMetrics) Merge(o *DownloadMetrics) *DownloadMetrics {
	f.DownloadsOk += o.DownloadsOk
	f.DownloadsErr += o.DownloadsErr
	f.PeopleRows += o.PeopleRows

	return f
}

// Client fetches one Cricsheet dataset and loads it into the database.
type Client struct {
	dataset   *Dataset
	client    *http.Client
	options   *ClientOptions
	store     *FileStore
	repo      MatchRepository
	peopleURL string
	sleep     func(time.Duration) // swapped out by tests
	Metrics   ClientMetrics
}

// NewClient creates a new ingest client for the given dataset.
func NewClient(options *ClientOptions, dataset *Dataset, repo MatchRepository) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	var httpLogWriter io.Writer
	if options.EnableHTTPTrace {
		httpLogWriter = os.Stderr
	}

	transport := &http.Transport{
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		MaxConnsPerHost:       4,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		DisableKeepAlives:     false,
		DisableCompression:    false,
	}

	loggingTransport := &httputils.LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	userAgent := "crickpit/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &httputils.AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "*/*",
		},
		Transport: loggingTransport,
	}

	client := &http.Client{
		// The archives run to tens of megabytes.
		Timeout:   5 * time.Minute,
		Transport: headerTransport,
	}

	return &Client{
		dataset:   dataset,
		client:    client,
		store:     NewFileStore(options.DataPath, dataset),
		repo:      repo,
		peopleURL: PeopleURL,
		sleep:     time.Sleep,
		options:   options,
	}
}

// fetch downloads one URL, retrying transient failures with a growing delay.
func (c *Client) fetch(url string, save func(io.Reader) error) error {
	var errs []error

	for attempt := range downloadAttempts {
		if attempt > 0 {
			wait := downloadBaseDelay * time.Duration(attempt)
			log.Printf("Retrying %s in %s", url, wait)
			c.sleep(wait)
		}

		resp, err := c.client.Get(url)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if resp.StatusCode != http.StatusOK {
			errs = append(errs, errors.Join(
				resp.Body.Close(),
				fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url),
			))

			continue
		}

		err = save(resp.Body)

		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing response: %w", cerr))
		}

		if err != nil {
			errs = append(errs, err)

			continue
		}

		return nil
	}

	return fmt.Errorf("downloading %s: %w", url, errors.Join(errs...))
}

// download fetches the dataset archive and the shared player registry.
func (c *Client) download() error {
	log.Printf("Downloading %s from %s", c.dataset.Name, c.dataset.ArchiveURL)

	save := c.store.SaveArchive
	if c.options.DryRun {
		save = func(r io.Reader) error {
			_, err := io.Copy(io.Discard, r)

			return err
		}
	}

	if err := c.fetch(c.dataset.ArchiveURL, save); err != nil {
		c.Metrics.DownloadsErr++

		return err
	}

	c.Metrics.DownloadsOk++

	savePeople := c.store.SavePeople
	if c.options.DryRun {
		savePeople = func(r io.Reader) error {
			_, err := io.Copy(io.Discard, r)

			return err
		}
	}

	if err := c.fetch(c.peopleURL, savePeople); err != nil {
		c.Metrics.DownloadsErr++

		return err
	}

	c.Metrics.DownloadsOk++

	return nil
}

// importPeople refreshes the players table from the stored registry.
func (c *Client) importPeople() error {
	r, err := c.store.OpenPeople()
	if errors.Is(err, os.ErrNotExist) {
		log.Println("No player registry downloaded yet, skipping")

		return nil
	} else if err != nil {
		return err
	}

	defer r.Close()

	n, err := c.repo.ImportPeople(r)
	if err != nil {
		return fmt.Errorf("importing player registry: %w", err)
	}

	c.Metrics.PeopleRows = n
	log.Printf("Imported %d players", n)

	return nil
}

// Update runs the download and load phases for the dataset.
func (c *Client) Update() error {
	log.Printf("Updating dataset %s - %s", c.dataset.Key, c.dataset.Name)

	if c.options.SkipDownload {
		log.Println("Skipping download phase")
	} else {
		if err := c.download(); err != nil {
			return err
		}
	}

	if c.options.SkipLoad {
		log.Println("Skipping load phase")

		return nil
	}

	if err := c.loadMatches(); err != nil {
		return err
	}

	if c.options.DryRun {
		return nil
	}

	return c.importPeople()
}
