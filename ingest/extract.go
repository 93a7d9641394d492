// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest downloads Cricsheet archives and loads ball-by-ball match
// data into the database.
package ingest

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// LoadMetrics tracks statistics about the load phase.
type LoadMetrics struct {
	NewMatches     int
	SkippedMatches int
	FailedMatches  int
	NewDeliveries  int
}

// Merge combines two LoadMetrics.
func (m *LoadMetrics) Merge(o *LoadMetrics) *LoadMetrics {
	m.NewMatches += o.NewMatches
	m.SkippedMatches += o.SkippedMatches
	m.FailedMatches += o.FailedMatches
	m.NewDeliveries += o.NewDeliveries

	return m
}

// Parses one match document and stores it.
func (c *Client) loadMatch(archive *Archive, id string) (*LoadMetrics, error) {
	failedMetrics := &LoadMetrics{
		FailedMatches: 1,
	}

	r, err := archive.Open(id)
	if err != nil {
		return failedMetrics, fmt.Errorf("opening match %s: %w", id, err)
	}

	m, err := ParseMatch(id, c.dataset.Key, r)

	if closeErr := r.Close(); closeErr != nil {
		return failedMetrics, fmt.Errorf("closing match %s: %w", id, closeErr)
	}

	if err != nil {
		return failedMetrics, fmt.Errorf("parsing match: %w", err)
	}

	if !c.options.DryRun {
		if err := c.repo.SaveMatch(m); err != nil {
			return failedMetrics, fmt.Errorf("storing match: %w", err)
		}
	}

	return &LoadMetrics{
		NewMatches:    1,
		NewDeliveries: len(m.Deliveries),
	}, nil
}

// Loads match documents from the downloaded archive into the database.
func (c *Client) loadMatches() error {
	if ok, err := c.store.HasArchive(); err != nil {
		return err
	} else if !ok {
		log.Println("No archive downloaded yet, skipping load phase")

		return nil
	}

	archive, err := c.store.OpenArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	var pending []string

	if c.options.LoadFull {
		pending = archive.MatchIDs()
	} else {
		loaded, err := c.repo.LoadedMatches(c.dataset.Key)
		if err != nil {
			return fmt.Errorf("getting loaded matches: %w", err)
		}

		for _, id := range archive.MatchIDs() {
			if loaded[id] {
				c.Metrics.SkippedMatches++

				continue
			}

			pending = append(pending, id)
		}
	}

	n := len(pending)
	if n == 0 {
		log.Println("Nothing to load")

		return nil
	}

	maxProcs := c.options.LoadMaxProcs
	if maxProcs == 0 {
		maxProcs = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Loading "+c.dataset.Name),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, maxProcs)
	errChan := make(chan error, n)
	metricsChan := make(chan *LoadMetrics, n)

	for _, id := range pending {
		wg.Add(1)

		go func(id string) {
			defer wg.Done()
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			metrics, err := c.loadMatch(archive, id)
			if err != nil {
				errChan <- fmt.Errorf("loading %s - %w", id, err)
			}

			if metrics != nil {
				metricsChan <- metrics
			}

			if bar == nil {
				log.Printf("Loading %s", id)
			} else {
				if err := bar.Add(1); err != nil {
					errChan <- fmt.Errorf("updating progress bar for %s: %w", id, err)
				}
			}
		}(id)
	}

	wg.Wait()
	close(errChan)
	close(metricsChan)

	var errs []error
	for err := range errChan {
		log.Printf("Load failed - %s", err)
		errs = append(errs, err)
	}

	for metrics := range metricsChan {
		c.Metrics.LoadMetrics.Merge(metrics)
	}

	log.Printf(
		"Load phase complete - %d new matches with %d deliveries, %d skipped, %d failed.",
		c.Metrics.NewMatches,
		c.Metrics.NewDeliveries,
		c.Metrics.SkippedMatches,
		c.Metrics.FailedMatches,
	)

	// A failed match is logged and skipped; the rest of the archive loads.
	if len(errs) == n {
		return errors.Join(errs...)
	}

	return nil
}
