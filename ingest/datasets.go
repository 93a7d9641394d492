// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"strings"
)

var errDatasetNotFound = errors.New("dataset not found")

// PeopleURL is the Cricsheet registry of player identifiers, shared by all
// datasets.
const PeopleURL = "https://cricsheet.org/register/people.csv"

// Dataset references one Cricsheet collection of ball-by-ball match files.
type Dataset struct {
	Key        string // short identifier used on the command line and on disk
	Name       string
	ArchiveURL string // zip of per-match JSON documents
}

// Validate checks if the Dataset has all required fields.
func (d *Dataset) Validate() error {
	if d.Key == "" {
		return errors.New("dataset: key must not be empty")
	}

	if d.ArchiveURL == "" {
		return fmt.Errorf("dataset %q: archive URL must not be empty", d.Key)
	}

	return nil
}

// All available datasets.
var datasets = []Dataset{
	{
		Key:        "ipl",
		Name:       "Indian Premier League",
		ArchiveURL: "https://cricsheet.org/downloads/ipl_json.zip",
	},
	{
		Key:        "t20i",
		Name:       "T20 Internationals",
		ArchiveURL: "https://cricsheet.org/downloads/t20s_json.zip",
	},
	{
		Key:        "odi",
		Name:       "One-Day Internationals",
		ArchiveURL: "https://cricsheet.org/downloads/odis_json.zip",
	},
	{
		Key:        "bbl",
		Name:       "Big Bash League",
		ArchiveURL: "https://cricsheet.org/downloads/bbl_json.zip",
	},
	{
		Key:        "psl",
		Name:       "Pakistan Super League",
		ArchiveURL: "https://cricsheet.org/downloads/psl_json.zip",
	},
}

// Each invokes fn for every known dataset, stopping at the first error.
func Each(fn func(Dataset) error) error {
	for _, ds := range datasets {
		if err := ds.Validate(); err != nil {
			return err
		}

		if err := fn(ds); err != nil {
			return err
		}
	}

	return nil
}

// Find returns the dataset with the given key.
func Find(key string) (*Dataset, error) {
	key = strings.ToLower(strings.TrimSpace(key))

	for i := range datasets {
		if datasets[i].Key == key {
			return &datasets[i], nil
		}
	}

	keys := make([]string, len(datasets))
	for i, ds := range datasets {
		keys[i] = ds.Key
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", errDatasetNotFound, key, strings.Join(keys, ", "))
}
