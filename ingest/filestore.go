// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

const (
	archiveFile = "matches.zip"
	peopleFile  = "people.csv.gz"
)

// Combines multiple closers to ensure all resources are released.
type multiReadCloser struct {
	io.ReadCloser
	underlying io.Closer
}

// Implements io.Closer and ensures all resources are properly released.
func (r *multiReadCloser) Close() error {
	return errors.Join(
		r.ReadCloser.Close(),
		r.underlying.Close(),
	)
}

// FileStore keeps the downloaded Cricsheet artifacts for one dataset: the
// match archive under a per-dataset subdirectory, and the shared player
// registry at the root.
type FileStore struct {
	base string // shared root for all datasets
	root string // per-dataset directory
}

// Creates a new file store instance. The provided path is the root directory
// where all dataset subdirectories will be created.
func NewFileStore(root string, ds *Dataset) *FileStore {
	return &FileStore{
		base: root,
		root: filepath.Join(root, ds.Key),
	}
}

// Ensures that the directory for the dataset exists.
func (s *FileStore) dirMustExists() error {
	err := os.MkdirAll(s.root, 0o700)
	if err != nil {
		return fmt.Errorf("setting up file store: %w", err)
	}

	return nil
}

// ArchivePath returns the full path to the dataset's match archive.
func (s *FileStore) ArchivePath() string {
	return filepath.Join(s.root, archiveFile)
}

// HasArchive reports whether the match archive has already been downloaded.
func (s *FileStore) HasArchive() (bool, error) {
	_, err := os.Stat(s.ArchivePath())
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return true, nil
}

// SaveArchive stores the dataset's match archive from an io.Reader. The
// archive is written whole; a partially written file from an interrupted
// download is overwritten by the next run.
func (s *FileStore) SaveArchive(content io.Reader) (err error) {
	if err := s.dirMustExists(); err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(s.ArchivePath()))
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing archive file: %w", cerr))
		}
	}()

	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("writing archive file: %w", err)
	}

	return err
}

// Archive provides access to the per-match JSON documents inside a
// downloaded Cricsheet zip. Close it when done.
type Archive struct {
	zr      *zip.ReadCloser
	entries map[string]*zip.File
}

// OpenArchive opens the dataset's match archive for reading.
func (s *FileStore) OpenArchive() (*Archive, error) {
	zr, err := zip.OpenReader(s.ArchivePath())
	if err != nil {
		return nil, fmt.Errorf("opening match archive: %w", err)
	}

	entries := make(map[string]*zip.File, len(zr.File))

	for _, f := range zr.File {
		name := path.Base(f.Name)
		if !strings.HasSuffix(name, ".json") {
			continue // README.txt and friends
		}

		entries[strings.TrimSuffix(name, ".json")] = f
	}

	return &Archive{zr: zr, entries: entries}, nil
}

// MatchIDs returns the identifiers of all matches in the archive, sorted.
func (a *Archive) MatchIDs() []string {
	ids := make([]string, 0, len(a.entries))
	for id := range a.entries {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// Open returns the JSON document for one match as an io.ReadCloser.
func (a *Archive) Open(id string) (io.ReadCloser, error) {
	f, ok := a.entries[id]
	if !ok {
		return nil, fmt.Errorf("match %s: not in archive", id)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("match %s: opening archive entry: %w", id, err)
	}

	return rc, nil
}

func (a *Archive) Close() error {
	return a.zr.Close()
}

// PeoplePath returns the full path to the shared player registry.
func (s *FileStore) PeoplePath() string {
	return filepath.Join(s.base, peopleFile)
}

// SavePeople stores the Cricsheet player registry from an io.Reader,
// compressed with gzip. The registry is shared by all datasets.
func (s *FileStore) SavePeople(content io.Reader) (err error) {
	if err := os.MkdirAll(s.base, 0o700); err != nil {
		return fmt.Errorf("setting up file store: %w", err)
	}

	f, err := os.Create(filepath.Clean(s.PeoplePath()))
	if err != nil {
		return fmt.Errorf("creating people file: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing people file: %w", cerr))
		}
	}()

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}

	defer func() {
		if cerr := gw.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing gzip writer: %w", cerr))
		}
	}()

	if _, err := io.Copy(gw, content); err != nil {
		return fmt.Errorf("writing people file: %w", err)
	}

	return err
}

// OpenPeople retrieves the player registry as an io.ReadCloser of plain CSV.
func (s *FileStore) OpenPeople() (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(s.PeoplePath()))
	if err != nil {
		return nil, fmt.Errorf("reading people file: %w", err)
	}

	gr, err := gzip.NewReader(f)
	if err != nil {
		err1 := f.Close()

		return nil, errors.Join(fmt.Errorf("creating gzip reader: %w", err), err1)
	}

	return &multiReadCloser{gr, f}, nil
}
