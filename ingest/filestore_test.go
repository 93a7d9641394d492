// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testDataset(t *testing.T) *Dataset {
	t.Helper()

	ds, err := Find("ipl")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	return ds
}

// buildArchive assembles a zip with the given name -> content entries.
func buildArchive(t *testing.T, entries map[string]string) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating zip entry: %s", err)
		}

		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing zip entry: %s", err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %s", err)
	}

	return &buf
}

func TestFileStoreArchiveRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir(), testDataset(t))

	if ok, err := store.HasArchive(); err != nil || ok {
		t.Fatalf("HasArchive before save: got %v, %v", ok, err)
	}

	archive := buildArchive(t, map[string]string{
		"335982.json": `{"a": 1}`,
		"335983.json": `{"a": 2}`,
		"README.txt":  "not a match",
	})

	if err := store.SaveArchive(archive); err != nil {
		t.Fatalf("saving archive: %s", err)
	}

	if ok, err := store.HasArchive(); err != nil || !ok {
		t.Fatalf("HasArchive after save: got %v, %v", ok, err)
	}

	a, err := store.OpenArchive()
	if err != nil {
		t.Fatalf("opening archive: %s", err)
	}
	defer a.Close()

	if diff := cmp.Diff([]string{"335982", "335983"}, a.MatchIDs()); diff != "" {
		t.Errorf("match IDs mismatch (-want +got):\n%s", diff)
	}

	r, err := a.Open("335983")
	if err != nil {
		t.Fatalf("opening match: %s", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading match: %s", err)
	}

	if got := string(content); got != `{"a": 2}` {
		t.Errorf("match content: got %q", got)
	}

	if _, err := a.Open("999999"); err == nil {
		t.Error("expected error for unknown match")
	}
}

func TestFileStorePeopleRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir(), testDataset(t))

	const csv = "identifier,name,unique_name\nba607b88,V Kohli,V Kohli\n"

	if err := store.SavePeople(strings.NewReader(csv)); err != nil {
		t.Fatalf("saving people: %s", err)
	}

	r, err := store.OpenPeople()
	if err != nil {
		t.Fatalf("opening people: %s", err)
	}
	defer r.Close()

	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading people: %s", err)
	}

	if got := string(content); got != csv {
		t.Errorf("people content: got %q", got)
	}
}
