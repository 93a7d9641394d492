// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import "testing"

func TestLowerASCIIFolding(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MS Dhoni", "ms dhoni"},
		{"  Virat Kohli  ", "virat kohli"},
		{"Chetan Sakariyā", "chetan sakariya"},
		{"RAVICHANDRAN ASHWIN", "ravichandran ashwin"},
		{"", ""},
	}

	for _, test := range tests {
		if got := LowerASCIIFolding(test.in); got != test.want {
			t.Errorf("LowerASCIIFolding(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{260921, "260,921"},
		{-12345, "-12,345"},
	}

	for _, test := range tests {
		if got := FormatInt(test.in); got != test.want {
			t.Errorf("FormatInt(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}
