// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package config

// Default returns the configuration used when no file overrides it.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      "~/.local/share/crickpit/data",
			DatabasePath: "~/.local/share/crickpit/crickpit.duckdb",
		},
		Photon: Photon{
			BaseURL:      "https://photon.komoot.io/api",
			UserAgent:    "crickpit (+https://github.com/crickpit/crickpit)",
			DelaySeconds: 1,
		},
		Server: Server{
			Bind: "127.0.0.1:8080",
		},
	}
}
