// Copyright 2026 The Crickpit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/crickpit/crickpit/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
