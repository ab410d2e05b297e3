// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
)

// runReadSMAHyconCSV documents the seam for an FTP-delivered SMA HyCon
// CSV export reader. Parsing those exports is out of scope; this
// subcommand exists only so the CLI surface matches what a deployed
// fleet expects, and fails loudly rather than silently doing nothing.
func runReadSMAHyconCSV(paths runtimeEnv.Paths, _ []string) error {
	store, err := openStore(paths)
	if err != nil {
		return fmt.Errorf("opening kv store: %w", err)
	}
	defer store.Close()

	if _, err := loadActiveConfig(store); err != nil {
		return fmt.Errorf("loading active config: %w", err)
	}

	return fmt.Errorf("read-sma-hycon-csv: SMA HyCon CSV acquisition is not implemented by this build")
}
