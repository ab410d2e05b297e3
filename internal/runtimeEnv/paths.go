// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtimeEnv

import (
	"os"
	"path/filepath"
)

// Paths groups the three base directories the agent reads and writes
// under, each overridable by an environment variable so a packaged
// deployment can relocate them without touching the binary.
type Paths struct {
	Root string // driver definitions, default config
	Data string // durable kv store
	Temp string // ephemeral cache
}

// LoadPaths reads ROOT_DIR, DATA_DIR, and TEMP_DIR from the
// environment, falling back to sane defaults relative to the working
// directory (and the OS temp directory for Temp) when unset.
func LoadPaths() Paths {
	return Paths{
		Root: envOr("ROOT_DIR", "."),
		Data: envOr("DATA_DIR", "./var"),
		Temp: envOr("TEMP_DIR", os.TempDir()),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// KVStorePath is the durable store file under Data.
func (p Paths) KVStorePath() string {
	return filepath.Join(p.Data, "kvs-db", "kvstore.db")
}

// CachePath is the ephemeral cache file under Temp.
func (p Paths) CachePath() string {
	return filepath.Join(p.Temp, "ae-kvcache.db")
}

// DriversDir is where filesystem driver definitions live under Root.
func (p Paths) DriversDir() string {
	return filepath.Join(p.Root, "drivers")
}

// ConfigPath is the default device config file under Root.
func (p Paths) ConfigPath() string {
	return filepath.Join(p.Root, "config.json")
}
