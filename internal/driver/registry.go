// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package driver loads, caches, and resolves driver definitions: the
// declarative description of how to read and decode a device model's
// registers.
package driver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ammp-edge/ae-agent/internal/model"
)

var (
	ErrDriverNotFound = errors.New("driver: not found in config or filesystem")
	ErrDriverParse    = errors.New("driver: malformed JSON")
)

// InlineSource supplies driver definitions embedded directly in the
// active config. It is satisfied by *config.Config.
type InlineSource interface {
	InlineDriver(name string) (json.RawMessage, bool)
}

// Registry loads DriverSchemas, consulting inline config first, then a
// process-wide cache, then the filesystem.
type Registry struct {
	rootDir string

	mu    sync.Mutex
	cache map[string]model.DriverSchema
}

func NewRegistry(rootDir string) *Registry {
	return &Registry{rootDir: rootDir, cache: make(map[string]model.DriverSchema)}
}

// Load resolves a driver by name: inline config, then cache, then
// `<root>/drivers/<name>.json`. Filesystem hits populate the cache.
func (r *Registry) Load(inline InlineSource, driverName string) (model.DriverSchema, error) {
	if inline != nil {
		if raw, ok := inline.InlineDriver(driverName); ok {
			var schema model.DriverSchema
			if err := json.Unmarshal(raw, &schema); err != nil {
				return model.DriverSchema{}, fmt.Errorf("%w: inline driver %q: %v", ErrDriverParse, driverName, err)
			}
			return schema, nil
		}
	}

	r.mu.Lock()
	cached, ok := r.cache[driverName]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	path := filepath.Join(r.rootDir, "drivers", driverName+".json")
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.DriverSchema{}, fmt.Errorf("%w: %q", ErrDriverNotFound, driverName)
		}
		return model.DriverSchema{}, fmt.Errorf("driver: reading %s: %w", path, err)
	}

	var schema model.DriverSchema
	if err := json.Unmarshal(content, &schema); err != nil {
		return model.DriverSchema{}, fmt.Errorf("%w: %s: %v", ErrDriverParse, path, err)
	}

	r.mu.Lock()
	r.cache[driverName] = schema
	r.mu.Unlock()

	return schema, nil
}

// InvalidateCache drops every cached filesystem-loaded driver. Cache
// misses are idempotent, so concurrent reloads under contention are
// harmless.
func (r *Registry) InvalidateCache() {
	r.mu.Lock()
	r.cache = make(map[string]model.DriverSchema)
	r.mu.Unlock()
}

// Resolve merges defaults, the driver's common block, and the
// field-specific block into a concrete FieldOptions. A field with no
// register is valid here; validation is deferred to whichever reader
// actually needs one.
func Resolve(schema model.DriverSchema, fieldName string) model.FieldOptions {
	return model.Resolve(schema, fieldName)
}
