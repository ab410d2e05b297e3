// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache implements the agent's best-effort reading cache: the
// last payload pushed, per-device last-sample timestamps (used to
// throttle reads below a device's min_read_interval), and last-seen
// status levels. All writes are best-effort: callers log and continue
// on failure rather than propagate it.
package cache

import (
	"fmt"

	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/model"
)

const (
	keyLastReadings      = "LAST_READINGS"
	keyLastReadingsTS    = "LAST_READINGS_TS"
	prefixLastReadingTS  = "LAST_READING_TS_FOR_DEV/"
	prefixLastStatusInfo = "LAST_STATUS_INFO_LEVEL/"
)

// Store is the subset of kvstore.Store the cache needs, kept narrow so
// it can be satisfied by a fake in tests.
type Store interface {
	Get(key string, out interface{}) (bool, error)
	Set(key string, value interface{}) error
	SetMany(kv map[string]interface{}) error
}

type Cache struct {
	store Store
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

// SaveLastReadings merges readings into LAST_READINGS when the stored
// timestamp matches timestamp exactly, otherwise it replaces the stored
// set outright. It also records, per device present in readings, the
// timestamp at which that device was last sampled.
func (c *Cache) SaveLastReadings(readings []model.DeviceData, timestamp int64) {
	var storedTS int64
	found, err := c.store.Get(keyLastReadingsTS, &storedTS)
	if err != nil {
		log.Warnf("cache: reading %s: %v", keyLastReadingsTS, err)
	}

	merged := readings
	if found && storedTS == timestamp {
		var stored []model.DeviceData
		if _, err := c.store.Get(keyLastReadings, &stored); err != nil {
			log.Warnf("cache: reading %s: %v", keyLastReadings, err)
		} else {
			merged = append(stored, readings...)
		}
	}

	kv := map[string]interface{}{
		keyLastReadings:   merged,
		keyLastReadingsTS: timestamp,
	}
	for _, r := range readings {
		kv[prefixLastReadingTS+r.Device.Key] = timestamp
	}

	if err := c.store.SetMany(kv); err != nil {
		log.Warnf("cache: saving last readings: %v", err)
	}
}

// SaveLastStatusLevels records, for each (device, status content) pair
// present in readings, the status level last observed.
func (c *Cache) SaveLastStatusLevels(readings []model.DeviceData) {
	kv := make(map[string]interface{})
	for _, r := range readings {
		for _, s := range r.Status {
			kv[fmt.Sprintf("%s%s/%s", prefixLastStatusInfo, r.Device.Key, s.Content)] = s.Level
		}
	}
	if len(kv) == 0 {
		return
	}
	if err := c.store.SetMany(kv); err != nil {
		log.Warnf("cache: saving last status levels: %v", err)
	}
}

// LastSampleTS returns the timestamp at which deviceKey was last
// sampled, if any.
func (c *Cache) LastSampleTS(deviceKey string) (int64, bool) {
	var ts int64
	found, err := c.store.Get(prefixLastReadingTS+deviceKey, &ts)
	if err != nil {
		log.Warnf("cache: reading last sample ts for %q: %v", deviceKey, err)
		return 0, false
	}
	return ts, found
}
