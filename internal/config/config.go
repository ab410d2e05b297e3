// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads, validates, and decodes the agent's JSON
// configuration document: devices, readings, status readings, output
// expressions, inline drivers, and scheduling/tuning parameters.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ammp-edge/ae-agent/internal/model"
)

// DeviceConfig is one entry of Config.Devices.
type DeviceConfig struct {
	ReadingType     model.ReadingType      `json:"reading_type"`
	Driver          string                 `json:"driver,omitempty"`
	Enabled         *bool                  `json:"enabled,omitempty"`
	MinReadInterval int                    `json:"min_read_interval,omitempty"`
	VendorID        string                 `json:"vendor_id,omitempty"`
	Address         model.DeviceAddress    `json:"address,omitempty"`
}

// IsEnabled defaults to true when Enabled is unset.
func (d DeviceConfig) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// ReadingRef is one entry of Config.Readings: a named field sourced
// from a single device variable.
type ReadingRef struct {
	Device string `json:"device"`
	Var    string `json:"var"`
}

// StatusReadingRef is one entry of Config.StatusReadings.
type StatusReadingRef struct {
	Device  string `json:"device"`
	Reading string `json:"reading"`
}

// OutputSpec is one entry of Config.Output: a jsonata expression over
// the cycle's readings, producing a single synthetic field.
type OutputSpec struct {
	Device   string          `json:"device,omitempty"`
	Field    string          `json:"field"`
	Source   string          `json:"source"`
	Typecast model.Typecast  `json:"typecast"`
}

// Config is the agent's top-level configuration document.
type Config struct {
	Name              string                     `json:"name,omitempty"`
	CalcVendorID      string                     `json:"calc_vendor_id,omitempty"`
	Devices           map[string]DeviceConfig    `json:"devices"`
	Readings          map[string]ReadingRef      `json:"readings"`
	StatusReadings    []StatusReadingRef         `json:"status_readings,omitempty"`
	Output            []OutputSpec               `json:"output,omitempty"`
	Drivers           map[string]json.RawMessage `json:"drivers,omitempty"`
	ReadInterval      int                        `json:"read_interval,omitempty"`
	ReadRoundtime     bool                       `json:"read_roundtime,omitempty"`
	PushThrottleDelay int                        `json:"push_throttle_delay,omitempty"`
	PushTimeout       int                        `json:"push_timeout,omitempty"`
	VolatileQSize     int                        `json:"volatile_q_size,omitempty"`
	Timestamp         string                     `json:"timestamp,omitempty"`
}

const (
	defaultReadInterval      = 60
	defaultPushThrottleDelay = 0
	defaultPushTimeout       = 30
	defaultVolatileQSize     = 100
)

// applyDefaults fills in the zero-value fields the schema allows to be
// omitted.
func (c *Config) applyDefaults() {
	if c.ReadInterval == 0 {
		c.ReadInterval = defaultReadInterval
	}
	if c.PushTimeout == 0 {
		c.PushTimeout = defaultPushTimeout
	}
	if c.VolatileQSize == 0 {
		c.VolatileQSize = defaultVolatileQSize
	}
}

// InlineDriver satisfies driver.InlineSource: it looks up a driver
// schema inlined directly in the config document.
func (c *Config) InlineDriver(name string) (json.RawMessage, bool) {
	raw, ok := c.Drivers[name]
	return raw, ok
}

// Parse validates raw against the embedded JSON schema and, only on
// success, decodes it into a Config. Unknown fields are rejected. A
// failure at either step returns a nil Config and the error — Parse
// never partially populates its return value.
func Parse(raw []byte) (*Config, error) {
	if err := Validate(raw); err != nil {
		return nil, fmt.Errorf("config: validating: %w", err)
	}

	var c Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	c.applyDefaults()
	return &c, nil
}
