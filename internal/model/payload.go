// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import (
	"bytes"
	"encoding/json"
	"sort"
)

// DeviceData is one device's entry within a wire Payload: fixed device
// identity and status readings, plus arbitrary field readings flattened
// alongside them at the same object level.
type DeviceData struct {
	Device DeviceRef
	Status []StatusReading
	Fields map[string]RuntimeValue
}

// MarshalJSON flattens Fields alongside the fixed d/vid/s keys rather
// than nesting them, matching the wire format in which a reading's
// variables sit at the same level as its device identity.
func (d DeviceData) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(d.Fields)+3)

	keyJSON, err := json.Marshal(d.Device.Key)
	if err != nil {
		return nil, err
	}
	obj["d"] = keyJSON

	vidJSON, err := json.Marshal(d.Device.VendorID)
	if err != nil {
		return nil, err
	}
	obj["vid"] = vidJSON

	if len(d.Status) > 0 {
		statusJSON, err := json.Marshal(d.Status)
		if err != nil {
			return nil, err
		}
		obj["s"] = statusJSON
	}

	for k, v := range d.Fields {
		if v.IsNone() {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kj, _ := json.Marshal(k)
		buf.Write(kj)
		buf.WriteByte(':')
		buf.Write(obj[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Metadata carries optional per-cycle bookkeeping attached to a Payload.
type Metadata struct {
	ConfigID        *string  `json:"config_id,omitempty"`
	ReadingDuration *float64 `json:"reading_duration,omitempty"`
	SnapRev         *string  `json:"snap_rev,omitempty"`
	DataProvider    *string  `json:"data_provider,omitempty"`
}

// Payload is one timestamp-grouped batch of readings ready for publish.
type Payload struct {
	T int64        `json:"t"`
	R []DeviceData `json:"r"`
	M *Metadata    `json:"m,omitempty"`
}
