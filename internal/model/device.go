// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

// ReadingType identifies the protocol/source a device is read through.
type ReadingType string

const (
	ReadingTypeSys          ReadingType = "sys"
	ReadingTypeModbusTCP    ReadingType = "modbustcp"
	ReadingTypeModbusRTU    ReadingType = "modbusrtu"
	ReadingTypeMQTT         ReadingType = "mqtt"
	ReadingTypeRawSerial    ReadingType = "rawserial"
	ReadingTypeRawTCP       ReadingType = "rawtcp"
	ReadingTypeSMAHyconCSV  ReadingType = "sma_hycon_csv"
	ReadingTypeSMASpeedwire ReadingType = "sma_speedwire"
	ReadingTypeSNMP         ReadingType = "snmp"
)

// DeviceRef is a stable device key plus an opaque vendor identifier,
// passed through to payloads unmodified.
type DeviceRef struct {
	Key      string `json:"key"`
	VendorID string `json:"vendor_id,omitempty"`
}

// DeviceAddress groups every transport-specific addressing detail a
// device may carry. Only the fields relevant to the device's
// ReadingType are populated.
type DeviceAddress struct {
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	UnitID         int    `json:"unit_id,omitempty"`
	MAC            string `json:"mac,omitempty"`
	RegisterOffset int    `json:"register_offset,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	BaseURL        string `json:"base_url,omitempty"`
	Device         string `json:"device,omitempty"`
	BaudRate       int    `json:"baudrate,omitempty"`
	SlaveAddr      int    `json:"slaveaddr,omitempty"`
	TimeoutSeconds int    `json:"timeout,omitempty"`
}

// Device is a DeviceRef plus everything the orchestrator needs to
// decide whether, and how, to read it in a given cycle.
type Device struct {
	DeviceRef
	ReadingType     ReadingType   `json:"reading_type"`
	Driver          string        `json:"driver,omitempty"`
	Address         DeviceAddress `json:"address,omitempty"`
	Enabled         bool          `json:"enabled"`
	MinReadInterval int           `json:"min_read_interval,omitempty"` // seconds; 0 disables throttling
}

// StatusReading is a decoded bit-field: a human-readable message plus
// an ordinal severity level.
type StatusReading struct {
	Content string `json:"c"`
	Level   int    `json:"l"`
}

// ReadingJob is a Device plus the field and status-info names to sample
// in the current cycle. Mutated only during job assembly.
type ReadingJob struct {
	Device      Device
	Fields      []string
	StatusInfos []string
}

// DeviceReading pairs a DeviceRef with the Record produced for it in a
// single cycle.
type DeviceReading struct {
	Device DeviceRef
	Record Record
}
