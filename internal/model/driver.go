// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

// DataType names the width/signedness of a decoded numeric field.
type DataType string

const (
	DataTypeInt16  DataType = "int16"
	DataTypeUInt16 DataType = "uint16"
	DataTypeInt32  DataType = "int32"
	DataTypeUInt32 DataType = "uint32"
	DataTypeInt64  DataType = "int64"
	DataTypeUInt64 DataType = "uint64"
	DataTypeFloat  DataType = "float"
	DataTypeDouble DataType = "double"
)

// RegisterOrder controls how 16-bit Modbus registers are sequenced into
// a byte string. Bytes within a register are always big-endian.
type RegisterOrder string

const (
	RegisterOrderMSR RegisterOrder = "msr" // most-significant register first (default)
	RegisterOrderLSR RegisterOrder = "lsr" // least-significant register first
)

// Typecast is the final coercion applied to a decoded/scaled value.
type Typecast string

const (
	TypecastInt   Typecast = "int"
	TypecastFloat Typecast = "float"
	TypecastStr   Typecast = "str"
	TypecastBool  Typecast = "bool"
)

// ParseAs selects how raw bytes are interpreted before value-map lookup
// and numeric decode.
type ParseAs string

const (
	ParseAsBytes ParseAs = "bytes" // default
	ParseAsStr   ParseAs = "str"   // UTF-8 numeric string
	ParseAsHex   ParseAs = "hex"   // UTF-8 hex-encoded string
)

// BitOrder selects which end of a register a status bit-slice counts from.
type BitOrder string

const (
	BitOrderLSB BitOrder = "lsb"
	BitOrderMSB BitOrder = "msb"
)

// LevelMapEntry is one (raw, level) pair of a status_level_value_map.
type LevelMapEntry struct {
	Raw   int
	Level int
}

// RawFieldOptions is a field-options block as it appears in a driver
// JSON document: every field is optional so that `common` and
// field-specific blocks can be merged by overlay.
type RawFieldOptions struct {
	Register            *int             `json:"register,omitempty"`
	Words                *int             `json:"words,omitempty"`
	DataType             *DataType        `json:"datatype,omitempty"`
	FunctionCode         *int             `json:"fncode,omitempty"`
	Order                *RegisterOrder   `json:"order,omitempty"`
	ParseAs              *ParseAs         `json:"parse_as,omitempty"`
	Typecast             *Typecast        `json:"typecast,omitempty"`
	Multiplier           *float64         `json:"multiplier,omitempty"`
	Offset               *float64         `json:"offset,omitempty"`
	Unit                 *string          `json:"unit,omitempty"`
	Description          *string          `json:"description,omitempty"`
	ValueMap             map[string]float64 `json:"valuemap,omitempty"`
	StartBit             *int             `json:"start_bit,omitempty"`
	LengthBits           *int             `json:"length_bits,omitempty"`
	BitOrder             *BitOrder        `json:"bit_order,omitempty"`
	StatusLevelValueMap  []LevelMapEntry  `json:"status_level_value_map,omitempty"`
	Content              *string          `json:"content,omitempty"`
}

// merge overlays non-nil fields of other onto a copy of r.
func (r RawFieldOptions) merge(other RawFieldOptions) RawFieldOptions {
	out := r
	if other.Register != nil {
		out.Register = other.Register
	}
	if other.Words != nil {
		out.Words = other.Words
	}
	if other.DataType != nil {
		out.DataType = other.DataType
	}
	if other.FunctionCode != nil {
		out.FunctionCode = other.FunctionCode
	}
	if other.Order != nil {
		out.Order = other.Order
	}
	if other.ParseAs != nil {
		out.ParseAs = other.ParseAs
	}
	if other.Typecast != nil {
		out.Typecast = other.Typecast
	}
	if other.Multiplier != nil {
		out.Multiplier = other.Multiplier
	}
	if other.Offset != nil {
		out.Offset = other.Offset
	}
	if other.Unit != nil {
		out.Unit = other.Unit
	}
	if other.Description != nil {
		out.Description = other.Description
	}
	if len(other.ValueMap) > 0 {
		out.ValueMap = other.ValueMap
	}
	if other.StartBit != nil {
		out.StartBit = other.StartBit
	}
	if other.LengthBits != nil {
		out.LengthBits = other.LengthBits
	}
	if other.BitOrder != nil {
		out.BitOrder = other.BitOrder
	}
	if len(other.StatusLevelValueMap) > 0 {
		out.StatusLevelValueMap = other.StatusLevelValueMap
	}
	if other.Content != nil {
		out.Content = other.Content
	}
	return out
}

// DriverSchema is a common field-options block plus a per-field overlay map.
type DriverSchema struct {
	Common RawFieldOptions            `json:"common"`
	Fields map[string]RawFieldOptions `json:"fields"`
}

// FieldOptions is a fully resolved field spec: every field carries a
// concrete value except Register, which may legitimately remain unset
// (validated by whichever reader needs it).
type FieldOptions struct {
	Register            *int
	Words                int
	DataType             DataType
	FunctionCode         int
	Order                RegisterOrder
	ParseAs              ParseAs
	Typecast             Typecast
	Multiplier           float64
	Offset               float64
	Unit                 string
	Description          string
	ValueMap             map[string]float64
	StartBit             int
	LengthBits           int
	BitOrder             BitOrder
	StatusLevelValueMap  []LevelMapEntry
	Content              string
}

// DefaultRawFieldOptions seeds field resolution: words=1, fncode=3 (holding
// registers), datatype=uint16, order=msr, bit_order=lsb.
func DefaultRawFieldOptions() RawFieldOptions {
	words := 1
	fncode := 3
	dt := DataTypeUInt16
	order := RegisterOrderMSR
	bitOrder := BitOrderLSB
	parseAs := ParseAsBytes
	return RawFieldOptions{
		Words:        &words,
		FunctionCode: &fncode,
		DataType:     &dt,
		Order:        &order,
		BitOrder:     &bitOrder,
		ParseAs:      &parseAs,
	}
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func floatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// Resolve merges defaults -> common -> field-specific into a concrete
// FieldOptions. Register is left unset if no layer provided one.
func Resolve(schema DriverSchema, fieldName string) FieldOptions {
	merged := DefaultRawFieldOptions().merge(schema.Common).merge(schema.Fields[fieldName])
	fo := FieldOptions{
		Register:            merged.Register,
		Words:                intOr(merged.Words, 1),
		DataType:             DataTypeUInt16,
		FunctionCode:         intOr(merged.FunctionCode, 3),
		Order:                RegisterOrderMSR,
		ParseAs:              ParseAsBytes,
		Typecast:             TypecastFloat,
		Multiplier:           floatOr(merged.Multiplier, 1.0),
		Offset:               floatOr(merged.Offset, 0.0),
		Unit:                 strOr(merged.Unit, ""),
		Description:          strOr(merged.Description, ""),
		ValueMap:             merged.ValueMap,
		StartBit:             intOr(merged.StartBit, 0),
		LengthBits:           intOr(merged.LengthBits, 1),
		BitOrder:             BitOrderLSB,
		StatusLevelValueMap:  merged.StatusLevelValueMap,
		Content:              strOr(merged.Content, ""),
	}
	if merged.DataType != nil {
		fo.DataType = *merged.DataType
	}
	if merged.Order != nil {
		fo.Order = *merged.Order
	}
	if merged.Typecast != nil {
		fo.Typecast = *merged.Typecast
	}
	if merged.ParseAs != nil {
		fo.ParseAs = *merged.ParseAs
	}
	if merged.BitOrder != nil {
		fo.BitOrder = *merged.BitOrder
	}
	return fo
}
