// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package decode

import (
	"errors"
	"fmt"

	"github.com/ammp-edge/ae-agent/internal/model"
)

var (
	ErrEmptyStatusBytes  = errors.New("decode: empty byte array for status info")
	ErrMissingContent    = errors.New("decode: status info missing content field")
)

// Status extracts a bit slice from raw register bytes per fo
// (start_bit, length_bits, bit_order), then maps the extracted integer
// through status_level_value_map. Values absent from the map pass
// through unchanged. Missing content or empty input are fatal for this
// field.
func Status(raw []byte, fo model.FieldOptions) (model.StatusReading, error) {
	if len(raw) == 0 {
		return model.StatusReading{}, ErrEmptyStatusBytes
	}
	if fo.Content == "" {
		return model.StatusReading{}, ErrMissingContent
	}

	extracted, err := extractBits(raw, fo.StartBit, fo.LengthBits, fo.BitOrder)
	if err != nil {
		return model.StatusReading{}, err
	}

	level := mapValueToLevel(extracted, fo.StatusLevelValueMap)

	return model.StatusReading{Content: fo.Content, Level: level}, nil
}

// extractBits reads lengthBits bits out of raw (treated as one
// big-endian unsigned integer) starting at startBit. For bit_order=lsb,
// startBit counts from the least significant bit; for bit_order=msb, it
// counts from the most significant bit of the full byte string.
func extractBits(raw []byte, startBit, lengthBits int, order model.BitOrder) (int, error) {
	totalBits := len(raw) * 8
	if lengthBits <= 0 {
		lengthBits = 1
	}
	if startBit+lengthBits > totalBits {
		return 0, fmt.Errorf("decode: bit slice [%d:%d) exceeds %d-bit input", startBit, startBit+lengthBits, totalBits)
	}

	var word uint64
	for _, b := range raw {
		word = word<<8 | uint64(b)
	}

	shift := startBit
	if order == model.BitOrderMSB {
		shift = totalBits - startBit - lengthBits
	}

	mask := uint64(1)<<uint(lengthBits) - 1
	return int((word >> uint(shift)) & mask), nil
}

func mapValueToLevel(value int, table []model.LevelMapEntry) int {
	for _, e := range table {
		if e.Raw == value {
			return e.Level
		}
	}
	return value
}
