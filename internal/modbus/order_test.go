// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modbus

import (
	"testing"

	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestRegistersToBytesDefaultOrder(t *testing.T) {
	got := RegistersToBytes([]uint16{0x1234, 0x5678}, model.RegisterOrder(""))
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, got)
}

func TestRegistersToBytesMSROrder(t *testing.T) {
	got := RegistersToBytes([]uint16{0x1234, 0x5678}, model.RegisterOrderMSR)
	assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, got)
}

func TestRegistersToBytesLSROrder(t *testing.T) {
	got := RegistersToBytes([]uint16{0x1234, 0x5678}, model.RegisterOrderLSR)
	assert.Equal(t, []byte{0x56, 0x78, 0x12, 0x34}, got)
}
