// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package activation

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsZeroMACDetectsAllZero(t *testing.T) {
	assert.True(t, isZeroMAC(net.HardwareAddr{0, 0, 0, 0, 0, 0}))
	assert.False(t, isZeroMAC(net.HardwareAddr{0, 0, 0, 0, 0, 1}))
}

func TestGenerateNodeIDNeverEmpty(t *testing.T) {
	id := GenerateNodeID()
	assert.NotEmpty(t, id)
}
