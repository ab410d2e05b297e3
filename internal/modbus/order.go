// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modbus

import "github.com/ammp-edge/ae-agent/internal/model"

// RegistersToBytes serializes a sequence of 16-bit register values into
// a byte string according to order. Register order is orthogonal to
// within-register endianness: bytes inside each register are always
// big-endian on the wire, regardless of order.
//
// msr (default): registers emitted in the order given.
// lsr: register order reversed before emission.
func RegistersToBytes(registers []uint16, order model.RegisterOrder) []byte {
	ordered := registers
	if order == model.RegisterOrderLSR {
		ordered = make([]uint16, len(registers))
		for i, r := range registers {
			ordered[len(registers)-1-i] = r
		}
	}

	out := make([]byte, 0, len(ordered)*2)
	for _, r := range ordered {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}
