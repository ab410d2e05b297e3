// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modbus

import (
	"encoding/binary"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startFakeServer starts a one-shot Modbus TCP server that answers
// every holding/input-register read with regData (raw register bytes,
// big-endian, count derived from the request).
func startFakeServer(t *testing.T, regData []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var hdr [7]byte
		if _, err := readFull(conn, hdr[:]); err != nil {
			return
		}
		pduLen := binary.BigEndian.Uint16(hdr[4:6]) - 1
		pdu := make([]byte, pduLen)
		if _, err := readFull(conn, pdu); err != nil {
			return
		}
		fc := pdu[0]

		resp := make([]byte, 0, 9+len(regData))
		var respHdr [7]byte
		copy(respHdr[0:2], hdr[0:2])
		binary.BigEndian.PutUint16(respHdr[4:6], uint16(3+len(regData)))
		respHdr[6] = hdr[6]
		resp = append(resp, respHdr[:]...)
		resp = append(resp, fc, byte(len(regData)))
		resp = append(resp, regData...)
		conn.Write(resp)
	}()

	return ln.Addr().String()
}

func TestConnectAndReadRegisters(t *testing.T) {
	addr := startFakeServer(t, []byte{0x00, 0x64}) // 100
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := Connect(host, port, 1, 0, time.Second)
	require.NoError(t, err)
	defer client.Close()

	regs, err := client.ReadRegisters(10, 1, FuncReadHoldingRegisters)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0064}, regs)
}

func TestExecuteDecodesField(t *testing.T) {
	addr := startFakeServer(t, []byte{0x00, 0xC8}) // 200
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := Connect(host, port, 2, 0, time.Second)
	require.NoError(t, err)
	defer client.Close()

	reg := 10
	fo := model.Resolve(model.DriverSchema{}, "x")
	fo.Register = &reg
	fo.Multiplier = 0.1
	fo.Typecast = model.TypecastFloat

	results := client.Execute([]ReadingConfig{{Name: "voltage", FO: fo}})
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	f, ok := results[0].Value.AsFloat()
	require.True(t, ok)
	assert.Equal(t, 20.0, f)
}

func TestReadRegistersUnsupportedFunctionCode(t *testing.T) {
	addr := startFakeServer(t, []byte{0x00, 0x00})
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := Connect(host, port, 1, 0, time.Second)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.ReadRegisters(0, 1, 6)
	assert.ErrorIs(t, err, ErrUnsupported)
}
