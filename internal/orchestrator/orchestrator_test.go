// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package orchestrator

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/driver"
	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCache is an in-memory CacheReader stand-in for throttling tests.
type fakeCache struct {
	ts map[string]int64
}

func newFakeCache() *fakeCache { return &fakeCache{ts: make(map[string]int64)} }

func (c *fakeCache) LastSampleTS(deviceKey string) (int64, bool) {
	v, ok := c.ts[deviceKey]
	return v, ok
}

func testConfig(devices map[string]config.DeviceConfig, readings map[string]config.ReadingRef) *config.Config {
	return &config.Config{Devices: devices, Readings: readings}
}

func TestAssembleJobsSkipsUnknownDevice(t *testing.T) {
	o := New(driver.NewRegistry(""), newFakeCache())
	cfg := testConfig(
		map[string]config.DeviceConfig{},
		map[string]config.ReadingRef{"voltage": {Device: "missing", Var: "v"}},
	)

	jobs := o.assembleJobs(time.Now(), cfg)
	assert.Empty(t, jobs)
}

func TestAssembleJobsSkipsDisabledDevice(t *testing.T) {
	disabled := false
	o := New(driver.NewRegistry(""), newFakeCache())
	cfg := testConfig(
		map[string]config.DeviceConfig{"a": {ReadingType: model.ReadingTypeModbusTCP, Enabled: &disabled}},
		map[string]config.ReadingRef{"voltage": {Device: "a", Var: "v"}},
	)

	jobs := o.assembleJobs(time.Now(), cfg)
	assert.Empty(t, jobs)
}

func TestAssembleJobsThrottlesBelowMinReadInterval(t *testing.T) {
	cache := newFakeCache()
	now := time.Unix(10000, 0)
	cache.ts["a"] = 9995 // 5s ago

	o := New(driver.NewRegistry(""), cache)
	cfg := testConfig(
		map[string]config.DeviceConfig{"a": {ReadingType: model.ReadingTypeModbusTCP, MinReadInterval: 60}},
		map[string]config.ReadingRef{"voltage": {Device: "a", Var: "v"}},
	)

	jobs := o.assembleJobs(now, cfg)
	assert.Empty(t, jobs)
}

func TestAssembleJobsAllowsAfterMinReadIntervalElapsed(t *testing.T) {
	cache := newFakeCache()
	now := time.Unix(10000, 0)
	cache.ts["a"] = 9900 // 100s ago

	o := New(driver.NewRegistry(""), cache)
	cfg := testConfig(
		map[string]config.DeviceConfig{"a": {ReadingType: model.ReadingTypeModbusTCP, MinReadInterval: 60}},
		map[string]config.ReadingRef{"voltage": {Device: "a", Var: "v"}},
	)

	jobs := o.assembleJobs(now, cfg)
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].device.Key)
}

// startFakeModbusServer answers every register read with regData.
func startFakeModbusServer(t *testing.T, regData []byte) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				var hdr [7]byte
				if _, err := readFullTest(conn, hdr[:]); err != nil {
					return
				}
				pduLen := binary.BigEndian.Uint16(hdr[4:6]) - 1
				pdu := make([]byte, pduLen)
				if _, err := readFullTest(conn, pdu); err != nil {
					return
				}
				fc := pdu[0]

				var respHdr [7]byte
				copy(respHdr[0:2], hdr[0:2])
				binary.BigEndian.PutUint16(respHdr[4:6], uint16(3+len(regData)))
				respHdr[6] = hdr[6]

				resp := append([]byte{}, respHdr[:]...)
				resp = append(resp, fc, byte(len(regData)))
				resp = append(resp, regData...)
				conn.Write(resp)
			}()
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func readFullTest(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func driverSchemaJSON(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(model.DriverSchema{
		Fields: map[string]model.RawFieldOptions{
			"v": func() model.RawFieldOptions {
				reg := 10
				mult := 0.1
				tc := model.TypecastFloat
				return model.RawFieldOptions{Register: &reg, Multiplier: &mult, Typecast: &tc}
			}(),
		},
	})
	require.NoError(t, err)
	return raw
}

func TestGetReadingsTwoDevicesSameHostBothSucceed(t *testing.T) {
	hostA, portA := startFakeModbusServer(t, []byte{0x00, 0x64}) // 100 -> 10.0
	_, portB := startFakeModbusServer(t, []byte{0x00, 0xC8})     // 200 -> 20.0

	driverJSON := driverSchemaJSON(t)

	cfg := &config.Config{
		Devices: map[string]config.DeviceConfig{
			"A": {ReadingType: model.ReadingTypeModbusTCP, Driver: "meter",
				Address: model.DeviceAddress{Host: hostA, Port: portA, UnitID: 1}},
			"B": {ReadingType: model.ReadingTypeModbusTCP, Driver: "meter",
				Address: model.DeviceAddress{Host: hostA, Port: portB, UnitID: 2}},
		},
		Readings: map[string]config.ReadingRef{
			"voltage_a": {Device: "A", Var: "v"},
			"voltage_b": {Device: "B", Var: "v"},
		},
		Drivers: map[string]json.RawMessage{"meter": driverJSON},
	}

	o := New(driver.NewRegistry(""), newFakeCache())
	readings := o.GetReadings(context.Background(), time.Now(), cfg)

	require.Len(t, readings, 2)
	byKey := map[string]model.DeviceReading{}
	for _, r := range readings {
		byKey[r.Device.Key] = r
	}

	fa, ok := byKey["A"].Record.GetField("voltage_a")
	require.True(t, ok)
	va, _ := fa.AsFloat()
	assert.Equal(t, 10.0, va)

	fb, ok := byKey["B"].Record.GetField("voltage_b")
	require.True(t, ok)
	vb, _ := fb.AsFloat()
	assert.Equal(t, 20.0, vb)
}

func TestGetReadingsConnectionFailureOmitsDevice(t *testing.T) {
	driverJSON := driverSchemaJSON(t)

	cfg := &config.Config{
		Devices: map[string]config.DeviceConfig{
			"A": {ReadingType: model.ReadingTypeModbusTCP, Driver: "meter",
				Address: model.DeviceAddress{Host: "127.0.0.1", Port: 1, UnitID: 1, TimeoutSeconds: 1}},
		},
		Readings: map[string]config.ReadingRef{
			"voltage_a": {Device: "A", Var: "v"},
		},
		Drivers: map[string]json.RawMessage{"meter": driverJSON},
	}

	o := New(driver.NewRegistry(""), newFakeCache())
	readings := o.GetReadings(context.Background(), time.Now(), cfg)
	assert.Empty(t, readings)
}
