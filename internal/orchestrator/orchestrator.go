// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package orchestrator is the reading engine's core: it decides which
// devices to sample on a given cycle, dispatches concurrent reads while
// serializing access to shared physical hardware, and assembles the
// resulting per-device records.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/driver"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/modbus"
	"github.com/ammp-edge/ae-agent/internal/model"
)

const defaultConnectTimeout = 10 * time.Second

// CacheReader is the read-only cache contract the orchestrator needs to
// throttle reads below a device's MinReadInterval.
type CacheReader interface {
	LastSampleTS(deviceKey string) (int64, bool)
}

// DriverLoader resolves a named driver schema, consulting inline
// config, the process cache, and the filesystem in that order.
type DriverLoader interface {
	Load(inline driver.InlineSource, driverName string) (model.DriverSchema, error)
}

// Orchestrator holds the process-wide state that must survive across
// cycles: the driver registry (with its own cache) and the
// per-physical-device lock map.
type Orchestrator struct {
	drivers DriverLoader
	cache   CacheReader

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(drivers DriverLoader, cache CacheReader) *Orchestrator {
	return &Orchestrator{
		drivers: drivers,
		cache:   cache,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex for id, creating it under locksMu if this
// is the first time id has been seen. The map lock is never held while
// the device lock itself is acquired or held.
func (o *Orchestrator) lockFor(id model.PhysicalDeviceId) *sync.Mutex {
	key := id.MapKey()

	o.locksMu.Lock()
	l, ok := o.locks[key]
	if !ok {
		l = &sync.Mutex{}
		o.locks[key] = l
	}
	o.locksMu.Unlock()

	return l
}

// deviceJob is one device's worth of work for the cycle: the resolved
// device, the driver variable names to read, mapped back to their
// output field names, and the status-info names to read.
type deviceJob struct {
	device      model.Device
	varToField  map[string]string // driver var name -> output field name
	statusInfos []string
}

// GetReadings assembles and executes the reading jobs for one cycle,
// returning one DeviceReading per Modbus TCP device that was read; a
// device whose reads all failed still appears with an empty record.
// Devices omitted by readDevice do not appear.
func (o *Orchestrator) GetReadings(ctx context.Context, now time.Time, cfg *config.Config) []model.DeviceReading {
	jobs := o.assembleJobs(now, cfg)

	modbusJobs := make([]deviceJob, 0, len(jobs))
	for _, j := range jobs {
		switch j.device.ReadingType {
		case model.ReadingTypeModbusTCP:
			modbusJobs = append(modbusJobs, j)
		default:
			log.Debugf("orchestrator: reading type %q not in scope, skipping device %q", j.device.ReadingType, j.device.Key)
		}
	}

	results := make([]*model.DeviceReading, len(modbusJobs))
	var wg sync.WaitGroup
	for i, job := range modbusJobs {
		wg.Add(1)
		go func(i int, job deviceJob) {
			defer wg.Done()
			results[i] = o.readDevice(ctx, cfg, job)
		}(i, job)
	}
	wg.Wait()

	out := make([]model.DeviceReading, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if _, ok := r.Record.GetTimestamp(); !ok {
			r.Record.SetTimestamp(now)
		}
		out = append(out, *r)
	}
	return out
}

// assembleJobs walks Readings and StatusReadings, resolving referenced
// devices and applying MinReadInterval throttling. Unreferenced devices
// are silently absent from the result.
func (o *Orchestrator) assembleJobs(now time.Time, cfg *config.Config) []deviceJob {
	byDevice := make(map[string]*deviceJob)
	order := make([]string, 0)

	getJob := func(deviceKey string) (*deviceJob, bool) {
		if j, ok := byDevice[deviceKey]; ok {
			return j, true
		}

		dc, ok := cfg.Devices[deviceKey]
		if !ok {
			log.Warnf("orchestrator: reading references unknown device %q", deviceKey)
			return nil, false
		}
		if !dc.IsEnabled() {
			log.Debugf("orchestrator: device %q disabled, skipping", deviceKey)
			return nil, false
		}

		if dc.MinReadInterval > 0 {
			if last, found := o.cache.LastSampleTS(deviceKey); found {
				if now.Unix()-last < int64(dc.MinReadInterval) {
					log.Debugf("orchestrator: device %q throttled (min_read_interval=%ds)", deviceKey, dc.MinReadInterval)
					return nil, false
				}
			}
		}

		device := model.Device{
			DeviceRef:       model.DeviceRef{Key: deviceKey, VendorID: dc.VendorID},
			ReadingType:     dc.ReadingType,
			Driver:          dc.Driver,
			Address:         dc.Address,
			Enabled:         dc.IsEnabled(),
			MinReadInterval: dc.MinReadInterval,
		}
		j := &deviceJob{device: device, varToField: make(map[string]string)}
		byDevice[deviceKey] = j
		order = append(order, deviceKey)
		return j, true
	}

	for fieldName, ref := range cfg.Readings {
		j, ok := getJob(ref.Device)
		if !ok {
			continue
		}
		j.varToField[ref.Var] = fieldName
	}

	for _, ref := range cfg.StatusReadings {
		j, ok := getJob(ref.Device)
		if !ok {
			continue
		}
		j.statusInfos = append(j.statusInfos, ref.Reading)
	}

	jobs := make([]deviceJob, 0, len(order))
	for _, key := range order {
		jobs = append(jobs, *byDevice[key])
	}
	return jobs
}

// readDevice loads the driver, serializes on the device's physical
// lock, reads every field and status info, and assembles the Record.
// A connection failure before any field is attempted omits the device
// from the cycle entirely, as does a context that is already done when
// readDevice starts; any other failure still yields a record (possibly
// empty) so the device remains visible in the cycle output.
func (o *Orchestrator) readDevice(ctx context.Context, cfg *config.Config, job deviceJob) *model.DeviceReading {
	if ctx.Err() != nil {
		log.Warnf("orchestrator: cycle deadline exceeded before reading device %q", job.device.Key)
		return nil
	}

	physID := model.PhysicalDeviceIDFromDevice(job.device)
	lock := o.lockFor(physID)

	lock.Lock()
	defer lock.Unlock()

	schema, err := o.drivers.Load(cfg, job.device.Driver)
	if err != nil {
		log.Warnf("orchestrator: loading driver for device %q: %v", job.device.Key, err)
		return &model.DeviceReading{Device: job.device.DeviceRef, Record: model.NewRecord()}
	}

	readings := make([]modbus.ReadingConfig, 0, len(job.varToField)+len(job.statusInfos))
	for varName := range job.varToField {
		readings = append(readings, modbus.ReadingConfig{Name: varName, FO: driver.Resolve(schema, varName)})
	}
	for _, s := range job.statusInfos {
		readings = append(readings, modbus.ReadingConfig{Name: s, FO: driver.Resolve(schema, s), IsStatus: true})
	}

	timeout := defaultConnectTimeout
	if job.device.Address.TimeoutSeconds > 0 {
		timeout = time.Duration(job.device.Address.TimeoutSeconds) * time.Second
	}

	client, err := modbus.Connect(
		job.device.Address.Host,
		job.device.Address.Port,
		job.device.Address.UnitID,
		job.device.Address.RegisterOffset,
		timeout,
	)
	if err != nil {
		log.Warnf("orchestrator: connecting to device %q: %v", job.device.Key, err)
		return nil
	}
	defer client.Close()

	results := client.Execute(readings)

	record := model.NewRecord()
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if r.Status != nil {
			record.Status = append(record.Status, *r.Status)
			continue
		}
		if fieldName, ok := job.varToField[r.Name]; ok {
			record.SetField(fieldName, r.Value)
		}
	}

	return &model.DeviceReading{
		Device: job.device.DeviceRef,
		Record: record,
	}
}
