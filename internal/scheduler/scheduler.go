// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler owns the agent's outermost timer: it ticks the
// reading engine at a configured interval, optionally aligned to a
// wall-clock boundary, and never exits on a cycle's errors.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ammp-edge/ae-agent/internal/broker"
	"github.com/ammp-edge/ae-agent/internal/cache"
	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/metrics"
	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/ammp-edge/ae-agent/internal/orchestrator"
	"github.com/ammp-edge/ae-agent/internal/output"
	"github.com/ammp-edge/ae-agent/internal/payload"
	"github.com/go-co-op/gocron/v2"
)

const (
	defaultCycleDeadline = 60 * time.Second
	dataTopic            = "d/data"
)

// Orchestrator is the subset of orchestrator.Orchestrator the scheduler
// drives each cycle.
type Orchestrator interface {
	GetReadings(ctx context.Context, now time.Time, cfg *config.Config) []model.DeviceReading
}

// Publisher is the subset of broker.Client the scheduler needs to ship
// a cycle's payloads.
type Publisher interface {
	Publish(ctx context.Context, messages []broker.Message, retain bool) error
}

// Scheduler ties the orchestrator, output evaluator, payload assembler,
// cache, and broker publisher into one reading cycle, run either once
// or on a recurring gocron timer.
type Scheduler struct {
	orchestrator Orchestrator
	publisher    Publisher
	cache        *cache.Cache
	configSource func() *config.Config

	gocron gocron.Scheduler
}

func New(orch Orchestrator, pub Publisher, c *cache.Cache, configSource func() *config.Config) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("scheduler: creating gocron scheduler: %w", err)
	}
	return &Scheduler{
		orchestrator: orch,
		publisher:    pub,
		cache:        c,
		configSource: configSource,
		gocron:       s,
	}, nil
}

// RunOnce executes exactly one reading cycle synchronously, for the
// --once CLI flag used for field smoke-testing.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.tick(ctx)
}

// Start computes the configured interval and, if read_roundtime is set,
// aligns the first tick to the next interval-aligned wall-clock
// boundary (millisecond precision), then runs ticks until Shutdown is
// called. A tick that is due while the previous one is still running
// is skipped, so ticks never overlap. Canceling ctx does not stop the
// schedule; it is only passed to each tick.
func (s *Scheduler) Start(ctx context.Context) error {
	cfg := s.configSource()
	interval := time.Duration(cfg.ReadInterval) * time.Second

	opts := []gocron.JobOption{gocron.WithSingletonMode(gocron.LimitModeReschedule)}
	if cfg.ReadRoundtime {
		start := nextAlignedBoundary(time.Now(), interval)
		opts = append(opts, gocron.WithStartAt(gocron.WithStartDateTime(start)))
	}

	_, err := s.gocron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.tick(ctx) }),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("scheduler: scheduling reading job: %w", err)
	}

	s.gocron.Start()
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.gocron.Shutdown()
}

// nextAlignedBoundary returns the next wall-clock instant that is an
// exact multiple of interval since the Unix epoch, at millisecond
// precision.
func nextAlignedBoundary(now time.Time, interval time.Duration) time.Time {
	if interval <= 0 {
		return now
	}
	ms := now.UnixMilli()
	step := interval.Milliseconds()
	next := ((ms / step) + 1) * step
	return time.UnixMilli(next)
}

// tick runs exactly one reading cycle. Any error is logged and
// swallowed here: the loop itself never fails.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	now := start.UTC()

	cycleCtx, cancel := context.WithTimeout(ctx, defaultCycleDeadline)
	defer cancel()

	cfg := s.configSource()

	readings := s.orchestrator.GetReadings(cycleCtx, now, cfg)

	if calc, ok := output.Evaluate(readings, cfg); ok {
		readings = append(readings, calc)
	}

	duration := time.Since(start).Seconds()
	meta := &model.Metadata{ReadingDuration: &duration}
	payloads := payload.Assemble(readings, meta)

	deviceData := toDeviceData(readings)
	s.cache.SaveLastReadings(deviceData, now.Unix())
	s.cache.SaveLastStatusLevels(deviceData)

	if err := s.publish(ctx, cfg, payloads); err != nil {
		log.Warnf("scheduler: publishing cycle payloads: %v", err)
		metrics.PublishFailures.Inc()
	}

	metrics.CycleDuration.Observe(duration)
	metrics.DevicesRead.Set(float64(len(readings)))
	log.Infof("scheduler: cycle complete in %s, %d devices, %d payloads", time.Since(start), len(readings), len(payloads))
}

func (s *Scheduler) publish(ctx context.Context, cfg *config.Config, payloads []model.Payload) error {
	if len(payloads) == 0 {
		return nil
	}

	messages := make([]broker.Message, 0, len(payloads))
	for _, p := range payloads {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("scheduler: marshaling payload: %w", err)
		}
		messages = append(messages, broker.Message{Topic: dataTopic, Payload: data})
	}

	timeout := time.Duration(cfg.PushTimeout) * time.Second
	pubCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return s.publisher.Publish(pubCtx, messages, false)
}

func toDeviceData(readings []model.DeviceReading) []model.DeviceData {
	out := make([]model.DeviceData, 0, len(readings))
	for _, r := range readings {
		out = append(out, model.DeviceData{
			Device: r.Device,
			Status: r.Record.Status,
			Fields: r.Record.AllFieldsFiltered(),
		})
	}
	return out
}
