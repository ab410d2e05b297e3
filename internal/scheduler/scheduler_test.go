// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ammp-edge/ae-agent/internal/broker"
	"github.com/ammp-edge/ae-agent/internal/cache"
	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrchestrator struct {
	readings []model.DeviceReading
	calls    int
}

func (f *fakeOrchestrator) GetReadings(_ context.Context, now time.Time, _ *config.Config) []model.DeviceReading {
	f.calls++
	out := make([]model.DeviceReading, len(f.readings))
	copy(out, f.readings)
	for i := range out {
		if _, ok := out[i].Record.GetTimestamp(); !ok {
			out[i].Record.SetTimestamp(now)
		}
	}
	return out
}

type fakePublisher struct {
	published [][]broker.Message
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, messages []broker.Message, _ bool) error {
	f.published = append(f.published, messages)
	return f.err
}

type fakeCacheStore struct {
	data map[string][]byte
}

func newFakeCacheStore() *fakeCacheStore { return &fakeCacheStore{data: map[string][]byte{}} }

func (s *fakeCacheStore) Set(key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = b
	return nil
}

func (s *fakeCacheStore) SetMany(kv map[string]interface{}) error {
	for k, v := range kv {
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeCacheStore) Get(key string, out interface{}) (bool, error) {
	b, ok := s.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, out)
}

func deviceReading(key string) model.DeviceReading {
	r := model.NewRecord()
	r.SetField("v", model.FloatValue(10.0))
	return model.DeviceReading{Device: model.DeviceRef{Key: key}, Record: r}
}

func testConfig() *config.Config {
	return &config.Config{
		ReadInterval:  60,
		PushTimeout:   5,
		VolatileQSize: 100,
	}
}

func TestRunOnceProducesAndPublishesPayload(t *testing.T) {
	orch := &fakeOrchestrator{readings: []model.DeviceReading{deviceReading("meter-a")}}
	pub := &fakePublisher{}
	store := newFakeCacheStore()
	c := cache.New(store)
	cfg := testConfig()

	s, err := New(orch, pub, c, func() *config.Config { return cfg })
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, 1, orch.calls)
	require.Len(t, pub.published, 1)
	assert.Len(t, pub.published[0], 1)
	assert.Equal(t, dataTopic, pub.published[0][0].Topic)
}

func TestRunOnceWithNoReadingsSkipsPublish(t *testing.T) {
	orch := &fakeOrchestrator{}
	pub := &fakePublisher{}
	store := newFakeCacheStore()
	c := cache.New(store)
	cfg := testConfig()

	s, err := New(orch, pub, c, func() *config.Config { return cfg })
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Empty(t, pub.published)
}

func TestRunOncePublishErrorDoesNotPanic(t *testing.T) {
	orch := &fakeOrchestrator{readings: []model.DeviceReading{deviceReading("meter-a")}}
	pub := &fakePublisher{err: assert.AnError}
	store := newFakeCacheStore()
	c := cache.New(store)
	cfg := testConfig()

	s, err := New(orch, pub, c, func() *config.Config { return cfg })
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
}

func TestNextAlignedBoundaryRoundsUpToInterval(t *testing.T) {
	now := time.UnixMilli(125_000)
	got := nextAlignedBoundary(now, 60*time.Second)
	assert.Equal(t, int64(180_000), got.UnixMilli())
}

func TestNextAlignedBoundaryZeroIntervalReturnsNow(t *testing.T) {
	now := time.UnixMilli(125_000)
	got := nextAlignedBoundary(now, 0)
	assert.Equal(t, now, got)
}
