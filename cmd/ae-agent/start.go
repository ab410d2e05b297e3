// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ammp-edge/ae-agent/internal/cache"
	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/driver"
	"github.com/ammp-edge/ae-agent/internal/kvstore"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/metrics"
	"github.com/ammp-edge/ae-agent/internal/orchestrator"
	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
	"github.com/ammp-edge/ae-agent/internal/scheduler"
)

// loadActiveConfig reads and validates the config document currently
// in the durable store. A missing or invalid config here is fatal: it
// is the one config load the agent cannot recover from by keeping a
// previous value, because there is no previous value yet.
func loadActiveConfig(store *kvstore.Store) (*config.Config, error) {
	var raw json.RawMessage
	found, err := store.Get(keyConfig, &raw)
	if err != nil {
		return nil, fmt.Errorf("reading config from kv store: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no config found in kv store; set one with 'kvs-set %s <json>' or 'mqtt-sub-cfg-cmd'", keyConfig)
	}
	return config.Parse(raw)
}

// configSource returns a closure that re-reads the config from the kv
// store on every call, falling back to the last successfully parsed
// config if the stored value is missing or fails validation. This is
// what lets a malformed config pushed mid-flight leave the previous
// cycle's config active instead of breaking the reading loop.
func configSource(store *kvstore.Store, initial *config.Config) func() *config.Config {
	current := initial
	return func() *config.Config {
		var raw json.RawMessage
		found, err := store.Get(keyConfig, &raw)
		if err != nil || !found {
			return current
		}
		cfg, err := config.Parse(raw)
		if err != nil {
			log.Warnf("start-readings: config in kv store is invalid, keeping previous config: %v", err)
			return current
		}
		current = cfg
		return current
	}
}

func runStartReadings(paths runtimeEnv.Paths, args []string) error {
	once := false
	for _, a := range args {
		if a == "--once" {
			once = true
		}
	}

	store, err := openStore(paths)
	if err != nil {
		return fmt.Errorf("opening kv store: %w", err)
	}
	defer store.Close()

	cacheStore, err := openCacheStore(paths)
	if err != nil {
		return fmt.Errorf("opening cache store: %w", err)
	}
	defer cacheStore.Close()

	cfg, err := loadActiveConfig(store)
	if err != nil {
		return fmt.Errorf("loading config at startup: %w", err)
	}

	client, err := connectBroker("data")
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Close()

	c := cache.New(cacheStore)
	registry := driver.NewRegistry(paths.Root)
	orch := orchestrator.New(registry, c)

	s, err := scheduler.New(orch, client, c, configSource(store, cfg))
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if once {
		s.RunOnce(ctx)
		return nil
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
				log.Warnf("start-readings: metrics server stopped: %v", err)
			}
		}()
	}

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	runtimeEnv.SystemdNotifiy(true, "running")
	<-sigs

	log.Infof("start-readings: shutting down")
	runtimeEnv.SystemdNotifiy(false, "shutting down")
	cancel()
	return s.Shutdown()
}
