// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ammp-edge/ae-agent/internal/broker"
	"github.com/ammp-edge/ae-agent/internal/kvstore"
	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
)

const (
	defaultAPIRoot     = "https://edge.ammp.io/api/v0"
	defaultBrokerHost  = "localhost"
	defaultBrokerPort  = 1883
	brokerDialTimeout  = 10 * time.Second
)

func apiRoot() string {
	return envOr("API_ROOT", defaultAPIRoot)
}

func brokerAddr() (string, int) {
	host := envOr("MQTT_BRIDGE_HOST", defaultBrokerHost)
	port := defaultBrokerPort
	if v := os.Getenv("MQTT_BRIDGE_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return host, port
}

func openStore(paths runtimeEnv.Paths) (*kvstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(paths.KVStorePath()), 0o755); err != nil {
		return nil, fmt.Errorf("creating kv store directory: %w", err)
	}
	return kvstore.Open(paths.KVStorePath())
}

func openCacheStore(paths runtimeEnv.Paths) (*kvstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(paths.CachePath()), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return kvstore.Open(paths.CachePath())
}

func connectBroker(clientID string) (*broker.Client, error) {
	host, port := brokerAddr()
	return broker.Connect(host, port, clientID, brokerDialTimeout)
}
