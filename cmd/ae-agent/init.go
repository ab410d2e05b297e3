// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ammp-edge/ae-agent/internal/activation"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
)

const activationTimeout = 5 * time.Minute

// runInit generates a new node ID (any stored one is not reused),
// carries out the two-step cloud activation, and persists both to the
// durable store.
func runInit(paths runtimeEnv.Paths, _ []string) error {
	store, err := openStore(paths)
	if err != nil {
		return fmt.Errorf("opening kv store: %w", err)
	}
	defer store.Close()

	nodeID := activation.GenerateNodeID()
	log.Infof("init: node ID is %s", nodeID)

	client := activation.NewClient(apiRoot())
	ctx, cancel := context.WithTimeout(context.Background(), activationTimeout)
	defer cancel()

	accessKey, err := client.Activate(ctx, nodeID)
	if err != nil {
		return fmt.Errorf("activating node: %w", err)
	}

	if err := store.SetMany(map[string]interface{}{
		keyNodeID:    nodeID,
		keyAccessKey: accessKey,
	}); err != nil {
		return fmt.Errorf("persisting activation result: %w", err)
	}

	log.Infof("init: activation complete")
	return nil
}
