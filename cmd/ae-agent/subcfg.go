// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ammp-edge/ae-agent/internal/broker"
	"github.com/ammp-edge/ae-agent/internal/config"
	"github.com/ammp-edge/ae-agent/internal/kvstore"
	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
)

// runMQTTSubCfgCmd subscribes to the config and command topics and
// applies incoming messages until interrupted. A schema-invalid config
// update is logged and dropped — the previous config already persisted
// in the kv store remains active, per the agent's recoverable-fault
// policy for bad config pushes.
func runMQTTSubCfgCmd(paths runtimeEnv.Paths, _ []string) error {
	store, err := openStore(paths)
	if err != nil {
		return fmt.Errorf("opening kv store: %w", err)
	}
	defer store.Close()

	client, err := connectBroker("local-sub-cfg")
	if err != nil {
		return fmt.Errorf("connecting to broker: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Infof("mqtt-sub-cfg-cmd: shutting down")
		cancel()
	}()

	msgs := make(chan broker.Message, 16)
	if err := client.Subscribe(ctx, []string{topicConfig, topicCommand}, msgs, 0); err != nil {
		return fmt.Errorf("subscribing: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-msgs:
			handleSubCfgMessage(store, m)
		}
	}
}

func handleSubCfgMessage(store *kvstore.Store, m broker.Message) {
	log.Debugf("mqtt-sub-cfg-cmd: received %d bytes on %s", len(m.Payload), m.Topic)

	switch m.Topic {
	case topicConfig:
		if _, err := config.Parse(m.Payload); err != nil {
			log.Errorf("mqtt-sub-cfg-cmd: rejecting invalid config: %v", err)
			return
		}
		if err := store.Set(keyConfig, json.RawMessage(m.Payload)); err != nil {
			log.Errorf("mqtt-sub-cfg-cmd: storing new config: %v", err)
			return
		}
		log.Infof("mqtt-sub-cfg-cmd: applied new config")
	case topicCommand:
		log.Infof("mqtt-sub-cfg-cmd: command topic message received, no handler registered")
	default:
		log.Infof("mqtt-sub-cfg-cmd: message on unrecognized topic %s", m.Topic)
	}
}
