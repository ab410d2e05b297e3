// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ae-agent is the edge data-acquisition agent: it activates a
// node against the cloud, reads configured field devices on a
// schedule, and publishes the results to a local MQTT broker.
package main

import (
	"fmt"
	"os"

	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // a missing .env is not an error

	log.SetLogLevel(envOr("LOG_LEVEL", "info"))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	paths := runtimeEnv.LoadPaths()
	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "init":
		err = runInit(paths, args)
	case "kvs-get":
		err = runKVSGet(paths, args)
	case "kvs-set":
		err = runKVSSet(paths, args)
	case "mqtt-pub-meta":
		err = runMQTTPubMeta(paths, args)
	case "mqtt-sub-cfg-cmd":
		err = runMQTTSubCfgCmd(paths, args)
	case "read-sma-hycon-csv":
		err = runReadSMAHyconCSV(paths, args)
	case "start-readings":
		err = runStartReadings(paths, args)
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "ae-agent: unrecognized subcommand %q\n", sub)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", sub, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: ae-agent <subcommand> [args]

subcommands:
  init                      activate this node against the cloud and store its credentials
  kvs-get <key>              print a key-value store entry
  kvs-set <key> <value>      set a key-value store entry (parsed as JSON if valid)
  mqtt-pub-meta              publish node metadata (arch, boot time, ...) once
  mqtt-sub-cfg-cmd           subscribe to config/command topics, applying updates
  read-sma-hycon-csv         fetch SMA HyCon CSV exports for configured devices (stub)
  start-readings [--once]    run the reading/publish cycle`)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
