// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/ammp-edge/ae-agent/internal/runtimeEnv"
)

// runKVSGet prints the value stored under key. If the stored value is
// a bare JSON string, the quotes are stripped so scripts can consume
// the output directly; any other JSON value is printed as-is.
func runKVSGet(paths runtimeEnv.Paths, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: kvs-get <key>")
	}

	store, err := openStore(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	var raw json.RawMessage
	found, err := store.Get(args[0], &raw)
	if err != nil {
		return fmt.Errorf("reading key %q: %w", args[0], err)
	}
	if !found {
		return fmt.Errorf("no value set for key %q", args[0])
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		fmt.Print(s)
		return nil
	}
	fmt.Print(string(raw))
	return nil
}

// runKVSSet stores value under key. If value parses as JSON it is
// stored as-is; otherwise it is stored as a JSON string.
func runKVSSet(paths runtimeEnv.Paths, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: kvs-set <key> <value>")
	}
	key, value := args[0], args[1]

	store, err := openStore(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	var probe interface{}
	if err := json.Unmarshal([]byte(value), &probe); err == nil {
		return store.Set(key, json.RawMessage(value))
	}
	return store.Set(key, value)
}
