// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kvstore provides a durable, SQLite-backed key/value store used
// both as the agent's persistent config/state store and as an ephemeral
// sample cache. Keys are strings, values are arbitrary JSON-marshalable
// data stored as BLOBs.
package kvstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ammp-edge/ae-agent/internal/log"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"
)

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &queryHooks{}))
	})
}

// Store is a single SQLite-backed kvstore table. A process typically
// opens two: a durable store (config, last-known state) and a volatile
// cache (recent readings), each at its own path.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

// Open creates (if necessary) and opens the kvstore database at path.
// ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	registerDriver()

	db, err := sqlx.Open("sqlite3WithHooks", path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: opening %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: setting journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = FULL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: setting synchronous: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kvstore (
			key   TEXT PRIMARY KEY NOT NULL,
			value BLOB NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: creating table: %w", err)
	}

	log.Debugf("kvstore: opened %s", path)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Set JSON-encodes value and upserts it under key.
func (s *Store) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: marshaling value for %q: %w", key, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO kvstore (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;
	`, key, data)
	if err != nil {
		return fmt.Errorf("kvstore: setting %q: %w", key, err)
	}
	return nil
}

// SetMany upserts every entry in kv inside a single transaction.
func (s *Store) SetMany(kv map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("kvstore: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range kv {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("kvstore: marshaling value for %q: %w", key, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO kvstore (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value;
		`, key, data); err != nil {
			return fmt.Errorf("kvstore: setting %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kvstore: committing transaction: %w", err)
	}
	return nil
}

// Get unmarshals the value stored under key into out. It reports
// whether the key was present.
func (s *Store) Get(key string, out interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	err := s.db.Get(&data, `SELECT value FROM kvstore WHERE key = ?;`, key)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kvstore: getting %q: %w", key, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("kvstore: unmarshaling %q: %w", key, err)
	}
	return true, nil
}

// Delete removes key, if present.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kvstore WHERE key = ?;`, key); err != nil {
		return fmt.Errorf("kvstore: deleting %q: %w", key, err)
	}
	return nil
}

// Keys returns every key currently stored whose name has prefix.
// An empty prefix returns all keys.
func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	err := s.db.Select(&keys, `SELECT key FROM kvstore WHERE key LIKE ? ORDER BY key;`, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("kvstore: listing keys: %w", err)
	}
	return keys, nil
}
