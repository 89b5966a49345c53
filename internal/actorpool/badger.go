// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package actorpool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// actorKeyPrefix namespaces pool entries inside the BadgerDB keyspace.
const actorKeyPrefix = "actor:"

// BadgerStore implements Store on BadgerDB for durable storage across
// restarts. Append runs in a single update transaction, so the
// de-duplicating append is atomic.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (or creates) a BadgerDB-backed pool at the given path.
// An empty path opens an in-memory database, which tests use.
func Open(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is noisy; zerolog covers us
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open actor pool at %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an existing BadgerDB handle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Load implements Store.
func (s *BadgerStore) Load(_ context.Context) (map[string]struct{}, error) {
	out := make(map[string]struct{})

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(actorKeyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			out[strings.TrimPrefix(key, actorKeyPrefix)] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load actor pool: %w", err)
	}
	return out, nil
}

// Append implements Store.
func (s *BadgerStore) Append(_ context.Context, actorIDs []string) (int, error) {
	added := 0
	now := time.Now().UTC()

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range actorIDs {
			if id == "" {
				continue
			}
			key := []byte(actorKeyPrefix + id)

			_, err := txn.Get(key)
			if err == nil {
				continue // already present
			}
			if err != badger.ErrKeyNotFound {
				return fmt.Errorf("check actor %q: %w", id, err)
			}

			data, err := json.Marshal(Member{ActorID: id, DiscoveredAt: now})
			if err != nil {
				return fmt.Errorf("marshal member %q: %w", id, err)
			}
			if err := txn.Set(key, data); err != nil {
				return fmt.Errorf("set actor %q: %w", id, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("append to actor pool: %w", err)
	}
	return added, nil
}
