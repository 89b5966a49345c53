// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package actorpool persists the set of actors discovered across monitoring
// cycles. The engine reads the pool at cycle start and appends newly flagged
// actors at cycle end; cycles run sequentially, so there is no
// read-modify-write race, but Append is still atomic within one store
// transaction.
package actorpool

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Member is one discovered actor with its discovery metadata.
type Member struct {
	ActorID      string    `json:"actor_id"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Store is the discovered-actor pool contract.
type Store interface {
	// Load returns all known actor IDs.
	Load(ctx context.Context) (map[string]struct{}, error)

	// Append adds the given actor IDs, de-duplicating against existing
	// contents atomically. It returns the number of newly added actors.
	Append(ctx context.Context, actorIDs []string) (int, error)
}

// MemoryStore is an in-memory Store for tests and ephemeral deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[string]Member
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{members: make(map[string]Member)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]struct{}, len(s.members))
	for id := range s.members {
		out[id] = struct{}{}
	}
	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, actorIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	now := time.Now().UTC()
	for _, id := range actorIDs {
		if id == "" {
			continue
		}
		if _, exists := s.members[id]; exists {
			continue
		}
		s.members[id] = Member{ActorID: id, DiscoveredAt: now}
		added++
	}
	return added, nil
}

// Members returns all members sorted by actor ID, for inspection in tests.
func (s *MemoryStore) Members() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActorID < out[j].ActorID })
	return out
}
