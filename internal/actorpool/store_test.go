// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package actorpool

import (
	"context"
	"testing"
)

// storeUnderTest lets the same behavioral suite run against every Store
// implementation.
func storeImplementations(t *testing.T) map[string]Store {
	t.Helper()

	badgerStore, err := Open("")
	if err != nil {
		t.Fatalf("Open(in-memory) error = %v", err)
	}
	t.Cleanup(func() {
		if err := badgerStore.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	return map[string]Store{
		"memory": NewMemoryStore(),
		"badger": badgerStore,
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			pool, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(pool) != 0 {
				t.Errorf("fresh store has %d members, want 0", len(pool))
			}
		})
	}
}

func TestStoreAppendAndLoad(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			added, err := store.Append(ctx, []string{"actor1", "actor2", "actor3"})
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if added != 3 {
				t.Errorf("Append() added = %d, want 3", added)
			}

			pool, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			for _, id := range []string{"actor1", "actor2", "actor3"} {
				if _, ok := pool[id]; !ok {
					t.Errorf("pool missing %q", id)
				}
			}
			if len(pool) != 3 {
				t.Errorf("pool size = %d, want 3", len(pool))
			}
		})
	}
}

func TestStoreAppendDeduplicates(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := store.Append(ctx, []string{"actor1", "actor2"}); err != nil {
				t.Fatalf("Append() error = %v", err)
			}

			// Second cycle re-flags actor2 and discovers actor3.
			added, err := store.Append(ctx, []string{"actor2", "actor3", "actor2"})
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if added != 1 {
				t.Errorf("Append() added = %d, want 1: only actor3 is new", added)
			}

			pool, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(pool) != 3 {
				t.Errorf("pool size = %d, want 3", len(pool))
			}
		})
	}
}

func TestStoreAppendSkipsEmptyIDs(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			added, err := store.Append(ctx, []string{"", "actor1", ""})
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if added != 1 {
				t.Errorf("Append() added = %d, want 1", added)
			}

			pool, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if _, ok := pool[""]; ok {
				t.Error("empty actor ID must never enter the pool")
			}
		})
	}
}

func TestStoreAppendNil(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			added, err := store.Append(context.Background(), nil)
			if err != nil {
				t.Fatalf("Append(nil) error = %v", err)
			}
			if added != 0 {
				t.Errorf("Append(nil) added = %d, want 0", added)
			}
		})
	}
}

func TestMemoryStoreMembersSorted(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Append(context.Background(), []string{"zeta", "alpha", "mid"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	members := store.Members()
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	for i := 1; i < len(members); i++ {
		if members[i-1].ActorID >= members[i].ActorID {
			t.Errorf("Members() not sorted: %+v", members)
		}
	}
	for _, m := range members {
		if m.DiscoveredAt.IsZero() {
			t.Errorf("member %q has zero DiscoveredAt", m.ActorID)
		}
	}
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", dir, err)
	}
	if _, err := store.Append(context.Background(), []string{"actor1", "actor2"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	pool, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(pool) != 2 {
		t.Errorf("pool size after reopen = %d, want 2", len(pool))
	}
}
