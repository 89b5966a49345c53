// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ampwatch/ampwatch/internal/logging"
)

// NewStrategy constructs the configured matching strategy. The searcher may
// be nil; strategies that use external content search then operate on the
// batch's local events only.
func NewStrategy(t StrategyType, cfg Config, searcher Searcher) (GroupStrategy, error) {
	switch t {
	case StrategyExactURL:
		return NewExactURLStrategy(cfg), nil
	case StrategyFuzzyText:
		return NewFuzzyTextStrategy(cfg, searcher), nil
	case StrategyExactOCR:
		return NewExactOCRStrategy(cfg, searcher), nil
	default:
		return nil, fmt.Errorf("unknown strategy: %q", t)
	}
}

// qualifies reports whether a key's event set can form a content group:
// at least two events from at least minActors distinct actors.
func qualifies(events []Event, minActors int) bool {
	if len(events) < 2 {
		return false
	}
	actors := make(map[string]struct{}, len(events))
	for i := range events {
		actors[events[i].ActorID] = struct{}{}
	}
	return len(actors) >= minActors
}

// buildGroups converts a key→events index into qualifying content groups,
// sorted by key for deterministic downstream processing.
func buildGroups(byKey map[string][]Event, minActors int) []ContentGroup {
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	groups := make([]ContentGroup, 0, len(keys))
	for _, k := range keys {
		if !qualifies(byKey[k], minActors) {
			continue
		}
		groups = append(groups, ContentGroup{Key: k, Events: byKey[k]})
	}
	return groups
}

// eventIdentity builds a deduplication key for an event. Search results may
// overlap the local batch; the same share must not be counted twice.
func eventIdentity(ev Event) string {
	return ev.ActorID + "\x00" + ev.PostRef + "\x00" + ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000")
}

// expandWithSearch issues one content-search lookup per key with bounded
// concurrency and merges the results into byKey, deduplicating against the
// local events. It returns only after every lookup has completed or been
// abandoned; this is the pipeline's synchronization barrier before graph
// construction.
//
// Failures are isolated per key: a failed lookup is logged and the key keeps
// its locally available events. Context cancellation (cycle budget exceeded)
// abandons remaining lookups the same way.
func expandWithSearch(ctx context.Context, searcher Searcher, byKey map[string][]Event, concurrency int) {
	if searcher == nil || len(byKey) == 0 {
		return
	}
	if concurrency < 1 {
		concurrency = 1
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
	)

	for _, key := range keys {
		select {
		case <-ctx.Done():
			logger := logging.LoggerFromContext(ctx)
			logger.Warn().
				Err(ctx.Err()).
				Int("remaining", len(byKey)).
				Msg("cycle budget exhausted, abandoning remaining content-search lookups")
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()

			found, err := searcher.Search(ctx, key)
			if err != nil {
				logger := logging.LoggerFromContext(ctx)
				logger.Warn().
					Err(err).
					Str("content_key", truncateKey(key)).
					Msg("content-search lookup failed, continuing with local events")
				return
			}
			if len(found) == 0 {
				return
			}

			mu.Lock()
			defer mu.Unlock()

			seen := make(map[string]struct{}, len(byKey[key]))
			for _, ev := range byKey[key] {
				seen[eventIdentity(ev)] = struct{}{}
			}
			for _, ev := range found {
				if ev.ActorID == "" {
					continue
				}
				id := eventIdentity(ev)
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				ev.ContentKey = key
				byKey[key] = append(byKey[key], ev)
			}
		}(key)
	}

	wg.Wait()
}

// truncateKey shortens long content keys for log output.
func truncateKey(key string) string {
	const maxLen = 80
	if len(key) <= maxLen {
		return key
	}
	return key[:maxLen] + "…"
}
