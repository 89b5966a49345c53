// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package coordination implements the coordinated-sharing detection engine.
//
// Given a finite batch of "actor shared content X at time T" events, the
// engine decides which actors are sharing in a temporally and semantically
// synchronized way and groups them into coordinated clusters. The pipeline
// is one-shot per monitoring cycle:
//
//	Collect → Group → Window → Build → Project → Filter → Cluster → Emit
//
// There is no cross-cycle mutable graph state; each run operates on the
// current batch only. Three interchangeable content-matching strategies
// (identical URL, fuzzy-similar text, identical extracted image text) feed
// the same graph-construction-and-filtering machinery.
package coordination

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrInsufficientInput indicates the event supplier failed to deliver any
// batch for the cycle. This is the only fatal input condition; an empty but
// successfully delivered batch simply yields an empty result.
var ErrInsufficientInput = errors.New("coordination: event supplier delivered no batch")

// Event is one observed share. Events are immutable once ingested; the
// engine owns no persistent copy and is handed a finite collection per cycle.
type Event struct {
	// ActorID is the stable platform identifier of the sharing account.
	ActorID string `json:"actor_id"`

	// ActorHandle and ActorName are mutable display metadata, carried only
	// for downstream reporting.
	ActorHandle string `json:"actor_handle,omitempty"`
	ActorName   string `json:"actor_name,omitempty"`

	// ContentKey is the raw shared content: a URL for the link strategy, a
	// message body for the text strategy, extracted image text for OCR.
	ContentKey string `json:"content_key"`

	// Timestamp is the instant the share was observed.
	Timestamp time.Time `json:"timestamp"`

	// PostRef is an opaque post reference for downstream reporting.
	PostRef string `json:"post_ref,omitempty"`
}

// ContentGroup is the set of events whose content keys are judged equivalent
// by the active matching strategy. Groups with fewer than two distinct
// contributing actors are discarded by the strategies: single-actor shares
// cannot be coordinated.
type ContentGroup struct {
	// Key is the canonical content key representing the group.
	Key string `json:"key"`

	// Events are the member events, in no particular order.
	Events []Event `json:"events"`
}

// DistinctActors returns the number of distinct actor IDs in the group.
func (g *ContentGroup) DistinctActors() int {
	seen := make(map[string]struct{}, len(g.Events))
	for i := range g.Events {
		seen[g.Events[i].ActorID] = struct{}{}
	}
	return len(seen)
}

// CoordinationWindow is a fixed-width time bin of one ContentGroup's events
// containing shares from at least two distinct actors.
type CoordinationWindow struct {
	// GroupKey is the canonical key of the owning ContentGroup.
	GroupKey string `json:"group_key"`

	// Start is the inclusive bin start; End is the exclusive bin end.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Events are the bin's member events sorted by timestamp.
	Events []Event `json:"events"`
}

// StrategyType identifies a content-matching strategy. The set is closed:
// the graph machinery is strategy-agnostic and strategies are selected once
// at configuration time.
type StrategyType string

const (
	// StrategyExactURL groups posts sharing the same canonicalized link (CLSB).
	StrategyExactURL StrategyType = "links"

	// StrategyFuzzyText groups posts with near-identical message bodies (CMSB).
	StrategyFuzzyText StrategyType = "text"

	// StrategyExactOCR groups posts with identical extracted image text (CITSB).
	StrategyExactOCR StrategyType = "ocr"
)

// GroupStrategy maps a raw event batch to content groups.
//
// Contract: returned groups have at least MinDistinctActors contributing
// actors and at least two events. Events with empty content keys are
// excluded. A strategy that performs external content-search lookups must
// not return before every lookup has completed or been abandoned: graph
// construction starts immediately after Group returns, and partially
// resolved groups would under-count edge weights non-deterministically.
type GroupStrategy interface {
	// Type returns the strategy identifier.
	Type() StrategyType

	// Group partitions the batch into content groups. Lookup failures for
	// individual content keys are isolated: the key is processed with only
	// its locally available events (or dropped), never aborting the batch.
	Group(ctx context.Context, events []Event) ([]ContentGroup, error)
}

// Searcher finds additional events matching a content key beyond the
// initially observed batch. Used by the fuzzy-text and exact-OCR strategies
// only. A failure is treated as "no additional events found".
type Searcher interface {
	Search(ctx context.Context, contentKey string) ([]Event, error)
}

// EventSupplier provides the finite batch of events for one cycle's
// [since, until) window. How the batch was retrieved (API pagination, rate
// limits) is the supplier's concern; the engine only requires actor IDs,
// content, timestamps and an opaque post reference.
type EventSupplier interface {
	FetchBatch(ctx context.Context, since, until time.Time) ([]Event, error)
}

// ActorStat is the per-surviving-actor record of a cycle, computed strictly
// on the filtered actor graph. Every reported actor has filtered degree ≥ 1.
type ActorStat struct {
	ActorID     string `json:"actor_id"`
	ActorHandle string `json:"actor_handle,omitempty"`
	ActorName   string `json:"actor_name,omitempty"`

	// ComponentID labels the connected component after filtering.
	ComponentID int `json:"component_id"`

	// ClusterID is the community sub-label within the component. Labels are
	// arbitrary but reproducible for a fixed seed.
	ClusterID int `json:"cluster_id"`

	// Degree is the number of filtered-graph neighbors.
	Degree int `json:"degree"`

	// Strength is the sum of incident filtered-graph edge weights.
	Strength int `json:"strength"`
}

// Result is the outcome of one detection cycle.
type Result struct {
	CycleID     string       `json:"cycle_id"`
	Strategy    StrategyType `json:"strategy"`
	GeneratedAt time.Time    `json:"generated_at"`

	// Pipeline stage counts, for reporting and metrics.
	BatchSize   int `json:"batch_size"`
	GroupCount  int `json:"group_count"`
	WindowCount int `json:"window_count"`

	// Actors are the surviving actors sorted by actor ID.
	Actors []ActorStat `json:"actors"`
}

// ActorIDs returns the distinct surviving actor IDs in sorted order.
func (r *Result) ActorIDs() []string {
	ids := make([]string, 0, len(r.Actors))
	for i := range r.Actors {
		ids = append(ids, r.Actors[i].ActorID)
	}
	sort.Strings(ids)
	return ids
}

// Config holds the engine's tunables.
type Config struct {
	// CoordinationInterval is the width of the temporal bins. Shares of the
	// same content within one bin are considered potentially synchronized.
	CoordinationInterval time.Duration `json:"coordination_interval"`

	// PercentileEdgeWeight in (0,1) selects the edge-weight percentile below
	// which projected edges are discarded as coincidental overlap.
	PercentileEdgeWeight float64 `json:"percentile_edge_weight"`

	// SimilarityThreshold in (0,1) is the minimum cosine similarity for the
	// fuzzy-text strategy to judge two messages equivalent.
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// MinDistinctActors is the minimum number of distinct contributing
	// actors for a content group or window to qualify.
	MinDistinctActors int `json:"min_distinct_actors"`

	// ClusterSeed seeds community detection so membership is reproducible.
	ClusterSeed int64 `json:"cluster_seed"`

	// SearchConcurrency bounds concurrent content-search lookups.
	SearchConcurrency int `json:"search_concurrency"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		CoordinationInterval: 60 * time.Second,
		PercentileEdgeWeight: 0.95,
		SimilarityThreshold:  0.7,
		MinDistinctActors:    2,
		ClusterSeed:          1,
		SearchConcurrency:    4,
	}
}

// sortEventsByTime orders events by timestamp, breaking ties by actor ID and
// then post reference so downstream stages see a deterministic order.
func sortEventsByTime(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if events[i].ActorID != events[j].ActorID {
			return events[i].ActorID < events[j].ActorID
		}
		return events[i].PostRef < events[j].PostRef
	})
}
