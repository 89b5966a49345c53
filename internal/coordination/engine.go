// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ampwatch/ampwatch/internal/graph"
	"github.com/ampwatch/ampwatch/internal/logging"
)

// Engine runs the coordination-detection pipeline. It is safe for a single
// caller; cycles are assumed to run sequentially, never overlapping, and the
// engine keeps no state between cycles.
type Engine struct {
	cfg      Config
	strategy GroupStrategy
}

// NewEngine creates an engine with the given configuration and strategy.
func NewEngine(cfg Config, strategy GroupStrategy) (*Engine, error) {
	if strategy == nil {
		return nil, fmt.Errorf("coordination: strategy is required")
	}
	if cfg.CoordinationInterval <= 0 {
		return nil, fmt.Errorf("coordination: coordination_interval must be positive, got %s", cfg.CoordinationInterval)
	}
	if cfg.PercentileEdgeWeight <= 0 || cfg.PercentileEdgeWeight >= 1 {
		return nil, fmt.Errorf("coordination: percentile_edge_weight must be in (0,1), got %v", cfg.PercentileEdgeWeight)
	}
	if cfg.MinDistinctActors < 2 {
		cfg.MinDistinctActors = 2
	}
	return &Engine{cfg: cfg, strategy: strategy}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Strategy returns the active matching strategy.
func (e *Engine) Strategy() GroupStrategy {
	return e.strategy
}

// RunCycle executes one full detection cycle over the given batch:
//
//	Group → Window → Build → Project → Filter → Cluster → Emit
//
// An empty batch produces an empty result, not an error. The context
// carries the cycle's wall-clock budget: once it expires, any in-flight
// content-search lookups are abandoned and the pipeline proceeds with the
// groups already resolved. Graph construction never starts before grouping
// (including all external lookups) has fully completed.
func (e *Engine) RunCycle(ctx context.Context, events []Event) (*Result, error) {
	cycleID := logging.CycleIDFromContext(ctx)
	if cycleID == "" {
		cycleID = uuid.New().String()
		ctx = logging.ContextWithCycleID(ctx, cycleID)
	}
	logger := logging.LoggerFromContext(ctx)

	result := &Result{
		CycleID:     cycleID,
		Strategy:    e.strategy.Type(),
		GeneratedAt: time.Now().UTC(),
		BatchSize:   len(events),
		Actors:      []ActorStat{},
	}
	if len(events) == 0 {
		logger.Debug().Msg("empty batch, emitting empty result")
		return result, nil
	}

	groups, err := e.strategy.Group(ctx, events)
	if err != nil {
		return nil, fmt.Errorf("grouping failed: %w", err)
	}
	result.GroupCount = len(groups)
	if len(groups) == 0 {
		return result, nil
	}

	// Synchronization barrier reached: Group has returned, every external
	// lookup is complete or abandoned. Build the bipartite graph from
	// qualifying windows.
	bipartite := graph.NewBipartite()
	for i := range groups {
		windows := BuildWindows(groups[i], e.cfg.CoordinationInterval, e.cfg.MinDistinctActors)
		result.WindowCount += len(windows)
		for _, w := range windows {
			for j := range w.Events {
				bipartite.AddEdge(w.Events[j].ActorID, w.GroupKey)
			}
		}
	}

	projected := bipartite.Project()
	filtered := projected.FilterByPercentile(e.cfg.PercentileEdgeWeight)

	logger.Debug().
		Int("groups", result.GroupCount).
		Int("windows", result.WindowCount).
		Int("bipartite_edges", bipartite.EdgeCount()).
		Int("projected_edges", projected.EdgeCount()).
		Int("filtered_edges", filtered.EdgeCount()).
		Msg("graph stages complete")

	if filtered.EdgeCount() == 0 {
		return result, nil
	}

	components := filtered.Components()
	clusters := filtered.Louvain(e.cfg.ClusterSeed)

	display := displayMetadata(events, groups)
	for _, actorID := range filtered.Nodes() {
		stat := ActorStat{
			ActorID:     actorID,
			ComponentID: components[actorID],
			ClusterID:   clusters[actorID],
			Degree:      filtered.Degree(actorID),
			Strength:    filtered.Strength(actorID),
		}
		if meta, ok := display[actorID]; ok {
			stat.ActorHandle = meta.handle
			stat.ActorName = meta.name
		}
		result.Actors = append(result.Actors, stat)
	}

	logger.Info().
		Int("actors", len(result.Actors)).
		Int("groups", result.GroupCount).
		Str("strategy", string(result.Strategy)).
		Msg("coordinated sharing detected")

	return result, nil
}

type actorDisplay struct {
	handle string
	name   string
}

// displayMetadata picks one handle/name per actor for reporting. Display
// metadata is mutable upstream; the latest observed value wins.
func displayMetadata(events []Event, groups []ContentGroup) map[string]actorDisplay {
	display := make(map[string]actorDisplay)
	record := func(evs []Event) {
		for i := range evs {
			ev := &evs[i]
			if ev.ActorHandle == "" && ev.ActorName == "" {
				continue
			}
			display[ev.ActorID] = actorDisplay{handle: ev.ActorHandle, name: ev.ActorName}
		}
	}
	record(events)
	for i := range groups {
		record(groups[i].Events)
	}
	return display
}
