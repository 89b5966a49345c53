// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package report shapes cycle results for consumers: the HTTP API, webhook
// notifications and structured logs all share the CycleReport form.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/ampwatch/ampwatch/internal/coordination"
)

// ClusterSummary aggregates one cluster of coordinated actors.
type ClusterSummary struct {
	ClusterID   int      `json:"cluster_id"`
	ComponentID int      `json:"component_id"`
	ActorCount  int      `json:"actor_count"`
	ActorIDs    []string `json:"actor_ids"`
}

// CycleReport is the published outcome of one detection cycle.
type CycleReport struct {
	CycleID      string                    `json:"cycle_id"`
	Strategy     coordination.StrategyType `json:"strategy"`
	GeneratedAt  time.Time                 `json:"generated_at"`
	BatchSize    int                       `json:"batch_size"`
	GroupCount   int                       `json:"group_count"`
	WindowCount  int                       `json:"window_count"`
	ActorCount   int                       `json:"actor_count"`
	ClusterCount int                       `json:"cluster_count"`
	Clusters     []ClusterSummary          `json:"clusters"`
	Actors       []coordination.ActorStat  `json:"actors"`
}

// FromResult converts an engine result into a report, grouping actors into
// cluster summaries. Clusters are ordered by ID; actor IDs within a cluster
// are sorted.
func FromResult(res *coordination.Result) *CycleReport {
	rep := &CycleReport{
		CycleID:     res.CycleID,
		Strategy:    res.Strategy,
		GeneratedAt: res.GeneratedAt,
		BatchSize:   res.BatchSize,
		GroupCount:  res.GroupCount,
		WindowCount: res.WindowCount,
		ActorCount:  len(res.Actors),
		Clusters:    []ClusterSummary{},
		Actors:      res.Actors,
	}
	if rep.Actors == nil {
		rep.Actors = []coordination.ActorStat{}
	}

	byCluster := make(map[int]*ClusterSummary)
	for _, a := range res.Actors {
		sum, ok := byCluster[a.ClusterID]
		if !ok {
			sum = &ClusterSummary{ClusterID: a.ClusterID, ComponentID: a.ComponentID}
			byCluster[a.ClusterID] = sum
		}
		sum.ActorIDs = append(sum.ActorIDs, a.ActorID)
	}

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		sum := byCluster[id]
		sort.Strings(sum.ActorIDs)
		sum.ActorCount = len(sum.ActorIDs)
		rep.Clusters = append(rep.Clusters, *sum)
	}
	rep.ClusterCount = len(rep.Clusters)
	return rep
}

// Notifier delivers cycle reports to an external sink.
type Notifier interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, rep *CycleReport) error
}
