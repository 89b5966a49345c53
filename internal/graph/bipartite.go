// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

// Package graph implements the actor-graph machinery shared by all content
// matching strategies: the actor↔content bipartite graph, its weighted
// actor-actor projection, percentile edge filtering, connected-components
// labeling, and seeded modularity community detection.
//
// All structures are per-cycle and single-threaded; no cross-cycle state.
package graph

import "sort"

// Bipartite is an actor ↔ content-instance graph. An edge connects an actor
// to a content instance when the actor has at least one event inside a
// qualifying coordination window of that content group. Repeated windows of
// the same group by the same actor collapse to one edge.
type Bipartite struct {
	actorContent map[string]map[string]struct{}
	contentActor map[string]map[string]struct{}
	edges        int
}

// NewBipartite creates an empty bipartite graph.
func NewBipartite() *Bipartite {
	return &Bipartite{
		actorContent: make(map[string]map[string]struct{}),
		contentActor: make(map[string]map[string]struct{}),
	}
}

// AddEdge connects an actor to a content instance. Duplicate (actor,
// content) pairs are ignored.
func (b *Bipartite) AddEdge(actorID, contentKey string) {
	if actorID == "" || contentKey == "" {
		return
	}
	if _, ok := b.actorContent[actorID]; !ok {
		b.actorContent[actorID] = make(map[string]struct{})
	}
	if _, dup := b.actorContent[actorID][contentKey]; dup {
		return
	}
	b.actorContent[actorID][contentKey] = struct{}{}

	if _, ok := b.contentActor[contentKey]; !ok {
		b.contentActor[contentKey] = make(map[string]struct{})
	}
	b.contentActor[contentKey][actorID] = struct{}{}
	b.edges++
}

// ActorCount returns the number of actor nodes.
func (b *Bipartite) ActorCount() int { return len(b.actorContent) }

// ContentCount returns the number of content-instance nodes.
func (b *Bipartite) ContentCount() int { return len(b.contentActor) }

// EdgeCount returns the number of distinct actor↔content edges.
func (b *Bipartite) EdgeCount() int { return b.edges }

// Project builds the weighted actor-actor graph: actors are connected when
// they share at least one content-instance neighbor, with edge weight equal
// to the number of distinct content instances they co-share.
//
// The loop is over content nodes and pairs of their actor neighbors, so the
// cost is proportional to the number of bipartite edges times the average
// content-node degree rather than O(actors²). Self-loops cannot arise: the
// pair loop only visits distinct neighbors.
func (b *Bipartite) Project() *Projected {
	p := NewProjected()

	for _, actors := range b.contentActor {
		if len(actors) < 2 {
			continue
		}
		// Deterministic pair order.
		ids := make([]string, 0, len(actors))
		for id := range actors {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				p.AddWeight(ids[i], ids[j], 1)
			}
		}
	}

	return p
}
