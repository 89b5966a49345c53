// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package graph

import "sort"

// Edge is one weighted undirected actor-actor edge with A < B.
type Edge struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}

// Projected is a weighted undirected actor-actor graph. Edge weights are
// always positive integers; self-loops are rejected at insertion.
type Projected struct {
	adj   map[string]map[string]int
	edges int
}

// NewProjected creates an empty projected graph.
func NewProjected() *Projected {
	return &Projected{adj: make(map[string]map[string]int)}
}

// AddWeight adds w to the weight of edge a–b, creating it if absent.
// Self-loops and non-positive increments are ignored.
func (g *Projected) AddWeight(a, b string, w int) {
	if a == b || w <= 0 || a == "" || b == "" {
		return
	}
	if _, exists := g.adj[a][b]; !exists {
		g.edges++
	}
	g.addDirected(a, b, w)
	g.addDirected(b, a, w)
}

func (g *Projected) addDirected(from, to string, w int) {
	if _, ok := g.adj[from]; !ok {
		g.adj[from] = make(map[string]int)
	}
	g.adj[from][to] += w
}

// Weight returns the weight of edge a–b, or 0 when absent.
func (g *Projected) Weight(a, b string) int {
	return g.adj[a][b]
}

// NodeCount returns the number of actor nodes.
func (g *Projected) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of undirected edges.
func (g *Projected) EdgeCount() int { return g.edges }

// Nodes returns all actor IDs in sorted order.
func (g *Projected) Nodes() []string {
	nodes := make([]string, 0, len(g.adj))
	for id := range g.adj {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

// Neighbors returns a node's neighbors in sorted order.
func (g *Projected) Neighbors(id string) []string {
	nbrs := make([]string, 0, len(g.adj[id]))
	for n := range g.adj[id] {
		nbrs = append(nbrs, n)
	}
	sort.Strings(nbrs)
	return nbrs
}

// Degree returns the number of neighbors of a node.
func (g *Projected) Degree(id string) int {
	return len(g.adj[id])
}

// Strength returns the sum of incident edge weights of a node.
func (g *Projected) Strength(id string) int {
	var sum int
	for _, w := range g.adj[id] {
		sum += w
	}
	return sum
}

// Edges returns every undirected edge exactly once (A < B), sorted by
// (A, B) for deterministic iteration.
func (g *Projected) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for a, nbrs := range g.adj {
		for b, w := range nbrs {
			if a < b {
				edges = append(edges, Edge{A: a, B: b, Weight: w})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}
