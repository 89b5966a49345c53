// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package graph

import "math/rand"

// Louvain partitions the graph into communities by modularity optimization
// (the Louvain method: local moving followed by graph aggregation, repeated
// until modularity stops improving).
//
// DETERMINISM: the node visiting order is shuffled with a rand.Source
// seeded by the caller, and modularity ties are broken toward the lowest
// community index, so identical input and seed always produce identical
// membership. Labels are compacted in sorted-node order; the numbers
// themselves carry no meaning.
//
// Every node receives a label; an empty graph yields an empty map.
func (g *Projected) Louvain(seed int64) map[string]int {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return map[string]int{}
	}

	index := make(map[string]int, len(nodes))
	for i, id := range nodes {
		index[id] = i
	}

	lg := &louvainGraph{
		adj:   make([]map[int]float64, len(nodes)),
		loops: make([]float64, len(nodes)),
	}
	for i, id := range nodes {
		lg.adj[i] = make(map[int]float64, len(g.adj[id]))
		for nbr, w := range g.adj[id] {
			lg.adj[i][index[nbr]] = float64(w)
		}
	}

	rng := rand.New(rand.NewSource(seed))

	// membership[i] is node i's community in the original graph.
	membership := make([]int, len(nodes))
	for i := range membership {
		membership[i] = i
	}

	for {
		assignment, improved := lg.localMove(rng)
		if !improved {
			break
		}

		compact := compactLabels(assignment)
		for i := range membership {
			membership[i] = compact[membership[i]]
		}

		next := lg.aggregate(compact)
		if next.size() == lg.size() {
			break
		}
		lg = next
	}

	// Compact final labels in sorted-node order for stable output.
	final := compactLabels(membership)
	result := make(map[string]int, len(nodes))
	for i, id := range nodes {
		result[id] = final[i]
	}
	return result
}

// louvainGraph is the weighted working graph of one aggregation level.
// loops holds aggregated intra-community weight as self-loops.
type louvainGraph struct {
	adj   []map[int]float64
	loops []float64
}

func (lg *louvainGraph) size() int { return len(lg.adj) }

// degree returns the weighted degree of node i. Self-loops count twice,
// matching the standard modularity convention.
func (lg *louvainGraph) degree(i int) float64 {
	var k float64
	for _, w := range lg.adj[i] {
		k += w
	}
	return k + 2*lg.loops[i]
}

// localMove runs modularity-greedy node moving until no node improves.
// It returns each node's community and whether any move happened.
func (lg *louvainGraph) localMove(rng *rand.Rand) ([]int, bool) {
	n := lg.size()
	comm := make([]int, n)
	commTotal := make([]float64, n) // sum of degrees per community
	degrees := make([]float64, n)

	var m2 float64 // total degree = 2 × total edge weight
	for i := 0; i < n; i++ {
		comm[i] = i
		degrees[i] = lg.degree(i)
		commTotal[i] = degrees[i]
		m2 += degrees[i]
	}
	if m2 == 0 {
		return comm, false
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	improved := false
	for pass := 0; ; pass++ {
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })

		moved := 0
		for _, node := range order {
			current := comm[node]

			// Weight from node into each neighboring community.
			weightTo := map[int]float64{current: 0}
			for nbr, w := range lg.adj[node] {
				weightTo[comm[nbr]] += w
			}

			// Remove node from its community while evaluating.
			commTotal[current] -= degrees[node]

			best := current
			bestGain := weightTo[current] - commTotal[current]*degrees[node]/m2
			for c, w := range weightTo {
				if c == current {
					continue
				}
				gain := w - commTotal[c]*degrees[node]/m2
				if gain > bestGain || (gain == bestGain && c < best) {
					best = c
					bestGain = gain
				}
			}

			commTotal[best] += degrees[node]
			if best != current {
				comm[node] = best
				moved++
				improved = true
			}
		}

		if moved == 0 {
			break
		}
	}

	return comm, improved
}

// aggregate collapses communities into single nodes. compact maps each node
// to its community label in [0, communities).
func (lg *louvainGraph) aggregate(compact []int) *louvainGraph {
	count := 0
	for _, c := range compact {
		if c+1 > count {
			count = c + 1
		}
	}

	next := &louvainGraph{
		adj:   make([]map[int]float64, count),
		loops: make([]float64, count),
	}
	for i := range next.adj {
		next.adj[i] = make(map[int]float64)
	}

	for i, ci := range compact {
		next.loops[ci] += lg.loops[i]
		for j, w := range lg.adj[i] {
			cj := compact[j]
			if ci == cj {
				// Each undirected intra-community edge appears twice in adj;
				// halving keeps the loop weight equal to the internal weight.
				next.loops[ci] += w / 2
				continue
			}
			next.adj[ci][cj] += w
		}
	}

	return next
}

// compactLabels renumbers arbitrary labels to 0..k−1 in first-seen order.
func compactLabels(labels []int) []int {
	mapping := make(map[int]int)
	out := make([]int, len(labels))
	for i, l := range labels {
		c, ok := mapping[l]
		if !ok {
			c = len(mapping)
			mapping[l] = c
		}
		out[i] = c
	}
	return out
}
