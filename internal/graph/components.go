// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package graph

// Components labels every node with its connected component. Component IDs
// are assigned in first-seen order over the sorted node list, so labeling
// is deterministic for a given graph.
func (g *Projected) Components() map[string]int {
	labels := make(map[string]int, len(g.adj))
	next := 0

	for _, start := range g.Nodes() {
		if _, visited := labels[start]; visited {
			continue
		}
		// Iterative BFS; recursion depth is unbounded on long chains.
		queue := []string{start}
		labels[start] = next
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			for _, nbr := range g.Neighbors(node) {
				if _, visited := labels[nbr]; !visited {
					labels[nbr] = next
					queue = append(queue, nbr)
				}
			}
		}
		next++
	}

	return labels
}
