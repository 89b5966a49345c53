// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package graph

import "sort"

// PercentileThreshold computes the edge-weight value at percentile p using
// the inclusive quantile with linear interpolation between closest ranks:
//
//	rank = p × (n−1); threshold = w[⌊rank⌋] + frac × (w[⌊rank⌋+1] − w[⌊rank⌋])
//
// over the ascending-sorted weight list. This definition is monotonic in p,
// and when every weight is equal the threshold equals that weight, so all
// edges pass. An empty weight list yields 0.
func PercentileThreshold(weights []int, p float64) float64 {
	if len(weights) == 0 {
		return 0
	}
	if p <= 0 {
		p = 0
	}
	if p >= 1 {
		p = 1
	}

	sorted := make([]int, len(weights))
	copy(sorted, weights)
	sort.Ints(sorted)

	rank := p * float64(len(sorted)-1)
	lower := int(rank)
	frac := rank - float64(lower)
	if lower >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	return float64(sorted[lower]) + frac*float64(sorted[lower+1]-sorted[lower])
}

// FilterByPercentile returns a new graph retaining only edges whose weight
// is at or above the percentile threshold, then drops nodes left with
// degree 0. A graph with zero edges filters to an empty graph; a graph
// where every weight is equal passes unchanged. Neither is an error.
func (g *Projected) FilterByPercentile(p float64) *Projected {
	filtered := NewProjected()
	if g.edges == 0 {
		return filtered
	}

	edges := g.Edges()
	weights := make([]int, len(edges))
	for i, e := range edges {
		weights[i] = e.Weight
	}
	threshold := PercentileThreshold(weights, p)

	for _, e := range edges {
		if float64(e.Weight) >= threshold {
			filtered.AddWeight(e.A, e.B, e.Weight)
		}
	}
	// Isolated nodes never enter: AddWeight only creates nodes with an edge.
	return filtered
}
