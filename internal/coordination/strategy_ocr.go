// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import (
	"context"
	"strings"
)

// ExactOCRStrategy groups events whose extracted image text is identical.
// Comparison is plain equality after trimming surrounding whitespace; OCR
// output is already normalized by the extraction step upstream.
//
// When a searcher is configured, every distinct extracted text is looked up
// against the external content-search collaborator to find matching posts
// beyond the observed batch.
type ExactOCRStrategy struct {
	minActors   int
	concurrency int
	searcher    Searcher
}

// NewExactOCRStrategy creates the exact-OCR matching strategy.
// searcher may be nil to disable external expansion.
func NewExactOCRStrategy(cfg Config, searcher Searcher) *ExactOCRStrategy {
	minActors := cfg.MinDistinctActors
	if minActors < 2 {
		minActors = 2
	}
	return &ExactOCRStrategy{
		minActors:   minActors,
		concurrency: cfg.SearchConcurrency,
		searcher:    searcher,
	}
}

// Type returns the strategy identifier.
func (s *ExactOCRStrategy) Type() StrategyType {
	return StrategyExactOCR
}

// Group partitions the batch by trimmed extracted text.
func (s *ExactOCRStrategy) Group(ctx context.Context, events []Event) ([]ContentGroup, error) {
	byKey := make(map[string][]Event)
	for _, ev := range events {
		key := strings.TrimSpace(ev.ContentKey)
		if key == "" {
			continue
		}
		ev.ContentKey = key
		byKey[key] = append(byKey[key], ev)
	}
	if len(byKey) == 0 {
		return nil, nil
	}

	expandWithSearch(ctx, s.searcher, byKey, s.concurrency)

	return buildGroups(byKey, s.minActors), nil
}
