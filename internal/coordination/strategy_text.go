// Ampwatch - Coordinated Content Sharing Detection
// Copyright 2026 Ampwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ampwatch/ampwatch

package coordination

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// FuzzyTextStrategy groups events whose message bodies are near-identical.
// Each distinct message (hyperlinks stripped) is turned into a
// term-frequency vector; messages with pairwise cosine similarity at or
// above the configured threshold merge into one content group, so
// paraphrased and lightly edited copies are matched, not just exact
// duplicates.
//
// When a searcher is configured, every distinct message is additionally
// looked up against the external content-search collaborator to find
// matching posts beyond the observed batch. Lookup failures are isolated
// per message.
type FuzzyTextStrategy struct {
	minActors   int
	threshold   float64
	concurrency int
	searcher    Searcher
}

// NewFuzzyTextStrategy creates the fuzzy-text matching strategy.
// searcher may be nil to disable external expansion.
func NewFuzzyTextStrategy(cfg Config, searcher Searcher) *FuzzyTextStrategy {
	minActors := cfg.MinDistinctActors
	if minActors < 2 {
		minActors = 2
	}
	threshold := cfg.SimilarityThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultConfig().SimilarityThreshold
	}
	return &FuzzyTextStrategy{
		minActors:   minActors,
		threshold:   threshold,
		concurrency: cfg.SearchConcurrency,
		searcher:    searcher,
	}
}

// Type returns the strategy identifier.
func (s *FuzzyTextStrategy) Type() StrategyType {
	return StrategyFuzzyText
}

// Group clusters the batch's messages by cosine similarity.
func (s *FuzzyTextStrategy) Group(ctx context.Context, events []Event) ([]ContentGroup, error) {
	// Index events by normalized message text.
	byText := make(map[string][]Event)
	for _, ev := range events {
		text := NormalizeMessage(ev.ContentKey)
		if text == "" {
			continue
		}
		ev.ContentKey = text
		byText[text] = append(byText[text], ev)
	}
	if len(byText) == 0 {
		return nil, nil
	}

	// Expand each distinct message via the external collaborator before any
	// similarity work: graph construction must never see a partially
	// resolved group.
	expandWithSearch(ctx, s.searcher, byText, s.concurrency)

	texts := make([]string, 0, len(byText))
	for t := range byText {
		texts = append(texts, t)
	}
	sort.Strings(texts)

	vectors := make([]termVector, len(texts))
	for i, t := range texts {
		vectors[i] = newTermVector(t)
	}

	// Union messages whose similarity clears the threshold. Pairwise over
	// distinct messages, not raw events, so the quadratic term stays small.
	uf := newUnionFind(len(texts))
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			if vectors[i].cosine(vectors[j]) >= s.threshold {
				uf.union(i, j)
			}
		}
	}

	// Collect merged clusters; the representative key is the lexicographically
	// first member so group keys are deterministic.
	members := make(map[int][]int)
	for i := range texts {
		root := uf.find(i)
		members[root] = append(members[root], i)
	}

	byKey := make(map[string][]Event, len(members))
	for _, idxs := range members {
		key := texts[idxs[0]]
		var merged []Event
		for _, idx := range idxs {
			merged = append(merged, byText[texts[idx]]...)
		}
		byKey[key] = merged
	}

	return buildGroups(byKey, s.minActors), nil
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// NormalizeMessage strips hyperlinks and collapses whitespace so that the
// same message with different embedded links compares equal.
func NormalizeMessage(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// termVector is a term-frequency vector with a precomputed L2 norm.
type termVector struct {
	terms map[string]float64
	norm  float64
}

func newTermVector(text string) termVector {
	terms := make(map[string]float64)
	for _, tok := range tokenize(text) {
		terms[tok]++
	}
	var sum float64
	for _, f := range terms {
		sum += f * f
	}
	return termVector{terms: terms, norm: math.Sqrt(sum)}
}

// cosine returns the cosine similarity of two term vectors in [0,1].
func (v termVector) cosine(other termVector) float64 {
	if v.norm == 0 || other.norm == 0 {
		return 0
	}
	// Iterate the smaller vector.
	a, b := v, other
	if len(b.terms) < len(a.terms) {
		a, b = b, a
	}
	var dot float64
	for term, fa := range a.terms {
		if fb, ok := b.terms[term]; ok {
			dot += fa * fb
		}
	}
	return dot / (v.norm * other.norm)
}

// tokenize lowercases and splits on non-alphanumeric runes. Unicode letters
// are kept so non-English messages compare sensibly.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// unionFind is a disjoint-set structure with path compression.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: make([]int, n)}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
