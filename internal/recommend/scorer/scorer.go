// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package scorer implements the two signal sources of the hybrid ranker:
// content similarity and collaborative (latent-factor) affinity.
//
// Both scorers are pure functions over an immutable model snapshot; they hold
// no state of their own and are safe for concurrent use.
package scorer

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrEmptyCandidates is returned when scoring is requested over an empty
	// candidate set.
	ErrEmptyCandidates = errors.New("scorer: empty candidate set")

	// ErrInvalidTopK is returned when topK < 1.
	ErrInvalidTopK = errors.New("scorer: top_k must be >= 1")
)

// Scored pairs an item with a normalized score in [0, 1].
type Scored struct {
	ItemID string
	Score  float64
}

// topK sorts scored items by score descending with the provided tie-break and
// truncates to k.
func topK(scored []Scored, k int, tieBreak func(a, b Scored) bool) []Scored {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return tieBreak(scored[i], scored[j])
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// minMaxNormalize rescales scores into [0, 1] within the batch. When all
// scores are equal they collapse to 0.5, preserving "some affinity" without
// inventing an ordering.
func minMaxNormalize(scored []Scored) []Scored {
	if len(scored) == 0 {
		return scored
	}

	lo, hi := scored[0].Score, scored[0].Score
	for _, s := range scored[1:] {
		if s.Score < lo {
			lo = s.Score
		}
		if s.Score > hi {
			hi = s.Score
		}
	}

	span := hi - lo
	if span == 0 {
		for i := range scored {
			scored[i].Score = 0.5
		}
		return scored
	}

	for i := range scored {
		scored[i].Score = (scored[i].Score - lo) / span
	}
	return scored
}

// cancelled reports whether the context has been canceled.
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
