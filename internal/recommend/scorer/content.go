// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package scorer

import (
	"context"

	"github.com/bookmill/bookmill/internal/catalog"
)

// Content scores candidates by cosine similarity between a reference feature
// vector and each candidate's feature vector over the shared vocabulary.
//
// Ordering is total for reproducibility: ties are broken by higher average
// rating, then by item ID ascending.
type Content struct{}

// NewContent creates a content similarity scorer.
func NewContent() *Content {
	return &Content{}
}

// Score ranks candidates against the reference vector and returns the topK
// highest scoring ones.
//
// A zero-norm reference (no extractable features) is not an error: every
// score is defined as 0.0, so cold content degrades instead of failing.
func (c *Content) Score(ctx context.Context, ref catalog.FeatureVector, candidates []catalog.Item, topk int) ([]Scored, error) {
	if topk < 1 {
		return nil, ErrInvalidTopK
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}

	refNorm := ref.Norm()

	scored := make([]Scored, 0, len(candidates))
	rating := make(map[string]float64, len(candidates))

	for i := range candidates {
		if cancelled(ctx) {
			return nil, ctx.Err()
		}

		item := &candidates[i]
		rating[item.ID] = item.AverageRating

		var score float64
		if refNorm > 0 {
			if n := item.Features.Norm(); n > 0 {
				score = ref.Dot(item.Features) / (refNorm * n)
			}
		}

		scored = append(scored, Scored{ItemID: item.ID, Score: score})
	}

	return topK(scored, topk, func(a, b Scored) bool {
		if rating[a.ItemID] != rating[b.ItemID] {
			return rating[a.ItemID] > rating[b.ItemID]
		}
		return a.ItemID < b.ItemID
	}), nil
}

// ProfileVector derives a reference vector for a user from the feature
// vectors of the items they have rated. Used when a request carries no
// reference item.
func ProfileVector(snap *catalog.ModelSnapshot, user catalog.UserProfile) catalog.FeatureVector {
	profile := make(catalog.FeatureVector)
	for id := range user.RatedItemIDs {
		item, ok := snap.Item(id)
		if !ok {
			continue
		}
		for term, w := range item.Features {
			profile[term] += w
		}
	}
	return profile
}
