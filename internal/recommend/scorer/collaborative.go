// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package scorer

import (
	"context"
	"fmt"
	"math"

	"github.com/bookmill/bookmill/internal/catalog"
)

// Distance selects the latent-factor affinity measure.
type Distance string

const (
	// DistanceDot scores by raw dot product (default).
	DistanceDot Distance = "dot"

	// DistanceCosine scores by cosine of the factor vectors.
	DistanceCosine Distance = "cosine"
)

// Collaborative scores candidates by affinity between a user's latent factor
// vector and per-item latent vectors from the trained factorization model.
//
// Raw affinities are min-max normalized within the candidate batch so scores
// are comparable across calls without reference to training-time scale.
type Collaborative struct {
	distance Distance
}

// NewCollaborative creates a collaborative scorer.
func NewCollaborative(distance Distance) (*Collaborative, error) {
	switch distance {
	case DistanceDot, DistanceCosine:
		return &Collaborative{distance: distance}, nil
	case "":
		return &Collaborative{distance: DistanceDot}, nil
	default:
		return nil, fmt.Errorf("scorer: unknown distance %q", distance)
	}
}

// Score ranks candidates by latent-factor affinity for the user.
//
// Cold start is a defined empty-signal state, not an error: a user with no
// latent factors yields an empty result so callers can distinguish "no
// signal" from "zero affinity" (zero affinity is a valid learned value).
func (s *Collaborative) Score(ctx context.Context, user catalog.UserProfile, snap *catalog.ModelSnapshot, candidates []catalog.Item, topk int) ([]Scored, error) {
	if topk < 1 {
		return nil, ErrInvalidTopK
	}
	if len(candidates) == 0 {
		return nil, ErrEmptyCandidates
	}

	if user.ColdStart() {
		return []Scored{}, nil
	}

	scored := make([]Scored, 0, len(candidates))
	for i := range candidates {
		if cancelled(ctx) {
			return nil, ctx.Err()
		}

		factors, ok := snap.ItemFactors(candidates[i].ID)
		if !ok {
			// Item not in the trained model: no signal for it.
			continue
		}

		affinity, err := s.affinity(user.LatentFactors, factors)
		if err != nil {
			return nil, err
		}

		scored = append(scored, Scored{ItemID: candidates[i].ID, Score: affinity})
	}

	if len(scored) == 0 {
		return []Scored{}, nil
	}

	scored = minMaxNormalize(scored)

	return topK(scored, topk, func(a, b Scored) bool {
		return a.ItemID < b.ItemID
	}), nil
}

// affinity computes the configured distance between factor vectors.
// A dimension mismatch means the model artifact is corrupt and must surface.
func (s *Collaborative) affinity(user, item []float64) (float64, error) {
	if len(user) != len(item) {
		return 0, fmt.Errorf("scorer: factor dimension mismatch: user %d, item %d", len(user), len(item))
	}

	var dot, userNorm, itemNorm float64
	for i := range user {
		dot += user[i] * item[i]
		userNorm += user[i] * user[i]
		itemNorm += item[i] * item[i]
	}

	if s.distance == DistanceCosine {
		if userNorm == 0 || itemNorm == 0 {
			return 0, nil
		}
		return dot / (math.Sqrt(userNorm) * math.Sqrt(itemNorm)), nil
	}

	return dot, nil
}
