// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// artifact is the on-disk JSON layout produced by the offline trainer.
type artifact struct {
	ModelVersion string `json:"model_version"`

	Items []Item `json:"items"`

	// ItemFactors maps item ID to its latent factor vector.
	ItemFactors map[string][]float64 `json:"item_factors"`

	Users []artifactUser `json:"users"`
}

type artifactUser struct {
	UserID        string    `json:"user_id"`
	LatentFactors []float64 `json:"latent_factors,omitempty"`
	RatedItemIDs  []string  `json:"rated_item_ids,omitempty"`
}

// LoadArtifact reads a trainer artifact file and builds a model snapshot.
//
// A malformed artifact is a hard error: scoring against a corrupt model must
// surface, never silently degrade to empty scores.
func LoadArtifact(path string) (*ModelSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	return ParseArtifact(data)
}

// ParseArtifact builds a model snapshot from raw artifact JSON.
func ParseArtifact(data []byte) (*ModelSnapshot, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	if a.ModelVersion == "" {
		return nil, fmt.Errorf("model artifact missing model_version")
	}
	if len(a.Items) == 0 {
		return nil, fmt.Errorf("model artifact %q has no items", a.ModelVersion)
	}

	// Factor dimensions must agree across the model.
	dim := -1
	for id, f := range a.ItemFactors {
		if dim == -1 {
			dim = len(f)
			continue
		}
		if len(f) != dim {
			return nil, fmt.Errorf("item %s factor dimension %d != model rank %d", id, len(f), dim)
		}
	}

	users := make(map[string]UserProfile, len(a.Users))
	for _, u := range a.Users {
		if len(u.LatentFactors) > 0 && dim != -1 && len(u.LatentFactors) != dim {
			return nil, fmt.Errorf("user %s factor dimension %d != model rank %d", u.UserID, len(u.LatentFactors), dim)
		}

		rated := make(map[string]struct{}, len(u.RatedItemIDs))
		for _, id := range u.RatedItemIDs {
			rated[id] = struct{}{}
		}

		users[u.UserID] = UserProfile{
			UserID:        u.UserID,
			LatentFactors: u.LatentFactors,
			RatedItemIDs:  rated,
		}
	}

	return NewModelSnapshot(a.ModelVersion, a.Items, a.ItemFactors, users), nil
}
