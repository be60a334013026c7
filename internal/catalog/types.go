// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package catalog defines the catalog data model and the trained model
// snapshot that backs both scorers.
//
// Snapshots are immutable: a retrain or artifact reload produces a whole new
// ModelSnapshot which is installed with an atomic pointer swap, so in-flight
// readers always observe a consistent model version.
package catalog

import (
	"math"
	"time"
)

// FeatureVector is a sparse numeric vector over a fixed feature vocabulary.
// Keys are feature terms (tags, subjects, author tokens), values are weights.
type FeatureVector map[string]float64

// Norm returns the Euclidean norm of the vector.
func (v FeatureVector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Dot returns the dot product with another sparse vector. Iterates the
// smaller of the two maps.
func (v FeatureVector) Dot(other FeatureVector) float64 {
	a, b := v, other
	if len(b) < len(a) {
		a, b = b, a
	}

	var sum float64
	for term, w := range a {
		if ow, ok := b[term]; ok {
			sum += w * ow
		}
	}
	return sum
}

// Item is an immutable catalog entry. Re-ingest creates a new version;
// existing items are never mutated.
type Item struct {
	// ID is the unique catalog identifier.
	ID string `json:"id"`

	// Title is the book title.
	Title string `json:"title"`

	// Authors lists the book's authors.
	Authors []string `json:"authors,omitempty"`

	// Features is the sparse feature vector over the shared vocabulary.
	Features FeatureVector `json:"features"`

	// AverageRating is the mean catalog rating (0-5).
	AverageRating float64 `json:"average_rating"`

	// Tags is the curated tag set for explanations and filtering.
	Tags []string `json:"tags,omitempty"`
}

// HasTag reports whether the item carries the given tag.
func (i Item) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UserProfile holds a user's collaborative model state. Rebuilt wholesale on
// retrain; read-only between retrains.
type UserProfile struct {
	// UserID is the unique user identifier.
	UserID string `json:"user_id"`

	// LatentFactors is the dense factor vector from the factorization model.
	// Nil for cold-start users that were never retrained into the model.
	LatentFactors []float64 `json:"latent_factors,omitempty"`

	// RatedItemIDs is the set of items the user has rated.
	RatedItemIDs map[string]struct{} `json:"-"`
}

// ColdStart reports whether the user has no collaborative signal.
func (p UserProfile) ColdStart() bool {
	return len(p.LatentFactors) == 0
}

// ModelSnapshot is an immutable bundle of everything the scorers need.
type ModelSnapshot struct {
	// Version tags the trained model; cache keys embed it so a new model
	// implicitly invalidates old entries.
	Version string

	// Generation is a monotonically increasing sequence assigned at load.
	Generation int64

	// LoadedAt is when this snapshot was installed.
	LoadedAt time.Time

	items       []Item
	itemIndex   map[string]int
	itemFactors map[string][]float64
	users       map[string]UserProfile
}

// NewModelSnapshot builds a snapshot from loaded artifact data.
func NewModelSnapshot(version string, items []Item, itemFactors map[string][]float64, users map[string]UserProfile) *ModelSnapshot {
	index := make(map[string]int, len(items))
	for i := range items {
		index[items[i].ID] = i
	}

	return &ModelSnapshot{
		Version:     version,
		LoadedAt:    time.Now(),
		items:       items,
		itemIndex:   index,
		itemFactors: itemFactors,
		users:       users,
	}
}

// Item returns the catalog item by ID.
func (s *ModelSnapshot) Item(id string) (Item, bool) {
	i, ok := s.itemIndex[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i], true
}

// Items returns all catalog items. Callers must not mutate the slice.
func (s *ModelSnapshot) Items() []Item {
	return s.items
}

// ItemFactors returns the latent factor vector for an item, if the item was
// in the trained model.
func (s *ModelSnapshot) ItemFactors(id string) ([]float64, bool) {
	f, ok := s.itemFactors[id]
	return f, ok
}

// User returns the profile for a user. A missing profile is a cold-start
// user, not an error.
func (s *ModelSnapshot) User(id string) (UserProfile, bool) {
	u, ok := s.users[id]
	return u, ok
}

// ItemCount returns the catalog size.
func (s *ModelSnapshot) ItemCount() int {
	return len(s.items)
}
