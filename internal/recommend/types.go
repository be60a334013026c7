// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package recommend implements the hybrid ranking engine: request types,
// score combination with explanations, cache key derivation, and the facade
// that orchestrates cache lookup, scoring and cache population.
package recommend

import (
	"time"
)

// Request is a recommendation request. At least one of UserID and
// ReferenceItemID must be present.
type Request struct {
	// UserID selects the user to personalize for.
	UserID string `json:"user_id,omitempty"`

	// ReferenceItemID selects "more like this" recommendations.
	ReferenceItemID string `json:"reference_item_id,omitempty"`

	// Count is the number of recommendations to return. Zero means the
	// configured default; values above the configured ceiling are clamped.
	Count int `json:"count,omitempty"`

	// Weight is the collaborative weight in [0, 1]; content weight is
	// 1 - Weight. Nil means the configured default.
	Weight *float64 `json:"weight,omitempty"`

	// Filters restricts candidates. Supported keys: "tag", "author".
	Filters map[string]string `json:"filters,omitempty"`

	// RequestID is a unique identifier for tracing. Generated when empty.
	RequestID string `json:"request_id,omitempty"`
}

// Signal is an optional score: a present signal with value 0 is a valid
// learned "no affinity", which is different from an absent signal.
type Signal struct {
	Score   float64 `json:"score"`
	Present bool    `json:"present"`
}

// signal builds a present Signal.
func signal(score float64) Signal {
	return Signal{Score: score, Present: true}
}

// ScoredItem is one ranked recommendation with its score breakdown and
// explanation fragments.
type ScoredItem struct {
	ItemID string `json:"item_id"`
	Title  string `json:"title,omitempty"`

	Content       Signal  `json:"content"`
	Collaborative Signal  `json:"collaborative"`
	Hybrid        float64 `json:"hybrid"`

	// Explanation is an ordered list of short reason strings.
	Explanation []string `json:"explanation,omitempty"`
}

// Result is the cacheable unit: the ordered recommendations plus provenance.
// Once stored it is immutable; recomputation always produces a new Result
// with a new GeneratedAt.
type Result struct {
	Items        []ScoredItem `json:"items"`
	GeneratedAt  time.Time    `json:"generated_at"`
	ModelVersion string       `json:"model_version"`

	// Partial marks a result truncated by candidate availability rather
	// than by the requested count.
	Partial bool `json:"partial,omitempty"`

	// CacheHit reports whether this response was served from cache. Not
	// part of the cached payload.
	CacheHit bool `json:"cache_hit,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}
