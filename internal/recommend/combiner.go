// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package recommend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bookmill/bookmill/internal/catalog"
	"github.com/bookmill/bookmill/internal/recommend/scorer"
)

// maxExplanationTags bounds the number of feature terms quoted per item.
const maxExplanationTags = 3

// Combine merges content and collaborative rankings into a single ordered
// Result.
//
// Per-item hybrid score: weight * collaborative + (1 - weight) * content,
// with the weight renormalized over only the signals actually present for
// that item. An item carrying only a content signal is scored purely on
// content rather than penalized for missing collaborative data.
//
// Ordering is total: hybrid descending, then content descending, then item
// ID ascending. The result is truncated to n; when fewer than n candidates
// exist it is marked Partial, never padded.
func Combine(snap *catalog.ModelSnapshot, ref catalog.FeatureVector, content, collaborative []scorer.Scored, weight float64, n int) (*Result, error) {
	// NaN fails both < and > comparisons, so test for the valid range.
	if !(weight >= 0 && weight <= 1) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}
	if len(content) == 0 && len(collaborative) == 0 {
		return nil, ErrNoSignal
	}

	type signals struct {
		content       Signal
		collaborative Signal
	}

	merged := make(map[string]*signals, len(content)+len(collaborative))
	for _, s := range content {
		merged[s.ItemID] = &signals{content: signal(s.Score)}
	}
	for _, s := range collaborative {
		m, ok := merged[s.ItemID]
		if !ok {
			m = &signals{}
			merged[s.ItemID] = m
		}
		m.collaborative = signal(s.Score)
	}

	items := make([]ScoredItem, 0, len(merged))
	for id, m := range merged {
		hybrid := hybridScore(m.content, m.collaborative, weight)

		item := ScoredItem{
			ItemID:        id,
			Content:       m.content,
			Collaborative: m.collaborative,
			Hybrid:        hybrid,
		}
		if ci, ok := snap.Item(id); ok {
			item.Title = ci.Title
		}
		item.Explanation = explain(snap, ref, item, weight)

		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Hybrid != items[j].Hybrid {
			return items[i].Hybrid > items[j].Hybrid
		}
		if items[i].Content.Score != items[j].Content.Score {
			return items[i].Content.Score > items[j].Content.Score
		}
		return items[i].ItemID < items[j].ItemID
	})

	partial := len(items) < n
	if len(items) > n {
		items = items[:n]
	}

	return &Result{
		Items:        items,
		GeneratedAt:  time.Now().UTC(),
		ModelVersion: snap.Version,
		Partial:      partial,
	}, nil
}

// hybridScore blends the present signals, renormalizing the weight over what
// is actually there. Both absent is impossible here: merged entries always
// carry at least one signal.
func hybridScore(content, collaborative Signal, weight float64) float64 {
	switch {
	case content.Present && collaborative.Present:
		return weight*collaborative.Score + (1-weight)*content.Score
	case collaborative.Present:
		return collaborative.Score
	default:
		return content.Score
	}
}

// explain builds ordered reason fragments for a scored item: the reference
// features that overlap the item's own, then a collaborative note when that
// signal dominates the blend.
func explain(snap *catalog.ModelSnapshot, ref catalog.FeatureVector, item ScoredItem, weight float64) []string {
	var reasons []string

	if item.Content.Present && item.Content.Score > 0 {
		if tags := matchingTerms(snap, ref, item.ItemID); len(tags) > 0 {
			reasons = append(reasons, "matches "+strings.Join(tags, ", "))
		}
	}

	if item.Collaborative.Present {
		collabShare := weight * item.Collaborative.Score
		contentShare := (1 - weight) * item.Content.Score
		if !item.Content.Present || collabShare > contentShare {
			reasons = append(reasons, "readers with similar taste also liked this")
		}
	}

	return reasons
}

// matchingTerms returns the strongest reference feature terms that the item
// shares, best first, capped at maxExplanationTags.
func matchingTerms(snap *catalog.ModelSnapshot, ref catalog.FeatureVector, itemID string) []string {
	item, ok := snap.Item(itemID)
	if !ok {
		return nil
	}

	type weighted struct {
		term   string
		weight float64
	}

	var overlap []weighted
	for term, w := range ref {
		if iw, ok := item.Features[term]; ok && w > 0 && iw > 0 {
			overlap = append(overlap, weighted{term: term, weight: w * iw})
		}
	}

	sort.Slice(overlap, func(i, j int) bool {
		if overlap[i].weight != overlap[j].weight {
			return overlap[i].weight > overlap[j].weight
		}
		return overlap[i].term < overlap[j].term
	})

	if len(overlap) > maxExplanationTags {
		overlap = overlap[:maxExplanationTags]
	}

	terms := make([]string, len(overlap))
	for i, o := range overlap {
		terms[i] = o.term
	}
	return terms
}
