// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package scorer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/bookmill/bookmill/internal/catalog"
)

func contentItems() []catalog.Item {
	return []catalog.Item{
		{ID: "b1", Features: catalog.FeatureVector{"scifi": 1.0}, AverageRating: 4.0},
		{ID: "b2", Features: catalog.FeatureVector{"scifi": 1.0, "space": 1.0}, AverageRating: 4.5},
		{ID: "b3", Features: catalog.FeatureVector{"romance": 1.0}, AverageRating: 3.0},
	}
}

func TestContentScoreRanksBySimilarity(t *testing.T) {
	c := NewContent()
	ref := catalog.FeatureVector{"scifi": 1.0}

	got, err := c.Score(context.Background(), ref, contentItems(), 3)
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	// b1 is an exact match (cos = 1), b2 partial (cos = 1/sqrt(2)), b3 none.
	if got[0].ItemID != "b1" || got[1].ItemID != "b2" || got[2].ItemID != "b3" {
		t.Errorf("order = %s,%s,%s; want b1,b2,b3", got[0].ItemID, got[1].ItemID, got[2].ItemID)
	}
	if math.Abs(got[0].Score-1.0) > 1e-9 {
		t.Errorf("b1 score = %v, want 1.0", got[0].Score)
	}
	if math.Abs(got[1].Score-1.0/math.Sqrt2) > 1e-9 {
		t.Errorf("b2 score = %v, want %v", got[1].Score, 1.0/math.Sqrt2)
	}
	if got[2].Score != 0 {
		t.Errorf("b3 score = %v, want 0", got[2].Score)
	}
}

func TestContentScoreTruncatesToTopK(t *testing.T) {
	c := NewContent()
	got, err := c.Score(context.Background(), catalog.FeatureVector{"scifi": 1.0}, contentItems(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ItemID != "b1" {
		t.Errorf("got %+v, want just b1", got)
	}
}

func TestContentScoreTieBreaks(t *testing.T) {
	c := NewContent()
	items := []catalog.Item{
		{ID: "z", Features: catalog.FeatureVector{"x": 1.0}, AverageRating: 4.0},
		{ID: "a", Features: catalog.FeatureVector{"x": 1.0}, AverageRating: 4.0},
		{ID: "m", Features: catalog.FeatureVector{"x": 1.0}, AverageRating: 4.8},
	}

	got, err := c.Score(context.Background(), catalog.FeatureVector{"x": 1.0}, items, 3)
	if err != nil {
		t.Fatal(err)
	}

	// All cosines equal 1.0: higher rating first, then ID ascending.
	want := []string{"m", "a", "z"}
	for i, w := range want {
		if got[i].ItemID != w {
			t.Errorf("position %d = %s, want %s", i, got[i].ItemID, w)
		}
	}
}

func TestContentScoreZeroNormReference(t *testing.T) {
	c := NewContent()
	got, err := c.Score(context.Background(), catalog.FeatureVector{}, contentItems(), 3)
	if err != nil {
		t.Fatalf("zero-norm reference must not fail: %v", err)
	}
	for _, s := range got {
		if s.Score != 0 {
			t.Errorf("%s score = %v, want 0", s.ItemID, s.Score)
		}
	}
}

func TestContentScoreInputValidation(t *testing.T) {
	c := NewContent()
	ref := catalog.FeatureVector{"x": 1.0}

	if _, err := c.Score(context.Background(), ref, nil, 3); !errors.Is(err, ErrEmptyCandidates) {
		t.Errorf("empty candidates: got %v, want ErrEmptyCandidates", err)
	}
	if _, err := c.Score(context.Background(), ref, contentItems(), 0); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("top_k=0: got %v, want ErrInvalidTopK", err)
	}
}

func TestContentScoreDeterminism(t *testing.T) {
	c := NewContent()
	ref := catalog.FeatureVector{"scifi": 0.8, "space": 0.2}

	first, err := c.Score(context.Background(), ref, contentItems(), 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Score(context.Background(), ref, contentItems(), 3)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("position %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestProfileVector(t *testing.T) {
	snap := catalog.NewModelSnapshot("v1", contentItems(), nil, nil)
	user := catalog.UserProfile{
		UserID:       "u1",
		RatedItemIDs: map[string]struct{}{"b1": {}, "b2": {}, "missing": {}},
	}

	profile := ProfileVector(snap, user)
	if profile["scifi"] != 2.0 {
		t.Errorf("scifi weight = %v, want 2.0", profile["scifi"])
	}
	if profile["space"] != 1.0 {
		t.Errorf("space weight = %v, want 1.0", profile["space"])
	}
	if _, ok := profile["romance"]; ok {
		t.Error("romance should not appear in profile")
	}
}
