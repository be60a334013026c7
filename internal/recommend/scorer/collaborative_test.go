// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package scorer

import (
	"context"
	"errors"
	"testing"

	"github.com/bookmill/bookmill/internal/catalog"
)

func collabSnapshot() *catalog.ModelSnapshot {
	items := []catalog.Item{
		{ID: "b1"}, {ID: "b2"}, {ID: "b3"}, {ID: "unmodeled"},
	}
	factors := map[string][]float64{
		"b1": {1.0, 0.0},
		"b2": {0.0, 1.0},
		"b3": {0.5, 0.5},
	}
	return catalog.NewModelSnapshot("v1", items, factors, nil)
}

func TestCollaborativeScoreOrdersByAffinity(t *testing.T) {
	s, err := NewCollaborative(DistanceDot)
	if err != nil {
		t.Fatal(err)
	}

	snap := collabSnapshot()
	user := catalog.UserProfile{UserID: "u1", LatentFactors: []float64{1.0, 0.0}}

	got, err := s.Score(context.Background(), user, snap, snap.Items(), 4)
	if err != nil {
		t.Fatalf("Score error: %v", err)
	}

	// Raw affinities: b1=1.0, b3=0.5, b2=0.0; the unmodeled item is skipped.
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (unmodeled item has no signal)", len(got))
	}
	if got[0].ItemID != "b1" || got[1].ItemID != "b3" || got[2].ItemID != "b2" {
		t.Errorf("order = %s,%s,%s; want b1,b3,b2", got[0].ItemID, got[1].ItemID, got[2].ItemID)
	}

	// Min-max normalized within the batch.
	if got[0].Score != 1.0 || got[1].Score != 0.5 || got[2].Score != 0.0 {
		t.Errorf("scores = %v,%v,%v; want 1,0.5,0", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestCollaborativeColdStartReturnsEmpty(t *testing.T) {
	s, _ := NewCollaborative(DistanceDot)
	snap := collabSnapshot()

	got, err := s.Score(context.Background(), catalog.UserProfile{UserID: "new"}, snap, snap.Items(), 4)
	if err != nil {
		t.Fatalf("cold start must not be an error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("cold start = %v, want empty non-nil slice", got)
	}
}

func TestCollaborativeEqualAffinitiesCollapseToHalf(t *testing.T) {
	s, _ := NewCollaborative(DistanceCosine)

	items := []catalog.Item{{ID: "a"}, {ID: "b"}}
	factors := map[string][]float64{
		"a": {1.0, 0.0},
		"b": {2.0, 0.0}, // same direction, same cosine
	}
	snap := catalog.NewModelSnapshot("v1", items, factors, nil)
	user := catalog.UserProfile{UserID: "u", LatentFactors: []float64{3.0, 0.0}}

	got, err := s.Score(context.Background(), user, snap, snap.Items(), 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range got {
		if sc.Score != 0.5 {
			t.Errorf("%s score = %v, want 0.5", sc.ItemID, sc.Score)
		}
	}
}

func TestCollaborativeDimensionMismatchIsFatal(t *testing.T) {
	s, _ := NewCollaborative(DistanceDot)
	snap := collabSnapshot()
	user := catalog.UserProfile{UserID: "u", LatentFactors: []float64{1.0, 0.0, 0.0}}

	if _, err := s.Score(context.Background(), user, snap, snap.Items(), 4); err == nil {
		t.Error("dimension mismatch must surface, not score as zero")
	}
}

func TestCollaborativeValidation(t *testing.T) {
	s, _ := NewCollaborative(DistanceDot)
	snap := collabSnapshot()
	user := catalog.UserProfile{UserID: "u", LatentFactors: []float64{1.0, 0.0}}

	if _, err := s.Score(context.Background(), user, snap, nil, 4); !errors.Is(err, ErrEmptyCandidates) {
		t.Errorf("empty candidates: got %v", err)
	}
	if _, err := s.Score(context.Background(), user, snap, snap.Items(), 0); !errors.Is(err, ErrInvalidTopK) {
		t.Errorf("top_k=0: got %v", err)
	}

	if _, err := NewCollaborative("euclidean"); err == nil {
		t.Error("expected error for unknown distance")
	}
}
