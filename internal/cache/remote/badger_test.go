// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/cache"
)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(BadgerConfig{InMemory: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerSetGet(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(value) != "v1" {
		t.Errorf("Get(k1) = %q, want v1", value)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestBadgerBulkRoundTrip(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	entries := map[string][]byte{
		"rec:a": []byte("1"),
		"rec:b": []byte("2"),
		"rec:c": []byte("3"),
	}
	if err := store.SetMany(ctx, entries, time.Minute); err != nil {
		t.Fatalf("SetMany: %v", err)
	}

	found, err := store.GetMany(ctx, []string{"rec:a", "rec:b", "rec:c", "rec:missing"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(found) != 3 {
		t.Fatalf("GetMany returned %d entries, want 3", len(found))
	}
	if string(found["rec:b"]) != "2" {
		t.Errorf("GetMany[rec:b] = %q, want 2", found["rec:b"])
	}
}

func TestBadgerDeleteMatching(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	store.Set(ctx, "rec:u1", []byte("1"), time.Minute)
	store.Set(ctx, "rec:u2", []byte("2"), time.Minute)
	store.Set(ctx, "stats:u1", []byte("3"), time.Minute)

	if err := store.DeleteMatching(ctx, "rec:*"); err != nil {
		t.Fatalf("DeleteMatching: %v", err)
	}

	if _, err := store.Get(ctx, "rec:u1"); !errors.Is(err, cache.ErrNotFound) {
		t.Error("rec:u1 survived DeleteMatching")
	}
	if _, err := store.Get(ctx, "stats:u1"); err != nil {
		t.Errorf("stats:u1 was wrongly deleted: %v", err)
	}
}

func TestBadgerTTLExpiry(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	if err := store.Set(ctx, "short", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get after expiry = %v, want ErrNotFound", err)
	}
}
