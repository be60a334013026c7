// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrNotFound is returned by Tier-2 stores for absent keys.
var ErrNotFound = errors.New("cache: key not found")

// ErrUnavailable wraps Tier-2 transport failures. The manager absorbs it by
// degrading to Tier-1-only operation; it never fails a user-facing call.
var ErrUnavailable = errors.New("cache: tier-2 unavailable")

// Store is the Tier-2 remote key-value interface. Implementations live in
// the remote subpackage (Redis, embedded Badger).
//
// Bulk operations must batch at the transport boundary rather than issuing
// one round trip per key, and must return partial results instead of failing
// the whole batch when only some keys are unavailable.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetMany returns the subset of keys that exist.
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)

	// SetMany stores all entries with one TTL, pipelined.
	SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error

	// DeleteMatching removes keys matching a glob pattern.
	DeleteMatching(ctx context.Context, pattern string) error

	// Close releases the store's resources.
	Close() error
}

// Codec serializes cached values for the Tier-2 boundary.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// jsonCodec is a JSON Codec for a concrete value type.
type jsonCodec[T any] struct{}

// JSONCodec returns a Codec that round-trips values of type T as JSON.
func JSONCodec[T any]() Codec {
	return jsonCodec[T]{}
}

func (jsonCodec[T]) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec[T]) Unmarshal(data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
