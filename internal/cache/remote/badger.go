// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/cache"
)

// BadgerConfig configures the embedded Badger Tier-2 store.
type BadgerConfig struct {
	// Path is the on-disk location. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// BadgerStore is a cache.Store on an embedded Badger database, for
// single-node deployments that want Tier-2 durability without running
// Redis.
type BadgerStore struct {
	db     *badger.DB
	logger zerolog.Logger
}

// NewBadgerStore opens the database.
func NewBadgerStore(cfg BadgerConfig, logger zerolog.Logger) (*BadgerStore, error) {
	// Badger rejects a directory path in in-memory mode.
	dir := cfg.Path
	if cfg.InMemory {
		dir = ""
	}
	opts := badger.DefaultOptions(dir).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}

	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "cache.badger").Logger(),
	}, nil
}

// Get implements cache.Store.
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}
	return value, nil
}

// Set implements cache.Store. TTL expiry is handled by Badger itself.
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}
	return nil
}

// GetMany implements cache.Store in one read transaction.
func (s *BadgerStore) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[key] = value
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}
	return out, nil
}

// SetMany implements cache.Store using a write batch so a large warm does
// not blow up a single transaction.
func (s *BadgerStore) SetMany(_ context.Context, entries map[string][]byte, ttl time.Duration) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for key, value := range entries {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		if err := wb.SetEntry(entry); err != nil {
			return fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}
	return nil
}

// DeleteMatching implements cache.Store. Keys are iterated without values
// and matched with the same glob syntax Tier-1 uses.
func (s *BadgerStore) DeleteMatching(_ context.Context, pattern string) error {
	var matched [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if ok, err := path.Match(pattern, string(key)); err == nil && ok {
				matched = append(matched, key)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range matched {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}
	return nil
}

// Close implements cache.Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
