// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

// Package remote provides Tier-2 cache.Store implementations: a Redis
// client for shared deployments and an embedded Badger store for
// single-node ones.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/bookmill/bookmill/internal/cache"
)

// RedisConfig configures the Redis Tier-2 store.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	OpTimeout   time.Duration
}

// RedisStore is a cache.Store backed by Redis, with a circuit breaker so a
// struggling Redis degrades the cache instead of stalling request handling.
type RedisStore struct {
	client    *redis.Client
	cb        *gobreaker.CircuitBreaker[any]
	opTimeout time.Duration
	logger    zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 500 * time.Millisecond
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	log := logger.With().Str("component", "cache.redis").Logger()

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "redis-tier2",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A miss is a successful round trip.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, cache.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &RedisStore{
		client:    client,
		cb:        cb,
		opTimeout: cfg.OpTimeout,
		logger:    log,
	}, nil
}

// Get implements cache.Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := s.execute(ctx, func(ctx context.Context) (any, error) {
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Set implements cache.Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.execute(ctx, func(ctx context.Context) (any, error) {
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

// GetMany implements cache.Store using a single pipelined round trip.
// Absent keys are simply omitted from the result.
func (s *RedisStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	result, err := s.execute(ctx, func(ctx context.Context) (any, error) {
		pipe := s.client.Pipeline()
		cmds := make([]*redis.StringCmd, len(keys))
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		out := make(map[string][]byte, len(keys))
		for i, cmd := range cmds {
			data, err := cmd.Bytes()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[keys[i]] = data
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string][]byte), nil
}

// SetMany implements cache.Store using a single pipelined round trip.
func (s *RedisStore) SetMany(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	_, err := s.execute(ctx, func(ctx context.Context) (any, error) {
		pipe := s.client.Pipeline()
		for key, value := range entries {
			pipe.Set(ctx, key, value, ttl)
		}
		_, err := pipe.Exec(ctx)
		return nil, err
	})
	return err
}

// DeleteMatching implements cache.Store via SCAN to avoid blocking Redis the
// way KEYS would, deleting in batches.
func (s *RedisStore) DeleteMatching(ctx context.Context, pattern string) error {
	_, err := s.execute(ctx, func(ctx context.Context) (any, error) {
		iter := s.client.Scan(ctx, 0, pattern, 256).Iterator()
		batch := make([]string, 0, 256)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == 256 {
				if err := s.client.Del(ctx, batch...).Err(); err != nil {
					return nil, err
				}
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		if len(batch) > 0 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Close implements cache.Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// execute runs a Redis operation under the op timeout and the circuit
// breaker. ErrNotFound passes through untouched and never trips the
// breaker; everything else is wrapped as ErrUnavailable.
func (s *RedisStore) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	result, err := s.cb.Execute(func() (any, error) {
		return fn(opCtx)
	})
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, cache.ErrNotFound
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open: %s", cache.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %s", cache.ErrUnavailable, err)
	}
	return result, nil
}
