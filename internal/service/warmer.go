// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/catalog"
)

// RecentWarmer is the engine surface the warm service needs.
type RecentWarmer interface {
	WarmRecent(ctx context.Context) (int, error)
}

// WarmService listens for model-updated events and recomputes recently
// served requests against the new snapshot, so the hot working set is
// cached before user traffic repopulates it.
type WarmService struct {
	provider *catalog.SnapshotProvider
	warmer   RecentWarmer
	logger   zerolog.Logger
}

// NewWarmService creates the post-swap cache warmer.
func NewWarmService(provider *catalog.SnapshotProvider, warmer RecentWarmer, logger zerolog.Logger) *WarmService {
	return &WarmService{
		provider: provider,
		warmer:   warmer,
		logger:   logger.With().Str("component", "cache-warmer").Logger(),
	}
}

// Serve implements suture.Service.
func (s *WarmService) Serve(ctx context.Context) error {
	updates, err := s.provider.Updates()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-updates:
			if !ok {
				return ctx.Err()
			}
			version := string(msg.Payload)
			msg.Ack()

			warmed, err := s.warmer.WarmRecent(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Str("version", version).Msg("post-swap warming failed")
				continue
			}
			s.logger.Info().Str("version", version).Int("warmed", warmed).Msg("cache warmed for new model")
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *WarmService) String() string {
	return "cache-warmer"
}
