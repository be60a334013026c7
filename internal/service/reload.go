// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/catalog"
	"github.com/bookmill/bookmill/internal/metrics"
)

// ModelReloadService polls the model artifact and installs a new snapshot
// when its version changes. Installation is atomic for readers; in-flight
// requests finish on the snapshot they started with.
type ModelReloadService struct {
	path     string
	interval time.Duration
	provider *catalog.SnapshotProvider
	logger   zerolog.Logger
}

// NewModelReloadService creates the artifact poller.
func NewModelReloadService(path string, interval time.Duration, provider *catalog.SnapshotProvider, logger zerolog.Logger) *ModelReloadService {
	return &ModelReloadService{
		path:     path,
		interval: interval,
		provider: provider,
		logger:   logger.With().Str("component", "model-reload").Logger(),
	}
}

// Serve implements suture.Service.
func (s *ModelReloadService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		// Polling disabled: idle until shutdown so the supervisor does not
		// treat an instant return as a crash loop.
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.reload()
		}
	}
}

// reload loads the artifact and installs it when the version changed. A
// malformed artifact is logged and skipped; the previous snapshot keeps
// serving.
func (s *ModelReloadService) reload() {
	snap, err := catalog.LoadArtifact(s.path)
	if err != nil {
		metrics.ModelReloads.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Str("path", s.path).Msg("model artifact reload failed")
		return
	}

	current := s.provider.Current()
	if current != nil && current.Version == snap.Version {
		metrics.ModelReloads.WithLabelValues("unchanged").Inc()
		return
	}

	s.provider.Install(snap)
	metrics.ModelReloads.WithLabelValues("ok").Inc()
	s.logger.Info().
		Str("version", snap.Version).
		Int("items", snap.ItemCount()).
		Msg("new model snapshot installed")
}

// String implements fmt.Stringer for supervisor logging.
func (s *ModelReloadService) String() string {
	return "model-reload"
}
