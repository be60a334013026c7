// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/metrics"
)

// TopicModelUpdated carries a message per installed model snapshot. The
// payload is the new model version string.
const TopicModelUpdated = "model.updated"

// SnapshotProvider holds the current model snapshot behind an atomic pointer
// and publishes a model-updated event on every swap.
//
// Readers call Current() and keep using the returned snapshot for the whole
// request; concurrent swaps never tear an in-flight read.
type SnapshotProvider struct {
	current    atomic.Pointer[ModelSnapshot]
	generation atomic.Int64
	pubsub     *gochannel.GoChannel
	logger     zerolog.Logger
}

// NewSnapshotProvider creates a provider with no snapshot installed.
func NewSnapshotProvider(logger zerolog.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 16,
		}, watermill.NopLogger{}),
		logger: logger.With().Str("component", "catalog").Logger(),
	}
}

// Current returns the installed snapshot, or nil before the first Install.
func (p *SnapshotProvider) Current() *ModelSnapshot {
	return p.current.Load()
}

// Install atomically swaps in a new snapshot and announces it. The snapshot's
// Generation is assigned here.
func (p *SnapshotProvider) Install(snap *ModelSnapshot) {
	snap.Generation = p.generation.Add(1)
	p.current.Store(snap)

	metrics.ModelGeneration.Set(float64(snap.Generation))
	p.logger.Info().
		Str("model_version", snap.Version).
		Int64("generation", snap.Generation).
		Int("items", snap.ItemCount()).
		Msg("model snapshot installed")

	msg := message.NewMessage(watermill.NewUUID(), []byte(snap.Version))
	if err := p.pubsub.Publish(TopicModelUpdated, msg); err != nil {
		p.logger.Warn().Err(err).Msg("publish model-updated event")
	}
}

// Updates returns a channel of model-updated messages. Each subscriber gets
// its own stream. Messages must be Ack()ed.
func (p *SnapshotProvider) Updates() (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(context.Background(), TopicModelUpdated)
}

// Close shuts down the event plumbing.
func (p *SnapshotProvider) Close() error {
	return p.pubsub.Close()
}
