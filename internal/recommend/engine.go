// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package recommend

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bookmill/bookmill/internal/cache"
	"github.com/bookmill/bookmill/internal/catalog"
	"github.com/bookmill/bookmill/internal/config"
	"github.com/bookmill/bookmill/internal/metrics"
	"github.com/bookmill/bookmill/internal/recommend/scorer"
)

// recentLimit bounds how many distinct recent requests are remembered for
// cache warming after a model swap.
const recentLimit = 256

// warmParams is everything needed to recompute a recently served request.
type warmParams struct {
	userID          string
	referenceItemID string
	count           int
	weight          float64
	filters         map[string]string
}

// Engine is the recommendation facade: request validation, cache lookup,
// fork-join scoring, combination, and cache population.
type Engine struct {
	cfg           config.RecommendConfig
	provider      *catalog.SnapshotProvider
	cache         *cache.Manager
	content       *scorer.Content
	collaborative *scorer.Collaborative
	logger        zerolog.Logger

	// recent tracks parameters of recently computed requests, in arrival
	// order, for WarmRecent.
	recentMu    sync.Mutex
	recentOrder []string
	recent      map[string]warmParams
}

// NewEngine creates the recommendation engine.
func NewEngine(cfg config.RecommendConfig, provider *catalog.SnapshotProvider, cacheManager *cache.Manager, logger zerolog.Logger) (*Engine, error) {
	collaborative, err := scorer.NewCollaborative(scorer.Distance(cfg.CollaborativeDistance))
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:           cfg,
		provider:      provider,
		cache:         cacheManager,
		content:       scorer.NewContent(),
		collaborative: collaborative,
		logger:        logger.With().Str("component", "recommend").Logger(),
		recent:        make(map[string]warmParams, recentLimit),
	}, nil
}

// Recommend serves one recommendation request: validate, consult the cache,
// otherwise score both signals concurrently, combine, cache and return.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if req.UserID == "" && req.ReferenceItemID == "" {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, ErrInvalidRequest
	}
	if req.Count < 0 {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: count must be >= 0", ErrInvalidRequest)
	}

	weight := e.cfg.DefaultWeight
	if req.Weight != nil {
		weight = *req.Weight
	}
	if !(weight >= 0 && weight <= 1) {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeight, weight)
	}

	count := req.Count
	if count == 0 {
		count = e.cfg.DefaultCount
	}
	if count > e.cfg.MaxCount {
		count = e.cfg.MaxCount
	}

	snap := e.provider.Current()
	if snap == nil {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, ErrNoModel
	}

	key := CacheKey(req.UserID, req.ReferenceItemID, count, weight, req.Filters, snap.Version)

	if cached, ok := e.cache.Get(ctx, key); ok {
		if result, ok := cached.(*Result); ok {
			metrics.RecommendRequests.WithLabelValues("hit").Inc()
			metrics.RecommendDuration.Observe(time.Since(start).Seconds())

			// Cached results are immutable; respond with a shallow copy so
			// per-request fields never leak into the cache.
			out := *result
			out.CacheHit = true
			out.RequestID = requestID
			return &out, nil
		}
	}

	params := warmParams{
		userID:          req.UserID,
		referenceItemID: req.ReferenceItemID,
		count:           count,
		weight:          weight,
		filters:         req.Filters,
	}

	result, err := e.compute(ctx, snap, params)
	if err != nil {
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	result.RequestID = requestID

	e.cache.Set(ctx, key, result)
	e.remember(key, params)

	metrics.RecommendRequests.WithLabelValues("computed").Inc()
	metrics.RecommendDuration.Observe(time.Since(start).Seconds())

	e.logger.Debug().
		Str("request_id", requestID).
		Str("user_id", req.UserID).
		Str("reference_item_id", req.ReferenceItemID).
		Int("count", count).
		Int("returned", len(result.Items)).
		Dur("elapsed", time.Since(start)).
		Msg("recommendations computed")

	return result, nil
}

// Stats exposes cache statistics through the facade.
func (e *Engine) Stats() cache.Stats {
	return e.cache.Stats()
}

// InvalidateUser drops every cached result. Per-user invalidation is not
// possible with hashed keys, so a profile change flushes the whole
// recommendation namespace; the model version already scopes it.
func (e *Engine) Invalidate(ctx context.Context) error {
	return e.cache.Invalidate(ctx, "rec:*")
}

// WarmRecent recomputes recently served requests against the current model
// and repopulates both cache tiers. Called after a model swap, when every
// old key is implicitly stale.
func (e *Engine) WarmRecent(ctx context.Context) (int, error) {
	snap := e.provider.Current()
	if snap == nil {
		return 0, ErrNoModel
	}

	e.recentMu.Lock()
	entries := make(map[string]warmParams, len(e.recent))
	keys := make([]string, 0, len(e.recent))
	for _, staleKey := range e.recentOrder {
		p := e.recent[staleKey]
		freshKey := CacheKey(p.userID, p.referenceItemID, p.count, p.weight, p.filters, snap.Version)
		if _, seen := entries[freshKey]; seen {
			continue
		}
		entries[freshKey] = p
		keys = append(keys, freshKey)
	}
	e.recentMu.Unlock()

	if len(keys) == 0 {
		return 0, nil
	}

	return e.cache.Warm(ctx, keys, func(ctx context.Context, key string) (any, error) {
		return e.compute(ctx, snap, entries[key])
	})
}

// compute runs both scorers concurrently under the scoring timeout and
// combines their rankings.
func (e *Engine) compute(ctx context.Context, snap *catalog.ModelSnapshot, p warmParams) (*Result, error) {
	ref, err := e.referenceVector(snap, p)
	if err != nil {
		return nil, err
	}

	candidates := e.candidates(snap, p)
	if len(candidates) == 0 {
		return nil, ErrNoSignal
	}

	scoreCtx, cancel := context.WithTimeout(ctx, e.cfg.ScoringTimeout)
	defer cancel()

	var contentScored, collaborativeScored []scorer.Scored

	g, gctx := errgroup.WithContext(scoreCtx)
	g.Go(func() error {
		scored, err := e.content.Score(gctx, ref, candidates, p.count)
		if err != nil {
			return fmt.Errorf("content scorer: %w", err)
		}
		contentScored = scored
		return nil
	})
	g.Go(func() error {
		user, ok := snap.User(p.userID)
		if !ok {
			// Unknown or anonymous user: no collaborative signal.
			return nil
		}
		scored, err := e.collaborative.Score(gctx, user, snap, candidates, p.count)
		if err != nil {
			return fmt.Errorf("collaborative scorer: %w", err)
		}
		collaborativeScored = scored
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Combine(snap, ref, contentScored, collaborativeScored, p.weight, p.count)
}

// referenceVector derives the content reference: the reference item's
// features when one is named, otherwise the user's profile vector.
func (e *Engine) referenceVector(snap *catalog.ModelSnapshot, p warmParams) (catalog.FeatureVector, error) {
	if p.referenceItemID != "" {
		item, ok := snap.Item(p.referenceItemID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownReference, p.referenceItemID)
		}
		return item.Features, nil
	}

	user, ok := snap.User(p.userID)
	if !ok {
		// Anonymous user with no reference item was rejected earlier; an
		// unknown user gets an empty profile and pure cold-start handling.
		return catalog.FeatureVector{}, nil
	}
	return scorer.ProfileVector(snap, user), nil
}

// candidates builds the filtered candidate pool: everything in the catalog
// minus the reference item and the user's already-rated items, restricted by
// the request filters, capped at the configured pool size.
func (e *Engine) candidates(snap *catalog.ModelSnapshot, p warmParams) []catalog.Item {
	var rated map[string]struct{}
	if user, ok := snap.User(p.userID); ok {
		rated = user.RatedItemIDs
	}

	tag := p.filters["tag"]
	author := p.filters["author"]

	out := make([]catalog.Item, 0, snap.ItemCount())
	for _, item := range snap.Items() {
		if item.ID == p.referenceItemID {
			continue
		}
		if _, seen := rated[item.ID]; seen {
			continue
		}
		if tag != "" && !item.HasTag(tag) {
			continue
		}
		if author != "" && !hasAuthor(item, author) {
			continue
		}
		out = append(out, item)
		if len(out) == e.cfg.MaxCandidates {
			break
		}
	}
	return out
}

// hasAuthor reports whether the item lists the author, case-insensitively.
func hasAuthor(item catalog.Item, author string) bool {
	for _, a := range item.Authors {
		if strings.EqualFold(a, author) {
			return true
		}
	}
	return false
}

// remember records the parameters of a computed request for WarmRecent,
// evicting the oldest past the limit.
func (e *Engine) remember(key string, p warmParams) {
	e.recentMu.Lock()
	defer e.recentMu.Unlock()

	if _, seen := e.recent[key]; seen {
		return
	}
	e.recent[key] = p
	e.recentOrder = append(e.recentOrder, key)

	if len(e.recentOrder) > recentLimit {
		oldest := e.recentOrder[0]
		e.recentOrder = e.recentOrder[1:]
		delete(e.recent, oldest)
	}
}
