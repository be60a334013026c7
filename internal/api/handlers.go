// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmill/bookmill/internal/cache"
	"github.com/bookmill/bookmill/internal/recommend"
)

// Recommender is the engine surface the handlers need.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Result, error)
	Stats() cache.Stats
	Invalidate(ctx context.Context) error
	WarmRecent(ctx context.Context) (int, error)
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	engine Recommender
	ready  func() bool
	logger zerolog.Logger
}

// NewHandler creates the API handlers. ready reports whether a model
// snapshot has been installed.
func NewHandler(engine Recommender, ready func() bool, logger zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		ready:  ready,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Recommendations serves GET /api/v1/recommendations.
//
// Query parameters: user_id, reference_item_id, count, weight, tag, author.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	req := recommend.Request{
		UserID:          q.Get("user_id"),
		ReferenceItemID: q.Get("reference_item_id"),
		RequestID:       r.Header.Get("X-Request-ID"),
	}

	if raw := q.Get("count"); raw != "" {
		count, err := strconv.Atoi(raw)
		if err != nil || count < 0 {
			respondError(w, h.logger, http.StatusBadRequest, "VALIDATION_ERROR", "count must be a non-negative integer")
			return
		}
		req.Count = count
	}

	if raw := q.Get("weight"); raw != "" {
		weight, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, h.logger, http.StatusBadRequest, "VALIDATION_ERROR", "weight must be a number in [0, 1]")
			return
		}
		req.Weight = &weight
	}

	filters := make(map[string]string)
	if tag := q.Get("tag"); tag != "" {
		filters["tag"] = tag
	}
	if author := q.Get("author"); author != "" {
		filters["author"] = author
	}
	if len(filters) > 0 {
		req.Filters = filters
	}

	result, err := h.engine.Recommend(r.Context(), req)
	if err != nil {
		h.respondRecommendError(w, err)
		return
	}

	w.Header().Set("X-Request-ID", result.RequestID)
	respondJSON(w, h.logger, http.StatusOK, &APIResponse{
		Status: "ok",
		Data:   result,
		Metadata: Metadata{
			Timestamp:     time.Now().UTC(),
			ComputeTimeMS: time.Since(start).Milliseconds(),
			Cached:        result.CacheHit,
		},
	})
}

// respondRecommendError maps engine errors onto HTTP statuses.
func (h *Handler) respondRecommendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidRequest):
		respondError(w, h.logger, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, recommend.ErrInvalidWeight):
		respondError(w, h.logger, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, recommend.ErrUnknownReference):
		respondError(w, h.logger, http.StatusNotFound, "UNKNOWN_REFERENCE", err.Error())
	case errors.Is(err, recommend.ErrNoSignal):
		respondError(w, h.logger, http.StatusNotFound, "NO_SIGNAL", "no recommendation signal for this request")
	case errors.Is(err, recommend.ErrNoModel):
		respondError(w, h.logger, http.StatusServiceUnavailable, "NO_MODEL", "model not loaded yet")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, h.logger, http.StatusGatewayTimeout, "SCORING_TIMEOUT", "scoring did not finish in time")
	default:
		h.logger.Error().Err(err).Msg("recommendation failed")
		respondError(w, h.logger, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
	}
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, &APIResponse{
		Status:   "ok",
		Data:     h.engine.Stats(),
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// CacheInvalidate serves DELETE /api/v1/cache.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Invalidate(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("cache invalidation failed")
		respondError(w, h.logger, http.StatusInternalServerError, "CACHE_ERROR", "invalidation did not complete on all tiers")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, &APIResponse{
		Status:   "ok",
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// CacheWarm serves POST /api/v1/cache/warm: recompute recently served
// requests against the current model.
func (h *Handler) CacheWarm(w http.ResponseWriter, r *http.Request) {
	warmed, err := h.engine.WarmRecent(r.Context())
	if err != nil {
		if errors.Is(err, recommend.ErrNoModel) {
			respondError(w, h.logger, http.StatusServiceUnavailable, "NO_MODEL", "model not loaded yet")
			return
		}
		h.logger.Error().Err(err).Msg("cache warming failed")
		respondError(w, h.logger, http.StatusInternalServerError, "CACHE_ERROR", "warming did not complete")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, &APIResponse{
		Status:   "ok",
		Data:     map[string]int{"warmed": warmed},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthLive serves GET /healthz/live: process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, &APIResponse{
		Status:   "ok",
		Data:     map[string]string{"state": "live"},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady serves GET /healthz/ready: a model snapshot is installed and
// requests can be served.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	if !h.ready() {
		respondError(w, h.logger, http.StatusServiceUnavailable, "NOT_READY", "model not loaded yet")
		return
	}
	respondJSON(w, h.logger, http.StatusOK, &APIResponse{
		Status:   "ok",
		Data:     map[string]string{"state": "ready"},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	})
}
