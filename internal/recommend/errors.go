// Bookmill - Hybrid Book Recommendation Engine
// SPDX-License-Identifier: Apache-2.0

package recommend

import "errors"

var (
	// ErrInvalidRequest is returned when a request names neither a user nor
	// a reference item. Never retried; surfaced to the caller immediately.
	ErrInvalidRequest = errors.New("recommend: request needs a user_id or reference_item_id")

	// ErrInvalidWeight is returned when the hybrid weight is outside [0, 1].
	ErrInvalidWeight = errors.New("recommend: weight must be in [0, 1]")

	// ErrNoSignal is returned when both scorers produced nothing. Callers
	// should fall back to a popularity-based default; it must stay
	// distinguishable from "zero good matches".
	ErrNoSignal = errors.New("recommend: no content or collaborative signal")

	// ErrNoModel is returned before the first model snapshot is installed.
	ErrNoModel = errors.New("recommend: no model snapshot loaded")

	// ErrUnknownReference is returned when the reference item is not in the
	// catalog.
	ErrUnknownReference = errors.New("recommend: reference item not in catalog")
)
