package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReviewQuality is the user's self-assessed rating for a completed
// review. The product's rating UI exposes the discrete set {1, 2, 3, 5};
// the value 4 is intentionally unused and rejected.
type ReviewQuality int

// Accepted rating values.
const (
	QualityBlackout ReviewQuality = 1 // complete failure to recall
	QualityHard     ReviewQuality = 2 // recalled incorrectly or with serious difficulty
	QualityGood     ReviewQuality = 3 // recalled with some effort
	QualityEasy     ReviewQuality = 5 // perfect, effortless recall
)

// SuccessThreshold separates failed (reset) from successful reviews.
const SuccessThreshold = 3

// Common validation errors for ReviewLogEntry
var (
	ErrInvalidQuality  = errors.New("quality must be one of 1, 2, 3, 5")
	ErrEmptyItemID     = errors.New("review log item ID cannot be empty")
	ErrInvalidDuration = errors.New("duration must be greater than or equal to 0")
)

// IsValid reports whether q is in the accepted rating domain.
func (q ReviewQuality) IsValid() bool {
	switch q {
	case QualityBlackout, QualityHard, QualityGood, QualityEasy:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether the rating counts as a successful recall.
func (q ReviewQuality) IsSuccess() bool {
	return int(q) >= SuccessThreshold
}

// ReviewLogEntry is one immutable record in the append-only review
// ledger. IntervalAtReview holds the interval that was in effect before
// this review was applied, which is what the retention analytics bucket
// on. Entries are never updated or deleted; the ledger is the source of
// truth for an item's materialized state.
type ReviewLogEntry struct {
	ID               uuid.UUID     `json:"id"`
	ItemID           uuid.UUID     `json:"item_id"`
	Quality          ReviewQuality `json:"quality"`
	ReviewedAt       time.Time     `json:"reviewed_at"`
	IntervalAtReview float64       `json:"interval_at_review"`
	DurationMs       int           `json:"duration_ms"`
	IdempotencyKey   string        `json:"-"` // empty when the client sent none
}

// NewReviewLogEntry creates a ledger entry for a review that was just
// applied. intervalBefore is the item's interval prior to the update.
func NewReviewLogEntry(
	itemID uuid.UUID,
	quality ReviewQuality,
	intervalBefore float64,
	durationMs int,
	reviewedAt time.Time,
) (*ReviewLogEntry, error) {
	entry := &ReviewLogEntry{
		ID:               uuid.New(),
		ItemID:           itemID,
		Quality:          quality,
		ReviewedAt:       reviewedAt,
		IntervalAtReview: intervalBefore,
		DurationMs:       durationMs,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the ReviewLogEntry has valid data.
func (e *ReviewLogEntry) Validate() error {
	if e.ItemID == uuid.Nil {
		return ErrEmptyItemID
	}

	if !e.Quality.IsValid() {
		return ErrInvalidQuality
	}

	if e.DurationMs < 0 {
		return ErrInvalidDuration
	}

	return nil
}

// Success reports whether this review was a successful recall.
func (e *ReviewLogEntry) Success() bool {
	return e.Quality.IsSuccess()
}
