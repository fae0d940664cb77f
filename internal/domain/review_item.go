package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MinEaseFactor is the floor the easiness factor can never fall below.
const MinEaseFactor = 1.3

// DefaultEaseFactor is the easiness factor assigned to newly flagged items.
const DefaultEaseFactor = 2.5

// Common validation errors for ReviewItem
var (
	ErrEmptyItemUserID   = errors.New("review item user ID cannot be empty")
	ErrEmptyContentRef   = errors.New("review item content ref cannot be empty")
	ErrInvalidEaseFactor = errors.New("ease factor must be at least 1.3")
	ErrInvalidRepetition = errors.New("repetition must be greater than or equal to 0")
	ErrInvalidInterval   = errors.New("interval must be greater than or equal to 0")
)

// ReviewItem is the materialized scheduling state for one reviewable
// content unit and one user. ContentRef is an opaque reference owned by
// the content system; the engine never interprets it.
//
// Invariant: NextReviewAt == LastReviewedAt + IntervalDays (in days) once
// the item has been reviewed at least once. Replaying the item's full
// review log through the scheduler must reproduce EaseFactor, Repetition
// and IntervalDays exactly.
type ReviewItem struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	ContentRef     string    `json:"content_ref"`
	EaseFactor     float64   `json:"ease_factor"`
	Repetition     int       `json:"repetition"`
	IntervalDays   float64   `json:"interval_days"`
	LastReviewedAt time.Time `json:"last_reviewed_at"` // zero until first review
	NextReviewAt   time.Time `json:"next_review_at"`
	Version        int64     `json:"-"` // optimistic concurrency guard
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewReviewItem creates a fresh item for a content unit that was just
// flagged for review. New items are due immediately.
func NewReviewItem(userID uuid.UUID, contentRef string) (*ReviewItem, error) {
	now := time.Now().UTC()
	item := &ReviewItem{
		ID:           uuid.New(),
		UserID:       userID,
		ContentRef:   contentRef,
		EaseFactor:   DefaultEaseFactor,
		Repetition:   0,
		IntervalDays: 0,
		NextReviewAt: now,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the ReviewItem has valid data.
// Returns an error if any field fails validation.
func (i *ReviewItem) Validate() error {
	if i.UserID == uuid.Nil {
		return ErrEmptyItemUserID
	}

	if i.ContentRef == "" {
		return ErrEmptyContentRef
	}

	if i.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}

	if i.Repetition < 0 {
		return ErrInvalidRepetition
	}

	if i.IntervalDays < 0 {
		return ErrInvalidInterval
	}

	return nil
}

// IsDue reports whether the item is due for review at the given time.
func (i *ReviewItem) IsDue(now time.Time) bool {
	return !i.NextReviewAt.After(now)
}
