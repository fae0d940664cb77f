package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
)

// ReviewSubmission carries a completed review from the client.
type ReviewSubmission struct {
	Quality    domain.ReviewQuality `json:"quality"`
	DurationMs int                  `json:"duration_ms"`
	// IdempotencyKey lets clients retry a failed submission without
	// double-applying the scheduling transition. Optional.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// ReviewOutcome is what a completed submission returns to the client.
type ReviewOutcome struct {
	Item *domain.ReviewItem
	// Replayed is true when the submission matched a previously recorded
	// idempotency key and no new transition was applied.
	Replayed bool
}

// UserStats is the dashboard summary for one user.
type UserStats struct {
	TotalItems   int64 `json:"total_items"`
	DueItems     int64 `json:"due_items"`
	TotalReviews int64 `json:"total_reviews"`
}

// ScheduleDay is one calendar day in the upcoming-review preview.
type ScheduleDay struct {
	Day   string              `json:"day"` // UTC day, formatted 2006-01-02
	Items []ScheduledItemInfo `json:"items"`
}

// ScheduledItemInfo annotates a scheduled item with its last-review
// trace for transparency into why the scheduler chose that date.
type ScheduledItemInfo struct {
	ItemID         uuid.UUID `json:"item_id"`
	ContentRef     string    `json:"content_ref"`
	NextReviewAt   time.Time `json:"next_review_at"`
	IntervalDays   float64   `json:"interval_days"`
	Repetition     int       `json:"repetition"`
	LastQuality    *int      `json:"last_quality,omitempty"`
	IntervalBefore *float64  `json:"last_interval_before,omitempty"`
	LastDurationMs *int      `json:"last_duration_ms,omitempty"`
}

// ItemHistory is an item's full ledger trace plus the result of replaying
// it against the materialized state.
type ItemHistory struct {
	Item       *domain.ReviewItem
	Entries    []*domain.ReviewLogEntry
	Consistent bool
}

// ReviewService is the scheduling engine's service surface: it owns every
// mutation of review items and the ledger, and the read paths the API
// exposes. All scheduling state changes flow through SubmitReview.
type ReviewService interface {
	// FlagItem creates a review item for a content unit, or returns the
	// existing one if the user already flagged the same content ref.
	FlagItem(ctx context.Context, userID uuid.UUID, contentRef string) (*domain.ReviewItem, error)

	// SubmitReview applies the SM-2 transition for one completed review.
	// The item update and the ledger append happen in one transaction.
	// Concurrent duplicate submissions lose with ErrConcurrentModification;
	// retries carrying the same idempotency key replay the stored outcome.
	SubmitReview(ctx context.Context, userID, itemID uuid.UUID, submission ReviewSubmission) (*ReviewOutcome, error)

	// DueQueue returns the user's due items, oldest due first.
	DueQueue(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ReviewItem, error)

	// PracticeQueue returns a random sample of the user's items for
	// voluntary extra practice. Strictly read-only: practice completions
	// are never submitted to the scheduler or the ledger.
	PracticeQueue(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ReviewItem, error)

	// Stats returns the user's dashboard counters.
	Stats(ctx context.Context, userID uuid.UUID) (*UserStats, error)

	// SchedulePreview returns upcoming reviews grouped by UTC calendar
	// day over the next `days` days, annotated with last-review traces.
	SchedulePreview(ctx context.Context, userID uuid.UUID, days int) ([]ScheduleDay, error)

	// ItemHistory returns an item's ledger trace and verifies the
	// materialized state is reproducible from it.
	ItemHistory(ctx context.Context, userID, itemID uuid.UUID) (*ItemHistory, error)
}

// Common error types for ReviewService
var (
	// ErrItemNotFound indicates that the review item does not exist.
	ErrItemNotFound = errors.New("review item not found")

	// ErrItemNotOwned indicates that the user does not own the item.
	ErrItemNotOwned = errors.New("unauthorized access: item not owned by user")

	// ErrInvalidQuality indicates the rating is outside the accepted domain.
	ErrInvalidQuality = errors.New("invalid review quality")

	// ErrConcurrentModification indicates a concurrent submission already
	// applied a transition to the item; the client should re-fetch.
	ErrConcurrentModification = errors.New("item was modified concurrently")

	// ErrInvalidLimit indicates a non-positive queue limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidPreviewDays indicates a non-positive preview horizon.
	ErrInvalidPreviewDays = errors.New("preview days must be positive")
)

// ServiceError wraps errors from the review service with additional context.
// This allows consumers to differentiate between different types of service
// errors using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_review")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// newServiceError creates a ServiceError for the given operation.
func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
