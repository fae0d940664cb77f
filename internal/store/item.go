package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
)

// ReviewItemStore defines the interface for review item persistence.
// Version: 1.0
type ReviewItemStore interface {
	// Create saves a new review item.
	// It handles domain validation internally.
	// Returns ErrContentRefExists if the user already flagged the same
	// content ref.
	Create(ctx context.Context, item *domain.ReviewItem) error

	// GetByID retrieves an item by its unique ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewItem, error)

	// GetByContentRef retrieves the item a user created for a content ref.
	// Returns ErrItemNotFound if no such item exists.
	GetByContentRef(ctx context.Context, userID uuid.UUID, contentRef string) (*domain.ReviewItem, error)

	// Update persists a scheduler-produced item state using optimistic
	// versioning: the write only applies if the stored row still carries
	// item.Version, and bumps the version by one. Returns
	// ErrConcurrentModification if the version moved underneath us and
	// ErrItemNotFound if the item does not exist.
	//
	// IMPORTANT: scheduler updates MUST run inside the same transaction
	// as the matching ledger append. Use WithTx together with
	// store.RunInTransaction.
	Update(ctx context.Context, item *domain.ReviewItem) error

	// ListDue returns up to limit items with next_review_at <= now,
	// ordered ascending by next_review_at with ties broken by id so the
	// queue order is deterministic.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]*domain.ReviewItem, error)

	// SamplePractice returns up to limit items for the user in random
	// order, regardless of due status. Read-only by contract: practice
	// completions never reach Update or the ledger.
	SamplePractice(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ReviewItem, error)

	// ListScheduled returns items whose next review falls inside
	// (from, through], ordered by next_review_at then id. Used for the
	// upcoming-schedule preview.
	ListScheduled(ctx context.Context, userID uuid.UUID, from, through time.Time) ([]*domain.ReviewItem, error)

	// CountByUser returns the user's total number of review items.
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// CountDue returns how many items are due at the given time without
	// fetching them. Kept separate from ListDue for cheap dashboard
	// counters.
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)

	// WithTx returns a new ReviewItemStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ReviewItemStore
}
