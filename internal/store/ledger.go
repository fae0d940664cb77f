package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
)

// ReviewLogStore defines the interface for the append-only review ledger.
// Entries are immutable; there are no update or delete operations.
// Version: 1.0
type ReviewLogStore interface {
	// Append inserts one immutable ledger entry.
	// Returns ErrIdempotencyKeyExists if an entry with the same
	// (item_id, idempotency_key) pair was already recorded.
	//
	// IMPORTANT: Append MUST run inside the same transaction as the
	// matching review item update so the ledger stays reconcilable with
	// materialized state. Use WithTx together with store.RunInTransaction.
	Append(ctx context.Context, entry *domain.ReviewLogEntry) error

	// GetByIdempotencyKey retrieves the entry recorded for a given
	// client idempotency key on an item.
	// Returns ErrLogEntryNotFound if no such entry exists.
	GetByIdempotencyKey(ctx context.Context, itemID uuid.UUID, key string) (*domain.ReviewLogEntry, error)

	// ListByItem returns an item's full history ordered by reviewed_at
	// ascending with ties broken by id, i.e. replay order.
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.ReviewLogEntry, error)

	// ForEachByUser streams all ledger entries belonging to a user's
	// items in reviewed_at order, fetching batchSize rows at a time so
	// analytics over large ledgers never load full history into memory.
	// Iteration stops early if fn returns an error, which is propagated.
	ForEachByUser(ctx context.Context, userID uuid.UUID, batchSize int, fn func(*domain.ReviewLogEntry) error) error

	// LastByItems returns the most recent entry for each of the given
	// items. Items with no history are absent from the result.
	LastByItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]*domain.ReviewLogEntry, error)

	// CountByUser returns the total number of ledger entries across a
	// user's items.
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// DailyActivity returns per-day review counts for a user's items
	// from the given day onward. Keys are UTC days formatted as
	// "2006-01-02"; days with no activity are absent.
	DailyActivity(ctx context.Context, userID uuid.UUID, since time.Time) (map[string]int, error)

	// WithTx returns a new ReviewLogStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller (typically a service).
	WithTx(tx *sql.Tx) ReviewLogStore
}
