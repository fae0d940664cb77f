package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/platform/logger"
	"github.com/fluentloop/recall-api/internal/store"
)

// logColumns is the SELECT list shared by all ledger queries, in scan order.
const logColumns = `id, item_id, quality, reviewed_at, interval_at_review, duration_ms, idempotency_key`

// defaultScanBatchSize is used when ForEachByUser is called with a
// non-positive batch size.
const defaultScanBatchSize = 500

// PostgresReviewLogStore implements the store.ReviewLogStore interface
// using a PostgreSQL database as the storage backend. The backing table
// is append-only; this type deliberately exposes no update or delete.
type PostgresReviewLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewLogStore creates a new PostgreSQL implementation of the
// ReviewLogStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewLogStore(db store.DBTX, log *slog.Logger) *PostgresReviewLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresReviewLogStore{
		db:     db,
		logger: log.With(slog.String("component", "review_log_store")),
	}
}

// Ensure PostgresReviewLogStore implements store.ReviewLogStore interface
var _ store.ReviewLogStore = (*PostgresReviewLogStore)(nil)

// WithTx implements store.ReviewLogStore.WithTx
func (s *PostgresReviewLogStore) WithTx(tx *sql.Tx) store.ReviewLogStore {
	return &PostgresReviewLogStore{
		db:     tx,
		logger: s.logger,
	}
}

// Append implements store.ReviewLogStore.Append
// Returns store.ErrIdempotencyKeyExists if an entry with the same
// (item_id, idempotency_key) pair was already recorded.
func (s *PostgresReviewLogStore) Append(ctx context.Context, entry *domain.ReviewLogEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("review log entry validation failed during append",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return err
	}

	query := `
		INSERT INTO review_logs (id, item_id, quality, reviewed_at, interval_at_review,
			duration_ms, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.ItemID,
		int(entry.Quality),
		entry.ReviewedAt,
		entry.IntervalAtReview,
		entry.DurationMs,
		nullableString(entry.IdempotencyKey),
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("duplicate idempotency key on ledger append",
				slog.String("item_id", entry.ItemID.String()))
			return store.ErrIdempotencyKeyExists
		}

		log.Error("failed to append review log entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("item_id", entry.ItemID.String()))
		return MapError(err)
	}

	return nil
}

// GetByIdempotencyKey implements store.ReviewLogStore.GetByIdempotencyKey
// Returns store.ErrLogEntryNotFound if no such entry exists.
func (s *PostgresReviewLogStore) GetByIdempotencyKey(
	ctx context.Context,
	itemID uuid.UUID,
	key string,
) (*domain.ReviewLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM review_logs WHERE item_id = $1 AND idempotency_key = $2`

	entry, err := scanLogEntry(s.db.QueryRowContext(ctx, query, itemID, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLogEntryNotFound
		}
		return nil, MapError(err)
	}

	return entry, nil
}

// ListByItem implements store.ReviewLogStore.ListByItem
func (s *PostgresReviewLogStore) ListByItem(
	ctx context.Context,
	itemID uuid.UUID,
) ([]*domain.ReviewLogEntry, error) {
	query := `
		SELECT ` + logColumns + `
		FROM review_logs
		WHERE item_id = $1
		ORDER BY reviewed_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectLogEntries(rows)
}

// ForEachByUser implements store.ReviewLogStore.ForEachByUser
// It pages through the user's ledger with a keyset cursor on
// (reviewed_at, id) so memory stays bounded regardless of history size.
func (s *PostgresReviewLogStore) ForEachByUser(
	ctx context.Context,
	userID uuid.UUID,
	batchSize int,
	fn func(*domain.ReviewLogEntry) error,
) error {
	if batchSize <= 0 {
		batchSize = defaultScanBatchSize
	}

	query := `
		SELECT l.id, l.item_id, l.quality, l.reviewed_at, l.interval_at_review,
			l.duration_ms, l.idempotency_key
		FROM review_logs l
		JOIN review_items i ON i.id = l.item_id
		WHERE i.user_id = $1 AND (l.reviewed_at, l.id) > ($2, $3)
		ORDER BY l.reviewed_at ASC, l.id ASC
		LIMIT $4
	`

	cursorTime := time.Time{}
	cursorID := uuid.Nil
	for {
		rows, err := s.db.QueryContext(ctx, query, userID, cursorTime, cursorID, batchSize)
		if err != nil {
			return MapError(err)
		}

		entries, err := collectLogEntries(rows)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if err := fn(entry); err != nil {
				return err
			}
		}

		if len(entries) < batchSize {
			return nil
		}

		last := entries[len(entries)-1]
		cursorTime = last.ReviewedAt
		cursorID = last.ID
	}
}

// LastByItems implements store.ReviewLogStore.LastByItems
func (s *PostgresReviewLogStore) LastByItems(
	ctx context.Context,
	itemIDs []uuid.UUID,
) (map[uuid.UUID]*domain.ReviewLogEntry, error) {
	if len(itemIDs) == 0 {
		return map[uuid.UUID]*domain.ReviewLogEntry{}, nil
	}

	query := `
		SELECT DISTINCT ON (item_id) ` + logColumns + `
		FROM review_logs
		WHERE item_id = ANY($1)
		ORDER BY item_id, reviewed_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, itemIDs)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	entries, err := collectLogEntries(rows)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]*domain.ReviewLogEntry, len(entries))
	for _, entry := range entries {
		result[entry.ItemID] = entry
	}
	return result, nil
}

// CountByUser implements store.ReviewLogStore.CountByUser
func (s *PostgresReviewLogStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*)
		 FROM review_logs l
		 JOIN review_items i ON i.id = l.item_id
		 WHERE i.user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// DailyActivity implements store.ReviewLogStore.DailyActivity
func (s *PostgresReviewLogStore) DailyActivity(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (map[string]int, error) {
	query := `
		SELECT to_char(l.reviewed_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM review_logs l
		JOIN review_items i ON i.id = l.item_id
		WHERE i.user_id = $1 AND l.reviewed_at >= $2
		GROUP BY day
	`
	rows, err := s.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	activity := make(map[string]int)
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, MapError(err)
		}
		activity[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return activity, nil
}

// collectLogEntries scans and closes the given rows.
func collectLogEntries(rows *sql.Rows) ([]*domain.ReviewLogEntry, error) {
	defer func() { _ = rows.Close() }()

	var entries []*domain.ReviewLogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, MapError(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return entries, nil
}

// scanLogEntry scans one ledger row in logColumns order.
func scanLogEntry(row rowScanner) (*domain.ReviewLogEntry, error) {
	var entry domain.ReviewLogEntry
	var quality int
	var idempotencyKey sql.NullString

	err := row.Scan(
		&entry.ID,
		&entry.ItemID,
		&quality,
		&entry.ReviewedAt,
		&entry.IntervalAtReview,
		&entry.DurationMs,
		&idempotencyKey,
	)
	if err != nil {
		return nil, err
	}

	entry.Quality = domain.ReviewQuality(quality)
	if idempotencyKey.Valid {
		entry.IdempotencyKey = idempotencyKey.String
	}

	return &entry, nil
}

// nullableString maps the empty string to SQL NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
