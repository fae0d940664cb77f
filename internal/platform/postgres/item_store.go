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

// itemColumns is the SELECT list shared by all item queries, in scan order.
const itemColumns = `id, user_id, content_ref, easiness_factor, repetition, interval_days,
	last_reviewed_at, next_review_at, version, created_at, updated_at`

// PostgresReviewItemStore implements the store.ReviewItemStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresReviewItemStore creates a new PostgreSQL implementation of the
// ReviewItemStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresReviewItemStore(db store.DBTX, log *slog.Logger) *PostgresReviewItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresReviewItemStore{
		db:     db,
		logger: log.With(slog.String("component", "review_item_store")),
	}
}

// Ensure PostgresReviewItemStore implements store.ReviewItemStore interface
var _ store.ReviewItemStore = (*PostgresReviewItemStore)(nil)

// WithTx implements store.ReviewItemStore.WithTx
func (s *PostgresReviewItemStore) WithTx(tx *sql.Tx) store.ReviewItemStore {
	return &PostgresReviewItemStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ReviewItemStore.Create
// It saves a new review item, handling domain validation.
// Returns store.ErrContentRefExists if the user already flagged this content ref.
func (s *PostgresReviewItemStore) Create(ctx context.Context, item *domain.ReviewItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("review item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}

	query := `
		INSERT INTO review_items (id, user_id, content_ref, easiness_factor, repetition,
			interval_days, last_reviewed_at, next_review_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.UserID,
		item.ContentRef,
		item.EaseFactor,
		item.Repetition,
		item.IntervalDays,
		nullableTime(item.LastReviewedAt),
		item.NextReviewAt,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("content ref already flagged",
				slog.String("user_id", item.UserID.String()),
				slog.String("content_ref", item.ContentRef))
			return store.ErrContentRefExists
		}

		log.Error("failed to create review item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()),
			slog.String("user_id", item.UserID.String()))
		return MapError(err)
	}

	log.Info("review item created",
		slog.String("item_id", item.ID.String()),
		slog.String("user_id", item.UserID.String()),
		slog.String("content_ref", item.ContentRef))
	return nil
}

// GetByID implements store.ReviewItemStore.GetByID
// Returns store.ErrItemNotFound if the item does not exist.
func (s *PostgresReviewItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewItem, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE id = $1`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		return nil, MapError(err)
	}

	return item, nil
}

// GetByContentRef implements store.ReviewItemStore.GetByContentRef
// Returns store.ErrItemNotFound if no such item exists.
func (s *PostgresReviewItemStore) GetByContentRef(
	ctx context.Context,
	userID uuid.UUID,
	contentRef string,
) (*domain.ReviewItem, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items WHERE user_id = $1 AND content_ref = $2`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, userID, contentRef))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		return nil, MapError(err)
	}

	return item, nil
}

// Update implements store.ReviewItemStore.Update
// The write only applies when the stored row still carries item.Version;
// the version is bumped by one on success. Returns
// store.ErrConcurrentModification when the guard fails on an existing row.
func (s *PostgresReviewItemStore) Update(ctx context.Context, item *domain.ReviewItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("review item validation failed during update",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}

	query := `
		UPDATE review_items
		SET easiness_factor = $1, repetition = $2, interval_days = $3,
			last_reviewed_at = $4, next_review_at = $5, updated_at = $6,
			version = version + 1
		WHERE id = $7 AND version = $8
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		item.EaseFactor,
		item.Repetition,
		item.IntervalDays,
		nullableTime(item.LastReviewedAt),
		item.NextReviewAt,
		item.UpdatedAt,
		item.ID,
		item.Version,
	)
	if err != nil {
		log.Error("failed to update review item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}

	if rowsAffected == 0 {
		// Distinguish a version race from a missing row.
		var exists bool
		checkErr := s.db.QueryRowContext(
			ctx,
			`SELECT EXISTS (SELECT 1 FROM review_items WHERE id = $1)`,
			item.ID,
		).Scan(&exists)
		if checkErr != nil {
			return MapError(checkErr)
		}
		if exists {
			log.Warn("optimistic lock failure on review item",
				slog.String("item_id", item.ID.String()),
				slog.Int64("expected_version", item.Version))
			return store.ErrConcurrentModification
		}
		return store.ErrItemNotFound
	}

	return nil
}

// ListDue implements store.ReviewItemStore.ListDue
func (s *PostgresReviewItemStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.ReviewItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE user_id = $1 AND next_review_at <= $2
		ORDER BY next_review_at ASC, id ASC
		LIMIT $3
	`
	return s.queryItems(ctx, query, userID, now, limit)
}

// SamplePractice implements store.ReviewItemStore.SamplePractice
// The sample is drawn independently on every call; there is no
// recently-seen deduplication.
func (s *PostgresReviewItemStore) SamplePractice(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.ReviewItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE user_id = $1
		ORDER BY random()
		LIMIT $2
	`
	return s.queryItems(ctx, query, userID, limit)
}

// ListScheduled implements store.ReviewItemStore.ListScheduled
func (s *PostgresReviewItemStore) ListScheduled(
	ctx context.Context,
	userID uuid.UUID,
	from, through time.Time,
) ([]*domain.ReviewItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM review_items
		WHERE user_id = $1 AND next_review_at > $2 AND next_review_at <= $3
		ORDER BY next_review_at ASC, id ASC
	`
	return s.queryItems(ctx, query, userID, from, through)
}

// CountByUser implements store.ReviewItemStore.CountByUser
func (s *PostgresReviewItemStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM review_items WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// CountDue implements store.ReviewItemStore.CountDue
func (s *PostgresReviewItemStore) CountDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM review_items WHERE user_id = $1 AND next_review_at <= $2`,
		userID,
		now,
	).Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// queryItems runs an item query and scans all resulting rows.
func (s *PostgresReviewItemStore) queryItems(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.ReviewItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.ReviewItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, MapError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return items, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem scans one review item row in itemColumns order.
func scanItem(row rowScanner) (*domain.ReviewItem, error) {
	var item domain.ReviewItem
	var lastReviewedAt sql.NullTime

	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ContentRef,
		&item.EaseFactor,
		&item.Repetition,
		&item.IntervalDays,
		&lastReviewedAt,
		&item.NextReviewAt,
		&item.Version,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastReviewedAt.Valid {
		item.LastReviewedAt = lastReviewedAt.Time
	}

	return &item, nil
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
