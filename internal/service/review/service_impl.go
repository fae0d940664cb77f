package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/domain/sm2"
	"github.com/fluentloop/recall-api/internal/platform/logger"
	"github.com/fluentloop/recall-api/internal/store"
)

// Verify interface compliance at compile time
var _ ReviewService = (*reviewServiceImpl)(nil)

// reviewServiceImpl implements the ReviewService interface.
type reviewServiceImpl struct {
	items      store.ReviewItemStore
	ledger     store.ReviewLogStore
	tx         store.Transactor
	sm2Service sm2.Service
	logger     *slog.Logger
	now        func() time.Time
}

// NewReviewService creates a new ReviewService implementation.
func NewReviewService(
	items store.ReviewItemStore,
	ledger store.ReviewLogStore,
	tx store.Transactor,
	sm2Service sm2.Service,
	log *slog.Logger,
) ReviewService {
	if items == nil {
		panic("items store cannot be nil")
	}
	if ledger == nil {
		panic("ledger store cannot be nil")
	}
	if tx == nil {
		panic("transactor cannot be nil")
	}
	if sm2Service == nil {
		panic("sm2 service cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &reviewServiceImpl{
		items:      items,
		ledger:     ledger,
		tx:         tx,
		sm2Service: sm2Service,
		logger:     log.With(slog.String("component", "review_service")),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// FlagItem implements ReviewService.FlagItem.
func (s *reviewServiceImpl) FlagItem(
	ctx context.Context,
	userID uuid.UUID,
	contentRef string,
) (*domain.ReviewItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	item, err := domain.NewReviewItem(userID, contentRef)
	if err != nil {
		return nil, err
	}

	err = s.items.Create(ctx, item)
	if err != nil {
		// Flagging the same content twice is idempotent: hand back the
		// item that already tracks it.
		if errors.Is(err, store.ErrContentRefExists) {
			existing, getErr := s.items.GetByContentRef(ctx, userID, contentRef)
			if getErr != nil {
				return nil, newServiceError("flag_item", "failed to load existing item", getErr)
			}
			log.Debug("content ref already flagged, returning existing item",
				slog.String("user_id", userID.String()),
				slog.String("item_id", existing.ID.String()))
			return existing, nil
		}
		return nil, newServiceError("flag_item", "failed to create item", err)
	}

	log.Info("content flagged for review",
		slog.String("user_id", userID.String()),
		slog.String("item_id", item.ID.String()))
	return item, nil
}

// SubmitReview implements ReviewService.SubmitReview.
// It reads the item outside the transaction, computes the SM-2 transition
// as a pure function, then atomically applies the version-guarded item
// update and the ledger append. A duplicate click or retry races on the
// version guard; whichever submission commits second gets
// ErrConcurrentModification instead of corrupting EF/interval.
func (s *reviewServiceImpl) SubmitReview(
	ctx context.Context,
	userID, itemID uuid.UUID,
	submission ReviewSubmission,
) (*ReviewOutcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !submission.Quality.IsValid() {
		log.Warn("invalid review quality",
			slog.String("user_id", userID.String()),
			slog.String("item_id", itemID.String()),
			slog.Int("quality", int(submission.Quality)))
		return nil, ErrInvalidQuality
	}

	item, err := s.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	// Retry with a known idempotency key: replay the stored outcome
	// instead of applying the transition again.
	if submission.IdempotencyKey != "" {
		_, err := s.ledger.GetByIdempotencyKey(ctx, itemID, submission.IdempotencyKey)
		if err == nil {
			log.Debug("idempotent replay of review submission",
				slog.String("item_id", itemID.String()))
			return &ReviewOutcome{Item: item, Replayed: true}, nil
		}
		if !errors.Is(err, store.ErrLogEntryNotFound) {
			return nil, newServiceError("submit_review", "failed to check idempotency key", err)
		}
	}

	now := s.now()
	updated, entry, err := s.sm2Service.Apply(item, submission.Quality, submission.DurationMs, now)
	if err != nil {
		return nil, newServiceError("submit_review", "failed to apply scheduling update", err)
	}
	entry.IdempotencyKey = submission.IdempotencyKey

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx *sql.Tx) error {
		txItems := s.items.WithTx(tx)
		txLedger := s.ledger.WithTx(tx)

		if err := txItems.Update(ctx, updated); err != nil {
			return err
		}
		return txLedger.Append(ctx, entry)
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConcurrentModification):
			log.Warn("concurrent review submission rejected",
				slog.String("user_id", userID.String()),
				slog.String("item_id", itemID.String()))
			return nil, ErrConcurrentModification
		case errors.Is(err, store.ErrIdempotencyKeyExists):
			// Lost the insert race against a retry of ourselves; treat
			// exactly like the pre-check replay path.
			current, getErr := s.items.GetByID(ctx, itemID)
			if getErr != nil {
				return nil, newServiceError("submit_review", "failed to reload item", getErr)
			}
			return &ReviewOutcome{Item: current, Replayed: true}, nil
		case errors.Is(err, store.ErrItemNotFound):
			return nil, ErrItemNotFound
		}
		log.Error("failed to submit review",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("item_id", itemID.String()))
		return nil, newServiceError("submit_review", "transaction failed", err)
	}

	// The store bumped the row version; mirror it for the caller.
	updated.Version = item.Version + 1

	log.Debug("review applied",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.Int("quality", int(submission.Quality)),
		slog.Float64("ease_factor", updated.EaseFactor),
		slog.Float64("interval_days", updated.IntervalDays),
		slog.Int("repetition", updated.Repetition),
		slog.Time("next_review_at", updated.NextReviewAt))

	return &ReviewOutcome{Item: updated}, nil
}

// DueQueue implements ReviewService.DueQueue.
func (s *reviewServiceImpl) DueQueue(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.ReviewItem, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	items, err := s.items.ListDue(ctx, userID, s.now(), limit)
	if err != nil {
		return nil, newServiceError("due_queue", "failed to list due items", err)
	}
	return items, nil
}

// PracticeQueue implements ReviewService.PracticeQueue.
// This path only ever reads; there is intentionally no way for a
// practice session to reach the scheduler or the ledger, keeping
// retention analytics uncontaminated by optional drills.
func (s *reviewServiceImpl) PracticeQueue(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.ReviewItem, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	items, err := s.items.SamplePractice(ctx, userID, limit)
	if err != nil {
		return nil, newServiceError("practice_queue", "failed to sample items", err)
	}
	return items, nil
}

// Stats implements ReviewService.Stats.
func (s *reviewServiceImpl) Stats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	totalItems, err := s.items.CountByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("stats", "failed to count items", err)
	}

	dueItems, err := s.items.CountDue(ctx, userID, s.now())
	if err != nil {
		return nil, newServiceError("stats", "failed to count due items", err)
	}

	totalReviews, err := s.ledger.CountByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("stats", "failed to count reviews", err)
	}

	return &UserStats{
		TotalItems:   totalItems,
		DueItems:     dueItems,
		TotalReviews: totalReviews,
	}, nil
}

// SchedulePreview implements ReviewService.SchedulePreview.
func (s *reviewServiceImpl) SchedulePreview(
	ctx context.Context,
	userID uuid.UUID,
	days int,
) ([]ScheduleDay, error) {
	if days <= 0 {
		return nil, ErrInvalidPreviewDays
	}

	now := s.now()
	items, err := s.items.ListScheduled(ctx, userID, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, newServiceError("schedule_preview", "failed to list scheduled items", err)
	}

	if len(items) == 0 {
		return []ScheduleDay{}, nil
	}

	itemIDs := make([]uuid.UUID, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}
	lastEntries, err := s.ledger.LastByItems(ctx, itemIDs)
	if err != nil {
		return nil, newServiceError("schedule_preview", "failed to load review traces", err)
	}

	// Items arrive ordered by next_review_at, so days come out in order.
	var result []ScheduleDay
	for _, item := range items {
		info := ScheduledItemInfo{
			ItemID:       item.ID,
			ContentRef:   item.ContentRef,
			NextReviewAt: item.NextReviewAt,
			IntervalDays: item.IntervalDays,
			Repetition:   item.Repetition,
		}
		if last, ok := lastEntries[item.ID]; ok {
			quality := int(last.Quality)
			intervalBefore := last.IntervalAtReview
			durationMs := last.DurationMs
			info.LastQuality = &quality
			info.IntervalBefore = &intervalBefore
			info.LastDurationMs = &durationMs
		}

		day := item.NextReviewAt.UTC().Format("2006-01-02")
		if len(result) == 0 || result[len(result)-1].Day != day {
			result = append(result, ScheduleDay{Day: day})
		}
		last := &result[len(result)-1]
		last.Items = append(last.Items, info)
	}

	return result, nil
}

// ItemHistory implements ReviewService.ItemHistory.
func (s *reviewServiceImpl) ItemHistory(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*ItemHistory, error) {
	item, err := s.getOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	entries, err := s.ledger.ListByItem(ctx, itemID)
	if err != nil {
		return nil, newServiceError("item_history", "failed to load history", err)
	}

	consistent, err := s.verifyItemState(item, entries)
	if err != nil {
		return nil, newServiceError("item_history", "failed to replay history", err)
	}

	return &ItemHistory{
		Item:       item,
		Entries:    entries,
		Consistent: consistent,
	}, nil
}

// verifyItemState replays the ledger from the item's initial state and
// compares the result against the materialized scheduling fields.
func (s *reviewServiceImpl) verifyItemState(
	item *domain.ReviewItem,
	entries []*domain.ReviewLogEntry,
) (bool, error) {
	replayed, err := s.sm2Service.Replay(item, entries)
	if err != nil {
		return false, err
	}

	const epsilon = 1e-9
	return replayed.Repetition == item.Repetition &&
		floatEquals(replayed.EaseFactor, item.EaseFactor, epsilon) &&
		floatEquals(replayed.IntervalDays, item.IntervalDays, epsilon), nil
}

// getOwnedItem loads an item and verifies ownership.
func (s *reviewServiceImpl) getOwnedItem(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.ReviewItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			log.Debug("review item not found",
				slog.String("user_id", userID.String()),
				slog.String("item_id", itemID.String()))
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	if item.UserID != userID {
		log.Warn("user does not own review item",
			slog.String("user_id", userID.String()),
			slog.String("item_id", itemID.String()),
			slog.String("owner_id", item.UserID.String()))
		return nil, ErrItemNotOwned
	}

	return item, nil
}

func floatEquals(a, b, epsilon float64) bool {
	diff := a - b
	return diff < epsilon && diff > -epsilon
}
