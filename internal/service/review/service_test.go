package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/domain/sm2"
	"github.com/fluentloop/recall-api/internal/mocks"
	"github.com/fluentloop/recall-api/internal/service/review"
	"github.com/fluentloop/recall-api/internal/store"
)

type fixture struct {
	items   *mocks.ItemStore
	ledger  *mocks.LedgerStore
	tx      *mocks.Transactor
	service review.ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	items := mocks.NewItemStore()
	ledger := mocks.NewLedgerStore()
	tx := mocks.NewTransactor()
	service := review.NewReviewService(items, ledger, tx, sm2.NewDefaultService(), nil)
	return &fixture{items: items, ledger: ledger, tx: tx, service: service}
}

func (f *fixture) flagItem(t *testing.T, userID uuid.UUID, contentRef string) *domain.ReviewItem {
	t.Helper()
	item, err := f.service.FlagItem(context.Background(), userID, contentRef)
	require.NoError(t, err)
	f.ledger.SetOwner(item.ID, userID)
	return item
}

func TestFlagItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	item, err := f.service.FlagItem(context.Background(), userID, "vocab:100")
	require.NoError(t, err)
	require.Equal(t, userID, item.UserID)
	require.Equal(t, domain.DefaultEaseFactor, item.EaseFactor)
	require.True(t, item.IsDue(time.Now().UTC()), "new items must be due immediately")
}

func TestFlagItemTwiceReturnsExistingItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	first, err := f.service.FlagItem(context.Background(), userID, "vocab:100")
	require.NoError(t, err)

	second, err := f.service.FlagItem(context.Background(), userID, "vocab:100")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "re-flagging must not create a second item")
}

func TestSubmitReviewAppliesTransitionAndAppendsLedger(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()
	item := f.flagItem(t, userID, "vocab:1")

	outcome, err := f.service.SubmitReview(context.Background(), userID, item.ID, review.ReviewSubmission{
		Quality:    domain.QualityGood,
		DurationMs: 3000,
	})
	require.NoError(t, err)
	require.False(t, outcome.Replayed)

	// First success: repetition 1, one-day interval, EF dropped by 0.14.
	assert.Equal(t, 1, outcome.Item.Repetition)
	assert.InDelta(t, 1.0, outcome.Item.IntervalDays, 1e-9)
	assert.InDelta(t, 2.36, outcome.Item.EaseFactor, 1e-9)
	assert.Equal(t, item.Version+1, outcome.Item.Version)

	// The ledger append and the item update happened in one transaction.
	assert.Equal(t, 1, f.tx.Calls)
	assert.Equal(t, 1, f.ledger.Len())

	entries, err := f.ledger.ListByItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.QualityGood, entries[0].Quality)
	assert.InDelta(t, 0.0, entries[0].IntervalAtReview, 1e-9, "entry records the interval before the transition")
	assert.Equal(t, 3000, entries[0].DurationMs)

	// The stored item reflects the transition.
	stored, err := f.items.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Repetition)
}

func TestSubmitReviewInvalidQuality(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()
	item := f.flagItem(t, userID, "vocab:1")

	for _, q := range []int{0, 4, 6, -1} {
		_, err := f.service.SubmitReview(context.Background(), userID, item.ID, review.ReviewSubmission{
			Quality: domain.ReviewQuality(q),
		})
		require.ErrorIs(t, err, review.ErrInvalidQuality, "quality %d", q)
	}

	require.Equal(t, 0, f.ledger.Len(), "rejected submissions must not touch the ledger")
}

func TestSubmitReviewUnknownItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.service.SubmitReview(context.Background(), uuid.New(), uuid.New(), review.ReviewSubmission{
		Quality: domain.QualityGood,
	})
	require.ErrorIs(t, err, review.ErrItemNotFound)
}

func TestSubmitReviewForeignItem(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	owner := uuid.New()
	item := f.flagItem(t, owner, "vocab:1")

	_, err := f.service.SubmitReview(context.Background(), uuid.New(), item.ID, review.ReviewSubmission{
		Quality: domain.QualityGood,
	})
	require.ErrorIs(t, err, review.ErrItemNotOwned)
}

// racingTransactor commits a competing update to the same item right
// before the wrapped transaction runs, simulating a double submission
// where the other request wins.
type racingTransactor struct {
	race func()
}

func (r *racingTransactor) WithTransaction(ctx context.Context, fn store.TxFn) error {
	if r.race != nil {
		r.race()
	}
	return fn(ctx, nil)
}

func TestSubmitReviewConcurrentModification(t *testing.T) {
	t.Parallel()
	items := mocks.NewItemStore()
	ledger := mocks.NewLedgerStore()
	userID := uuid.New()

	item, err := domain.NewReviewItem(userID, "vocab:rc")
	require.NoError(t, err)
	require.NoError(t, items.Create(context.Background(), item))

	tx := &racingTransactor{
		race: func() {
			// A competing submission commits first and bumps the version.
			current, err := items.GetByID(context.Background(), item.ID)
			if err != nil {
				panic(err)
			}
			if err := items.Update(context.Background(), current); err != nil {
				panic(err)
			}
		},
	}

	service := review.NewReviewService(items, ledger, tx, sm2.NewDefaultService(), nil)

	_, err = service.SubmitReview(context.Background(), userID, item.ID, review.ReviewSubmission{
		Quality: domain.QualityGood,
	})
	require.ErrorIs(t, err, review.ErrConcurrentModification)
	require.Equal(t, 0, ledger.Len(), "losing submission must not append to the ledger")
}

func TestSubmitReviewIdempotentReplay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()
	item := f.flagItem(t, userID, "vocab:1")

	submission := review.ReviewSubmission{
		Quality:        domain.QualityEasy,
		IdempotencyKey: "req-abc-123",
	}

	first, err := f.service.SubmitReview(context.Background(), userID, item.ID, submission)
	require.NoError(t, err)
	require.False(t, first.Replayed)

	// The retry replays the stored outcome instead of double-applying.
	second, err := f.service.SubmitReview(context.Background(), userID, item.ID, submission)
	require.NoError(t, err)
	require.True(t, second.Replayed)

	assert.Equal(t, 1, f.ledger.Len(), "retry must not append a second ledger entry")
	assert.Equal(t, first.Item.Repetition, second.Item.Repetition)
	assert.InDelta(t, first.Item.EaseFactor, second.Item.EaseFactor, 1e-9)
	assert.InDelta(t, first.Item.IntervalDays, second.Item.IntervalDays, 1e-9)
}

func TestDueQueueOrderingAndFiltering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	oldest := f.flagItem(t, userID, "vocab:oldest")
	middle := f.flagItem(t, userID, "vocab:middle")
	future := f.flagItem(t, userID, "vocab:future")

	// Space out the due dates; push one item into the future.
	now := time.Now().UTC()
	setNextReview(t, f.items, oldest, now.Add(-48*time.Hour))
	setNextReview(t, f.items, middle, now.Add(-1*time.Hour))
	setNextReview(t, f.items, future, now.Add(24*time.Hour))

	queue, err := f.service.DueQueue(context.Background(), userID, 10)
	require.NoError(t, err)
	require.Len(t, queue, 2, "future items must never appear in the due queue")
	assert.Equal(t, oldest.ID, queue[0].ID, "oldest due item comes first")
	assert.Equal(t, middle.ID, queue[1].ID)
}

func TestDueQueueRespectsLimit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	for i := 0; i < 5; i++ {
		f.flagItem(t, userID, "vocab:"+uuid.NewString())
	}

	queue, err := f.service.DueQueue(context.Background(), userID, 3)
	require.NoError(t, err)
	require.Len(t, queue, 3)

	_, err = f.service.DueQueue(context.Background(), userID, 0)
	require.ErrorIs(t, err, review.ErrInvalidLimit)
}

func TestPracticeQueueNeverMutatesState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	for i := 0; i < 4; i++ {
		f.flagItem(t, userID, "vocab:"+uuid.NewString())
	}
	before := f.items.Snapshot()

	queue, err := f.service.PracticeQueue(context.Background(), userID, 3)
	require.NoError(t, err)
	require.Len(t, queue, 3)

	after := f.items.Snapshot()
	require.Equal(t, before, after, "practice reads must leave every item untouched")
	require.Equal(t, 0, f.ledger.Len(), "practice must never reach the ledger")
}

func TestStats(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	a := f.flagItem(t, userID, "vocab:a")
	f.flagItem(t, userID, "vocab:b")

	_, err := f.service.SubmitReview(context.Background(), userID, a.ID, review.ReviewSubmission{
		Quality: domain.QualityGood,
	})
	require.NoError(t, err)

	stats, err := f.service.Stats(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalItems)
	assert.Equal(t, int64(1), stats.TotalReviews)
	assert.Equal(t, int64(1), stats.DueItems, "the reviewed item moved out of the due set")
}

func TestSchedulePreviewGroupsByDay(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()

	a := f.flagItem(t, userID, "vocab:a")
	b := f.flagItem(t, userID, "vocab:b")
	c := f.flagItem(t, userID, "vocab:c")

	// Anchor at midnight so adding hours cannot cross a day boundary.
	now := time.Now().UTC()
	tomorrow := now.Truncate(24 * time.Hour).AddDate(0, 0, 1)
	inThreeDays := tomorrow.AddDate(0, 0, 2)
	setNextReview(t, f.items, a, tomorrow.Add(9*time.Hour))
	setNextReview(t, f.items, b, tomorrow.Add(11*time.Hour))
	setNextReview(t, f.items, c, inThreeDays.Add(9*time.Hour))

	schedule, err := f.service.SchedulePreview(context.Background(), userID, 7)
	require.NoError(t, err)
	require.Len(t, schedule, 2)

	assert.Equal(t, tomorrow.Format("2006-01-02"), schedule[0].Day)
	assert.Len(t, schedule[0].Items, 2)
	assert.Equal(t, inThreeDays.Format("2006-01-02"), schedule[1].Day)
	assert.Len(t, schedule[1].Items, 1)

	_, err = f.service.SchedulePreview(context.Background(), userID, 0)
	require.ErrorIs(t, err, review.ErrInvalidPreviewDays)
}

func TestSchedulePreviewAnnotatesLastReview(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()
	item := f.flagItem(t, userID, "vocab:1")

	_, err := f.service.SubmitReview(context.Background(), userID, item.ID, review.ReviewSubmission{
		Quality:    domain.QualityGood,
		DurationMs: 2200,
	})
	require.NoError(t, err)

	schedule, err := f.service.SchedulePreview(context.Background(), userID, 7)
	require.NoError(t, err)
	require.Len(t, schedule, 1)
	require.Len(t, schedule[0].Items, 1)

	info := schedule[0].Items[0]
	require.NotNil(t, info.LastQuality)
	assert.Equal(t, int(domain.QualityGood), *info.LastQuality)
	require.NotNil(t, info.LastDurationMs)
	assert.Equal(t, 2200, *info.LastDurationMs)
}

func TestItemHistoryIsConsistentAfterReviews(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	userID := uuid.New()
	item := f.flagItem(t, userID, "vocab:1")

	for _, q := range []domain.ReviewQuality{domain.QualityGood, domain.QualityEasy, domain.QualityBlackout} {
		_, err := f.service.SubmitReview(context.Background(), userID, item.ID, review.ReviewSubmission{
			Quality: q,
		})
		require.NoError(t, err)
	}

	history, err := f.service.ItemHistory(context.Background(), userID, item.ID)
	require.NoError(t, err)
	require.Len(t, history.Entries, 3)
	assert.True(t, history.Consistent, "replaying the ledger must reproduce the materialized state")
}

// setNextReview rewrites an item's schedule directly through the store,
// bypassing the service, to set up queue scenarios.
func setNextReview(t *testing.T, items *mocks.ItemStore, item *domain.ReviewItem, at time.Time) {
	t.Helper()
	current, err := items.GetByID(context.Background(), item.ID)
	require.NoError(t, err)
	current.NextReviewAt = at
	require.NoError(t, items.Update(context.Background(), current))
}
