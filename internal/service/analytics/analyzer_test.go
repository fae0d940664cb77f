package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/mocks"
)

func appendEntry(
	t *testing.T,
	ledger *mocks.LedgerStore,
	itemID uuid.UUID,
	quality domain.ReviewQuality,
	intervalAtReview float64,
	reviewedAt time.Time,
) {
	t.Helper()
	entry, err := domain.NewReviewLogEntry(itemID, quality, intervalAtReview, 1000, reviewedAt)
	require.NoError(t, err)
	require.NoError(t, ledger.Append(context.Background(), entry))
}

func TestMemoryCurveNoHistory(t *testing.T) {
	t.Parallel()
	analyzer := NewAnalyzer(mocks.NewItemStore(), mocks.NewLedgerStore(), nil)

	curve, err := analyzer.MemoryCurve(context.Background(), uuid.New())
	require.NoError(t, err)

	// Absence of data is a valid result, never an error.
	assert.Equal(t, StatusNoHistory, curve.Status)
	assert.Equal(t, int64(0), curve.TotalReviews)

	require.Len(t, curve.Buckets, len(retentionAnchors))
	for _, bucket := range curve.Buckets {
		assert.Equal(t, int64(0), bucket.SampleSize)
		assert.Nil(t, bucket.RetentionRate, "empty buckets report null, not zero")
	}

	// The theoretical baseline is always present.
	require.NotEmpty(t, curve.Baseline)
	assert.Equal(t, 0, curve.Baseline[0].Day)
	assert.Equal(t, 1.0, curve.Baseline[0].Retention)
}

func TestMemoryCurveAggregation(t *testing.T) {
	t.Parallel()
	items := mocks.NewItemStore()
	ledger := mocks.NewLedgerStore()
	analyzer := NewAnalyzer(items, ledger, nil)

	userID := uuid.New()
	item, err := domain.NewReviewItem(userID, "vocab:1")
	require.NoError(t, err)
	require.NoError(t, items.Create(context.Background(), item))
	ledger.SetOwner(item.ID, userID)

	reviewedAt := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	// Three reviews near the 7-day anchor: two successes, one failure.
	appendEntry(t, ledger, item.ID, domain.QualityGood, 6.0, reviewedAt)
	appendEntry(t, ledger, item.ID, domain.QualityEasy, 8.0, reviewedAt.AddDate(0, 0, 1))
	appendEntry(t, ledger, item.ID, domain.QualityBlackout, 7.0, reviewedAt.AddDate(0, 0, 2))

	// One success at the 1-day anchor.
	appendEntry(t, ledger, item.ID, domain.QualityGood, 1.0, reviewedAt.AddDate(0, 0, 3))

	curve, err := analyzer.MemoryCurve(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, StatusOK, curve.Status)
	assert.Equal(t, int64(4), curve.TotalReviews)
	assert.Equal(t, int64(1), curve.TotalItems)

	// Anchor order is {1, 3, 7, 14, 30}.
	day1 := curve.Buckets[0]
	assert.Equal(t, int64(1), day1.SampleSize)
	require.NotNil(t, day1.RetentionRate)
	assert.InDelta(t, 1.0, *day1.RetentionRate, 1e-9)

	day7 := curve.Buckets[2]
	assert.Equal(t, int64(3), day7.SampleSize)
	assert.Equal(t, int64(2), day7.SuccessCount)
	require.NotNil(t, day7.RetentionRate)
	assert.InDelta(t, 2.0/3.0, *day7.RetentionRate, 1e-9)

	for _, bucket := range curve.Buckets {
		if bucket.RetentionRate != nil {
			assert.GreaterOrEqual(t, *bucket.RetentionRate, 0.0)
			assert.LessOrEqual(t, *bucket.RetentionRate, 1.0)
		}
	}
}

func TestBucketIndexBoundaries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		interval float64
		want     int // index into retentionAnchors
	}{
		{0, 0},
		{1.0, 0},
		{1.99, 0},
		{2.0, 1}, // midpoint of 1 and 3
		{3.0, 1},
		{4.99, 1},
		{5.0, 2}, // midpoint of 3 and 7
		{7.0, 2},
		{10.49, 2},
		{10.5, 3}, // midpoint of 7 and 14
		{14.0, 3},
		{21.99, 3},
		{22.0, 4}, // midpoint of 14 and 30
		{30.0, 4},
		{365.0, 4},
	}

	for _, tc := range testCases {
		got := bucketIndex(tc.interval)
		assert.Equal(t, tc.want, got, "interval %.2f", tc.interval)
	}
}

func TestHistogramIndex(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		interval float64
		want     string
	}{
		{0, "0-2"},
		{1.9, "0-2"},
		{2.0, "2-5"},
		{4.9, "2-5"},
		{5.0, "5-10"},
		{10.0, "10-20"},
		{20.0, "20-30"},
		{30.0, "30+"},
		{1000.0, "30+"},
	}

	for _, tc := range testCases {
		got := histogramRanges[histogramIndex(tc.interval)].Label
		assert.Equal(t, tc.want, got, "interval %.2f", tc.interval)
	}
}

func TestEbbinghausBaselineIsMonotonicDecreasing(t *testing.T) {
	t.Parallel()

	points := ebbinghausBaseline()
	require.Len(t, points, len(retentionAnchors)+1)

	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i].Retention, points[i-1].Retention,
			"retention must fall as the delay grows (day %d)", points[i].Day)
		assert.Greater(t, points[i].Retention, 0.0)
		assert.Less(t, points[i].Retention, 1.0)
	}
}
