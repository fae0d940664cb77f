package sm2

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func testItem(easeFactor float64, repetition int, intervalDays float64) *domain.ReviewItem {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ReviewItem{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		ContentRef:   "vocab:12345",
		EaseFactor:   easeFactor,
		Repetition:   repetition,
		IntervalDays: intervalDays,
		NextReviewAt: now,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCalculateNewEaseFactor(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()

	testCases := []struct {
		name      string
		currentEF float64
		quality   domain.ReviewQuality
		expected  float64
	}{
		{
			name:      "perfect recall raises ease factor",
			currentEF: 2.5,
			quality:   domain.QualityEasy,
			expected:  2.6,
		},
		{
			name:      "good recall leaves ease factor roughly flat",
			currentEF: 2.5,
			quality:   domain.QualityGood,
			// 2.5 + (0.1 - 2*(0.08 + 2*0.02)) = 2.5 - 0.14
			expected: 2.36,
		},
		{
			name:      "ease factor never drops below the floor",
			currentEF: 1.3,
			quality:   domain.QualityGood,
			expected:  1.3,
		},
		{
			name:      "near-floor result clamps to the floor",
			currentEF: 1.35,
			quality:   domain.QualityGood,
			expected:  1.3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateNewEaseFactor(tc.currentEF, tc.quality, params)
			if !almostEqual(got, tc.expected) {
				t.Errorf("calculateNewEaseFactor(%v, %d) = %v, want %v",
					tc.currentEF, tc.quality, got, tc.expected)
			}
		})
	}
}

func TestCalculateNextItem(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

	testCases := []struct {
		name             string
		item             *domain.ReviewItem
		quality          domain.ReviewQuality
		expectEF         float64
		expectRepetition int
		expectInterval   float64
	}{
		{
			name:             "mature item with perfect recall",
			item:             testItem(2.5, 2, 6.0),
			quality:          domain.QualityEasy,
			expectEF:         2.6,
			expectRepetition: 3,
			expectInterval:   15.6, // 6.0 * 2.6, new ease factor applied first
		},
		{
			name:             "blackout resets repetition and interval, keeps ease factor",
			item:             testItem(2.5, 5, 42.0),
			quality:          domain.QualityBlackout,
			expectEF:         2.5,
			expectRepetition: 0,
			expectInterval:   1.0,
		},
		{
			name:             "hard miss also resets",
			item:             testItem(2.1, 3, 12.0),
			quality:          domain.QualityHard,
			expectEF:         2.1,
			expectRepetition: 0,
			expectInterval:   1.0,
		},
		{
			name:             "first successful review of a new item",
			item:             testItem(2.5, 0, 0),
			quality:          domain.QualityGood,
			expectEF:         2.36,
			expectRepetition: 1,
			expectInterval:   1.0,
		},
		{
			name:             "second successful review",
			item:             testItem(2.36, 1, 1.0),
			quality:          domain.QualityGood,
			expectEF:         2.22,
			expectRepetition: 2,
			expectInterval:   6.0,
		},
		{
			name:             "third review multiplies previous interval by new ease factor",
			item:             testItem(2.6, 3, 15.6),
			quality:          domain.QualityEasy,
			expectEF:         2.7,
			expectRepetition: 4,
			expectInterval:   15.6 * 2.7,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next := calculateNextItem(tc.item, tc.quality, now, params)

			if !almostEqual(next.EaseFactor, tc.expectEF) {
				t.Errorf("EaseFactor = %v, want %v", next.EaseFactor, tc.expectEF)
			}
			if next.Repetition != tc.expectRepetition {
				t.Errorf("Repetition = %d, want %d", next.Repetition, tc.expectRepetition)
			}
			if !almostEqual(next.IntervalDays, tc.expectInterval) {
				t.Errorf("IntervalDays = %v, want %v", next.IntervalDays, tc.expectInterval)
			}
			if !next.LastReviewedAt.Equal(now) {
				t.Errorf("LastReviewedAt = %v, want %v", next.LastReviewedAt, now)
			}

			wantNext := now.Add(time.Duration(tc.expectInterval * float64(24*time.Hour)))
			if !next.NextReviewAt.Equal(wantNext) {
				t.Errorf("NextReviewAt = %v, want %v", next.NextReviewAt, wantNext)
			}
		})
	}
}

func TestCalculateNextItemDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	params := NewDefaultParams()
	now := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

	item := testItem(2.5, 2, 6.0)
	before := *item

	_ = calculateNextItem(item, domain.QualityEasy, now, params)

	if *item != before {
		t.Errorf("input item was mutated: got %+v, want %+v", *item, before)
	}
}

func TestNextReviewAtPreservesFractionalIntervals(t *testing.T) {
	t.Parallel()
	reviewedAt := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	got := nextReviewAt(reviewedAt, 15.6)
	want := reviewedAt.Add(time.Duration(15.6 * float64(24*time.Hour)))
	if !got.Equal(want) {
		t.Errorf("nextReviewAt = %v, want %v", got, want)
	}

	// 15.6 days is 15 days and 14.4 hours.
	if got.Sub(reviewedAt).Hours() < 374 || got.Sub(reviewedAt).Hours() > 375 {
		t.Errorf("interval spans %.2f hours, want ~374.4", got.Sub(reviewedAt).Hours())
	}
}
