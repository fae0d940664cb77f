package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewReviewItem(t *testing.T) {
	t.Parallel()
	userID := uuid.New()

	item, err := NewReviewItem(userID, "vocab:42")
	require.NoError(t, err)

	require.Equal(t, userID, item.UserID)
	require.Equal(t, "vocab:42", item.ContentRef)
	require.Equal(t, DefaultEaseFactor, item.EaseFactor)
	require.Equal(t, 0, item.Repetition)
	require.Equal(t, 0.0, item.IntervalDays)
	require.Equal(t, int64(1), item.Version)
	require.True(t, item.LastReviewedAt.IsZero())

	// New items are due immediately.
	require.True(t, item.IsDue(time.Now().UTC()))
}

func TestNewReviewItemRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	_, err := NewReviewItem(uuid.Nil, "vocab:42")
	require.ErrorIs(t, err, ErrEmptyItemUserID)

	_, err = NewReviewItem(uuid.New(), "")
	require.ErrorIs(t, err, ErrEmptyContentRef)
}

func TestReviewItemValidate(t *testing.T) {
	t.Parallel()

	valid := func() *ReviewItem {
		return &ReviewItem{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			ContentRef: "vocab:1",
			EaseFactor: DefaultEaseFactor,
		}
	}

	testCases := []struct {
		name    string
		mutate  func(*ReviewItem)
		wantErr error
	}{
		{
			name:    "valid item",
			mutate:  func(i *ReviewItem) {},
			wantErr: nil,
		},
		{
			name:    "ease factor below floor",
			mutate:  func(i *ReviewItem) { i.EaseFactor = 1.29 },
			wantErr: ErrInvalidEaseFactor,
		},
		{
			name:    "negative repetition",
			mutate:  func(i *ReviewItem) { i.Repetition = -1 },
			wantErr: ErrInvalidRepetition,
		},
		{
			name:    "negative interval",
			mutate:  func(i *ReviewItem) { i.IntervalDays = -0.5 },
			wantErr: ErrInvalidInterval,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item := valid()
			tc.mutate(item)

			err := item.Validate()
			if tc.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestIsDue(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	item := &ReviewItem{NextReviewAt: now}
	require.True(t, item.IsDue(now), "item due exactly now should be due")

	item.NextReviewAt = now.Add(time.Second)
	require.False(t, item.IsDue(now), "future item should not be due")

	item.NextReviewAt = now.Add(-time.Hour)
	require.True(t, item.IsDue(now), "overdue item should be due")
}
