package sm2

import (
	"time"

	"github.com/fluentloop/recall-api/internal/domain"
)

// calculateNewEaseFactor applies the SM-2 easiness update for a
// successful review.
//
// The formula uses the distance of the rating from a perfect 5:
//
//	EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02))
//
// and the result is clamped at params.MinEaseFactor. Failed reviews
// (quality below the success threshold) never reach this function; their
// ease factor is left untouched by design.
func calculateNewEaseFactor(
	currentEF float64,
	quality domain.ReviewQuality,
	params *Params,
) float64 {
	miss := float64(5 - int(quality))
	newEF := currentEF + (0.1 - miss*(0.08+miss*0.02))

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNextItem produces the item's state after one review, applying
// the SM-2 transition in its exact canonical branch order:
//
//  1. quality < 3: repetition resets to 0, interval to one day, ease
//     factor unchanged. This happens regardless of how mature the item
//     was — a lapse always sends it back to the start.
//  2. first successful review: repetition 1, interval one day.
//  3. second successful review: repetition 2, interval six days.
//  4. later successful reviews: repetition increments and the interval
//     is the previous interval multiplied by the freshly updated ease
//     factor.
//
// The ease factor update always uses the ease factor from before this
// review. Following immutability principles this returns a new item and
// leaves the input untouched.
func calculateNextItem(
	item *domain.ReviewItem,
	quality domain.ReviewQuality,
	now time.Time,
	params *Params,
) *domain.ReviewItem {
	next := *item

	if !quality.IsSuccess() {
		next.Repetition = 0
		next.IntervalDays = params.FirstInterval
	} else {
		next.EaseFactor = calculateNewEaseFactor(item.EaseFactor, quality, params)

		switch item.Repetition {
		case 0:
			next.Repetition = 1
			next.IntervalDays = params.FirstInterval
		case 1:
			next.Repetition = 2
			next.IntervalDays = params.SecondInterval
		default:
			next.Repetition = item.Repetition + 1
			next.IntervalDays = item.IntervalDays * next.EaseFactor
		}
	}

	next.LastReviewedAt = now
	next.NextReviewAt = nextReviewAt(now, next.IntervalDays)
	next.UpdatedAt = now

	return &next
}

// nextReviewAt converts a fractional interval in days to the next review
// timestamp, preserving next_review_at == last_reviewed_at + interval.
func nextReviewAt(reviewedAt time.Time, intervalDays float64) time.Time {
	return reviewedAt.Add(time.Duration(intervalDays * float64(24*time.Hour)))
}
