// Package milestones computes achievement badges and study streaks from
// aggregate counts: vocabulary size thresholds, streak thresholds, and
// the current consecutive-day study streak.
package milestones

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/platform/logger"
	"github.com/fluentloop/recall-api/internal/store"
)

// Threshold lists are ordered ascending and process-wide constants.
var (
	vocabThresholds  = []int64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}
	streakThresholds = []int{3, 7, 14, 30, 60, 100, 180, 365}
)

// streakLookbackDays bounds how far back the streak walk queries daily
// activity. Streaks longer than this are reported at the cap.
const streakLookbackDays = 730

// Milestone is one threshold-based achievement.
type Milestone struct {
	Threshold int64 `json:"threshold"`
	Achieved  bool  `json:"achieved"`
	// Progress is set only on the first unachieved milestone, as the
	// fraction of the threshold reached.
	Progress *float64 `json:"progress,omitempty"`
}

// Report is the full milestone payload for one user.
type Report struct {
	VocabSize        int64       `json:"vocab_size"`
	CurrentStreak    int         `json:"current_streak"`
	DueReviewsCount  int64       `json:"due_reviews_count"`
	VocabMilestones  []Milestone `json:"vocab_milestones"`
	StreakMilestones []Milestone `json:"streak_milestones"`
}

// Tracker derives milestone reports from store aggregate queries.
type Tracker struct {
	items  store.ReviewItemStore
	ledger store.ReviewLogStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a Tracker over the given stores.
// If logger is nil, a default logger will be used.
func NewTracker(items store.ReviewItemStore, ledger store.ReviewLogStore, log *slog.Logger) *Tracker {
	if items == nil {
		panic("items store cannot be nil")
	}
	if ledger == nil {
		panic("ledger store cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Tracker{
		items:  items,
		ledger: ledger,
		logger: log.With(slog.String("component", "milestone_tracker")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Report computes the user's milestone state.
func (t *Tracker) Report(ctx context.Context, userID uuid.UUID) (*Report, error) {
	log := logger.FromContextOrDefault(ctx, t.logger)
	now := t.now()

	vocabSize, err := t.items.CountByUser(ctx, userID)
	if err != nil {
		log.Error("failed to count vocabulary",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	dueCount, err := t.items.CountDue(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	streak, err := t.currentStreak(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	return &Report{
		VocabSize:        vocabSize,
		CurrentStreak:    streak,
		DueReviewsCount:  dueCount,
		VocabMilestones:  buildMilestones(vocabSize, vocabThresholds),
		StreakMilestones: buildStreakMilestones(streak),
	}, nil
}

// currentStreak walks daily activity counts backward from today and
// stops at the first day with no reviews. Today itself counts toward the
// streak only if the user has already studied today; an idle today does
// not break a streak that ran through yesterday.
func (t *Tracker) currentStreak(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	since := now.AddDate(0, 0, -streakLookbackDays)
	activity, err := t.ledger.DailyActivity(ctx, userID, since)
	if err != nil {
		return 0, err
	}

	if len(activity) == 0 {
		return 0, nil
	}

	day := now.UTC()
	if activity[dayKey(day)] == 0 {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for i := 0; i <= streakLookbackDays; i++ {
		if activity[dayKey(day)] == 0 {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}

	return streak, nil
}

// buildMilestones marks achieved thresholds and annotates the first
// unachieved one with progress toward it.
func buildMilestones(value int64, thresholds []int64) []Milestone {
	result := make([]Milestone, len(thresholds))
	progressSet := false
	for i, threshold := range thresholds {
		m := Milestone{
			Threshold: threshold,
			Achieved:  value >= threshold,
		}
		if !m.Achieved && !progressSet {
			progress := float64(value) / float64(threshold)
			m.Progress = &progress
			progressSet = true
		}
		result[i] = m
	}
	return result
}

func buildStreakMilestones(streak int) []Milestone {
	thresholds := make([]int64, len(streakThresholds))
	for i, t := range streakThresholds {
		thresholds[i] = int64(t)
	}
	return buildMilestones(int64(streak), thresholds)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
