// Package analytics derives retention statistics from the review ledger:
// the interval histogram, the bucketed memory curve, and the theoretical
// Ebbinghaus baseline the dashboard plots against it.
package analytics

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/platform/logger"
	"github.com/fluentloop/recall-api/internal/store"
)

// Status values for MemoryCurve.
const (
	// StatusOK means the curve was computed from at least one review.
	StatusOK = "ok"
	// StatusNoHistory means the user has no logged reviews yet; every
	// bucket rate is null. Absence of data is a valid result, not an
	// error.
	StatusNoHistory = "no_review_history"
)

// retentionAnchors are the day marks the retention buckets are centered
// on. Boundaries between consecutive buckets sit at the midpoint of
// their anchors, half-open on the right, so every interval value from 0
// to infinity lands in exactly one bucket.
var retentionAnchors = []int{1, 3, 7, 14, 30}

// retentionUpperBounds holds the exclusive upper bound of each anchor's
// bucket; the last bucket is unbounded.
var retentionUpperBounds = []float64{2, 5, 10.5, 22, math.Inf(1)}

// histogramRanges are the fixed display ranges for the raw interval
// histogram. Each entry is the inclusive lower bound; the upper bound is
// the next entry's lower bound, and the last range is unbounded.
var histogramRanges = []struct {
	Label string
	Lower float64
}{
	{"0-2", 0},
	{"2-5", 2},
	{"5-10", 5},
	{"10-20", 10},
	{"20-30", 20},
	{"30+", 30},
}

// Ebbinghaus (1885) savings-curve fit constants:
// b = k / ((log10 t)^c + k) with t in minutes.
const (
	ebbinghausK = 1.84
	ebbinghausC = 1.25
)

// scanBatchSize bounds how many ledger rows are held in memory at once
// while aggregating.
const scanBatchSize = 500

// HistogramBin is one bar of the raw interval histogram.
type HistogramBin struct {
	Range string `json:"range"`
	Count int64  `json:"count"`
}

// RetentionBucket is one point on the observed memory curve.
type RetentionBucket struct {
	AnchorDay     int      `json:"anchor_day"`
	SampleSize    int64    `json:"sample_size"`
	SuccessCount  int64    `json:"success_count"`
	RetentionRate *float64 `json:"retention_rate"` // nil when SampleSize == 0
}

// BaselinePoint is one point on the theoretical Ebbinghaus curve.
type BaselinePoint struct {
	Day       int     `json:"day"`
	Retention float64 `json:"retention"`
}

// MemoryCurve is the full analytics payload for one user.
type MemoryCurve struct {
	Status       string            `json:"status"`
	TotalReviews int64             `json:"total_reviews"`
	TotalItems   int64             `json:"total_items"`
	Histogram    []HistogramBin    `json:"interval_histogram"`
	Buckets      []RetentionBucket `json:"retention_buckets"`
	Baseline     []BaselinePoint   `json:"ebbinghaus_baseline"`
}

// Analyzer computes retention statistics by streaming the review ledger.
type Analyzer struct {
	items  store.ReviewItemStore
	ledger store.ReviewLogStore
	logger *slog.Logger
}

// NewAnalyzer creates an Analyzer over the given stores.
// If logger is nil, a default logger will be used.
func NewAnalyzer(items store.ReviewItemStore, ledger store.ReviewLogStore, log *slog.Logger) *Analyzer {
	if items == nil {
		panic("items store cannot be nil")
	}
	if ledger == nil {
		panic("ledger store cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Analyzer{
		items:  items,
		ledger: ledger,
		logger: log.With(slog.String("component", "retention_analyzer")),
	}
}

// MemoryCurve aggregates the user's full ledger into the interval
// histogram and the bucketed retention curve, in a single streamed pass.
// The Ebbinghaus baseline is closed-form and never derived from logged
// data; it is included purely for comparison display.
func (a *Analyzer) MemoryCurve(ctx context.Context, userID uuid.UUID) (*MemoryCurve, error) {
	log := logger.FromContextOrDefault(ctx, a.logger)

	histogram := make([]int64, len(histogramRanges))
	samples := make([]int64, len(retentionAnchors))
	successes := make([]int64, len(retentionAnchors))
	var total int64

	err := a.ledger.ForEachByUser(ctx, userID, scanBatchSize, func(entry *domain.ReviewLogEntry) error {
		total++
		histogram[histogramIndex(entry.IntervalAtReview)]++

		bucket := bucketIndex(entry.IntervalAtReview)
		samples[bucket]++
		if entry.Success() {
			successes[bucket]++
		}
		return nil
	})
	if err != nil {
		log.Error("failed to scan review ledger",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}

	totalItems, err := a.items.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	curve := &MemoryCurve{
		Status:       StatusOK,
		TotalReviews: total,
		TotalItems:   totalItems,
		Histogram:    make([]HistogramBin, len(histogramRanges)),
		Buckets:      make([]RetentionBucket, len(retentionAnchors)),
		Baseline:     ebbinghausBaseline(),
	}
	if total == 0 {
		curve.Status = StatusNoHistory
	}

	for i, r := range histogramRanges {
		curve.Histogram[i] = HistogramBin{Range: r.Label, Count: histogram[i]}
	}

	for i, anchor := range retentionAnchors {
		bucket := RetentionBucket{
			AnchorDay:    anchor,
			SampleSize:   samples[i],
			SuccessCount: successes[i],
		}
		if samples[i] > 0 {
			rate := float64(successes[i]) / float64(samples[i])
			bucket.RetentionRate = &rate
		}
		curve.Buckets[i] = bucket
	}

	return curve, nil
}

// histogramIndex maps an interval to its display range.
func histogramIndex(intervalDays float64) int {
	for i := len(histogramRanges) - 1; i > 0; i-- {
		if intervalDays >= histogramRanges[i].Lower {
			return i
		}
	}
	return 0
}

// bucketIndex maps an interval to the retention anchor it is nearest to,
// per the midpoint boundaries in retentionUpperBounds.
func bucketIndex(intervalDays float64) int {
	for i, upper := range retentionUpperBounds {
		if intervalDays < upper {
			return i
		}
	}
	return len(retentionUpperBounds) - 1
}

// ebbinghausBaseline evaluates the theoretical forgetting curve at day 0
// and at each retention anchor.
func ebbinghausBaseline() []BaselinePoint {
	points := make([]BaselinePoint, 0, len(retentionAnchors)+1)
	points = append(points, BaselinePoint{Day: 0, Retention: 1.0})
	for _, day := range retentionAnchors {
		points = append(points, BaselinePoint{Day: day, Retention: ebbinghausRetention(day)})
	}
	return points
}

// ebbinghausRetention computes the 1885 savings fit for a delay of the
// given number of days.
func ebbinghausRetention(day int) float64 {
	minutes := float64(day) * 24 * 60
	return ebbinghausK / (math.Pow(math.Log10(minutes), ebbinghausC) + ebbinghausK)
}
