package sm2

import (
	"errors"
	"time"

	"github.com/fluentloop/recall-api/internal/domain"
)

// Common errors
var (
	ErrNilItem        = errors.New("review item cannot be nil")
	ErrInvalidQuality = errors.New("invalid review quality")
	ErrReplayMismatch = errors.New("replayed state does not match materialized state")
)

// Service defines the interface for SM-2 scheduling operations.
type Service interface {
	// Apply computes the item's next scheduling state for a review with
	// the given quality, together with the ledger entry recording it.
	// The returned item is a new instance; the input is not modified.
	Apply(
		item *domain.ReviewItem,
		quality domain.ReviewQuality,
		durationMs int,
		now time.Time,
	) (*domain.ReviewItem, *domain.ReviewLogEntry, error)

	// Replay folds an item's full review history over its initial state
	// and returns the resulting scheduling state. The ledger is the
	// source of truth: the result must equal the materialized item.
	Replay(initial *domain.ReviewItem, history []*domain.ReviewLogEntry) (*domain.ReviewItem, error)
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params *Params
}

// NewDefaultService creates an SM-2 service with the canonical parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates an SM-2 service with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{params: params}
}

// Apply implements the Service interface.
func (s *defaultService) Apply(
	item *domain.ReviewItem,
	quality domain.ReviewQuality,
	durationMs int,
	now time.Time,
) (*domain.ReviewItem, *domain.ReviewLogEntry, error) {
	if item == nil {
		return nil, nil, ErrNilItem
	}

	if !quality.IsValid() {
		return nil, nil, ErrInvalidQuality
	}

	// The ledger entry records the interval in effect before this
	// review was applied.
	entry, err := domain.NewReviewLogEntry(item.ID, quality, item.IntervalDays, durationMs, now)
	if err != nil {
		return nil, nil, err
	}

	next := calculateNextItem(item, quality, now, s.params)
	return next, entry, nil
}

// Replay implements the Service interface.
func (s *defaultService) Replay(
	initial *domain.ReviewItem,
	history []*domain.ReviewLogEntry,
) (*domain.ReviewItem, error) {
	if initial == nil {
		return nil, ErrNilItem
	}

	state := *initial
	state.EaseFactor = domain.DefaultEaseFactor
	state.Repetition = 0
	state.IntervalDays = 0
	state.LastReviewedAt = time.Time{}
	state.NextReviewAt = state.CreatedAt

	current := &state
	for _, entry := range history {
		if !entry.Quality.IsValid() {
			return nil, ErrInvalidQuality
		}
		current = calculateNextItem(current, entry.Quality, entry.ReviewedAt, s.params)
	}

	return current, nil
}
