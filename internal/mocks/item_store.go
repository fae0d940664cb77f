package mocks

import (
	"context"
	"database/sql"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/store"
)

// ItemStore is an in-memory store.ReviewItemStore.
// All methods are safe for concurrent use.
type ItemStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.ReviewItem

	// Err, when set, is returned by every method. Useful for testing
	// error propagation.
	Err error
}

// NewItemStore creates an empty in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[uuid.UUID]*domain.ReviewItem)}
}

var _ store.ReviewItemStore = (*ItemStore)(nil)

// WithTx returns the store itself; the in-memory fake has no transactions.
func (s *ItemStore) WithTx(tx *sql.Tx) store.ReviewItemStore { return s }

// Snapshot returns deep copies of all stored items, for before/after
// mutation assertions.
func (s *ItemStore) Snapshot() map[uuid.UUID]domain.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]domain.ReviewItem, len(s.items))
	for id, item := range s.items {
		snapshot[id] = *item
	}
	return snapshot
}

func (s *ItemStore) Create(ctx context.Context, item *domain.ReviewItem) error {
	if s.Err != nil {
		return s.Err
	}
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.UserID == item.UserID && existing.ContentRef == item.ContentRef {
			return store.ErrContentRefExists
		}
	}

	clone := *item
	s.items[item.ID] = &clone
	return nil
}

func (s *ItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ReviewItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

func (s *ItemStore) GetByContentRef(
	ctx context.Context,
	userID uuid.UUID,
	contentRef string,
) (*domain.ReviewItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.UserID == userID && item.ContentRef == contentRef {
			clone := *item
			return &clone, nil
		}
	}
	return nil, store.ErrItemNotFound
}

func (s *ItemStore) Update(ctx context.Context, item *domain.ReviewItem) error {
	if s.Err != nil {
		return s.Err
	}
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return store.ErrItemNotFound
	}
	if existing.Version != item.Version {
		return store.ErrConcurrentModification
	}

	clone := *item
	clone.Version = item.Version + 1
	s.items[item.ID] = &clone
	return nil
}

func (s *ItemStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.ReviewItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	items := s.collect(func(item *domain.ReviewItem) bool {
		return item.UserID == userID && !item.NextReviewAt.After(now)
	})
	sortByNextReview(items)
	return truncate(items, limit), nil
}

func (s *ItemStore) SamplePractice(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.ReviewItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	items := s.collect(func(item *domain.ReviewItem) bool {
		return item.UserID == userID
	})
	rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
	return truncate(items, limit), nil
}

func (s *ItemStore) ListScheduled(
	ctx context.Context,
	userID uuid.UUID,
	from, through time.Time,
) ([]*domain.ReviewItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	items := s.collect(func(item *domain.ReviewItem) bool {
		return item.UserID == userID &&
			item.NextReviewAt.After(from) &&
			!item.NextReviewAt.After(through)
	})
	sortByNextReview(items)
	return items, nil
}

func (s *ItemStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.collect(func(item *domain.ReviewItem) bool {
		return item.UserID == userID
	}))), nil
}

func (s *ItemStore) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.collect(func(item *domain.ReviewItem) bool {
		return item.UserID == userID && !item.NextReviewAt.After(now)
	}))), nil
}

func (s *ItemStore) collect(keep func(*domain.ReviewItem) bool) []*domain.ReviewItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*domain.ReviewItem
	for _, item := range s.items {
		if keep(item) {
			clone := *item
			items = append(items, &clone)
		}
	}
	return items
}

func sortByNextReview(items []*domain.ReviewItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].NextReviewAt.Equal(items[j].NextReviewAt) {
			return items[i].NextReviewAt.Before(items[j].NextReviewAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}

func truncate(items []*domain.ReviewItem, limit int) []*domain.ReviewItem {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
