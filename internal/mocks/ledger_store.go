package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fluentloop/recall-api/internal/domain"
	"github.com/fluentloop/recall-api/internal/store"
)

// LedgerStore is an in-memory store.ReviewLogStore.
// All methods are safe for concurrent use. Owners are tracked so the
// user-scoped queries work without a join; register items with SetOwner.
type LedgerStore struct {
	mu      sync.Mutex
	entries []*domain.ReviewLogEntry
	owners  map[uuid.UUID]uuid.UUID // item ID -> user ID

	// Err, when set, is returned by every method.
	Err error
}

// NewLedgerStore creates an empty in-memory ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{owners: make(map[uuid.UUID]uuid.UUID)}
}

var _ store.ReviewLogStore = (*LedgerStore)(nil)

// WithTx returns the store itself; the in-memory fake has no transactions.
func (s *LedgerStore) WithTx(tx *sql.Tx) store.ReviewLogStore { return s }

// SetOwner registers which user owns an item, mirroring the join the
// Postgres implementation performs through review_items.
func (s *LedgerStore) SetOwner(itemID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[itemID] = userID
}

// Len returns the number of appended entries.
func (s *LedgerStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *LedgerStore) Append(ctx context.Context, entry *domain.ReviewLogEntry) error {
	if s.Err != nil {
		return s.Err
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.IdempotencyKey != "" {
		for _, existing := range s.entries {
			if existing.ItemID == entry.ItemID && existing.IdempotencyKey == entry.IdempotencyKey {
				return store.ErrIdempotencyKeyExists
			}
		}
	}

	clone := *entry
	s.entries = append(s.entries, &clone)
	return nil
}

func (s *LedgerStore) GetByIdempotencyKey(
	ctx context.Context,
	itemID uuid.UUID,
	key string,
) (*domain.ReviewLogEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.ItemID == itemID && entry.IdempotencyKey == key {
			clone := *entry
			return &clone, nil
		}
	}
	return nil, store.ErrLogEntryNotFound
}

func (s *LedgerStore) ListByItem(
	ctx context.Context,
	itemID uuid.UUID,
) ([]*domain.ReviewLogEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	entries := s.collect(func(entry *domain.ReviewLogEntry) bool {
		return entry.ItemID == itemID
	})
	sortByReviewedAt(entries)
	return entries, nil
}

func (s *LedgerStore) ForEachByUser(
	ctx context.Context,
	userID uuid.UUID,
	batchSize int,
	fn func(*domain.ReviewLogEntry) error,
) error {
	if s.Err != nil {
		return s.Err
	}

	entries := s.collect(func(entry *domain.ReviewLogEntry) bool {
		return s.ownerOf(entry.ItemID) == userID
	})
	sortByReviewedAt(entries)

	for _, entry := range entries {
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerStore) LastByItems(
	ctx context.Context,
	itemIDs []uuid.UUID,
) (map[uuid.UUID]*domain.ReviewLogEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	entries := s.collect(func(entry *domain.ReviewLogEntry) bool {
		return wanted[entry.ItemID]
	})
	sortByReviewedAt(entries)

	result := make(map[uuid.UUID]*domain.ReviewLogEntry)
	for _, entry := range entries {
		result[entry.ItemID] = entry
	}
	return result, nil
}

func (s *LedgerStore) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.collect(func(entry *domain.ReviewLogEntry) bool {
		return s.ownerOf(entry.ItemID) == userID
	}))), nil
}

func (s *LedgerStore) DailyActivity(
	ctx context.Context,
	userID uuid.UUID,
	since time.Time,
) (map[string]int, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	entries := s.collect(func(entry *domain.ReviewLogEntry) bool {
		return s.ownerOf(entry.ItemID) == userID && !entry.ReviewedAt.Before(since)
	})

	activity := make(map[string]int)
	for _, entry := range entries {
		activity[entry.ReviewedAt.UTC().Format("2006-01-02")]++
	}
	return activity, nil
}

func (s *LedgerStore) collect(keep func(*domain.ReviewLogEntry) bool) []*domain.ReviewLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*domain.ReviewLogEntry
	for _, entry := range s.entries {
		if keep(entry) {
			clone := *entry
			entries = append(entries, &clone)
		}
	}
	return entries
}

// ownerOf is called from collect's predicate with the lock already held.
func (s *LedgerStore) ownerOf(itemID uuid.UUID) uuid.UUID {
	return s.owners[itemID]
}

func sortByReviewedAt(entries []*domain.ReviewLogEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].ReviewedAt.Equal(entries[j].ReviewedAt) {
			return entries[i].ReviewedAt.Before(entries[j].ReviewedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
}
