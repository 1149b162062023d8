package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ciclismopt/assist/internal/db"
)

// DismissalStore persists per-user trigger dismissals so a dismissed kind
// stays quiet across restarts until its window expires.
type DismissalStore interface {
	Dismiss(ctx context.Context, userID uuid.UUID, kind Kind, at time.Time) error
	DismissedAt(ctx context.Context, userID uuid.UUID, kind Kind) (time.Time, bool, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// --------------------------------------------------------------------------
// Postgres-backed store
// --------------------------------------------------------------------------

type PGDismissalStore struct {
	pool *db.Pool
}

func NewPGDismissalStore(pool *db.Pool) *PGDismissalStore {
	return &PGDismissalStore{pool: pool}
}

func (s *PGDismissalStore) Dismiss(ctx context.Context, userID uuid.UUID, kind Kind, at time.Time) error {
	if _, err := s.pool.Exec(ctx, "dismissal_upsert", userID, string(kind), at); err != nil {
		return fmt.Errorf("upsert dismissal: %w", err)
	}
	return nil
}

func (s *PGDismissalStore) DismissedAt(ctx context.Context, userID uuid.UUID, kind Kind) (time.Time, bool, error) {
	var at time.Time
	err := s.pool.QueryRow(ctx, "dismissal_get", userID, string(kind)).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("get dismissal: %w", err)
	}
	return at, true, nil
}

func (s *PGDismissalStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "dismissals_purge", before)
	if err != nil {
		return 0, fmt.Errorf("purge dismissals: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --------------------------------------------------------------------------
// In-memory store — tests and single-node development
// --------------------------------------------------------------------------

type MemoryDismissalStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]map[Kind]time.Time
}

func NewMemoryDismissalStore() *MemoryDismissalStore {
	return &MemoryDismissalStore{data: map[uuid.UUID]map[Kind]time.Time{}}
}

func (s *MemoryDismissalStore) Dismiss(ctx context.Context, userID uuid.UUID, kind Kind, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[userID] == nil {
		s.data[userID] = map[Kind]time.Time{}
	}
	s.data[userID][kind] = at
	return nil
}

func (s *MemoryDismissalStore) DismissedAt(ctx context.Context, userID uuid.UUID, kind Kind) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.data[userID][kind]
	return at, ok, nil
}

func (s *MemoryDismissalStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for user, kinds := range s.data {
		for kind, at := range kinds {
			if at.Before(before) {
				delete(kinds, kind)
				n++
			}
		}
		if len(kinds) == 0 {
			delete(s.data, user)
		}
	}
	return n, nil
}
