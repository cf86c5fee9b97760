package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/agensuite/cobranza/internal/domain/joblock"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryJobLockStore implements joblock.Repository. A single mutex stands
// in for the row-level atomicity the SQL conditional update provides.
type InMemoryJobLockStore struct {
	mu    sync.Mutex
	locks map[string]*joblock.JobLock
}

// NewInMemoryJobLockStore creates a new in-memory job lock store
func NewInMemoryJobLockStore() *InMemoryJobLockStore {
	return &InMemoryJobLockStore{
		locks: make(map[string]*joblock.JobLock),
	}
}

func (s *InMemoryJobLockStore) Insert(ctx context.Context, lock *joblock.JobLock) error {
	if lock == nil {
		return ierr.NewError("lock cannot be nil").
			WithHint("Please provide a valid job lock").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locks[lock.LockKey]; exists {
		return ierr.NewError("lock already exists").
			WithHintf("A lock row for %s already exists", lock.LockKey).
			Mark(ierr.ErrAlreadyExists)
	}

	clone := *lock
	s.locks[lock.LockKey] = &clone
	return nil
}

func (s *InMemoryJobLockStore) Steal(ctx context.Context, lock *joblock.JobLock) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.locks[lock.LockKey]
	if !exists {
		return false, ierr.NewError("lock not found").
			WithHintf("No lock row for %s", lock.LockKey).
			Mark(ierr.ErrNotFound)
	}
	if !current.Stealable(time.Now().UTC()) {
		return false, nil
	}

	clone := *lock
	clone.ReleasedAt = nil
	s.locks[lock.LockKey] = &clone
	return true, nil
}

func (s *InMemoryJobLockStore) Release(ctx context.Context, lockKey string, ownerRunID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.locks[lockKey]
	if !exists {
		return ierr.NewError("lock not found").
			WithHintf("No lock row for %s", lockKey).
			Mark(ierr.ErrNotFound)
	}
	if ownerRunID != "" && current.OwnerRunID != ownerRunID {
		// Lost ownership after expiry and takeover; releasing would clobber
		// the new holder
		return nil
	}

	now := time.Now().UTC()
	current.ReleasedAt = &now
	return nil
}

func (s *InMemoryJobLockStore) Get(ctx context.Context, lockKey string) (*joblock.JobLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.locks[lockKey]
	if !exists {
		return nil, ierr.NewError("lock not found").
			WithHintf("No lock row for %s", lockKey).
			Mark(ierr.ErrNotFound)
	}
	clone := *current
	return &clone, nil
}

// Clear clears the job lock store
func (s *InMemoryJobLockStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = make(map[string]*joblock.JobLock)
}
