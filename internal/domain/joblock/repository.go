package joblock

import (
	"context"
)

// Repository defines the two-step acquisition primitive. Acquisition first
// attempts an unconditional Insert (unique constraint on lock_key); on
// ErrAlreadyExists the caller attempts a conditional Steal. The conditional
// update is what makes two racing stealers safe: exactly one wins.
type Repository interface {
	// Insert creates the lock row; returns ErrAlreadyExists when a row for
	// the key is present regardless of its lease state
	Insert(ctx context.Context, lock *JobLock) error

	// Steal atomically re-owns the row iff the existing lease is expired or
	// released. Returns false when the current lease is still live.
	Steal(ctx context.Context, lock *JobLock) (bool, error)

	// Release marks released_at, scoped by owner so a worker cannot release
	// a lock it no longer owns after expiry and takeover. An empty owner
	// releases unconditionally (operator override).
	Release(ctx context.Context, lockKey string, ownerRunID string) error

	// Get returns the current lock row or ErrNotFound
	Get(ctx context.Context, lockKey string) (*JobLock, error)
}
