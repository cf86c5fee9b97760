package service

import (
	"context"
	"fmt"
	"time"

	"github.com/agensuite/cobranza/internal/domain/joblock"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// LockKey builds the lease name for a job on an adapter and civil date.
// Adapter is empty for jobs that are not channel-scoped.
func LockKey(jobName string, adapter string, dateKey string) string {
	if adapter == "" {
		return fmt.Sprintf("billing:%s:%s", jobName, dateKey)
	}
	return fmt.Sprintf("billing:%s:%s:%s", jobName, adapter, dateKey)
}

// AcquireResult reports the outcome of a lock acquisition
type AcquireResult struct {
	Acquired bool
	// Stolen is true when the lease was taken over from an expired holder
	Stolen bool
	// HeldBy carries the live holder's run id when acquisition failed
	HeldBy string
}

// LockService leases named locks so overlapping job triggers (cron plus a
// manual rerun) cannot double-process the same work.
type LockService interface {
	// Acquire takes the lease, stealing it when the current one is expired
	// or released. A false Acquired is not an error; the caller records a
	// skipped run.
	Acquire(ctx context.Context, lockKey string, ownerRunID string, ttl time.Duration, metadata types.Metadata) (*AcquireResult, error)

	// Release marks the lease released if still owned by ownerRunID
	Release(ctx context.Context, lockKey string, ownerRunID string) error

	// ForceRelease is the operator override: it releases regardless of owner
	ForceRelease(ctx context.Context, lockKey string) error
}

type lockService struct {
	ServiceParams
}

// NewLockService creates a new lock service
func NewLockService(params ServiceParams) LockService {
	return &lockService{ServiceParams: params}
}

func (s *lockService) Acquire(ctx context.Context, lockKey string, ownerRunID string, ttl time.Duration, metadata types.Metadata) (*AcquireResult, error) {
	if lockKey == "" || ownerRunID == "" {
		return nil, ierr.NewError("invalid lock request").
			WithHint("Lock key and owner run id are required").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	lock := &joblock.JobLock{
		LockKey:    lockKey,
		OwnerRunID: ownerRunID,
		Metadata:   metadata,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	err := s.JobLockRepo.Insert(ctx, lock)
	if err == nil {
		return &AcquireResult{Acquired: true}, nil
	}
	if !ierr.IsAlreadyExists(err) {
		return nil, err
	}

	// A row exists. Take it over only if its lease is expired or released;
	// the conditional update in the repository decides atomically.
	stolen, err := s.JobLockRepo.Steal(ctx, lock)
	if err != nil {
		return nil, err
	}
	if stolen {
		s.Logger.Warnw("stole expired job lock",
			"lock_key", lockKey,
			"owner_run_id", ownerRunID)
		return &AcquireResult{Acquired: true, Stolen: true}, nil
	}

	result := &AcquireResult{Acquired: false}
	if current, getErr := s.JobLockRepo.Get(ctx, lockKey); getErr == nil {
		result.HeldBy = current.OwnerRunID
	}
	return result, nil
}

func (s *lockService) Release(ctx context.Context, lockKey string, ownerRunID string) error {
	if ownerRunID == "" {
		return ierr.NewError("missing lock owner").
			WithHint("Owned release requires the owner run id").
			Mark(ierr.ErrValidation)
	}
	return s.JobLockRepo.Release(ctx, lockKey, ownerRunID)
}

func (s *lockService) ForceRelease(ctx context.Context, lockKey string) error {
	s.Logger.Warnw("force releasing job lock", "lock_key", lockKey)
	return s.JobLockRepo.Release(ctx, lockKey, "")
}
