package joblock

import (
	"time"

	"github.com/agensuite/cobranza/internal/types"
)

// JobLock is a named mutual-exclusion lease. Locks are leased, not held for
// the process lifetime: a stuck worker cannot wedge the schedule past the
// lease's TTL, because an expired lease is eligible for takeover.
type JobLock struct {
	// LockKey is the unique name of the lease (job+adapter+date)
	LockKey string `json:"lock_key" db:"lock_key"`
	// OwnerRunID is the run id of the worker holding the lease
	OwnerRunID string `json:"owner_run_id" db:"owner_run_id"`
	// Metadata carries context about the holder for operators
	Metadata types.Metadata `json:"metadata,omitempty" db:"metadata"`

	AcquiredAt time.Time  `json:"acquired_at" db:"acquired_at"`
	ExpiresAt  time.Time  `json:"expires_at" db:"expires_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty" db:"released_at"`
}

// Stealable reports whether the lease can be taken over at the given instant
func (l *JobLock) Stealable(now time.Time) bool {
	return l.ReleasedAt != nil || now.After(l.ExpiresAt)
}

// TableName returns the table name for the job lock
func (l *JobLock) TableName() string {
	return "job_locks"
}
