package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agensuite/cobranza/internal/domain/joblock"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
)

type jobLockRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewJobLockRepository(db *postgres.DB, logger *logger.Logger) joblock.Repository {
	return &jobLockRepository{db: db, logger: logger}
}

type jobLockRow struct {
	LockKey    string     `db:"lock_key"`
	OwnerRunID string     `db:"owner_run_id"`
	Metadata   []byte     `db:"metadata"`
	AcquiredAt time.Time  `db:"acquired_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	ReleasedAt *time.Time `db:"released_at"`
}

func toJobLockRow(lock *joblock.JobLock) (*jobLockRow, error) {
	row := &jobLockRow{
		LockKey:    lock.LockKey,
		OwnerRunID: lock.OwnerRunID,
		AcquiredAt: lock.AcquiredAt,
		ExpiresAt:  lock.ExpiresAt,
		ReleasedAt: lock.ReleasedAt,
	}
	if lock.Metadata != nil {
		metadata, err := json.Marshal(lock.Metadata)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode lock metadata").
				Mark(ierr.ErrSystem)
		}
		row.Metadata = metadata
	}
	return row, nil
}

func (row *jobLockRow) toDomain() (*joblock.JobLock, error) {
	lock := &joblock.JobLock{
		LockKey:    row.LockKey,
		OwnerRunID: row.OwnerRunID,
		AcquiredAt: row.AcquiredAt,
		ExpiresAt:  row.ExpiresAt,
		ReleasedAt: row.ReleasedAt,
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &lock.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode lock metadata").
				Mark(ierr.ErrSystem)
		}
	}
	return lock, nil
}

func (r *jobLockRepository) Insert(ctx context.Context, lock *joblock.JobLock) error {
	row, err := toJobLockRow(lock)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO job_locks (
			lock_key,
			owner_run_id,
			metadata,
			acquired_at,
			expires_at,
			released_at
		) VALUES (
			:lock_key,
			:owner_run_id,
			:metadata,
			:acquired_at,
			:expires_at,
			:released_at
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("The lock is already taken").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to insert job lock").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// Steal re-owns the row in a single conditional update. Two racing stealers
// both execute this statement but the row-level lock serializes them; the
// second sees a live lease and updates zero rows.
func (r *jobLockRepository) Steal(ctx context.Context, lock *joblock.JobLock) (bool, error) {
	row, err := toJobLockRow(lock)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE job_locks SET
			owner_run_id = $1,
			metadata = $2,
			acquired_at = $3,
			expires_at = $4,
			released_at = NULL
		WHERE lock_key = $5
		  AND (released_at IS NOT NULL OR expires_at < $6)
	`

	result, err := r.db.GetQuerier(ctx).ExecContext(ctx, query,
		row.OwnerRunID, row.Metadata, row.AcquiredAt, row.ExpiresAt, row.LockKey, time.Now().UTC())
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to steal job lock").
			Mark(ierr.ErrDatabase)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to read steal result").
			Mark(ierr.ErrDatabase)
	}
	return affected > 0, nil
}

func (r *jobLockRepository) Release(ctx context.Context, lockKey string, ownerRunID string) error {
	// Owner-scoped: a worker waking up after expiry and takeover updates
	// zero rows instead of clobbering the new holder. An empty owner is the
	// operator override and releases unconditionally.
	query := `
		UPDATE job_locks SET released_at = $1
		WHERE lock_key = $2 AND ($3 = '' OR owner_run_id = $3)
	`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, time.Now().UTC(), lockKey, ownerRunID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to release job lock").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *jobLockRepository) Get(ctx context.Context, lockKey string) (*joblock.JobLock, error) {
	query := `SELECT * FROM job_locks WHERE lock_key = $1`

	var row jobLockRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, lockKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("job lock not found").
				WithHintf("No lock row exists for %s", lockKey).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get job lock").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}
