package jobrun

import (
	"context"
)

// Repository defines the interface for job run ledger persistence.
// The ledger is append-plus-finalize: rows are inserted RUNNING and updated
// exactly once with their terminal state.
type Repository interface {
	Create(ctx context.Context, run *JobRun) error
	Get(ctx context.Context, id string) (*JobRun, error)
	Update(ctx context.Context, run *JobRun) error

	// ListRecent returns the most recent runs, newest first, for the
	// operations overview
	ListRecent(ctx context.Context, limit int) ([]*JobRun, error)
}
