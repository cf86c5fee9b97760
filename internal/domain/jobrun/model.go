package jobrun

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// JobRun is one execution of a scheduled job. It is created RUNNING and
// finalized exactly once to a terminal status; the row is never mutated after
// finish. This ledger is the only audit trail for unattended execution.
type JobRun struct {
	// Unique identifier for this row
	ID string `json:"id" db:"id"`
	// JobName identifies the logical job (run-anchor, prepare-batch, ...)
	JobName string `json:"job_name" db:"job_name"`
	// RunID is the UUID this execution uses as lock owner
	RunID string `json:"run_id" db:"run_id"`
	// Source records what triggered the execution
	Source types.JobRunSource `json:"source" db:"source"`
	// TargetDateKey is the civil date the job operated on
	TargetDateKey string `json:"target_date_key" db:"target_date_key"`
	// Adapter names the bank channel for batch jobs, empty otherwise
	Adapter string `json:"adapter,omitempty" db:"adapter"`
	// RunStatus is RUNNING until finish writes a terminal status
	RunStatus types.JobRunStatus `json:"run_status" db:"run_status"`
	// Counters carry per-job tallies (created, skipped_idempotent, ...)
	Counters map[string]int `json:"counters,omitempty" db:"counters"`
	// Metadata carries free-form context; finish merges over, never replaces
	Metadata map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	// ErrorMessage is set on FAILED/PARTIAL runs
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	// ActorUserID records the operator for MANUAL runs
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`

	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	DurationMs *int64     `json:"duration_ms,omitempty" db:"duration_ms"`

	types.BaseModel
}

// Finish stamps the terminal status, duration and merged metadata. Returns
// false when the run is already terminal.
func (r *JobRun) Finish(at time.Time, status types.JobRunStatus, counters map[string]int, metadata map[string]interface{}, errMsg *string) bool {
	if r.RunStatus.IsTerminal() {
		return false
	}
	r.RunStatus = status
	r.FinishedAt = &at
	duration := at.Sub(r.StartedAt).Milliseconds()
	r.DurationMs = &duration
	if counters != nil {
		r.Counters = counters
	}
	if len(metadata) > 0 {
		if r.Metadata == nil {
			r.Metadata = make(map[string]interface{}, len(metadata))
		}
		for k, v := range metadata {
			r.Metadata[k] = v
		}
	}
	r.ErrorMessage = errMsg
	return true
}

// Validate validates the job run
func (r *JobRun) Validate() error {
	if r.JobName == "" {
		return ierr.NewError("invalid job name").
			WithHint("Job run must name its job").
			Mark(ierr.ErrValidation)
	}
	if err := r.Source.Validate(); err != nil {
		return ierr.NewError("invalid job run source").
			WithHint("Job run source is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the job run
func (r *JobRun) TableName() string {
	return "job_runs"
}
