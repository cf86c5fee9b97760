package service

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/domain/jobrun"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// StartRunRequest describes the execution about to begin
type StartRunRequest struct {
	JobName       string
	Source        types.JobRunSource
	TargetDateKey string
	Adapter       string
	ActorUserID   string
	Metadata      map[string]interface{}
}

// JobRunService maintains the execution ledger. Every run is recorded before
// any work happens, including runs that lose the lock race.
type JobRunService interface {
	// Start appends a RUNNING row and returns it
	Start(ctx context.Context, req *StartRunRequest) (*jobrun.JobRun, error)

	// Finish finalizes the run exactly once; finishing a terminal run is a
	// logged no-op
	Finish(ctx context.Context, run *jobrun.JobRun, status types.JobRunStatus, counters map[string]int, metadata map[string]interface{}, errMsg *string) error

	// ListRecent returns the newest runs for the operations overview
	ListRecent(ctx context.Context, limit int) ([]*jobrun.JobRun, error)
}

type jobRunService struct {
	ServiceParams
}

// NewJobRunService creates a new job run service
func NewJobRunService(params ServiceParams) JobRunService {
	return &jobRunService{ServiceParams: params}
}

func (s *jobRunService) Start(ctx context.Context, req *StartRunRequest) (*jobrun.JobRun, error) {
	run := &jobrun.JobRun{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JOB_RUN),
		JobName:       req.JobName,
		RunID:         types.GenerateUUID(),
		Source:        req.Source,
		TargetDateKey: req.TargetDateKey,
		Adapter:       req.Adapter,
		RunStatus:     types.JobRunStatusRunning,
		Metadata:      req.Metadata,
		ActorUserID:   req.ActorUserID,
		StartedAt:     time.Now().UTC(),
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := run.Validate(); err != nil {
		return nil, err
	}
	if err := s.JobRunRepo.Create(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *jobRunService) Finish(ctx context.Context, run *jobrun.JobRun, status types.JobRunStatus, counters map[string]int, metadata map[string]interface{}, errMsg *string) error {
	if !status.IsTerminal() {
		return ierr.NewError("non-terminal finish status").
			WithHintf("Cannot finish a run with status %s", status).
			Mark(ierr.ErrValidation)
	}
	if !run.Finish(time.Now().UTC(), status, counters, metadata, errMsg) {
		s.Logger.Warnw("ignoring duplicate finish for job run",
			"run_id", run.RunID,
			"job_name", run.JobName,
			"run_status", run.RunStatus)
		return nil
	}
	return s.JobRunRepo.Update(ctx, run)
}

func (s *jobRunService) ListRecent(ctx context.Context, limit int) ([]*jobrun.JobRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.JobRunRepo.ListRecent(ctx, limit)
}
