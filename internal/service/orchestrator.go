package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/agensuite/cobranza/internal/domain/filebatch"
	"github.com/agensuite/cobranza/internal/domain/jobrun"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// Job names as they appear in the run ledger and lock keys
const (
	JobRunAnchor          = "run-anchor"
	JobPrepareBatch       = "prepare-batch"
	JobExportBatch        = "export-batch"
	JobReconcileBatch     = "reconcile-batch"
	JobFallbackCreate     = "fallback-create"
	JobFallbackStatusSync = "fallback-status-sync"
	JobTick               = "tick"
)

// JobOutcome is what a job body reports back to the orchestrator
type JobOutcome struct {
	Status   types.JobRunStatus
	Counters map[string]int
	Metadata map[string]interface{}
}

// JobFunc is the body of a job, executed under lock with its run recorded
type JobFunc func(ctx context.Context) (*JobOutcome, error)

// ExecuteJobRequest describes one orchestrated execution
type ExecuteJobRequest struct {
	JobName       string
	Source        types.JobRunSource
	TargetDateKey string
	Adapter       string
	ActorUserID   string
	// LockSuffix further scopes the lock key, e.g. a batch id, so two
	// different batches of the same job can run concurrently
	LockSuffix string
}

// TickStepResult summarizes one step of a tick
type TickStepResult struct {
	JobName string             `json:"job_name"`
	RunID   string             `json:"run_id"`
	Status  types.JobRunStatus `json:"status"`
}

// TickResult summarizes a full scheduler tick
type TickResult struct {
	TargetDateKey string           `json:"target_date_key"`
	Steps         []TickStepResult `json:"steps"`
}

// OrchestratorService wraps every job body in the run ledger, the named lock
// and failure capture, and sequences the scheduler tick
type OrchestratorService interface {
	// ExecuteBillingJob records a run, takes the job's lock and executes fn.
	// Losing the lock race finishes the run SKIPPED_LOCKED without running
	// fn; a panic or error finishes it FAILED. The run row is returned in
	// every case.
	ExecuteBillingJob(ctx context.Context, req *ExecuteJobRequest, fn JobFunc) (*jobrun.JobRun, error)

	// RunTick executes the enabled pipeline steps for the current civil date
	// in order. A skipped or failed step never stops later steps.
	RunTick(ctx context.Context, source types.JobRunSource) (*TickResult, error)
}

type orchestratorService struct {
	ServiceParams
	runs    JobRunService
	locks   LockService
	cycles  CycleService
	batches BatchService
	dunning DunningService
}

// NewOrchestratorService creates a new orchestrator service
func NewOrchestratorService(
	params ServiceParams,
	runs JobRunService,
	locks LockService,
	cycles CycleService,
	batches BatchService,
	dunning DunningService,
) OrchestratorService {
	return &orchestratorService{
		ServiceParams: params,
		runs:          runs,
		locks:         locks,
		cycles:        cycles,
		batches:       batches,
		dunning:       dunning,
	}
}

func (s *orchestratorService) ExecuteBillingJob(ctx context.Context, req *ExecuteJobRequest, fn JobFunc) (run *jobrun.JobRun, err error) {
	run, err = s.runs.Start(ctx, &StartRunRequest{
		JobName:       req.JobName,
		Source:        req.Source,
		TargetDateKey: req.TargetDateKey,
		Adapter:       req.Adapter,
		ActorUserID:   req.ActorUserID,
	})
	if err != nil {
		return nil, err
	}

	lockKey := LockKey(req.JobName, req.Adapter, req.TargetDateKey)
	if req.LockSuffix != "" {
		lockKey = lockKey + ":" + req.LockSuffix
	}
	ttl := time.Duration(s.Config.Billing.LockTTLSeconds) * time.Second

	acquired, err := s.locks.Acquire(ctx, lockKey, run.RunID, ttl, types.Metadata{
		"job_name": req.JobName,
		"source":   req.Source.String(),
	})
	if err != nil {
		msg := err.Error()
		_ = s.runs.Finish(ctx, run, types.JobRunStatusFailed, nil, nil, &msg)
		return run, err
	}
	if !acquired.Acquired {
		s.Logger.Infow("job lock held, skipping run",
			"job_name", req.JobName,
			"lock_key", lockKey,
			"held_by", acquired.HeldBy)
		_ = s.runs.Finish(ctx, run, types.JobRunStatusSkippedLocked, nil, map[string]interface{}{
			"lock_key": lockKey,
			"held_by":  acquired.HeldBy,
		}, nil)
		return run, nil
	}

	defer func() {
		if releaseErr := s.locks.Release(ctx, lockKey, run.RunID); releaseErr != nil {
			s.Logger.Errorw("failed to release job lock",
				"lock_key", lockKey,
				"run_id", run.RunID,
				"error", releaseErr)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			panicErr := ierr.NewErrorf("job panicked: %v", r).
				WithReportableDetails(map[string]any{
					"job_name": req.JobName,
					"stack":    string(debug.Stack()),
				}).
				Mark(ierr.ErrSystem)
			s.Sentry.CaptureException(panicErr)
			msg := fmt.Sprintf("panic: %v", r)
			_ = s.runs.Finish(ctx, run, types.JobRunStatusFailed, nil, nil, &msg)
			// Named results: the caller still gets the failed run row
			err = panicErr
		}
	}()

	outcome, err := fn(ctx)
	if err != nil {
		s.Sentry.CaptureException(err)
		msg := err.Error()
		var counters map[string]int
		var metadata map[string]interface{}
		if outcome != nil {
			counters = outcome.Counters
			metadata = outcome.Metadata
		}
		if finishErr := s.runs.Finish(ctx, run, types.JobRunStatusFailed, counters, metadata, &msg); finishErr != nil {
			s.Logger.Errorw("failed to finalize failed run", "run_id", run.RunID, "error", finishErr)
		}
		return run, err
	}

	status := types.JobRunStatusSuccess
	var counters map[string]int
	var metadata map[string]interface{}
	if outcome != nil {
		if outcome.Status != "" {
			status = outcome.Status
		}
		counters = outcome.Counters
		metadata = outcome.Metadata
	}
	if err := s.runs.Finish(ctx, run, status, counters, metadata, nil); err != nil {
		return run, err
	}
	return run, nil
}

func (s *orchestratorService) RunTick(ctx context.Context, source types.JobRunSource) (*TickResult, error) {
	loc := s.Config.Billing.Location()
	dateKey := types.DateKeyInTimeZone(time.Now(), loc)
	adapter := s.Config.Billing.DefaultAdapter
	flags := s.Config.Billing.Jobs

	result := &TickResult{TargetDateKey: dateKey}
	record := func(name string, run *jobrun.JobRun) {
		if run != nil {
			result.Steps = append(result.Steps, TickStepResult{
				JobName: name,
				RunID:   run.RunID,
				Status:  run.RunStatus,
			})
		}
	}

	if flags.RunAnchor {
		run, _ := s.ExecuteBillingJob(ctx, &ExecuteJobRequest{
			JobName:       JobRunAnchor,
			Source:        source,
			TargetDateKey: dateKey,
		}, func(ctx context.Context) (*JobOutcome, error) {
			res, err := s.cycles.RunAnchor(ctx, dateKey)
			if err != nil {
				return nil, err
			}
			return &JobOutcome{Status: res.Status(), Counters: res.Counters()}, nil
		})
		record(JobRunAnchor, run)
	}

	if flags.PrepareBatch {
		run, _ := s.ExecuteBillingJob(ctx, &ExecuteJobRequest{
			JobName:       JobPrepareBatch,
			Source:        source,
			TargetDateKey: dateKey,
			Adapter:       adapter,
		}, func(ctx context.Context) (*JobOutcome, error) {
			res, err := s.batches.Prepare(ctx, &PrepareBatchRequest{
				Adapter:         adapter,
				BusinessDateKey: dateKey,
			})
			if err != nil {
				return nil, err
			}
			outcome := &JobOutcome{
				Counters: map[string]int{"selected": res.Selected},
				Metadata: map[string]interface{}{"total_usd": res.TotalUsd.String()},
			}
			if res.Selected == 0 {
				outcome.Status = types.JobRunStatusNoOp
			} else {
				outcome.Metadata["batch_id"] = res.BatchID
				outcome.Metadata["reference"] = res.Reference
			}
			return outcome, nil
		})
		record(JobPrepareBatch, run)
	}

	if flags.ExportBatch {
		run, _ := s.ExecuteBillingJob(ctx, &ExecuteJobRequest{
			JobName:       JobExportBatch,
			Source:        source,
			TargetDateKey: dateKey,
			Adapter:       adapter,
		}, func(ctx context.Context) (*JobOutcome, error) {
			return s.exportPreparedBatches(ctx, adapter)
		})
		record(JobExportBatch, run)
	}

	if flags.ReconcileBatch {
		run, _ := s.ExecuteBillingJob(ctx, &ExecuteJobRequest{
			JobName:       JobReconcileBatch,
			Source:        source,
			TargetDateKey: dateKey,
			Adapter:       adapter,
		}, func(ctx context.Context) (*JobOutcome, error) {
			return s.reconcileFromBank(ctx, adapter, dateKey)
		})
		record(JobReconcileBatch, run)
	}

	if flags.FallbackCreate {
		run, _ := s.ExecuteBillingJob(ctx, &ExecuteJobRequest{
			JobName:       JobFallbackCreate,
			Source:        source,
			TargetDateKey: dateKey,
		}, func(ctx context.Context) (*JobOutcome, error) {
			res, err := s.dunning.CreateFallbacks(ctx)
			if err != nil {
				return nil, err
			}
			return &JobOutcome{Status: res.Status(), Counters: res.Counters()}, nil
		})
		record(JobFallbackCreate, run)
	}

	if flags.FallbackStatusSync {
		run, _ := s.ExecuteBillingJob(ctx, &ExecuteJobRequest{
			JobName:       JobFallbackStatusSync,
			Source:        source,
			TargetDateKey: dateKey,
		}, func(ctx context.Context) (*JobOutcome, error) {
			res, err := s.dunning.SyncFallbackStatus(ctx)
			if err != nil {
				return nil, err
			}
			return &JobOutcome{Status: res.Status(), Counters: res.Counters()}, nil
		})
		record(JobFallbackStatusSync, run)
	}

	return result, nil
}

// exportPreparedBatches submits every PREPARED batch for the adapter
func (s *orchestratorService) exportPreparedBatches(ctx context.Context, adapter string) (*JobOutcome, error) {
	direction := types.BatchDirectionOutbound
	prepared := types.BatchStatusPrepared
	batches, err := s.BatchRepo.List(ctx, &filebatch.ListFilters{
		Direction: &direction,
		Status:    &prepared,
		Adapter:   adapter,
	})
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return &JobOutcome{Status: types.JobRunStatusNoOp}, nil
	}

	exported := 0
	failed := 0
	for _, b := range batches {
		if _, err := s.batches.Export(ctx, b.ID); err != nil {
			failed++
			s.Logger.Errorw("failed to export batch", "batch_id", b.ID, "error", err)
			s.Sentry.CaptureException(err)
			continue
		}
		exported++
	}

	outcome := &JobOutcome{
		Counters: map[string]int{"exported": exported, "failed": failed},
	}
	switch {
	case failed == 0:
		outcome.Status = types.JobRunStatusSuccess
	case exported == 0:
		outcome.Status = types.JobRunStatusFailed
	default:
		outcome.Status = types.JobRunStatusPartial
	}
	return outcome, nil
}

// reconcileFromBank pulls the bank's response files for the business date and
// imports each against its outbound batch
func (s *orchestratorService) reconcileFromBank(ctx context.Context, adapterName string, dateKey string) (*JobOutcome, error) {
	adapter, ok := s.BankAdapter(adapterName)
	if !ok {
		return nil, ierr.NewError("unknown bank adapter").
			WithHintf("No bank adapter registered for %q", adapterName).
			Mark(ierr.ErrNotFound)
	}

	files, err := adapter.FetchResponseFiles(ctx, dateKey)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &JobOutcome{Status: types.JobRunStatusNoOp}, nil
	}

	imported := 0
	skipped := 0
	failed := 0
	approved := 0
	rejected := 0
	for _, f := range files {
		res, err := s.batches.Reconcile(ctx, f.OutboundBatchID, f.Content)
		if err != nil {
			failed++
			s.Logger.Errorw("failed to reconcile response file",
				"outbound_batch_id", f.OutboundBatchID,
				"error", err)
			s.Sentry.CaptureException(err)
			continue
		}
		if res.AlreadyImported {
			skipped++
			continue
		}
		imported++
		approved += res.Approved
		rejected += res.Rejected
	}

	outcome := &JobOutcome{
		Counters: map[string]int{
			"files":            len(files),
			"imported":         imported,
			"skipped_imported": skipped,
			"failed":           failed,
			"approved":         approved,
			"rejected":         rejected,
		},
	}
	switch {
	case failed == 0:
		outcome.Status = types.JobRunStatusSuccess
	case imported == 0 && skipped == 0:
		outcome.Status = types.JobRunStatusFailed
	default:
		outcome.Status = types.JobRunStatusPartial
	}
	return outcome, nil
}
