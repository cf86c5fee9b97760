package cron

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/agensuite/cobranza/internal/api/dto"
	"github.com/agensuite/cobranza/internal/config"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/service"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/gin-gonic/gin"
)

// BillingJobHandler exposes manual triggers for the billing pipeline jobs.
// Every trigger runs through the orchestrator so it lands on the run ledger
// and honors the job locks exactly like a scheduled execution.
type BillingJobHandler struct {
	cfg          *config.Configuration
	orchestrator service.OrchestratorService
	cycles       service.CycleService
	batches      service.BatchService
	dunning      service.DunningService
	logger       *logger.Logger
}

// NewBillingJobHandler creates a new billing job handler
func NewBillingJobHandler(
	cfg *config.Configuration,
	orchestrator service.OrchestratorService,
	cycles service.CycleService,
	batches service.BatchService,
	dunning service.DunningService,
	logger *logger.Logger,
) *BillingJobHandler {
	return &BillingJobHandler{
		cfg:          cfg,
		orchestrator: orchestrator,
		cycles:       cycles,
		batches:      batches,
		dunning:      dunning,
		logger:       logger,
	}
}

// JobTriggerResponse reports the ledger run a trigger produced plus the
// job's own result payload when the job actually ran
type JobTriggerResponse struct {
	RunID     string                 `json:"run_id"`
	RunStatus types.JobRunStatus     `json:"run_status"`
	Counters  map[string]int         `json:"counters,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
}

func (h *BillingJobHandler) defaultDateKey() string {
	return types.DateKeyInTimeZone(time.Now(), h.cfg.Billing.Location())
}

func (h *BillingJobHandler) trigger(c *gin.Context, req *service.ExecuteJobRequest, fn service.JobFunc) {
	ctx := c.Request.Context()
	req.Source = types.JobRunSourceManual
	req.ActorUserID = types.GetUserID(ctx)

	var result interface{}
	run, err := h.orchestrator.ExecuteBillingJob(ctx, req, func(ctx context.Context) (*service.JobOutcome, error) {
		outcome, err := fn(ctx)
		if err != nil {
			return outcome, err
		}
		if outcome != nil {
			result = outcome.Metadata["result"]
			delete(outcome.Metadata, "result")
		}
		return outcome, nil
	})
	if err != nil {
		h.logger.Errorw("manual job trigger failed",
			"job_name", req.JobName,
			"error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, JobTriggerResponse{
		RunID:     run.RunID,
		RunStatus: run.RunStatus,
		Counters:  run.Counters,
		Metadata:  run.Metadata,
		Result:    result,
	})
}

// RunAnchor triggers cycle generation for a civil date
func (h *BillingJobHandler) RunAnchor(c *gin.Context) {
	var req dto.RunAnchorRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}
	dateKey := req.TargetDateKey
	if dateKey == "" {
		dateKey = h.defaultDateKey()
	}

	h.trigger(c, &service.ExecuteJobRequest{
		JobName:       service.JobRunAnchor,
		TargetDateKey: dateKey,
	}, func(ctx context.Context) (*service.JobOutcome, error) {
		res, err := h.cycles.RunAnchor(ctx, dateKey)
		if err != nil {
			return nil, err
		}
		return &service.JobOutcome{
			Status:   res.Status(),
			Counters: res.Counters(),
			Metadata: map[string]interface{}{"result": res},
		}, nil
	})
}

// PrepareBatch triggers presentment batch preparation for an adapter
func (h *BillingJobHandler) PrepareBatch(c *gin.Context) {
	var req dto.PrepareBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}
	adapter := req.Adapter
	if adapter == "" {
		adapter = h.cfg.Billing.DefaultAdapter
	}
	dateKey := req.BusinessDateKey
	if dateKey == "" {
		dateKey = h.defaultDateKey()
	}

	h.trigger(c, &service.ExecuteJobRequest{
		JobName:       service.JobPrepareBatch,
		TargetDateKey: dateKey,
		Adapter:       adapter,
	}, func(ctx context.Context) (*service.JobOutcome, error) {
		res, err := h.batches.Prepare(ctx, &service.PrepareBatchRequest{
			Adapter:         adapter,
			BusinessDateKey: dateKey,
			DryRun:          req.DryRun,
		})
		if err != nil {
			return nil, err
		}
		outcome := &service.JobOutcome{
			Counters: map[string]int{"selected": res.Selected},
			Metadata: map[string]interface{}{"result": res},
		}
		if res.Selected == 0 {
			outcome.Status = types.JobRunStatusNoOp
		}
		return outcome, nil
	})
}

// ExportBatch submits one prepared batch to the bank
func (h *BillingJobHandler) ExportBatch(c *gin.Context) {
	batchID := c.Param("id")

	h.trigger(c, &service.ExecuteJobRequest{
		JobName:       service.JobExportBatch,
		TargetDateKey: h.defaultDateKey(),
		LockSuffix:    batchID,
	}, func(ctx context.Context) (*service.JobOutcome, error) {
		res, err := h.batches.Export(ctx, batchID)
		if err != nil {
			return nil, err
		}
		outcome := &service.JobOutcome{
			Counters: map[string]int{"items": res.Items},
			Metadata: map[string]interface{}{"result": res},
		}
		if res.AlreadyExported {
			outcome.Status = types.JobRunStatusNoOp
		}
		return outcome, nil
	})
}

// ReconcileBatch imports an uploaded bank response file against a batch
func (h *BillingJobHandler) ReconcileBatch(c *gin.Context) {
	batchID := c.Param("id")

	fileContent, err := readResponseFile(c)
	if err != nil {
		c.Error(err)
		return
	}

	h.trigger(c, &service.ExecuteJobRequest{
		JobName:       service.JobReconcileBatch,
		TargetDateKey: h.defaultDateKey(),
		LockSuffix:    batchID,
	}, func(ctx context.Context) (*service.JobOutcome, error) {
		res, err := h.batches.Reconcile(ctx, batchID, fileContent)
		if err != nil {
			return nil, err
		}
		outcome := &service.JobOutcome{
			Counters: map[string]int{
				"approved":   res.Approved,
				"rejected":   res.Rejected,
				"error_rows": res.ErrorRows,
			},
			Metadata: map[string]interface{}{"result": res},
		}
		if res.AlreadyImported {
			outcome.Status = types.JobRunStatusNoOp
		}
		return outcome, nil
	})
}

// CreateFallbacks triggers the fallback escalation sweep
func (h *BillingJobHandler) CreateFallbacks(c *gin.Context) {
	h.trigger(c, &service.ExecuteJobRequest{
		JobName:       service.JobFallbackCreate,
		TargetDateKey: h.defaultDateKey(),
	}, func(ctx context.Context) (*service.JobOutcome, error) {
		res, err := h.dunning.CreateFallbacks(ctx)
		if err != nil {
			return nil, err
		}
		return &service.JobOutcome{
			Status:   res.Status(),
			Counters: res.Counters(),
			Metadata: map[string]interface{}{"result": res},
		}, nil
	})
}

// SyncFallbackStatus polls providers for open fallback intents
func (h *BillingJobHandler) SyncFallbackStatus(c *gin.Context) {
	h.trigger(c, &service.ExecuteJobRequest{
		JobName:       service.JobFallbackStatusSync,
		TargetDateKey: h.defaultDateKey(),
	}, func(ctx context.Context) (*service.JobOutcome, error) {
		res, err := h.dunning.SyncFallbackStatus(ctx)
		if err != nil {
			return nil, err
		}
		return &service.JobOutcome{
			Status:   res.Status(),
			Counters: res.Counters(),
			Metadata: map[string]interface{}{"result": res},
		}, nil
	})
}

// Tick runs the whole enabled pipeline for today, step by step
func (h *BillingJobHandler) Tick(c *gin.Context) {
	ctx := c.Request.Context()

	result, err := h.orchestrator.RunTick(ctx, types.JobRunSourceManual)
	if err != nil {
		h.logger.Errorw("manual tick failed", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func readResponseFile(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Could not read the uploaded file").
				Mark(ierr.ErrValidation)
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	content, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not read the request body").
			Mark(ierr.ErrValidation)
	}
	if len(content) == 0 {
		return nil, ierr.NewError("empty response file").
			WithHint("Upload the bank response file as multipart field 'file' or as the raw request body").
			Mark(ierr.ErrValidation)
	}
	return content, nil
}
