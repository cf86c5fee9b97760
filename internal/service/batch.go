package service

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/bank"
	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/filebatch"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/idempotency"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// PrepareBatchRequest selects due attempts into an outbound batch
type PrepareBatchRequest struct {
	Adapter         string
	BusinessDateKey string
	// DryRun reports the selection without creating the batch
	DryRun bool
}

// PrepareBatchResult reports what prepare selected (and created unless dry run)
type PrepareBatchResult struct {
	BatchID   string          `json:"batch_id,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Selected  int             `json:"selected"`
	TotalUsd  decimal.Decimal `json:"total_usd"`
	DryRun    bool            `json:"dry_run"`
}

// ExportBatchResult reports an export, including the idempotent repeat case
type ExportBatchResult struct {
	BatchID         string `json:"batch_id"`
	Items           int    `json:"items"`
	AlreadyExported bool   `json:"already_exported"`
}

// ReconcileResult tallies one response file import
type ReconcileResult struct {
	OutboundBatchID  string `json:"outbound_batch_id"`
	InboundBatchID   string `json:"inbound_batch_id,omitempty"`
	Approved         int    `json:"approved"`
	Rejected         int    `json:"rejected"`
	AlreadyPaid      int    `json:"already_paid"`
	AlreadyProcessed int    `json:"already_processed"`
	ErrorRows        int    `json:"error_rows"`
	AlreadyImported  bool   `json:"already_imported"`
}

// BatchService owns the outbound presentment batch lifecycle and the import
// of the bank's response files
type BatchService interface {
	// Prepare claims every due, unclaimed direct-debit attempt for the
	// adapter into a new PREPARED batch. Two prepares in a row pick disjoint
	// attempts because claimed attempts carry a batch id.
	Prepare(ctx context.Context, req *PrepareBatchRequest) (*PrepareBatchResult, error)

	// Export submits a PREPARED batch to the bank and marks its attempts
	// PRESENTED. Exporting an EXPORTED batch is an idempotent no-op.
	Export(ctx context.Context, batchID string) (*ExportBatchResult, error)

	// Reconcile imports one response file against its outbound batch. The
	// same file content imported twice is detected by hash and skipped.
	Reconcile(ctx context.Context, outboundBatchID string, fileContent []byte) (*ReconcileResult, error)
}

type batchService struct {
	ServiceParams
}

// NewBatchService creates a new batch service
func NewBatchService(params ServiceParams) BatchService {
	return &batchService{ServiceParams: params}
}

func (s *batchService) Prepare(ctx context.Context, req *PrepareBatchRequest) (*PrepareBatchResult, error) {
	adapterName := req.Adapter
	if adapterName == "" {
		adapterName = s.Config.Billing.DefaultAdapter
	}
	loc := s.Config.Billing.Location()
	businessDate, err := types.StartOfLocalDay(req.BusinessDateKey, loc)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Business date must be a valid YYYY-MM-DD date key").
			Mark(ierr.ErrValidation)
	}
	// Attempts scheduled any time during the business day are due
	cutoff := types.AddDaysLocal(businessDate, 1, loc)

	// Only direct-debit attempts go to the bank; QR and wallet channels
	// settle through the fallback providers
	scheduled := types.AttemptStatusScheduled
	directDebit := types.CollectionChannelDirectDebit
	attempts, err := s.AttemptRepo.List(ctx, &attempt.ListFilters{
		Channel:   &directDebit,
		Status:    &scheduled,
		DueBefore: &cutoff,
		Unbatched: true,
	})
	if err != nil {
		return nil, err
	}

	result := &PrepareBatchResult{
		Selected: len(attempts),
		TotalUsd: decimal.Zero,
		DryRun:   req.DryRun,
	}
	for _, a := range attempts {
		ch, err := s.ChargeRepo.Get(ctx, a.ChargeID)
		if err != nil {
			return nil, err
		}
		result.TotalUsd = result.TotalUsd.Add(ch.TotalUsd)
	}

	if req.DryRun || len(attempts) == 0 {
		return result, nil
	}

	batch := &filebatch.FileBatch{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FILE_BATCH),
		Reference:       types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_BATCH),
		Direction:       types.BatchDirectionOutbound,
		Adapter:         adapterName,
		BusinessDateKey: req.BusinessDateKey,
		BatchStatus:     types.BatchStatusPrepared,
		AttemptCount:    len(attempts),
		TotalUsd:        result.TotalUsd,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if err := s.BatchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}

	for _, a := range attempts {
		a.BatchID = &batch.ID
		a.UpdatedAt = time.Now().UTC()
		if err := s.AttemptRepo.Update(ctx, a); err != nil {
			return nil, err
		}
	}

	result.BatchID = batch.ID
	result.Reference = batch.Reference
	s.Logger.Infow("prepared outbound batch",
		"batch_id", batch.ID,
		"reference", batch.Reference,
		"adapter", adapterName,
		"attempts", len(attempts),
		"total_usd", result.TotalUsd)
	return result, nil
}

func (s *batchService) Export(ctx context.Context, batchID string) (*ExportBatchResult, error) {
	batch, err := s.BatchRepo.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Direction != types.BatchDirectionOutbound {
		return nil, ierr.NewError("cannot export inbound batch").
			WithHint("Only outbound batches are exported to the bank").
			Mark(ierr.ErrInvalidOperation)
	}
	if batch.BatchStatus == types.BatchStatusExported {
		s.Logger.Infow("batch already exported, skipping", "batch_id", batchID)
		return &ExportBatchResult{
			BatchID:         batchID,
			Items:           batch.AttemptCount,
			AlreadyExported: true,
		}, nil
	}
	if batch.BatchStatus != types.BatchStatusPrepared {
		return nil, ierr.NewError("batch not exportable").
			WithHintf("Batch %s is %s, expected PREPARED", batchID, batch.BatchStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	adapter, ok := s.BankAdapter(batch.Adapter)
	if !ok {
		return nil, ierr.NewError("unknown bank adapter").
			WithHintf("No bank adapter registered for %q", batch.Adapter).
			Mark(ierr.ErrNotFound)
	}

	attempts, err := s.AttemptRepo.List(ctx, &attempt.ListFilters{BatchID: batch.ID})
	if err != nil {
		return nil, err
	}

	payload := &bank.BatchPayload{
		BatchID:         batch.ID,
		Reference:       batch.Reference,
		Adapter:         batch.Adapter,
		BusinessDateKey: batch.BusinessDateKey,
		Items:           make([]bank.BatchItem, 0, len(attempts)),
	}
	for _, a := range attempts {
		ch, err := s.ChargeRepo.Get(ctx, a.ChargeID)
		if err != nil {
			return nil, err
		}
		payload.Items = append(payload.Items, bank.BatchItem{
			AttemptID: a.ID,
			ChargeID:  ch.ID,
			TenantID:  ch.TenantID,
			AmountArs: ch.TotalArs,
			DueDate:   ch.DueDate,
		})
	}

	// Submission failure leaves the batch PREPARED so the export can be
	// retried without re-selecting attempts
	if err := adapter.SubmitBatch(ctx, payload); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, a := range attempts {
		a.AttemptStatus = types.AttemptStatusPresented
		a.UpdatedAt = now
		if err := s.AttemptRepo.Update(ctx, a); err != nil {
			return nil, err
		}
	}

	batch.BatchStatus = types.BatchStatusExported
	batch.ExportedAt = &now
	batch.UpdatedAt = now
	if err := s.BatchRepo.Update(ctx, batch); err != nil {
		return nil, err
	}

	return &ExportBatchResult{BatchID: batch.ID, Items: len(attempts)}, nil
}

func (s *batchService) Reconcile(ctx context.Context, outboundBatchID string, fileContent []byte) (*ReconcileResult, error) {
	outbound, err := s.BatchRepo.Get(ctx, outboundBatchID)
	if err != nil {
		return nil, err
	}
	if outbound.Direction != types.BatchDirectionOutbound {
		return nil, ierr.NewError("cannot reconcile against inbound batch").
			WithHint("Response files reconcile against the outbound batch they answer").
			Mark(ierr.ErrInvalidOperation)
	}
	if outbound.BatchStatus == types.BatchStatusPrepared {
		return nil, ierr.NewError("batch not yet exported").
			WithHintf("Batch %s was never sent to the bank", outboundBatchID).
			Mark(ierr.ErrInvalidOperation)
	}

	fileHash := idempotency.HashFileContent(fileContent)
	if existing, err := s.BatchRepo.GetInboundByHash(ctx, outboundBatchID, fileHash); err == nil {
		s.Logger.Infow("response file already imported, skipping",
			"outbound_batch_id", outboundBatchID,
			"inbound_batch_id", existing.ID,
			"file_hash", fileHash)
		return &ReconcileResult{
			OutboundBatchID: outboundBatchID,
			InboundBatchID:  existing.ID,
			AlreadyImported: true,
		}, nil
	} else if !ierr.IsNotFound(err) {
		return nil, err
	}

	rows, malformed, err := bank.ParseResponseFile(fileContent)
	if err != nil {
		return nil, err
	}

	batchAttempts, err := s.AttemptRepo.List(ctx, &attempt.ListFilters{BatchID: outboundBatchID})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*attempt.BillingAttempt, len(batchAttempts))
	for _, a := range batchAttempts {
		byID[a.ID] = a
	}

	result := &ReconcileResult{
		OutboundBatchID: outboundBatchID,
		ErrorRows:       malformed,
	}
	now := time.Now().UTC()

	for _, row := range rows {
		a, ok := byID[row.AttemptID]
		if !ok {
			result.ErrorRows++
			s.Logger.Warnw("response row references unknown attempt",
				"outbound_batch_id", outboundBatchID,
				"attempt_id", row.AttemptID)
			continue
		}

		// Terminal attempts never re-transition. A corrected resend carries
		// different bytes, so it passes the hash check, but it may repeat
		// rows the first import already applied; re-applying a rejection
		// would double-count the charge's dunning stage.
		if a.AttemptStatus.IsTerminal() {
			result.AlreadyProcessed++
			s.Logger.Infow("response row repeats a settled attempt, skipping",
				"outbound_batch_id", outboundBatchID,
				"attempt_id", a.ID,
				"attempt_status", a.AttemptStatus)
			continue
		}

		if row.Approved() {
			a.AttemptStatus = types.AttemptStatusApproved
		} else {
			a.AttemptStatus = types.AttemptStatusRejected
		}
		a.ProcessedAt = &now
		a.UpdatedAt = now
		if err := s.AttemptRepo.Update(ctx, a); err != nil {
			return nil, err
		}

		ch, err := s.ChargeRepo.Get(ctx, a.ChargeID)
		if err != nil {
			return nil, err
		}
		if row.Approved() {
			if ch.MarkPaid(now, types.CollectionChannelDirectDebit) {
				result.Approved++
			} else {
				// Already settled through a fallback channel; the bank's
				// late confirmation must not double-credit
				result.AlreadyPaid++
				s.Logger.Infow("charge already settled, ignoring bank approval",
					"charge_id", ch.ID,
					"attempt_id", a.ID)
			}
		} else {
			result.Rejected++
			if ch.ChargeStatus == types.ChargeStatusPending {
				ch.DunningStage++
			}
		}
		ch.UpdatedAt = now
		if err := s.ChargeRepo.Update(ctx, ch); err != nil {
			return nil, err
		}
	}

	inbound := &filebatch.FileBatch{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FILE_BATCH),
		Reference:       types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_BATCH),
		Direction:       types.BatchDirectionInbound,
		Adapter:         outbound.Adapter,
		BusinessDateKey: types.DateKeyInTimeZone(now, s.Config.Billing.Location()),
		BatchStatus:     types.BatchStatusImported,
		AttemptCount:    result.Approved + result.AlreadyPaid + result.Rejected,
		OutboundBatchID: &outbound.ID,
		FileHash:        fileHash,
		ErrorRows:       result.ErrorRows,
		ImportedAt:      &now,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := inbound.Validate(); err != nil {
		return nil, err
	}
	if err := s.BatchRepo.Create(ctx, inbound); err != nil {
		return nil, err
	}

	outbound.BatchStatus = types.BatchStatusImported
	outbound.ImportedAt = &now
	outbound.UpdatedAt = now
	if err := s.BatchRepo.Update(ctx, outbound); err != nil {
		return nil, err
	}

	result.InboundBatchID = inbound.ID
	s.Logger.Infow("imported bank response file",
		"outbound_batch_id", outboundBatchID,
		"inbound_batch_id", inbound.ID,
		"approved", result.Approved,
		"rejected", result.Rejected,
		"already_paid", result.AlreadyPaid,
		"already_processed", result.AlreadyProcessed,
		"error_rows", result.ErrorRows)
	return result, nil
}
