package dto

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/agensuite/cobranza/internal/validator"
)

// RunAnchorRequest triggers cycle generation for one civil date
type RunAnchorRequest struct {
	// TargetDateKey is the civil date to run for; today when empty
	TargetDateKey string `json:"target_date_key" validate:"omitempty,len=10"`
}

func (r *RunAnchorRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateDateKey(r.TargetDateKey)
}

// PrepareBatchRequest triggers presentment batch preparation
type PrepareBatchRequest struct {
	Adapter string `json:"adapter" validate:"omitempty,max=64"`
	// BusinessDateKey is the business date to collect for; today when empty
	BusinessDateKey string `json:"business_date_key" validate:"omitempty,len=10"`
	// DryRun reports the selection without creating a batch
	DryRun bool `json:"dry_run"`
}

func (r *PrepareBatchRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return validateDateKey(r.BusinessDateKey)
}

// ReconcileBatchRequest imports a bank response file against an exported batch
type ReconcileBatchRequest struct {
	OutboundBatchID string `json:"outbound_batch_id" validate:"required"`
	// FileContent is the raw response file
	FileContent []byte `json:"file_content" validate:"required"`
}

func (r *ReconcileBatchRequest) Validate() error {
	return validator.ValidateRequest(r)
}

func validateDateKey(dateKey string) error {
	if dateKey == "" {
		return nil
	}
	if _, err := time.Parse(types.DateKeyFormat, dateKey); err != nil {
		return ierr.WithError(err).
			WithHint("Date must be in YYYY-MM-DD format").
			Mark(ierr.ErrValidation)
	}
	return nil
}
