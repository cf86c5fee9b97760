package attempt

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// BillingAttempt is one collection try for a charge via a channel. An attempt
// is immutable once terminal; escalation opens a new attempt instead.
type BillingAttempt struct {
	// Unique identifier for this attempt
	ID string `json:"id" db:"id"`
	// ChargeID links the attempt to the charge it collects
	ChargeID string `json:"charge_id" db:"charge_id"`
	// Channel the attempt is presented through
	Channel types.CollectionChannel `json:"channel" db:"channel"`
	// AttemptStatus is the attempt's state
	AttemptStatus types.AttemptStatus `json:"attempt_status" db:"attempt_status"`
	// ScheduledFor is when the attempt becomes eligible for presentment
	ScheduledFor time.Time `json:"scheduled_for" db:"scheduled_for"`
	// ProcessedAt records when the bank answered for this attempt
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	// BatchID is set once the attempt joins an outbound batch; an attempt
	// belongs to at most one open outbound batch at a time
	BatchID *string `json:"batch_id,omitempty" db:"batch_id"`

	types.BaseModel
}

// InOpenBatch reports whether the attempt is already claimed by a batch
func (a *BillingAttempt) InOpenBatch() bool {
	return a.BatchID != nil && *a.BatchID != ""
}

// Validate validates the attempt
func (a *BillingAttempt) Validate() error {
	if a.ChargeID == "" {
		return ierr.NewError("invalid charge id").
			WithHint("Attempt must reference a charge").
			Mark(ierr.ErrValidation)
	}
	if err := a.Channel.Validate(); err != nil {
		return ierr.NewError("invalid channel").
			WithHint("Attempt channel is invalid").
			Mark(ierr.ErrValidation)
	}
	if err := a.AttemptStatus.Validate(); err != nil {
		return ierr.NewError("invalid attempt status").
			WithHint("Attempt status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the attempt
func (a *BillingAttempt) TableName() string {
	return "billing_attempts"
}
