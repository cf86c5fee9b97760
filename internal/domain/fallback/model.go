package fallback

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// FallbackIntent is an alternate-channel payment offer for an overdue charge,
// created once its dunning stage crosses the configured threshold and polled
// until terminal.
type FallbackIntent struct {
	// Unique identifier for this intent
	ID string `json:"id" db:"id"`
	// ChargeID links the intent to the charge it offers to settle
	ChargeID string `json:"charge_id" db:"charge_id"`
	// Provider identifies the alternate payment provider
	Provider string `json:"provider" db:"provider"`
	// ProviderRef is the provider-side identifier for the intent
	ProviderRef string `json:"provider_ref,omitempty" db:"provider_ref"`
	// FallbackStatus is the intent state
	FallbackStatus types.FallbackStatus `json:"fallback_status" db:"fallback_status"`
	// PaidAt records settlement when the intent reaches PAID
	PaidAt *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	types.BaseModel
}

// IsOpen reports whether the intent should still be polled
func (f *FallbackIntent) IsOpen() bool {
	return f.FallbackStatus.IsOpen()
}

// Validate validates the fallback intent
func (f *FallbackIntent) Validate() error {
	if f.ChargeID == "" {
		return ierr.NewError("invalid charge id").
			WithHint("Fallback intent must reference a charge").
			Mark(ierr.ErrValidation)
	}
	if f.Provider == "" {
		return ierr.NewError("invalid provider").
			WithHint("Fallback intent must name its provider").
			Mark(ierr.ErrValidation)
	}
	if err := f.FallbackStatus.Validate(); err != nil {
		return ierr.NewError("invalid fallback status").
			WithHint("Fallback status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the fallback intent
func (f *FallbackIntent) TableName() string {
	return "fallback_intents"
}
