package adjustment

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// BillingAdjustment is a recurring addon or discount applied to a tenant.
// Kind is free text entered by billing staff; discount classification happens
// via substring matching downstream, so this model does not constrain it.
type BillingAdjustment struct {
	// Unique identifier for this adjustment
	ID string `json:"id" db:"id"`
	// Kind is a free-text label, e.g. "Addon WhatsApp" or "Descuento lealtad"
	Kind string `json:"kind" db:"kind"`
	// Mode selects percent-of-base or absolute-value application
	Mode types.AdjustmentMode `json:"mode" db:"mode"`
	// Currency, when set, must be USD; other currencies are rejected at
	// pricing time rather than here, so historical rows keep loading
	Currency string `json:"currency" db:"currency"`
	// Value is either a percentage of the base plan or an absolute USD amount
	Value decimal.Decimal `json:"value" db:"value"`
	// StartsAt/EndsAt bound the active window; nil means unbounded
	StartsAt *time.Time `json:"starts_at,omitempty" db:"starts_at"`
	EndsAt   *time.Time `json:"ends_at,omitempty" db:"ends_at"`

	types.BaseModel
}

// ActiveAt reports whether the adjustment applies on the given instant
func (a *BillingAdjustment) ActiveAt(at time.Time) bool {
	if a.StartsAt != nil && at.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && at.After(*a.EndsAt) {
		return false
	}
	return true
}

// Validate validates the adjustment
func (a *BillingAdjustment) Validate() error {
	if a.Kind == "" {
		return ierr.NewError("invalid adjustment kind").
			WithHint("Adjustment kind cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if err := a.Mode.Validate(); err != nil {
		return ierr.NewError("invalid adjustment mode").
			WithHint("Adjustment mode must be PERCENT or ABSOLUTE").
			Mark(ierr.ErrValidation)
	}
	if a.StartsAt != nil && a.EndsAt != nil && a.EndsAt.Before(*a.StartsAt) {
		return ierr.NewError("invalid adjustment window").
			WithHint("Adjustment end date cannot be before its start date").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the adjustment
func (a *BillingAdjustment) TableName() string {
	return "billing_adjustments"
}
