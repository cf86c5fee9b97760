package charge

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// BillingCharge is the money owed for a cycle. Status advances monotonically
// until PAID or WRITTEN_OFF; amounts come verbatim from the cycle's pricing
// snapshot and are never recomputed.
type BillingCharge struct {
	// Unique identifier for this charge
	ID string `json:"id" db:"id"`
	// CycleID links the charge to its billing cycle
	CycleID string `json:"cycle_id" db:"cycle_id"`
	// SubscriptionID links the charge to the subscription it bills
	SubscriptionID string `json:"subscription_id" db:"subscription_id"`
	// NetUsd/VatUsd/TotalUsd mirror the snapshot's net, VAT and total
	NetUsd   decimal.Decimal `json:"net_usd" db:"net_usd"`
	VatUsd   decimal.Decimal `json:"vat_usd" db:"vat_usd"`
	TotalUsd decimal.Decimal `json:"total_usd" db:"total_usd"`
	// TotalArs is the ARS total at the snapshot's FX rate
	TotalArs decimal.Decimal `json:"total_ars" db:"total_ars"`
	// Currency is the settlement currency pair anchor, always "USD" today
	Currency string `json:"currency" db:"currency"`
	// DueDate is anchor date plus the configured grace period
	DueDate time.Time `json:"due_date" db:"due_date"`
	// ChargeStatus is the monotonic collection state
	ChargeStatus types.ChargeStatus `json:"charge_status" db:"charge_status"`
	// PaidAt/PaidViaChannel record settlement when the charge is PAID
	PaidAt         *time.Time               `json:"paid_at,omitempty" db:"paid_at"`
	PaidViaChannel *types.CollectionChannel `json:"paid_via_channel,omitempty" db:"paid_via_channel"`
	// DunningStage counts rejections/overdue escalations
	DunningStage int `json:"dunning_stage" db:"dunning_stage"`

	types.BaseModel
}

// IsPaid reports whether the charge has settled through any channel
func (c *BillingCharge) IsPaid() bool {
	return c.ChargeStatus == types.ChargeStatusPaid
}

// MarkPaid records settlement through a channel. Marking an already paid
// charge is a no-op so late direct-debit confirmation after a fallback
// payment cannot double-credit.
func (c *BillingCharge) MarkPaid(at time.Time, via types.CollectionChannel) bool {
	if c.ChargeStatus.IsTerminal() {
		return false
	}
	c.ChargeStatus = types.ChargeStatusPaid
	c.PaidAt = &at
	c.PaidViaChannel = &via
	return true
}

// IsOverdue reports whether a pending charge is past its due date
func (c *BillingCharge) IsOverdue(asOf time.Time) bool {
	return c.ChargeStatus == types.ChargeStatusPending && asOf.After(c.DueDate)
}

// Validate validates the charge
func (c *BillingCharge) Validate() error {
	if c.CycleID == "" {
		return ierr.NewError("invalid cycle id").
			WithHint("Charge must reference a cycle").
			Mark(ierr.ErrValidation)
	}
	if c.TotalUsd.IsNegative() {
		return ierr.NewError("invalid charge amount").
			WithHint("Charge total cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if err := c.ChargeStatus.Validate(); err != nil {
		return ierr.NewError("invalid charge status").
			WithHint("Charge status is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the charge
func (c *BillingCharge) TableName() string {
	return "billing_charges"
}
