package cycle

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// BillingCycle is one billing period instance for a tenant. At most one
// non-duplicate cycle exists per (tenant, anchor date); the cycle runner
// treats a pre-existing cycle for that date as skip, not recreate.
type BillingCycle struct {
	// Unique identifier for this cycle
	ID string `json:"id" db:"id"`
	// SubscriptionID links the cycle to the subscription that anchored it
	SubscriptionID string `json:"subscription_id" db:"subscription_id"`
	// AnchorDate is the local midnight the cycle fired on
	AnchorDate time.Time `json:"anchor_date" db:"anchor_date"`
	// AnchorDateKey is the civil date key used for the uniqueness check
	AnchorDateKey string `json:"anchor_date_key" db:"anchor_date_key"`
	// Snapshot is the fully itemized pricing computed at anchor time; it is
	// persisted verbatim and never recomputed for a past charge
	Snapshot PricingSnapshot `json:"snapshot" db:"snapshot"`

	types.BaseModel
}

// PricingSnapshot is the immutable, fully itemized charge amount for a cycle.
// Every monetary intermediate is rounded to 2 decimals at each step so stored
// fields reproduce exactly under re-display.
type PricingSnapshot struct {
	PlanKey           string           `json:"plan_key"`
	SeatCount         int              `json:"seat_count"`
	BasePlanUsd       decimal.Decimal  `json:"base_plan_usd"`
	Adjustments       []AdjustmentLine `json:"adjustments,omitempty"`
	AddonsTotalUsd    decimal.Decimal  `json:"addons_total_usd"`
	PreDiscountNetUsd decimal.Decimal  `json:"pre_discount_net_usd"`
	DiscountPercent   decimal.Decimal  `json:"discount_percent"`
	DiscountUsd       decimal.Decimal  `json:"discount_usd"`
	NetUsd            decimal.Decimal  `json:"net_usd"`
	VatRatePercent    decimal.Decimal  `json:"vat_rate_percent"`
	VatUsd            decimal.Decimal  `json:"vat_usd"`
	TotalUsd          decimal.Decimal  `json:"total_usd"`
	FxRateDateKey     string           `json:"fx_rate_date_key"`
	FxRateArsPerUsd   decimal.Decimal  `json:"fx_rate_ars_per_usd"`
	TotalArs          decimal.Decimal  `json:"total_ars"`
}

// AdjustmentLine is the per-adjustment breakdown inside a snapshot
type AdjustmentLine struct {
	AdjustmentID string               `json:"adjustment_id"`
	Kind         string               `json:"kind"`
	Mode         types.AdjustmentMode `json:"mode"`
	Currency     string               `json:"currency,omitempty"`
	Value        decimal.Decimal      `json:"value"`
	AmountUsd    decimal.Decimal      `json:"amount_usd"`
	Applied      bool                 `json:"applied"`
	Reason       string               `json:"reason,omitempty"`
}

// Validate validates the billing cycle
func (c *BillingCycle) Validate() error {
	if c.SubscriptionID == "" {
		return ierr.NewError("invalid subscription id").
			WithHint("Cycle must reference a subscription").
			Mark(ierr.ErrValidation)
	}
	if c.AnchorDateKey == "" {
		return ierr.NewError("invalid anchor date key").
			WithHint("Cycle must carry its anchor date key").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the billing cycle
func (c *BillingCycle) TableName() string {
	return "billing_cycles"
}
