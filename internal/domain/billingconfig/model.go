package billingconfig

import (
	"github.com/agensuite/cobranza/internal/types"
)

// Plan and seat defaults applied when a tenant has no explicit configuration
const (
	DefaultPlanKey   = "basico"
	DefaultSeatCount = 3
)

// BillingConfig is a tenant's current plan configuration. Created at
// onboarding, mutated by plan changes, never deleted.
type BillingConfig struct {
	// Unique identifier for this configuration row
	ID string `json:"id" db:"id"`
	// PlanKey selects the row of the plan pricing table
	PlanKey string `json:"plan_key" db:"plan_key"`
	// SeatCount is the number of seats the tenant pays for
	SeatCount int `json:"seat_count" db:"seat_count"`
	// SeatLimit caps how many seats the tenant may provision
	SeatLimit int `json:"seat_limit" db:"seat_limit"`

	types.BaseModel
}

// EffectivePlanKey falls back to the default plan when unset
func (c *BillingConfig) EffectivePlanKey() string {
	if c == nil || c.PlanKey == "" {
		return DefaultPlanKey
	}
	return c.PlanKey
}

// EffectiveSeatCount falls back to the default seat count when unset
func (c *BillingConfig) EffectiveSeatCount() int {
	if c == nil || c.SeatCount <= 0 {
		return DefaultSeatCount
	}
	return c.SeatCount
}

// TableName returns the table name for the billing config
func (c *BillingConfig) TableName() string {
	return "billing_configs"
}
