package subscription

import (
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is an agency's recurring billing agreement. The engine only
// reads these; the surrounding CRUD application owns their lifecycle.
type Subscription struct {
	// Unique identifier for this subscription
	ID string `json:"id" db:"id"`
	// BillingDay is the configured anchor day of month (1-31); months shorter
	// than the anchor day clamp to their last day
	BillingDay int `json:"billing_day" db:"billing_day"`
	// CollectionMethod is the channel charges are collected through by default
	CollectionMethod types.CollectionChannel `json:"collection_method" db:"collection_method"`
	// DiscountPercent is the subscription-level discount; only honored when
	// the collection method is direct debit
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`

	types.BaseModel
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.BillingDay < 1 || s.BillingDay > 31 {
		return ierr.NewError("invalid billing day").
			WithHintf("Billing day must be between 1 and 31, got %d", s.BillingDay).
			Mark(ierr.ErrValidation)
	}
	if err := s.CollectionMethod.Validate(); err != nil {
		return ierr.NewError("invalid collection method").
			WithHint("Collection method is invalid").
			Mark(ierr.ErrValidation)
	}
	if s.DiscountPercent.IsNegative() || s.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("invalid discount percent").
			WithHint("Discount percent must be between 0 and 100").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the subscription
func (s *Subscription) TableName() string {
	return "subscriptions"
}
