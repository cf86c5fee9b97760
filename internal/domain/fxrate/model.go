package fxrate

import (
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// Rate is the ARS-per-USD exchange rate for a civil date, provided by an
// external rate source and cached locally.
type Rate struct {
	// DateKey is the civil date the rate applies to
	DateKey string `json:"date_key" db:"date_key"`
	// ArsPerUsd is the conversion rate applied to snapshot totals
	ArsPerUsd decimal.Decimal `json:"ars_per_usd" db:"ars_per_usd"`

	types.BaseModel
}

// TableName returns the table name for the FX rate
func (r *Rate) TableName() string {
	return "fx_rates"
}
