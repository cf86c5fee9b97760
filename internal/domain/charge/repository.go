package charge

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/types"
)

// ListFilters defines filters for listing charges
type ListFilters struct {
	TenantID       string
	Status         *types.ChargeStatus
	DueBefore      *time.Time
	MinDunning     *int
	PaidSince      *time.Time
	PaidViaChannel *types.CollectionChannel
	Limit          int
}

// Repository defines the interface for billing charge persistence
type Repository interface {
	Create(ctx context.Context, charge *BillingCharge) error
	Get(ctx context.Context, id string) (*BillingCharge, error)
	Update(ctx context.Context, charge *BillingCharge) error
	List(ctx context.Context, filters *ListFilters) ([]*BillingCharge, error)
	Count(ctx context.Context, filters *ListFilters) (int, error)
}
