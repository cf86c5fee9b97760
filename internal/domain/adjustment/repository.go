package adjustment

import (
	"context"
	"time"
)

// Repository defines the interface for billing adjustment persistence
type Repository interface {
	Create(ctx context.Context, adj *BillingAdjustment) error
	Update(ctx context.Context, adj *BillingAdjustment) error
	Get(ctx context.Context, id string) (*BillingAdjustment, error)

	// ListActiveAt retrieves a tenant's adjustments whose window covers the
	// given instant (starts_at <= at <= ends_at, nil meaning unbounded)
	ListActiveAt(ctx context.Context, tenantID string, at time.Time) ([]*BillingAdjustment, error)
}
