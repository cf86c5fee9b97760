package cycle

import (
	"context"
)

// Repository defines the interface for billing cycle persistence
type Repository interface {
	Create(ctx context.Context, cycle *BillingCycle) error
	Get(ctx context.Context, id string) (*BillingCycle, error)

	// GetByTenantAndAnchor is the idempotency probe of the cycle runner:
	// it returns ErrNotFound when no cycle exists for the tenant on that
	// civil date
	GetByTenantAndAnchor(ctx context.Context, tenantID string, anchorDateKey string) (*BillingCycle, error)

	// ListByAnchor retrieves every cycle materialized on a civil date
	ListByAnchor(ctx context.Context, anchorDateKey string) ([]*BillingCycle, error)
}
