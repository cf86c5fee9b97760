package billingconfig

import (
	"context"
)

// Repository defines the interface for billing config persistence
type Repository interface {
	Create(ctx context.Context, cfg *BillingConfig) error
	Update(ctx context.Context, cfg *BillingConfig) error

	// GetByTenant returns the tenant's current plan configuration or
	// ErrNotFound when the tenant was never configured (defaults apply)
	GetByTenant(ctx context.Context, tenantID string) (*BillingConfig, error)
}
