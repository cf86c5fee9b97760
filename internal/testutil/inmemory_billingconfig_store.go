package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/billingconfig"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryBillingConfigStore implements billingconfig.Repository
type InMemoryBillingConfigStore struct {
	*InMemoryStore[*billingconfig.BillingConfig]
}

// NewInMemoryBillingConfigStore creates a new in-memory billing config store
func NewInMemoryBillingConfigStore() *InMemoryBillingConfigStore {
	return &InMemoryBillingConfigStore{
		InMemoryStore: NewInMemoryStore[*billingconfig.BillingConfig](),
	}
}

func (s *InMemoryBillingConfigStore) Create(ctx context.Context, cfg *billingconfig.BillingConfig) error {
	if cfg == nil {
		return ierr.NewError("billing config cannot be nil").
			WithHint("Please provide a valid billing config").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, cfg.ID, cfg)
}

func (s *InMemoryBillingConfigStore) Update(ctx context.Context, cfg *billingconfig.BillingConfig) error {
	return s.InMemoryStore.Update(ctx, cfg.ID, cfg)
}

func (s *InMemoryBillingConfigStore) GetByTenant(ctx context.Context, tenantID string) (*billingconfig.BillingConfig, error) {
	configs, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg != nil && cfg.TenantID == tenantID {
			return cfg, nil
		}
	}
	return nil, ierr.NewError("billing config not found").
		WithHintf("No billing config for tenant %s", tenantID).
		Mark(ierr.ErrNotFound)
}

// Clear clears the billing config store
func (s *InMemoryBillingConfigStore) Clear() {
	s.InMemoryStore.Clear()
}
