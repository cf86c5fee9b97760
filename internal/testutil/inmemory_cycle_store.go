package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/cycle"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryCycleStore implements cycle.Repository
type InMemoryCycleStore struct {
	*InMemoryStore[*cycle.BillingCycle]
}

// NewInMemoryCycleStore creates a new in-memory billing cycle store
func NewInMemoryCycleStore() *InMemoryCycleStore {
	return &InMemoryCycleStore{
		InMemoryStore: NewInMemoryStore[*cycle.BillingCycle](),
	}
}

func (s *InMemoryCycleStore) Create(ctx context.Context, c *cycle.BillingCycle) error {
	if c == nil {
		return ierr.NewError("cycle cannot be nil").
			WithHint("Please provide a valid billing cycle").
			Mark(ierr.ErrValidation)
	}

	// Enforce the (tenant, anchor date) uniqueness the real schema carries
	if _, err := s.GetByTenantAndAnchor(ctx, c.TenantID, c.AnchorDateKey); err == nil {
		return ierr.NewError("cycle already exists").
			WithHintf("Tenant %s already has a cycle for %s", c.TenantID, c.AnchorDateKey).
			Mark(ierr.ErrAlreadyExists)
	}

	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryCycleStore) Get(ctx context.Context, id string) (*cycle.BillingCycle, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryCycleStore) GetByTenantAndAnchor(ctx context.Context, tenantID string, anchorDateKey string) (*cycle.BillingCycle, error) {
	cycles, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range cycles {
		if c != nil && c.TenantID == tenantID && c.AnchorDateKey == anchorDateKey {
			return c, nil
		}
	}
	return nil, ierr.NewError("cycle not found").
		WithHintf("No cycle for tenant %s on %s", tenantID, anchorDateKey).
		Mark(ierr.ErrNotFound)
}

func (s *InMemoryCycleStore) ListByAnchor(ctx context.Context, anchorDateKey string) ([]*cycle.BillingCycle, error) {
	filterFn := func(ctx context.Context, c *cycle.BillingCycle, _ interface{}) bool {
		return c != nil && c.AnchorDateKey == anchorDateKey
	}
	sortFn := func(i, j *cycle.BillingCycle) bool {
		if i == nil || j == nil {
			return false
		}
		return i.CreatedAt.Before(j.CreatedAt)
	}
	return s.InMemoryStore.List(ctx, nil, filterFn, sortFn)
}

// Clear clears the cycle store
func (s *InMemoryCycleStore) Clear() {
	s.InMemoryStore.Clear()
}
