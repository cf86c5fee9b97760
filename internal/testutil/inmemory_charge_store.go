package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/charge"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryChargeStore implements charge.Repository
type InMemoryChargeStore struct {
	*InMemoryStore[*charge.BillingCharge]
}

// NewInMemoryChargeStore creates a new in-memory billing charge store
func NewInMemoryChargeStore() *InMemoryChargeStore {
	return &InMemoryChargeStore{
		InMemoryStore: NewInMemoryStore[*charge.BillingCharge](),
	}
}

func chargeFilterFn(ctx context.Context, c *charge.BillingCharge, filter interface{}) bool {
	if c == nil {
		return false
	}
	f, ok := filter.(*charge.ListFilters)
	if !ok || f == nil {
		return true
	}
	if f.TenantID != "" && c.TenantID != f.TenantID {
		return false
	}
	if f.Status != nil && c.ChargeStatus != *f.Status {
		return false
	}
	if f.DueBefore != nil && !c.DueDate.Before(*f.DueBefore) {
		return false
	}
	if f.MinDunning != nil && c.DunningStage < *f.MinDunning {
		return false
	}
	if f.PaidSince != nil {
		if c.PaidAt == nil || c.PaidAt.Before(*f.PaidSince) {
			return false
		}
	}
	if f.PaidViaChannel != nil {
		if c.PaidViaChannel == nil || *c.PaidViaChannel != *f.PaidViaChannel {
			return false
		}
	}
	return true
}

func chargeSortFn(i, j *charge.BillingCharge) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryChargeStore) Create(ctx context.Context, c *charge.BillingCharge) error {
	if c == nil {
		return ierr.NewError("charge cannot be nil").
			WithHint("Please provide a valid charge").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryChargeStore) Get(ctx context.Context, id string) (*charge.BillingCharge, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryChargeStore) Update(ctx context.Context, c *charge.BillingCharge) error {
	return s.InMemoryStore.Update(ctx, c.ID, c)
}

func (s *InMemoryChargeStore) List(ctx context.Context, filters *charge.ListFilters) ([]*charge.BillingCharge, error) {
	charges, err := s.InMemoryStore.List(ctx, filters, chargeFilterFn, chargeSortFn)
	if err != nil {
		return nil, err
	}
	if filters != nil {
		charges = limitSlice(charges, filters.Limit)
	}
	return charges, nil
}

func (s *InMemoryChargeStore) Count(ctx context.Context, filters *charge.ListFilters) (int, error) {
	return s.InMemoryStore.Count(ctx, filters, chargeFilterFn)
}

// Clear clears the charge store
func (s *InMemoryChargeStore) Clear() {
	s.InMemoryStore.Clear()
}
