package testutil

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/domain/adjustment"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// InMemoryAdjustmentStore implements adjustment.Repository
type InMemoryAdjustmentStore struct {
	*InMemoryStore[*adjustment.BillingAdjustment]
}

// NewInMemoryAdjustmentStore creates a new in-memory adjustment store
func NewInMemoryAdjustmentStore() *InMemoryAdjustmentStore {
	return &InMemoryAdjustmentStore{
		InMemoryStore: NewInMemoryStore[*adjustment.BillingAdjustment](),
	}
}

type adjustmentActiveFilter struct {
	tenantID string
	at       time.Time
}

func adjustmentFilterFn(ctx context.Context, a *adjustment.BillingAdjustment, filter interface{}) bool {
	if a == nil {
		return false
	}
	f, ok := filter.(*adjustmentActiveFilter)
	if !ok {
		return true
	}
	if a.TenantID != f.tenantID || a.Status != types.StatusActive {
		return false
	}
	return a.ActiveAt(f.at)
}

func adjustmentSortFn(i, j *adjustment.BillingAdjustment) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryAdjustmentStore) Create(ctx context.Context, adj *adjustment.BillingAdjustment) error {
	if adj == nil {
		return ierr.NewError("adjustment cannot be nil").
			WithHint("Please provide a valid adjustment").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, adj.ID, adj)
}

func (s *InMemoryAdjustmentStore) Get(ctx context.Context, id string) (*adjustment.BillingAdjustment, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryAdjustmentStore) Update(ctx context.Context, adj *adjustment.BillingAdjustment) error {
	return s.InMemoryStore.Update(ctx, adj.ID, adj)
}

func (s *InMemoryAdjustmentStore) ListActiveAt(ctx context.Context, tenantID string, at time.Time) ([]*adjustment.BillingAdjustment, error) {
	filter := &adjustmentActiveFilter{tenantID: tenantID, at: at}
	return s.InMemoryStore.List(ctx, filter, adjustmentFilterFn, adjustmentSortFn)
}

// Clear clears the adjustment store
func (s *InMemoryAdjustmentStore) Clear() {
	s.InMemoryStore.Clear()
}
