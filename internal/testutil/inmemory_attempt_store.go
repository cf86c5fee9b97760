package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/attempt"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryAttemptStore implements attempt.Repository
type InMemoryAttemptStore struct {
	*InMemoryStore[*attempt.BillingAttempt]
}

// NewInMemoryAttemptStore creates a new in-memory billing attempt store
func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{
		InMemoryStore: NewInMemoryStore[*attempt.BillingAttempt](),
	}
}

func attemptFilterFn(ctx context.Context, a *attempt.BillingAttempt, filter interface{}) bool {
	if a == nil {
		return false
	}
	f, ok := filter.(*attempt.ListFilters)
	if !ok || f == nil {
		return true
	}
	if f.TenantID != "" && a.TenantID != f.TenantID {
		return false
	}
	if f.ChargeID != "" && a.ChargeID != f.ChargeID {
		return false
	}
	if f.BatchID != "" {
		if a.BatchID == nil || *a.BatchID != f.BatchID {
			return false
		}
	}
	if f.Channel != nil && a.Channel != *f.Channel {
		return false
	}
	if f.Status != nil && a.AttemptStatus != *f.Status {
		return false
	}
	if f.DueBefore != nil && !a.ScheduledFor.Before(*f.DueBefore) {
		return false
	}
	if f.ProcessedSince != nil {
		if a.ProcessedAt == nil || a.ProcessedAt.Before(*f.ProcessedSince) {
			return false
		}
	}
	if f.Unbatched && a.InOpenBatch() {
		return false
	}
	return true
}

func attemptSortFn(i, j *attempt.BillingAttempt) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryAttemptStore) Create(ctx context.Context, a *attempt.BillingAttempt) error {
	if a == nil {
		return ierr.NewError("attempt cannot be nil").
			WithHint("Please provide a valid attempt").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, a.ID, a)
}

func (s *InMemoryAttemptStore) Get(ctx context.Context, id string) (*attempt.BillingAttempt, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryAttemptStore) Update(ctx context.Context, a *attempt.BillingAttempt) error {
	return s.InMemoryStore.Update(ctx, a.ID, a)
}

func (s *InMemoryAttemptStore) List(ctx context.Context, filters *attempt.ListFilters) ([]*attempt.BillingAttempt, error) {
	attempts, err := s.InMemoryStore.List(ctx, filters, attemptFilterFn, attemptSortFn)
	if err != nil {
		return nil, err
	}
	if filters != nil {
		attempts = limitSlice(attempts, filters.Limit)
	}
	return attempts, nil
}

func (s *InMemoryAttemptStore) Count(ctx context.Context, filters *attempt.ListFilters) (int, error) {
	return s.InMemoryStore.Count(ctx, filters, attemptFilterFn)
}

// Clear clears the attempt store
func (s *InMemoryAttemptStore) Clear() {
	s.InMemoryStore.Clear()
}
