package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/fallback"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryFallbackStore implements fallback.Repository
type InMemoryFallbackStore struct {
	*InMemoryStore[*fallback.FallbackIntent]
}

// NewInMemoryFallbackStore creates a new in-memory fallback intent store
func NewInMemoryFallbackStore() *InMemoryFallbackStore {
	return &InMemoryFallbackStore{
		InMemoryStore: NewInMemoryStore[*fallback.FallbackIntent](),
	}
}

func fallbackFilterFn(ctx context.Context, i *fallback.FallbackIntent, filter interface{}) bool {
	if i == nil {
		return false
	}
	f, ok := filter.(*fallback.ListFilters)
	if !ok || f == nil {
		return true
	}
	if f.ChargeID != "" && i.ChargeID != f.ChargeID {
		return false
	}
	if f.Provider != "" && i.Provider != f.Provider {
		return false
	}
	if f.Status != nil && i.FallbackStatus != *f.Status {
		return false
	}
	if f.Open && !i.IsOpen() {
		return false
	}
	return true
}

func fallbackSortFn(i, j *fallback.FallbackIntent) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryFallbackStore) Create(ctx context.Context, intent *fallback.FallbackIntent) error {
	if intent == nil {
		return ierr.NewError("intent cannot be nil").
			WithHint("Please provide a valid fallback intent").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, intent.ID, intent)
}

func (s *InMemoryFallbackStore) Get(ctx context.Context, id string) (*fallback.FallbackIntent, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryFallbackStore) Update(ctx context.Context, intent *fallback.FallbackIntent) error {
	return s.InMemoryStore.Update(ctx, intent.ID, intent)
}

func (s *InMemoryFallbackStore) List(ctx context.Context, filters *fallback.ListFilters) ([]*fallback.FallbackIntent, error) {
	intents, err := s.InMemoryStore.List(ctx, filters, fallbackFilterFn, fallbackSortFn)
	if err != nil {
		return nil, err
	}
	if filters != nil {
		intents = limitSlice(intents, filters.Limit)
	}
	return intents, nil
}

func (s *InMemoryFallbackStore) Count(ctx context.Context, filters *fallback.ListFilters) (int, error) {
	return s.InMemoryStore.Count(ctx, filters, fallbackFilterFn)
}

func (s *InMemoryFallbackStore) GetOpenByCharge(ctx context.Context, chargeID string) (*fallback.FallbackIntent, error) {
	intents, err := s.List(ctx, &fallback.ListFilters{ChargeID: chargeID, Open: true})
	if err != nil {
		return nil, err
	}
	if len(intents) == 0 {
		return nil, ierr.NewError("open intent not found").
			WithHintf("No open fallback intent for charge %s", chargeID).
			Mark(ierr.ErrNotFound)
	}
	return intents[0], nil
}

// Clear clears the fallback intent store
func (s *InMemoryFallbackStore) Clear() {
	s.InMemoryStore.Clear()
}
