package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/fxrate"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryFXRateStore implements fxrate.Repository
type InMemoryFXRateStore struct {
	*InMemoryStore[*fxrate.Rate]
}

// NewInMemoryFXRateStore creates a new in-memory FX rate store
func NewInMemoryFXRateStore() *InMemoryFXRateStore {
	return &InMemoryFXRateStore{
		InMemoryStore: NewInMemoryStore[*fxrate.Rate](),
	}
}

func (s *InMemoryFXRateStore) GetByDate(ctx context.Context, dateKey string) (*fxrate.Rate, error) {
	return s.InMemoryStore.Get(ctx, dateKey)
}

func (s *InMemoryFXRateStore) Upsert(ctx context.Context, rate *fxrate.Rate) error {
	if rate == nil {
		return ierr.NewError("rate cannot be nil").
			WithHint("Please provide a valid FX rate").
			Mark(ierr.ErrValidation)
	}
	if err := s.InMemoryStore.Update(ctx, rate.DateKey, rate); err != nil {
		if ierr.IsNotFound(err) {
			return s.InMemoryStore.Create(ctx, rate.DateKey, rate)
		}
		return err
	}
	return nil
}

// Clear clears the FX rate store
func (s *InMemoryFXRateStore) Clear() {
	s.InMemoryStore.Clear()
}
