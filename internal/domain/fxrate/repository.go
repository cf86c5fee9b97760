package fxrate

import (
	"context"
)

// Repository defines the interface for FX rate lookups. Rates are written by
// an external loader; the engine only reads them.
type Repository interface {
	// GetByDate returns the rate for a civil date or ErrNotFound
	GetByDate(ctx context.Context, dateKey string) (*Rate, error)

	// Upsert stores a rate; used by the loader and by tests
	Upsert(ctx context.Context, rate *Rate) error
}
