package fallback

import (
	"context"

	"github.com/agensuite/cobranza/internal/types"
)

// ListFilters defines filters for listing fallback intents
type ListFilters struct {
	ChargeID string
	Provider string
	Status   *types.FallbackStatus
	// Open selects intents in a non-terminal state
	Open  bool
	Limit int
}

// Repository defines the interface for fallback intent persistence
type Repository interface {
	Create(ctx context.Context, intent *FallbackIntent) error
	Get(ctx context.Context, id string) (*FallbackIntent, error)
	Update(ctx context.Context, intent *FallbackIntent) error
	List(ctx context.Context, filters *ListFilters) ([]*FallbackIntent, error)
	Count(ctx context.Context, filters *ListFilters) (int, error)

	// GetOpenByCharge returns the open intent for a charge or ErrNotFound;
	// fallback-create uses it to skip charges that already have one
	GetOpenByCharge(ctx context.Context, chargeID string) (*FallbackIntent, error)
}
