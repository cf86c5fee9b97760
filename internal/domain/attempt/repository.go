package attempt

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/types"
)

// ListFilters defines filters for listing attempts
type ListFilters struct {
	TenantID  string
	ChargeID  string
	BatchID   string
	Channel   *types.CollectionChannel
	Status    *types.AttemptStatus
	DueBefore *time.Time
	// ProcessedSince selects attempts the bank answered after the instant
	ProcessedSince *time.Time
	// Unbatched selects attempts not yet claimed by any outbound batch
	Unbatched bool
	Limit     int
}

// Repository defines the interface for billing attempt persistence
type Repository interface {
	Create(ctx context.Context, attempt *BillingAttempt) error
	Get(ctx context.Context, id string) (*BillingAttempt, error)
	Update(ctx context.Context, attempt *BillingAttempt) error
	List(ctx context.Context, filters *ListFilters) ([]*BillingAttempt, error)
	Count(ctx context.Context, filters *ListFilters) (int, error)
}
