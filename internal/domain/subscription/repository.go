package subscription

import (
	"context"
)

// Repository defines the interface for subscription persistence
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// ListActive retrieves every active subscription across tenants; the
	// cycle runner resolves anchor dates against the calendar itself
	ListActive(ctx context.Context) ([]*Subscription, error)
}
