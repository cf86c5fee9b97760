package fallbackpay

import (
	"context"
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// CreateIntentRequest asks a provider to open an alternate-channel payment
// offer for an overdue charge
type CreateIntentRequest struct {
	ChargeID  string
	TenantID  string
	AmountArs decimal.Decimal
	ExpiresAt time.Time
}

// CreateIntentResponse carries the provider-side reference for the new offer
type CreateIntentResponse struct {
	ProviderRef string
	Status      types.FallbackStatus
}

// IntentStatus is the provider's view of an open intent
type IntentStatus struct {
	Status types.FallbackStatus
	PaidAt *time.Time
}

// Provider is an alternate payment channel (QR, wallet, ...). Implementations
// are registered by provider identifier.
type Provider interface {
	Name() string
	Channel() types.CollectionChannel
	CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error)
	GetStatus(ctx context.Context, providerRef string) (*IntentStatus, error)
}

// Registry resolves providers by identifier
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry from the given providers
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider for an identifier or ErrNotFound
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ierr.NewError("unknown fallback provider").
			WithHintf("No fallback provider registered for %q", name).
			Mark(ierr.ErrNotFound)
	}
	return p, nil
}
