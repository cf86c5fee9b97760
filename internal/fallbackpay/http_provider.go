package fallbackpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/httpclient"
	"github.com/agensuite/cobranza/internal/types"
)

// HTTPProvider talks to a fallback payment provider's HTTP API
type HTTPProvider struct {
	name    string
	channel types.CollectionChannel
	baseURL string
	client  httpclient.Client
}

// NewHTTPProvider creates a provider over the given HTTP client
func NewHTTPProvider(name string, channel types.CollectionChannel, baseURL string, client httpclient.Client) Provider {
	return &HTTPProvider{
		name:    name,
		channel: channel,
		baseURL: baseURL,
		client:  client,
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) Channel() types.CollectionChannel {
	return p.channel
}

type createIntentWire struct {
	ChargeID  string `json:"charge_id"`
	TenantID  string `json:"tenant_id"`
	AmountArs string `json:"amount_ars"`
	ExpiresAt string `json:"expires_at"`
}

type intentWire struct {
	Ref    string  `json:"ref"`
	Status string  `json:"status"`
	PaidAt *string `json:"paid_at,omitempty"`
}

func (p *HTTPProvider) CreateIntent(ctx context.Context, req *CreateIntentRequest) (*CreateIntentResponse, error) {
	body, err := json.Marshal(createIntentWire{
		ChargeID:  req.ChargeID,
		TenantID:  req.TenantID,
		AmountArs: req.AmountArs.StringFixed(2),
		ExpiresAt: req.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode intent request").
			Mark(ierr.ErrSystem)
	}

	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     fmt.Sprintf("%s/v1/intents", p.baseURL),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, ierr.NewError("provider rejected intent creation").
			WithHintf("Provider %s answered status %d", p.name, resp.StatusCode).
			Mark(ierr.ErrHTTPClient)
	}

	var wire intentWire
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Provider answered an unparseable intent").
			Mark(ierr.ErrHTTPClient)
	}

	return &CreateIntentResponse{
		ProviderRef: wire.Ref,
		Status:      types.FallbackStatus(wire.Status),
	}, nil
}

func (p *HTTPProvider) GetStatus(ctx context.Context, providerRef string) (*IntentStatus, error) {
	resp, err := p.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/intents/%s", p.baseURL, providerRef),
	})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, ierr.NewError("provider status lookup failed").
			WithHintf("Provider %s answered status %d", p.name, resp.StatusCode).
			Mark(ierr.ErrHTTPClient)
	}

	var wire intentWire
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Provider answered an unparseable status").
			Mark(ierr.ErrHTTPClient)
	}

	status := &IntentStatus{Status: types.FallbackStatus(wire.Status)}
	if wire.PaidAt != nil {
		if paidAt, err := time.Parse(time.RFC3339, *wire.PaidAt); err == nil {
			paidAt = paidAt.UTC()
			status.PaidAt = &paidAt
		}
	}
	return status, nil
}
