package testutil

import (
	"context"
	"fmt"
	"sync"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/fallbackpay"
	"github.com/agensuite/cobranza/internal/types"
)

// MockFallbackProvider is a programmable fallback payment provider for tests
type MockFallbackProvider struct {
	mu sync.Mutex

	name    string
	channel types.CollectionChannel
	counter int

	// CreateErr makes CreateIntent fail when set
	CreateErr error
	// Statuses maps provider refs to the status GetStatus answers
	Statuses map[string]*fallbackpay.IntentStatus
	// Created records every intent request seen
	Created []*fallbackpay.CreateIntentRequest
}

// NewMockFallbackProvider creates a new mock fallback provider
func NewMockFallbackProvider(name string, channel types.CollectionChannel) *MockFallbackProvider {
	return &MockFallbackProvider{
		name:     name,
		channel:  channel,
		Statuses: make(map[string]*fallbackpay.IntentStatus),
	}
}

func (m *MockFallbackProvider) Name() string {
	return m.name
}

func (m *MockFallbackProvider) Channel() types.CollectionChannel {
	return m.channel
}

func (m *MockFallbackProvider) CreateIntent(ctx context.Context, req *fallbackpay.CreateIntentRequest) (*fallbackpay.CreateIntentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.counter++
	ref := fmt.Sprintf("%s-ref-%d", m.name, m.counter)
	m.Created = append(m.Created, req)
	m.Statuses[ref] = &fallbackpay.IntentStatus{Status: types.FallbackStatusPending}
	return &fallbackpay.CreateIntentResponse{
		ProviderRef: ref,
		Status:      types.FallbackStatusPending,
	}, nil
}

func (m *MockFallbackProvider) GetStatus(ctx context.Context, providerRef string) (*fallbackpay.IntentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.Statuses[providerRef]
	if !ok {
		return nil, ierr.NewError("unknown intent").
			WithHintf("No intent with ref %s", providerRef).
			Mark(ierr.ErrNotFound)
	}
	return status, nil
}

// SetStatus stages the status GetStatus will answer for a ref
func (m *MockFallbackProvider) SetStatus(providerRef string, status *fallbackpay.IntentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statuses[providerRef] = status
}

// Clear resets recorded intents and staged statuses
func (m *MockFallbackProvider) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter = 0
	m.CreateErr = nil
	m.Created = nil
	m.Statuses = make(map[string]*fallbackpay.IntentStatus)
}
