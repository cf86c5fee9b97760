package testutil

import (
	"context"
	"sync"

	"github.com/agensuite/cobranza/internal/bank"
)

// MockBankAdapter is a programmable bank adapter for tests. It records every
// submitted payload and serves whatever response files the test stages.
type MockBankAdapter struct {
	mu sync.Mutex

	name      string
	Submitted []*bank.BatchPayload
	// SubmitErr makes SubmitBatch fail when set
	SubmitErr error
	// ResponseFiles is served by FetchResponseFiles keyed by business date
	ResponseFiles map[string][]bank.ResponseFile
	// FetchErr makes FetchResponseFiles fail when set
	FetchErr error
}

// NewMockBankAdapter creates a new mock bank adapter
func NewMockBankAdapter(name string) *MockBankAdapter {
	return &MockBankAdapter{
		name:          name,
		ResponseFiles: make(map[string][]bank.ResponseFile),
	}
}

func (m *MockBankAdapter) Name() string {
	return m.name
}

func (m *MockBankAdapter) SubmitBatch(ctx context.Context, payload *bank.BatchPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SubmitErr != nil {
		return m.SubmitErr
	}
	m.Submitted = append(m.Submitted, payload)
	return nil
}

func (m *MockBankAdapter) FetchResponseFiles(ctx context.Context, businessDateKey string) ([]bank.ResponseFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return m.ResponseFiles[businessDateKey], nil
}

// StageResponseFile makes a response file available for a business date
func (m *MockBankAdapter) StageResponseFile(businessDateKey string, outboundBatchID string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResponseFiles[businessDateKey] = append(m.ResponseFiles[businessDateKey], bank.ResponseFile{
		OutboundBatchID: outboundBatchID,
		Content:         content,
	})
}

// Clear resets recorded submissions and staged files
func (m *MockBankAdapter) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submitted = nil
	m.SubmitErr = nil
	m.FetchErr = nil
	m.ResponseFiles = make(map[string][]bank.ResponseFile)
}
