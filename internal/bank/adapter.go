package bank

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BatchPayload is the outbound presentment handed to a bank channel
type BatchPayload struct {
	BatchID         string      `json:"batch_id"`
	Reference       string      `json:"reference"`
	Adapter         string      `json:"adapter"`
	BusinessDateKey string      `json:"business_date_key"`
	Items           []BatchItem `json:"items"`
}

// BatchItem is one attempt inside an outbound batch
type BatchItem struct {
	AttemptID string          `json:"attempt_id"`
	ChargeID  string          `json:"charge_id"`
	TenantID  string          `json:"tenant_id"`
	AmountArs decimal.Decimal `json:"amount_ars"`
	DueDate   time.Time       `json:"due_date"`
}

// ResponseFile is one inbound bank response file tied to the outbound batch
// it answers
type ResponseFile struct {
	OutboundBatchID string
	Content         []byte
}

// Adapter is the bank direct-debit channel. It accepts an outbound batch
// payload and serves the response files the bank published for a business
// date.
type Adapter interface {
	// Name identifies the channel, e.g. "galicia-debits"
	Name() string

	// SubmitBatch hands the payload to the bank. A non-nil error means the
	// batch was not accepted and the export must not be marked done.
	SubmitBatch(ctx context.Context, payload *BatchPayload) error

	// FetchResponseFiles returns the response files available for a business
	// date. An empty slice means the bank has not answered yet.
	FetchResponseFiles(ctx context.Context, businessDateKey string) ([]ResponseFile, error)
}
