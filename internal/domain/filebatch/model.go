package filebatch

import (
	"time"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// FileBatch is a batch of attempts sent to or received from the bank channel.
// Outbound batches transition PREPARED -> EXPORTED; inbound batches reference
// the outbound batch they respond to and are content-addressed by file hash.
type FileBatch struct {
	// Unique identifier for this batch
	ID string `json:"id" db:"id"`
	// Reference is the short human-facing id printed on bank files
	Reference string `json:"reference" db:"reference"`
	// Direction is OUTBOUND (presentment) or INBOUND (bank response)
	Direction types.BatchDirection `json:"direction" db:"direction"`
	// Adapter names the bank channel this batch belongs to
	Adapter string `json:"adapter" db:"adapter"`
	// BusinessDateKey is the civil date the batch was prepared for
	BusinessDateKey string `json:"business_date_key" db:"business_date_key"`
	// BatchStatus is the batch lifecycle state
	BatchStatus types.BatchStatus `json:"batch_status" db:"batch_status"`
	// AttemptCount and TotalUsd snapshot the selection at prepare time
	AttemptCount int             `json:"attempt_count" db:"attempt_count"`
	TotalUsd     decimal.Decimal `json:"total_usd" db:"total_usd"`
	// ExportedAt/ImportedAt are lifecycle timestamps
	ExportedAt *time.Time `json:"exported_at,omitempty" db:"exported_at"`
	ImportedAt *time.Time `json:"imported_at,omitempty" db:"imported_at"`
	// OutboundBatchID links an inbound batch to the outbound it answers
	OutboundBatchID *string `json:"outbound_batch_id,omitempty" db:"outbound_batch_id"`
	// FileHash content-addresses an inbound response file
	FileHash string `json:"file_hash,omitempty" db:"file_hash"`
	// ErrorRows counts unmatched/malformed rows seen during import
	ErrorRows int `json:"error_rows" db:"error_rows"`

	types.BaseModel
}

// IsOpen reports whether an outbound batch still claims its attempts
func (b *FileBatch) IsOpen() bool {
	return b.Direction == types.BatchDirectionOutbound &&
		(b.BatchStatus == types.BatchStatusPrepared || b.BatchStatus == types.BatchStatusExported)
}

// Validate validates the file batch
func (b *FileBatch) Validate() error {
	if b.Adapter == "" {
		return ierr.NewError("invalid adapter").
			WithHint("Batch must name its bank adapter").
			Mark(ierr.ErrValidation)
	}
	if err := b.BatchStatus.Validate(); err != nil {
		return ierr.NewError("invalid batch status").
			WithHint("Batch status is invalid").
			Mark(ierr.ErrValidation)
	}
	if b.Direction == types.BatchDirectionInbound && b.OutboundBatchID == nil {
		return ierr.NewError("inbound batch missing outbound reference").
			WithHint("Inbound batches must reference the outbound batch they respond to").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TableName returns the table name for the file batch
func (b *FileBatch) TableName() string {
	return "file_batches"
}
