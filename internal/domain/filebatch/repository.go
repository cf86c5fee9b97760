package filebatch

import (
	"context"

	"github.com/agensuite/cobranza/internal/types"
)

// ListFilters defines filters for listing file batches
type ListFilters struct {
	Direction       *types.BatchDirection
	Status          *types.BatchStatus
	Adapter         string
	BusinessDateKey string
	Limit           int
}

// Repository defines the interface for file batch persistence
type Repository interface {
	Create(ctx context.Context, batch *FileBatch) error
	Get(ctx context.Context, id string) (*FileBatch, error)
	Update(ctx context.Context, batch *FileBatch) error
	List(ctx context.Context, filters *ListFilters) ([]*FileBatch, error)
	Count(ctx context.Context, filters *ListFilters) (int, error)

	// GetInboundByHash is the import idempotency probe: it returns the
	// inbound batch previously recorded for (outbound batch, file hash) or
	// ErrNotFound when this exact file was never imported
	GetInboundByHash(ctx context.Context, outboundBatchID string, fileHash string) (*FileBatch, error)
}
