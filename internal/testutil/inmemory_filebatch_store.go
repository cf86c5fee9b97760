package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/filebatch"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryFileBatchStore implements filebatch.Repository
type InMemoryFileBatchStore struct {
	*InMemoryStore[*filebatch.FileBatch]
}

// NewInMemoryFileBatchStore creates a new in-memory file batch store
func NewInMemoryFileBatchStore() *InMemoryFileBatchStore {
	return &InMemoryFileBatchStore{
		InMemoryStore: NewInMemoryStore[*filebatch.FileBatch](),
	}
}

func fileBatchFilterFn(ctx context.Context, b *filebatch.FileBatch, filter interface{}) bool {
	if b == nil {
		return false
	}
	f, ok := filter.(*filebatch.ListFilters)
	if !ok || f == nil {
		return true
	}
	if f.Direction != nil && b.Direction != *f.Direction {
		return false
	}
	if f.Status != nil && b.BatchStatus != *f.Status {
		return false
	}
	if f.Adapter != "" && b.Adapter != f.Adapter {
		return false
	}
	if f.BusinessDateKey != "" && b.BusinessDateKey != f.BusinessDateKey {
		return false
	}
	return true
}

func fileBatchSortFn(i, j *filebatch.FileBatch) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.Before(j.CreatedAt)
}

func (s *InMemoryFileBatchStore) Create(ctx context.Context, b *filebatch.FileBatch) error {
	if b == nil {
		return ierr.NewError("batch cannot be nil").
			WithHint("Please provide a valid file batch").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, b.ID, b)
}

func (s *InMemoryFileBatchStore) Get(ctx context.Context, id string) (*filebatch.FileBatch, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryFileBatchStore) Update(ctx context.Context, b *filebatch.FileBatch) error {
	return s.InMemoryStore.Update(ctx, b.ID, b)
}

func (s *InMemoryFileBatchStore) List(ctx context.Context, filters *filebatch.ListFilters) ([]*filebatch.FileBatch, error) {
	batches, err := s.InMemoryStore.List(ctx, filters, fileBatchFilterFn, fileBatchSortFn)
	if err != nil {
		return nil, err
	}
	if filters != nil {
		batches = limitSlice(batches, filters.Limit)
	}
	return batches, nil
}

func (s *InMemoryFileBatchStore) Count(ctx context.Context, filters *filebatch.ListFilters) (int, error) {
	return s.InMemoryStore.Count(ctx, filters, fileBatchFilterFn)
}

func (s *InMemoryFileBatchStore) GetInboundByHash(ctx context.Context, outboundBatchID string, fileHash string) (*filebatch.FileBatch, error) {
	batches, err := s.InMemoryStore.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	for _, b := range batches {
		if b == nil || b.OutboundBatchID == nil {
			continue
		}
		if *b.OutboundBatchID == outboundBatchID && b.FileHash == fileHash {
			return b, nil
		}
	}
	return nil, ierr.NewError("inbound batch not found").
		WithHintf("No import recorded for batch %s with this file", outboundBatchID).
		Mark(ierr.ErrNotFound)
}

// Clear clears the file batch store
func (s *InMemoryFileBatchStore) Clear() {
	s.InMemoryStore.Clear()
}
