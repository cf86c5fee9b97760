package testutil

import (
	"context"

	"github.com/agensuite/cobranza/internal/domain/jobrun"
	ierr "github.com/agensuite/cobranza/internal/errors"
)

// InMemoryJobRunStore implements jobrun.Repository
type InMemoryJobRunStore struct {
	*InMemoryStore[*jobrun.JobRun]
}

// NewInMemoryJobRunStore creates a new in-memory job run store
func NewInMemoryJobRunStore() *InMemoryJobRunStore {
	return &InMemoryJobRunStore{
		InMemoryStore: NewInMemoryStore[*jobrun.JobRun](),
	}
}

func jobRunSortFn(i, j *jobrun.JobRun) bool {
	if i == nil || j == nil {
		return false
	}
	return i.StartedAt.After(j.StartedAt)
}

func (s *InMemoryJobRunStore) Create(ctx context.Context, run *jobrun.JobRun) error {
	if run == nil {
		return ierr.NewError("run cannot be nil").
			WithHint("Please provide a valid job run").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, run.ID, run)
}

func (s *InMemoryJobRunStore) Get(ctx context.Context, id string) (*jobrun.JobRun, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryJobRunStore) Update(ctx context.Context, run *jobrun.JobRun) error {
	return s.InMemoryStore.Update(ctx, run.ID, run)
}

func (s *InMemoryJobRunStore) ListRecent(ctx context.Context, limit int) ([]*jobrun.JobRun, error) {
	runs, err := s.InMemoryStore.List(ctx, nil, nil, jobRunSortFn)
	if err != nil {
		return nil, err
	}
	return limitSlice(runs, limit), nil
}

// Clear clears the job run store
func (s *InMemoryJobRunStore) Clear() {
	s.InMemoryStore.Clear()
}
