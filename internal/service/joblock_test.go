package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agensuite/cobranza/internal/domain/joblock"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/stretchr/testify/suite"
)

type LockServiceSuite struct {
	testutil.BaseServiceTestSuite
	locks LockService
}

func TestLockService(t *testing.T) {
	suite.Run(t, new(LockServiceSuite))
}

func (s *LockServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.locks = NewLockService(newTestParams(&s.BaseServiceTestSuite, nil))
}

func (s *LockServiceSuite) TestOnlyOneAcquirerWins() {
	key := LockKey(JobRunAnchor, "", "2025-06-30")

	first, err := s.locks.Acquire(s.GetContext(), key, "run-1", time.Minute, nil)
	s.NoError(err)
	s.True(first.Acquired)
	s.False(first.Stolen)

	second, err := s.locks.Acquire(s.GetContext(), key, "run-2", time.Minute, nil)
	s.NoError(err)
	s.False(second.Acquired)
	s.Equal("run-1", second.HeldBy)
}

func (s *LockServiceSuite) TestConcurrentAcquirersExactlyOneWins() {
	key := LockKey(JobRunAnchor, "", "2025-07-31")

	type outcome struct {
		acquired bool
		err      error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			res, err := s.locks.Acquire(s.GetContext(), key, owner, time.Minute, nil)
			if err != nil {
				results <- outcome{err: err}
				return
			}
			results <- outcome{acquired: res.Acquired}
		}(fmt.Sprintf("run-%d", i))
	}
	wg.Wait()
	close(results)

	winners := 0
	for r := range results {
		s.NoError(r.err)
		if r.acquired {
			winners++
		}
	}
	s.Equal(1, winners)
}

func (s *LockServiceSuite) TestReleasedLockCanBeReacquired() {
	key := LockKey(JobPrepareBatch, "galicia-debits", "2025-06-30")

	first, err := s.locks.Acquire(s.GetContext(), key, "run-1", time.Minute, nil)
	s.NoError(err)
	s.True(first.Acquired)

	s.NoError(s.locks.Release(s.GetContext(), key, "run-1"))

	second, err := s.locks.Acquire(s.GetContext(), key, "run-2", time.Minute, nil)
	s.NoError(err)
	s.True(second.Acquired)
	s.True(second.Stolen)
}

func (s *LockServiceSuite) TestExpiredLockIsStolen() {
	key := LockKey(JobExportBatch, "galicia-debits", "2025-06-30")

	// Insert a lease that already expired, as left behind by a crashed worker
	now := time.Now().UTC()
	s.NoError(s.GetStores().JobLockRepo.Insert(s.GetContext(), &joblock.JobLock{
		LockKey:    key,
		OwnerRunID: "dead-run",
		AcquiredAt: now.Add(-time.Hour),
		ExpiresAt:  now.Add(-30 * time.Minute),
	}))

	result, err := s.locks.Acquire(s.GetContext(), key, "run-2", time.Minute, types.Metadata{"source": "CRON"})
	s.NoError(err)
	s.True(result.Acquired)
	s.True(result.Stolen)

	current, err := s.GetStores().JobLockRepo.Get(s.GetContext(), key)
	s.NoError(err)
	s.Equal("run-2", current.OwnerRunID)
}

func (s *LockServiceSuite) TestReleaseIsOwnerScoped() {
	key := LockKey(JobRunAnchor, "", "2025-07-01")

	now := time.Now().UTC()
	s.NoError(s.GetStores().JobLockRepo.Insert(s.GetContext(), &joblock.JobLock{
		LockKey:    key,
		OwnerRunID: "dead-run",
		AcquiredAt: now.Add(-time.Hour),
		ExpiresAt:  now.Add(-30 * time.Minute),
	}))

	result, err := s.locks.Acquire(s.GetContext(), key, "run-2", time.Minute, nil)
	s.NoError(err)
	s.True(result.Acquired)

	// The stale owner waking up late must not release the new holder's lease
	s.NoError(s.locks.Release(s.GetContext(), key, "dead-run"))

	current, err := s.GetStores().JobLockRepo.Get(s.GetContext(), key)
	s.NoError(err)
	s.Nil(current.ReleasedAt)

	blocked, err := s.locks.Acquire(s.GetContext(), key, "run-3", time.Minute, nil)
	s.NoError(err)
	s.False(blocked.Acquired)
}

func (s *LockServiceSuite) TestForceRelease() {
	key := LockKey(JobRunAnchor, "", "2025-07-02")

	first, err := s.locks.Acquire(s.GetContext(), key, "run-1", time.Hour, nil)
	s.NoError(err)
	s.True(first.Acquired)

	s.NoError(s.locks.ForceRelease(s.GetContext(), key))

	second, err := s.locks.Acquire(s.GetContext(), key, "run-2", time.Minute, nil)
	s.NoError(err)
	s.True(second.Acquired)
}

func TestLockKey(t *testing.T) {
	cases := []struct {
		job     string
		adapter string
		dateKey string
		want    string
	}{
		{"run-anchor", "", "2025-06-30", "billing:run-anchor:2025-06-30"},
		{"prepare-batch", "galicia-debits", "2025-06-30", "billing:prepare-batch:galicia-debits:2025-06-30"},
	}
	for _, tc := range cases {
		if got := LockKey(tc.job, tc.adapter, tc.dateKey); got != tc.want {
			t.Errorf("LockKey(%q, %q, %q) = %q, want %q", tc.job, tc.adapter, tc.dateKey, got, tc.want)
		}
	}
}
