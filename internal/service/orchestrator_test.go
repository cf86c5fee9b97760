package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/filebatch"
	"github.com/agensuite/cobranza/internal/domain/fxrate"
	"github.com/agensuite/cobranza/internal/domain/subscription"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OrchestratorSuite struct {
	testutil.BaseServiceTestSuite
	params       ServiceParams
	orchestrator OrchestratorService
	runs         JobRunService
	locks        LockService
	bank         *testutil.MockBankAdapter
	provider     *testutil.MockFallbackProvider
}

func TestOrchestrator(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.bank = testutil.NewMockBankAdapter("galicia-debits")
	s.provider = testutil.NewMockFallbackProvider("mercadopago-qr", types.CollectionChannelQR)

	// Charges fall due on their anchor date so a single tick carries them
	// all the way to presentment
	cfg := *s.GetConfig()
	cfg.Billing.DueGraceDays = 0

	s.params = newTestParams(&s.BaseServiceTestSuite, s.bank, s.provider)
	s.params.Config = &cfg

	s.runs = NewJobRunService(s.params)
	s.locks = NewLockService(s.params)
	pricing := NewPricingService(s.params)
	s.orchestrator = NewOrchestratorService(
		s.params,
		s.runs,
		s.locks,
		NewCycleService(s.params, pricing),
		NewBatchService(s.params),
		NewDunningService(s.params),
	)
}

func (s *OrchestratorSuite) request(jobName string) *ExecuteJobRequest {
	return &ExecuteJobRequest{
		JobName:       jobName,
		Source:        types.JobRunSourceManual,
		TargetDateKey: "2025-06-30",
	}
}

func (s *OrchestratorSuite) TestSuccessfulRunRecordsOutcome() {
	req := s.request(JobRunAnchor)
	run, err := s.orchestrator.ExecuteBillingJob(s.GetContext(), req, func(ctx context.Context) (*JobOutcome, error) {
		return &JobOutcome{
			Status:   types.JobRunStatusNoOp,
			Counters: map[string]int{"eligible": 0},
		}, nil
	})
	s.NoError(err)
	s.Equal(types.JobRunStatusNoOp, run.RunStatus)
	s.Equal(0, run.Counters["eligible"])
	s.NotNil(run.FinishedAt)
	s.NotNil(run.DurationMs)

	// The lock is released for the next execution
	lock, err := s.GetStores().JobLockRepo.Get(s.GetContext(), LockKey(JobRunAnchor, "", "2025-06-30"))
	s.NoError(err)
	s.NotNil(lock.ReleasedAt)
}

func (s *OrchestratorSuite) TestHeldLockSkipsRun() {
	key := LockKey(JobRunAnchor, "", "2025-06-30")
	held, err := s.locks.Acquire(s.GetContext(), key, "other-run", time.Hour, nil)
	s.NoError(err)
	s.True(held.Acquired)

	called := false
	run, err := s.orchestrator.ExecuteBillingJob(s.GetContext(), s.request(JobRunAnchor), func(ctx context.Context) (*JobOutcome, error) {
		called = true
		return nil, nil
	})
	s.NoError(err)
	s.False(called)
	s.Equal(types.JobRunStatusSkippedLocked, run.RunStatus)
	s.Equal("other-run", run.Metadata["held_by"])

	// The holder's lease is untouched
	lock, err := s.GetStores().JobLockRepo.Get(s.GetContext(), key)
	s.NoError(err)
	s.Equal("other-run", lock.OwnerRunID)
	s.Nil(lock.ReleasedAt)
}

func (s *OrchestratorSuite) TestFailedRunRecordsErrorAndReleasesLock() {
	run, err := s.orchestrator.ExecuteBillingJob(s.GetContext(), s.request(JobRunAnchor), func(ctx context.Context) (*JobOutcome, error) {
		return nil, ierr.NewError("upstream exploded").Mark(ierr.ErrSystem)
	})
	s.Error(err)
	s.Equal(types.JobRunStatusFailed, run.RunStatus)
	s.NotNil(run.ErrorMessage)
	s.Contains(*run.ErrorMessage, "upstream exploded")

	// A later run can take the lock again
	retry, err := s.orchestrator.ExecuteBillingJob(s.GetContext(), s.request(JobRunAnchor), func(ctx context.Context) (*JobOutcome, error) {
		return &JobOutcome{Status: types.JobRunStatusSuccess}, nil
	})
	s.NoError(err)
	s.Equal(types.JobRunStatusSuccess, retry.RunStatus)
}

func (s *OrchestratorSuite) TestPanicFinishesRunFailed() {
	run, err := s.orchestrator.ExecuteBillingJob(s.GetContext(), s.request(JobRunAnchor), func(ctx context.Context) (*JobOutcome, error) {
		panic("boom")
	})
	s.Error(err)
	s.Contains(err.Error(), "boom")

	// The run row comes back even when the body panicked, so callers can
	// report which run failed
	s.NotNil(run)
	s.Equal(types.JobRunStatusFailed, run.RunStatus)

	stored, getErr := s.GetStores().JobRunRepo.Get(s.GetContext(), run.ID)
	s.NoError(getErr)
	s.Equal(types.JobRunStatusFailed, stored.RunStatus)
	s.NotNil(stored.ErrorMessage)
	s.Contains(*stored.ErrorMessage, "boom")

	lock, lockErr := s.GetStores().JobLockRepo.Get(s.GetContext(), LockKey(JobRunAnchor, "", "2025-06-30"))
	s.NoError(lockErr)
	s.NotNil(lock.ReleasedAt)
}

func (s *OrchestratorSuite) seedTickFixtures() *subscription.Subscription {
	loc := s.params.Config.Billing.Location()
	today := time.Now().In(loc)

	s.NoError(s.GetStores().FXRateRepo.Upsert(s.GetContext(), &fxrate.Rate{
		DateKey:   types.DateKeyInTimeZone(time.Now(), loc),
		ArsPerUsd: decimal.NewFromInt(1000),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}))

	sub := &subscription.Subscription{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		BillingDay:       today.Day(),
		CollectionMethod: types.CollectionChannelDirectDebit,
		DiscountPercent:  decimal.Zero,
		BaseModel:        types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *OrchestratorSuite) stepStatus(result *TickResult, jobName string) types.JobRunStatus {
	for _, step := range result.Steps {
		if step.JobName == jobName {
			return step.Status
		}
	}
	s.T().Fatalf("tick has no step %s", jobName)
	return ""
}

func (s *OrchestratorSuite) TestTickDrivesChargeToSettlement() {
	s.seedTickFixtures()

	// First tick: anchor fires, the charge's attempt is batched and exported
	first, err := s.orchestrator.RunTick(s.GetContext(), types.JobRunSourceCron)
	s.NoError(err)
	s.Equal(types.JobRunStatusSuccess, s.stepStatus(first, JobRunAnchor))
	s.Equal(types.JobRunStatusSuccess, s.stepStatus(first, JobPrepareBatch))
	s.Equal(types.JobRunStatusSuccess, s.stepStatus(first, JobExportBatch))
	s.Equal(types.JobRunStatusNoOp, s.stepStatus(first, JobReconcileBatch))
	s.Len(s.bank.Submitted, 1)

	payload := s.bank.Submitted[0]
	s.Len(payload.Items, 1)
	s.bank.StageResponseFile(
		first.TargetDateKey,
		payload.BatchID,
		[]byte(fmt.Sprintf("%s,APPROVED,ok\n", payload.Items[0].AttemptID)),
	)

	// Second tick: the anchor run is idempotent and the staged response file
	// settles the charge
	second, err := s.orchestrator.RunTick(s.GetContext(), types.JobRunSourceCron)
	s.NoError(err)
	s.Equal(types.JobRunStatusSuccess, s.stepStatus(second, JobRunAnchor))
	s.Equal(types.JobRunStatusNoOp, s.stepStatus(second, JobPrepareBatch))
	s.Equal(types.JobRunStatusSuccess, s.stepStatus(second, JobReconcileBatch))

	ch, err := s.GetStores().ChargeRepo.Get(s.GetContext(), payload.Items[0].ChargeID)
	s.NoError(err)
	s.Equal(types.ChargeStatusPaid, ch.ChargeStatus)
	s.Equal(types.CollectionChannelDirectDebit, *ch.PaidViaChannel)

	a, err := s.GetStores().AttemptRepo.Get(s.GetContext(), payload.Items[0].AttemptID)
	s.NoError(err)
	s.Equal(types.AttemptStatusApproved, a.AttemptStatus)

	// Only the one outbound and one inbound batch exist
	count, err := s.GetStores().BatchRepo.Count(s.GetContext(), &filebatch.ListFilters{})
	s.NoError(err)
	s.Equal(2, count)

	// Every step of both ticks is on the ledger
	runs, err := s.runs.ListRecent(s.GetContext(), 50)
	s.NoError(err)
	s.Len(runs, 12)
	for _, r := range runs {
		s.True(r.RunStatus.IsTerminal())
	}

	charges, err := s.GetStores().ChargeRepo.List(s.GetContext(), &charge.ListFilters{})
	s.NoError(err)
	s.Len(charges, 1)

	attempts, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{})
	s.NoError(err)
	s.Len(attempts, 1)
}
