package service

import (
	"testing"
	"time"

	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type OverviewServiceSuite struct {
	testutil.BaseServiceTestSuite
	overview OverviewService
	runs     JobRunService
}

func TestOverviewService(t *testing.T) {
	suite.Run(t, new(OverviewServiceSuite))
}

func (s *OverviewServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := newTestParams(&s.BaseServiceTestSuite, nil)
	s.runs = NewJobRunService(params)
	s.overview = NewOverviewService(params, s.runs)
}

func (s *OverviewServiceSuite) seedCharge(status types.ChargeStatus, dueDate time.Time) *charge.BillingCharge {
	ch := &charge.BillingCharge{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CHARGE),
		CycleID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CYCLE),
		SubscriptionID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		TotalUsd:       decimal.NewFromInt(121),
		Currency:       "USD",
		DueDate:        dueDate,
		ChargeStatus:   status,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	if status == types.ChargeStatusPaid {
		now := time.Now().UTC()
		via := types.CollectionChannelDirectDebit
		ch.PaidAt = &now
		ch.PaidViaChannel = &via
	}
	s.NoError(s.GetStores().ChargeRepo.Create(s.GetContext(), ch))
	return ch
}

func (s *OverviewServiceSuite) TestCountsAndRecentRuns() {
	now := time.Now().UTC()
	s.seedCharge(types.ChargeStatusPending, now.AddDate(0, 0, 3))
	s.seedCharge(types.ChargeStatusPending, now.AddDate(0, 0, -3))
	s.seedCharge(types.ChargeStatusPaid, now.AddDate(0, 0, -10))

	run, err := s.runs.Start(s.GetContext(), &StartRunRequest{
		JobName:       JobRunAnchor,
		Source:        types.JobRunSourceCron,
		TargetDateKey: "2025-06-30",
	})
	s.NoError(err)
	s.NoError(s.runs.Finish(s.GetContext(), run, types.JobRunStatusSuccess, nil, nil, nil))

	overview, err := s.overview.GetOverview(s.GetContext())
	s.NoError(err)
	s.Equal(2, overview.PendingCharges)
	s.Equal(1, overview.OverdueCharges)
	s.Equal(1, overview.PaidLast30Days)
	s.Len(overview.RecentRuns, 1)
	s.Equal(types.JobRunStatusSuccess, overview.RecentRuns[0].RunStatus)
}

func (s *OverviewServiceSuite) TestResultIsCached() {
	overview, err := s.overview.GetOverview(s.GetContext())
	s.NoError(err)
	s.Equal(0, overview.PendingCharges)

	// New data is invisible until the cache entry expires
	s.seedCharge(types.ChargeStatusPending, time.Now().UTC())

	cached, err := s.overview.GetOverview(s.GetContext())
	s.NoError(err)
	s.Equal(0, cached.PendingCharges)
	s.Equal(overview.GeneratedAt, cached.GeneratedAt)
}
