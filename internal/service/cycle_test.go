package service

import (
	"testing"

	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/fxrate"
	"github.com/agensuite/cobranza/internal/domain/subscription"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CycleServiceSuite struct {
	testutil.BaseServiceTestSuite
	params ServiceParams
	cycles CycleService
}

func TestCycleService(t *testing.T) {
	suite.Run(t, new(CycleServiceSuite))
}

func (s *CycleServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite, nil)
	s.cycles = NewCycleService(s.params, NewPricingService(s.params))

	err := s.GetStores().FXRateRepo.Upsert(s.GetContext(), &fxrate.Rate{
		DateKey:   "2025-06-30",
		ArsPerUsd: decimal.NewFromInt(1200),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

func (s *CycleServiceSuite) seedSubscription(tenantID string, billingDay int, method types.CollectionChannel) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		BillingDay:       billingDay,
		CollectionMethod: method,
		DiscountPercent:  decimal.Zero,
		BaseModel:        types.GetDefaultBaseModel(s.GetContext()),
	}
	sub.TenantID = tenantID
	s.NoError(s.GetStores().SubscriptionRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *CycleServiceSuite) TestAnchorDayClampsToShortMonth() {
	// June has 30 days, so a day-31 subscription fires on the 30th
	sub := s.seedSubscription("tenant-a", 31, types.CollectionChannelDirectDebit)

	result, err := s.cycles.RunAnchor(s.GetContext(), "2025-06-30")
	s.NoError(err)
	s.Equal(1, result.Eligible)
	s.Equal(1, result.Created)
	s.Equal(types.JobRunStatusSuccess, result.Status())

	c, err := s.GetStores().CycleRepo.GetByTenantAndAnchor(s.GetContext(), "tenant-a", "2025-06-30")
	s.NoError(err)
	s.Equal(sub.ID, c.SubscriptionID)
	s.Equal("2025-06-30", c.AnchorDateKey)
	s.Equal("60.50", c.Snapshot.TotalUsd.StringFixed(2))

	charges, err := s.GetStores().ChargeRepo.List(s.GetContext(), &charge.ListFilters{TenantID: "tenant-a"})
	s.NoError(err)
	s.Len(charges, 1)
	s.Equal(types.ChargeStatusPending, charges[0].ChargeStatus)
	// Due date is the anchor plus the configured grace period
	loc := s.GetConfig().Billing.Location()
	s.Equal("2025-07-05", types.DateKeyInTimeZone(charges[0].DueDate, loc))

	attempts, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{ChargeID: charges[0].ID})
	s.NoError(err)
	s.Len(attempts, 1)
	s.Equal(types.AttemptStatusScheduled, attempts[0].AttemptStatus)
	s.Equal(types.CollectionChannelDirectDebit, attempts[0].Channel)
}

func (s *CycleServiceSuite) TestSecondRunIsIdempotent() {
	s.seedSubscription("tenant-a", 30, types.CollectionChannelDirectDebit)

	first, err := s.cycles.RunAnchor(s.GetContext(), "2025-06-30")
	s.NoError(err)
	s.Equal(1, first.Created)

	second, err := s.cycles.RunAnchor(s.GetContext(), "2025-06-30")
	s.NoError(err)
	s.Equal(1, second.Eligible)
	s.Equal(0, second.Created)
	s.Equal(1, second.SkippedIdempotent)
	s.Equal(types.JobRunStatusSuccess, second.Status())

	charges, err := s.GetStores().ChargeRepo.List(s.GetContext(), &charge.ListFilters{TenantID: "tenant-a"})
	s.NoError(err)
	s.Len(charges, 1)
}

func (s *CycleServiceSuite) TestNonMatchingDayNotEligible() {
	s.seedSubscription("tenant-a", 15, types.CollectionChannelDirectDebit)

	result, err := s.cycles.RunAnchor(s.GetContext(), "2025-06-30")
	s.NoError(err)
	s.Equal(0, result.Eligible)
	s.Equal(types.JobRunStatusNoOp, result.Status())
}

func (s *CycleServiceSuite) TestNonDebitAttemptCarriesConfiguredChannel() {
	s.seedSubscription("tenant-b", 30, types.CollectionChannelTransfer)

	result, err := s.cycles.RunAnchor(s.GetContext(), "2025-06-30")
	s.NoError(err)
	s.Equal(1, result.Created)

	charges, err := s.GetStores().ChargeRepo.List(s.GetContext(), &charge.ListFilters{TenantID: "tenant-b"})
	s.NoError(err)
	s.Len(charges, 1)

	attempts, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{ChargeID: charges[0].ID})
	s.NoError(err)
	s.Len(attempts, 1)
	s.Equal(types.CollectionChannelTransfer, attempts[0].Channel)
	s.Equal(types.AttemptStatusScheduled, attempts[0].AttemptStatus)
}

func (s *CycleServiceSuite) TestOneTenantFailureDoesNotAbortSweep() {
	s.seedSubscription("tenant-a", 1, types.CollectionChannelDirectDebit)
	s.seedSubscription("tenant-b", 1, types.CollectionChannelDirectDebit)

	// No FX rate loaded for this date, so every snapshot build fails
	result, err := s.cycles.RunAnchor(s.GetContext(), "2025-07-01")
	s.NoError(err)
	s.Equal(2, result.Eligible)
	s.Equal(2, result.Failed)
	s.Equal(types.JobRunStatusFailed, result.Status())

	// One tenant fixed by loading the rate still leaves the other counted
	err = s.GetStores().FXRateRepo.Upsert(s.GetContext(), &fxrate.Rate{
		DateKey:   "2025-07-01",
		ArsPerUsd: decimal.NewFromInt(1200),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)

	retry, err := s.cycles.RunAnchor(s.GetContext(), "2025-07-01")
	s.NoError(err)
	s.Equal(2, retry.Created)
	s.Equal(types.JobRunStatusSuccess, retry.Status())
}
