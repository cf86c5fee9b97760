package service

import (
	"testing"
	"time"

	"github.com/agensuite/cobranza/internal/config"
	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/fallback"
	"github.com/agensuite/cobranza/internal/fallbackpay"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type DunningServiceSuite struct {
	testutil.BaseServiceTestSuite
	params   ServiceParams
	dunning  DunningService
	provider *testutil.MockFallbackProvider
}

func TestDunningService(t *testing.T) {
	suite.Run(t, new(DunningServiceSuite))
}

func (s *DunningServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.provider = testutil.NewMockFallbackProvider("mercadopago-qr", types.CollectionChannelQR)
	s.params = newTestParams(&s.BaseServiceTestSuite, nil, s.provider)
	s.dunning = NewDunningService(s.params)
}

func (s *DunningServiceSuite) seedCharge(dunningStage int, dueDate time.Time) *charge.BillingCharge {
	ch := &charge.BillingCharge{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CHARGE),
		CycleID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CYCLE),
		SubscriptionID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		NetUsd:         decimal.NewFromInt(100),
		VatUsd:         decimal.NewFromInt(21),
		TotalUsd:       decimal.NewFromInt(121),
		TotalArs:       decimal.NewFromInt(145200),
		Currency:       "USD",
		DueDate:        dueDate,
		ChargeStatus:   types.ChargeStatusPending,
		DunningStage:   dunningStage,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().ChargeRepo.Create(s.GetContext(), ch))
	return ch
}

func (s *DunningServiceSuite) TestThresholdCrossingOpensIntent() {
	now := time.Now().UTC()
	atThreshold := s.seedCharge(2, now.AddDate(0, 0, -3))
	belowThreshold := s.seedCharge(1, now.AddDate(0, 0, -3))

	result, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Candidates)
	s.Equal(1, result.Created)
	s.Equal(types.JobRunStatusSuccess, result.Status())

	intent, err := s.GetStores().FallbackRepo.GetOpenByCharge(s.GetContext(), atThreshold.ID)
	s.NoError(err)
	s.Equal("mercadopago-qr", intent.Provider)
	s.Equal(types.FallbackStatusPending, intent.FallbackStatus)
	s.NotEmpty(intent.ProviderRef)

	_, err = s.GetStores().FallbackRepo.GetOpenByCharge(s.GetContext(), belowThreshold.ID)
	s.Error(err)
}

func (s *DunningServiceSuite) TestLongOverdueChargeEscalatesWithoutRejections() {
	now := time.Now().UTC()
	// Stage zero, but overdue past the escalation window
	overdue := s.seedCharge(0, now.AddDate(0, 0, -20))

	result, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Candidates)
	s.Equal(1, result.Created)

	_, err = s.GetStores().FallbackRepo.GetOpenByCharge(s.GetContext(), overdue.ID)
	s.NoError(err)
}

func (s *DunningServiceSuite) TestOpenIntentNotDuplicated() {
	now := time.Now().UTC()
	ch := s.seedCharge(3, now.AddDate(0, 0, -3))

	first, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	s.Equal(1, first.Created)

	second, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	s.Equal(0, second.Created)
	s.Equal(1, second.SkippedOpen)

	intents, err := s.GetStores().FallbackRepo.List(s.GetContext(), &fallback.ListFilters{ChargeID: ch.ID})
	s.NoError(err)
	s.Len(intents, 1)
}

func (s *DunningServiceSuite) TestDisabledFallbackDoesNothing() {
	now := time.Now().UTC()
	s.seedCharge(5, now.AddDate(0, 0, -30))

	cfg := *s.GetConfig()
	cfg.Fallback = config.FallbackConfig{Enabled: false}
	params := s.params
	params.Config = &cfg

	result, err := NewDunningService(params).CreateFallbacks(s.GetContext())
	s.NoError(err)
	s.Equal(0, result.Candidates)
	s.Equal(0, result.Created)
}

func (s *DunningServiceSuite) TestSyncPaidIntentSettlesCharge() {
	now := time.Now().UTC()
	ch := s.seedCharge(2, now.AddDate(0, 0, -3))

	_, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	intent, err := s.GetStores().FallbackRepo.GetOpenByCharge(s.GetContext(), ch.ID)
	s.NoError(err)

	paidAt := now.Add(-10 * time.Minute)
	s.provider.SetStatus(intent.ProviderRef, &fallbackpay.IntentStatus{
		Status: types.FallbackStatusPaid,
		PaidAt: &paidAt,
	})

	result, err := s.dunning.SyncFallbackStatus(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Polled)
	s.Equal(1, result.Paid)
	s.Equal(types.JobRunStatusSuccess, result.Status())

	ch, err = s.GetStores().ChargeRepo.Get(s.GetContext(), ch.ID)
	s.NoError(err)
	s.Equal(types.ChargeStatusPaid, ch.ChargeStatus)
	s.Equal(types.CollectionChannelQR, *ch.PaidViaChannel)
	s.True(ch.PaidAt.Equal(paidAt))

	updated, err := s.GetStores().FallbackRepo.Get(s.GetContext(), intent.ID)
	s.NoError(err)
	s.Equal(types.FallbackStatusPaid, updated.FallbackStatus)
	s.False(updated.IsOpen())
}

func (s *DunningServiceSuite) TestSyncPaidIntentOnSettledChargeIsNoOp() {
	now := time.Now().UTC()
	ch := s.seedCharge(2, now.AddDate(0, 0, -3))

	_, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	intent, err := s.GetStores().FallbackRepo.GetOpenByCharge(s.GetContext(), ch.ID)
	s.NoError(err)

	// Bank settlement landed first
	bankPaidAt := now.Add(-time.Hour)
	s.True(ch.MarkPaid(bankPaidAt, types.CollectionChannelDirectDebit))
	s.NoError(s.GetStores().ChargeRepo.Update(s.GetContext(), ch))

	s.provider.SetStatus(intent.ProviderRef, &fallbackpay.IntentStatus{
		Status: types.FallbackStatusPaid,
	})

	result, err := s.dunning.SyncFallbackStatus(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Paid)

	ch, err = s.GetStores().ChargeRepo.Get(s.GetContext(), ch.ID)
	s.NoError(err)
	s.Equal(types.CollectionChannelDirectDebit, *ch.PaidViaChannel)
	s.True(ch.PaidAt.Equal(bankPaidAt))
}

func (s *DunningServiceSuite) TestSyncClosesExpiredIntent() {
	now := time.Now().UTC()
	ch := s.seedCharge(2, now.AddDate(0, 0, -3))

	_, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	intent, err := s.GetStores().FallbackRepo.GetOpenByCharge(s.GetContext(), ch.ID)
	s.NoError(err)

	s.provider.SetStatus(intent.ProviderRef, &fallbackpay.IntentStatus{
		Status: types.FallbackStatusExpired,
	})

	result, err := s.dunning.SyncFallbackStatus(s.GetContext())
	s.NoError(err)
	s.Equal(1, result.Closed)

	// The charge stays pending; the next creation sweep can open a new intent
	ch, err = s.GetStores().ChargeRepo.Get(s.GetContext(), ch.ID)
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, ch.ChargeStatus)

	again, err := s.dunning.CreateFallbacks(s.GetContext())
	s.NoError(err)
	s.Equal(1, again.Created)
}
