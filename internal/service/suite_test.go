package service

import (
	"github.com/agensuite/cobranza/internal/bank"
	"github.com/agensuite/cobranza/internal/fallbackpay"
	"github.com/agensuite/cobranza/internal/sentry"
	"github.com/agensuite/cobranza/internal/testutil"
)

// newTestParams wires the in-memory stores and mocks into ServiceParams the
// way the fx container does in production
func newTestParams(s *testutil.BaseServiceTestSuite, bankAdapter *testutil.MockBankAdapter, providers ...fallbackpay.Provider) ServiceParams {
	stores := s.GetStores()
	adapters := map[string]bank.Adapter{}
	if bankAdapter != nil {
		adapters[bankAdapter.Name()] = bankAdapter
	}
	return ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		Sentry:            sentry.NewService(nil, s.GetLogger()),
		Cache:             s.GetCache(),
		SubscriptionRepo:  stores.SubscriptionRepo,
		BillingConfigRepo: stores.BillingConfigRepo,
		AdjustmentRepo:    stores.AdjustmentRepo,
		CycleRepo:         stores.CycleRepo,
		ChargeRepo:        stores.ChargeRepo,
		AttemptRepo:       stores.AttemptRepo,
		BatchRepo:         stores.BatchRepo,
		FallbackRepo:      stores.FallbackRepo,
		JobRunRepo:        stores.JobRunRepo,
		JobLockRepo:       stores.JobLockRepo,
		FXRateRepo:        stores.FXRateRepo,
		BankAdapters:      adapters,
		FallbackProviders: fallbackpay.NewRegistry(providers...),
	}
}
