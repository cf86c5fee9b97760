package service

import (
	"github.com/agensuite/cobranza/internal/bank"
	"github.com/agensuite/cobranza/internal/cache"
	"github.com/agensuite/cobranza/internal/config"
	"github.com/agensuite/cobranza/internal/domain/adjustment"
	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/billingconfig"
	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/cycle"
	"github.com/agensuite/cobranza/internal/domain/fallback"
	"github.com/agensuite/cobranza/internal/domain/filebatch"
	"github.com/agensuite/cobranza/internal/domain/fxrate"
	"github.com/agensuite/cobranza/internal/domain/joblock"
	"github.com/agensuite/cobranza/internal/domain/jobrun"
	"github.com/agensuite/cobranza/internal/domain/subscription"
	"github.com/agensuite/cobranza/internal/fallbackpay"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/sentry"
)

// SystemActor is stamped as created_by/updated_by on rows the engine writes
const SystemActor = "system"

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Sentry *sentry.Service
	Cache  cache.Cache

	// Repositories
	SubscriptionRepo  subscription.Repository
	BillingConfigRepo billingconfig.Repository
	AdjustmentRepo    adjustment.Repository
	CycleRepo         cycle.Repository
	ChargeRepo        charge.Repository
	AttemptRepo       attempt.Repository
	BatchRepo         filebatch.Repository
	FallbackRepo      fallback.Repository
	JobRunRepo        jobrun.Repository
	JobLockRepo       joblock.Repository
	FXRateRepo        fxrate.Repository

	// Channel adapters
	BankAdapters      map[string]bank.Adapter
	FallbackProviders *fallbackpay.Registry
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	sentry *sentry.Service,
	cache cache.Cache,
	subscriptionRepo subscription.Repository,
	billingConfigRepo billingconfig.Repository,
	adjustmentRepo adjustment.Repository,
	cycleRepo cycle.Repository,
	chargeRepo charge.Repository,
	attemptRepo attempt.Repository,
	batchRepo filebatch.Repository,
	fallbackRepo fallback.Repository,
	jobRunRepo jobrun.Repository,
	jobLockRepo joblock.Repository,
	fxRateRepo fxrate.Repository,
	bankAdapters map[string]bank.Adapter,
	fallbackProviders *fallbackpay.Registry,
) ServiceParams {
	return ServiceParams{
		Logger:            logger,
		Config:            config,
		Sentry:            sentry,
		Cache:             cache,
		SubscriptionRepo:  subscriptionRepo,
		BillingConfigRepo: billingConfigRepo,
		AdjustmentRepo:    adjustmentRepo,
		CycleRepo:         cycleRepo,
		ChargeRepo:        chargeRepo,
		AttemptRepo:       attemptRepo,
		BatchRepo:         batchRepo,
		FallbackRepo:      fallbackRepo,
		JobRunRepo:        jobRunRepo,
		JobLockRepo:       jobLockRepo,
		FXRateRepo:        fxRateRepo,
		BankAdapters:      bankAdapters,
		FallbackProviders: fallbackProviders,
	}
}

// BankAdapter resolves the adapter for a channel name, falling back to the
// configured default when name is empty
func (p ServiceParams) BankAdapter(name string) (bank.Adapter, bool) {
	if name == "" {
		name = p.Config.Billing.DefaultAdapter
	}
	a, ok := p.BankAdapters[name]
	return a, ok
}
