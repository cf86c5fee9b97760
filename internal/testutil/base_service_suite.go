package testutil

import (
	"context"
	"time"

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
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
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
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(logger.Config{Level: "error"})
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.cache = cache.NewInMemoryCache(true)
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		SubscriptionRepo:  NewInMemorySubscriptionStore(),
		BillingConfigRepo: NewInMemoryBillingConfigStore(),
		AdjustmentRepo:    NewInMemoryAdjustmentStore(),
		CycleRepo:         NewInMemoryCycleStore(),
		ChargeRepo:        NewInMemoryChargeStore(),
		AttemptRepo:       NewInMemoryAttemptStore(),
		BatchRepo:         NewInMemoryFileBatchStore(),
		FallbackRepo:      NewInMemoryFallbackStore(),
		JobRunRepo:        NewInMemoryJobRunStore(),
		JobLockRepo:       NewInMemoryJobLockStore(),
		FXRateRepo:        NewInMemoryFXRateStore(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.SubscriptionRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.BillingConfigRepo.(*InMemoryBillingConfigStore).Clear()
	s.stores.AdjustmentRepo.(*InMemoryAdjustmentStore).Clear()
	s.stores.CycleRepo.(*InMemoryCycleStore).Clear()
	s.stores.ChargeRepo.(*InMemoryChargeStore).Clear()
	s.stores.AttemptRepo.(*InMemoryAttemptStore).Clear()
	s.stores.BatchRepo.(*InMemoryFileBatchStore).Clear()
	s.stores.FallbackRepo.(*InMemoryFallbackStore).Clear()
	s.stores.JobRunRepo.(*InMemoryJobRunStore).Clear()
	s.stores.JobLockRepo.(*InMemoryJobLockStore).Clear()
	s.stores.FXRateRepo.(*InMemoryFXRateStore).Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetNow returns the current time used in the test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
