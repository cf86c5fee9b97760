package main

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/api"
	"github.com/agensuite/cobranza/internal/api/cron"
	v1 "github.com/agensuite/cobranza/internal/api/v1"
	"github.com/agensuite/cobranza/internal/bank"
	"github.com/agensuite/cobranza/internal/cache"
	"github.com/agensuite/cobranza/internal/config"
	"github.com/agensuite/cobranza/internal/fallbackpay"
	"github.com/agensuite/cobranza/internal/httpclient"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
	"github.com/agensuite/cobranza/internal/repository"
	"github.com/agensuite/cobranza/internal/sentry"
	"github.com/agensuite/cobranza/internal/service"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/agensuite/cobranza/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// @title Cobranza API
// @version 1.0
// @description Recurring billing and collections engine
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			provideLogger,

			// Monitoring
			sentry.NewService,

			// Cache
			provideCache,

			// Postgres
			postgres.NewDB,

			// HTTP client
			provideHTTPClient,

			// Collection channels
			provideBankAdapters,
			provideFallbackRegistry,

			// Repositories
			repository.NewSubscriptionRepository,
			repository.NewBillingConfigRepository,
			repository.NewAdjustmentRepository,
			repository.NewCycleRepository,
			repository.NewChargeRepository,
			repository.NewAttemptRepository,
			repository.NewFileBatchRepository,
			repository.NewFallbackRepository,
			repository.NewJobRunRepository,
			repository.NewJobLockRepository,
			repository.NewFXRateRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewPricingService,
			service.NewCycleService,
			service.NewBatchService,
			service.NewDunningService,
			service.NewJobRunService,
			service.NewLockService,
			service.NewOrchestratorService,
			service.NewOverviewService,
		),
	)

	// API layer
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLogger(logger.Config{Level: cfg.Logging.Level})
}

func provideCache(cfg *config.Configuration) cache.Cache {
	return cache.NewInMemoryCache(cfg.Cache.Enabled)
}

func provideHTTPClient(cfg *config.Configuration) httpclient.Client {
	return httpclient.NewRetryableClient(time.Duration(cfg.Bank.TimeoutSeconds) * time.Second)
}

func provideBankAdapters(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) map[string]bank.Adapter {
	adapter := bank.NewHTTPAdapter(cfg.Billing.DefaultAdapter, cfg.Bank.BaseURL, client, log)
	return map[string]bank.Adapter{
		adapter.Name(): adapter,
	}
}

func provideFallbackRegistry(cfg *config.Configuration, client httpclient.Client) *fallbackpay.Registry {
	if !cfg.Fallback.Enabled {
		return fallbackpay.NewRegistry()
	}
	provider := fallbackpay.NewHTTPProvider(
		cfg.Fallback.Provider,
		types.CollectionChannelQR,
		cfg.Fallback.BaseURL,
		client,
	)
	return fallbackpay.NewRegistry(provider)
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	overviewService service.OverviewService,
	jobRunService service.JobRunService,
	orchestratorService service.OrchestratorService,
	cycleService service.CycleService,
	batchService service.BatchService,
	dunningService service.DunningService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(logger),
		Overview:    v1.NewOverviewHandler(overviewService, jobRunService, logger),
		CronBilling: cron.NewBillingJobHandler(cfg, orchestratorService, cycleService, batchService, dunningService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	startAPIServer(lc, r, cfg, log)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
