package main

import (
	"context"
	"time"

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
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			provideLogger,
			sentry.NewService,
			provideCache,
			postgres.NewDB,
			provideHTTPClient,
			provideBankAdapters,
			provideFallbackRegistry,

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

			service.NewServiceParams,
			service.NewPricingService,
			service.NewCycleService,
			service.NewBatchService,
			service.NewDunningService,
			service.NewJobRunService,
			service.NewLockService,
			service.NewOrchestratorService,
		),
		fx.Invoke(
			sentry.RegisterHooks,
			startScheduler,
		),
	)
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

// startScheduler runs the daily pipeline tick on the configured cron
// expression, evaluated in the billing timezone so the target civil date
// matches what operators expect.
func startScheduler(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	orchestrator service.OrchestratorService,
	db *postgres.DB,
	log *logger.Logger,
) error {
	scheduler := cron.New(
		cron.WithLocation(cfg.Billing.Location()),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	_, err := scheduler.AddFunc(cfg.Cron.TickSchedule, func() {
		ctx := types.SetTenantID(context.Background(), types.DefaultTenantID)
		ctx = types.SetUserID(ctx, service.SystemActor)

		result, err := orchestrator.RunTick(ctx, types.JobRunSourceCron)
		if err != nil {
			log.Errorw("billing tick failed", "error", err)
			return
		}
		for _, step := range result.Steps {
			log.Infow("billing tick step finished",
				"job", step.JobName,
				"run_status", step.Status,
				"target_date", result.TargetDateKey,
			)
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting billing scheduler", "schedule", cfg.Cron.TickSchedule, "timezone", cfg.Billing.Timezone)
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping billing scheduler")
			stopCtx := scheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-time.After(30 * time.Second):
				log.Warn("billing scheduler did not drain in time")
			}
			db.Close()
			return nil
		},
	})
	return nil
}
