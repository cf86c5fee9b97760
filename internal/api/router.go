package api

import (
	"github.com/agensuite/cobranza/internal/api/cron"
	v1 "github.com/agensuite/cobranza/internal/api/v1"
	"github.com/agensuite/cobranza/internal/config"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/rest/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health      *v1.HealthHandler
	Overview    *v1.OverviewHandler
	CronBilling *cron.BillingJobHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.SentryMiddleware(cfg),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware,
		middleware.TenantMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	cronGroup := router.Group("/cron")
	registerCronRoutes(cronGroup, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	router.GET("/overview", handlers.Overview.GetOverview)
	router.GET("/job-runs", handlers.Overview.ListJobRuns)
}

// registerCronRoutes wires the manual job triggers. The external scheduler
// and operators hit these; every route lands on the run ledger.
func registerCronRoutes(router *gin.RouterGroup, handlers Handlers) {
	billing := router.Group("/billing")
	{
		billing.POST("/tick", handlers.CronBilling.Tick)
		billing.POST("/run-anchor", handlers.CronBilling.RunAnchor)
		billing.POST("/batches/prepare", handlers.CronBilling.PrepareBatch)
		billing.POST("/batches/:id/export", handlers.CronBilling.ExportBatch)
		billing.POST("/batches/:id/reconcile", handlers.CronBilling.ReconcileBatch)
		billing.POST("/fallbacks/create", handlers.CronBilling.CreateFallbacks)
		billing.POST("/fallbacks/sync", handlers.CronBilling.SyncFallbackStatus)
	}
}
