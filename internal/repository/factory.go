package repository

import (
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
	pgclient "github.com/agensuite/cobranza/internal/postgres"
	pgrepo "github.com/agensuite/cobranza/internal/repository/postgres"
)

func NewSubscriptionRepository(db *pgclient.DB, logger *logger.Logger) subscription.Repository {
	return pgrepo.NewSubscriptionRepository(db, logger)
}

func NewBillingConfigRepository(db *pgclient.DB, logger *logger.Logger) billingconfig.Repository {
	return pgrepo.NewBillingConfigRepository(db, logger)
}

func NewAdjustmentRepository(db *pgclient.DB, logger *logger.Logger) adjustment.Repository {
	return pgrepo.NewAdjustmentRepository(db, logger)
}

func NewCycleRepository(db *pgclient.DB, logger *logger.Logger) cycle.Repository {
	return pgrepo.NewCycleRepository(db, logger)
}

func NewChargeRepository(db *pgclient.DB, logger *logger.Logger) charge.Repository {
	return pgrepo.NewChargeRepository(db, logger)
}

func NewAttemptRepository(db *pgclient.DB, logger *logger.Logger) attempt.Repository {
	return pgrepo.NewAttemptRepository(db, logger)
}

func NewFileBatchRepository(db *pgclient.DB, logger *logger.Logger) filebatch.Repository {
	return pgrepo.NewFileBatchRepository(db, logger)
}

func NewFallbackRepository(db *pgclient.DB, logger *logger.Logger) fallback.Repository {
	return pgrepo.NewFallbackRepository(db, logger)
}

func NewJobRunRepository(db *pgclient.DB, logger *logger.Logger) jobrun.Repository {
	return pgrepo.NewJobRunRepository(db, logger)
}

func NewJobLockRepository(db *pgclient.DB, logger *logger.Logger) joblock.Repository {
	return pgrepo.NewJobLockRepository(db, logger)
}

func NewFXRateRepository(db *pgclient.DB, logger *logger.Logger) fxrate.Repository {
	return pgrepo.NewFXRateRepository(db, logger)
}
