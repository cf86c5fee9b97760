package service

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/cache"
	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/fallback"
	"github.com/agensuite/cobranza/internal/domain/filebatch"
	"github.com/agensuite/cobranza/internal/domain/jobrun"
	"github.com/agensuite/cobranza/internal/types"
)

// overviewCacheTTL bounds how stale the dashboard read model can get
const overviewCacheTTL = 5 * time.Minute

// Overview is the operations dashboard read model
type Overview struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	PendingCharges  int             `json:"pending_charges"`
	OverdueCharges  int             `json:"overdue_charges"`
	PaidLast30Days  int             `json:"paid_last_30_days"`
	ProcessedLast7  int             `json:"attempts_processed_last_7_days"`
	OpenBatches     int             `json:"open_batches"`
	OpenFallbacks   int             `json:"open_fallbacks"`
	RecentRuns      []*jobrun.JobRun `json:"recent_runs"`
}

// OverviewService assembles the operations overview. The result is cached
// briefly; the dashboard tolerates a few minutes of staleness.
type OverviewService interface {
	GetOverview(ctx context.Context) (*Overview, error)
}

type overviewService struct {
	ServiceParams
	runs JobRunService
}

// NewOverviewService creates a new overview service
func NewOverviewService(params ServiceParams, runs JobRunService) OverviewService {
	return &overviewService{ServiceParams: params, runs: runs}
}

func (s *overviewService) GetOverview(ctx context.Context) (*Overview, error) {
	cacheKey := cache.PrefixOverview + "global"
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, cacheKey); ok {
			if overview, ok := cached.(*Overview); ok {
				return overview, nil
			}
		}
	}

	now := time.Now().UTC()
	loc := s.Config.Billing.Location()
	pending := types.ChargeStatusPending
	paid := types.ChargeStatusPaid

	pendingCount, err := s.ChargeRepo.Count(ctx, &charge.ListFilters{Status: &pending})
	if err != nil {
		return nil, err
	}

	overdueCutoff := now
	overdueCount, err := s.ChargeRepo.Count(ctx, &charge.ListFilters{
		Status:    &pending,
		DueBefore: &overdueCutoff,
	})
	if err != nil {
		return nil, err
	}

	paidSince := types.AddDaysLocal(now, -30, loc)
	paidCount, err := s.ChargeRepo.Count(ctx, &charge.ListFilters{
		Status:    &paid,
		PaidSince: &paidSince,
	})
	if err != nil {
		return nil, err
	}

	processedSince := types.AddDaysLocal(now, -7, loc)
	processedCount, err := s.AttemptRepo.Count(ctx, &attempt.ListFilters{
		ProcessedSince: &processedSince,
	})
	if err != nil {
		return nil, err
	}

	direction := types.BatchDirectionOutbound
	preparedStatus := types.BatchStatusPrepared
	preparedCount, err := s.BatchRepo.Count(ctx, &filebatch.ListFilters{
		Direction: &direction,
		Status:    &preparedStatus,
	})
	if err != nil {
		return nil, err
	}
	exportedStatus := types.BatchStatusExported
	exportedCount, err := s.BatchRepo.Count(ctx, &filebatch.ListFilters{
		Direction: &direction,
		Status:    &exportedStatus,
	})
	if err != nil {
		return nil, err
	}

	openFallbacks, err := s.FallbackRepo.Count(ctx, &fallback.ListFilters{Open: true})
	if err != nil {
		return nil, err
	}

	recentRuns, err := s.runs.ListRecent(ctx, 10)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		GeneratedAt:    now,
		PendingCharges: pendingCount,
		OverdueCharges: overdueCount,
		PaidLast30Days: paidCount,
		ProcessedLast7: processedCount,
		OpenBatches:    preparedCount + exportedCount,
		OpenFallbacks:  openFallbacks,
		RecentRuns:     recentRuns,
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, cacheKey, overview, overviewCacheTTL)
	}
	return overview, nil
}
