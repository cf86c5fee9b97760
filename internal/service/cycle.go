package service

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/cycle"
	"github.com/agensuite/cobranza/internal/domain/subscription"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
)

// RunAnchorResult tallies one execution of the anchor-day cycle runner
type RunAnchorResult struct {
	AnchorDateKey     string `json:"anchor_date_key"`
	Eligible          int    `json:"eligible"`
	Created           int    `json:"created"`
	SkippedIdempotent int    `json:"skipped_idempotent"`
	Failed            int    `json:"failed"`
}

// Counters converts the result into job run ledger counters
func (r *RunAnchorResult) Counters() map[string]int {
	return map[string]int{
		"eligible":           r.Eligible,
		"created":            r.Created,
		"skipped_idempotent": r.SkippedIdempotent,
		"failed":             r.Failed,
	}
}

// Status classifies the run for the ledger: nothing eligible is NO_OP, any
// mix of success and failure is PARTIAL
func (r *RunAnchorResult) Status() types.JobRunStatus {
	switch {
	case r.Eligible == 0:
		return types.JobRunStatusNoOp
	case r.Failed == 0:
		return types.JobRunStatusSuccess
	case r.Failed == r.Eligible:
		return types.JobRunStatusFailed
	default:
		return types.JobRunStatusPartial
	}
}

// CycleService materializes billing cycles and their charges on anchor days
type CycleService interface {
	// RunAnchor walks active subscriptions and, for each whose clamped anchor
	// day matches the target civil date, creates a cycle with a pricing
	// snapshot plus its charge and first scheduled attempt. A second run for
	// the same date skips what already exists; one tenant's failure never
	// aborts the sweep.
	RunAnchor(ctx context.Context, targetDateKey string) (*RunAnchorResult, error)
}

type cycleService struct {
	ServiceParams
	pricing PricingService
}

// NewCycleService creates a new cycle service
func NewCycleService(params ServiceParams, pricing PricingService) CycleService {
	return &cycleService{
		ServiceParams: params,
		pricing:       pricing,
	}
}

func (s *cycleService) RunAnchor(ctx context.Context, targetDateKey string) (*RunAnchorResult, error) {
	loc := s.Config.Billing.Location()
	targetDate, err := types.StartOfLocalDay(targetDateKey, loc)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Target date must be a valid YYYY-MM-DD date key").
			Mark(ierr.ErrValidation)
	}

	subs, err := s.SubscriptionRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunAnchorResult{AnchorDateKey: targetDateKey}
	for _, sub := range subs {
		anchor := types.AnchorDateForMonth(targetDate, sub.BillingDay, loc)
		if types.DateKeyInTimeZone(anchor, loc) != targetDateKey {
			continue
		}
		result.Eligible++

		if err := s.createCycleForSubscription(ctx, sub, anchor, targetDateKey); err != nil {
			if ierr.IsAlreadyExists(err) {
				result.SkippedIdempotent++
				continue
			}
			result.Failed++
			s.Logger.Errorw("failed to create billing cycle",
				"tenant_id", sub.TenantID,
				"subscription_id", sub.ID,
				"anchor_date_key", targetDateKey,
				"error", err)
			s.Sentry.CaptureException(err)
			continue
		}
		result.Created++
	}

	s.Logger.Infow("anchor run complete",
		"anchor_date_key", targetDateKey,
		"eligible", result.Eligible,
		"created", result.Created,
		"skipped_idempotent", result.SkippedIdempotent,
		"failed", result.Failed)
	return result, nil
}

// createCycleForSubscription creates the cycle, charge and first attempt for
// one tenant. The probe on (tenant, anchor date key) plus the unique index
// behind CycleRepo.Create make a concurrent duplicate surface as
// ErrAlreadyExists either way.
func (s *cycleService) createCycleForSubscription(ctx context.Context, sub *subscription.Subscription, anchor time.Time, anchorDateKey string) error {
	ctx = types.SetTenantID(ctx, sub.TenantID)

	if _, err := s.CycleRepo.GetByTenantAndAnchor(ctx, sub.TenantID, anchorDateKey); err == nil {
		return ierr.NewError("cycle already exists").
			WithHintf("Tenant %s already has a cycle for %s", sub.TenantID, anchorDateKey).
			Mark(ierr.ErrAlreadyExists)
	} else if !ierr.IsNotFound(err) {
		return err
	}

	snapshot, err := s.pricing.BuildSnapshot(ctx, &BuildSnapshotRequest{
		TenantID:         sub.TenantID,
		AnchorDate:       anchor,
		DiscountPercent:  sub.DiscountPercent,
		CollectionMethod: sub.CollectionMethod,
	})
	if err != nil {
		return err
	}

	newCycle := &cycle.BillingCycle{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CYCLE),
		SubscriptionID: sub.ID,
		AnchorDate:     anchor,
		AnchorDateKey:  anchorDateKey,
		Snapshot:       *snapshot,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := newCycle.Validate(); err != nil {
		return err
	}
	if err := s.CycleRepo.Create(ctx, newCycle); err != nil {
		return err
	}

	loc := s.Config.Billing.Location()
	dueDate := types.AddDaysLocal(anchor, s.Config.Billing.DueGraceDays, loc)

	newCharge := &charge.BillingCharge{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CHARGE),
		CycleID:        newCycle.ID,
		SubscriptionID: sub.ID,
		NetUsd:         snapshot.NetUsd,
		VatUsd:         snapshot.VatUsd,
		TotalUsd:       snapshot.TotalUsd,
		TotalArs:       snapshot.TotalArs,
		Currency:       "USD",
		DueDate:        dueDate,
		ChargeStatus:   types.ChargeStatusPending,
		DunningStage:   0,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	if err := newCharge.Validate(); err != nil {
		return err
	}
	if err := s.ChargeRepo.Create(ctx, newCharge); err != nil {
		return err
	}

	// The attempt records the collection try on the tenant's configured
	// channel; batch preparation later picks up only the direct-debit ones
	newAttempt := &attempt.BillingAttempt{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_ATTEMPT),
		ChargeID:      newCharge.ID,
		Channel:       sub.CollectionMethod,
		AttemptStatus: types.AttemptStatusScheduled,
		ScheduledFor:  dueDate,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
	if err := newAttempt.Validate(); err != nil {
		return err
	}
	return s.AttemptRepo.Create(ctx, newAttempt)
}
