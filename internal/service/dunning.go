package service

import (
	"context"
	"time"

	"github.com/agensuite/cobranza/internal/domain/charge"
	"github.com/agensuite/cobranza/internal/domain/fallback"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/fallbackpay"
	"github.com/agensuite/cobranza/internal/types"
)

const (
	// overdueEscalationDays opens a fallback for a pending charge that has
	// sat past due this long even when the bank never rejected it, covering
	// charges that were never successfully presented at all
	overdueEscalationDays = 14

	// fallbackExpiryDays bounds how long a provider keeps an intent payable
	fallbackExpiryDays = 7
)

// CreateFallbacksResult tallies one fallback creation sweep
type CreateFallbacksResult struct {
	Candidates  int `json:"candidates"`
	Created     int `json:"created"`
	SkippedOpen int `json:"skipped_open"`
	Failed      int `json:"failed"`
}

// Counters converts the result into job run ledger counters
func (r *CreateFallbacksResult) Counters() map[string]int {
	return map[string]int{
		"candidates":   r.Candidates,
		"created":      r.Created,
		"skipped_open": r.SkippedOpen,
		"failed":       r.Failed,
	}
}

// Status classifies the sweep for the ledger
func (r *CreateFallbacksResult) Status() types.JobRunStatus {
	switch {
	case r.Candidates == 0:
		return types.JobRunStatusNoOp
	case r.Failed == 0:
		return types.JobRunStatusSuccess
	case r.Created == 0 && r.SkippedOpen == 0:
		return types.JobRunStatusFailed
	default:
		return types.JobRunStatusPartial
	}
}

// SyncFallbacksResult tallies one provider status polling sweep
type SyncFallbacksResult struct {
	Polled int `json:"polled"`
	Paid   int `json:"paid"`
	Closed int `json:"closed"`
	Failed int `json:"failed"`
}

// Counters converts the result into job run ledger counters
func (r *SyncFallbacksResult) Counters() map[string]int {
	return map[string]int{
		"polled": r.Polled,
		"paid":   r.Paid,
		"closed": r.Closed,
		"failed": r.Failed,
	}
}

// Status classifies the sweep for the ledger
func (r *SyncFallbacksResult) Status() types.JobRunStatus {
	switch {
	case r.Polled == 0:
		return types.JobRunStatusNoOp
	case r.Failed == 0:
		return types.JobRunStatusSuccess
	case r.Failed == r.Polled:
		return types.JobRunStatusFailed
	default:
		return types.JobRunStatusPartial
	}
}

// DunningService escalates unpaid charges to alternate payment channels and
// keeps open intents in sync with the provider
type DunningService interface {
	// CreateFallbacks opens an intent for every pending charge whose dunning
	// stage crossed the threshold or that has been overdue long enough. A
	// charge with an open intent is skipped; one provider failure never
	// aborts the sweep.
	CreateFallbacks(ctx context.Context) (*CreateFallbacksResult, error)

	// SyncFallbackStatus polls the provider for every open intent and applies
	// terminal outcomes. A PAID intent settles its charge; settling an
	// already paid charge is a no-op.
	SyncFallbackStatus(ctx context.Context) (*SyncFallbacksResult, error)
}

type dunningService struct {
	ServiceParams
}

// NewDunningService creates a new dunning service
func NewDunningService(params ServiceParams) DunningService {
	return &dunningService{ServiceParams: params}
}

func (s *dunningService) CreateFallbacks(ctx context.Context) (*CreateFallbacksResult, error) {
	result := &CreateFallbacksResult{}
	if !s.Config.Fallback.Enabled {
		s.Logger.Infow("fallback channel disabled, skipping creation sweep")
		return result, nil
	}

	provider, err := s.FallbackProviders.Get(s.Config.Fallback.Provider)
	if err != nil {
		return nil, err
	}

	candidates, err := s.collectCandidates(ctx)
	if err != nil {
		return nil, err
	}
	result.Candidates = len(candidates)

	now := time.Now().UTC()
	for _, ch := range candidates {
		if _, err := s.FallbackRepo.GetOpenByCharge(ctx, ch.ID); err == nil {
			result.SkippedOpen++
			continue
		} else if !ierr.IsNotFound(err) {
			return nil, err
		}

		if err := s.createIntent(ctx, provider, ch, now); err != nil {
			result.Failed++
			s.Logger.Errorw("failed to create fallback intent",
				"charge_id", ch.ID,
				"provider", provider.Name(),
				"error", err)
			s.Sentry.CaptureException(err)
			continue
		}
		result.Created++
	}

	s.Logger.Infow("fallback creation sweep complete",
		"candidates", result.Candidates,
		"created", result.Created,
		"skipped_open", result.SkippedOpen,
		"failed", result.Failed)
	return result, nil
}

// collectCandidates merges the two escalation triggers: dunning stage at or
// past the threshold, and long-overdue charges the bank never answered for
func (s *dunningService) collectCandidates(ctx context.Context) ([]*charge.BillingCharge, error) {
	pending := types.ChargeStatusPending
	threshold := s.Config.Billing.DunningThreshold

	byStage, err := s.ChargeRepo.List(ctx, &charge.ListFilters{
		Status:     &pending,
		MinDunning: &threshold,
	})
	if err != nil {
		return nil, err
	}

	loc := s.Config.Billing.Location()
	overdueCutoff := types.AddDaysLocal(time.Now(), -overdueEscalationDays, loc)
	byOverdue, err := s.ChargeRepo.List(ctx, &charge.ListFilters{
		Status:    &pending,
		DueBefore: &overdueCutoff,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(byStage))
	candidates := make([]*charge.BillingCharge, 0, len(byStage)+len(byOverdue))
	for _, ch := range byStage {
		seen[ch.ID] = true
		candidates = append(candidates, ch)
	}
	for _, ch := range byOverdue {
		if !seen[ch.ID] {
			candidates = append(candidates, ch)
		}
	}
	return candidates, nil
}

func (s *dunningService) createIntent(ctx context.Context, provider fallbackpay.Provider, ch *charge.BillingCharge, now time.Time) error {
	ctx = types.SetTenantID(ctx, ch.TenantID)

	resp, err := provider.CreateIntent(ctx, &fallbackpay.CreateIntentRequest{
		ChargeID:  ch.ID,
		TenantID:  ch.TenantID,
		AmountArs: ch.TotalArs,
		ExpiresAt: now.AddDate(0, 0, fallbackExpiryDays),
	})
	if err != nil {
		return err
	}

	status := resp.Status
	if status == "" {
		status = types.FallbackStatusCreated
	}

	intent := &fallback.FallbackIntent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FALLBACK_INTENT),
		ChargeID:       ch.ID,
		Provider:       provider.Name(),
		ProviderRef:    resp.ProviderRef,
		FallbackStatus: status,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}
	intent.TenantID = ch.TenantID
	if err := intent.Validate(); err != nil {
		return err
	}
	return s.FallbackRepo.Create(ctx, intent)
}

func (s *dunningService) SyncFallbackStatus(ctx context.Context) (*SyncFallbacksResult, error) {
	result := &SyncFallbacksResult{}
	if !s.Config.Fallback.Enabled {
		s.Logger.Infow("fallback channel disabled, skipping status sync")
		return result, nil
	}

	open, err := s.FallbackRepo.List(ctx, &fallback.ListFilters{Open: true})
	if err != nil {
		return nil, err
	}

	for _, intent := range open {
		result.Polled++
		if err := s.syncIntent(ctx, intent); err != nil {
			result.Failed++
			s.Logger.Errorw("failed to sync fallback intent",
				"intent_id", intent.ID,
				"provider", intent.Provider,
				"error", err)
			s.Sentry.CaptureException(err)
			continue
		}
		switch intent.FallbackStatus {
		case types.FallbackStatusPaid:
			result.Paid++
		case types.FallbackStatusExpired, types.FallbackStatusFailed:
			result.Closed++
		}
	}

	s.Logger.Infow("fallback status sync complete",
		"polled", result.Polled,
		"paid", result.Paid,
		"closed", result.Closed,
		"failed", result.Failed)
	return result, nil
}

func (s *dunningService) syncIntent(ctx context.Context, intent *fallback.FallbackIntent) error {
	provider, err := s.FallbackProviders.Get(intent.Provider)
	if err != nil {
		return err
	}

	status, err := provider.GetStatus(ctx, intent.ProviderRef)
	if err != nil {
		return err
	}
	if status.Status == intent.FallbackStatus {
		return nil
	}
	if err := status.Status.Validate(); err != nil {
		return ierr.WithError(err).
			WithHintf("Provider %s answered an unknown status", intent.Provider).
			Mark(ierr.ErrHTTPClient)
	}

	now := time.Now().UTC()
	intent.FallbackStatus = status.Status
	intent.UpdatedAt = now

	if status.Status == types.FallbackStatusPaid {
		paidAt := now
		if status.PaidAt != nil {
			paidAt = *status.PaidAt
		}
		intent.PaidAt = &paidAt

		ch, err := s.ChargeRepo.Get(ctx, intent.ChargeID)
		if err != nil {
			return err
		}
		if ch.MarkPaid(paidAt, provider.Channel()) {
			ch.UpdatedAt = now
			if err := s.ChargeRepo.Update(ctx, ch); err != nil {
				return err
			}
		} else {
			s.Logger.Infow("charge already settled, recording paid intent only",
				"charge_id", ch.ID,
				"intent_id", intent.ID)
		}
	}

	return s.FallbackRepo.Update(ctx, intent)
}
