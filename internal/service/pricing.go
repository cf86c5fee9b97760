package service

import (
	"context"
	"strings"
	"time"

	"github.com/agensuite/cobranza/internal/cache"
	"github.com/agensuite/cobranza/internal/domain/cycle"
	"github.com/agensuite/cobranza/internal/domain/fxrate"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
)

// DiscountKindMatcher classifies a free-text adjustment kind as a discount.
// The rule is pluggable so the matching stays isolated and independently
// testable; agencies rely on the loose matching for existing data labels,
// so do not tighten it silently.
type DiscountKindMatcher func(kind string) bool

// DefaultDiscountKindMatcher matches the substrings "discount" and
// "descuento" case-insensitively
func DefaultDiscountKindMatcher(kind string) bool {
	k := strings.ToLower(kind)
	return strings.Contains(k, "discount") || strings.Contains(k, "descuento")
}

// seatTier maps a seat-count ceiling to a monthly USD price; MaxSeats 0
// means unbounded
type seatTier struct {
	MaxSeats int
	PriceUsd decimal.Decimal
}

// planPricing is the plan pricing table keyed by plan and seat tier
var planPricing = map[string][]seatTier{
	"basico": {
		{MaxSeats: 3, PriceUsd: decimal.NewFromInt(50)},
		{MaxSeats: 10, PriceUsd: decimal.NewFromInt(100)},
		{MaxSeats: 0, PriceUsd: decimal.NewFromInt(150)},
	},
	"profesional": {
		{MaxSeats: 3, PriceUsd: decimal.NewFromInt(120)},
		{MaxSeats: 10, PriceUsd: decimal.NewFromInt(200)},
		{MaxSeats: 0, PriceUsd: decimal.NewFromInt(320)},
	},
	"premium": {
		{MaxSeats: 3, PriceUsd: decimal.NewFromInt(200)},
		{MaxSeats: 10, PriceUsd: decimal.NewFromInt(340)},
		{MaxSeats: 0, PriceUsd: decimal.NewFromInt(520)},
	},
}

// BasePlanUsd resolves the monthly base price for a plan and seat count.
// Unknown plans fall back to the default plan's table.
func BasePlanUsd(planKey string, seatCount int) decimal.Decimal {
	tiers, ok := planPricing[planKey]
	if !ok {
		tiers = planPricing["basico"]
	}
	for _, tier := range tiers {
		if tier.MaxSeats == 0 || seatCount <= tier.MaxSeats {
			return tier.PriceUsd
		}
	}
	return tiers[len(tiers)-1].PriceUsd
}

const reasonUnsupportedCurrency = "unsupported-currency"

// BuildSnapshotRequest carries everything the builder needs for one cycle
type BuildSnapshotRequest struct {
	TenantID         string
	AnchorDate       time.Time
	DiscountPercent  decimal.Decimal
	CollectionMethod types.CollectionChannel
}

// PricingService converts a tenant's plan + adjustments + discount policy +
// FX rate into a fully itemized, immutable charge snapshot
type PricingService interface {
	BuildSnapshot(ctx context.Context, req *BuildSnapshotRequest) (*cycle.PricingSnapshot, error)
}

type pricingService struct {
	ServiceParams
	isDiscountKind DiscountKindMatcher
}

// NewPricingService creates a new pricing service with the default
// discount-kind classifier
func NewPricingService(params ServiceParams) PricingService {
	return NewPricingServiceWithMatcher(params, DefaultDiscountKindMatcher)
}

// NewPricingServiceWithMatcher allows injecting an alternate classifier
func NewPricingServiceWithMatcher(params ServiceParams, matcher DiscountKindMatcher) PricingService {
	return &pricingService{
		ServiceParams:  params,
		isDiscountKind: matcher,
	}
}

// round2 applies the step-wise rounding policy: every monetary intermediate
// is rounded to 2 decimals so stored snapshot fields reproduce exactly under
// re-display, at the cost of compounding rounding by a cent in rare cases.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func max0(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (s *pricingService) BuildSnapshot(ctx context.Context, req *BuildSnapshotRequest) (*cycle.PricingSnapshot, error) {
	cfg, err := s.BillingConfigRepo.GetByTenant(ctx, req.TenantID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	planKey := cfg.EffectivePlanKey()
	seatCount := cfg.EffectiveSeatCount()
	base := round2(BasePlanUsd(planKey, seatCount))

	adjustments, err := s.AdjustmentRepo.ListActiveAt(ctx, req.TenantID, req.AnchorDate)
	if err != nil {
		return nil, err
	}

	lines := make([]cycle.AdjustmentLine, 0, len(adjustments))
	addonsTotal := decimal.Zero
	for _, adj := range adjustments {
		line := cycle.AdjustmentLine{
			AdjustmentID: adj.ID,
			Kind:         adj.Kind,
			Mode:         adj.Mode,
			Currency:     adj.Currency,
			Value:        adj.Value,
		}

		if adj.Currency != "" && adj.Currency != "USD" {
			line.Applied = false
			line.Reason = reasonUnsupportedCurrency
			line.AmountUsd = decimal.Zero
			lines = append(lines, line)
			continue
		}

		var amount decimal.Decimal
		switch adj.Mode {
		case types.AdjustmentModePercent:
			amount = round2(base.Mul(adj.Value).Div(decimal.NewFromInt(100)))
		default:
			amount = round2(adj.Value)
		}
		if s.isDiscountKind(adj.Kind) {
			amount = amount.Neg()
		}

		line.Applied = true
		line.AmountUsd = amount
		lines = append(lines, line)
		addonsTotal = addonsTotal.Add(amount)
	}
	addonsTotal = round2(addonsTotal)

	preDiscountNet := round2(max0(base.Add(addonsTotal)))

	// The discount rewards committing to auto-debit: any other collection
	// method forfeits it
	discountPercent := req.DiscountPercent
	if req.CollectionMethod != types.CollectionChannelDirectDebit {
		discountPercent = decimal.Zero
	}
	discountAmount := round2(preDiscountNet.Mul(discountPercent).Div(decimal.NewFromInt(100)))

	net := round2(max0(preDiscountNet.Sub(discountAmount)))
	vatRate := decimal.NewFromFloat(s.Config.Billing.VATRatePercent)
	vat := round2(net.Mul(vatRate).Div(decimal.NewFromInt(100)))
	totalUsd := round2(net.Add(vat))

	fxDateKey := types.DateKeyInTimeZone(req.AnchorDate, s.Config.Billing.Location())
	rate, err := s.getFXRate(ctx, fxDateKey)
	if err != nil {
		return nil, err
	}
	totalArs := round2(totalUsd.Mul(rate.ArsPerUsd))

	return &cycle.PricingSnapshot{
		PlanKey:           planKey,
		SeatCount:         seatCount,
		BasePlanUsd:       base,
		Adjustments:       lines,
		AddonsTotalUsd:    addonsTotal,
		PreDiscountNetUsd: preDiscountNet,
		DiscountPercent:   discountPercent,
		DiscountUsd:       discountAmount,
		NetUsd:            net,
		VatRatePercent:    vatRate,
		VatUsd:            vat,
		TotalUsd:          totalUsd,
		FxRateDateKey:     rate.DateKey,
		FxRateArsPerUsd:   rate.ArsPerUsd,
		TotalArs:          totalArs,
	}, nil
}

func (s *pricingService) getFXRate(ctx context.Context, dateKey string) (*fxrate.Rate, error) {
	cacheKey := cache.PrefixFXRate + dateKey
	if s.Cache != nil {
		if cached, ok := s.Cache.Get(ctx, cacheKey); ok {
			if rate, ok := cached.(*fxrate.Rate); ok {
				return rate, nil
			}
		}
	}

	rate, err := s.FXRateRepo.GetByDate(ctx, dateKey)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.WithError(err).
				WithHintf("No FX rate loaded for %s", dateKey).
				Mark(ierr.ErrInvalidOperation)
		}
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, cacheKey, rate, cache.DefaultExpiration)
	}
	return rate, nil
}
