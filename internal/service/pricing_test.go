package service

import (
	"testing"
	"time"

	"github.com/agensuite/cobranza/internal/domain/adjustment"
	"github.com/agensuite/cobranza/internal/domain/billingconfig"
	"github.com/agensuite/cobranza/internal/domain/cycle"
	"github.com/agensuite/cobranza/internal/domain/fxrate"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PricingServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	pricing PricingService
	anchor  time.Time
}

func TestPricingService(t *testing.T) {
	suite.Run(t, new(PricingServiceSuite))
}

func (s *PricingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = newTestParams(&s.BaseServiceTestSuite, nil)
	s.pricing = NewPricingService(s.params)

	loc := s.GetConfig().Billing.Location()
	s.anchor = time.Date(2025, 6, 30, 0, 0, 0, 0, loc)
	s.seedFXRate("2025-06-30", decimal.NewFromInt(1000))
}

func (s *PricingServiceSuite) seedFXRate(dateKey string, rate decimal.Decimal) {
	err := s.GetStores().FXRateRepo.Upsert(s.GetContext(), &fxrate.Rate{
		DateKey:   dateKey,
		ArsPerUsd: rate,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

func (s *PricingServiceSuite) seedBillingConfig(planKey string, seats int) {
	err := s.GetStores().BillingConfigRepo.Create(s.GetContext(), &billingconfig.BillingConfig{
		ID:        types.GenerateUUIDWithPrefix("bcfg"),
		PlanKey:   planKey,
		SeatCount: seats,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

func (s *PricingServiceSuite) seedAdjustment(kind string, mode types.AdjustmentMode, currency string, value decimal.Decimal) {
	err := s.GetStores().AdjustmentRepo.Create(s.GetContext(), &adjustment.BillingAdjustment{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ADJUSTMENT),
		Kind:      kind,
		Mode:      mode,
		Currency:  currency,
		Value:     value,
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	})
	s.NoError(err)
}

func (s *PricingServiceSuite) buildSnapshot(discountPercent decimal.Decimal, method types.CollectionChannel) *cycle.PricingSnapshot {
	snap, err := s.pricing.BuildSnapshot(s.GetContext(), &BuildSnapshotRequest{
		TenantID:         types.DefaultTenantID,
		AnchorDate:       s.anchor,
		DiscountPercent:  discountPercent,
		CollectionMethod: method,
	})
	s.NoError(err)
	s.NotNil(snap)
	return snap
}

func (s *PricingServiceSuite) TestDefaultsWithoutConfig() {
	snap := s.buildSnapshot(decimal.Zero, types.CollectionChannelDirectDebit)

	s.Equal("basico", snap.PlanKey)
	s.Equal(3, snap.SeatCount)
	s.Equal("50.00", snap.BasePlanUsd.StringFixed(2))
	s.Equal("50.00", snap.NetUsd.StringFixed(2))
	s.Equal("10.50", snap.VatUsd.StringFixed(2))
	s.Equal("60.50", snap.TotalUsd.StringFixed(2))
	s.Equal("60500.00", snap.TotalArs.StringFixed(2))
	s.Equal("2025-06-30", snap.FxRateDateKey)
}

func (s *PricingServiceSuite) TestPercentDiscountAndAbsoluteAddon() {
	s.seedBillingConfig("basico", 5)
	s.seedAdjustment("Descuento lealtad", types.AdjustmentModePercent, "USD", decimal.NewFromInt(10))
	s.seedAdjustment("Addon WhatsApp", types.AdjustmentModeAbsolute, "USD", decimal.NewFromInt(20))

	snap := s.buildSnapshot(decimal.Zero, types.CollectionChannelDirectDebit)

	s.Equal("100.00", snap.BasePlanUsd.StringFixed(2))
	s.Equal("10.00", snap.AddonsTotalUsd.StringFixed(2))
	s.Equal("110.00", snap.PreDiscountNetUsd.StringFixed(2))
	s.Equal("110.00", snap.NetUsd.StringFixed(2))
	s.Equal("23.10", snap.VatUsd.StringFixed(2))
	s.Equal("133.10", snap.TotalUsd.StringFixed(2))
	s.Equal("133100.00", snap.TotalArs.StringFixed(2))

	s.Len(snap.Adjustments, 2)
	for _, line := range snap.Adjustments {
		s.True(line.Applied)
	}
}

func (s *PricingServiceSuite) TestUnsupportedCurrencyExcluded() {
	s.seedBillingConfig("basico", 5)
	s.seedAdjustment("Addon local", types.AdjustmentModeAbsolute, "ARS", decimal.NewFromInt(5000))

	snap := s.buildSnapshot(decimal.Zero, types.CollectionChannelDirectDebit)

	s.Equal("0.00", snap.AddonsTotalUsd.StringFixed(2))
	s.Equal("100.00", snap.NetUsd.StringFixed(2))
	s.Len(snap.Adjustments, 1)
	s.False(snap.Adjustments[0].Applied)
	s.Equal("unsupported-currency", snap.Adjustments[0].Reason)
	s.Equal("0.00", snap.Adjustments[0].AmountUsd.StringFixed(2))
}

func (s *PricingServiceSuite) TestDiscountRequiresDirectDebit() {
	s.seedBillingConfig("basico", 5)
	discount := decimal.NewFromInt(10)

	viaQR := s.buildSnapshot(discount, types.CollectionChannelQR)
	s.Equal("0.00", viaQR.DiscountUsd.StringFixed(2))
	s.True(viaQR.DiscountPercent.IsZero())
	s.Equal("100.00", viaQR.NetUsd.StringFixed(2))

	viaDebit := s.buildSnapshot(discount, types.CollectionChannelDirectDebit)
	s.Equal("10.00", viaDebit.DiscountUsd.StringFixed(2))
	s.Equal("90.00", viaDebit.NetUsd.StringFixed(2))
	s.Equal("18.90", viaDebit.VatUsd.StringFixed(2))
	s.Equal("108.90", viaDebit.TotalUsd.StringFixed(2))
}

func (s *PricingServiceSuite) TestStepwiseRounding() {
	s.seedBillingConfig("basico", 5)
	// 3.333% of 100 rounds to 3.33 before any later step sees it
	s.seedAdjustment("Addon prorrateado", types.AdjustmentModePercent, "USD", decimal.NewFromFloat(3.333))

	snap := s.buildSnapshot(decimal.Zero, types.CollectionChannelDirectDebit)

	s.Equal("3.33", snap.AddonsTotalUsd.StringFixed(2))
	s.Equal("103.33", snap.NetUsd.StringFixed(2))
	s.Equal("21.70", snap.VatUsd.StringFixed(2))
	s.Equal("125.03", snap.TotalUsd.StringFixed(2))
}

func (s *PricingServiceSuite) TestNetNeverNegative() {
	// A discount larger than the base clamps to zero instead of crediting
	s.seedAdjustment("Descuento total", types.AdjustmentModeAbsolute, "USD", decimal.NewFromInt(500))

	snap := s.buildSnapshot(decimal.Zero, types.CollectionChannelDirectDebit)

	s.Equal("0.00", snap.PreDiscountNetUsd.StringFixed(2))
	s.Equal("0.00", snap.NetUsd.StringFixed(2))
	s.Equal("0.00", snap.TotalUsd.StringFixed(2))
}

func (s *PricingServiceSuite) TestMissingFXRateFails() {
	loc := s.GetConfig().Billing.Location()
	_, err := s.pricing.BuildSnapshot(s.GetContext(), &BuildSnapshotRequest{
		TenantID:         types.DefaultTenantID,
		AnchorDate:       time.Date(2025, 7, 31, 0, 0, 0, 0, loc),
		DiscountPercent:  decimal.Zero,
		CollectionMethod: types.CollectionChannelDirectDebit,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func TestDefaultDiscountKindMatcher(t *testing.T) {
	cases := []struct {
		kind string
		want bool
	}{
		{"Descuento lealtad", true},
		{"DESCUENTO", true},
		{"Loyalty discount", true},
		{"Addon WhatsApp", false},
		{"Seguro", false},
	}
	for _, tc := range cases {
		if got := DefaultDiscountKindMatcher(tc.kind); got != tc.want {
			t.Errorf("DefaultDiscountKindMatcher(%q) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestBasePlanUsd(t *testing.T) {
	cases := []struct {
		plan  string
		seats int
		want  string
	}{
		{"basico", 1, "50"},
		{"basico", 3, "50"},
		{"basico", 5, "100"},
		{"basico", 50, "150"},
		{"profesional", 3, "120"},
		{"premium", 11, "520"},
		{"unknown-plan", 3, "50"},
	}
	for _, tc := range cases {
		if got := BasePlanUsd(tc.plan, tc.seats); got.String() != tc.want {
			t.Errorf("BasePlanUsd(%q, %d) = %s, want %s", tc.plan, tc.seats, got, tc.want)
		}
	}
}
