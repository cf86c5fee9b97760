package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/agensuite/cobranza/internal/domain/attempt"
	"github.com/agensuite/cobranza/internal/domain/charge"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/testutil"
	"github.com/agensuite/cobranza/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BatchServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	batches BatchService
	bank    *testutil.MockBankAdapter
}

func TestBatchService(t *testing.T) {
	suite.Run(t, new(BatchServiceSuite))
}

func (s *BatchServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.bank = testutil.NewMockBankAdapter("galicia-debits")
	s.params = newTestParams(&s.BaseServiceTestSuite, s.bank)
	s.batches = NewBatchService(s.params)
}

func (s *BatchServiceSuite) seedChargeWithAttempt(tenantID string, scheduledFor time.Time) (*charge.BillingCharge, *attempt.BillingAttempt) {
	ch := &charge.BillingCharge{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CHARGE),
		CycleID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_CYCLE),
		SubscriptionID: types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		NetUsd:         decimal.NewFromInt(100),
		VatUsd:         decimal.NewFromInt(21),
		TotalUsd:       decimal.NewFromInt(121),
		TotalArs:       decimal.NewFromInt(145200),
		Currency:       "USD",
		DueDate:        scheduledFor,
		ChargeStatus:   types.ChargeStatusPending,
		BaseModel:      types.GetDefaultBaseModel(s.GetContext()),
	}
	ch.TenantID = tenantID
	s.NoError(s.GetStores().ChargeRepo.Create(s.GetContext(), ch))

	a := &attempt.BillingAttempt{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_ATTEMPT),
		ChargeID:      ch.ID,
		Channel:       types.CollectionChannelDirectDebit,
		AttemptStatus: types.AttemptStatusScheduled,
		ScheduledFor:  scheduledFor,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	a.TenantID = tenantID
	s.NoError(s.GetStores().AttemptRepo.Create(s.GetContext(), a))
	return ch, a
}

func (s *BatchServiceSuite) businessDate() (string, time.Time) {
	loc := s.GetConfig().Billing.Location()
	dateKey := types.DateKeyInTimeZone(time.Now(), loc)
	day, err := types.StartOfLocalDay(dateKey, loc)
	s.NoError(err)
	return dateKey, day
}

func (s *BatchServiceSuite) TestPrepareSelectsDueUnbatchedAttempts() {
	dateKey, day := s.businessDate()
	s.seedChargeWithAttempt("tenant-a", day)
	s.seedChargeWithAttempt("tenant-b", day.AddDate(0, 0, -2))
	s.seedChargeWithAttempt("tenant-c", day.AddDate(0, 0, 5))

	result, err := s.batches.Prepare(s.GetContext(), &PrepareBatchRequest{
		BusinessDateKey: dateKey,
	})
	s.NoError(err)
	s.Equal(2, result.Selected)
	s.Equal("242.00", result.TotalUsd.StringFixed(2))
	s.NotEmpty(result.BatchID)
	s.NotEmpty(result.Reference)

	batch, err := s.GetStores().BatchRepo.Get(s.GetContext(), result.BatchID)
	s.NoError(err)
	s.Equal(types.BatchStatusPrepared, batch.BatchStatus)
	s.Equal(types.BatchDirectionOutbound, batch.Direction)
	s.Equal("galicia-debits", batch.Adapter)
	s.Equal(2, batch.AttemptCount)

	claimed, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{BatchID: result.BatchID})
	s.NoError(err)
	s.Len(claimed, 2)

	// A second prepare finds nothing: the claimed attempts are off the table
	again, err := s.batches.Prepare(s.GetContext(), &PrepareBatchRequest{
		BusinessDateKey: dateKey,
	})
	s.NoError(err)
	s.Equal(0, again.Selected)
	s.Empty(again.BatchID)
}

func (s *BatchServiceSuite) TestPrepareSkipsNonDebitAttempts() {
	dateKey, day := s.businessDate()
	s.seedChargeWithAttempt("tenant-a", day)
	_, qr := s.seedChargeWithAttempt("tenant-b", day)
	qr.Channel = types.CollectionChannelQR
	s.NoError(s.GetStores().AttemptRepo.Update(s.GetContext(), qr))

	result, err := s.batches.Prepare(s.GetContext(), &PrepareBatchRequest{
		BusinessDateKey: dateKey,
	})
	s.NoError(err)
	s.Equal(1, result.Selected)

	// The QR attempt stays unclaimed; it settles through a fallback
	// provider, never through a bank file
	stored, err := s.GetStores().AttemptRepo.Get(s.GetContext(), qr.ID)
	s.NoError(err)
	s.Nil(stored.BatchID)
}

func (s *BatchServiceSuite) TestPrepareDryRunWritesNothing() {
	dateKey, day := s.businessDate()
	_, a := s.seedChargeWithAttempt("tenant-a", day)

	result, err := s.batches.Prepare(s.GetContext(), &PrepareBatchRequest{
		BusinessDateKey: dateKey,
		DryRun:          true,
	})
	s.NoError(err)
	s.True(result.DryRun)
	s.Equal(1, result.Selected)
	s.Equal("121.00", result.TotalUsd.StringFixed(2))
	s.Empty(result.BatchID)

	stored, err := s.GetStores().AttemptRepo.Get(s.GetContext(), a.ID)
	s.NoError(err)
	s.Nil(stored.BatchID)
}

func (s *BatchServiceSuite) prepareOne() (string, string) {
	dateKey, day := s.businessDate()
	s.seedChargeWithAttempt("tenant-a", day)
	result, err := s.batches.Prepare(s.GetContext(), &PrepareBatchRequest{BusinessDateKey: dateKey})
	s.NoError(err)
	s.NotEmpty(result.BatchID)
	return result.BatchID, dateKey
}

func (s *BatchServiceSuite) TestExportSubmitsAndMarksPresented() {
	batchID, _ := s.prepareOne()

	result, err := s.batches.Export(s.GetContext(), batchID)
	s.NoError(err)
	s.False(result.AlreadyExported)
	s.Equal(1, result.Items)

	s.Len(s.bank.Submitted, 1)
	s.Equal(batchID, s.bank.Submitted[0].BatchID)
	s.Len(s.bank.Submitted[0].Items, 1)

	batch, err := s.GetStores().BatchRepo.Get(s.GetContext(), batchID)
	s.NoError(err)
	s.Equal(types.BatchStatusExported, batch.BatchStatus)
	s.NotNil(batch.ExportedAt)

	attempts, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{BatchID: batchID})
	s.NoError(err)
	s.Equal(types.AttemptStatusPresented, attempts[0].AttemptStatus)
}

func (s *BatchServiceSuite) TestExportTwiceIsNoOp() {
	batchID, _ := s.prepareOne()

	_, err := s.batches.Export(s.GetContext(), batchID)
	s.NoError(err)

	again, err := s.batches.Export(s.GetContext(), batchID)
	s.NoError(err)
	s.True(again.AlreadyExported)
	s.Len(s.bank.Submitted, 1)
}

func (s *BatchServiceSuite) TestExportFailureLeavesBatchPrepared() {
	batchID, _ := s.prepareOne()
	s.bank.SubmitErr = ierr.NewError("bank unavailable").Mark(ierr.ErrHTTPClient)

	_, err := s.batches.Export(s.GetContext(), batchID)
	s.Error(err)

	batch, err := s.GetStores().BatchRepo.Get(s.GetContext(), batchID)
	s.NoError(err)
	s.Equal(types.BatchStatusPrepared, batch.BatchStatus)

	attempts, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{BatchID: batchID})
	s.NoError(err)
	s.Equal(types.AttemptStatusScheduled, attempts[0].AttemptStatus)
}

func (s *BatchServiceSuite) exportOne() (string, []*attempt.BillingAttempt) {
	batchID, _ := s.prepareOne()
	_, err := s.batches.Export(s.GetContext(), batchID)
	s.NoError(err)
	attempts, err := s.GetStores().AttemptRepo.List(s.GetContext(), &attempt.ListFilters{BatchID: batchID})
	s.NoError(err)
	return batchID, attempts
}

func (s *BatchServiceSuite) TestReconcileApprovedSettlesCharge() {
	batchID, attempts := s.exportOne()
	file := []byte(fmt.Sprintf("%s,APPROVED,ok\n", attempts[0].ID))

	result, err := s.batches.Reconcile(s.GetContext(), batchID, file)
	s.NoError(err)
	s.Equal(1, result.Approved)
	s.Equal(0, result.Rejected)
	s.Equal(0, result.ErrorRows)
	s.False(result.AlreadyImported)

	ch, err := s.GetStores().ChargeRepo.Get(s.GetContext(), attempts[0].ChargeID)
	s.NoError(err)
	s.Equal(types.ChargeStatusPaid, ch.ChargeStatus)
	s.NotNil(ch.PaidAt)
	s.Equal(types.CollectionChannelDirectDebit, *ch.PaidViaChannel)

	a, err := s.GetStores().AttemptRepo.Get(s.GetContext(), attempts[0].ID)
	s.NoError(err)
	s.Equal(types.AttemptStatusApproved, a.AttemptStatus)
	s.NotNil(a.ProcessedAt)

	outbound, err := s.GetStores().BatchRepo.Get(s.GetContext(), batchID)
	s.NoError(err)
	s.Equal(types.BatchStatusImported, outbound.BatchStatus)

	inbound, err := s.GetStores().BatchRepo.Get(s.GetContext(), result.InboundBatchID)
	s.NoError(err)
	s.Equal(types.BatchDirectionInbound, inbound.Direction)
	s.Equal(batchID, *inbound.OutboundBatchID)
}

func (s *BatchServiceSuite) TestReconcileRejectedBumpsDunning() {
	batchID, attempts := s.exportOne()
	file := []byte(fmt.Sprintf("%s,REJECTED,insufficient funds\n", attempts[0].ID))

	result, err := s.batches.Reconcile(s.GetContext(), batchID, file)
	s.NoError(err)
	s.Equal(1, result.Rejected)

	ch, err := s.GetStores().ChargeRepo.Get(s.GetContext(), attempts[0].ChargeID)
	s.NoError(err)
	s.Equal(types.ChargeStatusPending, ch.ChargeStatus)
	s.Equal(1, ch.DunningStage)

	a, err := s.GetStores().AttemptRepo.Get(s.GetContext(), attempts[0].ID)
	s.NoError(err)
	s.Equal(types.AttemptStatusRejected, a.AttemptStatus)
}

func (s *BatchServiceSuite) TestReconcileCountsErrorRows() {
	batchID, attempts := s.exportOne()
	file := []byte(fmt.Sprintf(
		"%s,APPROVED,ok\nunknown-attempt,APPROVED,ok\ngarbage-row\n%s,MAYBE,??\n",
		attempts[0].ID, attempts[0].ID,
	))

	result, err := s.batches.Reconcile(s.GetContext(), batchID, file)
	s.NoError(err)
	s.Equal(1, result.Approved)
	// Unknown attempt, short row and unknown result all land in error_rows
	s.Equal(3, result.ErrorRows)

	inbound, err := s.GetStores().BatchRepo.Get(s.GetContext(), result.InboundBatchID)
	s.NoError(err)
	s.Equal(3, inbound.ErrorRows)
}

func (s *BatchServiceSuite) TestReconcileSameFileTwiceIsNoOp() {
	batchID, attempts := s.exportOne()
	file := []byte(fmt.Sprintf("%s,APPROVED,ok\n", attempts[0].ID))

	first, err := s.batches.Reconcile(s.GetContext(), batchID, file)
	s.NoError(err)
	s.False(first.AlreadyImported)

	second, err := s.batches.Reconcile(s.GetContext(), batchID, file)
	s.NoError(err)
	s.True(second.AlreadyImported)
	s.Equal(first.InboundBatchID, second.InboundBatchID)
	s.Equal(0, second.Approved)
}

func (s *BatchServiceSuite) TestReconcileCorrectedResendDoesNotDoubleCountRejection() {
	batchID, attempts := s.exportOne()

	first, err := s.batches.Reconcile(s.GetContext(), batchID,
		[]byte(fmt.Sprintf("%s,REJECTED,insufficient funds\n", attempts[0].ID)))
	s.NoError(err)
	s.Equal(1, first.Rejected)

	// A corrected resend has different bytes, so it passes the hash check,
	// but it repeats the row the first import already applied
	second, err := s.batches.Reconcile(s.GetContext(), batchID,
		[]byte(fmt.Sprintf("%s,REJECTED,insufficient funds (corrected)\n", attempts[0].ID)))
	s.NoError(err)
	s.False(second.AlreadyImported)
	s.Equal(0, second.Rejected)
	s.Equal(1, second.AlreadyProcessed)

	ch, err := s.GetStores().ChargeRepo.Get(s.GetContext(), attempts[0].ChargeID)
	s.NoError(err)
	s.Equal(1, ch.DunningStage)

	a, err := s.GetStores().AttemptRepo.Get(s.GetContext(), attempts[0].ID)
	s.NoError(err)
	s.Equal(types.AttemptStatusRejected, a.AttemptStatus)
}

func (s *BatchServiceSuite) TestReconcileApprovalAfterFallbackPaymentIsNoOp() {
	batchID, attempts := s.exportOne()

	// The tenant paid through QR while the bank file was in flight
	ch, err := s.GetStores().ChargeRepo.Get(s.GetContext(), attempts[0].ChargeID)
	s.NoError(err)
	paidAt := time.Now().UTC().Add(-time.Hour)
	s.True(ch.MarkPaid(paidAt, types.CollectionChannelQR))
	s.NoError(s.GetStores().ChargeRepo.Update(s.GetContext(), ch))

	file := []byte(fmt.Sprintf("%s,APPROVED,ok\n", attempts[0].ID))
	result, err := s.batches.Reconcile(s.GetContext(), batchID, file)
	s.NoError(err)
	s.Equal(0, result.Approved)
	s.Equal(1, result.AlreadyPaid)

	// The earlier settlement is untouched
	ch, err = s.GetStores().ChargeRepo.Get(s.GetContext(), attempts[0].ChargeID)
	s.NoError(err)
	s.Equal(types.CollectionChannelQR, *ch.PaidViaChannel)
	s.True(ch.PaidAt.Equal(paidAt))
}

func (s *BatchServiceSuite) TestReconcileBeforeExportFails() {
	batchID, _ := s.prepareOne()

	_, err := s.batches.Reconcile(s.GetContext(), batchID, []byte("x,APPROVED,ok\n"))
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}
