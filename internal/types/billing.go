package types

import (
	"fmt"

	"github.com/samber/lo"
)

// ChargeStatus represents the collection state of a billing charge.
// It only ever advances: PENDING -> PAID or PENDING -> WRITTEN_OFF.
type ChargeStatus string

const (
	ChargeStatusPending    ChargeStatus = "PENDING"
	ChargeStatusPaid       ChargeStatus = "PAID"
	ChargeStatusWrittenOff ChargeStatus = "WRITTEN_OFF"
)

func (s ChargeStatus) String() string {
	return string(s)
}

func (s ChargeStatus) Validate() error {
	allowed := []ChargeStatus{
		ChargeStatusPending,
		ChargeStatusPaid,
		ChargeStatusWrittenOff,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid charge status: %s", s)
	}
	return nil
}

// IsTerminal returns whether the charge can still transition
func (s ChargeStatus) IsTerminal() bool {
	return s == ChargeStatusPaid || s == ChargeStatusWrittenOff
}

// AttemptStatus represents the state of one collection attempt
type AttemptStatus string

const (
	AttemptStatusScheduled AttemptStatus = "SCHEDULED"
	AttemptStatusPresented AttemptStatus = "PRESENTED"
	AttemptStatusApproved  AttemptStatus = "APPROVED"
	AttemptStatusRejected  AttemptStatus = "REJECTED"
)

func (s AttemptStatus) String() string {
	return string(s)
}

func (s AttemptStatus) Validate() error {
	allowed := []AttemptStatus{
		AttemptStatusScheduled,
		AttemptStatusPresented,
		AttemptStatusApproved,
		AttemptStatusRejected,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid attempt status: %s", s)
	}
	return nil
}

func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptStatusApproved || s == AttemptStatusRejected
}

// CollectionChannel represents the channel a charge is collected through
type CollectionChannel string

const (
	CollectionChannelDirectDebit CollectionChannel = "DIRECT_DEBIT"
	CollectionChannelQR          CollectionChannel = "QR"
	CollectionChannelWallet      CollectionChannel = "WALLET"
	CollectionChannelTransfer    CollectionChannel = "TRANSFER"
)

func (c CollectionChannel) String() string {
	return string(c)
}

func (c CollectionChannel) Validate() error {
	allowed := []CollectionChannel{
		CollectionChannelDirectDebit,
		CollectionChannelQR,
		CollectionChannelWallet,
		CollectionChannelTransfer,
	}
	if !lo.Contains(allowed, c) {
		return fmt.Errorf("invalid collection channel: %s", c)
	}
	return nil
}

// BatchDirection represents whether a file batch is sent to or received from the bank
type BatchDirection string

const (
	BatchDirectionOutbound BatchDirection = "OUTBOUND"
	BatchDirectionInbound  BatchDirection = "INBOUND"
)

func (d BatchDirection) String() string {
	return string(d)
}

// BatchStatus represents the state of a file batch
type BatchStatus string

const (
	BatchStatusPrepared BatchStatus = "PREPARED"
	BatchStatusExported BatchStatus = "EXPORTED"
	BatchStatusImported BatchStatus = "IMPORTED"
)

func (s BatchStatus) String() string {
	return string(s)
}

func (s BatchStatus) Validate() error {
	allowed := []BatchStatus{
		BatchStatusPrepared,
		BatchStatusExported,
		BatchStatusImported,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid batch status: %s", s)
	}
	return nil
}

// FallbackStatus represents the state of an alternate-channel payment intent
type FallbackStatus string

const (
	FallbackStatusCreated   FallbackStatus = "CREATED"
	FallbackStatusPending   FallbackStatus = "PENDING"
	FallbackStatusPresented FallbackStatus = "PRESENTED"
	FallbackStatusPaid      FallbackStatus = "PAID"
	FallbackStatusExpired   FallbackStatus = "EXPIRED"
	FallbackStatusFailed    FallbackStatus = "FAILED"
)

func (s FallbackStatus) String() string {
	return string(s)
}

func (s FallbackStatus) Validate() error {
	allowed := []FallbackStatus{
		FallbackStatusCreated,
		FallbackStatusPending,
		FallbackStatusPresented,
		FallbackStatusPaid,
		FallbackStatusExpired,
		FallbackStatusFailed,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid fallback status: %s", s)
	}
	return nil
}

// IsOpen returns whether the intent should still be polled against the provider
func (s FallbackStatus) IsOpen() bool {
	return s == FallbackStatusCreated || s == FallbackStatusPending || s == FallbackStatusPresented
}

// JobRunStatus represents the terminal (or transient) state of a job execution
type JobRunStatus string

const (
	JobRunStatusRunning       JobRunStatus = "RUNNING"
	JobRunStatusSuccess       JobRunStatus = "SUCCESS"
	JobRunStatusPartial       JobRunStatus = "PARTIAL"
	JobRunStatusFailed        JobRunStatus = "FAILED"
	JobRunStatusNoOp          JobRunStatus = "NO_OP"
	JobRunStatusSkippedLocked JobRunStatus = "SKIPPED_LOCKED"
)

func (s JobRunStatus) String() string {
	return string(s)
}

func (s JobRunStatus) Validate() error {
	allowed := []JobRunStatus{
		JobRunStatusRunning,
		JobRunStatusSuccess,
		JobRunStatusPartial,
		JobRunStatusFailed,
		JobRunStatusNoOp,
		JobRunStatusSkippedLocked,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid job run status: %s", s)
	}
	return nil
}

func (s JobRunStatus) IsTerminal() bool {
	return s != JobRunStatusRunning
}

// JobRunSource represents what triggered a job execution
type JobRunSource string

const (
	JobRunSourceCron   JobRunSource = "CRON"
	JobRunSourceSystem JobRunSource = "SYSTEM"
	JobRunSourceManual JobRunSource = "MANUAL"
)

func (s JobRunSource) String() string {
	return string(s)
}

func (s JobRunSource) Validate() error {
	allowed := []JobRunSource{
		JobRunSourceCron,
		JobRunSourceSystem,
		JobRunSourceManual,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid job run source: %s", s)
	}
	return nil
}

// AdjustmentMode represents how a billing adjustment value is applied
type AdjustmentMode string

const (
	AdjustmentModePercent  AdjustmentMode = "PERCENT"
	AdjustmentModeAbsolute AdjustmentMode = "ABSOLUTE"
)

func (m AdjustmentMode) String() string {
	return string(m)
}

func (m AdjustmentMode) Validate() error {
	allowed := []AdjustmentMode{
		AdjustmentModePercent,
		AdjustmentModeAbsolute,
	}
	if !lo.Contains(allowed, m) {
		return fmt.Errorf("invalid adjustment mode: %s", m)
	}
	return nil
}

// Metadata is a map of string key-value pairs carried on domain entities
type Metadata map[string]string
