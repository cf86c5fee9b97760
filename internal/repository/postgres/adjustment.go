package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/agensuite/cobranza/internal/domain/adjustment"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
	"github.com/agensuite/cobranza/internal/types"
)

type adjustmentRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAdjustmentRepository(db *postgres.DB, logger *logger.Logger) adjustment.Repository {
	return &adjustmentRepository{db: db, logger: logger}
}

func (r *adjustmentRepository) Create(ctx context.Context, adj *adjustment.BillingAdjustment) error {
	query := `
		INSERT INTO billing_adjustments (
			id,
			kind,
			mode,
			currency,
			value,
			starts_at,
			ends_at,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:kind,
			:mode,
			:currency,
			:value,
			:starts_at,
			:ends_at,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, adj); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An adjustment with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create adjustment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *adjustmentRepository) Update(ctx context.Context, adj *adjustment.BillingAdjustment) error {
	query := `
		UPDATE billing_adjustments SET
			kind = :kind,
			mode = :mode,
			currency = :currency,
			value = :value,
			starts_at = :starts_at,
			ends_at = :ends_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, adj); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update adjustment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *adjustmentRepository) Get(ctx context.Context, id string) (*adjustment.BillingAdjustment, error) {
	query := `SELECT * FROM billing_adjustments WHERE id = $1`

	var adj adjustment.BillingAdjustment
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &adj, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("adjustment not found").
				WithHintf("Adjustment with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get adjustment").
			Mark(ierr.ErrDatabase)
	}
	return &adj, nil
}

func (r *adjustmentRepository) ListActiveAt(ctx context.Context, tenantID string, at time.Time) ([]*adjustment.BillingAdjustment, error) {
	query := `
		SELECT * FROM billing_adjustments
		WHERE tenant_id = $1
		  AND status = $2
		  AND (starts_at IS NULL OR starts_at <= $3)
		  AND (ends_at IS NULL OR ends_at >= $3)
		ORDER BY created_at
	`

	adjustments := make([]*adjustment.BillingAdjustment, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &adjustments, query, tenantID, types.StatusActive, at); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list adjustments").
			Mark(ierr.ErrDatabase)
	}
	return adjustments, nil
}
