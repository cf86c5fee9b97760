package postgres

import (
	"context"
	"database/sql"

	"github.com/agensuite/cobranza/internal/domain/billingconfig"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
)

type billingConfigRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewBillingConfigRepository(db *postgres.DB, logger *logger.Logger) billingconfig.Repository {
	return &billingConfigRepository{db: db, logger: logger}
}

func (r *billingConfigRepository) Create(ctx context.Context, cfg *billingconfig.BillingConfig) error {
	query := `
		INSERT INTO billing_configs (
			id,
			plan_key,
			seat_count,
			seat_limit,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:plan_key,
			:seat_count,
			:seat_limit,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A billing config for this tenant already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create billing config").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingConfigRepository) Update(ctx context.Context, cfg *billingconfig.BillingConfig) error {
	query := `
		UPDATE billing_configs SET
			plan_key = :plan_key,
			seat_count = :seat_count,
			seat_limit = :seat_limit,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing config").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingConfigRepository) GetByTenant(ctx context.Context, tenantID string) (*billingconfig.BillingConfig, error) {
	query := `SELECT * FROM billing_configs WHERE tenant_id = $1 AND status = 'active'`

	var cfg billingconfig.BillingConfig
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &cfg, query, tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("billing config not found").
				WithHintf("Tenant %s has no billing config", tenantID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing config").
			Mark(ierr.ErrDatabase)
	}
	return &cfg, nil
}
