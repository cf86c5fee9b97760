package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agensuite/cobranza/internal/domain/charge"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
)

type chargeRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewChargeRepository(db *postgres.DB, logger *logger.Logger) charge.Repository {
	return &chargeRepository{db: db, logger: logger}
}

func (r *chargeRepository) Create(ctx context.Context, ch *charge.BillingCharge) error {
	query := `
		INSERT INTO billing_charges (
			id,
			cycle_id,
			subscription_id,
			net_usd,
			vat_usd,
			total_usd,
			total_ars,
			currency,
			due_date,
			charge_status,
			paid_at,
			paid_via_channel,
			dunning_stage,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:cycle_id,
			:subscription_id,
			:net_usd,
			:vat_usd,
			:total_usd,
			:total_ars,
			:currency,
			:due_date,
			:charge_status,
			:paid_at,
			:paid_via_channel,
			:dunning_stage,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, ch); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A charge with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create charge").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *chargeRepository) Get(ctx context.Context, id string) (*charge.BillingCharge, error) {
	query := `SELECT * FROM billing_charges WHERE id = $1`

	var ch charge.BillingCharge
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &ch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("charge not found").
				WithHintf("Charge with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get charge").
			Mark(ierr.ErrDatabase)
	}
	return &ch, nil
}

func (r *chargeRepository) Update(ctx context.Context, ch *charge.BillingCharge) error {
	query := `
		UPDATE billing_charges SET
			charge_status = :charge_status,
			paid_at = :paid_at,
			paid_via_channel = :paid_via_channel,
			dunning_stage = :dunning_stage,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, ch); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update charge").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// chargeWhere translates ListFilters into a WHERE clause and its args
func chargeWhere(filters *charge.ListFilters) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters == nil {
		return strings.Join(conditions, " AND "), args
	}
	if filters.TenantID != "" {
		add("tenant_id = $%d", filters.TenantID)
	}
	if filters.Status != nil {
		add("charge_status = $%d", *filters.Status)
	}
	if filters.DueBefore != nil {
		add("due_date < $%d", *filters.DueBefore)
	}
	if filters.MinDunning != nil {
		add("dunning_stage >= $%d", *filters.MinDunning)
	}
	if filters.PaidSince != nil {
		add("paid_at >= $%d", *filters.PaidSince)
	}
	if filters.PaidViaChannel != nil {
		add("paid_via_channel = $%d", *filters.PaidViaChannel)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *chargeRepository) List(ctx context.Context, filters *charge.ListFilters) ([]*charge.BillingCharge, error) {
	where, args := chargeWhere(filters)
	query := fmt.Sprintf("SELECT * FROM billing_charges WHERE %s ORDER BY created_at", where)
	if filters != nil && filters.Limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, filters.Limit)
	}

	charges := make([]*charge.BillingCharge, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &charges, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list charges").
			Mark(ierr.ErrDatabase)
	}
	return charges, nil
}

func (r *chargeRepository) Count(ctx context.Context, filters *charge.ListFilters) (int, error) {
	where, args := chargeWhere(filters)
	query := fmt.Sprintf("SELECT COUNT(*) FROM billing_charges WHERE %s", where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count charges").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
