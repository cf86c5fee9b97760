package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agensuite/cobranza/internal/domain/attempt"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
)

type attemptRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewAttemptRepository(db *postgres.DB, logger *logger.Logger) attempt.Repository {
	return &attemptRepository{db: db, logger: logger}
}

func (r *attemptRepository) Create(ctx context.Context, a *attempt.BillingAttempt) error {
	query := `
		INSERT INTO billing_attempts (
			id,
			charge_id,
			channel,
			attempt_status,
			scheduled_for,
			processed_at,
			batch_id,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:charge_id,
			:channel,
			:attempt_status,
			:scheduled_for,
			:processed_at,
			:batch_id,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An attempt with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create attempt").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *attemptRepository) Get(ctx context.Context, id string) (*attempt.BillingAttempt, error) {
	query := `SELECT * FROM billing_attempts WHERE id = $1`

	var a attempt.BillingAttempt
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("attempt not found").
				WithHintf("Attempt with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get attempt").
			Mark(ierr.ErrDatabase)
	}
	return &a, nil
}

func (r *attemptRepository) Update(ctx context.Context, a *attempt.BillingAttempt) error {
	query := `
		UPDATE billing_attempts SET
			attempt_status = :attempt_status,
			scheduled_for = :scheduled_for,
			processed_at = :processed_at,
			batch_id = :batch_id,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update attempt").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func attemptWhere(filters *attempt.ListFilters) (string, []interface{}) {
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
	if filters.ChargeID != "" {
		add("charge_id = $%d", filters.ChargeID)
	}
	if filters.BatchID != "" {
		add("batch_id = $%d", filters.BatchID)
	}
	if filters.Channel != nil {
		add("channel = $%d", *filters.Channel)
	}
	if filters.Status != nil {
		add("attempt_status = $%d", *filters.Status)
	}
	if filters.DueBefore != nil {
		add("scheduled_for < $%d", *filters.DueBefore)
	}
	if filters.ProcessedSince != nil {
		add("processed_at >= $%d", *filters.ProcessedSince)
	}
	if filters.Unbatched {
		conditions = append(conditions, "batch_id IS NULL")
	}

	return strings.Join(conditions, " AND "), args
}

func (r *attemptRepository) List(ctx context.Context, filters *attempt.ListFilters) ([]*attempt.BillingAttempt, error) {
	where, args := attemptWhere(filters)
	query := fmt.Sprintf("SELECT * FROM billing_attempts WHERE %s ORDER BY created_at", where)
	if filters != nil && filters.Limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, filters.Limit)
	}

	attempts := make([]*attempt.BillingAttempt, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &attempts, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list attempts").
			Mark(ierr.ErrDatabase)
	}
	return attempts, nil
}

func (r *attemptRepository) Count(ctx context.Context, filters *attempt.ListFilters) (int, error) {
	where, args := attemptWhere(filters)
	query := fmt.Sprintf("SELECT COUNT(*) FROM billing_attempts WHERE %s", where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count attempts").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}
