package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agensuite/cobranza/internal/domain/fallback"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
	"github.com/agensuite/cobranza/internal/types"
)

type fallbackRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewFallbackRepository(db *postgres.DB, logger *logger.Logger) fallback.Repository {
	return &fallbackRepository{db: db, logger: logger}
}

// openStatuses are the non-terminal intent states still worth polling
var openStatuses = []interface{}{
	types.FallbackStatusCreated,
	types.FallbackStatusPending,
	types.FallbackStatusPresented,
}

func (r *fallbackRepository) Create(ctx context.Context, intent *fallback.FallbackIntent) error {
	query := `
		INSERT INTO fallback_intents (
			id,
			charge_id,
			provider,
			provider_ref,
			fallback_status,
			paid_at,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:charge_id,
			:provider,
			:provider_ref,
			:fallback_status,
			:paid_at,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, intent); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A fallback intent with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create fallback intent").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *fallbackRepository) Get(ctx context.Context, id string) (*fallback.FallbackIntent, error) {
	query := `SELECT * FROM fallback_intents WHERE id = $1`

	var intent fallback.FallbackIntent
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &intent, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("fallback intent not found").
				WithHintf("Fallback intent with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get fallback intent").
			Mark(ierr.ErrDatabase)
	}
	return &intent, nil
}

func (r *fallbackRepository) Update(ctx context.Context, intent *fallback.FallbackIntent) error {
	query := `
		UPDATE fallback_intents SET
			provider_ref = :provider_ref,
			fallback_status = :fallback_status,
			paid_at = :paid_at,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, intent); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update fallback intent").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func fallbackWhere(filters *fallback.ListFilters) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters == nil {
		return strings.Join(conditions, " AND "), args
	}
	if filters.ChargeID != "" {
		add("charge_id = $%d", filters.ChargeID)
	}
	if filters.Provider != "" {
		add("provider = $%d", filters.Provider)
	}
	if filters.Status != nil {
		add("fallback_status = $%d", *filters.Status)
	}
	if filters.Open {
		placeholders := make([]string, 0, len(openStatuses))
		for _, status := range openStatuses {
			args = append(args, status)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		conditions = append(conditions, fmt.Sprintf("fallback_status IN (%s)", strings.Join(placeholders, ", ")))
	}

	return strings.Join(conditions, " AND "), args
}

func (r *fallbackRepository) List(ctx context.Context, filters *fallback.ListFilters) ([]*fallback.FallbackIntent, error) {
	where, args := fallbackWhere(filters)
	query := fmt.Sprintf("SELECT * FROM fallback_intents WHERE %s ORDER BY created_at", where)
	if filters != nil && filters.Limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, filters.Limit)
	}

	intents := make([]*fallback.FallbackIntent, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &intents, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list fallback intents").
			Mark(ierr.ErrDatabase)
	}
	return intents, nil
}

func (r *fallbackRepository) Count(ctx context.Context, filters *fallback.ListFilters) (int, error) {
	where, args := fallbackWhere(filters)
	query := fmt.Sprintf("SELECT COUNT(*) FROM fallback_intents WHERE %s", where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count fallback intents").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *fallbackRepository) GetOpenByCharge(ctx context.Context, chargeID string) (*fallback.FallbackIntent, error) {
	query := `
		SELECT * FROM fallback_intents
		WHERE charge_id = $1 AND fallback_status IN ($2, $3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`

	args := append([]interface{}{chargeID}, openStatuses...)
	var intent fallback.FallbackIntent
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &intent, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("open fallback intent not found").
				WithHintf("Charge %s has no open fallback intent", chargeID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get open fallback intent").
			Mark(ierr.ErrDatabase)
	}
	return &intent, nil
}
