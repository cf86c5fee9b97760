package postgres

import (
	"context"
	"database/sql"

	"github.com/agensuite/cobranza/internal/domain/fxrate"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
)

type fxRateRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewFXRateRepository(db *postgres.DB, logger *logger.Logger) fxrate.Repository {
	return &fxRateRepository{db: db, logger: logger}
}

func (r *fxRateRepository) GetByDate(ctx context.Context, dateKey string) (*fxrate.Rate, error) {
	query := `SELECT * FROM fx_rates WHERE date_key = $1`

	var rate fxrate.Rate
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &rate, query, dateKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("fx rate not found").
				WithHintf("No FX rate loaded for %s", dateKey).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get fx rate").
			Mark(ierr.ErrDatabase)
	}
	return &rate, nil
}

func (r *fxRateRepository) Upsert(ctx context.Context, rate *fxrate.Rate) error {
	query := `
		INSERT INTO fx_rates (
			date_key,
			ars_per_usd,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:date_key,
			:ars_per_usd,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
		ON CONFLICT (date_key) DO UPDATE SET
			ars_per_usd = EXCLUDED.ars_per_usd,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by
	`

	if _, err := r.db.NamedExecContext(ctx, query, rate); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert fx rate").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
