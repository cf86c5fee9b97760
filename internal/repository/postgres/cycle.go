package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agensuite/cobranza/internal/domain/cycle"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
	"github.com/agensuite/cobranza/internal/types"
)

type cycleRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCycleRepository(db *postgres.DB, logger *logger.Logger) cycle.Repository {
	return &cycleRepository{db: db, logger: logger}
}

// cycleRow maps the billing_cycles table; the pricing snapshot is a JSONB
// column persisted verbatim
type cycleRow struct {
	ID             string    `db:"id"`
	SubscriptionID string    `db:"subscription_id"`
	AnchorDate     time.Time `db:"anchor_date"`
	AnchorDateKey  string    `db:"anchor_date_key"`
	Snapshot       []byte    `db:"snapshot"`

	types.BaseModel
}

func toCycleRow(c *cycle.BillingCycle) (*cycleRow, error) {
	snapshot, err := json.Marshal(c.Snapshot)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode pricing snapshot").
			Mark(ierr.ErrSystem)
	}
	return &cycleRow{
		ID:             c.ID,
		SubscriptionID: c.SubscriptionID,
		AnchorDate:     c.AnchorDate,
		AnchorDateKey:  c.AnchorDateKey,
		Snapshot:       snapshot,
		BaseModel:      c.BaseModel,
	}, nil
}

func (row *cycleRow) toDomain() (*cycle.BillingCycle, error) {
	c := &cycle.BillingCycle{
		ID:             row.ID,
		SubscriptionID: row.SubscriptionID,
		AnchorDate:     row.AnchorDate,
		AnchorDateKey:  row.AnchorDateKey,
		BaseModel:      row.BaseModel,
	}
	if len(row.Snapshot) > 0 {
		if err := json.Unmarshal(row.Snapshot, &c.Snapshot); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode pricing snapshot").
				Mark(ierr.ErrSystem)
		}
	}
	return c, nil
}

func (r *cycleRepository) Create(ctx context.Context, c *cycle.BillingCycle) error {
	row, err := toCycleRow(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO billing_cycles (
			id,
			subscription_id,
			anchor_date,
			anchor_date_key,
			snapshot,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:subscription_id,
			:anchor_date,
			:anchor_date_key,
			:snapshot,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A cycle for this tenant and anchor date already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create billing cycle").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *cycleRepository) Get(ctx context.Context, id string) (*cycle.BillingCycle, error) {
	query := `SELECT * FROM billing_cycles WHERE id = $1`

	var row cycleRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("billing cycle not found").
				WithHintf("Billing cycle with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing cycle").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *cycleRepository) GetByTenantAndAnchor(ctx context.Context, tenantID string, anchorDateKey string) (*cycle.BillingCycle, error) {
	query := `SELECT * FROM billing_cycles WHERE tenant_id = $1 AND anchor_date_key = $2`

	var row cycleRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, tenantID, anchorDateKey); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("billing cycle not found").
				WithHintf("Tenant %s has no cycle for %s", tenantID, anchorDateKey).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing cycle").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *cycleRepository) ListByAnchor(ctx context.Context, anchorDateKey string) ([]*cycle.BillingCycle, error) {
	query := `SELECT * FROM billing_cycles WHERE anchor_date_key = $1 ORDER BY created_at`

	rows := make([]*cycleRow, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, anchorDateKey); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing cycles").
			Mark(ierr.ErrDatabase)
	}

	cycles := make([]*cycle.BillingCycle, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, nil
}
