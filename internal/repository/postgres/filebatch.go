package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agensuite/cobranza/internal/domain/filebatch"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
	"github.com/agensuite/cobranza/internal/types"
)

type fileBatchRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewFileBatchRepository(db *postgres.DB, logger *logger.Logger) filebatch.Repository {
	return &fileBatchRepository{db: db, logger: logger}
}

func (r *fileBatchRepository) Create(ctx context.Context, batch *filebatch.FileBatch) error {
	query := `
		INSERT INTO file_batches (
			id,
			reference,
			direction,
			adapter,
			business_date_key,
			batch_status,
			attempt_count,
			total_usd,
			exported_at,
			imported_at,
			outbound_batch_id,
			file_hash,
			error_rows,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:reference,
			:direction,
			:adapter,
			:business_date_key,
			:batch_status,
			:attempt_count,
			:total_usd,
			:exported_at,
			:imported_at,
			:outbound_batch_id,
			:file_hash,
			:error_rows,
			:tenant_id,
			:status,
			:created_at,
			:updated_at,
			:created_by,
			:updated_by
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This file batch already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create file batch").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *fileBatchRepository) Get(ctx context.Context, id string) (*filebatch.FileBatch, error) {
	query := `SELECT * FROM file_batches WHERE id = $1`

	var batch filebatch.FileBatch
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("file batch not found").
				WithHintf("File batch with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get file batch").
			Mark(ierr.ErrDatabase)
	}
	return &batch, nil
}

func (r *fileBatchRepository) Update(ctx context.Context, batch *filebatch.FileBatch) error {
	query := `
		UPDATE file_batches SET
			batch_status = :batch_status,
			attempt_count = :attempt_count,
			total_usd = :total_usd,
			exported_at = :exported_at,
			imported_at = :imported_at,
			error_rows = :error_rows,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update file batch").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func fileBatchWhere(filters *filebatch.ListFilters) (string, []interface{}) {
	conditions := []string{"1=1"}
	args := make([]interface{}, 0)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filters == nil {
		return strings.Join(conditions, " AND "), args
	}
	if filters.Direction != nil {
		add("direction = $%d", *filters.Direction)
	}
	if filters.Status != nil {
		add("batch_status = $%d", *filters.Status)
	}
	if filters.Adapter != "" {
		add("adapter = $%d", filters.Adapter)
	}
	if filters.BusinessDateKey != "" {
		add("business_date_key = $%d", filters.BusinessDateKey)
	}

	return strings.Join(conditions, " AND "), args
}

func (r *fileBatchRepository) List(ctx context.Context, filters *filebatch.ListFilters) ([]*filebatch.FileBatch, error) {
	where, args := fileBatchWhere(filters)
	query := fmt.Sprintf("SELECT * FROM file_batches WHERE %s ORDER BY created_at", where)
	if filters != nil && filters.Limit > 0 {
		query = fmt.Sprintf("%s LIMIT %d", query, filters.Limit)
	}

	batches := make([]*filebatch.FileBatch, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list file batches").
			Mark(ierr.ErrDatabase)
	}
	return batches, nil
}

func (r *fileBatchRepository) Count(ctx context.Context, filters *filebatch.ListFilters) (int, error) {
	where, args := fileBatchWhere(filters)
	query := fmt.Sprintf("SELECT COUNT(*) FROM file_batches WHERE %s", where)

	var count int
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count file batches").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *fileBatchRepository) GetInboundByHash(ctx context.Context, outboundBatchID string, fileHash string) (*filebatch.FileBatch, error) {
	query := `
		SELECT * FROM file_batches
		WHERE direction = $1 AND outbound_batch_id = $2 AND file_hash = $3
	`

	var batch filebatch.FileBatch
	err := r.db.GetQuerier(ctx).GetContext(ctx, &batch, query, types.BatchDirectionInbound, outboundBatchID, fileHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("inbound batch not found").
				WithHint("This response file was not imported before").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get inbound batch").
			Mark(ierr.ErrDatabase)
	}
	return &batch, nil
}
