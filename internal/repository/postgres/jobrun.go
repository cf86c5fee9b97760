package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agensuite/cobranza/internal/domain/jobrun"
	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/logger"
	"github.com/agensuite/cobranza/internal/postgres"
	"github.com/agensuite/cobranza/internal/types"
)

type jobRunRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewJobRunRepository(db *postgres.DB, logger *logger.Logger) jobrun.Repository {
	return &jobRunRepository{db: db, logger: logger}
}

// jobRunRow maps the job_runs table; counters and metadata are JSONB
type jobRunRow struct {
	ID            string             `db:"id"`
	JobName       string             `db:"job_name"`
	RunID         string             `db:"run_id"`
	Source        types.JobRunSource `db:"source"`
	TargetDateKey string             `db:"target_date_key"`
	Adapter       string             `db:"adapter"`
	RunStatus     types.JobRunStatus `db:"run_status"`
	Counters      []byte             `db:"counters"`
	Metadata      []byte             `db:"metadata"`
	ErrorMessage  *string            `db:"error_message"`
	ActorUserID   string             `db:"actor_user_id"`
	StartedAt     time.Time          `db:"started_at"`
	FinishedAt    *time.Time         `db:"finished_at"`
	DurationMs    *int64             `db:"duration_ms"`

	types.BaseModel
}

func toJobRunRow(run *jobrun.JobRun) (*jobRunRow, error) {
	row := &jobRunRow{
		ID:            run.ID,
		JobName:       run.JobName,
		RunID:         run.RunID,
		Source:        run.Source,
		TargetDateKey: run.TargetDateKey,
		Adapter:       run.Adapter,
		RunStatus:     run.RunStatus,
		ErrorMessage:  run.ErrorMessage,
		ActorUserID:   run.ActorUserID,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
		DurationMs:    run.DurationMs,
		BaseModel:     run.BaseModel,
	}

	var err error
	if run.Counters != nil {
		if row.Counters, err = json.Marshal(run.Counters); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode run counters").
				Mark(ierr.ErrSystem)
		}
	}
	if run.Metadata != nil {
		if row.Metadata, err = json.Marshal(run.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to encode run metadata").
				Mark(ierr.ErrSystem)
		}
	}
	return row, nil
}

func (row *jobRunRow) toDomain() (*jobrun.JobRun, error) {
	run := &jobrun.JobRun{
		ID:            row.ID,
		JobName:       row.JobName,
		RunID:         row.RunID,
		Source:        row.Source,
		TargetDateKey: row.TargetDateKey,
		Adapter:       row.Adapter,
		RunStatus:     row.RunStatus,
		ErrorMessage:  row.ErrorMessage,
		ActorUserID:   row.ActorUserID,
		StartedAt:     row.StartedAt,
		FinishedAt:    row.FinishedAt,
		DurationMs:    row.DurationMs,
		BaseModel:     row.BaseModel,
	}

	if len(row.Counters) > 0 {
		if err := json.Unmarshal(row.Counters, &run.Counters); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode run counters").
				Mark(ierr.ErrSystem)
		}
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &run.Metadata); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decode run metadata").
				Mark(ierr.ErrSystem)
		}
	}
	return run, nil
}

func (r *jobRunRepository) Create(ctx context.Context, run *jobrun.JobRun) error {
	row, err := toJobRunRow(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO job_runs (
			id,
			job_name,
			run_id,
			source,
			target_date_key,
			adapter,
			run_status,
			counters,
			metadata,
			error_message,
			actor_user_id,
			started_at,
			finished_at,
			duration_ms,
			tenant_id,
			status,
			created_at,
			updated_at,
			created_by,
			updated_by
		) VALUES (
			:id,
			:job_name,
			:run_id,
			:source,
			:target_date_key,
			:adapter,
			:run_status,
			:counters,
			:metadata,
			:error_message,
			:actor_user_id,
			:started_at,
			:finished_at,
			:duration_ms,
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
				WithHint("A job run with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create job run").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *jobRunRepository) Get(ctx context.Context, id string) (*jobrun.JobRun, error) {
	query := `SELECT * FROM job_runs WHERE id = $1`

	var row jobRunRow
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("job run not found").
				WithHintf("Job run with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get job run").
			Mark(ierr.ErrDatabase)
	}
	return row.toDomain()
}

func (r *jobRunRepository) Update(ctx context.Context, run *jobrun.JobRun) error {
	row, err := toJobRunRow(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE job_runs SET
			run_status = :run_status,
			counters = :counters,
			metadata = :metadata,
			error_message = :error_message,
			finished_at = :finished_at,
			duration_ms = :duration_ms,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update job run").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *jobRunRepository) ListRecent(ctx context.Context, limit int) ([]*jobrun.JobRun, error) {
	query := `SELECT * FROM job_runs ORDER BY started_at DESC LIMIT $1`

	rows := make([]*jobRunRow, 0)
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list job runs").
			Mark(ierr.ErrDatabase)
	}

	runs := make([]*jobrun.JobRun, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}
