package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"rasterTiler/api/database"
	"rasterTiler/api/models"
)

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

const jobColumns = `
	id, trace_id, original_filename, file_path, output_dir,
	min_zoom, max_zoom, tile_size, profile, resampling, processes,
	force_webmercator, web_viewer,
	status, stage, error_message, created_at, updated_at, started_at, completed_at
`

func (r *PostgresRepo) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			id, trace_id, original_filename, file_path, output_dir,
			min_zoom, max_zoom, tile_size, profile, resampling, processes,
			force_webmercator, web_viewer, status, stage
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID,
		job.TraceID,
		job.OriginalFilename,
		job.FilePath,
		job.OutputDir,
		job.Config.MinZoom,
		job.Config.MaxZoom,
		job.Config.TileSize,
		job.Config.Profile,
		job.Config.Resampling,
		job.Config.Processes,
		job.Config.ForceWebMercator,
		job.Config.WebViewer,
		job.Status,
		job.Stage,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	return err
}

func (r *PostgresRepo) GetJob(ctx context.Context, id string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	return r.scanJob(r.db.Pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) GetJobByTraceID(ctx context.Context, traceID string) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE trace_id = $1`
	return r.scanJob(r.db.Pool.QueryRow(ctx, query, traceID))
}

func (r *PostgresRepo) scanJob(row pgx.Row) (*models.Job, error) {
	var job models.Job
	err := row.Scan(
		&job.ID,
		&job.TraceID,
		&job.OriginalFilename,
		&job.FilePath,
		&job.OutputDir,
		&job.Config.MinZoom,
		&job.Config.MaxZoom,
		&job.Config.TileSize,
		&job.Config.Profile,
		&job.Config.Resampling,
		&job.Config.Processes,
		&job.Config.ForceWebMercator,
		&job.Config.WebViewer,
		&job.Status,
		&job.Stage,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	return &job, nil
}

func (r *PostgresRepo) UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = NOW()
	`

	if status == models.StatusCompleted || status == models.StatusFailed {
		query += `, completed_at = NOW()`
	}

	query += ` WHERE id = $3`

	result, err := r.db.Pool.Exec(ctx, query, status, errorMessage, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}

	return nil
}
