package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrJobNotFound = errors.New("job not found")

type Repository interface {
	UpdateJobStatus(ctx context.Context, jobID string, status string, errMsg string) error
	UpdateJobStage(ctx context.Context, jobID string, stage string) error
	MarkJobStarted(ctx context.Context, jobID string) error
}

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) UpdateJobStatus(ctx context.Context, jobID string, status string, errMsg string) error {
	query := `UPDATE jobs SET status = $1, error_message = $2, updated_at = NOW()`
	if status == "completed" || status == "failed" {
		query += `, completed_at = NOW()`
	}
	query += ` WHERE id = $3`

	result, err := r.db.Exec(ctx, query, status, errMsg, jobID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *PostgresRepo) UpdateJobStage(ctx context.Context, jobID string, stage string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE jobs SET stage = $1, updated_at = NOW() WHERE id = $2`,
		stage, jobID,
	)
	return err
}

func (r *PostgresRepo) MarkJobStarted(ctx context.Context, jobID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE jobs SET status = 'running', started_at = NOW(), updated_at = NOW() WHERE id = $1`,
		jobID,
	)
	return err
}
