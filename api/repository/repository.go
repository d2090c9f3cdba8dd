package repository

import (
	"context"
	"errors"

	"rasterTiler/api/models"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobAlreadyExists = errors.New("job already exists")
)

type Repository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetJobByTraceID(ctx context.Context, traceID string) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status models.JobStatus, errorMessage string) error
}
