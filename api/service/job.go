package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"rasterTiler/api/cache"
	"rasterTiler/api/dto"
	"rasterTiler/api/kafka"
	"rasterTiler/api/models"
	"rasterTiler/api/repository"
)

const (
	DefaultMinZoom    = 0
	DefaultMaxZoom    = 12
	DefaultTileSize   = 256
	DefaultResampling = "average"
	DefaultProcesses  = 4
)

type JobService struct {
	repo     repository.Repository
	cache    *cache.StatusCache
	producer kafka.Producer
	tilesDir string
	topic    string
}

func NewJobService(repo repository.Repository, cache *cache.StatusCache, producer kafka.Producer, tilesDir string) *JobService {
	return &JobService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		tilesDir: tilesDir,
		topic:    "tile_jobs",
	}
}

// newJobID builds a timestamp-plus-random-suffix id. The suffix is the only
// thing keeping two concurrent submissions of the same file apart.
func newJobID() string {
	suffix := strings.Split(uuid.New().String(), "-")[0]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

func (s *JobService) CreateJob(ctx context.Context, traceID string, req *dto.CreateJobRequest) (*dto.JobResponse, error) {
	cfg := resolveConfig(req)

	job := &models.Job{
		ID:               newJobID(),
		TraceID:          traceID,
		OriginalFilename: req.OriginalFilename,
		FilePath:         req.FilePath,
		Config:           cfg,
		Status:           models.StatusPending,
		Stage:            models.StageQueued,
	}
	job.OutputDir = filepath.Join(s.tilesDir, tilesetName(req.OriginalFilename))

	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	s.cache.Set(ctx, job.ID, &cache.Snapshot{
		Status:   string(models.StatusPending),
		Progress: 0,
		Message:  "Job queued",
	})

	msg := &kafka.JobMessage{
		JobID:            job.ID,
		TraceID:          traceID,
		FilePath:         job.FilePath,
		OutputDir:        job.OutputDir,
		MinZoom:          cfg.MinZoom,
		MaxZoom:          cfg.MaxZoom,
		TileSize:         cfg.TileSize,
		Profile:          cfg.Profile,
		Resampling:       cfg.Resampling,
		Processes:        cfg.Processes,
		ForceWebMercator: cfg.ForceWebMercator,
		WebViewer:        cfg.WebViewer,
	}
	if err := s.producer.SendJobMessage(ctx, s.topic, msg); err != nil {
		return nil, err
	}

	return s.toResponse(job), nil
}

func (s *JobService) GetJobStatus(ctx context.Context, jobID string) (*dto.JobResponse, error) {
	snap, err := s.cache.Get(ctx, jobID)
	if err == nil {
		resp := &dto.JobResponse{
			ID:           jobID,
			Status:       snap.Status,
			Progress:     snap.Progress,
			Message:      snap.Message,
			OutputDir:    snap.OutputDir,
			TileURL:      snap.TileURL,
			ErrorMessage: snap.Error,
		}
		return resp, nil
	}
	if !errors.Is(err, cache.ErrNoSnapshot) {
		return nil, err
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			return nil, dto.ErrJobNotFound
		}
		return nil, err
	}

	return s.toResponse(job), nil
}

func resolveConfig(req *dto.CreateJobRequest) models.TileConfig {
	cfg := models.TileConfig{
		MinZoom:          req.MinZoom,
		MaxZoom:          req.MaxZoom,
		TileSize:         req.TileSize,
		Profile:          req.Profile,
		Resampling:       req.Resampling,
		Processes:        req.Processes,
		ForceWebMercator: req.ForceWebMercator,
		WebViewer:        req.WebViewer,
	}
	if cfg.MaxZoom <= 0 {
		cfg.MaxZoom = DefaultMaxZoom
	}
	if cfg.MinZoom < 0 || cfg.MinZoom > cfg.MaxZoom {
		cfg.MinZoom = DefaultMinZoom
	}
	if cfg.TileSize <= 0 {
		cfg.TileSize = DefaultTileSize
	}
	if cfg.Resampling == "" {
		cfg.Resampling = DefaultResampling
	}
	if cfg.Processes <= 0 {
		cfg.Processes = DefaultProcesses
	}
	return cfg
}

// tilesetName strips the raster extension so tiles land under
// /tiles/{tilesetName}/{z}/{x}/{y}.png.
func tilesetName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *JobService) toResponse(job *models.Job) *dto.JobResponse {
	var completedAt *string
	if job.CompletedAt != nil {
		formatted := job.CompletedAt.Format("2006-01-02T15:04:05Z")
		completedAt = &formatted
	}

	progress := 0
	switch job.Status {
	case models.StatusRunning:
		progress = 25
	case models.StatusCompleted:
		progress = 100
	}

	return &dto.JobResponse{
		ID:               job.ID,
		TraceID:          job.TraceID,
		OriginalFilename: job.OriginalFilename,
		Status:           string(job.Status),
		Stage:            string(job.Stage),
		Progress:         progress,
		ErrorMessage:     job.ErrorMessage,
		OutputDir:        job.OutputDir,
		CreatedAt:        job.CreatedAt.Format("2006-01-02T15:04:05Z"),
		CompletedAt:      completedAt,
	}
}
