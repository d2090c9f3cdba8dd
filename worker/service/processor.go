package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"rasterTiler/worker/cache"
	"rasterTiler/worker/kafka"
	"rasterTiler/worker/repository"
	"rasterTiler/worker/tiler"
)

// PipelineRunner is what the processor needs from the tiler package.
type PipelineRunner interface {
	Run(ctx context.Context, inputPath string, cfg *tiler.Config) (*tiler.Result, error)
}

// StatusWriter is the worker's view of the status snapshot store.
type StatusWriter interface {
	Set(ctx context.Context, jobID string, snap *cache.Snapshot) error
}

// Processor runs one conversion per job message and mirrors the job state
// to Postgres and the status snapshot: starting(0) -> processing(25) ->
// completed(100) | failed(0).
type Processor struct {
	repo     repository.Repository
	cache    StatusWriter
	pipeline PipelineRunner
	workDir  string
	logger   *zap.Logger
}

func NewProcessor(repo repository.Repository, cache StatusWriter, pipeline PipelineRunner, workDir string, logger *zap.Logger) *Processor {
	return &Processor{
		repo:     repo,
		cache:    cache,
		pipeline: pipeline,
		workDir:  workDir,
		logger:   logger,
	}
}

func (p *Processor) Process(ctx context.Context, msg *kafka.JobMessage) error {
	logger := p.logger.With(
		zap.String("job_id", msg.JobID),
		zap.String("trace_id", msg.TraceID),
	)
	logger.Info("Job started", zap.String("input", msg.FilePath))

	started := time.Now().UTC()
	if err := p.repo.MarkJobStarted(ctx, msg.JobID); err != nil {
		logger.Warn("Failed to mark job started", zap.Error(err))
	}
	p.setStage(ctx, msg.JobID, tiler.StageValidate, logger)
	p.setSnapshot(ctx, msg.JobID, &cache.Snapshot{
		Status:    "starting",
		Progress:  0,
		Message:   "Preparing conversion",
		StartTime: &started,
	}, logger)

	p.setSnapshot(ctx, msg.JobID, &cache.Snapshot{
		Status:    "processing",
		Progress:  25,
		Message:   "Converting raster to tiles",
		StartTime: &started,
	}, logger)

	cfg := &tiler.Config{
		OutputDir:        msg.OutputDir,
		WorkDir:          p.workDir,
		MinZoom:          msg.MinZoom,
		MaxZoom:          msg.MaxZoom,
		TileSize:         msg.TileSize,
		Profile:          msg.Profile,
		Resampling:       msg.Resampling,
		Processes:        msg.Processes,
		ForceWebMercator: msg.ForceWebMercator,
		WebViewer:        msg.WebViewer,
	}

	result, err := p.pipeline.Run(ctx, msg.FilePath, cfg)
	if err != nil {
		return p.fail(ctx, msg.JobID, started, err, logger)
	}

	return p.complete(ctx, msg.JobID, started, result, logger)
}

func (p *Processor) complete(ctx context.Context, jobID string, started time.Time, result *tiler.Result, logger *zap.Logger) error {
	if err := p.repo.UpdateJobStatus(ctx, jobID, "completed", ""); err != nil {
		logger.Error("Failed to persist completed status", zap.Error(err))
	}
	p.setStage(ctx, jobID, "done", logger)

	completedAt := time.Now().UTC()
	snap := &cache.Snapshot{
		Status:      "completed",
		Progress:    100,
		Message:     "Conversion completed",
		StartTime:   &started,
		CompletedAt: &completedAt,
		OutputDir:   result.OutputDir,
		TileURL:     "/tiles/" + filepath.Base(result.OutputDir) + "/{z}/{x}/{y}.png",
	}
	if md, err := json.Marshal(result.Metadata); err == nil {
		snap.Metadata = md
	}
	p.setSnapshot(ctx, jobID, snap, logger)

	logger.Info("Job completed",
		zap.String("output_dir", result.OutputDir),
		zap.String("profile", result.Profile),
		zap.Int("tile_count", result.Verification.TileCount),
	)
	return nil
}

// fail mirrors the same error text to both surfaces: the persisted job row
// for synchronous readers and the snapshot for polling clients.
func (p *Processor) fail(ctx context.Context, jobID string, started time.Time, runErr error, logger *zap.Logger) error {
	logger.Error("Job failed", zap.Error(runErr))

	if err := p.repo.UpdateJobStatus(ctx, jobID, "failed", runErr.Error()); err != nil {
		logger.Error("Failed to persist failed status", zap.Error(err))
	}

	failedAt := time.Now().UTC()
	p.setSnapshot(ctx, jobID, &cache.Snapshot{
		Status:    "failed",
		Progress:  0,
		Message:   "Conversion failed",
		StartTime: &started,
		FailedAt:  &failedAt,
		Error:     runErr.Error(),
	}, logger)

	return runErr
}

func (p *Processor) setStage(ctx context.Context, jobID, stage string, logger *zap.Logger) {
	if err := p.repo.UpdateJobStage(ctx, jobID, stage); err != nil {
		logger.Warn("Failed to persist job stage",
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
}

func (p *Processor) setSnapshot(ctx context.Context, jobID string, snap *cache.Snapshot, logger *zap.Logger) {
	if err := p.cache.Set(ctx, jobID, snap); err != nil {
		logger.Warn("Failed to write status snapshot",
			zap.String("status", snap.Status),
			zap.Error(err),
		)
	}
}
