package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rasterTiler/worker/cache"
	"rasterTiler/worker/config"
	"rasterTiler/worker/gdal"
	"rasterTiler/worker/kafka"
	"rasterTiler/worker/pool"
	"rasterTiler/worker/repository"
	"rasterTiler/worker/service"
	"rasterTiler/worker/tiler"
)

// zapObserver forwards pipeline progress into the structured log.
type zapObserver struct {
	logger *zap.Logger
}

func (o *zapObserver) Progress(stage string, percent int) {
	o.logger.Info("Progress", zap.String("stage", stage), zap.Int("percent", percent))
}

func (o *zapObserver) Note(stage string, note string) {
	o.logger.Info("Progress note", zap.String("stage", stage), zap.String("note", note))
}

func main() {
	inputPath := flag.String("input", "", "convert a single file synchronously and exit")
	outputDir := flag.String("output", "", "output directory for -input mode")
	maxZoom := flag.Int("max-zoom", 12, "maximum zoom level for -input mode")
	forceMercator := flag.Bool("force-webmercator", false, "reproject geodetic input to web mercator in -input mode")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	observer := &zapObserver{logger: logger}
	engine := gdal.NewEngine(logger, observer)
	pipeline := tiler.NewPipeline(engine, logger, observer)

	if *inputPath != "" {
		runOnce(pipeline, *inputPath, *outputDir, *maxZoom, *forceMercator, logger)
		return
	}

	cfg := config.Load()
	logger.Info("Worker Service starting",
		zap.String("topic", cfg.KafkaTopic),
		zap.Int("workers", cfg.WorkerCount),
	)

	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		logger.Fatal("Failed to create work directory", zap.Error(err))
	}

	db, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	consumer, err := kafka.NewConsumer(strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaGroupID)
	if err != nil {
		logger.Fatal("Failed to connect to kafka", zap.Error(err))
	}
	defer consumer.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisClient)
	processor := service.NewProcessor(repo, statusCache, pipeline, cfg.WorkDir, logger)
	workers := pool.NewWorkerPool(cfg.WorkerCount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down")
		cancel()
	}()

	for ctx.Err() == nil {
		err := consumer.Consume(ctx, cfg.KafkaTopic, func(ctx context.Context, msg *kafka.JobMessage) error {
			workers.Submit(ctx, msg, processor.Process)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Consumer error", zap.Error(err))
		}
	}

	workers.Wait()
	logger.Info("Worker stopped")
}

// runOnce is the synchronous surface: one pipeline run, errors straight to
// the caller, no Kafka, no Postgres, no Redis.
func runOnce(pipeline *tiler.Pipeline, inputPath, outputDir string, maxZoom int, forceMercator bool, logger *zap.Logger) {
	if outputDir == "" {
		base := strings.TrimSuffix(inputPath, ".tif")
		outputDir = base + "_tiles"
	}

	result, err := pipeline.Run(context.Background(), inputPath, &tiler.Config{
		OutputDir:        outputDir,
		MaxZoom:          maxZoom,
		ForceWebMercator: forceMercator,
	})
	if err != nil {
		logger.Fatal("Conversion failed", zap.Error(err))
	}

	logger.Info("Conversion completed",
		zap.String("output_dir", result.OutputDir),
		zap.String("profile", result.Profile),
		zap.Int("tile_count", result.Verification.TileCount),
	)
}
