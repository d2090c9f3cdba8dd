package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"rasterTiler/api/cache"
	"rasterTiler/api/config"
	"rasterTiler/api/database"
	"rasterTiler/api/handlers"
	"rasterTiler/api/kafka"
	"rasterTiler/api/middleware"
	"rasterTiler/api/repository"
	"rasterTiler/api/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("API Service starting", zap.String("port", cfg.Port))

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		logger.Fatal("Failed to create upload directory", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.TilesDir, 0o755); err != nil {
		logger.Fatal("Failed to create tiles directory", zap.Error(err))
	}

	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisCache, err := database.ConnectCache(cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	producer, err := kafka.NewProducer(strings.Split(cfg.KafkaBrokers, ","))
	if err != nil {
		logger.Fatal("Failed to connect to kafka", zap.Error(err))
	}
	defer producer.Close()

	repo := repository.NewPostgresRepo(db)
	statusCache := cache.NewStatusCache(redisCache)
	jobService := service.NewJobService(repo, statusCache, producer, cfg.TilesDir)
	jobHandler := handlers.NewJobHandler(jobService, logger, cfg.UploadDir, cfg.MaxFileSize)

	mux := http.NewServeMux()
	mux.HandleFunc("/convert", jobHandler.Convert)
	mux.HandleFunc("/status/", jobHandler.Status)
	mux.Handle("/tiles/", http.StripPrefix("/tiles/", http.FileServer(http.Dir(cfg.TilesDir))))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler := middleware.TraceID(
		middleware.Logging(logger)(
			middleware.Recovery(logger)(mux),
		),
	)

	logger.Info("Server started", zap.String("address", ":"+cfg.Port))
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handler))
}
