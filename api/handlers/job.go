package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"rasterTiler/api/dto"
	"rasterTiler/api/middleware"
	"rasterTiler/api/validation"
)

// JobService is the slice of the service layer the handlers need.
type JobService interface {
	CreateJob(ctx context.Context, traceID string, req *dto.CreateJobRequest) (*dto.JobResponse, error)
	GetJobStatus(ctx context.Context, jobID string) (*dto.JobResponse, error)
}

type JobHandler struct {
	service     JobService
	logger      *zap.Logger
	uploadDir   string
	maxFileSize int64
}

func NewJobHandler(service JobService, logger *zap.Logger, uploadDir string, maxFileSize int64) *JobHandler {
	return &JobHandler{
		service:     service,
		logger:      logger,
		uploadDir:   uploadDir,
		maxFileSize: maxFileSize,
	}
}

func (h *JobHandler) Convert(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		h.handleError(w, "Failed to parse form", err, traceID, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, "Failed to get file", err, traceID, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := h.validateFile(header, file); err != nil {
		h.handleError(w, "Invalid file", err, traceID, http.StatusBadRequest)
		return
	}

	if !validation.HasExpectedExtension(header.Filename) {
		h.logger.Warn("Unexpected raster extension, accepting anyway",
			zap.String("trace_id", traceID),
			zap.String("filename", header.Filename),
		)
	}

	filename := sanitizeFilename(header.Filename)
	filePath := filepath.Join(h.uploadDir, filename)

	dst, err := os.Create(filePath)
	if err != nil {
		h.handleError(w, "Failed to save file", err, traceID, http.StatusInternalServerError)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.handleError(w, "Failed to write file", err, traceID, http.StatusInternalServerError)
		return
	}

	req := h.requestFromForm(r, header.Filename, filePath)

	resp, err := h.service.CreateJob(r.Context(), traceID, req)
	if err != nil {
		h.handleError(w, "Failed to create job", err, traceID, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Conversion job accepted",
		zap.String("trace_id", traceID),
		zap.String("job_id", resp.ID),
		zap.String("filename", header.Filename),
	)

	h.respondJSON(w, http.StatusCreated, resp)
}

func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := strings.TrimPrefix(r.URL.Path, "/status/")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	resp, err := h.service.GetJobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, dto.ErrJobNotFound) {
			h.handleError(w, "Job not found", err, traceID, http.StatusNotFound)
			return
		}
		h.handleError(w, "Failed to get job status", err, traceID, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *JobHandler) requestFromForm(r *http.Request, originalFilename, filePath string) *dto.CreateJobRequest {
	return &dto.CreateJobRequest{
		OriginalFilename: originalFilename,
		FilePath:         filePath,
		MinZoom:          formInt(r, "min_zoom", 0),
		MaxZoom:          formInt(r, "max_zoom", 0),
		TileSize:         formInt(r, "tile_size", 0),
		Profile:          r.FormValue("profile"),
		Resampling:       r.FormValue("resampling"),
		Processes:        formInt(r, "processes", 0),
		ForceWebMercator: formBool(r, "force_webmercator"),
		WebViewer:        formBool(r, "web_viewer"),
	}
}

func formInt(r *http.Request, key string, defaultValue int) int {
	if v := r.FormValue(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func formBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.FormValue(key))
	return v
}

func (h *JobHandler) validateFile(header *multipart.FileHeader, file multipart.File) error {
	if header.Size > h.maxFileSize {
		return validation.ErrFileTooLarge
	}

	fileType, err := validation.DetectFileType(file)
	if err != nil {
		return err
	}

	if !validation.IsAllowedRasterType(fileType) {
		return validation.ErrUnsupportedFormat
	}

	return nil
}

func sanitizeFilename(filename string) string {
	return filepath.Base(filename)
}

func (h *JobHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
