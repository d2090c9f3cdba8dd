package dto

import "errors"

var ErrJobNotFound = errors.New("job not found")

type CreateJobRequest struct {
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
	MinZoom          int    `json:"min_zoom"`
	MaxZoom          int    `json:"max_zoom"`
	TileSize         int    `json:"tile_size"`
	Profile          string `json:"profile,omitempty"`
	Resampling       string `json:"resampling"`
	Processes        int    `json:"processes"`
	ForceWebMercator bool   `json:"force_webmercator"`
	WebViewer        bool   `json:"web_viewer"`
}

type JobResponse struct {
	ID               string  `json:"id"`
	TraceID          string  `json:"trace_id"`
	OriginalFilename string  `json:"original_filename"`
	Status           string  `json:"status"`
	Stage            string  `json:"stage,omitempty"`
	Progress         int     `json:"progress"`
	Message          string  `json:"message,omitempty"`
	ErrorMessage     string  `json:"error_message,omitempty"`
	OutputDir        string  `json:"output_dir,omitempty"`
	TileURL          string  `json:"tile_url,omitempty"`
	CreatedAt        string  `json:"created_at"`
	CompletedAt      *string `json:"completed_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
