package models

import (
	"time"
)

type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Stage names mirror the worker pipeline so the API can report where a
// running job currently is.
type JobStage string

const (
	StageQueued   JobStage = "queued"
	StageValidate JobStage = "validate"
	StageAnalyze  JobStage = "analyze"
	StageColorize JobStage = "colorize"
	StageTile     JobStage = "tile"
	StageVerify   JobStage = "verify"
	StageDone     JobStage = "done"
)

type TileConfig struct {
	MinZoom          int
	MaxZoom          int
	TileSize         int
	Profile          string
	Resampling       string
	Processes        int
	ForceWebMercator bool
	WebViewer        bool
}

type Job struct {
	ID               string
	TraceID          string
	OriginalFilename string
	FilePath         string
	OutputDir        string
	Config           TileConfig
	Status           JobStatus
	Stage            JobStage
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
}
