package tiler

import "context"

// Bounds is a geographic extent in lon/lat degrees.
type Bounds struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// WholeEarth is the fallback extent used when bounds extraction fails.
// The latitude is clipped to the Web Mercator limit.
var WholeEarth = Bounds{West: -180, South: -85, East: 180, North: 85}

type RasterInfo struct {
	Width            int
	Height           int
	Bands            int
	DataType         string
	Bounds           Bounds
	CoordinateSystem string
}

// RawStatistics are the band statistics as reported by the engine, before
// any percentile derivation.
type RawStatistics struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

type TileRequest struct {
	InputPath  string
	OutputDir  string
	MinZoom    int
	MaxZoom    int
	Profile    string
	Resampling string
	TileSize   int
	Processes  int
	Resume     bool
	WebViewer  bool
}

// Engine is the narrow contract against the external raster processor. All
// calls are synchronous; implementations run child processes underneath.
type Engine interface {
	Inspect(ctx context.Context, path string) (*RasterInfo, error)
	ComputeStatistics(ctx context.Context, path string) (*RawStatistics, error)
	Reproject(ctx context.Context, path, targetSRS, resampling string) (string, error)
	Repackage(ctx context.Context, path string) (string, error)
	ApplyPointwiseFormula(ctx context.Context, path, formula string) (string, error)
	RescaleRange(ctx context.Context, path string, srcMin, srcMax, dstMin, dstMax float64) (string, error)
	ApplyColorRamp(ctx context.Context, path, rampTablePath string) (string, error)
	GenerateTilePyramid(ctx context.Context, req *TileRequest) error
	Version(ctx context.Context) string
}

// ProgressObserver receives coarse progress scraped from engine output.
// Implementations must not block.
type ProgressObserver interface {
	Progress(stage string, percent int)
	Note(stage string, note string)
}

type nopObserver struct{}

func (nopObserver) Progress(string, int) {}
func (nopObserver) Note(string, string)  {}

// NopObserver discards all progress signals.
var NopObserver ProgressObserver = nopObserver{}
