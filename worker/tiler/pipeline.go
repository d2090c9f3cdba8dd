package tiler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Stage names, in execution order. Reproject keeps its slot even when
// skipped so progress numbering is identical for every run.
const (
	StageValidate         = "validate"
	StagePrepareOutput    = "prepare_output"
	StageAnalyze          = "analyze"
	StageDetectProjection = "detect_projection"
	StageReproject        = "reproject"
	StageOptimize         = "optimize"
	StageColorize         = "colorize"
	StageTile             = "tile"
	StageMetadata         = "metadata"
	StageCleanup          = "cleanup"
	StageVerify           = "verify"
)

var stageSequence = []string{
	StageValidate,
	StagePrepareOutput,
	StageAnalyze,
	StageDetectProjection,
	StageReproject,
	StageOptimize,
	StageColorize,
	StageTile,
	StageMetadata,
	StageCleanup,
	StageVerify,
}

const (
	ProfileGeodetic = "geodetic"
	ProfileMercator = "mercator"
)

// epsilon keeps log10 finite at zero-valued pixels. The lower bound of the
// rescale range follows from it: log10(epsilon) - 1.
const epsilon = 0.001

const webMercatorSRS = "EPSG:3857"

type Config struct {
	OutputDir        string
	WorkDir          string
	MinZoom          int
	MaxZoom          int
	TileSize         int
	Profile          string
	Resampling       string
	Processes        int
	ForceWebMercator bool
	WebViewer        bool
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.MaxZoom <= 0 {
		out.MaxZoom = 12
	}
	if out.MinZoom < 0 || out.MinZoom > out.MaxZoom {
		out.MinZoom = 0
	}
	if out.TileSize <= 0 {
		out.TileSize = 256
	}
	if out.Resampling == "" {
		out.Resampling = "average"
	}
	if out.Processes <= 0 {
		out.Processes = 4
	}
	return &out
}

type Result struct {
	OutputDir    string
	Profile      string
	Statistics   Statistics
	Metadata     *Metadata
	Verification *Verification
}

// Pipeline drives the staged conversion of one raster into a tile pyramid.
// Stages run strictly sequentially; parallelism lives inside the external
// tiling engine.
type Pipeline struct {
	engine   Engine
	logger   *zap.Logger
	observer ProgressObserver
}

func NewPipeline(engine Engine, logger *zap.Logger, observer ProgressObserver) *Pipeline {
	if observer == nil {
		observer = NopObserver
	}
	return &Pipeline{
		engine:   engine,
		logger:   logger,
		observer: observer,
	}
}

func (p *Pipeline) enterStage(name string) {
	for i, s := range stageSequence {
		if s == name {
			p.observer.Progress(name, i*100/len(stageSequence))
			break
		}
	}
	p.logger.Info("Stage started", zap.String("stage", name))
}

// Run executes the full stage sequence. On any fatal error every artifact is
// purged regardless of tag and the partially built output directory is
// removed; the original stage error is returned unchanged.
func (p *Pipeline) Run(ctx context.Context, inputPath string, cfg *Config) (*Result, error) {
	cfg = cfg.withDefaults()
	artifacts := NewArtifactSet(p.logger)

	result, err := p.run(ctx, inputPath, cfg, artifacts)
	if err != nil {
		p.rollback(artifacts, cfg.OutputDir)
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, inputPath string, cfg *Config, artifacts *ArtifactSet) (*Result, error) {
	// Validate
	p.enterStage(StageValidate)
	if err := p.validate(inputPath); err != nil {
		return nil, err
	}

	// PrepareOutput
	p.enterStage(StagePrepareOutput)
	if err := prepareOutputDir(cfg.OutputDir); err != nil {
		return nil, err
	}

	// Analyze
	p.enterStage(StageAnalyze)
	info, err := p.engine.Inspect(ctx, inputPath)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Raster analyzed",
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Int("bands", info.Bands),
		zap.String("data_type", info.DataType),
		zap.String("coordinate_system", info.CoordinateSystem),
	)

	// DetectProjection
	p.enterStage(StageDetectProjection)
	profile := cfg.Profile
	if profile == "" {
		profile = detectProfile(info.CoordinateSystem)
	}
	p.observer.Note(StageDetectProjection, "profile "+profile)

	current := inputPath
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(inputPath)
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	// Reproject, only when geodetic input meets an explicit mercator request.
	// The stage slot is consumed either way.
	p.enterStage(StageReproject)
	if profile == ProfileGeodetic && cfg.ForceWebMercator {
		reprojected, err := p.engine.Reproject(ctx, current, webMercatorSRS, cfg.Resampling)
		if err != nil {
			return nil, err
		}
		artifacts.Register(reprojected, Transient)
		current = reprojected
		profile = ProfileMercator
	} else {
		p.observer.Note(StageReproject, "skipped")
	}

	// Optimize: compressed, internally tiled intermediate for the random
	// access patterns of the tiling stage.
	p.enterStage(StageOptimize)
	optimized, err := p.engine.Repackage(ctx, current)
	if err != nil {
		return nil, err
	}
	artifacts.Register(optimized, Transient)
	current = optimized

	// NormalizeAndColorize
	p.enterStage(StageColorize)
	stats, colorized, err := p.normalizeAndColorize(ctx, current, workDir, base, artifacts)
	if err != nil {
		return nil, err
	}

	// Tile
	p.enterStage(StageTile)
	tileReq := &TileRequest{
		InputPath:  colorized,
		OutputDir:  cfg.OutputDir,
		MinZoom:    cfg.MinZoom,
		MaxZoom:    cfg.MaxZoom,
		Profile:    profile,
		Resampling: cfg.Resampling,
		TileSize:   cfg.TileSize,
		Processes:  cfg.Processes,
		Resume:     true,
		WebViewer:  cfg.WebViewer,
	}
	if err := p.engine.GenerateTilePyramid(ctx, tileReq); err != nil {
		return nil, err
	}

	// EmitMetadata
	p.enterStage(StageMetadata)
	md := buildMetadata(inputPath, info, cfg, profile, p.engine.Version(ctx))
	if err := writeMetadata(cfg.OutputDir, md); err != nil {
		return nil, err
	}

	// Cleanup: transient artifacts only; retained intermediates survive.
	// Failures are logged inside the artifact set, never escalated.
	p.enterStage(StageCleanup)
	artifacts.PurgeTransient()

	// Verify: purely observational.
	p.enterStage(StageVerify)
	verification := Verify(cfg.OutputDir)
	for _, warning := range verification.Warnings {
		p.logger.Warn("Verification warning", zap.String("warning", warning))
	}
	p.logger.Info("Tileset verified",
		zap.Ints("zoom_levels", verification.ZoomLevels),
		zap.Int("tile_count", verification.TileCount),
		zap.Bool("metadata_exists", verification.MetadataExists),
	)

	p.observer.Progress(StageVerify, 100)

	return &Result{
		OutputDir:    cfg.OutputDir,
		Profile:      profile,
		Statistics:   stats,
		Metadata:     md,
		Verification: verification,
	}, nil
}

func (p *Pipeline) validate(inputPath string) error {
	st, err := os.Stat(inputPath)
	if err != nil {
		return &ValidationError{Path: inputPath, Reason: "input does not exist", Err: err}
	}
	if st.IsDir() {
		return &ValidationError{Path: inputPath, Reason: "input is a directory"}
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return &ValidationError{Path: inputPath, Reason: "input is not readable", Err: err}
	}
	f.Close()

	switch strings.ToLower(filepath.Ext(inputPath)) {
	case ".tif", ".tiff", ".vrt", ".png", ".jpg", ".jpeg":
	default:
		// Permissive: the engine identifies rasters by content.
		p.logger.Warn("Unexpected input extension", zap.String("path", inputPath))
	}

	return nil
}

// normalizeAndColorize chains the log transform, the byte-range rescale
// anchored at the 95th percentile, and the color ramp.
func (p *Pipeline) normalizeAndColorize(ctx context.Context, current, workDir, base string, artifacts *ArtifactSet) (Statistics, string, error) {
	raw, err := p.engine.ComputeStatistics(ctx, current)
	if err != nil {
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			return Statistics{}, "", err
		}
		// Unparsable statistics fall back to the 8-bit defaults.
		p.logger.Warn("Statistics unparsable, using defaults", zap.Error(err))
		raw = nil
	}
	stats := DeriveStatistics(raw)
	p.logger.Info("Statistics derived",
		zap.Float64("min", stats.Min),
		zap.Float64("max", stats.Max),
		zap.Float64("mean", stats.Mean),
		zap.Float64("stddev", stats.StdDev),
		zap.Float64("p95", stats.P95),
	)

	formula := fmt.Sprintf("log10(A+%g)-1", epsilon)
	logTransformed, err := p.engine.ApplyPointwiseFormula(ctx, current, formula)
	if err != nil {
		return stats, "", err
	}
	artifacts.Register(logTransformed, Transient)

	srcMin := math.Log10(epsilon) - 1
	srcMax := math.Log10(stats.P95 + epsilon)
	rescaled, err := p.engine.RescaleRange(ctx, logTransformed, srcMin, srcMax, 0, 255)
	if err != nil {
		return stats, "", err
	}
	artifacts.Register(rescaled, Transient)

	ramp := NewColorRamp()
	tablePath := filepath.Join(workDir, base+".ramp.txt")
	if err := ramp.WriteTable(tablePath); err != nil {
		return stats, "", err
	}

	colorized, err := p.engine.ApplyColorRamp(ctx, rescaled, tablePath)

	// The ramp table only exists for the colorize call.
	if rmErr := os.Remove(tablePath); rmErr != nil && !os.IsNotExist(rmErr) {
		p.logger.Warn("Failed to remove ramp table", zap.Error(rmErr))
	}

	if err != nil {
		return stats, "", err
	}

	// The colorized raster is kept on success so a re-tile does not have to
	// redo normalization.
	artifacts.Register(colorized, Retain)
	return stats, colorized, nil
}

// rollback purges everything regardless of tag and removes the partially
// built output directory. Best effort only; the original error wins.
func (p *Pipeline) rollback(artifacts *ArtifactSet, outputDir string) {
	artifacts.PurgeAll()
	if outputDir != "" {
		if err := os.RemoveAll(outputDir); err != nil {
			p.logger.Warn("Failed to remove output directory",
				zap.String("path", outputDir),
				zap.Error(err),
			)
		}
	}
}

// prepareOutputDir creates outputDir if absent and clears its contents if
// present, so stale tiles from a prior run never leak into this one. The
// directory itself is kept. Idempotent.
func prepareOutputDir(outputDir string) error {
	if outputDir == "" {
		return &ValidationError{Path: outputDir, Reason: "output directory is required"}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return &IOError{Op: "create output dir", Path: outputDir, Err: err}
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return &IOError{Op: "read output dir", Path: outputDir, Err: err}
	}
	for _, entry := range entries {
		path := filepath.Join(outputDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return &IOError{Op: "clear output dir", Path: path, Err: err}
		}
	}

	return nil
}

// detectProfile classifies engine-reported coordinate system text.
// Unrecognized systems default to geodetic rather than failing.
func detectProfile(coordinateSystem string) string {
	cs := strings.ToLower(coordinateSystem)
	switch {
	case strings.Contains(cs, "3857"),
		strings.Contains(cs, "900913"),
		strings.Contains(cs, "pseudo-mercator"),
		strings.Contains(cs, "web mercator"):
		return ProfileMercator
	default:
		return ProfileGeodetic
	}
}
