package gdal

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"rasterTiler/worker/tiler"
)

// Engine drives the GDAL command-line tools as child processes. It
// implements tiler.Engine; every method is synchronous and maps a non-zero
// exit to tiler.ExternalToolError.
type Engine struct {
	logger   *zap.Logger
	observer tiler.ProgressObserver
	runner   runner

	infoTool      string
	translateTool string
	warpTool      string
	calcTool      string
	demTool       string
	tilesTool     string

	versionOnce sync.Once
	version     string
}

func NewEngine(logger *zap.Logger, observer tiler.ProgressObserver) *Engine {
	if observer == nil {
		observer = tiler.NopObserver
	}
	return &Engine{
		logger:        logger,
		observer:      observer,
		runner:        execRunner{},
		infoTool:      "gdalinfo",
		translateTool: "gdal_translate",
		warpTool:      "gdalwarp",
		calcTool:      "gdal_calc.py",
		demTool:       "gdaldem",
		tilesTool:     "gdal2tiles.py",
	}
}

// run executes one tool invocation for a pipeline stage, wiring its output
// through the progress parser.
func (e *Engine) run(ctx context.Context, stage, tool string, args ...string) (commandResult, error) {
	e.logger.Debug("Running engine tool",
		zap.String("stage", stage),
		zap.String("tool", tool),
		zap.Strings("args", args),
	)

	parser := newLineParser(stage, e.observer)
	var mu sync.Mutex
	onLine := func(line string) {
		mu.Lock()
		parser.Line(line)
		mu.Unlock()
	}

	result, err := e.runner.Run(ctx, tool, args, onLine)
	if err != nil {
		return result, &tiler.ExternalToolError{
			Stage:    stage,
			Tool:     tool,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
			Err:      err,
		}
	}
	return result, nil
}

// gdalinfoOutput is the subset of `gdalinfo -json` the pipeline consumes.
type gdalinfoOutput struct {
	Size  []int `json:"size"`
	Bands []struct {
		Type string `json:"type"`
	} `json:"bands"`
	CoordinateSystem struct {
		WKT string `json:"wkt"`
	} `json:"coordinateSystem"`
	WGS84Extent struct {
		Coordinates [][][]float64 `json:"coordinates"`
	} `json:"wgs84Extent"`
}

func (e *Engine) Inspect(ctx context.Context, path string) (*tiler.RasterInfo, error) {
	result, err := e.run(ctx, tiler.StageAnalyze, e.infoTool, "-json", path)
	if err != nil {
		return nil, err
	}

	var out gdalinfoOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return nil, &tiler.ParseError{
			Stage:  tiler.StageAnalyze,
			Input:  result.Stdout,
			Reason: "gdalinfo output is not valid JSON",
		}
	}

	info := &tiler.RasterInfo{
		Bands:            len(out.Bands),
		CoordinateSystem: out.CoordinateSystem.WKT,
		Bounds:           extentToBounds(out.WGS84Extent.Coordinates),
	}
	if len(out.Size) == 2 {
		info.Width, info.Height = out.Size[0], out.Size[1]
	}
	if len(out.Bands) > 0 {
		info.DataType = out.Bands[0].Type
	}

	return info, nil
}

// extentToBounds reduces a GeoJSON polygon ring to a bounding box.
// Anything malformed falls back to the whole-earth extent; bounds problems
// are never fatal.
func extentToBounds(coordinates [][][]float64) tiler.Bounds {
	if len(coordinates) == 0 || len(coordinates[0]) == 0 {
		return tiler.WholeEarth
	}

	b := tiler.Bounds{West: 180, South: 90, East: -180, North: -90}
	for _, point := range coordinates[0] {
		if len(point) < 2 {
			return tiler.WholeEarth
		}
		lon, lat := point[0], point[1]
		if lon < b.West {
			b.West = lon
		}
		if lon > b.East {
			b.East = lon
		}
		if lat < b.South {
			b.South = lat
		}
		if lat > b.North {
			b.North = lat
		}
	}

	if b.West > b.East || b.South > b.North {
		return tiler.WholeEarth
	}
	return b
}

var statRe = map[string]*regexp.Regexp{
	"min":    regexp.MustCompile(`STATISTICS_MINIMUM=(-?[\d.eE+]+)`),
	"max":    regexp.MustCompile(`STATISTICS_MAXIMUM=(-?[\d.eE+]+)`),
	"mean":   regexp.MustCompile(`STATISTICS_MEAN=(-?[\d.eE+]+)`),
	"stddev": regexp.MustCompile(`STATISTICS_STDDEV=(-?[\d.eE+]+)`),
}

func (e *Engine) ComputeStatistics(ctx context.Context, path string) (*tiler.RawStatistics, error) {
	result, err := e.run(ctx, tiler.StageColorize, e.infoTool, "-stats", path)
	if err != nil {
		return nil, err
	}

	values := map[string]float64{}
	for name, re := range statRe {
		m := re.FindStringSubmatch(result.Stdout)
		if m == nil {
			return nil, &tiler.ParseError{
				Stage:  tiler.StageColorize,
				Input:  result.Stdout,
				Reason: fmt.Sprintf("missing %s statistic", name),
			}
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return nil, &tiler.ParseError{
				Stage:  tiler.StageColorize,
				Input:  m[1],
				Reason: fmt.Sprintf("malformed %s statistic", name),
			}
		}
		values[name] = v
	}

	return &tiler.RawStatistics{
		Min:    values["min"],
		Max:    values["max"],
		Mean:   values["mean"],
		StdDev: values["stddev"],
	}, nil
}

func (e *Engine) Reproject(ctx context.Context, path, targetSRS, resampling string) (string, error) {
	out := derivedPath(path, "warped")
	_, err := e.run(ctx, tiler.StageReproject, e.warpTool,
		"-t_srs", targetSRS,
		"-r", resampling,
		"-overwrite",
		path, out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Engine) Repackage(ctx context.Context, path string) (string, error) {
	out := derivedPath(path, "optimized")
	_, err := e.run(ctx, tiler.StageOptimize, e.translateTool,
		"-co", "COMPRESS=DEFLATE",
		"-co", "TILED=YES",
		path, out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Engine) ApplyPointwiseFormula(ctx context.Context, path, formula string) (string, error) {
	out := derivedPath(path, "log")
	_, err := e.run(ctx, tiler.StageColorize, e.calcTool,
		"-A", path,
		"--outfile="+out,
		"--calc="+formula,
		"--type=Float32",
		"--overwrite",
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Engine) RescaleRange(ctx context.Context, path string, srcMin, srcMax, dstMin, dstMax float64) (string, error) {
	out := derivedPath(path, "byte")
	_, err := e.run(ctx, tiler.StageColorize, e.translateTool,
		"-ot", "Byte",
		"-scale",
		formatFloat(srcMin), formatFloat(srcMax),
		formatFloat(dstMin), formatFloat(dstMax),
		path, out,
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Engine) ApplyColorRamp(ctx context.Context, path, rampTablePath string) (string, error) {
	out := derivedPath(path, "rgba")
	_, err := e.run(ctx, tiler.StageColorize, e.demTool,
		"color-relief",
		path, rampTablePath, out,
		"-alpha",
	)
	if err != nil {
		return "", err
	}
	return out, nil
}

func (e *Engine) GenerateTilePyramid(ctx context.Context, req *tiler.TileRequest) error {
	args := []string{
		"-z", fmt.Sprintf("%d-%d", req.MinZoom, req.MaxZoom),
		"-p", req.Profile,
		"-r", req.Resampling,
		"--tilesize", strconv.Itoa(req.TileSize),
		fmt.Sprintf("--processes=%d", req.Processes),
		"--xyz",
	}
	if req.Resume {
		args = append(args, "-e")
	}
	if req.WebViewer {
		args = append(args, "-w", "leaflet")
	} else {
		args = append(args, "-w", "none")
	}
	args = append(args, req.InputPath, req.OutputDir)

	_, err := e.run(ctx, tiler.StageTile, e.tilesTool, args...)
	return err
}

// Version reports the GDAL release. Failures degrade to "unknown" since the
// version only ends up in metadata.
func (e *Engine) Version(ctx context.Context) string {
	e.versionOnce.Do(func() {
		e.version = "unknown"
		result, err := e.runner.Run(ctx, e.infoTool, []string{"--version"}, nil)
		if err != nil {
			return
		}
		if line := strings.TrimSpace(firstLine(result.Stdout)); line != "" {
			e.version = line
		}
	})
	return e.version
}

// derivedPath names an intermediate beside its source:
// /data/x.tif -> /data/x.log.tif. Concurrent jobs over the same input file
// share these paths; job-level isolation is the caller's concern.
func derivedPath(path, suffix string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".tif"
	}
	return base + "." + suffix + ext
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
