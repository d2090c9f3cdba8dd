package gdal

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"rasterTiler/worker/tiler"
)

type fakeRunner struct {
	stdout   string
	stderr   string
	exitCode int
	err      error

	lastName string
	lastArgs []string
}

func (r *fakeRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) (commandResult, error) {
	r.lastName = name
	r.lastArgs = args
	return commandResult{Stdout: r.stdout, Stderr: r.stderr, ExitCode: r.exitCode}, r.err
}

func newTestEngine(t *testing.T, r runner) *Engine {
	e := NewEngine(zaptest.NewLogger(t), nil)
	e.runner = r
	return e
}

const sampleGdalinfoJSON = `{
	"size": [8192, 4096],
	"bands": [{"type": "Float32"}],
	"coordinateSystem": {"wkt": "GEOGCRS[\"WGS 84\",ID[\"EPSG\",4326]]"},
	"wgs84Extent": {
		"type": "Polygon",
		"coordinates": [[[-180.0, 75.0], [-180.0, -65.0], [180.0, -65.0], [180.0, 75.0], [-180.0, 75.0]]]
	}
}`

func TestEngine_Inspect(t *testing.T) {
	engine := newTestEngine(t, &fakeRunner{stdout: sampleGdalinfoJSON})

	info, err := engine.Inspect(context.Background(), "input.tif")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.Width != 8192 || info.Height != 4096 {
		t.Errorf("Unexpected size: %dx%d", info.Width, info.Height)
	}
	if info.Bands != 1 || info.DataType != "Float32" {
		t.Errorf("Unexpected bands: %d %s", info.Bands, info.DataType)
	}

	expected := tiler.Bounds{West: -180, South: -65, East: 180, North: 75}
	if info.Bounds != expected {
		t.Errorf("Unexpected bounds: %+v", info.Bounds)
	}
}

func TestEngine_Inspect_MissingExtentDefaultsToWholeEarth(t *testing.T) {
	engine := newTestEngine(t, &fakeRunner{stdout: `{"size": [100, 100], "bands": [{"type": "Byte"}]}`})

	info, err := engine.Inspect(context.Background(), "input.tif")
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}

	if info.Bounds != tiler.WholeEarth {
		t.Errorf("Expected whole-earth bounds, got %+v", info.Bounds)
	}
}

func TestEngine_Inspect_MalformedJSON(t *testing.T) {
	engine := newTestEngine(t, &fakeRunner{stdout: "Driver: GTiff/GeoTIFF\nnot json"})

	_, err := engine.Inspect(context.Background(), "input.tif")

	var parseErr *tiler.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %T: %v", err, err)
	}
}

const sampleStatsOutput = `Band 1 Block=256x256 Type=Float32, ColorInterp=Gray
  Metadata:
    STATISTICS_MAXIMUM=1276.3299560547
    STATISTICS_MEAN=0.3240823792
    STATISTICS_MINIMUM=0
    STATISTICS_STDDEV=2.8037863718
    STATISTICS_VALID_PERCENT=100
`

func TestEngine_ComputeStatistics(t *testing.T) {
	engine := newTestEngine(t, &fakeRunner{stdout: sampleStatsOutput})

	stats, err := engine.ComputeStatistics(context.Background(), "input.tif")
	if err != nil {
		t.Fatalf("ComputeStatistics failed: %v", err)
	}

	if stats.Min != 0 {
		t.Errorf("Unexpected min: %v", stats.Min)
	}
	if stats.Max != 1276.3299560547 {
		t.Errorf("Unexpected max: %v", stats.Max)
	}
	if stats.Mean != 0.3240823792 {
		t.Errorf("Unexpected mean: %v", stats.Mean)
	}
	if stats.StdDev != 2.8037863718 {
		t.Errorf("Unexpected stddev: %v", stats.StdDev)
	}
}

func TestEngine_ComputeStatistics_MissingField(t *testing.T) {
	engine := newTestEngine(t, &fakeRunner{stdout: "STATISTICS_MINIMUM=0\nSTATISTICS_MAXIMUM=10\n"})

	_, err := engine.ComputeStatistics(context.Background(), "input.tif")

	var parseErr *tiler.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %T: %v", err, err)
	}
}

func TestEngine_NonZeroExitMapsToExternalToolError(t *testing.T) {
	engine := newTestEngine(t, &fakeRunner{
		stderr:   "ERROR 4: input.tif: No such file or directory",
		exitCode: 1,
		err:      errors.New("exit status 1"),
	})

	_, err := engine.Reproject(context.Background(), "input.tif", "EPSG:3857", "average")

	var toolErr *tiler.ExternalToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("Expected ExternalToolError, got %T: %v", err, err)
	}
	if toolErr.ExitCode != 1 {
		t.Errorf("Unexpected exit code: %d", toolErr.ExitCode)
	}
	if toolErr.Stderr == "" {
		t.Error("Expected captured stderr")
	}
	if toolErr.Stage != tiler.StageReproject {
		t.Errorf("Unexpected stage: %s", toolErr.Stage)
	}
}

func TestEngine_GenerateTilePyramid_Args(t *testing.T) {
	r := &fakeRunner{}
	engine := newTestEngine(t, r)

	err := engine.GenerateTilePyramid(context.Background(), &tiler.TileRequest{
		InputPath:  "colorized.tif",
		OutputDir:  "/data/tiles/sample",
		MinZoom:    0,
		MaxZoom:    6,
		Profile:    "mercator",
		Resampling: "average",
		TileSize:   256,
		Processes:  4,
		Resume:     true,
	})
	if err != nil {
		t.Fatalf("GenerateTilePyramid failed: %v", err)
	}

	if r.lastName != "gdal2tiles.py" {
		t.Errorf("Unexpected tool: %s", r.lastName)
	}

	want := map[string]bool{"-z": false, "-p": false, "-e": false, "--xyz": false}
	for _, arg := range r.lastArgs {
		if _, ok := want[arg]; ok {
			want[arg] = true
		}
	}
	for flag, seen := range want {
		if !seen {
			t.Errorf("Expected %s flag in args %v", flag, r.lastArgs)
		}
	}
}

func TestDerivedPath(t *testing.T) {
	cases := map[string]string{
		"/data/uploads/sample.tif": "/data/uploads/sample.log.tif",
		"/data/uploads/noext":      "/data/uploads/noext.log.tif",
	}

	for in, expected := range cases {
		if got := derivedPath(in, "log"); got != expected {
			t.Errorf("derivedPath(%q) = %q, expected %q", in, got, expected)
		}
	}
}
