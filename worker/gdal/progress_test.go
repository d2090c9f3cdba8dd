package gdal

import (
	"reflect"
	"testing"
)

type recordingObserver struct {
	progress []int
	notes    []string
}

func (o *recordingObserver) Progress(stage string, percent int) {
	o.progress = append(o.progress, percent)
}

func (o *recordingObserver) Note(stage string, note string) {
	o.notes = append(o.notes, note)
}

func TestLineParser_GdalProgressDots(t *testing.T) {
	// Captured from gdalwarp; the runner splits the dot stream into chunks.
	lines := []string{
		"Creating output file that is 8192P x 4096L.",
		"Processing input.tif [1/1] : 0",
		"...",
		"10...",
		"20...",
		"30...",
		"100 - done.",
	}

	obs := &recordingObserver{}
	parser := newLineParser("reproject", obs)
	for _, line := range lines {
		parser.Line(line)
	}

	if !reflect.DeepEqual(obs.progress, []int{10, 20, 30, 100}) {
		t.Errorf("Unexpected progress sequence: %v", obs.progress)
	}
}

func TestLineParser_SingleLineProgress(t *testing.T) {
	obs := &recordingObserver{}
	parser := newLineParser("optimize", obs)

	// Whole progress bar arriving as one line.
	parser.Line("0...10...20...30...40...50...60...70...80...90...100 - done.")

	if !reflect.DeepEqual(obs.progress, []int{100}) {
		t.Errorf("Expected only the furthest marker, got %v", obs.progress)
	}
}

func TestLineParser_Gdal2TilesPhases(t *testing.T) {
	// Captured from gdal2tiles.py.
	lines := []string{
		"Generating Base Tiles:",
		"0...10...20...30...40...50...60...70...80...90...100 - done.",
		"Generating Overview Tiles:",
		"0...10...20...30...40...50...60...70...80...90...100 - done.",
	}

	obs := &recordingObserver{}
	parser := newLineParser("tile", obs)
	for _, line := range lines {
		parser.Line(line)
	}

	if !reflect.DeepEqual(obs.notes, []string{"base tiles", "overview tiles"}) {
		t.Errorf("Unexpected notes: %v", obs.notes)
	}
	// Second bar repeats percentages already seen; they are deduplicated.
	if !reflect.DeepEqual(obs.progress, []int{100}) {
		t.Errorf("Unexpected progress: %v", obs.progress)
	}
}

func TestLineParser_ZoomAnnouncements(t *testing.T) {
	obs := &recordingObserver{}
	parser := newLineParser("tile", obs)

	parser.Line("Generating tiles for zoom level 5")
	parser.Line("zoom 7 complete")

	if !reflect.DeepEqual(obs.notes, []string{"zoom 5", "zoom 7"}) {
		t.Errorf("Unexpected notes: %v", obs.notes)
	}
}

func TestLineParser_DropsUnmatchedLines(t *testing.T) {
	obs := &recordingObserver{}
	parser := newLineParser("analyze", obs)

	for _, line := range []string{
		"Driver: GTiff/GeoTIFF",
		"Files: input.tif",
		"Band 1 Block=256x256 Type=Float32, ColorInterp=Gray",
		"",
		"   ",
	} {
		parser.Line(line)
	}

	if len(obs.progress) != 0 || len(obs.notes) != 0 {
		t.Errorf("Expected nothing, got progress=%v notes=%v", obs.progress, obs.notes)
	}
}

func TestLineParser_IgnoresRegression(t *testing.T) {
	obs := &recordingObserver{}
	parser := newLineParser("tile", obs)

	parser.Line("50...")
	parser.Line("40...")
	parser.Line("60...")

	if !reflect.DeepEqual(obs.progress, []int{50, 60}) {
		t.Errorf("Expected monotonic progress, got %v", obs.progress)
	}
}
