package tiler

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Verification is a read-only snapshot of the generated output structure.
// It informs, never blocks: a failed verification downgrades to warnings.
type Verification struct {
	OutputExists   bool        `json:"output_exists"`
	MetadataExists bool        `json:"metadata_exists"`
	ZoomLevels     []int       `json:"zoom_levels"`
	TilesPerZoom   map[int]int `json:"tiles_per_zoom"`
	TileCount      int         `json:"tile_count"`
	Warnings       []string    `json:"warnings,omitempty"`
}

// Verify scans outputDir for zoom-level subdirectories (non-negative integer
// names), counts image tiles nested two levels deep (z/x/y), and spot-checks
// that one tile per zoom actually decodes. A missing output directory yields
// a zeroed result, not an error.
func Verify(outputDir string) *Verification {
	v := &Verification{TilesPerZoom: map[int]int{}}

	if _, err := os.Stat(outputDir); err != nil {
		return v
	}
	v.OutputExists = true

	if _, err := os.Stat(filepath.Join(outputDir, MetadataFilename)); err == nil {
		v.MetadataExists = true
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		v.Warnings = append(v.Warnings, "cannot read output directory: "+err.Error())
		return v
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		zoom, err := strconv.Atoi(entry.Name())
		if err != nil || zoom < 0 {
			continue
		}
		v.ZoomLevels = append(v.ZoomLevels, zoom)
	}
	sort.Ints(v.ZoomLevels)

	for _, zoom := range v.ZoomLevels {
		count, sample := countZoomTiles(filepath.Join(outputDir, strconv.Itoa(zoom)))
		v.TilesPerZoom[zoom] = count
		v.TileCount += count

		if sample != "" {
			if _, err := imaging.Open(sample); err != nil {
				v.Warnings = append(v.Warnings, "tile does not decode: "+sample)
			}
		}
	}

	return v
}

// countZoomTiles counts image files under zoomDir/x/, returning the count
// and one sample tile path for the decode check.
func countZoomTiles(zoomDir string) (int, string) {
	count := 0
	sample := ""

	columns, err := os.ReadDir(zoomDir)
	if err != nil {
		return 0, ""
	}

	for _, col := range columns {
		if !col.IsDir() {
			continue
		}
		tiles, err := os.ReadDir(filepath.Join(zoomDir, col.Name()))
		if err != nil {
			continue
		}
		for _, tile := range tiles {
			if tile.IsDir() || !isImageFile(tile.Name()) {
				continue
			}
			count++
			if sample == "" {
				sample = filepath.Join(zoomDir, col.Name(), tile.Name())
			}
		}
	}

	return count, sample
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	default:
		return false
	}
}
