package tiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataFilename is written beside the generated tiles.
const MetadataFilename = "metadata.json"

// Version of the conversion pipeline, recorded in every metadata file.
const Version = "1.2.0"

type SourceInfo struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

type TilesInfo struct {
	MinZoom    int    `json:"min_zoom"`
	MaxZoom    int    `json:"max_zoom"`
	TileSize   int    `json:"tile_size"`
	Profile    string `json:"profile"`
	Resampling string `json:"resampling"`
}

type GeographicInfo struct {
	Bounds     Bounds `json:"bounds"`
	Projection string `json:"projection"`
	Size       string `json:"size"`
}

type ProcessingInfo struct {
	ProcessedAt   time.Time `json:"processed_at"`
	Version       string    `json:"version"`
	EngineVersion string    `json:"engine_version"`
}

// Metadata describes one generated tileset.
type Metadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Source      SourceInfo     `json:"source"`
	Tiles       TilesInfo      `json:"tiles"`
	Geographic  GeographicInfo `json:"geographic"`
	Processing  ProcessingInfo `json:"processing"`
}

func buildMetadata(inputPath string, info *RasterInfo, cfg *Config, profile, engineVersion string) *Metadata {
	var size int64
	if st, err := os.Stat(inputPath); err == nil {
		size = st.Size()
	}

	name := filepath.Base(inputPath)
	return &Metadata{
		Name:        trimExt(name),
		Description: fmt.Sprintf("Tile pyramid generated from %s", name),
		Source: SourceInfo{
			Filename: name,
			Path:     inputPath,
			Size:     size,
		},
		Tiles: TilesInfo{
			MinZoom:    cfg.MinZoom,
			MaxZoom:    cfg.MaxZoom,
			TileSize:   cfg.TileSize,
			Profile:    profile,
			Resampling: cfg.Resampling,
		},
		Geographic: GeographicInfo{
			Bounds:     info.Bounds,
			Projection: info.CoordinateSystem,
			Size:       fmt.Sprintf("%dx%d", info.Width, info.Height),
		},
		Processing: ProcessingInfo{
			ProcessedAt:   time.Now().UTC(),
			Version:       Version,
			EngineVersion: engineVersion,
		},
	}
}

func writeMetadata(outputDir string, md *Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(outputDir, MetadataFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &IOError{Op: "write metadata", Path: path, Err: err}
	}
	return nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
