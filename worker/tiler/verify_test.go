package tiler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestVerify_MissingDirectory(t *testing.T) {
	v := Verify(filepath.Join(t.TempDir(), "does-not-exist"))

	if v.OutputExists {
		t.Error("Expected OutputExists = false")
	}
	if v.TileCount != 0 || len(v.ZoomLevels) != 0 {
		t.Errorf("Expected zeroed result, got %+v", v)
	}
}

func TestVerify_CountsTilesPerZoom(t *testing.T) {
	outputDir := t.TempDir()

	writeTile(t, outputDir, 0, 0, 0)
	writeTile(t, outputDir, 3, 0, 0)
	writeTile(t, outputDir, 3, 0, 1)
	writeTile(t, outputDir, 3, 1, 0)

	// Non-zoom entries are ignored.
	if err := os.MkdirAll(filepath.Join(outputDir, "leaflet"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(outputDir, "openlayers.html"))

	v := Verify(outputDir)

	if !v.OutputExists {
		t.Fatal("Expected OutputExists = true")
	}
	if v.MetadataExists {
		t.Error("Expected MetadataExists = false without metadata.json")
	}
	if len(v.ZoomLevels) != 2 || v.ZoomLevels[0] != 0 || v.ZoomLevels[1] != 3 {
		t.Errorf("Unexpected zoom levels: %v", v.ZoomLevels)
	}
	if v.TilesPerZoom[0] != 1 || v.TilesPerZoom[3] != 3 {
		t.Errorf("Unexpected per-zoom counts: %v", v.TilesPerZoom)
	}
	if v.TileCount != 4 {
		t.Errorf("Expected 4 tiles total, got %d", v.TileCount)
	}
}

func TestVerify_DetectsMetadata(t *testing.T) {
	outputDir := t.TempDir()
	touch(t, filepath.Join(outputDir, MetadataFilename))

	v := Verify(outputDir)

	if !v.MetadataExists {
		t.Error("Expected MetadataExists = true")
	}
}

func TestVerify_WarnsOnCorruptTile(t *testing.T) {
	outputDir := t.TempDir()
	dir := filepath.Join(outputDir, "2", "0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Counted as a tile by name, but not a decodable image.
	touch(t, filepath.Join(dir, "0.png"))

	v := Verify(outputDir)

	if v.TileCount != 1 {
		t.Errorf("Expected corrupt tile to still be counted, got %d", v.TileCount)
	}
	if len(v.Warnings) == 0 {
		t.Error("Expected a decode warning for the corrupt tile")
	}
}

func TestVerify_IgnoresNegativeAndNonNumericDirs(t *testing.T) {
	outputDir := t.TempDir()
	for _, name := range []string{"-1", "abc", "1.5"} {
		if err := os.MkdirAll(filepath.Join(outputDir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	v := Verify(outputDir)

	if len(v.ZoomLevels) != 0 {
		t.Errorf("Expected no zoom levels, got %v", v.ZoomLevels)
	}
}
