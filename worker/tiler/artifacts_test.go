package tiler

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestArtifactSet_PurgeTransientKeepsRetained(t *testing.T) {
	tmpDir := t.TempDir()
	transient := filepath.Join(tmpDir, "intermediate.tif")
	retained := filepath.Join(tmpDir, "colorized.tif")
	touch(t, transient)
	touch(t, retained)

	set := NewArtifactSet(zaptest.NewLogger(t))
	set.Register(transient, Transient)
	set.Register(retained, Retain)

	set.PurgeTransient()

	if exists(transient) {
		t.Error("Transient artifact still on disk")
	}
	if !exists(retained) {
		t.Error("Retained artifact was removed")
	}
	if set.Len() != 1 {
		t.Errorf("Expected 1 remaining entry, got %d", set.Len())
	}
}

func TestArtifactSet_PurgeAllRemovesEverything(t *testing.T) {
	tmpDir := t.TempDir()
	paths := []string{
		filepath.Join(tmpDir, "a.tif"),
		filepath.Join(tmpDir, "b.tif"),
		filepath.Join(tmpDir, "c.tif"),
	}
	for _, p := range paths {
		touch(t, p)
	}

	set := NewArtifactSet(zaptest.NewLogger(t))
	set.Register(paths[0], Transient)
	set.Register(paths[1], Retain)
	set.Register(paths[2], Retain)

	set.PurgeAll()

	for _, p := range paths {
		if exists(p) {
			t.Errorf("Artifact %s still on disk", p)
		}
	}
	if set.Len() != 0 {
		t.Errorf("Expected empty set, got %d entries", set.Len())
	}
}

func TestArtifactSet_PurgeToleratesMissingFiles(t *testing.T) {
	set := NewArtifactSet(zaptest.NewLogger(t))
	set.Register(filepath.Join(t.TempDir(), "never-created.tif"), Transient)

	// Must not panic or leave the entry behind.
	set.PurgeAll()

	if set.Len() != 0 {
		t.Errorf("Expected empty set, got %d entries", set.Len())
	}
}

func TestArtifactSet_RegisterUpgradesTag(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "artifact.tif")
	touch(t, path)

	set := NewArtifactSet(zaptest.NewLogger(t))
	set.Register(path, Transient)
	set.Register(path, Retain)

	if set.Len() != 1 {
		t.Fatalf("Expected deduplicated entry, got %d", set.Len())
	}

	set.PurgeTransient()
	if !exists(path) {
		t.Error("Re-registered artifact lost its retain tag")
	}
}
