package tiler

import (
	"os"

	"go.uber.org/zap"
)

// RetentionTag decides what happens to an intermediate file once the run
// reaches a terminal state.
type RetentionTag string

const (
	// Transient artifacts are removed after a successful run.
	Transient RetentionTag = "transient"
	// Retain artifacts survive success-path cleanup (kept for re-tiling
	// without redoing normalization); they are still purged on failure.
	Retain RetentionTag = "retain"
)

type artifact struct {
	path string
	tag  RetentionTag
}

// ArtifactSet tracks intermediate files created during a pipeline run, in
// insertion order. Not safe for concurrent use; each run owns its own set.
type ArtifactSet struct {
	artifacts []artifact
	logger    *zap.Logger
}

func NewArtifactSet(logger *zap.Logger) *ArtifactSet {
	return &ArtifactSet{logger: logger}
}

func (s *ArtifactSet) Register(path string, tag RetentionTag) {
	for i, a := range s.artifacts {
		if a.path == path {
			s.artifacts[i].tag = tag
			return
		}
	}
	s.artifacts = append(s.artifacts, artifact{path: path, tag: tag})
}

// Paths returns registered paths matching the predicate, in insertion order.
func (s *ArtifactSet) Paths(keep func(RetentionTag) bool) []string {
	var out []string
	for _, a := range s.artifacts {
		if keep(a.tag) {
			out = append(out, a.path)
		}
	}
	return out
}

// Purge removes matching artifacts from disk and drops them from the set.
// Already-missing files are fine; other removal failures are logged and
// swallowed, because cleanup must never turn a finished job into a failed
// one.
func (s *ArtifactSet) Purge(match func(RetentionTag) bool) {
	remaining := s.artifacts[:0]
	for _, a := range s.artifacts {
		if !match(a.tag) {
			remaining = append(remaining, a)
			continue
		}
		if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove artifact",
				zap.String("path", a.path),
				zap.Error(err),
			)
		}
	}
	s.artifacts = remaining
}

// PurgeTransient removes transient artifacts only (success path).
func (s *ArtifactSet) PurgeTransient() {
	s.Purge(func(tag RetentionTag) bool { return tag == Transient })
}

// PurgeAll removes every artifact regardless of tag (failure path).
func (s *ArtifactSet) PurgeAll() {
	s.Purge(func(RetentionTag) bool { return true })
}

func (s *ArtifactSet) Len() int {
	return len(s.artifacts)
}
