// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/chunker"
	"github.com/siongang/study-agent/chunkstore"
	"github.com/siongang/study-agent/core"
	"github.com/siongang/study-agent/embedcache"
	"github.com/siongang/study-agent/extract"
	"github.com/siongang/study-agent/registry"
)

// Config wires the pipeline's collaborators and artifact locations.
type Config struct {
	UploadsDir string
	// Extensions are the file extensions the sync scan includes. Empty
	// means registry.DefaultExtensions.
	Extensions []string

	Registry  *registry.Store
	Extractor extract.Extractor
	Texts     *extract.Store
	Provider  ai.Provider
	Chunker   *chunker.Chunker
	Chunks    *chunkstore.Store
	Cache     *embedcache.Cache

	ChapterMapsDir  string
	CoverageDir     string
	VectorIndexPath string
	ChunkIndexPath  string
}

func (c *Config) validate() error {
	switch {
	case c.UploadsDir == "":
		return errors.New("pipeline config: UploadsDir is required")
	case c.Registry == nil:
		return errors.New("pipeline config: Registry is required")
	case c.Extractor == nil:
		return errors.New("pipeline config: Extractor is required")
	case c.Texts == nil:
		return errors.New("pipeline config: Texts store is required")
	case c.Provider == nil:
		return errors.New("pipeline config: Provider is required")
	case c.Chunker == nil:
		return errors.New("pipeline config: Chunker is required")
	case c.Chunks == nil:
		return errors.New("pipeline config: Chunks store is required")
	case c.Cache == nil:
		return errors.New("pipeline config: Cache is required")
	case c.ChapterMapsDir == "":
		return errors.New("pipeline config: ChapterMapsDir is required")
	case c.CoverageDir == "":
		return errors.New("pipeline config: CoverageDir is required")
	case c.VectorIndexPath == "":
		return errors.New("pipeline config: VectorIndexPath is required")
	case c.ChunkIndexPath == "":
		return errors.New("pipeline config: ChunkIndexPath is required")
	}
	return nil
}

// Pipeline drives ingestion: sync, extract, classify, map chapters,
// extract coverage, chunk, embed, index. Every stage is cache-aware; work
// happens only for files whose content changed since the stage last ran.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a pipeline after validating the wiring.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		logger: slog.Default().With("component", "pipeline"),
	}, nil
}

// StageResult reports one file's outcome for one stage.
type StageResult struct {
	FileID   string     `json:"file_id"`
	Filename string     `json:"filename"`
	Stage    core.Stage `json:"stage"`
	// Cached means the stage was skipped because its artifact is fresh.
	Cached bool `json:"cached"`
	// Chunks is set by the chunk stage: how many chunks the file has.
	Chunks int `json:"chunks,omitempty"`
	// Err holds the per-file failure; other files keep processing.
	Err error `json:"-"`
}

// Sync scans the uploads directory and reconciles the registry.
func (p *Pipeline) Sync() (*registry.Registry, registry.Stats, error) {
	return p.cfg.Registry.Sync(p.cfg.UploadsDir, p.cfg.Extensions)
}

// RequiredChapters returns the union of chapters across every cached exam
// coverage, de-duplicated and sorted. An empty result means no exam scoping
// is known yet.
func (p *Pipeline) RequiredChapters(reg *registry.Registry) []int {
	seen := make(map[int]bool)
	var chapters []int
	for _, f := range reg.Files {
		if f.DocType != core.DocTypeExamOverview {
			continue
		}
		coverage, err := p.loadCoverage(f.FileID)
		if err != nil {
			continue
		}
		for _, ch := range coverage.Chapters {
			if !seen[ch] {
				seen[ch] = true
				chapters = append(chapters, ch)
			}
		}
	}
	sort.Ints(chapters)
	return chapters
}

// ExamChapters returns the coverage chapters for one exam, looked up by its
// normalized id. ErrNoArtifact when no cached coverage matches.
func (p *Pipeline) ExamChapters(reg *registry.Registry, examID string) ([]int, error) {
	want := core.NormalizeExamID(examID)
	for _, f := range reg.Files {
		if f.DocType != core.DocTypeExamOverview {
			continue
		}
		coverage, err := p.loadCoverage(f.FileID)
		if err != nil {
			continue
		}
		if coverage.ExamID == want {
			return coverage.Chapters, nil
		}
	}
	return nil, fmt.Errorf("%w: no coverage for exam %q", ErrNoArtifact, want)
}

// absPath resolves a registry-relative path under the uploads root.
func (p *Pipeline) absPath(rel string) string {
	return filepath.Join(p.cfg.UploadsDir, filepath.FromSlash(rel))
}
