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


package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/siongang/study-agent/core"
)

// Version is the registry document schema version.
const Version = 1

// Registry is the persisted catalog of every known source file.
type Registry struct {
	Version  int                `json:"version"`
	LastScan time.Time          `json:"last_scan"`
	Files    []*core.SourceFile `json:"files"`
}

// Find returns the entry with the given file id, or ErrFileNotFound.
func (r *Registry) Find(fileID string) (*core.SourceFile, error) {
	for _, f := range r.Files {
		if f.FileID == fileID {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrFileNotFound, fileID)
}

// FindByPath returns the entry with the given relative path, or nil.
func (r *Registry) FindByPath(path string) *core.SourceFile {
	for _, f := range r.Files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// Stats summarizes one reconciliation pass.
type Stats struct {
	New       int `json:"new"`
	Stale     int `json:"stale"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
}

// Reconcile merges a fresh scan into the previous registry.
//
// Rules:
//   - A path absent from the previous registry becomes a new entry with a
//     fresh file id and status "new".
//   - A known path whose content hash changed is marked "stale" and its
//     hash, size, and modified time are updated. Stage history is kept; the
//     hash mismatch is what marks every recorded stage stale.
//   - A known path with an unchanged hash keeps its status untouched.
//   - Entries no longer present in the scan are retained as-is.
//
// prev may be nil, in which case every scanned file is new.
func Reconcile(prev *Registry, scanned []ScannedFile) (*Registry, Stats) {
	next := &Registry{Version: Version, LastScan: time.Now().UTC()}

	byPath := make(map[string]*core.SourceFile)
	if prev != nil {
		for _, f := range prev.Files {
			byPath[f.Path] = f
		}
	}

	var stats Stats
	seen := make(map[string]bool, len(scanned))
	for _, s := range scanned {
		seen[s.Path] = true

		existing, known := byPath[s.Path]
		switch {
		case !known:
			next.Files = append(next.Files, &core.SourceFile{
				FileID:       uuid.NewString(),
				Path:         s.Path,
				Filename:     s.Filename,
				SHA256:       s.SHA256,
				SizeBytes:    s.SizeBytes,
				ModifiedTime: s.ModifiedTime,
				DocType:      core.DocTypeUnknown,
				Status:       core.StatusNew,
			})
			stats.New++

		case existing.SHA256 != s.SHA256:
			existing.SHA256 = s.SHA256
			existing.SizeBytes = s.SizeBytes
			existing.ModifiedTime = s.ModifiedTime
			existing.Status = core.StatusStale
			existing.Error = ""
			next.Files = append(next.Files, existing)
			stats.Stale++

		default:
			next.Files = append(next.Files, existing)
			stats.Unchanged++
		}
	}

	if prev != nil {
		for _, f := range prev.Files {
			if !seen[f.Path] {
				next.Files = append(next.Files, f)
			}
		}
	}

	stats.Total = len(next.Files)
	return next, stats
}

// Store persists the registry document as JSON at a fixed path.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a registry store. The parent directory is created on the
// first save.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		path:   path,
		logger: logger.With("component", "registry"),
	}
}

// Path returns the location of the registry document.
func (s *Store) Path() string { return s.path }

// Load reads the registry document. A missing file returns ErrNotFound.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", s.path, err)
	}
	return &reg, nil
}

// LoadOrInit reads the registry document, falling back to an empty registry
// when none exists yet or the document is unreadable. Corruption is logged
// and the registry is rebuilt on the next save.
func (s *Store) LoadOrInit() *Registry {
	reg, err := s.Load()
	if err == nil {
		return reg
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("registry unreadable, starting fresh", "path", s.path, "error", err)
	}
	return &Registry{Version: Version}
}

// Save writes the registry document atomically: the JSON is written to a
// temp file in the same directory and renamed over the target.
func (s *Store) Save(reg *Registry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".registry-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp registry: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp registry: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace registry: %w", err)
	}
	return nil
}

// Sync scans the uploads root, reconciles the result against the stored
// registry, and persists the merged document.
func (s *Store) Sync(uploadsRoot string, extensions []string) (*Registry, Stats, error) {
	scanned, err := Scan(uploadsRoot, extensions)
	if err != nil {
		return nil, Stats{}, err
	}

	prev := s.LoadOrInit()
	next, stats := Reconcile(prev, scanned)

	if err := s.Save(next); err != nil {
		return nil, Stats{}, err
	}

	s.logger.Info("registry synced",
		"new", stats.New,
		"stale", stats.Stale,
		"unchanged", stats.Unchanged,
		"total", stats.Total)
	return next, stats, nil
}
