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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siongang/study-agent/core"
)

// ErrNoArtifact indicates a missing per-file JSON artifact.
var ErrNoArtifact = errors.New("artifact not found")

// saveJSON writes a per-file artifact atomically.
func saveJSON(dir, fileID string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	target := filepath.Join(dir, fileID+".json")
	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace artifact: %w", err)
	}
	return nil
}

func loadJSON(dir, fileID string, v any) error {
	data, err := os.ReadFile(filepath.Join(dir, fileID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNoArtifact, fileID)
		}
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", fileID, err)
	}
	return nil
}

func artifactExists(dir, fileID string) bool {
	_, err := os.Stat(filepath.Join(dir, fileID+".json"))
	return err == nil
}

// loadChapterMap reads the cached chapter map for a file.
func (p *Pipeline) loadChapterMap(fileID string) (*core.ChapterMap, error) {
	var m core.ChapterMap
	if err := loadJSON(p.cfg.ChapterMapsDir, fileID, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// loadCoverage reads the cached exam coverage derived from a file.
func (p *Pipeline) loadCoverage(fileID string) (*core.ExamCoverage, error) {
	var c core.ExamCoverage
	if err := loadJSON(p.cfg.CoverageDir, fileID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
