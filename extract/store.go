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


package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/siongang/study-agent/core"
)

// ErrNotExtracted indicates no cached extraction exists for a file.
var ErrNotExtracted = errors.New("no extracted text for file")

// Store caches extraction results on disk, one JSON document per file id.
type Store struct {
	dir string
}

// NewStore creates an extraction store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) pathFor(fileID string) string {
	return filepath.Join(s.dir, fileID+".json")
}

// Path returns where the artifact for a file id lives, whether or not it
// exists yet. The registry records this as a derived artifact.
func (s *Store) Path(fileID string) string {
	return s.pathFor(fileID)
}

// Exists reports whether a cached extraction exists for the file.
func (s *Store) Exists(fileID string) bool {
	_, err := os.Stat(s.pathFor(fileID))
	return err == nil
}

// Save writes the extraction result atomically.
func (s *Store) Save(text *core.ExtractedText) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create extraction directory: %w", err)
	}

	data, err := json.Marshal(text)
	if err != nil {
		return fmt.Errorf("failed to encode extracted text: %w", err)
	}

	target := s.pathFor(text.FileID)
	tmp, err := os.CreateTemp(s.dir, ".extract-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write extracted text: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace extracted text: %w", err)
	}
	return nil
}

// Load reads the cached extraction for a file. A missing artifact returns
// ErrNotExtracted.
func (s *Store) Load(fileID string) (*core.ExtractedText, error) {
	data, err := os.ReadFile(s.pathFor(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExtracted, fileID)
		}
		return nil, fmt.Errorf("failed to read extracted text: %w", err)
	}

	var text core.ExtractedText
	if err := json.Unmarshal(data, &text); err != nil {
		return nil, fmt.Errorf("failed to parse extracted text %s: %w", fileID, err)
	}
	return &text, nil
}
