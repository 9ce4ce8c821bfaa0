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


package chunkstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// IndexEntry is the metadata kept per chunk id for filtering without
// hydrating chunk text.
type IndexEntry struct {
	FileID        string `json:"file_id"`
	Filename      string `json:"filename"`
	ChunkIndex    int    `json:"chunk_index"`
	PageStart     int    `json:"page_start"`
	PageEnd       int    `json:"page_end"`
	ChapterNumber *int   `json:"chapter_number,omitempty"`
}

// Index maps chunk id to its filterable metadata.
type Index map[string]IndexEntry

// BuildIndex derives the metadata index from the ledger's logical view.
func (s *Store) BuildIndex() (Index, error) {
	chunks, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	idx := make(Index, len(chunks))
	for _, c := range chunks {
		idx[c.ChunkID] = IndexEntry{
			FileID:        c.FileID,
			Filename:      c.Filename,
			ChunkIndex:    c.ChunkIndex,
			PageStart:     c.PageStart,
			PageEnd:       c.PageEnd,
			ChapterNumber: c.ChapterNumber,
		}
	}
	return idx, nil
}

// SaveIndex persists an index as JSON, atomically.
func SaveIndex(path string, idx Index) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode chunk index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".chunk-index-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write chunk index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace chunk index: %w", err)
	}
	return nil
}

// LoadIndex reads a persisted index. A missing file returns an empty index.
func LoadIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Index{}, nil
		}
		return nil, fmt.Errorf("failed to read chunk index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse chunk index %s: %w", path, err)
	}
	return idx, nil
}
