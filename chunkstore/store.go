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
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/siongang/study-agent/core"
)

// maxLineBytes bounds a single JSONL record. Chunk text is token-bounded,
// so well-formed records stay far below this.
const maxLineBytes = 4 * 1024 * 1024

// Store is the append-only chunk ledger: one JSON record per line.
//
// Records are never edited in place. Re-chunking a file appends a complete
// new generation with a higher ingest run; readers keep only the highest
// run per file, so stale generations are invisible without any rewrite.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a chunk store backed by the JSONL file at path.
func NewStore(path string) *Store {
	return &Store{
		path:   path,
		logger: slog.Default().With("component", "chunkstore"),
	}
}

// Path returns the ledger file location.
func (s *Store) Path() string { return s.path }

// Append writes one new generation of chunks for a file. Every chunk must
// belong to the same file; the assigned ingest run (prior maximum for that
// file plus one) is returned and stamped on the chunks.
func (s *Store) Append(chunks []*core.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: no chunks to append", core.ErrInvalidChunk)
	}
	fileID := chunks[0].FileID
	for _, c := range chunks {
		if err := core.ValidateChunk(c); err != nil {
			return 0, err
		}
		if c.FileID != fileID {
			return 0, fmt.Errorf("%w: mixed file ids in one append", core.ErrInvalidChunk)
		}
	}

	_, runs, err := s.readAll()
	if err != nil {
		return 0, err
	}
	run := runs[fileID] + 1

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create chunk store directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, c := range chunks {
		c.IngestRun = run
		line, err := json.Marshal(c)
		if err != nil {
			return 0, fmt.Errorf("failed to encode chunk %s: %w", c.ChunkID, err)
		}
		if _, err := w.Write(line); err != nil {
			return 0, fmt.Errorf("failed to append chunk: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return 0, fmt.Errorf("failed to append chunk: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush chunk store: %w", err)
	}

	s.logger.Info("appended chunk generation",
		"file_id", fileID,
		"ingest_run", run,
		"chunks", len(chunks))
	return run, nil
}

// LoadAll returns the logical view of the ledger: for each file, only the
// chunks of its highest ingest run, ordered by file id and chunk index.
func (s *Store) LoadAll() ([]*core.Chunk, error) {
	all, runs, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var out []*core.Chunk
	for _, c := range all {
		if c.IngestRun == runs[c.FileID] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FileID != out[j].FileID {
			return out[i].FileID < out[j].FileID
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})
	return out, nil
}

// ByFile returns the current generation of chunks for one file, ordered by
// chunk index. A file with no chunks returns an empty slice.
func (s *Store) ByFile(fileID string) ([]*core.Chunk, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	var out []*core.Chunk
	for _, c := range all {
		if c.FileID == fileID {
			out = append(out, c)
		}
	}
	return out, nil
}

// Compact rewrites the ledger keeping only the logical view, atomically.
// Readers concurrent with a compaction see either the old or the new file,
// never a partial one.
func (s *Store) Compact() error {
	current, err := s.LoadAll()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".chunks-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, c := range current {
		line, err := json.Marshal(c)
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("failed to encode chunk %s: %w", c.ChunkID, err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to flush temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	s.logger.Info("compacted chunk ledger", "chunks", len(current))
	return nil
}

// readAll parses every physical record and returns them with the highest
// ingest run per file. Corrupt lines are skipped with a warning; one bad
// write never poisons the whole ledger.
func (s *Store) readAll() ([]*core.Chunk, map[string]int, error) {
	runs := make(map[string]int)

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, runs, nil
		}
		return nil, nil, fmt.Errorf("failed to open chunk store: %w", err)
	}
	defer f.Close()

	var all []*core.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var c core.Chunk
		if err := json.Unmarshal(line, &c); err != nil {
			s.logger.Warn("skipping corrupt chunk record",
				"line", lineNo,
				"err", err)
			continue
		}
		if c.IngestRun > runs[c.FileID] {
			runs[c.FileID] = c.IngestRun
		}
		all = append(all, &c)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read chunk store: %w", err)
	}
	return all, runs, nil
}
