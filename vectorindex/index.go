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


package vectorindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
)

var (
	// ErrShapeMismatch indicates embeddings and chunk ids that don't line
	// up, or rows of differing dimension.
	ErrShapeMismatch = errors.New("vector index shape mismatch")

	// ErrNotFound indicates no index artifact exists at the given path.
	ErrNotFound = errors.New("vector index not found")
)

// Index is a flat vector index over the current chunk generation. Vectors
// are unit-normalized at build time, so cosine similarity is a plain dot
// product. The index is rebuilt wholesale; there are no in-place updates.
type Index struct {
	model    string
	dim      int
	chunkIDs []string
	vectors  [][]float32
	logger   *slog.Logger
}

// indexFile is the persisted form. The row-to-chunk-id mapping is part of
// the same artifact as the vectors, so the two can never drift apart.
type indexFile struct {
	Model    string   `json:"model"`
	Dim      int      `json:"dim"`
	ChunkIDs []string `json:"chunk_ids"`
	// Data holds the row-major float32 little-endian vector matrix.
	Data []byte `json:"data"`
}

// Hit is one query result.
type Hit struct {
	ChunkID string
	Score   float32
}

// Build creates an index from embeddings and their chunk ids. Row i of the
// index belongs to chunkIDs[i]. Vectors are normalized copies; the caller's
// slices are not modified.
func Build(model string, chunkIDs []string, embeddings [][]float32) (*Index, error) {
	if len(chunkIDs) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d ids for %d embeddings", ErrShapeMismatch, len(chunkIDs), len(embeddings))
	}

	dim := 0
	vectors := make([][]float32, len(embeddings))
	for i, emb := range embeddings {
		if i == 0 {
			dim = len(emb)
		}
		if len(emb) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: row %d has dim %d, want %d", ErrShapeMismatch, i, len(emb), dim)
		}
		vectors[i] = NormalizeVector(emb)
	}

	return &Index{
		model:    model,
		dim:      dim,
		chunkIDs: append([]string(nil), chunkIDs...),
		vectors:  vectors,
		logger:   slog.Default().With("component", "vectorindex"),
	}, nil
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// Model returns the embedding model the index was built with.
func (ix *Index) Model() string { return ix.model }

// Query returns the k nearest chunks to the given vector by cosine
// similarity, best first. The query vector is normalized internally.
func (ix *Index) Query(vector []float32, k int) []Hit {
	if k <= 0 || len(ix.vectors) == 0 {
		return nil
	}

	q := NormalizeVector(vector)
	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{ChunkID: ix.chunkIDs[i], Score: dotProduct(q, v)}
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Save persists the index atomically: vectors and the row mapping in one
// artifact, written to a temp file and renamed into place.
func (ix *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	data := make([]byte, 0, 4*ix.dim*len(ix.vectors))
	for _, v := range ix.vectors {
		for _, val := range v {
			data = binary.LittleEndian.AppendUint32(data, math.Float32bits(val))
		}
	}

	payload, err := json.Marshal(indexFile{
		Model:    ix.model,
		Dim:      ix.dim,
		ChunkIDs: ix.chunkIDs,
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode vector index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".vectors-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write vector index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp index: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace vector index: %w", err)
	}

	ix.logger.Info("saved vector index", "vectors", len(ix.vectors), "dim", ix.dim)
	return nil
}

// Load reads a persisted index. A missing artifact returns ErrNotFound.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read vector index: %w", err)
	}

	var file indexFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vector index %s: %w", path, err)
	}

	if file.Dim <= 0 && len(file.ChunkIDs) > 0 {
		return nil, fmt.Errorf("%w: dim %d", ErrShapeMismatch, file.Dim)
	}
	if file.Dim > 0 && len(file.Data) != 4*file.Dim*len(file.ChunkIDs) {
		return nil, fmt.Errorf("%w: %d data bytes for %d rows of dim %d",
			ErrShapeMismatch, len(file.Data), len(file.ChunkIDs), file.Dim)
	}

	vectors := make([][]float32, len(file.ChunkIDs))
	for i := range vectors {
		row := make([]float32, file.Dim)
		off := 4 * file.Dim * i
		for j := 0; j < file.Dim; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(file.Data[off+4*j:]))
		}
		vectors[i] = row
	}

	return &Index{
		model:    file.Model,
		dim:      file.Dim,
		chunkIDs: file.ChunkIDs,
		vectors:  vectors,
		logger:   slog.Default().With("component", "vectorindex"),
	}, nil
}
