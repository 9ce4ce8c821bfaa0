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


package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/chunkstore"
	"github.com/siongang/study-agent/core"
	"github.com/siongang/study-agent/vectorindex"
)

const (
	// overfetchFactor widens the index query so that post-filtering still
	// leaves enough candidates to fill topK.
	overfetchFactor = 4
	minOverfetch    = 20
)

// Filters narrow retrieval results by metadata before ranking is applied.
// Zero values mean "no constraint".
type Filters struct {
	// MinScore drops hits below this cosine similarity.
	MinScore float32
	// Chapters keeps only chunks attributed to one of these chapters.
	Chapters []int
	// FileID keeps only chunks from one source file.
	FileID string
}

// Searcher answers semantic queries over the indexed chunk corpus.
type Searcher struct {
	index    *vectorindex.Index
	chunkIdx chunkstore.Index
	store    *chunkstore.Store
	embedder ai.Embedder
	session  *Session
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithSession attaches a retry guard: repeats of the same query beyond the
// session's ceiling are refused with ErrTooManyAttempts.
func WithSession(session *Session) Option {
	return func(s *Searcher) { s.session = session }
}

// NewSearcher wires a searcher over an index, the chunk metadata index,
// the chunk store for hydration, and a query embedder.
func NewSearcher(index *vectorindex.Index, chunkIdx chunkstore.Index, store *chunkstore.Store, embedder ai.Embedder, opts ...Option) *Searcher {
	s := &Searcher{
		index:    index,
		chunkIdx: chunkIdx,
		store:    store,
		embedder: embedder,
		logger:   slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search embeds the query, ranks the corpus, and walks the overfetched
// candidates, filtering and hydrating each, until topK results are
// collected. Results are ordered by score descending. No matches is an
// empty result, never an error; hits whose text has drifted out of the
// store are skipped with a warning and do not consume result slots. With a
// session guard attached, repeating a query past the session's ceiling
// fails with ErrTooManyAttempts.
func (s *Searcher) Search(ctx context.Context, query string, topK int, filters Filters) ([]*core.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.session != nil && !s.session.Allow(query) {
		return nil, fmt.Errorf("%w: %q", ErrTooManyAttempts, query)
	}
	if topK < 1 {
		topK = 1
	}

	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	overfetch := topK * overfetchFactor
	if overfetch < minOverfetch {
		overfetch = minOverfetch
	}
	hits := s.index.Query(queryVec, overfetch)
	if len(hits) == 0 {
		return nil, nil
	}

	byID, err := s.hydrate()
	if err != nil {
		return nil, err
	}

	// Unhydratable hits must not consume result slots: keep scanning the
	// overfetched candidates until topK hydrated results are collected.
	results := make([]*core.ScoredChunk, 0, topK)
	for _, hit := range hits {
		if hit.Score < filters.MinScore {
			continue
		}
		entry, ok := s.chunkIdx[hit.ChunkID]
		if !ok {
			s.logger.Warn("hit missing from chunk index, skipping", "chunk_id", hit.ChunkID)
			continue
		}
		if filters.FileID != "" && entry.FileID != filters.FileID {
			continue
		}
		if len(filters.Chapters) > 0 && !chapterAllowed(entry.ChapterNumber, filters.Chapters) {
			continue
		}
		chunk, ok := byID[hit.ChunkID]
		if !ok {
			s.logger.Warn("hit not hydratable from chunk store, skipping", "chunk_id", hit.ChunkID)
			continue
		}
		results = append(results, &core.ScoredChunk{Chunk: chunk, Score: hit.Score})
		if len(results) == topK {
			break
		}
	}

	s.logger.Debug("search complete",
		"query_len", len(query),
		"candidates", len(hits),
		"results", len(results))
	return results, nil
}

func chapterAllowed(chapter *int, allowed []int) bool {
	if chapter == nil {
		return false
	}
	for _, ch := range allowed {
		if *chapter == ch {
			return true
		}
	}
	return false
}

// hydrate loads the current chunk generation keyed by chunk id.
func (s *Searcher) hydrate() (map[string]*core.Chunk, error) {
	chunks, err := s.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate chunks: %w", err)
	}
	byID := make(map[string]*core.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}
	return byID, nil
}
