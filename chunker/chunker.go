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


package chunker

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/siongang/study-agent/core"
)

// Chunker turns an extracted document into chapter-attributed chunks.
type Chunker struct {
	cfg      Config
	splitter *Splitter
	codec    TokenCodec
	logger   *slog.Logger
}

// New creates a chunker with the given budgets and token codec.
func New(cfg Config, codec TokenCodec) (*Chunker, error) {
	splitter, err := NewSplitter(cfg, codec)
	if err != nil {
		return nil, err
	}
	return &Chunker{
		cfg:      cfg,
		splitter: splitter,
		codec:    codec,
		logger:   slog.Default().With("component", "chunker"),
	}, nil
}

// ChunkFile chunks one document, page by page.
//
// When a chapter map and a set of required chapters are both available,
// only pages inside the required chapters are chunked. With no chapter map
// (or an empty one), or when no required chapter appears in the map, the
// whole document is chunked instead; that degradation is logged, not an
// error.
//
// Chunk ids are deterministic, chunk indexes are sequential over the whole
// file, and no chunk exceeds the configured maximum. Chunks below the
// minimum budget are discarded.
func (c *Chunker) ChunkFile(file *core.SourceFile, text *core.ExtractedText, chapterMap *core.ChapterMap, requiredChapters []int) ([]*core.Chunk, error) {
	if text == nil || text.NumPages == 0 {
		return nil, fmt.Errorf("%s: %w", file.FileID, ErrNoPages)
	}

	pages := c.selectPages(text, chapterMap, requiredChapters)
	if len(pages) == 0 {
		c.logger.Warn("no pages selected for chunking",
			"file_id", file.FileID,
			"required_chapters", requiredChapters)
		return nil, nil
	}

	var chunks []*core.Chunk
	skipped := 0
	chunkIndex := 0
	for _, page := range pages {
		pageText := text.Pages[page-1]
		if strings.TrimSpace(pageText) == "" {
			continue
		}

		var chapter *core.ChapterInfo
		if chapterMap != nil {
			chapter = chapterMap.ChapterForPage(page)
		}

		for _, piece := range c.splitter.Split(pageText) {
			tokens := c.codec.Count(piece)
			if tokens < c.cfg.MinTokens {
				skipped++
				continue
			}

			chunk := &core.Chunk{
				ChunkID:    core.ChunkIDFor(file.FileID, page, page, chunkIndex),
				FileID:     file.FileID,
				Filename:   file.Filename,
				Text:       piece,
				PageStart:  page,
				PageEnd:    page,
				TokenCount: tokens,
				ChunkIndex: chunkIndex,
			}
			if chapter != nil {
				n := chapter.Chapter
				chunk.ChapterNumber = &n
				chunk.ChapterTitle = chapter.Title
			}
			if err := core.ValidateChunk(chunk); err != nil {
				return nil, err
			}
			chunks = append(chunks, chunk)
			chunkIndex++
		}
	}

	c.logger.Info("chunked document",
		"file_id", file.FileID,
		"pages", len(pages),
		"chunks", len(chunks),
		"skipped_small", skipped)
	return chunks, nil
}

// selectPages returns the 1-indexed pages to chunk, ordered ascending.
// Scoping applies only when both a chapter map and required chapters exist;
// otherwise every page is in scope.
func (c *Chunker) selectPages(text *core.ExtractedText, chapterMap *core.ChapterMap, requiredChapters []int) []int {
	if chapterMap == nil || len(chapterMap.Chapters) == 0 || len(requiredChapters) == 0 {
		if len(requiredChapters) > 0 {
			c.logger.Warn("no chapter map available, chunking whole document",
				"required_chapters", requiredChapters)
		}
		return allPages(text)
	}

	required := make(map[int]bool, len(requiredChapters))
	for _, ch := range requiredChapters {
		required[ch] = true
	}

	seen := make(map[int]bool)
	var pages []int
	for _, ch := range chapterMap.Chapters {
		if !required[ch.Chapter] {
			continue
		}
		for p := ch.PageStart; p <= ch.PageEnd && p <= text.NumPages; p++ {
			if p >= 1 && !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	if len(pages) == 0 {
		c.logger.Warn("required chapters not in chapter map, chunking whole document",
			"required_chapters", requiredChapters)
		return allPages(text)
	}
	sort.Ints(pages)
	return pages
}

func allPages(text *core.ExtractedText) []int {
	pages := make([]int, text.NumPages)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}
