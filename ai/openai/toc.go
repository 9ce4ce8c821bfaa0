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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/core"
)

// TOCExtractor implements ai.TOCExtractor using OpenAI-compatible chat APIs.
type TOCExtractor struct {
	client llms.Model
	logger *slog.Logger
}

// tocResult matches the JSON structure the model is asked to emit.
type tocResult struct {
	Chapters []core.ChapterInfo `json:"chapters"`
	Notes    string             `json:"notes"`
}

// newTOCExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTOCExtractor(config *ai.Config) (*TOCExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &TOCExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-toc"),
	}, nil
}

// NewTOCExtractor creates a new TOC extractor using the provided configuration.
//
// Returns ai.TOCExtractor interface to enforce abstraction.
func NewTOCExtractor(config *ai.Config) (ai.TOCExtractor, error) {
	return newTOCExtractor(config)
}

// ExtractChapterMap derives a chapter page-range table from candidate TOC
// pages. An empty chapter list is a valid result: it records that no TOC
// was found.
func (e *TOCExtractor) ExtractChapterMap(ctx context.Context, file *core.SourceFile, tocPages []int, tocText string, numPages int) (*core.ChapterMap, error) {
	userPrompt := fmt.Sprintf("The document has %d pages.\n\nCandidate table-of-contents text:\n%s", numPages, tocText)

	var result tocResult
	if err := generateJSON(ctx, e.client, e.logger, tocPrompt, userPrompt, &result); err != nil {
		return nil, err
	}

	chapters := sanitizeChapters(result.Chapters, numPages, e.logger)

	m := &core.ChapterMap{
		FileID:         file.FileID,
		Filename:       file.Filename,
		DocType:        file.DocType,
		ExtractedAt:    time.Now().UTC(),
		TOCSourcePages: tocPages,
		Chapters:       chapters,
		Notes:          result.Notes,
	}
	if err := core.ValidateChapterMap(m); err != nil {
		return nil, err
	}

	e.logger.Info("extracted chapter map",
		"file_id", file.FileID,
		"chapters", len(chapters))
	return m, nil
}

// sanitizeChapters repairs the usual model mistakes: zero or missing end
// pages are filled from the next chapter's start (or the document end for
// the last chapter), ranges are clamped to the document, and entries that
// are still inverted get dropped.
func sanitizeChapters(chapters []core.ChapterInfo, numPages int, logger *slog.Logger) []core.ChapterInfo {
	sort.SliceStable(chapters, func(i, j int) bool {
		return chapters[i].PageStart < chapters[j].PageStart
	})

	out := make([]core.ChapterInfo, 0, len(chapters))
	for i, ch := range chapters {
		if ch.PageStart < 1 {
			ch.PageStart = 1
		}
		if ch.PageEnd < 1 {
			if i+1 < len(chapters) && chapters[i+1].PageStart > ch.PageStart {
				ch.PageEnd = chapters[i+1].PageStart - 1
			} else {
				ch.PageEnd = numPages
			}
		}
		if numPages > 0 && ch.PageEnd > numPages {
			ch.PageEnd = numPages
		}
		if ch.PageEnd < ch.PageStart {
			logger.Warn("dropping chapter with inverted page range",
				"chapter", ch.Chapter,
				"page_start", ch.PageStart,
				"page_end", ch.PageEnd)
			continue
		}
		out = append(out, ch)
	}
	return out
}
