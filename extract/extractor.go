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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/siongang/study-agent/core"
)

// Extractor turns a source document into per-page text.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// Extract reads the document at absPath and returns its pages.
	// Page n of the document is Pages[n-1].
	Extract(ctx context.Context, file *core.SourceFile, absPath string) (*core.ExtractedText, error)
}

// PlainText extracts pages from plain text documents. Pages are separated
// by form feed characters; a document with no form feeds is a single page.
type PlainText struct {
	logger *slog.Logger
}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{
		logger: slog.Default().With("component", "extract-plaintext"),
	}
}

// Extract reads the file and splits it into pages on form feeds.
func (p *PlainText) Extract(ctx context.Context, file *core.SourceFile, absPath string) (*core.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", absPath, err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	pages := strings.Split(content, "\f")
	for i := range pages {
		pages[i] = strings.TrimRight(pages[i], "\n")
	}

	if len(pages) == 1 && strings.TrimSpace(pages[0]) == "" {
		return nil, fmt.Errorf("%s: %w", file.Filename, core.ErrEmptyText)
	}

	result := &core.ExtractedText{
		FileID:      file.FileID,
		Path:        file.Path,
		NumPages:    len(pages),
		Pages:       pages,
		FullText:    strings.Join(pages, "\n\n"),
		FirstPage:   pages[0],
		ExtractedAt: time.Now().UTC(),
	}

	p.logger.Debug("extracted text",
		"file_id", file.FileID,
		"pages", result.NumPages,
		"chars", len(result.FullText))
	return result, nil
}
