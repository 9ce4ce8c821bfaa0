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


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - FileID must not be empty
//   - PageStart and PageEnd must be 1-indexed with PageStart <= PageEnd
//
// NOT validated (populated later or intentionally loose):
//   - TokenCount (0 is valid before counting)
//   - ChapterNumber/ChapterTitle (absent outside mapped chapters)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyText)
	}

	if chunk.FileID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyFileID)
	}

	if chunk.PageStart < 1 || chunk.PageEnd < chunk.PageStart {
		return fmt.Errorf("%w: %w: %d-%d", ErrInvalidChunk, ErrInvalidPageRange, chunk.PageStart, chunk.PageEnd)
	}

	return nil
}

// ValidateSourceFile validates a SourceFile according to domain rules.
func ValidateSourceFile(file *SourceFile) error {
	if file == nil {
		return fmt.Errorf("%w: file is nil", ErrInvalidSourceFile)
	}

	if file.FileID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSourceFile, ErrEmptyFileID)
	}

	if err := ValidateStatus(file.Status); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSourceFile, err)
	}

	return nil
}

// ValidateChapterMap validates a ChapterMap according to domain rules.
// An empty chapter list is valid: it records that no TOC was found.
func ValidateChapterMap(m *ChapterMap) error {
	if m == nil {
		return fmt.Errorf("%w: map is nil", ErrInvalidChapterMap)
	}

	if m.FileID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChapterMap, ErrEmptyFileID)
	}

	for _, ch := range m.Chapters {
		if ch.PageStart < 1 || ch.PageEnd < ch.PageStart {
			return fmt.Errorf("%w: chapter %d: %w: %d-%d",
				ErrInvalidChapterMap, ch.Chapter, ErrInvalidPageRange, ch.PageStart, ch.PageEnd)
		}
	}

	return nil
}

// ValidateCoverage validates an ExamCoverage according to domain rules.
func ValidateCoverage(c *ExamCoverage) error {
	if c == nil {
		return fmt.Errorf("%w: coverage is nil", ErrInvalidCoverage)
	}

	if c.ExamID == "" {
		return fmt.Errorf("%w: exam id cannot be empty", ErrInvalidCoverage)
	}

	if c.SourceFileID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCoverage, ErrEmptyFileID)
	}

	return nil
}

// ValidateStatus validates that a Status has a known value.
func ValidateStatus(status Status) error {
	switch status {
	case StatusNew, StatusStale, StatusProcessed, StatusError:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}
