package core

import (
	"errors"
	"testing"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				ChunkID:   ChunkIDFor("f1", 1, 1, 0),
				FileID:    "f1",
				Text:      "some content",
				PageStart: 1,
				PageEnd:   1,
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "empty text",
			chunk:   &Chunk{FileID: "f1", PageStart: 1, PageEnd: 1},
			wantErr: ErrEmptyText,
		},
		{
			name:    "empty file id",
			chunk:   &Chunk{Text: "x", PageStart: 1, PageEnd: 1},
			wantErr: ErrEmptyFileID,
		},
		{
			name:    "zero page",
			chunk:   &Chunk{FileID: "f1", Text: "x", PageStart: 0, PageEnd: 1},
			wantErr: ErrInvalidPageRange,
		},
		{
			name:    "inverted range",
			chunk:   &Chunk{FileID: "f1", Text: "x", PageStart: 5, PageEnd: 4},
			wantErr: ErrInvalidPageRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateChunk() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateChunk() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateStatus(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusStale, StatusProcessed, StatusError} {
		if err := ValidateStatus(s); err != nil {
			t.Errorf("ValidateStatus(%q) = %v, want nil", s, err)
		}
	}
	if err := ValidateStatus(Status("done")); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("ValidateStatus(done) = %v, want ErrInvalidStatus", err)
	}
}

func TestValidateChapterMap(t *testing.T) {
	m := &ChapterMap{
		FileID:   "f1",
		Chapters: []ChapterInfo{{Chapter: 1, PageStart: 1, PageEnd: 10}},
	}
	if err := ValidateChapterMap(m); err != nil {
		t.Errorf("ValidateChapterMap() = %v, want nil", err)
	}

	// Empty chapters records "no TOC found" and is valid.
	if err := ValidateChapterMap(&ChapterMap{FileID: "f1"}); err != nil {
		t.Errorf("ValidateChapterMap(empty) = %v, want nil", err)
	}

	bad := &ChapterMap{
		FileID:   "f1",
		Chapters: []ChapterInfo{{Chapter: 3, PageStart: 20, PageEnd: 10}},
	}
	if err := ValidateChapterMap(bad); !errors.Is(err, ErrInvalidPageRange) {
		t.Errorf("ValidateChapterMap(inverted) = %v, want ErrInvalidPageRange", err)
	}
}

func TestValidateCoverage(t *testing.T) {
	c := &ExamCoverage{ExamID: "midterm_1", SourceFileID: "f1"}
	if err := ValidateCoverage(c); err != nil {
		t.Errorf("ValidateCoverage() = %v, want nil", err)
	}

	if err := ValidateCoverage(&ExamCoverage{SourceFileID: "f1"}); !errors.Is(err, ErrInvalidCoverage) {
		t.Errorf("ValidateCoverage(no exam id) = %v, want ErrInvalidCoverage", err)
	}
}
