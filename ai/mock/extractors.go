package mock

import (
	"context"
	"time"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/core"
)

// MockClassifier is a test double for ai.Classifier.
type MockClassifier struct {
	// ClassifyFunc is called by Classify if set.
	// If nil, every document classifies as core.DocTypeOther.
	ClassifyFunc func(ctx context.Context, filename, sample string) (*ai.Classification, error)

	callCount int
}

// NewMockClassifier creates a mock classifier.
// Note: Returns concrete type to allow test assertions.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

// Classify returns the injected result, or "other" by default.
func (m *MockClassifier) Classify(ctx context.Context, filename, sample string) (*ai.Classification, error) {
	m.callCount++

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, filename, sample)
	}
	return &ai.Classification{
		DocType:    core.DocTypeOther,
		Confidence: 0.5,
		Reasoning:  "mock default",
	}, nil
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	return m.callCount
}

// MockTOCExtractor is a test double for ai.TOCExtractor.
type MockTOCExtractor struct {
	// ExtractFunc is called by ExtractChapterMap if set.
	// If nil, the result has no chapters (no TOC found).
	ExtractFunc func(ctx context.Context, file *core.SourceFile, tocPages []int, tocText string, numPages int) (*core.ChapterMap, error)

	callCount int
}

// NewMockTOCExtractor creates a mock TOC extractor.
func NewMockTOCExtractor() *MockTOCExtractor {
	return &MockTOCExtractor{}
}

// ExtractChapterMap returns the injected result, or an empty chapter map.
func (m *MockTOCExtractor) ExtractChapterMap(ctx context.Context, file *core.SourceFile, tocPages []int, tocText string, numPages int) (*core.ChapterMap, error) {
	m.callCount++

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, file, tocPages, tocText, numPages)
	}
	return &core.ChapterMap{
		FileID:      file.FileID,
		Filename:    file.Filename,
		DocType:     file.DocType,
		ExtractedAt: time.Now().UTC(),
		Notes:       "mock: no table of contents",
	}, nil
}

// CallCount returns the number of times ExtractChapterMap was called.
func (m *MockTOCExtractor) CallCount() int {
	return m.callCount
}

// MockCoverageExtractor is a test double for ai.CoverageExtractor.
type MockCoverageExtractor struct {
	// ExtractFunc is called by ExtractCoverage if set.
	// If nil, a minimal normalized coverage is returned.
	ExtractFunc func(ctx context.Context, file *core.SourceFile, text string) (*core.ExamCoverage, error)

	callCount int
}

// NewMockCoverageExtractor creates a mock coverage extractor.
func NewMockCoverageExtractor() *MockCoverageExtractor {
	return &MockCoverageExtractor{}
}

// ExtractCoverage returns the injected result, or a minimal coverage.
func (m *MockCoverageExtractor) ExtractCoverage(ctx context.Context, file *core.SourceFile, text string) (*core.ExamCoverage, error) {
	m.callCount++

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, file, text)
	}
	coverage := &core.ExamCoverage{
		ExamID:       "mock_exam",
		ExamName:     "Mock Exam",
		SourceFileID: file.FileID,
		GeneratedAt:  time.Now().UTC(),
	}
	coverage.Normalize()
	return coverage, nil
}

// CallCount returns the number of times ExtractCoverage was called.
func (m *MockCoverageExtractor) CallCount() int {
	return m.callCount
}
