package mock

import (
	"github.com/siongang/study-agent/ai"
)

// MockProvider is a test double for ai.Provider aggregating the mock
// services.
type MockProvider struct {
	embedder   *MockEmbedder
	classifier *MockClassifier
	toc        *MockTOCExtractor
	coverage   *MockCoverageExtractor
}

// NewMockProvider creates a provider backed entirely by mocks.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		classifier: NewMockClassifier(),
		toc:        NewMockTOCExtractor(),
		coverage:   NewMockCoverageExtractor(),
	}
}

// Embedder returns the mock embedder as the interface type.
func (p *MockProvider) Embedder() ai.Embedder { return p.embedder }

// Classifier returns the mock classifier as the interface type.
func (p *MockProvider) Classifier() ai.Classifier { return p.classifier }

// TOCExtractor returns the mock TOC extractor as the interface type.
func (p *MockProvider) TOCExtractor() ai.TOCExtractor { return p.toc }

// CoverageExtractor returns the mock coverage extractor as the interface type.
func (p *MockProvider) CoverageExtractor() ai.CoverageExtractor { return p.coverage }

// Close is a no-op.
func (p *MockProvider) Close() error { return nil }

// GetMockEmbedder returns the concrete embedder for behavior injection.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder { return p.embedder }

// GetMockClassifier returns the concrete classifier for behavior injection.
func (p *MockProvider) GetMockClassifier() *MockClassifier { return p.classifier }

// GetMockTOCExtractor returns the concrete TOC extractor for behavior injection.
func (p *MockProvider) GetMockTOCExtractor() *MockTOCExtractor { return p.toc }

// GetMockCoverageExtractor returns the concrete coverage extractor for
// behavior injection.
func (p *MockProvider) GetMockCoverageExtractor() *MockCoverageExtractor { return p.coverage }
