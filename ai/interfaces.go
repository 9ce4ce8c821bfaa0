package ai

import (
	"context"

	"github.com/siongang/study-agent/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts. Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the model identifier the embedder runs against. The id
	// participates in cache keys so that switching models never reuses
	// vectors from another model.
	Model() string
}

// Classification is the outcome of routing a document to a type.
type Classification struct {
	// DocType is one of the core.DocType* labels.
	DocType string

	// Confidence is the classifier's self-reported certainty in [0, 1].
	Confidence float64

	// Reasoning is a short free-text justification, kept for operators.
	Reasoning string
}

// Classifier assigns a document type from an early sample of its content.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// Classify inspects the filename and a text sample (typically the first
	// page plus a bounded slice of what follows) and returns the document
	// type. Unrecognized documents classify as core.DocTypeOther rather
	// than erroring.
	Classify(ctx context.Context, filename, sample string) (*Classification, error)
}

// TOCExtractor derives a chapter page-range table from a document's table
// of contents.
type TOCExtractor interface {
	// ExtractChapterMap reads the candidate TOC pages and produces the
	// chapter map. An empty chapter list is a valid result meaning no TOC
	// was found.
	ExtractChapterMap(ctx context.Context, file *core.SourceFile, tocPages []int, tocText string, numPages int) (*core.ChapterMap, error)
}

// CoverageExtractor derives structured exam coverage from an exam overview
// document.
type CoverageExtractor interface {
	// ExtractCoverage reads the full overview text and returns which exam
	// it describes and which chapters it covers.
	ExtractCoverage(ctx context.Context, file *core.SourceFile, text string) (*core.ExamCoverage, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. Services returned by a provider share configuration
// and are safe for concurrent use.
type Provider interface {
	Embedder() Embedder
	Classifier() Classifier
	TOCExtractor() TOCExtractor
	CoverageExtractor() CoverageExtractor

	// Close releases resources held by the provider and its services.
	Close() error
}
