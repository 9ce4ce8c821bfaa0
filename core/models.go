package core

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Status summarizes a source file's extraction freshness.
// It is owned by the registry and mutated only by the extraction stage.
type Status string

const (
	// StatusNew marks a file that has never been extracted.
	StatusNew Status = "new"
	// StatusStale marks a file whose content hash changed since the last scan.
	StatusStale Status = "stale"
	// StatusProcessed marks a file whose extraction succeeded.
	StatusProcessed Status = "processed"
	// StatusError marks a file whose extraction failed; Error holds the reason.
	StatusError Status = "error"
)

// Stage identifies one step of the ingestion pipeline.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageClassify   Stage = "classify"
	StageChapterMap Stage = "chaptermap"
	StageCoverage   Stage = "coverage"
	StageChunk      Stage = "chunk"
	StageEmbed      Stage = "embed"
)

// DocType labels for routing documents through the pipeline.
const (
	DocTypeTextbook     = "textbook"
	DocTypeExamOverview = "exam_overview"
	DocTypeSyllabus     = "syllabus"
	DocTypeNotes        = "notes"
	DocTypeOther        = "other"
	DocTypeUnknown      = "unknown"
)

// SourceFile is a single entry in the registry. FileID is stable across
// reprocessing; the content hash and per-stage completion map decide what
// needs recomputation.
type SourceFile struct {
	FileID       string  `json:"file_id"`
	Path         string  `json:"path"` // relative to the uploads root
	Filename     string  `json:"filename"`
	SHA256       string  `json:"sha256"`
	SizeBytes    int64   `json:"size_bytes"`
	ModifiedTime float64 `json:"modified_time"` // unix timestamp

	DocType       string  `json:"doc_type"`
	DocConfidence float64 `json:"doc_confidence,omitempty"`
	DocReasoning  string  `json:"doc_reasoning,omitempty"`

	Status Status `json:"status"`
	// Stages records the content hash at the last successful run of each
	// stage. A stage is fresh for this file iff its recorded hash equals
	// the current SHA256.
	Stages  map[Stage]string `json:"stages,omitempty"`
	Derived []string         `json:"derived"`
	Error   string           `json:"error,omitempty"`
}

// StageFresh reports whether the stage last succeeded against the file's
// current content.
func (f *SourceFile) StageFresh(stage Stage) bool {
	if f.Stages == nil {
		return false
	}
	return f.Stages[stage] == f.SHA256
}

// MarkStage records a successful stage run against the current content hash.
func (f *SourceFile) MarkStage(stage Stage) {
	if f.Stages == nil {
		f.Stages = make(map[Stage]string)
	}
	f.Stages[stage] = f.SHA256
}

// AppendDerived records a derived artifact path, keeping the list
// append-only and duplicate-free.
func (f *SourceFile) AppendDerived(artifact string) {
	for _, existing := range f.Derived {
		if existing == artifact {
			return
		}
	}
	f.Derived = append(f.Derived, artifact)
}

// ExtractedText is the cached per-page extraction result for one file.
type ExtractedText struct {
	FileID      string    `json:"file_id"`
	Path        string    `json:"path"`
	NumPages    int       `json:"num_pages"`
	Pages       []string  `json:"pages"` // page n is Pages[n-1]
	FullText    string    `json:"full_text"`
	FirstPage   string    `json:"first_page"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// ChapterInfo is one chapter entry from a document's table of contents.
// Page bounds are inclusive and 1-indexed.
type ChapterInfo struct {
	Chapter   int    `json:"chapter"`
	Title     string `json:"title"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
}

// ChapterMap is the ordered page-range table for one document's chapters.
// It is produced once by TOC extraction and regenerated wholesale on
// re-extraction, never edited in place.
type ChapterMap struct {
	FileID         string        `json:"file_id"`
	Filename       string        `json:"filename"`
	DocType        string        `json:"doc_type"`
	ExtractedAt    time.Time     `json:"extracted_at"`
	TOCSourcePages []int         `json:"toc_source_pages"`
	Chapters       []ChapterInfo `json:"chapters"`
	Notes          string        `json:"notes,omitempty"`
}

// ChapterForPage returns the first chapter whose page range contains page,
// or nil when the page falls outside every mapped chapter.
func (m *ChapterMap) ChapterForPage(page int) *ChapterInfo {
	for i := range m.Chapters {
		ch := &m.Chapters[i]
		if ch.PageStart <= page && page <= ch.PageEnd {
			return ch
		}
	}
	return nil
}

// ChapterTopics lists the learning objectives for one chapter of an exam.
type ChapterTopics struct {
	Chapter      int      `json:"chapter"`
	ChapterTitle string   `json:"chapter_title"`
	Bullets      []string `json:"bullets"`
}

// ExamCoverage is the structured coverage extracted from one exam overview:
// the chapters a downstream consumer needs content for.
type ExamCoverage struct {
	ExamID       string          `json:"exam_id"`
	ExamName     string          `json:"exam_name"`
	ExamDate     string          `json:"exam_date,omitempty"`
	Chapters     []int           `json:"chapters"`
	Topics       []ChapterTopics `json:"topics"`
	SourceFileID string          `json:"source_file_id"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// NormalizeExamID canonicalizes an exam identifier: lowercase, with spaces
// and hyphens collapsed to underscores.
func NormalizeExamID(id string) string {
	id = strings.ToLower(id)
	id = strings.ReplaceAll(id, " ", "_")
	return strings.ReplaceAll(id, "-", "_")
}

// Normalize canonicalizes the exam id and de-duplicates and sorts chapters.
func (c *ExamCoverage) Normalize() {
	c.ExamID = NormalizeExamID(c.ExamID)

	seen := make(map[int]bool, len(c.Chapters))
	chapters := make([]int, 0, len(c.Chapters))
	for _, ch := range c.Chapters {
		if !seen[ch] {
			seen[ch] = true
			chapters = append(chapters, ch)
		}
	}
	sort.Ints(chapters)
	c.Chapters = chapters
}

// Chunk is a bounded span of a document's text with page and chapter
// attribution. Chunks are immutable once written to the store.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	PageStart  int    `json:"page_start"` // inclusive, 1-indexed
	PageEnd    int    `json:"page_end"`   // inclusive, 1-indexed
	TokenCount int    `json:"token_count"`

	ChapterNumber *int   `json:"chapter_number,omitempty"`
	ChapterTitle  string `json:"chapter_title,omitempty"`
	ChunkIndex    int    `json:"chunk_index"`

	// IngestRun is the chunk store generation for this file. Readers keep
	// only the highest run per file, so re-chunking supersedes rather than
	// duplicates.
	IngestRun int `json:"ingest_run"`
}

// ChunkIDFor derives the deterministic chunk identifier using BLAKE2b.
// Identical inputs always reproduce the identical id; uniqueness is only
// guaranteed within a single file.
func ChunkIDFor(fileID string, pageStart, pageEnd, chunkIndex int) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	fmt.Fprintf(h, "%s:%d:%d:%d", fileID, pageStart, pageEnd, chunkIndex)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentID derives a deterministic identifier from arbitrary content.
// Identical content produces identical IDs.
func ContentID(text string) string {
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// ScoredChunk is a retrieval hit: a hydrated chunk plus its similarity score.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}
