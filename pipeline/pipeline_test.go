package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/ai/mock"
	"github.com/siongang/study-agent/chunker"
	"github.com/siongang/study-agent/chunkstore"
	"github.com/siongang/study-agent/core"
	"github.com/siongang/study-agent/embedcache"
	"github.com/siongang/study-agent/extract"
	"github.com/siongang/study-agent/registry"
)

type testEnv struct {
	pipeline *Pipeline
	provider *mock.MockProvider
	uploads  string
	state    string
	chunks   *chunkstore.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	uploads := t.TempDir()
	state := t.TempDir()

	backend, err := embedcache.OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	provider := mock.NewMockProvider()
	provider.GetMockClassifier().ClassifyFunc = func(ctx context.Context, filename, sample string) (*ai.Classification, error) {
		switch {
		case strings.Contains(filename, "book"):
			return &ai.Classification{DocType: core.DocTypeTextbook, Confidence: 0.9, Reasoning: "book in name"}, nil
		case strings.Contains(filename, "exam"):
			return &ai.Classification{DocType: core.DocTypeExamOverview, Confidence: 0.85, Reasoning: "exam in name"}, nil
		}
		return &ai.Classification{DocType: core.DocTypeOther, Confidence: 0.3, Reasoning: "no signals"}, nil
	}
	provider.GetMockTOCExtractor().ExtractFunc = func(ctx context.Context, file *core.SourceFile, tocPages []int, tocText string, numPages int) (*core.ChapterMap, error) {
		return &core.ChapterMap{
			FileID:         file.FileID,
			Filename:       file.Filename,
			DocType:        file.DocType,
			TOCSourcePages: tocPages,
			Chapters: []core.ChapterInfo{
				{Chapter: 1, Title: "One", PageStart: 2, PageEnd: 3},
				{Chapter: 2, Title: "Two", PageStart: 4, PageEnd: 5},
			},
		}, nil
	}
	provider.GetMockCoverageExtractor().ExtractFunc = func(ctx context.Context, file *core.SourceFile, text string) (*core.ExamCoverage, error) {
		c := &core.ExamCoverage{
			ExamID:       "Midterm 1",
			ExamName:     "Midterm 1",
			Chapters:     []int{2},
			SourceFileID: file.FileID,
		}
		c.Normalize()
		return c, nil
	}

	chunks := chunkstore.NewStore(filepath.Join(state, "chunks", "chunks.jsonl"))
	chk, err := chunker.New(chunker.Config{TargetTokens: 10, MaxTokens: 12, MinTokens: 2, OverlapTokens: 3}, chunker.NewWordCodec())
	require.NoError(t, err)

	p, err := New(Config{
		UploadsDir:      uploads,
		Registry:        registry.NewStore(filepath.Join(state, "registry.json"), nil),
		Extractor:       extract.NewPlainText(),
		Texts:           extract.NewStore(filepath.Join(state, "extracted_text")),
		Provider:        provider,
		Chunker:         chk,
		Chunks:          chunks,
		Cache:           embedcache.New(backend),
		ChapterMapsDir:  filepath.Join(state, "chapter_maps"),
		CoverageDir:     filepath.Join(state, "coverage"),
		VectorIndexPath: filepath.Join(state, "index", "vectors.json"),
		ChunkIndexPath:  filepath.Join(state, "index", "chunk_index.json"),
	})
	require.NoError(t, err)

	return &testEnv{pipeline: p, provider: provider, uploads: uploads, state: state, chunks: chunks}
}

func words(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('a'+i%26))
	}
	return strings.Join(out, " ")
}

func (e *testEnv) writeTextbook(t *testing.T) {
	t.Helper()
	pages := []string{
		"Table of Contents\n1. One ........ 2\n2. Two ........ 4",
		words("ch1p2", 8),
		words("ch1p3", 8),
		words("ch2p4", 8),
		words("ch2p5", 8),
	}
	path := filepath.Join(e.uploads, "os_book.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(pages, "\f")), 0o644))
}

func (e *testEnv) writeExamOverview(t *testing.T) {
	t.Helper()
	path := filepath.Join(e.uploads, "midterm_exam.txt")
	require.NoError(t, os.WriteFile(path, []byte("The exam covers chapter 2 only."), 0o644))
}

func TestRunAll_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	env.writeExamOverview(t)

	reg, results, stats, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reg.Files, 2)

	for _, r := range results {
		assert.NoError(t, r.Err, "stage %s failed for %s", r.Stage, r.Filename)
	}
	for _, f := range reg.Files {
		assert.Equal(t, core.StatusProcessed, f.Status)
	}

	// Chunking is scoped to the exam's chapter 2 (pages 4-5).
	chunks, err := env.chunks.LoadAll()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		require.NotNil(t, c.ChapterNumber)
		assert.Equal(t, 2, *c.ChapterNumber)
		assert.GreaterOrEqual(t, c.PageStart, 4)
	}

	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 2, stats.Embedding.Computed)

	// Index artifacts exist on disk.
	_, err = os.Stat(filepath.Join(env.state, "index", "vectors.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(env.state, "index", "chunk_index.json"))
	assert.NoError(t, err)
}

func TestRunAll_SecondRunFullyCached(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	env.writeExamOverview(t)

	_, _, _, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)

	_, results, stats, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)

	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.True(t, r.Cached, "stage %s for %s should be cached", r.Stage, r.Filename)
	}
	assert.Equal(t, 0, stats.Embedding.Computed)
	assert.Equal(t, 2, stats.Embedding.Cached)

	// No duplicate generation was appended.
	chunks, err := env.chunks.LoadAll()
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestRunAll_EditedFileRecomputes(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	env.writeExamOverview(t)

	_, _, _, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)

	// Grow chapter 2's last page so the textbook's hash changes.
	pages := []string{
		"Table of Contents\n1. One ........ 2\n2. Two ........ 4",
		words("ch1p2", 8),
		words("ch1p3", 8),
		words("ch2p4", 8),
		words("revised", 9),
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(env.uploads, "os_book.txt"),
		[]byte(strings.Join(pages, "\f")), 0o644))

	reg, results, _, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)

	recomputed := make(map[core.Stage]bool)
	for _, r := range results {
		if r.Filename == "os_book.txt" && !r.Cached {
			recomputed[r.Stage] = true
		}
		if r.Filename == "midterm_exam.txt" {
			assert.True(t, r.Cached, "untouched file stage %s must stay cached", r.Stage)
		}
	}
	assert.True(t, recomputed[core.StageExtract])
	assert.True(t, recomputed[core.StageChunk])

	// The new generation supersedes; the logical view has no duplicates.
	chunks, err := env.chunks.LoadAll()
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, 2, c.IngestRun)
	}

	f := reg.FindByPath("os_book.txt")
	require.NotNil(t, f)
	assert.Equal(t, core.StatusProcessed, f.Status)
}

func TestExtractAll_FailureIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	// An empty file fails extraction.
	require.NoError(t, os.WriteFile(filepath.Join(env.uploads, "broken.txt"), nil, 0o644))

	reg, _, err := env.pipeline.Sync()
	require.NoError(t, err)

	results, err := env.pipeline.ExtractAll(context.Background(), reg)
	require.NoError(t, err, "batch survives a per-file failure")

	byName := make(map[string]StageResult)
	for _, r := range results {
		byName[r.Filename] = r
	}
	assert.Error(t, byName["broken.txt"].Err)
	assert.NoError(t, byName["os_book.txt"].Err)

	broken := reg.FindByPath("broken.txt")
	require.NotNil(t, broken)
	assert.Equal(t, core.StatusError, broken.Status)
	assert.NotEmpty(t, broken.Error)
}

func TestClassifyAll_RequiresExtraction(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)

	reg, _, err := env.pipeline.Sync()
	require.NoError(t, err)

	results, err := env.pipeline.ClassifyAll(context.Background(), reg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err, "classification without extraction is a structured failure")
}

func TestClassifyAll_PersistsConfidence(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)

	reg, _, err := env.pipeline.Sync()
	require.NoError(t, err)
	_, err = env.pipeline.ExtractAll(context.Background(), reg)
	require.NoError(t, err)
	_, err = env.pipeline.ClassifyAll(context.Background(), reg)
	require.NoError(t, err)

	f := reg.FindByPath("os_book.txt")
	require.NotNil(t, f)
	assert.Equal(t, core.DocTypeTextbook, f.DocType)
	assert.Equal(t, 0.9, f.DocConfidence)
	assert.Equal(t, "book in name", f.DocReasoning)
}

func TestChunkAll_NoCoverageChunksEverything(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	ctx := context.Background()

	reg, _, err := env.pipeline.Sync()
	require.NoError(t, err)
	_, err = env.pipeline.ExtractAll(ctx, reg)
	require.NoError(t, err)
	_, err = env.pipeline.ClassifyAll(ctx, reg)
	require.NoError(t, err)
	_, err = env.pipeline.MapChaptersAll(ctx, reg)
	require.NoError(t, err)

	results, err := env.pipeline.ChunkAll(ctx, reg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	// Without exam coverage there is no chapter scoping: all five pages
	// chunk, TOC page included.
	chunks, err := env.chunks.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, 5, len(chunks))
}

func TestExamChapters(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	env.writeExamOverview(t)

	reg, _, _, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)

	// Lookup normalizes the requested id the same way coverage ids are stored.
	chapters, err := env.pipeline.ExamChapters(reg, "Midterm 1")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, chapters)

	_, err = env.pipeline.ExamChapters(reg, "final")
	assert.ErrorIs(t, err, ErrNoArtifact)
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.writeTextbook(t)
	env.writeExamOverview(t)

	reg, _, _, err := env.pipeline.RunAll(context.Background())
	require.NoError(t, err)

	st, err := env.pipeline.Status(reg)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Files)
	assert.Equal(t, 2, st.ByStatus[string(core.StatusProcessed)])
	assert.Equal(t, 1, st.ByDocType[core.DocTypeTextbook])
	assert.Equal(t, 1, st.ByDocType[core.DocTypeExamOverview])
	assert.Equal(t, 2, st.Chunks)
	assert.Equal(t, []int{2}, st.Required)
}
