package chunkstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siongang/study-agent/core"
)

func testChunks(fileID string, n int) []*core.Chunk {
	chunks := make([]*core.Chunk, n)
	for i := range chunks {
		page := i + 1
		chunks[i] = &core.Chunk{
			ChunkID:    core.ChunkIDFor(fileID, page, page, i),
			FileID:     fileID,
			Filename:   fileID + ".txt",
			Text:       fmt.Sprintf("chunk %d of %s", i, fileID),
			PageStart:  page,
			PageEnd:    page,
			TokenCount: 5,
			ChunkIndex: i,
		}
	}
	return chunks
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "chunks", "chunks.jsonl"))
}

func TestStore_AppendAndLoad(t *testing.T) {
	store := newTestStore(t)

	run, err := store.Append(testChunks("f1", 3))
	require.NoError(t, err)
	assert.Equal(t, 1, run)

	chunks, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].IngestRun)
	assert.Equal(t, "chunk 0 of f1", chunks[0].Text)
}

func TestStore_RechunkSupersedes(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Append(testChunks("f1", 3))
	require.NoError(t, err)
	run, err := store.Append(testChunks("f1", 2))
	require.NoError(t, err)
	assert.Equal(t, 2, run)

	// Logical view holds only the new generation.
	chunks, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, 2, c.IngestRun)
	}

	// Both generations remain physically present until compaction.
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "\n"))
}

func TestStore_MultipleFilesIndependentRuns(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Append(testChunks("f1", 2))
	require.NoError(t, err)
	_, err = store.Append(testChunks("f1", 2))
	require.NoError(t, err)
	run, err := store.Append(testChunks("f2", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, run, "runs count per file, not globally")

	f1, err := store.ByFile("f1")
	require.NoError(t, err)
	assert.Len(t, f1, 2)

	f2, err := store.ByFile("f2")
	require.NoError(t, err)
	assert.Len(t, f2, 1)
}

func TestStore_SkipsCorruptLines(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Append(testChunks("f1", 2))
	require.NoError(t, err)

	// A torn write mid-record.
	f, err := os.OpenFile(store.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"chunk_id": "truncat`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	chunks, err := store.LoadAll()
	require.NoError(t, err)
	assert.Len(t, chunks, 2, "corrupt trailing record skipped")
}

func TestStore_Compact(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Append(testChunks("f1", 3))
	require.NoError(t, err)
	_, err = store.Append(testChunks("f1", 2))
	require.NoError(t, err)

	before, err := store.LoadAll()
	require.NoError(t, err)

	require.NoError(t, store.Compact())

	after, err := store.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, before, after, "compaction preserves the logical view")

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"), "stale generation gone")
}

func TestStore_LoadAllMissingFile(t *testing.T) {
	store := newTestStore(t)

	chunks, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestStore_AppendRejectsMixedFiles(t *testing.T) {
	store := newTestStore(t)

	mixed := append(testChunks("f1", 1), testChunks("f2", 1)...)
	_, err := store.Append(mixed)
	assert.Error(t, err)
}

func TestBuildIndex(t *testing.T) {
	store := newTestStore(t)

	chunks := testChunks("f1", 2)
	ch := 4
	chunks[1].ChapterNumber = &ch
	_, err := store.Append(chunks)
	require.NoError(t, err)

	idx, err := store.BuildIndex()
	require.NoError(t, err)
	require.Len(t, idx, 2)

	entry := idx[chunks[1].ChunkID]
	assert.Equal(t, "f1", entry.FileID)
	assert.Equal(t, 1, entry.ChunkIndex)
	require.NotNil(t, entry.ChapterNumber)
	assert.Equal(t, 4, *entry.ChapterNumber)
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Append(testChunks("f1", 2))
	require.NoError(t, err)

	idx, err := store.BuildIndex()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chunk_index.json")
	require.NoError(t, SaveIndex(path, idx))

	loaded, err := LoadIndex(path)
	require.NoError(t, err)
	assert.Equal(t, idx, loaded)
}

func TestLoadIndex_Missing(t *testing.T) {
	idx, err := LoadIndex(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, idx)
}
