package studyagent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/ai/mock"
	"github.com/siongang/study-agent/chunker"
	"github.com/siongang/study-agent/config"
	"github.com/siongang/study-agent/core"
	"github.com/siongang/study-agent/search"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.UploadsDir = t.TempDir()
	cfg.Paths.StateDir = filepath.Join(t.TempDir(), "state")
	cfg.Chunker = config.ChunkerConfig{TargetTokens: 10, MaxTokens: 12, MinTokens: 2, OverlapTokens: 3}
	return cfg
}

func openTestLibrary(t *testing.T, cfg *config.AppConfig) *Library {
	t.Helper()
	lib, err := Open(cfg, WithProvider(mock.NewMockProvider()), WithCodec(chunker.NewWordCodec()))
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })
	return lib
}

func TestOpen(t *testing.T) {
	t.Run("assembles components", func(t *testing.T) {
		lib := openTestLibrary(t, testConfig(t))
		assert.NotNil(t, lib.Pipeline())
		assert.NotNil(t, lib.Provider())
		assert.NotNil(t, lib.backend)
	})

	t.Run("error when cache dir is a file", func(t *testing.T) {
		cfg := testConfig(t)
		require.NoError(t, os.MkdirAll(cfg.Paths.StateDir, 0o755))
		require.NoError(t, os.WriteFile(cfg.EmbedCacheDir(), []byte("x"), 0o644))

		lib, err := Open(cfg, WithProvider(mock.NewMockProvider()), WithCodec(chunker.NewWordCodec()))
		assert.Error(t, err)
		assert.Nil(t, lib)
	})
}

func TestLibrary_IngestThenSearch(t *testing.T) {
	cfg := testConfig(t)
	doc := "operating systems schedule processes with priority queues " +
		"and preempt the running task when a higher priority one arrives"
	require.NoError(t, os.WriteFile(
		filepath.Join(cfg.Paths.UploadsDir, "notes.txt"), []byte(doc), 0o644))

	provider := mock.NewMockProvider()
	provider.GetMockClassifier().ClassifyFunc = func(ctx context.Context, filename, sample string) (*ai.Classification, error) {
		return &ai.Classification{DocType: core.DocTypeTextbook, Confidence: 0.9}, nil
	}
	lib, err := Open(cfg, WithProvider(provider), WithCodec(chunker.NewWordCodec()))
	require.NoError(t, err)
	defer lib.Close()

	_, results, stats, err := lib.Pipeline().RunAll(context.Background())
	require.NoError(t, err)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	require.Greater(t, stats.Chunks, 0)

	searcher, err := lib.NewSearcher()
	require.NoError(t, err)

	hits, err := searcher.Search(context.Background(), "priority scheduling", 5, search.Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.NotEmpty(t, h.Chunk.Text)
		assert.Equal(t, core.ChunkIDFor(h.Chunk.FileID, h.Chunk.PageStart, h.Chunk.PageEnd, h.Chunk.ChunkIndex), h.Chunk.ChunkID)
	}
}

func TestLibrary_NewSearcherWithoutIndex(t *testing.T) {
	lib := openTestLibrary(t, testConfig(t))

	_, err := lib.NewSearcher()
	assert.Error(t, err, "searcher needs a built vector index")
}
