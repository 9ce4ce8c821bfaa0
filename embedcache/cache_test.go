package embedcache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siongang/study-agent/ai/mock"
)

func newTestCache(t *testing.T, opts ...Option) *Cache {
	t.Helper()
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return New(backend, opts...)
}

func TestGetOrCompute_ComputesAndCaches(t *testing.T) {
	cache := newTestCache(t)
	embedder := mock.NewMockEmbedder()
	ctx := context.Background()

	texts := []string{"alpha", "beta", "gamma"}
	vectors, stats, err := cache.GetOrCompute(ctx, texts, embedder)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, Stats{Total: 3, Cached: 0, Computed: 3}, stats)
	for i, v := range vectors {
		assert.NotEmpty(t, v, "vector %d empty", i)
	}

	// Second pass: everything served from cache, embedder untouched.
	calls := embedder.CallCount()
	again, stats, err := cache.GetOrCompute(ctx, texts, embedder)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Cached: 3, Computed: 0}, stats)
	assert.Equal(t, vectors, again)
	assert.Equal(t, calls, embedder.CallCount())
}

func TestGetOrCompute_PartialHit(t *testing.T) {
	cache := newTestCache(t)
	embedder := mock.NewMockEmbedder()
	ctx := context.Background()

	_, _, err := cache.GetOrCompute(ctx, []string{"alpha"}, embedder)
	require.NoError(t, err)

	vectors, stats, err := cache.GetOrCompute(ctx, []string{"alpha", "delta"}, embedder)
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, Stats{Total: 2, Cached: 1, Computed: 1}, stats)
}

func TestGetOrCompute_DuplicateTextsShareVector(t *testing.T) {
	cache := newTestCache(t)
	embedder := mock.NewMockEmbedder()

	var embeddedTexts []string
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		embeddedTexts = append(embeddedTexts, texts...)
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{float32(len(texts[i])), 1}
		}
		return out, nil
	}

	vectors, stats, err := cache.GetOrCompute(context.Background(), []string{"same", "same", "other"}, embedder)
	require.NoError(t, err)
	assert.Len(t, embeddedTexts, 2, "duplicate text embedded once")
	assert.Equal(t, vectors[0], vectors[1])
	assert.Equal(t, Stats{Total: 3, Cached: 0, Computed: 3}, stats)
}

func TestGetOrCompute_ModelScoping(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	a := mock.NewMockEmbedder()
	a.ModelID = "model-a"
	b := mock.NewMockEmbedder()
	b.ModelID = "model-b"
	b.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{9, 9, 9}
		}
		return out, nil
	}

	first, _, err := cache.GetOrCompute(ctx, []string{"alpha"}, a)
	require.NoError(t, err)

	second, stats, err := cache.GetOrCompute(ctx, []string{"alpha"}, b)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Cached: 0, Computed: 1}, stats, "different model never reuses vectors")
	assert.NotEqual(t, first[0], second[0])
}

func TestGetOrCompute_BatchOrderPreserved(t *testing.T) {
	cache := newTestCache(t, WithBatchSize(2), WithPoolSize(4))
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text))}
		}
		return out, nil
	}

	texts := make([]string, 9)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0) // distinct lengths 1..9
	}

	vectors, stats, err := cache.GetOrCompute(context.Background(), texts, embedder)
	require.NoError(t, err)
	assert.Equal(t, 9, stats.Computed)
	for i, v := range vectors {
		require.Len(t, v, 1)
		assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
	}
}

func TestGetOrCompute_RetriesTransientFailure(t *testing.T) {
	cache := newTestCache(t, WithRetry(3, time.Millisecond))
	embedder := mock.NewMockEmbedder()

	failures := 2
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("upstream hiccup")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1}
		}
		return out, nil
	}

	vectors, _, err := cache.GetOrCompute(context.Background(), []string{"alpha"}, embedder)
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 0, failures)
}

func TestGetOrCompute_PermanentFailure(t *testing.T) {
	cache := newTestCache(t, WithRetry(2, time.Millisecond))
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("service down")
	}

	_, _, err := cache.GetOrCompute(context.Background(), []string{"alpha"}, embedder)
	assert.Error(t, err)
}

func TestGetOrCompute_Empty(t *testing.T) {
	cache := newTestCache(t)

	vectors, stats, err := cache.GetOrCompute(context.Background(), nil, mock.NewMockEmbedder())
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, Stats{}, stats)
}

func TestVectorSerialization(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	decoded, err := decodeVector(encodeVector(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, ErrCorruptVector))
}
