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


package embedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/panjf2000/ants/v2"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/core"
)

const (
	defaultBatchSize   = 32
	defaultPoolSize    = 1
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond

	// writeTxBatch bounds entries per write transaction, well under
	// badger's transaction size limit.
	writeTxBatch = 128
)

// Stats summarizes one GetOrCompute pass.
type Stats struct {
	Total    int `json:"total"`
	Cached   int `json:"cached"`
	Computed int `json:"computed"`
}

// Cache is the content-addressed embedding cache. Vectors are keyed by
// (model, content hash): identical text never embeds twice for the same
// model, and switching models never reuses another model's vectors.
type Cache struct {
	backend     *Backend
	batchSize   int
	poolSize    int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// Option is a functional option for configuring a Cache.
type Option func(*Cache)

// WithBatchSize sets how many texts go into one embedding request.
func WithBatchSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithPoolSize sets how many embedding batches may be in flight at once.
func WithPoolSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.poolSize = n
		}
	}
}

// WithRetry sets the retry policy for failed embedding requests.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Cache) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
	}
}

// New creates an embedding cache over an open backend.
func New(backend *Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:     backend,
		batchSize:   defaultBatchSize,
		poolSize:    defaultPoolSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default().With("component", "embedcache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func vectorKey(model, contentID string) []byte {
	return []byte("vec:" + model + ":" + contentID)
}

// GetOrCompute returns one vector per input text, in input order. Cached
// vectors are served from the store; the rest are embedded in batches,
// persisted, and merged in. The whole call is synchronous: when it returns,
// every returned vector is also in the cache.
func (c *Cache) GetOrCompute(ctx context.Context, texts []string, embedder ai.Embedder) ([][]float32, Stats, error) {
	stats := Stats{Total: len(texts)}
	if len(texts) == 0 {
		return nil, stats, nil
	}

	model := embedder.Model()
	ids := make([]string, len(texts))
	for i, t := range texts {
		ids[i] = core.ContentID(t)
	}

	// Cache lookup.
	found := make(map[string][]float32)
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if _, ok := found[id]; ok {
				continue
			}
			item, err := tx.Get(vectorKey(model, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var vec []float32
			err = item.Value(func(val []byte) error {
				var derr error
				vec, derr = decodeVector(val)
				return derr
			})
			if err != nil {
				c.logger.Warn("dropping corrupt cached vector, will recompute",
					"content_id", id,
					"err", err)
				continue
			}
			found[id] = vec
		}
		return nil
	}, false)
	if err != nil {
		return nil, stats, fmt.Errorf("embedding cache lookup failed: %w", err)
	}

	// Collect unique missing texts in first-seen order.
	var missingIDs []string
	var missingTexts []string
	seen := make(map[string]bool)
	for i, id := range ids {
		if _, ok := found[id]; ok {
			stats.Cached++
			continue
		}
		stats.Computed++
		if !seen[id] {
			seen[id] = true
			missingIDs = append(missingIDs, id)
			missingTexts = append(missingTexts, texts[i])
		}
	}

	if len(missingTexts) > 0 {
		computed, err := c.embedBatches(ctx, missingTexts, embedder)
		if err != nil {
			return nil, stats, err
		}
		if err := c.storeVectors(model, missingIDs, computed); err != nil {
			return nil, stats, err
		}
		for i, id := range missingIDs {
			found[id] = computed[i]
		}
	}

	out := make([][]float32, len(texts))
	for i, id := range ids {
		out[i] = found[id]
	}

	c.logger.Info("embedding pass complete",
		"total", stats.Total,
		"cached", stats.Cached,
		"computed", stats.Computed)
	return out, stats, nil
}

// embedBatches runs the embedding requests through a bounded worker pool
// and merges the per-batch results back in input order.
func (c *Cache) embedBatches(ctx context.Context, texts []string, embedder ai.Embedder) ([][]float32, error) {
	var batches [][]string
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, texts[start:end])
	}

	pool, err := ants.NewPool(c.poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	defer pool.Release()

	results := make([][][]float32, len(batches))
	errs := make([]error, len(batches))
	var wg sync.WaitGroup

	for bi, batch := range batches {
		bi, batch := bi, batch
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			errs[bi] = RetryWithBackoff(ctx, func() error {
				vecs, err := embedder.EmbedTexts(ctx, batch)
				if err != nil {
					return err
				}
				if len(vecs) != len(batch) {
					return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(batch))
				}
				results[bi] = vecs
				return nil
			}, c.maxAttempts, c.baseDelay)
		})
		if submitErr != nil {
			wg.Done()
			return nil, fmt.Errorf("failed to submit embedding batch: %w", submitErr)
		}
	}
	wg.Wait()

	for bi, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d failed: %w", bi, err)
		}
	}

	var out [][]float32
	for _, vecs := range results {
		out = append(out, vecs...)
	}
	return out, nil
}

// storeVectors persists computed vectors, committing in bounded groups.
func (c *Cache) storeVectors(model string, ids []string, vectors [][]float32) error {
	for start := 0; start < len(ids); start += writeTxBatch {
		end := start + writeTxBatch
		if end > len(ids) {
			end = len(ids)
		}
		err := c.backend.WithTx(func(tx *badger.Txn) error {
			for i := start; i < end; i++ {
				if err := tx.Set(vectorKey(model, ids[i]), encodeVector(vectors[i])); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return fmt.Errorf("failed to store vectors: %w", err)
		}
	}
	return nil
}
