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


package studyagent

import (
	"log/slog"
	"time"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/ai/openai"
	"github.com/siongang/study-agent/chunker"
	"github.com/siongang/study-agent/chunkstore"
	"github.com/siongang/study-agent/config"
	"github.com/siongang/study-agent/embedcache"
	"github.com/siongang/study-agent/extract"
	"github.com/siongang/study-agent/pipeline"
	"github.com/siongang/study-agent/registry"
	"github.com/siongang/study-agent/search"
	"github.com/siongang/study-agent/vectorindex"
)

// Library is the assembled study corpus: the ingestion pipeline plus the
// stores and AI provider it runs against, opened from one config.
type Library struct {
	cfg      *config.AppConfig
	backend  *embedcache.Backend
	chunks   *chunkstore.Store
	provider ai.Provider
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// LibraryOption configures a Library.
type LibraryOption func(*libraryOptions)

type libraryOptions struct {
	provider ai.Provider
	codec    chunker.TokenCodec
}

// WithProvider substitutes the AI provider. Used by callers that bring
// their own models or a test double.
func WithProvider(p ai.Provider) LibraryOption {
	return func(o *libraryOptions) { o.provider = p }
}

// WithCodec substitutes the token codec the chunker counts with.
func WithCodec(c chunker.TokenCodec) LibraryOption {
	return func(o *libraryOptions) { o.codec = c }
}

// Open assembles a Library from the given config.
func Open(cfg *config.AppConfig, opts ...LibraryOption) (*Library, error) {
	options := &libraryOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Create AI provider unless one was injected
	provider := options.provider
	if provider == nil {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(cfg.AI.EmbeddingHost),
			ai.WithExtractorHost(cfg.AI.ExtractorHost),
			ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
			ai.WithExtractorModel(cfg.AI.ExtractorModel),
			ai.WithClassifierMode(ai.ClassifierMode(cfg.AI.ClassifierMode)),
			ai.WithSampleChars(cfg.AI.SampleChars),
		)
		if err := aiConfig.Validate(); err != nil {
			return nil, err
		}
		var err error
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			return nil, err
		}
	}

	// Token codec defaults to tiktoken
	codec := options.codec
	if codec == nil {
		var err error
		codec, err = chunker.NewTiktokenCodec()
		if err != nil {
			provider.Close()
			return nil, err
		}
	}

	chk, err := chunker.New(chunker.Config{
		TargetTokens:  cfg.Chunker.TargetTokens,
		MaxTokens:     cfg.Chunker.MaxTokens,
		MinTokens:     cfg.Chunker.MinTokens,
		OverlapTokens: cfg.Chunker.OverlapTokens,
	}, codec)
	if err != nil {
		provider.Close()
		return nil, err
	}

	// Open embedding cache backend
	backend, err := embedcache.OpenBackend(cfg.EmbedCacheDir(), false)
	if err != nil {
		provider.Close()
		return nil, err
	}

	cache := embedcache.New(backend,
		embedcache.WithBatchSize(cfg.Embedding.BatchSize),
		embedcache.WithPoolSize(cfg.Embedding.PoolSize),
		embedcache.WithRetry(cfg.Embedding.MaxAttempts,
			time.Duration(cfg.Embedding.RetryDelayMS)*time.Millisecond),
	)

	chunks := chunkstore.NewStore(cfg.ChunksPath())

	p, err := pipeline.New(pipeline.Config{
		UploadsDir:      cfg.Paths.UploadsDir,
		Registry:        registry.NewStore(cfg.RegistryPath(), nil),
		Extractor:       extract.NewPlainText(),
		Texts:           extract.NewStore(cfg.ExtractedTextDir()),
		Provider:        provider,
		Chunker:         chk,
		Chunks:          chunks,
		Cache:           cache,
		ChapterMapsDir:  cfg.ChapterMapsDir(),
		CoverageDir:     cfg.CoverageDir(),
		VectorIndexPath: cfg.VectorIndexPath(),
		ChunkIndexPath:  cfg.ChunkIndexPath(),
	})
	if err != nil {
		backend.Close()
		provider.Close()
		return nil, err
	}

	return &Library{
		cfg:      cfg,
		backend:  backend,
		chunks:   chunks,
		provider: provider,
		pipeline: p,
		logger:   slog.Default(),
	}, nil
}

func (l *Library) Close() error {
	if err := l.provider.Close(); err != nil {
		l.logger.Error("error closing AI provider", "err", err)
	}
	if err := l.backend.Close(); err != nil {
		l.logger.Error("error closing embedding cache backend", "err", err)
		return err
	}
	return nil
}

func (l *Library) Pipeline() *pipeline.Pipeline {
	return l.pipeline
}

func (l *Library) Provider() ai.Provider {
	return l.provider
}

// NewSearcher loads the persisted indexes and returns a searcher over them,
// guarded by a fresh retry session with the configured attempt ceiling.
// The index must have been built by a prior ingestion run.
func (l *Library) NewSearcher() (*search.Searcher, error) {
	index, err := vectorindex.Load(l.cfg.VectorIndexPath())
	if err != nil {
		return nil, err
	}
	chunkIdx, err := chunkstore.LoadIndex(l.cfg.ChunkIndexPath())
	if err != nil {
		return nil, err
	}
	return search.NewSearcher(index, chunkIdx, l.chunks, l.provider.Embedder(),
		search.WithSession(search.NewSession(l.cfg.Search.MaxAttempts))), nil
}
