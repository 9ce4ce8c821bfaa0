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


package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PathsConfig locates the corpus and the derived state on disk.
type PathsConfig struct {
	// UploadsDir is the directory users drop source documents into.
	UploadsDir string `yaml:"uploads_dir"`
	// StateDir holds every derived artifact: registry, extracted text,
	// chapter maps, coverage, chunks, indexes, and the embedding cache.
	StateDir string `yaml:"state_dir"`
}

// ChunkerConfig holds the token budgets for semantic chunking.
type ChunkerConfig struct {
	TargetTokens  int `yaml:"target_tokens"`
	MaxTokens     int `yaml:"max_tokens"`
	MinTokens     int `yaml:"min_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// AIConfig configures the OpenAI-compatible model endpoints.
type AIConfig struct {
	EmbeddingHost  string `yaml:"embedding_host"`
	ExtractorHost  string `yaml:"extractor_host"`
	EmbeddingModel string `yaml:"embedding_model"`
	ExtractorModel string `yaml:"extractor_model"`
	// ClassifierMode is "llm" or "heuristic".
	ClassifierMode string `yaml:"classifier_mode"`
	SampleChars    int    `yaml:"sample_chars"`
}

// EmbeddingConfig tunes the embedding cache's batching and retry behavior.
type EmbeddingConfig struct {
	BatchSize    int `yaml:"batch_size"`
	PoolSize     int `yaml:"pool_size"`
	MaxAttempts  int `yaml:"max_attempts"`
	RetryDelayMS int `yaml:"retry_delay_ms"`
}

// SearchConfig holds the retrieval defaults.
type SearchConfig struct {
	TopK        int     `yaml:"top_k"`
	MinScore    float32 `yaml:"min_score"`
	MaxAttempts int     `yaml:"max_attempts"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Paths     PathsConfig     `yaml:"paths"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	AI        AIConfig        `yaml:"ai"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
}

// Derived artifact locations, all rooted under StateDir.

func (c *AppConfig) RegistryPath() string     { return filepath.Join(c.Paths.StateDir, "registry.json") }
func (c *AppConfig) ExtractedTextDir() string { return filepath.Join(c.Paths.StateDir, "extracted_text") }
func (c *AppConfig) ChapterMapsDir() string   { return filepath.Join(c.Paths.StateDir, "chapter_maps") }
func (c *AppConfig) CoverageDir() string      { return filepath.Join(c.Paths.StateDir, "coverage") }
func (c *AppConfig) ChunksPath() string {
	return filepath.Join(c.Paths.StateDir, "chunks", "chunks.jsonl")
}
func (c *AppConfig) ChunkIndexPath() string {
	return filepath.Join(c.Paths.StateDir, "index", "chunk_index.json")
}
func (c *AppConfig) VectorIndexPath() string {
	return filepath.Join(c.Paths.StateDir, "index", "vectors.json")
}
func (c *AppConfig) EmbedCacheDir() string { return filepath.Join(c.Paths.StateDir, "embedcache") }

// Load reads a config from the given path. A missing file yields defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Paths.UploadsDir == "" {
		cfg.Paths.UploadsDir = "uploads"
	}
	if cfg.Paths.StateDir == "" {
		cfg.Paths.StateDir = ".studyagent"
	}
	if cfg.Chunker.TargetTokens == 0 {
		cfg.Chunker.TargetTokens = 700
	}
	if cfg.Chunker.MaxTokens == 0 {
		cfg.Chunker.MaxTokens = 900
	}
	if cfg.Chunker.MinTokens == 0 {
		cfg.Chunker.MinTokens = 100
	}
	if cfg.Chunker.OverlapTokens == 0 {
		cfg.Chunker.OverlapTokens = 100
	}
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = "http://localhost:11434/v1"
	}
	if cfg.AI.ExtractorHost == "" {
		cfg.AI.ExtractorHost = cfg.AI.EmbeddingHost
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "embeddinggemma"
	}
	if cfg.AI.ExtractorModel == "" {
		cfg.AI.ExtractorModel = "qwen2.5:3b"
	}
	if cfg.AI.ClassifierMode == "" {
		cfg.AI.ClassifierMode = "llm"
	}
	if cfg.AI.SampleChars == 0 {
		cfg.AI.SampleChars = 2000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.PoolSize == 0 {
		cfg.Embedding.PoolSize = 1
	}
	if cfg.Embedding.MaxAttempts == 0 {
		cfg.Embedding.MaxAttempts = 3
	}
	if cfg.Embedding.RetryDelayMS == 0 {
		cfg.Embedding.RetryDelayMS = 500
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.MinScore == 0 {
		cfg.Search.MinScore = 0.5
	}
	if cfg.Search.MaxAttempts == 0 {
		cfg.Search.MaxAttempts = 2
	}
}
