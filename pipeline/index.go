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


package pipeline

import (
	"context"

	"github.com/siongang/study-agent/chunkstore"
	"github.com/siongang/study-agent/core"
	"github.com/siongang/study-agent/embedcache"
	"github.com/siongang/study-agent/registry"
	"github.com/siongang/study-agent/vectorindex"
)

// IndexStats summarizes one index build.
type IndexStats struct {
	Chunks    int             `json:"chunks"`
	Embedding embedcache.Stats `json:"embedding"`
}

// BuildIndex embeds the current chunk generation (through the cache) and
// rebuilds the vector index and the chunk metadata index wholesale. The
// files whose chunks were indexed get their embed stage marked.
func (p *Pipeline) BuildIndex(ctx context.Context, reg *registry.Registry) (*IndexStats, error) {
	chunks, err := p.cfg.Chunks.LoadAll()
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	fileIDs := make(map[string]bool)
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ChunkID
		fileIDs[c.FileID] = true
	}

	embedder := p.cfg.Provider.Embedder()
	vectors, stats, err := p.cfg.Cache.GetOrCompute(ctx, texts, embedder)
	if err != nil {
		return nil, err
	}

	index, err := vectorindex.Build(embedder.Model(), ids, vectors)
	if err != nil {
		return nil, err
	}
	if err := index.Save(p.cfg.VectorIndexPath); err != nil {
		return nil, err
	}

	chunkIdx, err := p.cfg.Chunks.BuildIndex()
	if err != nil {
		return nil, err
	}
	if err := chunkstore.SaveIndex(p.cfg.ChunkIndexPath, chunkIdx); err != nil {
		return nil, err
	}

	for _, f := range reg.Files {
		if fileIDs[f.FileID] {
			f.MarkStage(core.StageEmbed)
			f.AppendDerived(p.cfg.VectorIndexPath)
		}
	}
	if err := p.cfg.Registry.Save(reg); err != nil {
		return nil, err
	}

	p.logger.Info("index rebuilt",
		"chunks", len(chunks),
		"cached", stats.Cached,
		"computed", stats.Computed)
	return &IndexStats{Chunks: len(chunks), Embedding: stats}, nil
}
