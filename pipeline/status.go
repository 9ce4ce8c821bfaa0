package pipeline

import (
	"context"

	"github.com/siongang/study-agent/registry"
)

// Status is a point-in-time summary of the corpus.
type Status struct {
	Files     int            `json:"files"`
	ByStatus  map[string]int `json:"by_status"`
	ByDocType map[string]int `json:"by_doc_type"`
	Chunks    int            `json:"chunks"`
	Required  []int          `json:"required_chapters"`
}

// Status summarizes the registry and chunk store without doing any work.
func (p *Pipeline) Status(reg *registry.Registry) (*Status, error) {
	chunks, err := p.cfg.Chunks.LoadAll()
	if err != nil {
		return nil, err
	}

	st := &Status{
		Files:     len(reg.Files),
		ByStatus:  make(map[string]int),
		ByDocType: make(map[string]int),
		Chunks:    len(chunks),
		Required:  p.RequiredChapters(reg),
	}
	for _, f := range reg.Files {
		st.ByStatus[string(f.Status)]++
		st.ByDocType[f.DocType]++
	}
	return st, nil
}

// RunAll drives the full ingestion sequence: sync, extract, classify, map
// chapters, extract coverage, chunk, and rebuild the index. Per-file stage
// failures are collected in the results; only infrastructure failures stop
// the run.
func (p *Pipeline) RunAll(ctx context.Context) (*registry.Registry, []StageResult, *IndexStats, error) {
	reg, _, err := p.Sync()
	if err != nil {
		return nil, nil, nil, err
	}

	var all []StageResult
	stages := []func(context.Context, *registry.Registry) ([]StageResult, error){
		p.ExtractAll,
		p.ClassifyAll,
		p.MapChaptersAll,
		p.ExtractCoverageAll,
		p.ChunkAll,
	}
	for _, stage := range stages {
		results, err := stage(ctx, reg)
		all = append(all, results...)
		if err != nil {
			return reg, all, nil, err
		}
	}

	stats, err := p.BuildIndex(ctx, reg)
	if err != nil {
		return reg, all, nil, err
	}

	failed := 0
	for _, r := range all {
		if r.Err != nil {
			failed++
		}
	}
	p.logger.Info("ingestion run complete",
		"files", len(reg.Files),
		"stage_results", len(all),
		"failed", failed,
		"indexed_chunks", stats.Chunks)
	return reg, all, stats, nil
}
