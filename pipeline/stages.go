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
	"fmt"
	"time"

	"github.com/siongang/study-agent/core"
	"github.com/siongang/study-agent/extract"
	"github.com/siongang/study-agent/registry"
)

// ExtractAll runs extraction for every registry file that needs it.
// Extraction is the only stage that mutates a file's Status: success sets
// "processed", failure sets "error" with the reason. A failing file never
// stops the batch.
func (p *Pipeline) ExtractAll(ctx context.Context, reg *registry.Registry) ([]StageResult, error) {
	var results []StageResult
	for _, f := range reg.Files {
		res := StageResult{FileID: f.FileID, Filename: f.Filename, Stage: core.StageExtract}

		if p.cfg.Texts.Exists(f.FileID) && f.StageFresh(core.StageExtract) {
			res.Cached = true
			results = append(results, res)
			continue
		}

		text, err := p.cfg.Extractor.Extract(ctx, f, p.absPath(f.Path))
		if err == nil {
			err = p.cfg.Texts.Save(text)
		}
		if err != nil {
			f.Status = core.StatusError
			f.Error = err.Error()
			res.Err = err
			p.logger.Error("extraction failed",
				"file_id", f.FileID,
				"filename", f.Filename,
				"err", err)
			results = append(results, res)
			continue
		}

		f.MarkStage(core.StageExtract)
		f.Status = core.StatusProcessed
		f.Error = ""
		f.AppendDerived(p.cfg.Texts.Path(f.FileID))
		results = append(results, res)
	}

	if err := p.cfg.Registry.Save(reg); err != nil {
		return results, err
	}
	return results, nil
}

// ClassifyAll assigns a document type to every extracted file that needs
// one. The classification, confidence, and reasoning are persisted on the
// registry entry.
func (p *Pipeline) ClassifyAll(ctx context.Context, reg *registry.Registry) ([]StageResult, error) {
	classifier := p.cfg.Provider.Classifier()

	var results []StageResult
	for _, f := range reg.Files {
		res := StageResult{FileID: f.FileID, Filename: f.Filename, Stage: core.StageClassify}

		if f.DocType != core.DocTypeUnknown && f.StageFresh(core.StageClassify) {
			res.Cached = true
			results = append(results, res)
			continue
		}

		text, err := p.cfg.Texts.Load(f.FileID)
		if err != nil {
			res.Err = fmt.Errorf("classify needs extraction first: %w", err)
			results = append(results, res)
			continue
		}

		classification, err := classifier.Classify(ctx, f.Filename, text.FullText)
		if err != nil {
			res.Err = err
			p.logger.Error("classification failed", "file_id", f.FileID, "err", err)
			results = append(results, res)
			continue
		}

		f.DocType = classification.DocType
		f.DocConfidence = classification.Confidence
		f.DocReasoning = classification.Reasoning
		f.MarkStage(core.StageClassify)
		results = append(results, res)
	}

	if err := p.cfg.Registry.Save(reg); err != nil {
		return results, err
	}
	return results, nil
}

// MapChaptersAll derives a chapter map for every textbook that needs one.
// Non-textbooks are not eligible and produce no result. A textbook with no
// detectable TOC gets an empty chapter map artifact; that is a completed
// stage, not a failure.
func (p *Pipeline) MapChaptersAll(ctx context.Context, reg *registry.Registry) ([]StageResult, error) {
	extractor := p.cfg.Provider.TOCExtractor()

	var results []StageResult
	for _, f := range reg.Files {
		if f.DocType != core.DocTypeTextbook {
			continue
		}
		res := StageResult{FileID: f.FileID, Filename: f.Filename, Stage: core.StageChapterMap}

		if artifactExists(p.cfg.ChapterMapsDir, f.FileID) && f.StageFresh(core.StageChapterMap) {
			res.Cached = true
			results = append(results, res)
			continue
		}

		text, err := p.cfg.Texts.Load(f.FileID)
		if err != nil {
			res.Err = fmt.Errorf("chapter mapping needs extraction first: %w", err)
			results = append(results, res)
			continue
		}

		var chapterMap *core.ChapterMap
		tocPages, tocText := extract.DetectTOCPages(text)
		if len(tocPages) == 0 {
			p.logger.Info("no table of contents detected", "file_id", f.FileID)
			chapterMap = &core.ChapterMap{
				FileID:      f.FileID,
				Filename:    f.Filename,
				DocType:     f.DocType,
				ExtractedAt: time.Now().UTC(),
				Notes:       "no table of contents detected",
			}
		} else {
			chapterMap, err = extractor.ExtractChapterMap(ctx, f, tocPages, tocText, text.NumPages)
			if err != nil {
				res.Err = err
				p.logger.Error("chapter map extraction failed", "file_id", f.FileID, "err", err)
				results = append(results, res)
				continue
			}
		}

		if err := saveJSON(p.cfg.ChapterMapsDir, f.FileID, chapterMap); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		f.MarkStage(core.StageChapterMap)
		f.AppendDerived(p.cfg.ChapterMapsDir + "/" + f.FileID + ".json")
		results = append(results, res)
	}

	if err := p.cfg.Registry.Save(reg); err != nil {
		return results, err
	}
	return results, nil
}

// ExtractCoverageAll derives exam coverage for every exam overview that
// needs it.
func (p *Pipeline) ExtractCoverageAll(ctx context.Context, reg *registry.Registry) ([]StageResult, error) {
	extractor := p.cfg.Provider.CoverageExtractor()

	var results []StageResult
	for _, f := range reg.Files {
		if f.DocType != core.DocTypeExamOverview {
			continue
		}
		res := StageResult{FileID: f.FileID, Filename: f.Filename, Stage: core.StageCoverage}

		if artifactExists(p.cfg.CoverageDir, f.FileID) && f.StageFresh(core.StageCoverage) {
			res.Cached = true
			results = append(results, res)
			continue
		}

		text, err := p.cfg.Texts.Load(f.FileID)
		if err != nil {
			res.Err = fmt.Errorf("coverage needs extraction first: %w", err)
			results = append(results, res)
			continue
		}

		coverage, err := extractor.ExtractCoverage(ctx, f, text.FullText)
		if err != nil {
			res.Err = err
			p.logger.Error("coverage extraction failed", "file_id", f.FileID, "err", err)
			results = append(results, res)
			continue
		}

		if err := saveJSON(p.cfg.CoverageDir, f.FileID, coverage); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		f.MarkStage(core.StageCoverage)
		f.AppendDerived(p.cfg.CoverageDir + "/" + f.FileID + ".json")
		results = append(results, res)
	}

	if err := p.cfg.Registry.Save(reg); err != nil {
		return results, err
	}
	return results, nil
}

// ChunkAll chunks every textbook that needs it, scoped to the chapters the
// known exams require. A file whose chunk stage is fresh reports its
// current chunk count from the store instead of re-chunking.
func (p *Pipeline) ChunkAll(ctx context.Context, reg *registry.Registry) ([]StageResult, error) {
	required := p.RequiredChapters(reg)

	var results []StageResult
	for _, f := range reg.Files {
		if f.DocType != core.DocTypeTextbook {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := StageResult{FileID: f.FileID, Filename: f.Filename, Stage: core.StageChunk}

		if f.StageFresh(core.StageChunk) {
			existing, err := p.cfg.Chunks.ByFile(f.FileID)
			if err != nil {
				return results, err
			}
			res.Cached = true
			res.Chunks = len(existing)
			results = append(results, res)
			continue
		}

		text, err := p.cfg.Texts.Load(f.FileID)
		if err != nil {
			res.Err = fmt.Errorf("chunking needs extraction first: %w", err)
			results = append(results, res)
			continue
		}

		chapterMap, err := p.loadChapterMap(f.FileID)
		if err != nil {
			chapterMap = nil
		}

		chunks, err := p.cfg.Chunker.ChunkFile(f, text, chapterMap, required)
		if err != nil {
			res.Err = err
			p.logger.Error("chunking failed", "file_id", f.FileID, "err", err)
			results = append(results, res)
			continue
		}

		if len(chunks) > 0 {
			if _, err := p.cfg.Chunks.Append(chunks); err != nil {
				res.Err = err
				results = append(results, res)
				continue
			}
			f.AppendDerived(p.cfg.Chunks.Path())
		}
		f.MarkStage(core.StageChunk)
		res.Chunks = len(chunks)
		results = append(results, res)
	}

	if err := p.cfg.Registry.Save(reg); err != nil {
		return results, err
	}
	return results, nil
}
