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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/core"
)

// CoverageExtractor implements ai.CoverageExtractor using OpenAI-compatible
// chat APIs.
type CoverageExtractor struct {
	client llms.Model
	logger *slog.Logger
}

// coverageResult matches the JSON structure the model is asked to emit.
type coverageResult struct {
	ExamID   string               `json:"exam_id"`
	ExamName string               `json:"exam_name"`
	ExamDate string               `json:"exam_date"`
	Chapters []int                `json:"chapters"`
	Topics   []core.ChapterTopics `json:"topics"`
}

// newCoverageExtractor is an internal constructor that returns the concrete
// type. Used by Provider to manage the instance.
func newCoverageExtractor(config *ai.Config) (*CoverageExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken("none"),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &CoverageExtractor{
		client: client,
		logger: slog.Default().With("component", "openai-coverage"),
	}, nil
}

// NewCoverageExtractor creates a new coverage extractor using the provided
// configuration.
//
// Returns ai.CoverageExtractor interface to enforce abstraction.
func NewCoverageExtractor(config *ai.Config) (ai.CoverageExtractor, error) {
	return newCoverageExtractor(config)
}

// ExtractCoverage derives which exam the overview describes and which
// chapters it covers. The result is normalized: lowercase underscored exam
// id, chapters de-duplicated and sorted.
func (e *CoverageExtractor) ExtractCoverage(ctx context.Context, file *core.SourceFile, text string) (*core.ExamCoverage, error) {
	userPrompt := fmt.Sprintf("Filename: %s\n\nDocument text:\n%s", file.Filename, text)

	var result coverageResult
	if err := generateJSON(ctx, e.client, e.logger, coveragePrompt, userPrompt, &result); err != nil {
		return nil, err
	}

	coverage := &core.ExamCoverage{
		ExamID:       result.ExamID,
		ExamName:     result.ExamName,
		ExamDate:     result.ExamDate,
		Chapters:     result.Chapters,
		Topics:       result.Topics,
		SourceFileID: file.FileID,
		GeneratedAt:  time.Now().UTC(),
	}
	coverage.Normalize()

	if err := core.ValidateCoverage(coverage); err != nil {
		return nil, err
	}

	e.logger.Info("extracted exam coverage",
		"file_id", file.FileID,
		"exam_id", coverage.ExamID,
		"chapters", coverage.Chapters)
	return coverage, nil
}
