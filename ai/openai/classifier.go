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

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/core"
)

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
type Classifier struct {
	client      llms.Model
	sampleChars int
	logger      *slog.Logger
}

// classification matches the JSON structure the model is asked to emit.
type classification struct {
	DocType    string  `json:"doc_type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
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

	return &Classifier{
		client:      client,
		sampleChars: config.SampleChars,
		logger:      slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new document classifier using the provided
// configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// Classify assigns a document type from the filename and a content sample.
func (c *Classifier) Classify(ctx context.Context, filename, sample string) (*ai.Classification, error) {
	sample = truncateRunes(sample, c.sampleChars)

	userPrompt := fmt.Sprintf("Filename: %s\n\nText sample:\n%s", filename, sample)

	var result classification
	if err := generateJSON(ctx, c.client, c.logger, classifyPrompt, userPrompt, &result); err != nil {
		return nil, err
	}

	switch result.DocType {
	case core.DocTypeTextbook, core.DocTypeExamOverview, core.DocTypeSyllabus, core.DocTypeNotes, core.DocTypeOther:
	default:
		c.logger.Warn("model returned unknown doc type, using other",
			"filename", filename,
			"doc_type", result.DocType)
		result.DocType = core.DocTypeOther
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	c.logger.Debug("classified document",
		"filename", filename,
		"doc_type", result.DocType,
		"confidence", result.Confidence)

	return &ai.Classification{
		DocType:    result.DocType,
		Confidence: result.Confidence,
		Reasoning:  result.Reasoning,
	}, nil
}
