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
	"log/slog"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/ai/heuristic"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// It manages the embedder, classifier, and structured extractor instances.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	classifier ai.Classifier
	toc        *TOCExtractor
	coverage   *CoverageExtractor
	logger     *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use. The classification
// strategy (language model or offline heuristic) is fixed here, at
// construction, from config.ClassifierMode.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	var classifier ai.Classifier
	if config.ClassifierMode == ai.ClassifierModeHeuristic {
		classifier = heuristic.NewClassifier()
	} else {
		classifier, err = newClassifier(config)
		if err != nil {
			return nil, err
		}
	}

	toc, err := newTOCExtractor(config)
	if err != nil {
		return nil, err
	}

	coverage, err := newCoverageExtractor(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		embedder:   embedder,
		classifier: classifier,
		toc:        toc,
		coverage:   coverage,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Classifier returns the document classification service.
func (p *Provider) Classifier() ai.Classifier {
	return p.classifier
}

// TOCExtractor returns the chapter map extraction service.
func (p *Provider) TOCExtractor() ai.TOCExtractor {
	return p.toc
}

// CoverageExtractor returns the exam coverage extraction service.
func (p *Provider) CoverageExtractor() ai.CoverageExtractor {
	return p.coverage
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
