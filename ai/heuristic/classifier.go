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


// Package heuristic classifies documents from filename and keyword signals
// alone. It makes no network calls, so classification stays available when
// no language model is configured and its results are fully deterministic.
package heuristic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siongang/study-agent/ai"
	"github.com/siongang/study-agent/core"
)

// rule maps trigger keywords to a document type. Filename hits score higher
// than content hits because filenames are deliberate.
type rule struct {
	docType  string
	filename []string
	content  []string
}

var rules = []rule{
	{
		docType:  core.DocTypeExamOverview,
		filename: []string{"exam", "midterm", "final", "quiz", "test_overview"},
		content:  []string{"exam covers", "the exam will cover", "topics covered", "exam date", "closed book", "open book"},
	},
	{
		docType:  core.DocTypeSyllabus,
		filename: []string{"syllabus", "course_outline", "outline"},
		content:  []string{"office hours", "grading policy", "course schedule", "prerequisites", "late policy"},
	},
	{
		docType:  core.DocTypeNotes,
		filename: []string{"notes", "lecture", "slides"},
		content:  []string{"lecture", "recap", "summary of"},
	},
	{
		docType:  core.DocTypeTextbook,
		filename: []string{"textbook", "book", "edition"},
		content:  []string{"table of contents", "chapter 1", "chapter one", "preface", "isbn"},
	},
}

const (
	filenameWeight = 3
	contentWeight  = 1
)

// Classifier implements ai.Classifier without a language model.
type Classifier struct {
	logger *slog.Logger
}

// NewClassifier creates the offline classifier.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier() ai.Classifier {
	return &Classifier{
		logger: slog.Default().With("component", "heuristic-classifier"),
	}
}

// Classify scores each document type from keyword hits in the filename and
// sample text and returns the best match. Documents matching no rule
// classify as "other" with low confidence.
func (c *Classifier) Classify(ctx context.Context, filename, sample string) (*ai.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lowerName := strings.ToLower(filename)
	lowerSample := strings.ToLower(sample)

	bestType := core.DocTypeOther
	bestScore := 0
	var bestHits []string

	for _, r := range rules {
		score := 0
		var hits []string
		for _, kw := range r.filename {
			if strings.Contains(lowerName, kw) {
				score += filenameWeight
				hits = append(hits, "filename:"+kw)
			}
		}
		for _, kw := range r.content {
			if strings.Contains(lowerSample, kw) {
				score += contentWeight
				hits = append(hits, "content:"+kw)
			}
		}
		if score > bestScore {
			bestType = r.docType
			bestScore = score
			bestHits = hits
		}
	}

	confidence := 0.2
	switch {
	case bestScore >= filenameWeight+contentWeight:
		confidence = 0.8
	case bestScore >= filenameWeight:
		confidence = 0.6
	case bestScore > 0:
		confidence = 0.4
	}

	reasoning := "no keyword signals matched"
	if bestScore > 0 {
		reasoning = fmt.Sprintf("matched %s", strings.Join(bestHits, ", "))
	}

	c.logger.Debug("classified document",
		"filename", filename,
		"doc_type", bestType,
		"score", bestScore)

	return &ai.Classification{
		DocType:    bestType,
		Confidence: confidence,
		Reasoning:  reasoning,
	}, nil
}
