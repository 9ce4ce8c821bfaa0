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


package chunker

import (
	"fmt"
	"log/slog"
	"strings"
)

// separators are tried in order, from strongest structural boundary to
// weakest. The empty separator is the signal to give up on boundaries and
// fall back to fixed token windows.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// maxSplitDepth bounds separator recursion. Pathological inputs (one giant
// unbroken token run) hit the bound and fall back to token windows instead
// of recursing further.
const maxSplitDepth = 8

// Config holds the splitter's token budgets.
type Config struct {
	// TargetTokens is the size the splitter aims for when merging segments.
	TargetTokens int
	// MaxTokens is the hard upper bound; no emitted piece exceeds it.
	MaxTokens int
	// MinTokens is the viability floor; smaller chunks are discarded.
	MinTokens int
	// OverlapTokens is the boundary-snapped overlap budget between
	// consecutive chunks.
	OverlapTokens int
}

// DefaultConfig returns the standard token budgets.
func DefaultConfig() Config {
	return Config{
		TargetTokens:  700,
		MaxTokens:     900,
		MinTokens:     100,
		OverlapTokens: 100,
	}
}

// Validate checks budget sanity. Overlap must be strictly smaller than the
// maximum or the token-window fallback could never advance.
func (c Config) Validate() error {
	if c.MaxTokens < 1 {
		return fmt.Errorf("%w: MaxTokens must be positive", ErrInvalidConfig)
	}
	if c.TargetTokens < 1 || c.TargetTokens > c.MaxTokens {
		return fmt.Errorf("%w: TargetTokens must be in [1, MaxTokens]", ErrInvalidConfig)
	}
	if c.MinTokens < 0 || c.MinTokens > c.TargetTokens {
		return fmt.Errorf("%w: MinTokens must be in [0, TargetTokens]", ErrInvalidConfig)
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.MaxTokens {
		return fmt.Errorf("%w: OverlapTokens must be in [0, MaxTokens)", ErrInvalidConfig)
	}
	return nil
}

// Splitter cuts text into pieces of at most MaxTokens tokens, preferring
// natural boundaries (paragraphs, lines, sentences, words) and carrying a
// boundary-snapped overlap between consecutive pieces.
type Splitter struct {
	cfg    Config
	codec  TokenCodec
	logger *slog.Logger
}

// NewSplitter creates a splitter. The config is validated up front; a
// misconfigured overlap fails here, not mid-document.
func NewSplitter(cfg Config, codec TokenCodec) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{
		cfg:    cfg,
		codec:  codec,
		logger: slog.Default().With("component", "splitter"),
	}, nil
}

// Split cuts text into pieces of at most MaxTokens tokens. Identical input
// always produces identical output.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, 0, 0)
}

func (s *Splitter) split(text string, sepIdx, depth int) []string {
	if s.codec.Count(text) <= s.cfg.MaxTokens {
		return []string{text}
	}

	if depth >= maxSplitDepth || sepIdx >= len(separators) || separators[sepIdx] == "" {
		return s.tokenWindows(text)
	}

	sep := separators[sepIdx]
	parts := strings.Split(text, sep)

	// Expand any part that alone exceeds the budget at the next weaker
	// boundary before merging.
	var segments []string
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if s.codec.Count(part) > s.cfg.MaxTokens {
			segments = append(segments, s.split(part, sepIdx+1, depth+1)...)
			continue
		}
		segments = append(segments, part)
	}

	return s.mergeWithOverlap(segments, sep)
}

// mergeWithOverlap greedily packs segments up to the target budget and
// seeds each following piece with the trailing segments of its predecessor,
// as many as fit the overlap budget. The overlap snaps to segment
// boundaries; when even the last segment is bigger than the budget the
// overlap is empty and the pieces are simply disjoint.
func (s *Splitter) mergeWithOverlap(segments []string, sep string) []string {
	counts := make([]int, len(segments))
	for i, seg := range segments {
		counts[i] = s.codec.Count(seg)
	}

	var pieces []string
	var cur []string
	var curCounts []int
	curTokens := 0
	// seeded counts the leading segments of cur carried over as overlap.
	// A piece is only emitted when it holds at least one segment beyond
	// the carried overlap, so no piece is a pure repeat of its predecessor.
	seeded := 0

	flush := func() {
		pieces = append(pieces, strings.Join(cur, sep))

		var tail []string
		var tailCounts []int
		tailTokens := 0
		for i := len(cur) - 1; i >= 0; i-- {
			if tailTokens+curCounts[i] > s.cfg.OverlapTokens {
				break
			}
			tail = append([]string{cur[i]}, tail...)
			tailCounts = append([]int{curCounts[i]}, tailCounts...)
			tailTokens += curCounts[i]
		}
		if len(tail) == 0 && s.cfg.OverlapTokens > 0 {
			s.logger.Debug("no segment fits the overlap budget, pieces are disjoint",
				"overlap_tokens", s.cfg.OverlapTokens)
		}
		cur = tail
		curCounts = tailCounts
		curTokens = tailTokens
		seeded = len(tail)
	}

	for i, seg := range segments {
		if len(cur) > seeded && curTokens+counts[i] > s.cfg.TargetTokens {
			flush()
		}
		if len(cur) > 0 && curTokens+counts[i] > s.cfg.MaxTokens {
			// The hard bound beats the overlap carry.
			cur = nil
			curCounts = nil
			curTokens = 0
			seeded = 0
		}
		cur = append(cur, seg)
		curCounts = append(curCounts, counts[i])
		curTokens += counts[i]
	}
	if len(cur) > seeded {
		pieces = append(pieces, strings.Join(cur, sep))
	}
	return pieces
}

// tokenWindows is the last-resort split: fixed windows of MaxTokens tokens
// advancing by MaxTokens-OverlapTokens, so consecutive windows share
// exactly the overlap budget.
func (s *Splitter) tokenWindows(text string) []string {
	tokens := s.codec.Encode(text)
	stride := s.cfg.MaxTokens - s.cfg.OverlapTokens

	var out []string
	for start := 0; start < len(tokens); start += stride {
		end := start + s.cfg.MaxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, s.codec.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}

	s.logger.Debug("token window fallback",
		"tokens", len(tokens),
		"windows", len(out))
	return out
}
