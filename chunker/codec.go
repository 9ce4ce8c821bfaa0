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
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCodec measures and slices text in model tokens. All splitter size
// budgets are expressed through a codec so that chunk sizes line up with
// what the embedding model actually sees.
type TokenCodec interface {
	// Count returns the number of tokens in text.
	Count(text string) int

	// Encode converts text to its token ids.
	Encode(text string) []int

	// Decode converts token ids back to text.
	Decode(tokens []int) string
}

// TiktokenCodec counts tokens with the cl100k_base BPE encoding.
type TiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCodec loads the cl100k_base encoding. The first call may fetch
// the BPE ranks over the network unless a tiktoken cache directory is
// configured.
func NewTiktokenCodec() (*TiktokenCodec, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TiktokenCodec{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (c *TiktokenCodec) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Encode converts text to BPE token ids.
func (c *TiktokenCodec) Encode(text string) []int {
	return c.enc.Encode(text, nil, nil)
}

// Decode converts BPE token ids back to text.
func (c *TiktokenCodec) Decode(tokens []int) string {
	return c.enc.Decode(tokens)
}

// WordCodec treats whitespace-separated words as tokens. It needs no
// network access and is fully deterministic, which makes it the codec of
// choice for tests and offline runs.
type WordCodec struct {
	mu    sync.Mutex
	ids   map[string]int
	words []string
}

// NewWordCodec creates an empty word codec.
func NewWordCodec() *WordCodec {
	return &WordCodec{ids: make(map[string]int)}
}

// Count returns the number of whitespace-separated words in text.
func (c *WordCodec) Count(text string) int {
	return len(strings.Fields(text))
}

// Encode maps each word to a stable id within this codec instance.
func (c *WordCodec) Encode(text string) []int {
	c.mu.Lock()
	defer c.mu.Unlock()

	fields := strings.Fields(text)
	tokens := make([]int, len(fields))
	for i, w := range fields {
		id, ok := c.ids[w]
		if !ok {
			id = len(c.words)
			c.ids[w] = id
			c.words = append(c.words, w)
		}
		tokens[i] = id
	}
	return tokens
}

// Decode joins the words for the given ids with single spaces.
func (c *WordCodec) Decode(tokens []int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	words := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id >= 0 && id < len(c.words) {
			words = append(words, c.words[id])
		}
	}
	return strings.Join(words, " ")
}
