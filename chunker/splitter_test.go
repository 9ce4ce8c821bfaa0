package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runeCodec counts every rune as one token. It lets tests force the
// token-window fallback with unbroken runs of characters.
type runeCodec struct{}

func (runeCodec) Count(s string) int { return len([]rune(s)) }

func (runeCodec) Encode(s string) []int {
	rs := []rune(s)
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = int(r)
	}
	return out
}

func (runeCodec) Decode(ts []int) string {
	rs := make([]rune, len(ts))
	for i, t := range ts {
		rs[i] = rune(t)
	}
	return string(rs)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.OverlapTokens = bad.MaxTokens
	assert.Error(t, bad.Validate(), "overlap must stay below the maximum")

	bad = DefaultConfig()
	bad.TargetTokens = bad.MaxTokens + 1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MinTokens = bad.TargetTokens + 1
	assert.Error(t, bad.Validate())
}

func TestSplitter_ShortTextSinglePiece(t *testing.T) {
	s, err := NewSplitter(DefaultConfig(), NewWordCodec())
	require.NoError(t, err)

	pieces := s.Split("a handful of words")
	require.Len(t, pieces, 1)
	assert.Equal(t, "a handful of words", pieces[0])
}

func TestSplitter_EmptyText(t *testing.T) {
	s, err := NewSplitter(DefaultConfig(), NewWordCodec())
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n  "))
}

func TestSplitter_RespectsMaxTokens(t *testing.T) {
	codec := NewWordCodec()
	cfg := Config{TargetTokens: 10, MaxTokens: 12, MinTokens: 1, OverlapTokens: 3}
	s, err := NewSplitter(cfg, codec)
	require.NoError(t, err)

	var b strings.Builder
	for p := 0; p < 20; p++ {
		for w := 0; w < 7; w++ {
			fmt.Fprintf(&b, "p%dw%d ", p, w)
		}
		b.WriteString("\n\n")
	}

	pieces := s.Split(b.String())
	require.NotEmpty(t, pieces)
	for i, piece := range pieces {
		assert.LessOrEqual(t, codec.Count(piece), cfg.MaxTokens, "piece %d over budget", i)
	}
}

func TestSplitter_BoundaryOverlap(t *testing.T) {
	codec := NewWordCodec()
	cfg := Config{TargetTokens: 10, MaxTokens: 12, MinTokens: 1, OverlapTokens: 4}
	s, err := NewSplitter(cfg, codec)
	require.NoError(t, err)

	// Six paragraphs of four words each.
	var paragraphs []string
	for p := 0; p < 6; p++ {
		paragraphs = append(paragraphs, fmt.Sprintf("p%da p%db p%dc p%dd", p, p, p, p))
	}
	pieces := s.Split(strings.Join(paragraphs, "\n\n"))
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		prevParts := strings.Split(pieces[i-1], "\n\n")
		carried := prevParts[len(prevParts)-1]
		assert.True(t, strings.HasPrefix(pieces[i], carried),
			"piece %d does not start with its predecessor's trailing paragraph", i)
	}
}

func TestSplitter_DisjointWhenOverlapTooSmall(t *testing.T) {
	codec := NewWordCodec()
	// Every paragraph has 8 words, overlap budget is 3: nothing fits, so
	// consecutive pieces share nothing.
	cfg := Config{TargetTokens: 10, MaxTokens: 12, MinTokens: 1, OverlapTokens: 3}
	s, err := NewSplitter(cfg, codec)
	require.NoError(t, err)

	var paragraphs []string
	for p := 0; p < 4; p++ {
		words := make([]string, 8)
		for w := range words {
			words[w] = fmt.Sprintf("p%dw%d", p, w)
		}
		paragraphs = append(paragraphs, strings.Join(words, " "))
	}
	pieces := s.Split(strings.Join(paragraphs, "\n\n"))
	require.Len(t, pieces, 4)

	joined := strings.Join(pieces, "|")
	for p := 0; p < 4; p++ {
		assert.Equal(t, 1, strings.Count(joined, fmt.Sprintf("p%dw0", p)),
			"paragraph %d duplicated across pieces", p)
	}
}

func TestSplitter_TokenWindowFallback(t *testing.T) {
	codec := runeCodec{}
	cfg := Config{TargetTokens: 80, MaxTokens: 100, MinTokens: 1, OverlapTokens: 20}
	s, err := NewSplitter(cfg, codec)
	require.NoError(t, err)

	// One unbroken run: no separator can help.
	text := strings.Repeat("x", 350)
	pieces := s.Split(text)
	require.NotEmpty(t, pieces)

	// Stride is max-overlap = 80, so windows advance without gaps.
	total := 0
	for i, piece := range pieces {
		assert.LessOrEqual(t, codec.Count(piece), cfg.MaxTokens, "window %d over budget", i)
		if i < len(pieces)-1 {
			assert.Equal(t, cfg.MaxTokens, codec.Count(piece))
			total += cfg.MaxTokens - cfg.OverlapTokens
		}
	}
	assert.Equal(t, 350, total+codec.Count(pieces[len(pieces)-1]))
}

func TestSplitter_Deterministic(t *testing.T) {
	codec := NewWordCodec()
	cfg := Config{TargetTokens: 10, MaxTokens: 12, MinTokens: 1, OverlapTokens: 3}
	s, err := NewSplitter(cfg, codec)
	require.NoError(t, err)

	var b strings.Builder
	for p := 0; p < 15; p++ {
		fmt.Fprintf(&b, "paragraph number %d with a few more words here\n\n", p)
	}

	first := s.Split(b.String())
	second := s.Split(b.String())
	assert.Equal(t, first, second)
}
