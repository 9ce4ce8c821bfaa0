package openai

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siongang/study-agent/core"
)

func TestSanitizeChapters(t *testing.T) {
	in := []core.ChapterInfo{
		{Chapter: 2, Title: "Processes", PageStart: 30, PageEnd: 0},
		{Chapter: 1, Title: "Intro", PageStart: 1, PageEnd: 0},
		{Chapter: 3, Title: "Memory", PageStart: 61, PageEnd: 500},
		{Chapter: 4, Title: "Broken", PageStart: 90, PageEnd: 80},
	}

	out := sanitizeChapters(in, 120, slog.Default())

	require.Len(t, out, 3, "inverted entry dropped")
	assert.Equal(t, 1, out[0].Chapter)
	assert.Equal(t, 29, out[0].PageEnd, "end filled from next chapter's start")
	assert.Equal(t, 60, out[1].PageEnd)
	assert.Equal(t, 120, out[2].PageEnd, "end clamped to document length")
}

func TestRepairJSON(t *testing.T) {
	broken := `{concept": "dog", type": "animal"}`
	fixed := repairJSON(broken)
	assert.Equal(t, `{"concept": "dog", "type": "animal"}`, fixed)

	valid := `{"a": 1}`
	assert.Equal(t, valid, repairJSON(valid))
}
