package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
	assert.Equal(t, ClassifierModeLLM, cfg.ClassifierMode)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig_Options(t *testing.T) {
	cfg := NewConfig(
		WithHost("http://ollama:11434"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithExtractorModel("gpt-4o-mini"),
		WithClassifierMode(ClassifierModeHeuristic),
		WithSampleChars(500),
	)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://ollama:11434/v1", cfg.EmbeddingHost, "Validate normalizes the /v1 suffix")
	assert.Equal(t, "http://ollama:11434/v1", cfg.ExtractorHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, ClassifierModeHeuristic, cfg.ClassifierMode)
	assert.Equal(t, 500, cfg.SampleChars)
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewConfig()
	cfg.EmbeddingModel = ""
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.ClassifierMode = "magic"
	assert.Error(t, cfg.Validate())

	cfg = NewConfig()
	cfg.SampleChars = 0
	assert.Error(t, cfg.Validate())
}
