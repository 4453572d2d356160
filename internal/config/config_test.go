package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://api.qnaigc.com/v1", cfg.Backend.BaseURL)
	assert.Equal(t, "deepseek-v3-0324", cfg.Backend.Model)
	assert.Equal(t, 8192, cfg.Backend.MaxTokens)
	assert.Equal(t, 3, cfg.Backend.MaxRetries)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 50, cfg.Pipeline.MaxChunkSegments)
	assert.Equal(t, 15000, cfg.Pipeline.MaxChunkChars)
	assert.Equal(t, "common_knowledge", cfg.Defaults.Subject)
	assert.Equal(t, "questions", cfg.Database.Table)
}

func TestLoadConfigOverrides(t *testing.T) {
	raw := `
backend:
  model: test-model
  max_retries: 1
pipeline:
  concurrency: 2
  dedup: true
  keep_types: [single, multiple]
defaults:
  subject: history
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-model", cfg.Backend.Model)
	assert.Equal(t, 1, cfg.Backend.MaxRetries)
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.True(t, cfg.Pipeline.Dedup)
	assert.Equal(t, []string{"single", "multiple"}, cfg.Pipeline.KeepTypes)
	assert.Equal(t, "history", cfg.Defaults.Subject)
	// untouched fields still get defaults
	assert.Equal(t, 8192, cfg.Backend.MaxTokens)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Backend.APIKey = ""
	assert.Error(t, cfg.ValidateAPIKey())

	cfg.Backend.APIKey = "sk-test"
	assert.NoError(t, cfg.ValidateAPIKey())
}
