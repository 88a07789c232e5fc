package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/dedupd/pkg/dedupe"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.90, cfg.Engine.SimilarityThreshold)
	assert.Equal(t, 0.85, cfg.Engine.ReviewThreshold)
	assert.Equal(t, "ignore", cfg.Engine.ReviewPolicy)
	assert.Equal(t, 2000, cfg.Engine.BruteForceLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  similarity_threshold: 0.95
  review_policy: flag
logging:
  level: debug
  format: console
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.95, cfg.Engine.SimilarityThreshold)
	assert.Equal(t, "flag", cfg.Engine.ReviewPolicy)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	// Untouched fields keep defaults.
	assert.Equal(t, 0.85, cfg.Engine.ReviewThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  similarity_threshold: 0.95\n"), 0o600))

	t.Setenv("DEDUPD_ENGINE_SIMILARITY_THRESHOLD", "0.97")
	t.Setenv("DEDUPD_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.97, cfg.Engine.SimilarityThreshold)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadSubDefaultSimilarityThreshold(t *testing.T) {
	// A threshold below the default review bound is a valid configuration.
	t.Setenv("DEDUPD_ENGINE_SIMILARITY_THRESHOLD", "0.8")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Engine.SimilarityThreshold)

	_, err = dedupe.NewEngine(cfg.EngineConfig(), nil)
	require.NoError(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DEDUPD_ENGINE_SIMILARITY_THRESHOLD", "1.5")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestEngineConfigConversion(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Engine.ReviewPolicy = "flag"

	engine := cfg.EngineConfig()
	assert.Equal(t, dedupe.ReviewPolicyFlag, engine.ReviewPolicy)
	assert.Equal(t, cfg.Engine.SimilarityThreshold, engine.SimilarityThreshold)
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "engine.similarity_threshold", envTransform("DEDUPD_ENGINE_SIMILARITY_THRESHOLD"))
	assert.Equal(t, "logging.level", envTransform("DEDUPD_LOGGING_LEVEL"))
}
