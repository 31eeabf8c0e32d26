package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
embed_llm:
  base_url: "http://localhost:11434"
  model: "nomic-embed-text:v1.5"
retriever:
  db_path: "./chromemdb"
  collection_name: "manual_chunks"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "chromem", cfg.Retriever.Backend)
	require.Equal(t, 5, cfg.Retriever.TopK)
	require.Equal(t, 3, cfg.Images.TopK)
	require.Equal(t, float32(0.35), cfg.Images.Threshold)
	require.Equal(t, 10*time.Second, cfg.Timeouts.Retrieval())
	require.Equal(t, 60*time.Second, cfg.Timeouts.Generation())
	require.Equal(t, "CLOUD", cfg.DefaultMode)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
retriever:
  backend: "postgres"
  top_k: 7
images:
  top_k: 5
  threshold: 0.5
timeouts:
  retrieval_seconds: 3
  generation_seconds: 30
default_mode: "LOCAL"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Retriever.Backend)
	require.Equal(t, 7, cfg.Retriever.TopK)
	require.Equal(t, 5, cfg.Images.TopK)
	require.Equal(t, float32(0.5), cfg.Images.Threshold)
	require.Equal(t, 3*time.Second, cfg.Timeouts.Retrieval())
	require.Equal(t, "LOCAL", cfg.DefaultMode)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		path := writeConfig(t, "retriever:\n  backend: \"sqlite\"\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("top_k out of range", func(t *testing.T) {
		path := writeConfig(t, "retriever:\n  top_k: 50\n")
		_, err := LoadConfig(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}
