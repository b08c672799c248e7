package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	want := Default()
	want.EmbedLLM.BaseURL = "http://localhost:11434"
	want.EmbedLLM.Model = "paraphrase-multilingual"
	assert.Equal(t, want, cfg)
	assert.Equal(t, "chromem", cfg.Store.Backend)
	assert.Equal(t, "policy_chunks", cfg.Store.Collection)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, 5, cfg.RAG.MemorySize)
}

func TestLoadConfig_PartialFile(t *testing.T) {
	path := writeConfig(t, `
chunks_path: out/chunks.json
embed_llm:
  provider: hashing
  dimension: 64
  cache_ttl: 30s
rag:
  top_k: 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "out/chunks.json", cfg.ChunksPath)
	assert.Equal(t, "hashing", cfg.EmbedLLM.Provider)
	assert.Equal(t, 64, cfg.EmbedLLM.Dimension)
	assert.Equal(t, 30*time.Second, cfg.EmbedLLM.CacheTTL)
	assert.Empty(t, cfg.EmbedLLM.BaseURL, "ollama defaults only apply to the ollama provider")
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 5, cfg.RAG.MemorySize)
	assert.Equal(t, 300, cfg.Extract.OCR.DPI)
}

func TestLoadConfig_OllamaDefaultsOnlyForOllama(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantURL   string
		wantModel string
	}{
		{name: "ollama", content: "embed_llm:\n  provider: ollama\n", wantURL: "http://localhost:11434", wantModel: "paraphrase-multilingual"},
		{name: "openai", content: "embed_llm:\n  provider: openai\n"},
		{name: "openai with model", content: "embed_llm:\n  provider: openai\n  model: text-embedding-3-small\n", wantModel: "text-embedding-3-small"},
		{name: "hashing", content: "embed_llm:\n  provider: hashing\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, cfg.EmbedLLM.BaseURL)
			assert.Equal(t, tt.wantModel, cfg.EmbedLLM.Model)
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("POLICYRAG_STORE_PATH", "/tmp/vectors")
	t.Setenv("POLICYRAG_EMBED_MODEL", " bge-m3 ")
	t.Setenv("POLICYRAG_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/vectors", cfg.Store.Path)
	assert.Equal(t, "bge-m3", cfg.EmbedLLM.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown provider", content: "embed_llm:\n  provider: word2vec\n"},
		{name: "unknown backend", content: "store:\n  backend: sqlite\n"},
		{name: "unknown extract mode", content: "extract:\n  mode: magic\n"},
		{name: "short encryption key", content: "store:\n  encryption_key: secret\n"},
		{name: "negative top k", content: "rag:\n  top_k: -1\n"},
		{name: "broken yaml", content: "rag: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
