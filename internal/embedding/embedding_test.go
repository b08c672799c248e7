package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

type countingProvider struct {
	queries   int
	documents int
	err       error
	short     bool
}

func (p *countingProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	p.documents++
	if p.err != nil {
		return nil, p.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	if p.short {
		return vectors[:len(vectors)-1], nil
	}
	return vectors, nil
}

func (p *countingProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	p.queries++
	if p.err != nil {
		return nil, p.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LLMConfig
		wantErr error
	}{
		{name: "ollama", cfg: config.LLMConfig{Provider: ProviderOllama, BaseURL: "http://localhost:11434", Model: "paraphrase-multilingual", BatchSize: 8}},
		{name: "openai", cfg: config.LLMConfig{Provider: ProviderOpenAI, BaseURL: "http://localhost:1/v1", Model: "text-embedding-3-small", Key: "Bearer sk-test", BatchSize: 8}},
		{name: "hashing", cfg: config.LLMConfig{Provider: ProviderHashing, Dimension: 16}},
		{name: "unknown", cfg: config.LLMConfig{Provider: "word2vec"}, wantErr: models.ErrUnsupportedProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(&tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, provider)
		})
	}
}

func TestNewEmbedder_Name(t *testing.T) {
	e, err := NewEmbedder(&config.LLMConfig{Provider: ProviderHashing, Dimension: 8})
	require.NoError(t, err)
	assert.Equal(t, "hashing", e.Name())

	e, err = NewEmbedder(&config.LLMConfig{Provider: ProviderOllama, BaseURL: "http://localhost:11434", Model: "bge-m3"})
	require.NoError(t, err)
	assert.Equal(t, "ollama:bge-m3", e.Name())
}

func TestEmbedOne_Cached(t *testing.T) {
	provider := &countingProvider{}
	e := New(provider, "fake", time.Minute)

	first, err := e.EmbedOne(context.Background(), "leave policy")
	require.NoError(t, err)
	second, err := e.EmbedOne(context.Background(), "leave policy")
	require.NoError(t, err)
	_, err = e.EmbedOne(context.Background(), "ছুটি")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, provider.queries)
}

func TestEmbedOne_NoCache(t *testing.T) {
	provider := &countingProvider{}
	e := New(provider, "fake", 0)

	for i := 0; i < 3; i++ {
		_, err := e.EmbedOne(context.Background(), "same text")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, provider.queries)
}

func TestEmbedOne_ErrorNotCached(t *testing.T) {
	boom := errors.New("connection refused")
	provider := &countingProvider{err: boom}
	e := New(provider, "fake", time.Minute)

	_, err := e.EmbedOne(context.Background(), "text")
	assert.ErrorIs(t, err, boom)

	provider.err = nil
	vector, err := e.EmbedOne(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, vector)
	assert.Equal(t, 2, provider.queries)
}

func TestEmbedMany(t *testing.T) {
	provider := &countingProvider{}
	e := New(provider, "fake", time.Minute)

	vectors, err := e.EmbedMany(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1}, {2, 1}, {3, 1}}, vectors)

	empty, err := e.EmbedMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 1, provider.documents, "empty input does not reach the provider")
}

func TestEmbedMany_CountMismatch(t *testing.T) {
	e := New(&countingProvider{short: true}, "fake", 0)

	_, err := e.EmbedMany(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "returned 1 vectors for 2 texts")
}
