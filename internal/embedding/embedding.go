package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

const (
	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderHashing = "hashing"
)

// Embedder wraps the configured embedding provider and exposes "embed one" and "embed many".
// Single-text embeddings are memoised for the lifetime of the process.
type Embedder struct {
	provider embeddings.Embedder
	name     string
	cache    *cache.Cache
}

// NewEmbedder creates the embedder selected by cfg.Provider
func NewEmbedder(cfg *config.LLMConfig) (*Embedder, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	name := cfg.Provider
	if cfg.Model != "" {
		name += ":" + cfg.Model
	}
	return New(provider, name, cfg.CacheTTL), nil
}

// New wraps an existing provider; a zero cacheTTL disables the cache
func New(provider embeddings.Embedder, name string, cacheTTL time.Duration) *Embedder {
	e := &Embedder{provider: provider, name: name}
	if cacheTTL > 0 {
		e.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return e
}

func NewProvider(cfg *config.LLMConfig) (embeddings.Embedder, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Loaded embedder config")

	switch cfg.Provider {
	case ProviderOllama:
		embedder, err := NewOllamaEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case ProviderOpenAI:
		embedder, err := NewOpenAIEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case ProviderHashing:
		return NewHashingEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedProvider, cfg.Provider)
	}
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
	}
	return newEmbedder(llm, cfg.BatchSize)
}

// NewOpenAIEmbedder talks to any OpenAI compatible embeddings endpoint
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}
	return newEmbedder(llm, cfg.BatchSize)
}

func newEmbedder(client embeddings.EmbedderClient, batchSize int) (*embeddings.EmbedderImpl, error) {
	opts := []embeddings.Option{}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func (e *Embedder) Name() string {
	return e.name
}

// EmbedOne computes the embedding of a single text
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(text); ok {
			return cached.([]float32), nil
		}
	}

	vector, err := e.provider.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}

	if e.cache != nil {
		e.cache.Set(text, vector, cache.DefaultExpiration)
	}
	return vector, nil
}

// EmbedMany computes embeddings for texts, in order
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
