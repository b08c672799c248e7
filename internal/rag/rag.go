package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
	"policy-rag/internal/vectorstore"
)

type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// RAG answers policy questions from the nearest chunks of the collection
type RAG struct {
	store    vectorstore.Store
	embedder Embedder
	detector *LanguageDetector
	memory   *Memory
	topK     int
}

func NewRAG(store vectorstore.Store, embedder Embedder, cfg *config.RAGConfig) *RAG {
	return &RAG{
		store:    store,
		embedder: embedder,
		detector: NewLanguageDetector(),
		memory:   NewMemory(cfg.MemorySize),
		topK:     cfg.TopK,
	}
}

// BuildSearchQuery prefixes the query with the previous user query, if any,
// so that follow-ups like "what about sick leave?" keep their subject.
func (r *RAG) BuildSearchQuery(query string) string {
	last, ok := r.memory.Last()
	if !ok {
		return query
	}
	return last.User + models.SearchQuerySeparator + query
}

func (r *RAG) DetectLanguage(query string) string {
	return r.detector.Detect(query)
}

// Search embeds the context aware search text and returns the top-k hits
func (r *RAG) Search(ctx context.Context, query string) (string, []models.Hit, error) {
	searchText := r.BuildSearchQuery(query)

	queryEmbedding, err := r.embedder.EmbedOne(ctx, searchText)
	if err != nil {
		return searchText, nil, err
	}

	hits, err := r.store.Query(ctx, queryEmbedding, r.topK)
	if err != nil {
		return searchText, nil, err
	}
	return searchText, hits, nil
}

// Query answers a single user query and records the turn in memory
func (r *RAG) Query(ctx context.Context, query string) (*models.PromptResponse, error) {
	lang := r.DetectLanguage(query)

	searchText, hits, err := r.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search policy: %w", err)
	}

	log.Debug().
		Str("lang", lang).
		Str("search_text", searchText).
		Int("hits", len(hits)).
		Msg("Retrieved policy sections")

	reply := RenderReply(lang, hits)
	r.AddToMemory(query, reply)

	return &models.PromptResponse{
		Query:      query,
		SearchText: searchText,
		Language:   lang,
		Hits:       hits,
		Content:    reply,
	}, nil
}

func (r *RAG) AddToMemory(user, bot string) {
	r.memory.Add(user, bot)
}

func (r *RAG) History() []models.Turn {
	return r.memory.Turns()
}

// RenderReply formats hits with the templates of lang; unknown languages use English
func RenderReply(lang string, hits []models.Hit) string {
	if _, ok := models.HitTemplate[lang]; !ok {
		lang = models.LangEnglish
	}
	if len(hits) == 0 {
		return models.NotFoundReply[lang]
	}

	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf(models.HitTemplate[lang], hit.Page, hit.Content)
	}
	return models.HitsHeader[lang] + strings.Join(parts, models.HitSeparator)
}
