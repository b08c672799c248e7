package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/models"
	"policy-rag/internal/parser"
	"policy-rag/internal/vectorstore"
)

type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// Report summarises one build
type Report struct {
	ChunksPath string        `json:"chunks_path"`
	Chunks     int           `json:"chunks"`
	Stored     int           `json:"stored"`
	Duration   time.Duration `json:"duration"`
}

// Build embeds every chunk of the file at chunksPath and replaces the store contents with them.
// Nothing is written to the store when the chunk file is missing, empty or invalid.
func Build(ctx context.Context, chunksPath string, embedder Embedder, store vectorstore.Store) (*Report, error) {
	chunks, err := parser.LoadChunks(chunksPath)
	if err != nil {
		return nil, err
	}
	report, err := Index(ctx, chunks, embedder, store)
	if err != nil {
		return nil, err
	}
	report.ChunksPath = chunksPath
	return report, nil
}

// Index embeds already validated chunks and rebuilds the store with them
func Index(ctx context.Context, chunks []models.Chunk, embedder Embedder, store vectorstore.Store) (*Report, error) {
	start := time.Now()
	log.Info().Msgf("Embedding %d chunks", len(chunks))

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	records := make([]models.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.Record{
			ID:        chunk.ID,
			Page:      chunk.Page,
			Content:   chunk.Text,
			Embedding: vectors[i],
		}
	}

	if err := store.Rebuild(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to rebuild collection: %w", err)
	}

	stored, err := store.Count(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Chunks:   len(chunks),
		Stored:   stored,
		Duration: time.Since(start),
	}
	log.Info().Int("chunks", report.Chunks).Int("stored", report.Stored).Dur("took", report.Duration).Msg("Index built")
	return report, nil
}
