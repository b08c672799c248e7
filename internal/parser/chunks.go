package parser

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"policy-rag/internal/helper"
	"policy-rag/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteChunks stores chunks as a pretty printed UTF-8 JSON array
func WriteChunks(path string, chunks []models.Chunk) error {
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	return helper.WriteJSONFile(path, chunks)
}

// LoadChunks reads the chunk file written by the extractor.
// It fails with models.ErrFileNotFound, models.ErrNoChunks, models.ErrInvalidChunk or
// models.ErrDuplicateID before anything is embedded.
func LoadChunks(path string) ([]models.Chunk, error) {
	if err := helper.EnsureFile(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks %s: %w", path, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w in %s", models.ErrNoChunks, path)
	}
	if err := ValidateChunks(chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func ValidateChunks(chunks []models.Chunk) error {
	seen := make(map[string]int, len(chunks))
	for i, chunk := range chunks {
		if err := validate.Struct(chunk); err != nil {
			return fmt.Errorf("%w at index %d: %v", models.ErrInvalidChunk, i, err)
		}
		if prev, ok := seen[chunk.ID]; ok {
			return fmt.Errorf("%w %q at index %d and %d", models.ErrDuplicateID, chunk.ID, prev, i)
		}
		seen[chunk.ID] = i
	}
	return nil
}
