package models

import "fmt"

// Chunk is one page of cleaned extracted text
type Chunk struct {
	ID   string `json:"id" validate:"required"`
	Page int    `json:"page" validate:"gte=1"`
	Text string `json:"text" validate:"required"`
}

// ChunkID returns the id used for the chunk of a 1-based page number
func ChunkID(page int) string {
	return fmt.Sprintf("%s%d", ChunkIDPrefix, page)
}

// Record is a chunk with its embedding, ready to be stored in a collection
type Record struct {
	ID        string
	Page      int
	Content   string
	Embedding []float32
}

// Hit is a single top-k retrieval result, best first
type Hit struct {
	ID         string  `json:"id"`
	Page       int     `json:"page"`
	Content    string  `json:"text"`
	Similarity float32 `json:"similarity"`
}

// Turn is one user/bot exchange kept in the conversation memory
type Turn struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// PromptResponse describes one answered query
type PromptResponse struct {
	Query      string `json:"query"`
	SearchText string `json:"search_text"`
	Language   string `json:"language"`
	Hits       []Hit  `json:"hits"`
	Content    string `json:"content"`
}
