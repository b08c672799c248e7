package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const defaultHashingDimension = 384

// letters, combining marks (Bangla vowel signs) and digits
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}]+`)

// HashingEmbedder is an offline embedder: lower-cased tokens are hashed into a fixed number of
// buckets and the term-frequency vector is L2 normalised. It needs no model and no corpus
// preparation, so vectors stay comparable across processes.
type HashingEmbedder struct {
	dimension int
}

func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = defaultHashingDimension
	}
	return &HashingEmbedder{dimension: dimension}
}

func (h *HashingEmbedder) Dimension() int {
	return h.dimension
}

func (h *HashingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = h.embed(text)
	}
	return vectors, nil
}

func (h *HashingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.embed(text), nil
}

// text without any token maps to the zero vector
func (h *HashingEmbedder) embed(text string) []float32 {
	vector := make([]float32, h.dimension)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		vector[h.bucket(token)]++
	}
	return normalize(vector)
}

func (h *HashingEmbedder) bucket(token string) int {
	f := fnv.New32a()
	_, _ = f.Write([]byte(token))
	return int(f.Sum32() % uint32(h.dimension))
}

func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vector
	}
	norm := math.Sqrt(sum)
	for i, v := range vector {
		vector[i] = float32(float64(v) / norm)
	}
	return vector
}
