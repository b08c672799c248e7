package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/chromemdb"
	"policy-rag/internal/embedding"
	"policy-rag/internal/models"
	"policy-rag/internal/parser"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) EmbedMany(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}

func newStore(t *testing.T) *chromemdb.VectorDBManager {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager(chromemdb.Options{
		Path:       filepath.Join(t.TempDir(), "chroma_db"),
		Collection: "policy_chunks",
	})
	require.NoError(t, err)
	return store
}

func writeChunks(t *testing.T, chunks []models.Chunk) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "policy_chunks.json")
	require.NoError(t, parser.WriteChunks(path, chunks))
	return path
}

func hashing() *embedding.Embedder {
	return embedding.New(embedding.NewHashingEmbedder(64), "hashing", 0)
}

func TestBuild_Twice(t *testing.T) {
	ctx := context.Background()
	path := writeChunks(t, []models.Chunk{
		{ID: "page_1", Page: 1, Text: "Annual leave is twenty days per year."},
		{ID: "page_2", Page: 2, Text: "বার্ষিক ছুটি বিশ দিন।"},
		{ID: "page_3", Page: 3, Text: "Sick leave requires a medical certificate."},
	})
	store := newStore(t)

	for i := 0; i < 2; i++ {
		report, err := Build(ctx, path, hashing(), store)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Chunks)
		assert.Equal(t, 3, report.Stored)
		assert.Equal(t, path, report.ChunksPath)
	}
}

func TestBuild_FailsFast(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte("[]"), 0o644))

	dupPath := writeChunks(t, []models.Chunk{
		{ID: "page_1", Page: 1, Text: "a"},
		{ID: "page_1", Page: 2, Text: "b"},
	})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.json"), wantErr: models.ErrFileNotFound},
		{name: "empty array", path: emptyPath, wantErr: models.ErrNoChunks},
		{name: "duplicate id", path: dupPath, wantErr: models.ErrDuplicateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t)
			require.NoError(t, store.Rebuild(ctx, []models.Record{
				{ID: "old", Page: 1, Content: "previous build", Embedding: []float32{1, 0}},
			}))

			_, err := Build(ctx, tt.path, hashing(), store)
			assert.ErrorIs(t, err, tt.wantErr)

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "store is untouched")
		})
	}
}

func TestBuild_EmbedError(t *testing.T) {
	boom := errors.New("model not found")
	path := writeChunks(t, []models.Chunk{{ID: "page_1", Page: 1, Text: "a"}})

	_, err := Build(context.Background(), path, failingEmbedder{err: boom}, newStore(t))
	assert.ErrorIs(t, err, boom)
}

func TestIndex(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	report, err := Index(ctx, []models.Chunk{
		{ID: "page_1", Page: 1, Text: "Annual leave is twenty days per year."},
		{ID: "page_3", Page: 3, Text: "Sick leave requires a medical certificate."},
	}, hashing(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 2, report.Stored)
	assert.Empty(t, report.ChunksPath)
}
