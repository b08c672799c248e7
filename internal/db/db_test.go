package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

func TestConnectDB_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
	}{
		{name: "missing dsn", cfg: config.DatabaseConfig{Driver: DriverPgdriver}},
		{name: "unknown driver", cfg: config.DatabaseConfig{DSN: "postgres://localhost/policy", Driver: "mysql"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConnectDB(&tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConnectDB_Drivers(t *testing.T) {
	for _, driver := range []string{DriverPgdriver, DriverPq} {
		t.Run(driver, func(t *testing.T) {
			sqldb, err := ConnectDB(&config.DatabaseConfig{
				DSN:    "postgres://postgres@localhost:5432/policy?sslmode=disable",
				Driver: driver,
			})
			require.NoError(t, err)
			assert.NoError(t, sqldb.Close())
		})
	}
}

func TestIsZero(t *testing.T) {
	assert.True(t, isZero(nil))
	assert.True(t, isZero([]float32{0, 0}))
	assert.False(t, isZero([]float32{0, 0.1}))
}

// runs against a real pgvector database when POLICYRAG_TEST_PG_DSN is set
func TestStore_Postgres(t *testing.T) {
	dsn := os.Getenv("POLICYRAG_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("POLICYRAG_TEST_PG_DSN not set")
	}

	ctx := context.Background()
	store, err := Open(&config.DatabaseConfig{DSN: dsn, Driver: DriverPgdriver}, "policy_chunks_test")
	require.NoError(t, err)
	defer store.Close()

	records := []models.Record{
		{ID: "page_1", Page: 1, Content: "annual leave", Embedding: []float32{1, 0, 0}},
		{ID: "page_2", Page: 2, Content: "sick leave", Embedding: []float32{0, 1, 0}},
	}
	require.NoError(t, store.Rebuild(ctx, records))
	require.NoError(t, store.Rebuild(ctx, records))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := store.Query(ctx, []float32{0, 1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "page_2", hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-5)

	require.NoError(t, store.Rebuild(ctx, nil))
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
