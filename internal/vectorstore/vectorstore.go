package vectorstore

import (
	"context"
	"fmt"

	"policy-rag/internal/chromemdb"
	"policy-rag/internal/config"
	"policy-rag/internal/db"
	"policy-rag/internal/helper"
	"policy-rag/internal/models"
)

const (
	BackendChromem  = "chromem"
	BackendPgvector = "pgvector"
)

// Store is a named collection of embedded chunks
type Store interface {
	// Rebuild deletes every prior entry, then inserts records
	Rebuild(ctx context.Context, records []models.Record) error
	// Query returns up to topK hits, best first
	Query(ctx context.Context, embedding []float32, topK int) ([]models.Hit, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

var (
	_ Store = (*chromemdb.VectorDBManager)(nil)
	_ Store = (*db.Store)(nil)
)

// Open returns the backend selected by cfg.Store.Backend
func Open(cfg *config.Config) (Store, error) {
	switch cfg.Store.Backend {
	case BackendChromem, "":
		return OpenChromem(&cfg.Store)
	case BackendPgvector:
		return db.Open(&cfg.Database, cfg.Store.Collection)
	default:
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedBackend, cfg.Store.Backend)
	}
}

func OpenChromem(cfg *config.StoreConfig) (*chromemdb.VectorDBManager, error) {
	if !cfg.InMemory {
		if err := helper.CreateFolder(cfg.Path); err != nil {
			return nil, err
		}
	}
	return chromemdb.NewVectorDBManager(chromemdb.Options{
		Path:          cfg.Path,
		Collection:    cfg.Collection,
		InMemory:      cfg.InMemory,
		Compress:      cfg.Compress,
		EncryptionKey: cfg.EncryptionKey,
	})
}
