package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/models"
)

// Options selects where and how the chromem database is kept
type Options struct {
	Path          string
	Collection    string
	InMemory      bool
	Compress      bool
	EncryptionKey string
}

// VectorDBManager encapsulates the chromem-go database operations on a single named collection
type VectorDBManager struct {
	db         *chromem.DB
	collection *chromem.Collection
	opts       Options
}

// records always carry their embedding, so chromem never has to compute one
var errNoEmbedding = errors.New("documents must be stored with a precomputed embedding")

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbedding
}

// NewVectorDBManager opens (or creates) the database and the configured collection
func NewVectorDBManager(opts Options) (*VectorDBManager, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	var db *chromem.DB
	if opts.InMemory {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(opts.Path, opts.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	m := &VectorDBManager{db: db, opts: opts}
	if _, err := m.GetOrCreateCollection(); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.opts.Collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// Rebuild replaces the whole collection with records
func (m *VectorDBManager) Rebuild(ctx context.Context, records []models.Record) error {
	if err := m.DeleteCollection(); err != nil {
		return err
	}
	if _, err := m.GetOrCreateCollection(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ID,
			Metadata:  map[string]string{models.PageMetadata: strconv.Itoa(r.Page)},
			Content:   r.Content,
			Embedding: r.Embedding,
		}
	}

	log.Debug().Str("collection", m.opts.Collection).Int("documents", len(docs)).Msg("Adding documents")
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query returns the topK records most similar to embedding, best first
func (m *VectorDBManager) Query(ctx context.Context, embedding []float32, topK int) ([]models.Hit, error) {
	count := m.collection.Count()
	if count == 0 || topK <= 0 || isZero(embedding) {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := m.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: embedding,
		NResults:       topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	hits := make([]models.Hit, 0, len(results))
	for _, r := range results {
		page, err := strconv.Atoi(r.Metadata[models.PageMetadata])
		if err != nil {
			log.Warn().Str("id", r.ID).Msg("Document without a valid page number")
		}
		hits = append(hits, models.Hit{
			ID:         r.ID,
			Page:       page,
			Content:    r.Content,
			Similarity: r.Similarity,
		})
	}
	return hits, nil
}

func (m *VectorDBManager) Count(_ context.Context) (int, error) {
	return m.collection.Count(), nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.opts.Collection); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// ExportPath is the default backup file, next to the database directory
func (m *VectorDBManager) ExportPath() string {
	name := m.opts.Collection + ".chromem"
	if m.opts.Compress {
		name += ".gz"
	}
	if m.opts.EncryptionKey != "" {
		name += ".enc"
	}
	return filepath.Join(m.opts.Path, name)
}

// export to file
func (m *VectorDBManager) Export(_ context.Context, filePath string) error {
	if filePath == "" {
		filePath = m.ExportPath()
	}

	log.Debug().
		Str("collection", m.opts.Collection).
		Str("file", filePath).
		Bool("compress", m.opts.Compress).
		Bool("encrypted", m.opts.EncryptionKey != "").
		Msg("Exporting collection")

	err := m.db.ExportToFile(filePath, m.opts.Compress, m.opts.EncryptionKey, m.opts.Collection)
	if err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// import from file, replacing the collection
func (m *VectorDBManager) Import(_ context.Context, filePath string) error {
	if filePath == "" {
		filePath = m.ExportPath()
	}

	// validate the backup before touching the live collection
	scratch := chromem.NewDB()
	if err := scratch.ImportFromFile(filePath, m.opts.EncryptionKey, m.opts.Collection); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	if scratch.GetCollection(m.opts.Collection, noEmbedding) == nil {
		return fmt.Errorf("collection %s not found in %s", m.opts.Collection, filePath)
	}

	// import does not remove documents already persisted for the collection
	if err := m.DeleteCollection(); err != nil {
		return err
	}
	if err := m.db.ImportFromFile(filePath, m.opts.EncryptionKey, m.opts.Collection); err != nil {
		_, _ = m.GetOrCreateCollection()
		return fmt.Errorf("failed to import database: %w", err)
	}

	c := m.db.GetCollection(m.opts.Collection, noEmbedding)
	if c == nil {
		return fmt.Errorf("collection %s not found in %s", m.opts.Collection, filePath)
	}
	m.collection = c
	return nil
}

// chromem keeps no open handles, persistence happens on every write
func (m *VectorDBManager) Close() error {
	m.collection = nil
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
