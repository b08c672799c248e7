package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
)

const (
	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
)

// Document is one row of the collection table. The table name is the collection name.
type Document struct {
	bun.BaseModel `bun:"alias:d"`
	ID            string          `bun:"id,pk"`
	Page          int             `bun:"page,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull"`
}

type hitRow struct {
	ID         string  `bun:"id"`
	Page       int     `bun:"page"`
	Content    string  `bun:"content"`
	Similarity float64 `bun:"similarity"`
}

// Store keeps a collection in a Postgres table with a pgvector column
type Store struct {
	db    *bun.DB
	table string
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a connection pool with the configured driver
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required for the pgvector backend")
	}

	switch cfg.Driver {
	case DriverPgdriver, "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case DriverPq:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return sqldb, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Open connects to Postgres and returns the store for table
func Open(cfg *config.DatabaseConfig, table string) (*Store, error) {
	sqldb, err := ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	return New(NewDB(sqldb, cfg.Debug), table), nil
}

func New(db *bun.DB, table string) *Store {
	return &Store{db: db, table: table}
}

// Rebuild drops the table and recreates it with records, in one transaction
func (s *Store) Rebuild(ctx context.Context, records []models.Record) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS ?", bun.Ident(s.table)); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
		if len(records) == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
			return fmt.Errorf("failed to create vector extension: %w", err)
		}
		dim := len(records[0].Embedding)
		if _, err := tx.ExecContext(ctx,
			"CREATE TABLE ? (id text PRIMARY KEY, page integer NOT NULL, content text NOT NULL, embedding vector(?) NOT NULL)",
			bun.Ident(s.table), dim,
		); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}

		docs := make([]Document, len(records))
		for i, r := range records {
			docs[i] = Document{
				ID:        r.ID,
				Page:      r.Page,
				Content:   r.Content,
				Embedding: pgvector.NewVector(r.Embedding),
			}
		}
		if _, err := tx.NewInsert().Model(&docs).ModelTableExpr("?", bun.Ident(s.table)).Exec(ctx); err != nil {
			return fmt.Errorf("failed to store documents: %w", err)
		}

		log.Debug().Str("table", s.table).Int("documents", len(docs)).Msg("Stored documents")
		return nil
	})
}

// Query orders rows by cosine distance to embedding
func (s *Store) Query(ctx context.Context, embedding []float32, topK int) ([]models.Hit, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 || topK <= 0 || isZero(embedding) {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	vec := pgvector.NewVector(embedding)
	var rows []hitRow
	err = s.db.NewSelect().
		TableExpr("? AS d", bun.Ident(s.table)).
		ColumnExpr("d.id, d.page, d.content").
		ColumnExpr("1 - (d.embedding <=> ?) AS similarity", vec).
		OrderExpr("d.embedding <=> ?", vec).
		Limit(topK).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	hits := make([]models.Hit, len(rows))
	for i, r := range rows {
		hits[i] = models.Hit{
			ID:         r.ID,
			Page:       r.Page,
			Content:    r.Content,
			Similarity: float32(r.Similarity),
		}
	}
	return hits, nil
}

// Count is 0 when the table has not been built yet
func (s *Store) Count(ctx context.Context) (int, error) {
	var exists bool
	if err := s.db.NewRaw("SELECT to_regclass(?) IS NOT NULL", s.table).Scan(ctx, &exists); err != nil {
		return 0, fmt.Errorf("failed to look up table: %w", err)
	}
	if !exists {
		return 0, nil
	}

	count, err := s.db.NewSelect().TableExpr("?", bun.Ident(s.table)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
