package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"webingest/internal/config"
	"webingest/internal/document"
)

// SQLWriter persists documents into a relational database.
type SQLWriter struct {
	db          *sql.DB
	autoMigrate bool
}

// NewSQLWriter initialises a SQLWriter from configuration.
func NewSQLWriter(cfg config.SQLConfig) (*SQLWriter, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sql connection: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}

	writer := &SQLWriter{db: db, autoMigrate: cfg.AutoMigrate}
	if cfg.AutoMigrate {
		if err := writer.ensureSchema(ctx); err != nil {
			return nil, err
		}
	}
	return writer, nil
}

// Persist upserts every document of the batch, keyed by source URL.
func (s *SQLWriter) Persist(ctx context.Context, batch []document.Document) error {
	for _, doc := range batch {
		if err := s.saveDocument(ctx, doc); err != nil {
			if s.autoMigrate && isUndefinedTableErr(err) {
				if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
					return fmt.Errorf("ensure schema: %w", schemaErr)
				}
				if retryErr := s.saveDocument(ctx, doc); retryErr != nil {
					return fmt.Errorf("insert document: %w", retryErr)
				}
				continue
			}
			return fmt.Errorf("insert document: %w", err)
		}
	}
	return nil
}

func (s *SQLWriter) saveDocument(ctx context.Context, doc document.Document) error {
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	query := `
        INSERT INTO documents (id, source, content, metadata, retrieved_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET
            source = EXCLUDED.source,
            content = EXCLUDED.content,
            metadata = EXCLUDED.metadata,
            retrieved_at = EXCLUDED.retrieved_at
    `
	_, err = s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Source,
		doc.Text,
		metadata,
		time.Now().UTC(),
	)
	return err
}

func (s *SQLWriter) ensureSchema(ctx context.Context) error {
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
		    id TEXT PRIMARY KEY,
		    source TEXT,
		    content TEXT,
		    metadata JSONB,
		    retrieved_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_retrieved_at ON documents (retrieved_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying DB connection.
func (s *SQLWriter) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
