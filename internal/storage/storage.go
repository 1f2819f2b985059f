// Package storage persists emitted document batches for downstream
// consumers. The reference sink is newline-delimited JSON; an optional
// Postgres sink upserts documents by URL.
package storage

import (
	"context"
	"fmt"

	"webingest/internal/config"
	"webingest/internal/document"
)

// Sink receives completed batches from the connector.
type Sink interface {
	Persist(ctx context.Context, batch []document.Document) error
	Close() error
}

// New constructs the sink selected by configuration.
func New(cfg config.SinkConfig) (Sink, error) {
	switch cfg.Type {
	case "jsonl":
		return NewJSONLWriter(cfg.Path)
	case "postgres":
		return NewSQLWriter(cfg.DB)
	case "none":
		return discardSink{}, nil
	default:
		return nil, fmt.Errorf("unsupported sink type %q", cfg.Type)
	}
}

type discardSink struct{}

func (discardSink) Persist(context.Context, []document.Document) error { return nil }
func (discardSink) Close() error                                       { return nil }
