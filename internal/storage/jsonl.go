package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"webingest/internal/document"
)

// JSONLWriter writes one JSON object per document, newline-delimited.
type JSONLWriter struct {
	w     *bufio.Writer
	close func() error
}

// NewJSONLWriter creates or truncates the output file.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &JSONLWriter{w: bufio.NewWriter(fh), close: fh.Close}, nil
}

// NewJSONLWriterTo streams to an arbitrary writer.
func NewJSONLWriterTo(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: bufio.NewWriter(w), close: func() error { return nil }}
}

// Persist appends every document of the batch as its own line.
func (j *JSONLWriter) Persist(ctx context.Context, batch []document.Document) error {
	enc := json.NewEncoder(j.w)
	for _, doc := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
	}
	return j.w.Flush()
}

// Close flushes buffered output and closes the underlying file.
func (j *JSONLWriter) Close() error {
	if err := j.w.Flush(); err != nil {
		return err
	}
	return j.close()
}
