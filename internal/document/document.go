// Package document defines the uniform record emitted for every ingested page.
package document

import (
	"fmt"
	"sort"
	"strings"
)

// Metadata maps heuristic keys to either a string or a list of strings.
// Any other value shape is rejected by ContextLines.
type Metadata map[string]any

// Document is the assembled output record for a single source URL.
// It is immutable once built and emitted exactly once inside a batch.
type Document struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata"`
}

// New assembles a document for a source URL. The URL doubles as the
// document identity; deduplication upstream is by URL, not content.
func New(sourceURL, text string, md Metadata) Document {
	if md == nil {
		md = Metadata{}
	}
	return Document{
		ID:       sourceURL,
		Text:     text,
		Source:   sourceURL,
		Metadata: md,
	}
}

// MetadataFormatError reports a metadata value whose shape the generic
// formatter cannot render. It signals that the connector needs its own
// metadata handling rather than the shared heuristic.
type MetadataFormatError struct {
	Key   string
	Value any
}

func (e *MetadataFormatError) Error() string {
	return fmt.Sprintf("metadata key %q has unsupported value type %T: connector-specific parsing required", e.Key, e.Value)
}

// ContextLines renders metadata into "key: value" lines suitable as
// additional context for a downstream consumer. String values render
// verbatim, string lists are comma-joined. Keys are emitted in sorted
// order so output is stable.
func ContextLines(md Metadata) ([]string, error) {
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := md[key].(type) {
		case string:
			lines = append(lines, fmt.Sprintf("%s: %s", key, v))
		case []string:
			lines = append(lines, fmt.Sprintf("%s: %s", key, strings.Join(v, ", ")))
		default:
			return nil, &MetadataFormatError{Key: key, Value: md[key]}
		}
	}
	return lines, nil
}
