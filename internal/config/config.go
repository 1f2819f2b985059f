// Package config loads and validates the connector configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration required to run an ingestion crawl.
type Config struct {
	Connector ConnectorConfig `yaml:"connector"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Rendering RenderingConfig `yaml:"rendering"`
	Sink      SinkConfig      `yaml:"sink"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ConnectorConfig selects the seeding strategy and extraction behaviour.
type ConnectorConfig struct {
	// BaseURL is the seed URL, sitemap URL, or upload-file path,
	// depending on Mode.
	BaseURL string `yaml:"base_url"`
	// Mode is one of recursive, single, sitemap, upload.
	Mode string `yaml:"mode"`
	// CleanupProfile toggles removal of the sticky/hidden class tokens
	// used by doc-site themes.
	CleanupProfile bool `yaml:"cleanup_profile"`
	// BatchSize is the number of documents per emitted batch.
	BatchSize int `yaml:"batch_size"`
	// KeepFragments keeps #fragment parts on discovered links.
	KeepFragments bool `yaml:"keep_fragments"`
	// DropTags lists extra element tags the normalizer removes.
	DropTags []string `yaml:"drop_tags"`
	// MarkerSelector matches tag-like label elements collected into the
	// `content` metadata key.
	MarkerSelector string `yaml:"marker_selector"`
}

// FetchConfig controls raw HTTP downloads (PDFs, sitemaps).
type FetchConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	ProxyURL       string            `yaml:"proxy_url"`
	PDFPassword    string            `yaml:"pdf_password"`
}

// RenderingConfig controls the headless browser session.
type RenderingConfig struct {
	Timeout         Duration `yaml:"timeout"`
	WaitForSelector string   `yaml:"wait_for_selector"`
	CaptureDelay    Duration `yaml:"capture_delay"`
	DisableHeadless bool     `yaml:"disable_headless"`
}

// SinkConfig selects where emitted batches are written.
type SinkConfig struct {
	// Type is "jsonl" or "postgres".
	Type string    `yaml:"type"`
	Path string    `yaml:"path"`
	DB   SQLConfig `yaml:"db"`
}

// SQLConfig describes a relational database connection used for persistence.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Connector: ConnectorConfig{
			Mode:           "recursive",
			CleanupProfile: true,
			BatchSize:      16,
			MarkerSelector: "div.academy-tag-passive.w-dyn-item",
		},
		Fetch: FetchConfig{
			UserAgent:      "webingest-bot/1.0",
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(10 * time.Second),
			MaxBodyBytes:   10 * 1024 * 1024,
		},
		Rendering: RenderingConfig{
			Timeout:      DurationFrom(60 * time.Second),
			CaptureDelay: DurationFrom(1500 * time.Millisecond),
		},
		Sink: SinkConfig{
			Type: "jsonl",
			Path: "documents.jsonl",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: true,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the connector configuration.
// Mode membership is checked by the connector itself at construction.
func (c Config) Validate() error {
	if c.Connector.BaseURL == "" {
		return errors.New("connector.base_url must be set")
	}
	if c.Connector.BatchSize <= 0 {
		return fmt.Errorf("connector.batch_size must be > 0 (got %d)", c.Connector.BatchSize)
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		return fmt.Errorf("fetch.max_body_bytes must be > 0 (got %d)", c.Fetch.MaxBodyBytes)
	}
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		return errors.New("fetch.user_agent must be set")
	}
	switch c.Sink.Type {
	case "jsonl":
		if c.Sink.Path == "" {
			return errors.New("sink.path must be set for the jsonl sink")
		}
	case "postgres":
		if c.Sink.DB.Driver == "" || c.Sink.DB.DSN == "" {
			return errors.New("sink.db.driver and sink.db.dsn must be set for the postgres sink")
		}
	case "none":
	default:
		return fmt.Errorf("unsupported sink type %q", c.Sink.Type)
	}
	return nil
}

func (c *Config) normalise() {
	c.Connector.BaseURL = strings.TrimSpace(c.Connector.BaseURL)
	c.Connector.Mode = strings.ToLower(strings.TrimSpace(c.Connector.Mode))
	c.Connector.MarkerSelector = strings.TrimSpace(c.Connector.MarkerSelector)
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	c.Sink.Type = strings.ToLower(strings.TrimSpace(c.Sink.Type))
	c.Sink.Path = strings.TrimSpace(c.Sink.Path)
	if len(c.Connector.DropTags) > 0 {
		c.Connector.DropTags = dedupeLower(c.Connector.DropTags)
	}
}

func dedupeLower(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
