package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"webingest/internal/config"
	"webingest/internal/connector"
	"webingest/internal/storage"
)

func main() {
	cfgPath := flag.String("config", "", "Path to connector configuration file")
	baseURL := flag.String("url", "", "Seed URL, sitemap URL, or upload-file path (overrides config)")
	mode := flag.String("mode", "", "Crawl mode: recursive, single, sitemap, upload (overrides config)")
	out := flag.String("out", "", "Output JSONL path (overrides config)")
	batchSize := flag.Int("batch-size", 0, "Documents per emitted batch (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	if *baseURL != "" {
		cfg.Connector.BaseURL = *baseURL
	}
	if *mode != "" {
		cfg.Connector.Mode = *mode
	}
	if *out != "" {
		cfg.Sink.Type = "jsonl"
		cfg.Sink.Path = *out
	}
	if *batchSize > 0 {
		cfg.Connector.BatchSize = *batchSize
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := connector.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise connector: %v\n", err)
		os.Exit(1)
	}

	sink, err := storage.New(cfg.Sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise sink: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	for batch, err := range conn.Batches(ctx) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "crawl stopped: %v\n", err)
			os.Exit(1)
		}
		if err := sink.Persist(ctx, batch); err != nil {
			fmt.Fprintf(os.Stderr, "failed to persist batch: %v\n", err)
			os.Exit(1)
		}
	}
}
