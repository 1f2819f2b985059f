package connector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"webingest/internal/config"
	"webingest/internal/fetcher"
)

func TestParseMode(t *testing.T) {
	for _, raw := range []string{"recursive", "single", "sitemap", "upload"} {
		mode, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", raw, err)
		}
		if string(mode) != raw {
			t.Fatalf("ParseMode(%q) = %q", raw, mode)
		}
	}

	_, err := ParseMode("breadth-first")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Mode != "breadth-first" {
		t.Fatalf("unexpected mode in error: %q", cfgErr.Mode)
	}
}

func TestEnsureScheme(t *testing.T) {
	cases := map[string]string{
		"example.com/docs":         "https://example.com/docs",
		"https://example.com/docs": "https://example.com/docs",
		"http://example.com":       "http://example.com",
	}
	for in, want := range cases {
		if got := ensureScheme(in); got != want {
			t.Fatalf("ensureScheme(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSitemapLocations(t *testing.T) {
	sitemap := `<?xml version="1.0" encoding="UTF-8"?>
		<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
			<url><loc> https://example.com/a </loc><lastmod>2024-01-01</lastmod></url>
			<url><loc>https://example.com/b</loc></url>
		</urlset>`
	urls, err := sitemapLocations([]byte(sitemap))
	if err != nil {
		t.Fatalf("sitemapLocations: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
		t.Fatalf("unexpected urls: %v", urls)
	}
}

func TestSitemapLocationsAcceptsIndexFiles(t *testing.T) {
	index := `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
		<sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
		<sitemap><loc>https://example.com/sitemap-2.xml</loc></sitemap>
	</sitemapindex>`
	urls, err := sitemapLocations([]byte(index))
	if err != nil {
		t.Fatalf("sitemapLocations: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://example.com/sitemap-1.xml" {
		t.Fatalf("unexpected urls: %v", urls)
	}
}

func TestSitemapLocationsRejectsMalformedXML(t *testing.T) {
	if _, err := sitemapLocations([]byte("<urlset><loc>oops")); err == nil {
		t.Fatal("expected error for malformed xml")
	}
}

func TestReadURLList(t *testing.T) {
	path := writeURLList(t,
		"example.com/a",
		"",
		"  https://example.com/b  ",
	)
	urls, err := readURLList(path)
	if err != nil {
		t.Fatalf("readURLList: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://example.com/a" || urls[1] != "https://example.com/b" {
		t.Fatalf("unexpected urls: %v", urls)
	}

	if _, err := readURLList(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := testConfig("bogus", "https://example.com")
	_, err := NewWithRenderer(context.Background(), cfg, neverRender)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestNewSeedsFromSitemap(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset>
			<url><loc>https://example.com/a</loc></url>
			<url><loc>https://example.com/b</loc></url>
		</urlset>`))
	}))
	defer ts.Close()

	cfg := testConfig("sitemap", ts.URL+"/sitemap.xml")
	c, err := NewWithRenderer(context.Background(), cfg, neverRender)
	if err != nil {
		t.Fatalf("NewWithRenderer: %v", err)
	}
	if len(c.seeds) != 2 || c.seeds[0] != "https://example.com/a" || c.seeds[1] != "https://example.com/b" {
		t.Fatalf("unexpected seeds: %v", c.seeds)
	}
}

func TestNewFailsOnSitemapErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	cfg := testConfig("sitemap", ts.URL+"/sitemap.xml")
	_, err := NewWithRenderer(context.Background(), cfg, neverRender)
	var fetchErr *fetcher.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status in error: %d", fetchErr.StatusCode)
	}
}

func testConfig(mode, baseURL string) config.Config {
	cfg := config.Default()
	cfg.Connector.Mode = mode
	cfg.Connector.BaseURL = baseURL
	cfg.Sink.Type = "none"
	cfg.Logging.Level = "error"
	cfg.Logging.Structured = false
	return cfg
}

func writeURLList(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write url list: %v", err)
	}
	return path
}

// neverRender is a factory for tests that fail construction or never reach
// the render path.
func neverRender() fetcher.Renderer {
	panic("renderer must not be created")
}
