package connector

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"webingest/internal/fetcher"
)

// Mode selects how the initial frontier is seeded and whether link
// discovery runs during the crawl.
type Mode string

const (
	// ModeRecursive seeds with one URL and follows in-scope links.
	ModeRecursive Mode = "recursive"
	// ModeSingle ingests exactly the seed page.
	ModeSingle Mode = "single"
	// ModeSitemap seeds with every <loc> entry of an XML sitemap.
	ModeSitemap Mode = "sitemap"
	// ModeUpload seeds from a local file with one URL per line.
	ModeUpload Mode = "upload"
)

// ConfigError reports an unrecognised crawl mode. It is fatal at
// construction; nothing can be seeded from an unknown strategy.
type ConfigError struct {
	Mode string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid crawl mode %q: must be one of recursive, single, sitemap, upload", e.Mode)
}

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeRecursive, ModeSingle, ModeSitemap, ModeUpload:
		return Mode(raw), nil
	default:
		return "", &ConfigError{Mode: raw}
	}
}

// ensureScheme prefixes https:// when the value carries no scheme separator.
// This is the only coercion applied to configured URLs; anything else
// malformed fails later at fetch time.
func ensureScheme(raw string) string {
	if strings.Contains(raw, "://") {
		return raw
	}
	return "https://" + raw
}

// seed builds the initial frontier for the configured mode.
func (c *Connector) seed(ctx context.Context) ([]string, error) {
	switch c.mode {
	case ModeRecursive, ModeSingle:
		return []string{ensureScheme(c.baseURL)}, nil
	case ModeSitemap:
		return c.sitemapSeeds(ctx, ensureScheme(c.baseURL))
	case ModeUpload:
		return readURLList(c.baseURL)
	default:
		return nil, &ConfigError{Mode: string(c.mode)}
	}
}

func (c *Connector) sitemapSeeds(ctx context.Context, sitemapURL string) ([]string, error) {
	res, err := c.http.Fetch(ctx, sitemapURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &fetcher.FetchError{URL: sitemapURL, StatusCode: res.StatusCode}
	}
	urls, err := sitemapLocations(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", sitemapURL, err)
	}
	return urls, nil
}

// sitemapLocations extracts the text of every <loc> element in document
// order. Scanning tokens rather than unmarshalling into a urlset keeps the
// order and also accepts sitemap-index files.
func sitemapLocations(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var urls []string
	inLoc := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inLoc = t.Name.Local == "loc"
		case xml.EndElement:
			inLoc = false
		case xml.CharData:
			if inLoc {
				if loc := strings.TrimSpace(string(t)); loc != "" {
					urls = append(urls, loc)
				}
			}
		}
	}
	return urls, nil
}

// readURLList reads one URL per line from a local file, skipping blanks and
// prefixing https:// on lines without a scheme.
func readURLList(path string) ([]string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer fh.Close()

	var urls []string
	scanner := bufio.NewScanner(fh)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls = append(urls, ensureScheme(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
