package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFromHTML(rawHTML string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
}

func extractLinks(t *testing.T, scope, page, rawHTML string, keepFragments bool) []string {
	t.Helper()
	pageURL, err := url.Parse(page)
	if err != nil {
		t.Fatalf("parse page url: %v", err)
	}
	doc, err := docFromHTML(rawHTML)
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return Links(scope, pageURL, doc, keepFragments)
}

func TestLinksResolvesAndScopes(t *testing.T) {
	rawHTML := `
		<a href="/docs/a">relative</a>
		<a href="https://example.com/docs/b">absolute</a>
		<a href="https://other.com/docs/c">foreign host</a>
		<a href="/blog/d">outside scope</a>
		<a href="/docs/a">duplicate</a>
	`
	links := extractLinks(t, "https://example.com/docs", "https://example.com/docs/intro", rawHTML, false)
	want := []string{
		"https://example.com/docs/a",
		"https://example.com/docs/b",
	}
	if len(links) != len(want) {
		t.Fatalf("expected %v, got %v", want, links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("link %d: expected %q, got %q", i, want[i], links[i])
		}
	}
}

func TestLinksStripsFragments(t *testing.T) {
	rawHTML := `<a href="page#section">anchored</a>`
	links := extractLinks(t, "https://example.com/docs", "https://example.com/docs/intro", rawHTML, false)
	if len(links) != 1 || links[0] != "https://example.com/docs/page" {
		t.Fatalf("expected fragment stripped, got %v", links)
	}

	links = extractLinks(t, "https://example.com/docs", "https://example.com/docs/intro", rawHTML, true)
	if len(links) != 1 || links[0] != "https://example.com/docs/page#section" {
		t.Fatalf("expected fragment kept, got %v", links)
	}
}

func TestLinksScopeIsSubstringNotPrefix(t *testing.T) {
	// The scope guard is substring containment, so a scope deeper than the
	// host still admits any URL that textually contains it.
	rawHTML := `<a href="/mirror/docs/page">nested</a>`
	links := extractLinks(t, "/docs", "https://example.com/index", rawHTML, false)
	if len(links) != 1 || links[0] != "https://example.com/mirror/docs/page" {
		t.Fatalf("expected substring match to admit link, got %v", links)
	}
}

func TestLinksIgnoresUnparseableAndEmpty(t *testing.T) {
	rawHTML := `<a href="">empty</a><a href="https://example.com:bad/x">broken</a>`
	links := extractLinks(t, "https://example.com", "https://example.com/", rawHTML, false)
	if len(links) != 0 {
		t.Fatalf("expected no links, got %v", links)
	}
}
