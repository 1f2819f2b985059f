package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links returns the in-scope hyperlink targets found on a page, deduplicated,
// in document order. A link is in scope when it resolves to the same network
// location as the page it was found on and its absolute form contains the
// scope URL as a substring. The substring rule lets a scope URL pin recursion
// to a path subtree (for example a docs or category prefix), not just a host.
func Links(scopeURL string, pageURL *url.URL, doc *goquery.Document, keepFragments bool) []string {
	if pageURL == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}
		if !keepFragments {
			if i := strings.Index(href, "#"); i >= 0 {
				href = href[:i]
			}
		}

		resolved, err := pageURL.Parse(href)
		if err != nil {
			return
		}
		if resolved.Host != pageURL.Host {
			return
		}
		abs := resolved.String()
		if !strings.Contains(abs, scopeURL) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})

	return links
}
